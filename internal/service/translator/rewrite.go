package translator

import (
	"sort"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
)

// fragment is text with a per-byte liveness mask.
type fragment struct {
	text string
	live []bool
}

type candidate struct {
	start, end int
	rule       int
	submatch   []int
}

// rewriteResult reports the rewritten text and which rule kinds fired.
type rewriteResult struct {
	text  string
	kinds map[domain.RuleKind]bool
	rules int
}

// rewrite applies inline rules, then structural rules, to one statement.
func rewrite(in fragment, rules []domain.Rule) rewriteResult {
	res := rewriteResult{kinds: make(map[domain.RuleKind]bool)}

	var inline, structural []domain.Rule
	for _, r := range rules {
		if r.Kind.Structural() {
			structural = append(structural, r)
		} else {
			inline = append(inline, r)
		}
	}

	cur := in
	for _, layer := range [][]domain.Rule{inline, structural} {
		var fired []domain.RuleKind
		cur, fired = applyLayer(cur, layer)
		for _, k := range fired {
			res.kinds[k] = true
			res.rules++
		}
	}
	res.text = cur.text
	return res
}

// applyLayer rewrites non-overlapping matches. On overlap the longest match
// wins, then the earliest, then the first declared rule.
func applyLayer(in fragment, rules []domain.Rule) (fragment, []domain.RuleKind) {
	if len(rules) == 0 || in.text == "" {
		return in, nil
	}

	var cands []candidate
	for ri, r := range rules {
		for _, loc := range r.Pattern.FindAllStringSubmatchIndex(in.text, -1) {
			if loc[1] <= loc[0] {
				continue
			}
			if !in.live[loc[0]] {
				continue
			}
			cands = append(cands, candidate{start: loc[0], end: loc[1], rule: ri, submatch: loc})
		}
	}
	if len(cands) == 0 {
		return in, nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		li, lj := cands[i].end-cands[i].start, cands[j].end-cands[j].start
		if li != lj {
			return li > lj
		}
		if cands[i].start != cands[j].start {
			return cands[i].start < cands[j].start
		}
		return cands[i].rule < cands[j].rule
	})

	var chosen []candidate
	for _, c := range cands {
		overlaps := false
		for _, p := range chosen {
			if c.start < p.end && p.start < c.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			chosen = append(chosen, c)
		}
	}
	sort.Slice(chosen, func(i, j int) bool { return chosen[i].start < chosen[j].start })

	var (
		text  []byte
		live  []bool
		pos   int
		kinds []domain.RuleKind
	)
	for _, c := range chosen {
		r := rules[c.rule]
		text = append(text, in.text[pos:c.start]...)
		live = append(live, in.live[pos:c.start]...)
		expanded := r.Pattern.ExpandString(nil, r.Replacement, in.text, c.submatch)
		text = append(text, expanded...)
		for range expanded {
			live = append(live, true)
		}
		pos = c.end
		kinds = append(kinds, r.Kind)
	}
	text = append(text, in.text[pos:]...)
	live = append(live, in.live[pos:]...)

	return fragment{text: string(text), live: live}, kinds
}
