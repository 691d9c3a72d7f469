package translator

import (
	"regexp"
	"strings"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
)

const (
	indentUnit    = "    "
	unmappedMark  = "// unmapped construct: "
	noteTextWidth = 80
)

// Note kinds.
const (
	noteUnsupported = "unsupported"
	noteFunction    = "function"
	noteLoop        = "loop"
	noteConditional = "conditional"
	noteBlock       = "block"
)

type emitter struct {
	profile *domain.Profile
	syn     domain.Syntax
	lines   []sourceLine
	out     []string
	notes   []domain.TranslationNote
	until   *regexp.Regexp
}

func newEmitter(p *domain.Profile, lines []sourceLine) *emitter {
	return &emitter{profile: p, syn: p.Syntax, lines: lines}
}

func (e *emitter) render(header string, trailingNewline bool) string {
	var b strings.Builder
	body := e.out
	for len(body) > 0 && body[0] == "" {
		body = body[1:]
	}
	if header != "" {
		b.WriteString(header)
		b.WriteByte('\n')
	}
	b.WriteString(strings.Join(body, "\n"))
	if trailingNewline {
		b.WriteByte('\n')
	}
	return b.String()
}

func (e *emitter) note(line int, kind, text string) {
	text = strings.Join(strings.Fields(text), " ")
	e.notes = append(e.notes, domain.TranslationNote{
		Line: line,
		Kind: kind,
		Text: util.TruncateString(text, noteTextWidth),
	})
}

// dropped reports whether text belongs to a directive block that is removed
// together with its terminator.
func (e *emitter) dropped(text string) bool {
	if e.until != nil {
		if e.until.MatchString(text) {
			e.until = nil
		}
		return true
	}
	for _, r := range e.profile.Rules {
		if r.Kind != domain.RuleDirective || r.Until == nil {
			continue
		}
		if r.Pattern.MatchString(text) {
			if !r.Until.MatchString(text) {
				e.until = r.Until
			}
			return true
		}
	}
	return false
}

// unmapped returns the note kind for masked code that no rule covered,
// or "" when the statement is fully mapped.
func (e *emitter) unmapped(masked string, res rewriteResult) string {
	for _, re := range e.profile.Unsupported {
		if re.MatchString(masked) {
			return noteUnsupported
		}
	}
	if !res.kinds[domain.RuleFunction] {
		for _, re := range e.syn.Functions {
			if re.MatchString(masked) {
				return noteFunction
			}
		}
	}
	if !res.kinds[domain.RuleLoop] && e.syn.Loop != nil && e.syn.Loop.MatchString(masked) {
		return noteLoop
	}
	if !res.kinds[domain.RuleConditional] && e.syn.Conditional != nil && e.syn.Conditional.MatchString(masked) {
		return noteConditional
	}
	return ""
}

func dropsLine(res rewriteResult) bool {
	return res.kinds[domain.RuleDirective] && strings.TrimSpace(res.text) == ""
}

// comment rewrites a line comment to the target marker.
func (e *emitter) comment(text string) string {
	for _, m := range sortedByLength(e.syn.LineComments) {
		if m != "" && strings.HasPrefix(text, m) {
			return "//" + text[len(m):]
		}
	}
	return text
}

// bodiless reports whether a rewritten control header carries no block of
// its own, as in `for (...) x++;` or a header whose body sits on the next
// line without braces.
func bodiless(masked string, res rewriteResult, nextOpens bool) bool {
	if !res.kinds[domain.RuleLoop] && !res.kinds[domain.RuleConditional] {
		return false
	}
	if !strings.HasSuffix(masked, ";") && !strings.HasSuffix(masked, ")") {
		return false
	}
	return !nextOpens && !strings.Contains(res.text, "{")
}

func (e *emitter) emitBraces() {
	nextOpens := make([]bool, len(e.lines))
	next := -1
	for i := len(e.lines) - 1; i >= 0; i-- {
		if next >= 0 {
			nextOpens[i] = strings.HasPrefix(strings.TrimSpace(e.lines[next].Code), "{")
		}
		if !e.lines[i].blank() {
			next = i
		}
	}

	openBefore := false
	for i, l := range e.lines {
		continued := openBefore
		openBefore = l.OpenString

		if l.blank() {
			if e.until == nil {
				e.out = append(e.out, strings.TrimRight(l.Raw, " \t"))
			}
			continue
		}

		lead := ""
		if !continued {
			_, lead = indentWidth(l.Raw)
		}
		body := l.Raw[len(lead):l.CodeEnd]
		code := strings.TrimRight(body, " \t")
		gap := body[len(code):]
		trailing := l.Raw[l.CodeEnd:]

		if e.dropped(strings.TrimSpace(code)) {
			continue
		}

		res := e.rewriteLine(fragment{text: code, live: l.Live[len(lead) : len(lead)+len(code)]})
		if dropsLine(res) {
			if trailing != "" {
				e.out = append(e.out, lead+trailing)
			}
			continue
		}
		masked := l.Code[len(lead) : len(lead)+len(code)]
		kind := e.unmapped(masked, res)
		if kind == "" && bodiless(masked, res, nextOpens[i]) {
			kind = noteBlock
		}
		if kind != "" {
			e.note(l.Number, kind, code)
			e.out = append(e.out, lead+unmappedMark+kind)
		}

		text := lead + res.text
		if trailing != "" {
			text += gap + trailing
		}
		e.out = append(e.out, text)
	}
}

// rewriteLine rewrites one brace-style line. A function whose body is a
// bare expression gets the body wrapped in a block.
func (e *emitter) rewriteLine(f fragment) rewriteResult {
	for _, re := range e.syn.ExpressionBodies {
		m := re.FindStringIndex(f.text)
		if m == nil || !f.live[m[0]] {
			continue
		}
		body := trimmed(f.text, f.live, m[1], len(f.text))
		if n := len(body.text); n > 0 && body.text[n-1] == ';' && body.live[n-1] {
			body = trimmed(body.text, body.live, 0, n-1)
		}
		if body.text == "" || body.text[0] == '{' || liveIndex(body, ';') >= 0 {
			break
		}
		head := rewrite(trimmed(f.text, f.live, 0, m[1]), e.profile.Rules)
		inner := rewrite(body, e.profile.Rules)
		for k := range inner.kinds {
			head.kinds[k] = true
		}
		head.rules += inner.rules
		head.text += " { " + inner.text + " }"
		return head
	}
	return rewrite(f, e.profile.Rules)
}

func liveIndex(f fragment, ch byte) int {
	for i := 0; i < len(f.text); i++ {
		if f.live[i] && f.text[i] == ch {
			return i
		}
	}
	return -1
}

type openBlock struct {
	indent int
	lead   string
}

func (e *emitter) emitIndent() {
	var (
		stack   []openBlock
		pending []string
	)
	logical := logicalLines(e.lines)

	k := 0
	for i := 0; i < len(e.lines); i++ {
		if k < len(logical) && logical[k].first == i {
			ll := logical[k]
			k++
			for len(stack) > 0 && stack[len(stack)-1].indent >= ll.indent {
				e.out = append(e.out, stack[len(stack)-1].lead+"}")
				stack = stack[:len(stack)-1]
			}
			merge := len(pending) == 0
			e.out = append(e.out, pending...)
			pending = pending[:0]

			if opened := e.logical(ll, merge); opened {
				stack = append(stack, openBlock{indent: ll.indent, lead: ll.lead})
			}
			i = ll.last
			continue
		}

		l := e.lines[i]
		if l.HasComment && l.CodeEnd < len(l.Raw) {
			_, lead := indentWidth(l.Raw)
			pending = append(pending, lead+e.comment(l.Raw[l.CodeEnd:]))
		} else {
			pending = append(pending, "")
		}
	}

	for len(stack) > 0 {
		e.out = append(e.out, stack[len(stack)-1].lead+"}")
		stack = stack[:len(stack)-1]
	}
	e.out = append(e.out, pending...)
}

// logical emits one logical line and reports whether it opened a block
// that later lines close.
func (e *emitter) logical(ll logicalLine, mayMerge bool) bool {
	comment := e.trailingComments(ll)

	if e.dropped(strings.TrimSpace(ll.raw)) {
		return false
	}

	colon := headerColon(ll.code, e.syn.BlockKeywords)
	if colon < 0 {
		e.statement(ll.line, ll.lead, trimmed(ll.raw, ll.live, 0, len(ll.raw)), ll.code, comment)
		return false
	}

	head := trimmed(ll.raw, ll.live, 0, colon+1)
	res := rewrite(head, e.profile.Rules)
	kind := e.unmapped(ll.code[:colon+1], res)
	if kind == "" && !strings.Contains(res.text, "{") {
		kind = noteBlock
	}

	last := len(e.out) - 1
	switch {
	case kind != "":
		e.note(ll.line, kind, head.text)
		e.out = append(e.out, ll.lead+"{ "+unmappedMark+head.text+comment)
	case mayMerge && strings.HasPrefix(res.text, "else") && last >= 0 && e.out[last] == ll.lead+"}":
		e.out[last] = ll.lead + "} " + res.text + comment
	default:
		e.out = append(e.out, ll.lead+res.text+comment)
	}

	rest := trimmed(ll.raw, ll.live, colon+1, len(ll.raw))
	if rest.text == "" {
		return true
	}
	e.statement(ll.line, ll.lead+indentUnit, rest, ll.code[colon+1:], "")
	e.out = append(e.out, ll.lead+"}")
	return false
}

func (e *emitter) statement(line int, lead string, f fragment, masked, comment string) {
	res := rewrite(f, e.profile.Rules)
	if dropsLine(res) {
		if comment != "" {
			e.out = append(e.out, lead+strings.TrimLeft(comment, " "))
		}
		return
	}
	if kind := e.unmapped(masked, res); kind != "" {
		e.note(line, kind, f.text)
		e.out = append(e.out, lead+unmappedMark+strings.ReplaceAll(f.text, "\n", " ")+comment)
		return
	}
	e.out = append(e.out, lead+res.text+comment)
}

// trailingComments collects the line comments of every physical line of ll.
func (e *emitter) trailingComments(ll logicalLine) string {
	var parts []string
	for i := ll.first; i <= ll.last; i++ {
		l := e.lines[i]
		if l.HasComment && l.CodeEnd < len(l.Raw) {
			parts = append(parts, e.comment(l.Raw[l.CodeEnd:]))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// trimmed cuts text[from:to] and drops surrounding blanks, keeping the
// liveness mask aligned.
func trimmed(text string, live []bool, from, to int) fragment {
	for from < to && (text[from] == ' ' || text[from] == '\t') {
		from++
	}
	for to > from && (text[to-1] == ' ' || text[to-1] == '\t') {
		to--
	}
	return fragment{text: text[from:to], live: live[from:to]}
}
