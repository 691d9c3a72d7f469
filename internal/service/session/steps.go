package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/translator"
)

// autoStatementCyclomatic is the unit cyclomatic complexity above which
// auto sessions step statement by statement.
const autoStatementCyclomatic = 10

// unit is a 1-based inclusive line range that translates on its own.
type unit struct {
	start, end int
	function   string
}

// planSteps cuts source into steps that cover every line exactly once.
// Functions are never split; other code is cut where delimiters balance.
func planSteps(source string, summary domain.StructuralSummary, size domain.StepSize, syn domain.Syntax) ([]domain.SessionStep, error) {
	lines := strings.Split(strings.TrimSuffix(strings.ReplaceAll(source, "\r\n", "\n"), "\n"), "\n")
	live, err := translator.CodeLines(source, syn)
	if err != nil {
		return nil, err
	}
	isLive := func(n int) bool { return n-1 < len(live) && live[n-1] }

	starts := outerFunctions(summary.Functions, lines)

	var (
		units   []unit
		pending int
	)
	for n := 1; n <= len(lines); {
		if fn, ok := starts[n]; ok {
			u := unit{start: n, end: fn.EndLine, function: fn.Name}
			if pending > 0 {
				u.start = pending
				pending = 0
			}
			units = append(units, u)
			n = fn.EndLine + 1
			continue
		}
		if !isLive(n) {
			if pending == 0 {
				pending = n
			}
			n++
			continue
		}
		end := chunkEnd(lines, n, isLive, syn)
		u := unit{start: n, end: end}
		if pending > 0 {
			u.start = pending
			pending = 0
		}
		units = append(units, u)
		n = end + 1
	}

	switch {
	case len(units) == 0:
		return []domain.SessionStep{{Index: 1, Description: "Translate code block", StartLine: 1, EndLine: len(lines)}}, nil
	case pending > 0:
		units[len(units)-1].end = len(lines)
	}

	if size == domain.StepFunction {
		units = mergeTopLevel(units)
	}

	steps := make([]domain.SessionStep, 0, len(units))
	for i, u := range units {
		steps = append(steps, domain.SessionStep{
			Index:       i + 1,
			Description: describe(u, size),
			StartLine:   u.start,
			EndLine:     u.end,
		})
	}
	return steps, nil
}

// outerFunctions indexes top-level functions by their first line, with
// annotations directly above a function folded into it.
func outerFunctions(fns []domain.FunctionDescriptor, lines []string) map[int]domain.FunctionDescriptor {
	sorted := append([]domain.FunctionDescriptor(nil), fns...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartLine < sorted[j].StartLine })

	out := make(map[int]domain.FunctionDescriptor)
	lastEnd := 0
	for _, f := range sorted {
		if f.StartLine <= lastEnd || f.StartLine < 1 {
			continue
		}
		start := f.StartLine
		for start-1 > lastEnd && isAnnotation(lines[start-2]) {
			start--
		}
		out[start] = f
		lastEnd = f.EndLine
	}
	return out
}

func isAnnotation(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "@") || strings.HasPrefix(t, "#[")
}

// chunkEnd extends a statement starting at line n until its delimiters
// balance and, for indentation blocks, its indented body is included.
func chunkEnd(lines []string, n int, isLive func(int) bool, syn domain.Syntax) int {
	end := n
	for end < len(lines) {
		text := strings.Join(lines[n-1:end], "\n")
		if translator.CheckDelimiters(text, syn) == nil && !continuesBlock(lines, n, end, isLive, syn) {
			break
		}
		end++
	}
	return end
}

// continuesBlock reports whether the first live line after end is indented
// deeper than line n in an indentation-style language.
func continuesBlock(lines []string, n, end int, isLive func(int) bool, syn domain.Syntax) bool {
	if syn.BlockStyle != domain.BlockIndent {
		return false
	}
	for k := end + 1; k <= len(lines); k++ {
		if isLive(k) {
			return indent(lines[k-1]) > indent(lines[n-1])
		}
	}
	return false
}

func indent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// mergeTopLevel joins neighbouring non-function units.
func mergeTopLevel(units []unit) []unit {
	var out []unit
	for _, u := range units {
		if n := len(out); n > 0 && u.function == "" && out[n-1].function == "" {
			out[n-1].end = u.end
			continue
		}
		out = append(out, u)
	}
	return out
}

func describe(u unit, size domain.StepSize) string {
	lines := fmt.Sprintf("line %d", u.start)
	if u.end > u.start {
		lines = fmt.Sprintf("lines %d-%d", u.start, u.end)
	}
	switch {
	case u.function != "":
		return fmt.Sprintf("Translate function %s (%s)", u.function, lines)
	case size == domain.StepStatement:
		return fmt.Sprintf("Translate statement (%s)", lines)
	default:
		return fmt.Sprintf("Translate top-level code (%s)", lines)
	}
}
