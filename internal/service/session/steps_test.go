package session

import (
	"testing"

	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/profile"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/translator"
)

func plan(t *testing.T, lang, src string, size domain.StepSize) []domain.SessionStep {
	t.Helper()
	reg, err := profile.Default()
	if err != nil {
		t.Fatalf("profile.Default: %v", err)
	}
	p, ok := reg.Lookup(lang)
	if !ok {
		t.Fatalf("profile %s not registered", lang)
	}
	summary, err := translator.New(reg.Target().Language, zap.NewNop()).Scan(src, p)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	steps, err := planSteps(src, summary, size, p.Syntax)
	if err != nil {
		t.Fatalf("planSteps: %v", err)
	}
	return steps
}

type span struct{ start, end int }

func spans(steps []domain.SessionStep) []span {
	out := make([]span, len(steps))
	for i, s := range steps {
		out[i] = span{s.StartLine, s.EndLine}
	}
	return out
}

func equalSpans(a, b []span) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlanFoldsDecoratorsAndComments(t *testing.T) {
	src := "import functools\n" +
		"\n" +
		"# cached fibonacci\n" +
		"@functools.lru_cache(maxsize=None)\n" +
		"def fib(n):\n" +
		"    if n < 2:\n" +
		"        return n\n" +
		"    return fib(n - 1) + fib(n - 2)\n" +
		"\n" +
		"print(fib(10))\n" +
		"# done\n"

	steps := plan(t, "python", src, domain.StepFunction)

	want := []span{{1, 1}, {2, 8}, {9, 11}}
	if got := spans(steps); !equalSpans(got, want) {
		t.Fatalf("unexpected spans %v, want %v", got, want)
	}
	if steps[1].Description != "Translate function fib (lines 2-8)" {
		t.Fatalf("unexpected description %q", steps[1].Description)
	}
	for i, s := range steps {
		if s.Index != i+1 || s.Done {
			t.Fatalf("unexpected step %+v", s)
		}
	}
}

func TestPlanStatementsKeepMultilineStatementsWhole(t *testing.T) {
	src := "let xs = [\n" +
		"  1,\n" +
		"  2,\n" +
		"];\n" +
		"let total = xs.length;\n" +
		"console.log(total);\n"

	statement := plan(t, "javascript", src, domain.StepStatement)
	if got, want := spans(statement), []span{{1, 4}, {5, 5}, {6, 6}}; !equalSpans(got, want) {
		t.Fatalf("unexpected statement spans %v, want %v", got, want)
	}

	function := plan(t, "javascript", src, domain.StepFunction)
	if got, want := spans(function), []span{{1, 6}}; !equalSpans(got, want) {
		t.Fatalf("top-level code should merge into one step: %v", got)
	}
	if function[0].Description != "Translate top-level code (lines 1-6)" {
		t.Fatalf("unexpected description %q", function[0].Description)
	}
}

func TestPlanCommentOnlySource(t *testing.T) {
	steps := plan(t, "rust", "// nothing here\n// yet\n", domain.StepAuto)
	if len(steps) != 1 || steps[0].Description != "Translate code block" || steps[0].EndLine != 2 {
		t.Fatalf("unexpected steps %+v", steps)
	}
}
