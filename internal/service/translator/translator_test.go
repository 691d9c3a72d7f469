package translator

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/analyzer"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/profile"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

func setup(t *testing.T) (*Translator, *profile.Registry) {
	t.Helper()
	r, err := profile.Default()
	if err != nil {
		t.Fatalf("profile.Default: %v", err)
	}
	return New(r.Target().Language, zap.NewNop()), r
}

func mustProfile(t *testing.T, r *profile.Registry, lang string) *domain.Profile {
	t.Helper()
	p, ok := r.Lookup(lang)
	if !ok {
		t.Fatalf("profile %s not registered", lang)
	}
	return p
}

func translate(t *testing.T, tr *Translator, p *domain.Profile, src string) *Translation {
	t.Helper()
	out, err := tr.Translate(src, p)
	if err != nil {
		t.Fatalf("Translate(%s): %v", p.Language, err)
	}
	return out
}

func TestPythonFibonacciOneLiner(t *testing.T) {
	tr, r := setup(t)
	src := "def f(n): return n if n <= 1 else f(n-1) + f(n-2)"

	out := translate(t, tr, mustProfile(t, r, "python"), src)

	want := "// Translated from python to ruchy\n" +
		"fun f(n) {\n" +
		"    return if n <= 1 { n } else { f(n-1) + f(n-2) }\n" +
		"}"
	if out.Text != want {
		t.Fatalf("unexpected translation:\n%s\nwant:\n%s", out.Text, want)
	}

	s := out.Summary
	if s.FunctionCount != 1 || len(s.Functions) != 1 {
		t.Fatalf("expected one function, got %+v", s.Functions)
	}
	fn := s.Functions[0]
	if fn.Name != "f" || fn.ParameterCount != 1 {
		t.Fatalf("unexpected descriptor %+v", fn)
	}
	if fn.ConditionalCount != 1 || fn.NestingDepth != 1 || fn.LoopCount != 0 {
		t.Fatalf("unexpected control facts %+v", fn)
	}
	if fn.SelfCallCount != 2 || !fn.IsRecursive {
		t.Fatalf("expected two self calls, got %+v", fn)
	}
	if !fn.Pure() {
		t.Fatalf("fibonacci should be pure: %+v", fn)
	}
	if s.UnmappedConstructs != 0 || len(out.Notes) != 0 {
		t.Fatalf("unexpected notes %+v", out.Notes)
	}
	if s.LineCount != 1 {
		t.Fatalf("expected 1 line of code, got %d", s.LineCount)
	}
}

func TestPythonElseChainsMergeWithClosingBrace(t *testing.T) {
	tr, r := setup(t)
	src := "def sign(x):\n" +
		"    if x > 0:\n" +
		"        return 1\n" +
		"    elif x < 0:\n" +
		"        return -1\n" +
		"    else:\n" +
		"        return 0\n"

	out := translate(t, tr, mustProfile(t, r, "python"), src)

	want := "// Translated from python to ruchy\n" +
		"fun sign(x) {\n" +
		"    if x > 0 {\n" +
		"        return 1\n" +
		"    } else if x < 0 {\n" +
		"        return -1\n" +
		"    } else {\n" +
		"        return 0\n" +
		"    }\n" +
		"}\n"
	if out.Text != want {
		t.Fatalf("unexpected translation:\n%s\nwant:\n%s", out.Text, want)
	}

	fn := out.Summary.Functions[0]
	if fn.ConditionalCount != 2 || !fn.HasEarlyReturn || fn.ReturnCount != 3 {
		t.Fatalf("unexpected descriptor %+v", fn)
	}
}

func TestPythonCommentsBecomeLineComments(t *testing.T) {
	tr, r := setup(t)
	out := translate(t, tr, mustProfile(t, r, "python"), "# hello\nx = 1  # one\n")

	want := "// Translated from python to ruchy\n// hello\nlet x = 1 // one\n"
	if out.Text != want {
		t.Fatalf("got %q, want %q", out.Text, want)
	}
	if out.Summary.CommentLines != 1 || out.Summary.LineCount != 1 || out.Summary.PhysicalLines != 2 {
		t.Fatalf("unexpected line counts %+v", out.Summary)
	}
}

func TestGoDirectivesAreDropped(t *testing.T) {
	tr, r := setup(t)
	src := "package main\n\nimport (\n\t\"fmt\"\n)\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n"

	out := translate(t, tr, mustProfile(t, r, "go"), src)

	want := "// Translated from go to ruchy\n" +
		"fun main() {\n" +
		"\tprintln(\"hi\")\n" +
		"}\n" +
		"\n" +
		"main()\n"
	if out.Text != want {
		t.Fatalf("unexpected translation:\n%q\nwant:\n%q", out.Text, want)
	}
	if out.Summary.Functions[0].Pure() {
		t.Fatalf("printing function should not be pure")
	}
}

func TestEntryCallNotDuplicated(t *testing.T) {
	tr, r := setup(t)
	src := "function main() {\n  return 1;\n}\nmain();\n"

	out := translate(t, tr, mustProfile(t, r, "javascript"), src)
	if strings.Count(out.Text, "main()") != 2 {
		t.Fatalf("expected header and existing call only:\n%s", out.Text)
	}
	if !strings.Contains(out.Text, "fun main() {") {
		t.Fatalf("function header not rewritten:\n%s", out.Text)
	}
}

func TestStringContentsAreNotRewritten(t *testing.T) {
	tr, r := setup(t)
	src := "print(\"True or False if x\")\n"

	out := translate(t, tr, mustProfile(t, r, "python"), src)
	if !strings.Contains(out.Text, "println(\"True or False if x\")") {
		t.Fatalf("string literal was touched:\n%s", out.Text)
	}
	if len(out.Notes) != 0 {
		t.Fatalf("string contents must not count as constructs: %+v", out.Notes)
	}
}

func TestUnmappedConstructsAreMarked(t *testing.T) {
	tr, r := setup(t)

	out := translate(t, tr, mustProfile(t, r, "python"), "class Foo:\n    x = 1\n")
	if !strings.Contains(out.Text, "{ // unmapped construct: class Foo:") {
		t.Fatalf("missing marker:\n%s", out.Text)
	}
	if !strings.Contains(out.Text, "    let x = 1\n}") {
		t.Fatalf("class body not re-blocked:\n%s", out.Text)
	}
	if out.Summary.UnmappedConstructs != 1 || len(out.Notes) != 1 {
		t.Fatalf("expected one note, got %+v", out.Notes)
	}
	if n := out.Notes[0]; n.Line != 1 || n.Kind != noteUnsupported {
		t.Fatalf("unexpected note %+v", n)
	}

	out = translate(t, tr, mustProfile(t, r, "javascript"), "class A {\n}\n")
	if !strings.Contains(out.Text, "// unmapped construct: unsupported\nclass A {") {
		t.Fatalf("missing brace-style marker:\n%s", out.Text)
	}
}

func TestIdentityIsIdempotent(t *testing.T) {
	tr, r := setup(t)
	src := "fun add(a, b) {\n    a + b\n}\n"

	first := translate(t, tr, r.Target(), src)
	if first.Text != src {
		t.Fatalf("identity changed text: %q", first.Text)
	}
	second := translate(t, tr, r.Target(), first.Text)
	if second.Text != first.Text {
		t.Fatalf("identity not idempotent")
	}
	if !first.Summary.Identity || first.Summary.FunctionCount != 1 {
		t.Fatalf("unexpected summary %+v", first.Summary)
	}
}

func TestTranslationIsDeterministic(t *testing.T) {
	tr, r := setup(t)
	src := "function sum(xs) {\n  let total = 0;\n  for (const x of xs) {\n    if (x > 0) {\n      total = total + x;\n    }\n  }\n  return total;\n}\n"
	p := mustProfile(t, r, "javascript")

	first := translate(t, tr, p, src)
	for i := 0; i < 10; i++ {
		if got := translate(t, tr, p, src); got.Text != first.Text {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, got.Text, first.Text)
		}
	}
	fn := first.Summary.Functions[0]
	if fn.LoopCount != 1 || fn.ConditionalCount != 1 || fn.MaxLoopDepth != 1 || fn.NestingDepth != 2 {
		t.Fatalf("unexpected descriptor %+v", fn)
	}
}

func TestEmptySource(t *testing.T) {
	tr, r := setup(t)
	for _, src := range []string{"", "   \n\n"} {
		out := translate(t, tr, mustProfile(t, r, "python"), src)
		if out.Text != "" {
			t.Fatalf("expected empty output for %q, got %q", src, out.Text)
		}
		if out.Summary.LineCount != 0 || out.Summary.FunctionCount != 0 {
			t.Fatalf("unexpected summary %+v", out.Summary)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tr, r := setup(t)
	cases := []struct {
		name   string
		lang   string
		src    string
		line   int
		column int
	}{
		{name: "unbalanced brace", lang: "rust", src: "fn main() {\n    let x = 1;\n", line: 1, column: 11},
		{name: "unexpected closer", lang: "c", src: "int main() {\n}\n}\n", line: 3, column: 1},
		{name: "header without body", lang: "python", src: "def f(n):\n", line: 1, column: 1},
		{name: "unterminated string", lang: "python", src: "x = \"abc\n", line: 1, column: 5},
		{name: "unterminated block comment", lang: "javascript", src: "let a = 1;\n/* open\n", line: 2, column: 1},
	}
	for _, tc := range cases {
		_, err := tr.Translate(tc.src, mustProfile(t, r, tc.lang))
		var pe *apperrors.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected ParseError, got %v", tc.name, err)
		}
		if pe.Line != tc.line || pe.Column != tc.column {
			t.Fatalf("%s: got line %d column %d", tc.name, pe.Line, pe.Column)
		}
		if pe.StatusCode != 422 {
			t.Fatalf("%s: expected 422, got %d", tc.name, pe.StatusCode)
		}
	}
}

func TestScanFindsMemoizationAndEarlyReturn(t *testing.T) {
	tr, r := setup(t)
	src := "@lru_cache(maxsize=None)\n" +
		"def fib(n):\n" +
		"    if n < 2:\n" +
		"        return n\n" +
		"    return fib(n - 1) + fib(n - 2)\n"

	s, err := tr.Scan(src, mustProfile(t, r, "python"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	fn := s.Functions[0]
	if !fn.Memoized || !fn.HasEarlyReturn || !fn.IsRecursive {
		t.Fatalf("unexpected descriptor %+v", fn)
	}
	if fn.StartLine != 2 || fn.EndLine != 5 || fn.ReturnCount != 2 {
		t.Fatalf("unexpected span %+v", fn)
	}
}

func TestScanTracksDivisionGuards(t *testing.T) {
	tr, r := setup(t)
	src := "fn safe_div(a: i32, b: i32) -> i32 {\n" +
		"    if b == 0 {\n" +
		"        return 0;\n" +
		"    }\n" +
		"    a / b // divide\n" +
		"}\n"

	s, err := tr.Scan(src, mustProfile(t, r, "rust"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	fn := s.Functions[0]
	if !fn.HasDivision || !fn.GuardsDivision || fn.ParameterCount != 2 {
		t.Fatalf("unexpected descriptor %+v", fn)
	}
	if fn.StartLine != 1 || fn.EndLine != 6 {
		t.Fatalf("unexpected span %d-%d", fn.StartLine, fn.EndLine)
	}
}

func TestNestedSideEffectsTaintOuterFunction(t *testing.T) {
	tr, r := setup(t)
	src := "function outer() {\n  function inner() {\n    console.log(1);\n  }\n  return inner;\n}\n"

	s, err := tr.Scan(src, mustProfile(t, r, "javascript"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(s.Functions) != 2 {
		t.Fatalf("expected two functions, got %+v", s.Functions)
	}
	for _, fn := range s.Functions {
		if fn.Pure() {
			t.Fatalf("%s should carry the side effect", fn.Name)
		}
	}
}

func TestCheckDelimiters(t *testing.T) {
	_, r := setup(t)
	syn := r.Target().Syntax

	if err := CheckDelimiters("fun f() {\n    \"}\"\n}\n", syn); err != nil {
		t.Fatalf("balanced text rejected: %v", err)
	}
	if err := CheckDelimiters("fun f() {\n", syn); err == nil {
		t.Fatalf("expected unbalanced error")
	}
}

func TestGoThreeClauseLoopsNest(t *testing.T) {
	tr, r := setup(t)
	src := "func f(n int) int {\n" +
		"\ts := 0\n" +
		"\tfor i := 0; i < n; i++ {\n" +
		"\t\tfor j := 0; j < n; j++ {\n" +
		"\t\t\ts += i * j\n" +
		"\t\t}\n" +
		"\t}\n" +
		"\treturn s\n" +
		"}\n"

	out := translate(t, tr, mustProfile(t, r, "go"), src)
	fn := out.Summary.Functions[0]
	if fn.LoopCount != 2 || fn.MaxLoopDepth != 2 || fn.NestingDepth != 2 {
		t.Fatalf("unexpected descriptor %+v", fn)
	}
	if got := analyzer.FunctionBigO(fn); got != "O(n^2)" {
		t.Fatalf("FunctionBigO = %s, want O(n^2)", got)
	}
	if fn.StartLine != 1 || fn.EndLine != 9 {
		t.Fatalf("unexpected span %d-%d", fn.StartLine, fn.EndLine)
	}
	for _, want := range []string{"\tfor i in 0..n {", "\t\tfor j in 0..n {"} {
		if !strings.Contains(out.Text, want) {
			t.Fatalf("missing %q in:\n%s", want, out.Text)
		}
	}
}

func TestGoIfWithInitStatement(t *testing.T) {
	tr, r := setup(t)
	src := "func parity(n int) int {\n" +
		"\tif v := n % 2; v == 0 { return 1 }\n" +
		"\treturn 0\n" +
		"}\n"

	out := translate(t, tr, mustProfile(t, r, "go"), src)
	fn := out.Summary.Functions[0]
	if fn.ConditionalCount != 1 || fn.NestingDepth != 1 || !fn.HasEarlyReturn {
		t.Fatalf("unexpected descriptor %+v", fn)
	}
	if !fn.HasDivision || !fn.GuardsDivision {
		t.Fatalf("modulo and its guard not seen: %+v", fn)
	}
	if !strings.Contains(out.Text, "\tlet v = n % 2; if v == 0 { return 1 }") {
		t.Fatalf("init statement not hoisted:\n%s", out.Text)
	}
}

func TestJavaScriptExpressionArrow(t *testing.T) {
	tr, r := setup(t)
	src := "const f = (n) => n <= 1 ? n : f(n-1) + f(n-2);\n"

	out := translate(t, tr, mustProfile(t, r, "javascript"), src)
	if out.Summary.FunctionCount != 1 {
		t.Fatalf("expected one function, got %+v", out.Summary.Functions)
	}
	fn := out.Summary.Functions[0]
	if fn.Name != "f" || fn.ParameterCount != 1 || fn.SelfCallCount != 2 || !fn.IsRecursive {
		t.Fatalf("unexpected descriptor %+v", fn)
	}
	if fn.ConditionalCount != 1 || fn.StartLine != 1 || fn.EndLine != 1 {
		t.Fatalf("unexpected body facts %+v", fn)
	}
	if got := analyzer.UnitBigO(out.Summary); got != analyzer.ClassExponential {
		t.Fatalf("UnitBigO = %s", got)
	}
	want := "fun f(n) { if n <= 1 { n } else { f(n-1) + f(n-2) } }"
	if !strings.Contains(out.Text, want) {
		t.Fatalf("unexpected translation:\n%s\nwant line %q", out.Text, want)
	}
	if err := CheckDelimiters(out.Text, r.Target().Syntax); err != nil {
		t.Fatalf("translation does not balance: %v", err)
	}
}

func TestJavaScriptSingleParamArrow(t *testing.T) {
	tr, r := setup(t)
	out := translate(t, tr, mustProfile(t, r, "javascript"), "const double = x => x * 2;\n")

	if out.Summary.FunctionCount != 1 || out.Summary.Functions[0].Name != "double" {
		t.Fatalf("unexpected functions %+v", out.Summary.Functions)
	}
	if !strings.Contains(out.Text, "fun double(x) { x * 2 }") {
		t.Fatalf("unexpected translation:\n%s", out.Text)
	}
}

func TestPrototypeIsNotAFunction(t *testing.T) {
	tr, r := setup(t)
	s, err := tr.Scan("int add(int a, int b);\n", mustProfile(t, r, "c"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if s.FunctionCount != 0 {
		t.Fatalf("prototype counted as function: %+v", s.Functions)
	}
}

func TestBracelessBodiesGetBlocks(t *testing.T) {
	tr, r := setup(t)
	cases := []struct {
		lang string
		src  string
		want string
	}{
		{"c", "int safe(int a, int b)\n{\n    if (b == 0) return 0;\n    return a / b;\n}\n", "    if b == 0 { return 0; }"},
		{"javascript", "function safe(a, b) {\n  if (b === 0) return 0;\n  return a / b;\n}\n", "  if b == 0 { return 0; }"},
		{"javascript", "function spin(n) {\n  while (n > 0) n--;\n  if (n) {\n    n = 1;\n  } else return n;\n}\n", "  } else { return n; }"},
		{"c", "void spin(int n)\n{\n    while (n > 0) n--;\n}\n", "    while n > 0 { n--; }"},
	}
	for _, tc := range cases {
		out := translate(t, tr, mustProfile(t, r, tc.lang), tc.src)
		if !strings.Contains(out.Text, tc.want) {
			t.Fatalf("%s: missing %q in:\n%s", tc.lang, tc.want, out.Text)
		}
		if out.Summary.UnmappedConstructs != 0 {
			t.Fatalf("%s: unexpected notes %+v", tc.lang, out.Notes)
		}
	}
}

func TestBracelessHeadersAreMarked(t *testing.T) {
	tr, r := setup(t)
	cases := []struct {
		lang string
		src  string
		line int
	}{
		{"c", "int sum(int n)\n{\n    int t = 0;\n    for (int i = 0; i < n; i++) t += i;\n    return t;\n}\n", 4},
		{"javascript", "function f(x) {\n  if (x > 1)\n    return 1;\n  return 0;\n}\n", 2},
	}
	for _, tc := range cases {
		out := translate(t, tr, mustProfile(t, r, tc.lang), tc.src)
		if len(out.Notes) != 1 || out.Notes[0].Kind != noteBlock || out.Notes[0].Line != tc.line {
			t.Fatalf("%s: unexpected notes %+v", tc.lang, out.Notes)
		}
		if !strings.Contains(out.Text, unmappedMark+noteBlock) {
			t.Fatalf("%s: marker missing:\n%s", tc.lang, out.Text)
		}
	}
}
