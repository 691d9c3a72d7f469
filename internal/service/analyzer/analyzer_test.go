package analyzer

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
)

func fibSummary() domain.StructuralSummary {
	return domain.StructuralSummary{
		Language: "python",
		Functions: []domain.FunctionDescriptor{{
			Name:             "f",
			StartLine:        1,
			EndLine:          1,
			ParameterCount:   1,
			IsRecursive:      true,
			SelfCallCount:    2,
			ConditionalCount: 1,
			NestingDepth:     1,
			ReturnCount:      1,
		}},
		FunctionCount: 1,
		LineCount:     1,
		PhysicalLines: 1,
	}
}

func TestComplexityOfFibonacci(t *testing.T) {
	r := Complexity(fibSummary())
	if r.Cyclomatic != 2 || r.Cognitive != 2 {
		t.Fatalf("unexpected complexity %+v", r)
	}
	if r.BigO != ClassExponential || r.BigONote == "" {
		t.Fatalf("expected exponential class with note, got %q %q", r.BigO, r.BigONote)
	}
	if len(r.Hotspots) != 1 || !strings.Contains(r.Hotspots[0], "exponential recursion") {
		t.Fatalf("unexpected hotspots %v", r.Hotspots)
	}
}

func TestBigOTable(t *testing.T) {
	cases := []struct {
		fn   domain.FunctionDescriptor
		want string
	}{
		{domain.FunctionDescriptor{}, ClassConstant},
		{domain.FunctionDescriptor{MaxLoopDepth: 1}, ClassLinear},
		{domain.FunctionDescriptor{MaxLoopDepth: 2}, "O(n^2)"},
		{domain.FunctionDescriptor{MaxLoopDepth: 3}, "O(n^3)"},
		{domain.FunctionDescriptor{IsRecursive: true}, ClassExponential},
		{domain.FunctionDescriptor{IsRecursive: true, Memoized: true}, ClassLinear},
	}
	for _, tc := range cases {
		if got := FunctionBigO(tc.fn); got != tc.want {
			t.Fatalf("FunctionBigO(%+v) = %s, want %s", tc.fn, got, tc.want)
		}
	}

	s := domain.StructuralSummary{
		Functions: []domain.FunctionDescriptor{{MaxLoopDepth: 1}, {MaxLoopDepth: 3}},
		TopLevel:  domain.TopLevelFacts{MaxLoopDepth: 2},
	}
	if got := UnitBigO(s); got != "O(n^3)" {
		t.Fatalf("unit class should be the worst, got %s", got)
	}
}

func TestUnitComplexityIncludesTopLevel(t *testing.T) {
	s := domain.StructuralSummary{
		Functions: []domain.FunctionDescriptor{{LoopCount: 1, ConditionalCount: 2, NestingDepth: 2}},
		TopLevel:  domain.TopLevelFacts{ConditionalCount: 1, NestingDepth: 1},
	}
	if got := UnitCyclomatic(s); got != 5 {
		t.Fatalf("cyclomatic = %d, want 5", got)
	}
	if got := UnitCognitive(s); got != 8 {
		t.Fatalf("cognitive = %d, want 8", got)
	}
}

func TestProvability(t *testing.T) {
	if p := Provability(domain.StructuralSummary{}); p.Score != 100 || !p.HighProvability {
		t.Fatalf("empty unit should be fully provable: %+v", p)
	}

	s := domain.StructuralSummary{Functions: []domain.FunctionDescriptor{{Name: "a"}, {Name: "b"}}}
	if p := Provability(s); p.Score != 100 {
		t.Fatalf("expected 100, got %v", p.Score)
	}

	prev := ProvabilityOf(s)
	s.Functions = append(s.Functions, domain.FunctionDescriptor{Name: "c", HasSideEffects: true})
	p := Provability(s)
	if p.Score > prev || p.HighProvability || p.PureFunctions != 2 || p.TotalFunctions != 3 {
		t.Fatalf("impure function must not raise provability: %+v", p)
	}
}

func TestQualityOfFibonacci(t *testing.T) {
	q := Quality(fibSummary())
	c := q.Components
	if c.Correctness != 0.95 || c.Performance != 0.3 || c.Maintainability != 1.0 || c.Safety != 1.0 || c.Idiomaticity != 0.9 {
		t.Fatalf("unexpected components %+v", c)
	}
	if math.Abs(q.Overall-0.8025) > 0.001 || q.Grade != "B+" {
		t.Fatalf("unexpected overall %v grade %s", q.Overall, q.Grade)
	}
}

func TestQualityBounds(t *testing.T) {
	summaries := []domain.StructuralSummary{
		{},
		{Identity: true},
		{UnmappedConstructs: 40},
		{Functions: []domain.FunctionDescriptor{{ConditionalCount: 30, NestingDepth: 6, HasSideEffects: true}}},
	}
	for _, s := range summaries {
		q := Quality(s)
		if q.Overall < 0 || q.Overall > 1 {
			t.Fatalf("overall out of range: %+v", q)
		}
		for _, v := range []float64{q.Components.Correctness, q.Components.Performance, q.Components.Maintainability, q.Components.Safety, q.Components.Idiomaticity} {
			if v < 0 || v > 1 {
				t.Fatalf("component out of range: %+v", q.Components)
			}
		}
	}
	if q := Quality(domain.StructuralSummary{UnmappedConstructs: 40}); q.Components.Correctness != 0.5 {
		t.Fatalf("correctness floor not applied: %v", q.Components.Correctness)
	}
}

func TestGradeBands(t *testing.T) {
	cases := map[float64]string{0.97: "A+", 0.95: "A+", 0.92: "A", 0.85: "B+", 0.75: "B-", 0.5: "C"}
	for score, want := range cases {
		if got := grade(score); got != want {
			t.Fatalf("grade(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestPerformanceUsesSourceBaseline(t *testing.T) {
	source := &domain.Profile{
		Language:     "python",
		BaselineCost: 15,
		Performance: domain.PerformanceModel{
			MemoryBase:          -0.6,
			MemoryPerFunction:   -0.005,
			BinaryBaseKB:        50,
			BinaryPerLineKB:     0.5,
			BinaryPerFunctionKB: 1,
			CompileBaseSec:      0.1,
			CompilePerLineSec:   0.001,
			CompilePerFuncSec:   0.005,
		},
	}
	target := &domain.Profile{Language: "ruchy", Identity: true, BaselineCost: 1}

	p := Performance(fibSummary(), source, target)
	if p.EstimatedSpeedup != 4.5 {
		t.Fatalf("speedup = %v, want 4.5", p.EstimatedSpeedup)
	}
	if p.MemoryUsageChange != -0.605 || p.BinarySizeEstimateKB != 51.5 || p.CompilationTimeEstimate != 0.106 {
		t.Fatalf("unexpected estimates %+v", p)
	}
}

type fakeAnalyzer struct {
	name  domain.AnalyzerName
	delay time.Duration
	err   error
	panic bool
}

func (f fakeAnalyzer) Name() domain.AnalyzerName { return f.name }

func (f fakeAnalyzer) Analyze(ctx context.Context, _ Input) (Contribution, error) {
	if f.panic {
		panic("boom")
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return func(b *domain.AnalysisBundle) { b.Quality.Grade = "A+" }, nil
}

func (f fakeAnalyzer) Default(Input) Contribution {
	return func(b *domain.AnalysisBundle) { b.Quality.Grade = "C" }
}

func TestBankRunsStandardAnalyzers(t *testing.T) {
	bank := NewBank(time.Second, zap.NewNop())
	in := Input{Summary: fibSummary(), Target: &domain.Profile{BaselineCost: 1}}

	b := bank.Run(context.Background(), in)
	if len(b.Degraded) != 0 {
		t.Fatalf("unexpected degraded analyzers %v", b.Degraded)
	}
	if b.Complexity.BigO != ClassExponential || b.Provability.Score != 100 || b.Quality.Grade != "B+" {
		t.Fatalf("unexpected bundle %+v", b)
	}
	if b.Performance.EstimatedSpeedup != 0.3 {
		t.Fatalf("unexpected speedup %v", b.Performance.EstimatedSpeedup)
	}
}

func TestBankDegradesSlowAnalyzer(t *testing.T) {
	bank := NewBank(20*time.Millisecond, zap.NewNop(),
		fakeAnalyzer{name: domain.AnalyzerQuality, delay: 500 * time.Millisecond},
	)

	start := time.Now()
	b := bank.Run(context.Background(), Input{})
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("bank waited for the slow analyzer: %s", elapsed)
	}
	if !b.IsDegraded(domain.AnalyzerQuality) || b.Quality.Grade != "C" {
		t.Fatalf("expected degraded default, got %+v", b)
	}
}

func TestBankDegradesFailingAndPanickingAnalyzers(t *testing.T) {
	bank := NewBank(time.Second, zap.NewNop(),
		fakeAnalyzer{name: domain.AnalyzerComplexity, err: errors.New("bad input")},
		fakeAnalyzer{name: domain.AnalyzerProvability, panic: true},
		fakeAnalyzer{name: domain.AnalyzerPerformance},
	)

	b := bank.Run(context.Background(), Input{})
	if len(b.Degraded) != 2 || b.Degraded[0] != domain.AnalyzerComplexity || b.Degraded[1] != domain.AnalyzerProvability {
		t.Fatalf("unexpected degraded list %v", b.Degraded)
	}
	if b.IsDegraded(domain.AnalyzerPerformance) {
		t.Fatalf("healthy analyzer marked degraded")
	}
}

func TestStandardDefaultsAreLabelled(t *testing.T) {
	for _, a := range Standard() {
		var b domain.AnalysisBundle
		a.Default(Input{})(&b)
		switch a.Name() {
		case domain.AnalyzerComplexity:
			if !b.Complexity.Degraded || b.Complexity.BigO != "unknown" {
				t.Fatalf("complexity default %+v", b.Complexity)
			}
		case domain.AnalyzerProvability:
			if !b.Provability.Degraded {
				t.Fatalf("provability default %+v", b.Provability)
			}
		case domain.AnalyzerQuality:
			if !b.Quality.Degraded || b.Quality.Overall != 0.5 {
				t.Fatalf("quality default %+v", b.Quality)
			}
		case domain.AnalyzerPerformance:
			if !b.Performance.Degraded || b.Performance.EstimatedSpeedup != 1.0 {
				t.Fatalf("performance default %+v", b.Performance)
			}
		}
	}
}
