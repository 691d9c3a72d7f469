package analyzer

import (
	"context"
	"fmt"

	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
)

// Complexity computes the complexity report of a unit.
func Complexity(s domain.StructuralSummary) domain.ComplexityReport {
	report := domain.ComplexityReport{
		Cyclomatic:  UnitCyclomatic(s),
		Cognitive:   UnitCognitive(s),
		LinesOfCode: s.LineCount,
		BigO:        UnitBigO(s),
		BigONote:    constants.BigONote,
		Functions:   make([]domain.FunctionComplexity, 0, len(s.Functions)),
		Hotspots:    []string{},
	}

	th := constants.Thresholds
	for _, f := range s.Functions {
		fc := domain.FunctionComplexity{
			Name:        f.Name,
			Cyclomatic:  Cyclomatic(f),
			Cognitive:   Cognitive(f),
			BigO:        FunctionBigO(f),
			Lines:       f.Lines(),
			NestingDeep: f.NestingDepth,
		}
		report.Functions = append(report.Functions, fc)

		if fc.Cognitive > th.CognitiveIssue {
			report.Hotspots = append(report.Hotspots, fmt.Sprintf("function %s: cognitive complexity %d exceeds %d", f.Name, fc.Cognitive, th.CognitiveIssue))
		}
		if f.NestingDepth > th.DeepNesting {
			report.Hotspots = append(report.Hotspots, fmt.Sprintf("function %s: nesting depth %d exceeds %d", f.Name, f.NestingDepth, th.DeepNesting))
		}
		if fc.Lines > th.LongFunctionLines {
			report.Hotspots = append(report.Hotspots, fmt.Sprintf("function %s: %d lines exceeds %d", f.Name, fc.Lines, th.LongFunctionLines))
		}
		if fc.BigO == ClassExponential {
			report.Hotspots = append(report.Hotspots, fmt.Sprintf("function %s: exponential recursion without memoization", f.Name))
		}
	}
	return report
}

// Provability scores the share of pure functions.
func Provability(s domain.StructuralSummary) domain.ProvabilityScore {
	pure, total := PurityCounts(s)
	score := ProvabilityOf(s)
	return domain.ProvabilityScore{
		Score:           score,
		HighProvability: score >= constants.Thresholds.HighProvability,
		PureFunctions:   pure,
		TotalFunctions:  total,
	}
}

func grade(overall float64) string {
	for _, b := range constants.GradeBands {
		if overall >= b.Min {
			return b.Grade
		}
	}
	return constants.Degraded.Grade
}

// Quality combines five weighted components into an overall score.
func Quality(s domain.StructuralSummary) domain.QualityScore {
	qc := constants.QualityCoefficients
	w := constants.QualityWeights

	correctness := qc.CorrectnessBase - qc.CorrectnessPerUnmapped*float64(s.UnmappedConstructs)
	if correctness < qc.CorrectnessFloor {
		correctness = qc.CorrectnessFloor
	}

	maintainability := qc.MaintainabilityCeiling
	if avg, ok := AverageCognitive(s); ok && avg > 0 {
		maintainability = util.Clamp(constants.Thresholds.MaintainabilityScale/avg, qc.MaintainabilityFloor, qc.MaintainabilityCeiling)
	}

	safety := ProvabilityOf(s) / 100
	if safety < qc.SafetyFloor {
		safety = qc.SafetyFloor
	}

	idiomaticity := qc.IdiomaticTranslated
	if s.Identity {
		idiomaticity = qc.IdiomaticIdentity
	}

	components := domain.QualityComponents{
		Correctness:     util.Round(correctness, 3),
		Performance:     ClassFactor(UnitBigO(s)),
		Maintainability: util.Round(maintainability, 3),
		Safety:          util.Round(safety, 3),
		Idiomaticity:    idiomaticity,
	}
	overall := components.Correctness*w.Correctness +
		components.Performance*w.Performance +
		components.Maintainability*w.Maintainability +
		components.Safety*w.Safety +
		components.Idiomaticity*w.Idiomaticity
	overall = util.Round(util.Clamp(overall, 0, 1), 3)

	return domain.QualityScore{
		Overall:    overall,
		Grade:      grade(overall),
		Components: components,
	}
}

// Performance predicts target-language performance relative to the source.
// A nil source profile is treated as the target itself.
func Performance(s domain.StructuralSummary, source, target *domain.Profile) domain.PerformancePrediction {
	baseline, targetCost := 1.0, 1.0
	var m domain.PerformanceModel
	if source != nil {
		baseline = source.BaselineCost
		m = source.Performance
	}
	if target != nil && target.BaselineCost > 0 {
		targetCost = target.BaselineCost
		if source == nil {
			m = target.Performance
		}
	}

	lines := float64(s.LineCount)
	funcs := float64(s.FunctionCount)
	return domain.PerformancePrediction{
		EstimatedSpeedup:        util.Round(ClassFactor(UnitBigO(s))*baseline/targetCost, 3),
		MemoryUsageChange:       util.Round(m.MemoryBase+m.MemoryPerLine*lines+m.MemoryPerFunction*funcs, 3),
		BinarySizeEstimateKB:    util.Round(m.BinaryBaseKB+m.BinaryPerLineKB*lines+m.BinaryPerFunctionKB*funcs, 2),
		CompilationTimeEstimate: util.Round(m.CompileBaseSec+m.CompilePerLineSec*lines+m.CompilePerFuncSec*funcs, 3),
	}
}

// Input is what every analyzer of the bank reads.
type Input struct {
	Summary domain.StructuralSummary
	Source  *domain.Profile
	Target  *domain.Profile
}

// Contribution writes one analyzer's slot of the bundle.
type Contribution func(*domain.AnalysisBundle)

// Analyzer is one member of the bank.
type Analyzer interface {
	Name() domain.AnalyzerName
	Analyze(ctx context.Context, in Input) (Contribution, error)
	// Default is the labelled neutral value used when Analyze fails or times out.
	Default(in Input) Contribution
}

type complexityAnalyzer struct{}

func (complexityAnalyzer) Name() domain.AnalyzerName { return domain.AnalyzerComplexity }

func (complexityAnalyzer) Analyze(_ context.Context, in Input) (Contribution, error) {
	r := Complexity(in.Summary)
	return func(b *domain.AnalysisBundle) { b.Complexity = r }, nil
}

func (complexityAnalyzer) Default(in Input) Contribution {
	r := domain.ComplexityReport{
		LinesOfCode: in.Summary.LineCount,
		BigO:        constants.Degraded.BigO,
		BigONote:    constants.BigONote,
		Hotspots:    []string{},
		Degraded:    true,
	}
	return func(b *domain.AnalysisBundle) { b.Complexity = r }
}

type provabilityAnalyzer struct{}

func (provabilityAnalyzer) Name() domain.AnalyzerName { return domain.AnalyzerProvability }

func (provabilityAnalyzer) Analyze(_ context.Context, in Input) (Contribution, error) {
	r := Provability(in.Summary)
	return func(b *domain.AnalysisBundle) { b.Provability = r }, nil
}

func (provabilityAnalyzer) Default(in Input) Contribution {
	r := domain.ProvabilityScore{TotalFunctions: in.Summary.FunctionCount, Degraded: true}
	return func(b *domain.AnalysisBundle) { b.Provability = r }
}

type qualityAnalyzer struct{}

func (qualityAnalyzer) Name() domain.AnalyzerName { return domain.AnalyzerQuality }

func (qualityAnalyzer) Analyze(_ context.Context, in Input) (Contribution, error) {
	r := Quality(in.Summary)
	return func(b *domain.AnalysisBundle) { b.Quality = r }, nil
}

func (qualityAnalyzer) Default(Input) Contribution {
	r := domain.QualityScore{
		Overall:  constants.Degraded.QualityScore,
		Grade:    constants.Degraded.Grade,
		Degraded: true,
	}
	return func(b *domain.AnalysisBundle) { b.Quality = r }
}

type performanceAnalyzer struct{}

func (performanceAnalyzer) Name() domain.AnalyzerName { return domain.AnalyzerPerformance }

func (performanceAnalyzer) Analyze(_ context.Context, in Input) (Contribution, error) {
	r := Performance(in.Summary, in.Source, in.Target)
	return func(b *domain.AnalysisBundle) { b.Performance = r }, nil
}

func (performanceAnalyzer) Default(Input) Contribution {
	r := domain.PerformancePrediction{EstimatedSpeedup: constants.Degraded.Speedup, Degraded: true}
	return func(b *domain.AnalysisBundle) { b.Performance = r }
}

// Standard returns the four analyzers in their fixed merge order.
func Standard() []Analyzer {
	return []Analyzer{
		complexityAnalyzer{},
		provabilityAnalyzer{},
		qualityAnalyzer{},
		performanceAnalyzer{},
	}
}
