package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
)

// Asymptotic classes produced by the estimator.
const (
	ClassConstant    = "O(1)"
	ClassLogarithmic = "O(log n)"
	ClassLinear      = "O(n)"
	ClassLinearithm  = "O(n log n)"
	ClassExponential = "O(2^n)"
)

// Cyclomatic is 1 + decision points.
func Cyclomatic(f domain.FunctionDescriptor) int {
	return 1 + f.Decisions()
}

// Cognitive weights every decision point by the nesting depth.
func Cognitive(f domain.FunctionDescriptor) int {
	return 1 + f.Decisions()*util.Max(1, f.NestingDepth)
}

func topCognitive(t domain.TopLevelFacts) int {
	return t.Decisions() * util.Max(1, t.NestingDepth)
}

// UnitCyclomatic sums decisions over functions and top-level code.
func UnitCyclomatic(s domain.StructuralSummary) int {
	total := 1 + s.TopLevel.Decisions()
	for _, f := range s.Functions {
		total += f.Decisions()
	}
	return total
}

func UnitCognitive(s domain.StructuralSummary) int {
	total := 1 + topCognitive(s.TopLevel)
	for _, f := range s.Functions {
		total += f.Decisions() * util.Max(1, f.NestingDepth)
	}
	return total
}

// AverageCognitive reports the mean per-function cognitive complexity.
// ok is false when the unit has no functions.
func AverageCognitive(s domain.StructuralSummary) (avg float64, ok bool) {
	if len(s.Functions) == 0 {
		return 0, false
	}
	sum := 0
	for _, f := range s.Functions {
		sum += Cognitive(f)
	}
	return float64(sum) / float64(len(s.Functions)), true
}

func loopClass(depth int) string {
	switch {
	case depth <= 0:
		return ClassConstant
	case depth == 1:
		return ClassLinear
	default:
		return fmt.Sprintf("O(n^%d)", depth)
	}
}

// FunctionBigO maps a descriptor onto the fixed class table.
func FunctionBigO(f domain.FunctionDescriptor) string {
	if f.IsRecursive {
		if f.Memoized {
			return ClassLinear
		}
		return ClassExponential
	}
	return loopClass(f.MaxLoopDepth)
}

// UnitBigO is the worst class across functions and top-level code.
func UnitBigO(s domain.StructuralSummary) string {
	worst := loopClass(s.TopLevel.MaxLoopDepth)
	for _, f := range s.Functions {
		if c := FunctionBigO(f); classRank(c) > classRank(worst) {
			worst = c
		}
	}
	return worst
}

func polyDegree(class string) (int, bool) {
	if !strings.HasPrefix(class, "O(n^") || !strings.HasSuffix(class, ")") {
		return 0, false
	}
	d, err := strconv.Atoi(class[len("O(n^") : len(class)-1])
	if err != nil {
		return 0, false
	}
	return d, true
}

func classRank(class string) int {
	switch class {
	case ClassConstant:
		return 0
	case ClassLogarithmic:
		return 1
	case ClassLinear:
		return 2
	case ClassLinearithm:
		return 3
	case ClassExponential:
		return 1000
	}
	if d, ok := polyDegree(class); ok {
		return 2 + d
	}
	return -1
}

// ClassFactor is the shared class table of the quality scorer and the
// performance predictor.
func ClassFactor(class string) float64 {
	switch class {
	case ClassConstant, ClassLogarithmic:
		return 1.0
	case ClassLinear:
		return 0.9
	case ClassLinearithm:
		return 0.85
	case ClassExponential:
		return 0.3
	}
	if _, ok := polyDegree(class); ok {
		return 0.6
	}
	return constants.Degraded.QualityScore
}

// PurityCounts returns the number of pure functions and the total.
func PurityCounts(s domain.StructuralSummary) (pure, total int) {
	for _, f := range s.Functions {
		if f.Pure() {
			pure++
		}
	}
	return pure, len(s.Functions)
}

// ProvabilityOf is 100 × pure / total, or 100 for a unit without functions.
func ProvabilityOf(s domain.StructuralSummary) float64 {
	pure, total := PurityCounts(s)
	if total == 0 {
		return 100
	}
	return util.Round(100*float64(pure)/float64(total), 2)
}
