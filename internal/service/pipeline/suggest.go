package pipeline

import (
	"fmt"

	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/analyzer"
)

const wellOptimized = "Code looks well-optimized!"

// Suggest derives optimization hints from the structure of a unit.
func Suggest(s domain.StructuralSummary, notes []domain.TranslationNote) []string {
	th := constants.Thresholds
	out := []string{}

	if len(notes) > 0 {
		out = append(out, fmt.Sprintf("Review %d unmapped construct(s) left as comments in the output", len(notes)))
	}
	for _, f := range s.Functions {
		if analyzer.FunctionBigO(f) == analyzer.ClassExponential {
			out = append(out, fmt.Sprintf("Memoize %s to avoid exponential recursion", f.Name))
		}
		if c := analyzer.Cognitive(f); c > th.CognitiveIssue {
			out = append(out, fmt.Sprintf("Split %s: cognitive complexity %d exceeds %d", f.Name, c, th.CognitiveIssue))
		}
		if f.NestingDepth > th.DeepNesting {
			out = append(out, fmt.Sprintf("Flatten %s with early returns: nesting depth %d", f.Name, f.NestingDepth))
		}
		if f.Lines() > th.LongFunctionLines {
			out = append(out, fmt.Sprintf("Consider breaking %s (%d lines) into smaller functions", f.Name, f.Lines()))
		}
		if f.HasDivision && !f.GuardsDivision {
			out = append(out, fmt.Sprintf("Guard the divisor in %s against zero", f.Name))
		}
	}
	if s.LineCount > th.LongUnitLines {
		out = append(out, "Consider splitting this unit into modules")
	}
	if s.LineCount > 0 && s.CommentLines == 0 {
		out = append(out, "Add documentation comments for better maintainability")
	}

	if len(out) == 0 {
		out = append(out, wellOptimized)
	}
	return out
}
