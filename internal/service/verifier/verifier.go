package verifier

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/analyzer"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/translator"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

const (
	GuaranteeMemorySafety = "memory safety guaranteed"
	GuaranteeNoUB         = "no undefined behavior"
	GuaranteeDivision     = "division-by-zero handled safely"
	GuaranteePure         = "pure functional code"
)

// Verifier checks translated target text.
type Verifier struct {
	target *domain.Profile
	logger *zap.Logger
}

func New(target *domain.Profile, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{target: target, logger: logger}
}

// Verify reports guarantees and potential issues for text, whose structure
// is described by summary.
func (v *Verifier) Verify(text string, summary domain.StructuralSummary) domain.VerificationStatus {
	score := analyzer.ProvabilityOf(summary)
	verified := score >= constants.Thresholds.HighProvability

	status := domain.VerificationStatus{
		Verified:         verified,
		ProofScore:       score,
		SafetyGuarantees: []string{},
		PotentialIssues:  []string{},
	}

	if verified {
		status.SafetyGuarantees = append(status.SafetyGuarantees, GuaranteeMemorySafety, GuaranteeNoUB)
		if divisionGuarded(summary.Functions) {
			status.SafetyGuarantees = append(status.SafetyGuarantees, GuaranteeDivision)
		}
	}
	if pure, total := analyzer.PurityCounts(summary); total > 0 && pure == total {
		status.SafetyGuarantees = append(status.SafetyGuarantees, GuaranteePure)
	}

	for _, f := range summary.Functions {
		if c := analyzer.Cognitive(f); c > constants.Thresholds.CognitiveIssue {
			status.PotentialIssues = append(status.PotentialIssues,
				fmt.Sprintf("function %s: cognitive complexity %d exceeds %d", f.Name, c, constants.Thresholds.CognitiveIssue))
		}
		if !f.Pure() {
			status.PotentialIssues = append(status.PotentialIssues, fmt.Sprintf("function %s has side effects", f.Name))
		}
	}
	if n := summary.UnmappedConstructs; n > 0 {
		status.PotentialIssues = append(status.PotentialIssues, fmt.Sprintf("%d unmapped construct(s) need manual review", n))
	}
	if v.target != nil {
		if err := translator.CheckDelimiters(text, v.target.Syntax); err != nil {
			status.PotentialIssues = append(status.PotentialIssues, "target text does not balance: "+describe(err))
		}
	}

	status.ProofDetails = fmt.Sprintf("provability %.1f/100 over %d function(s), %d guarantee(s), %d issue(s)",
		score, summary.FunctionCount, len(status.SafetyGuarantees), len(status.PotentialIssues))

	v.logger.Debug("Verified target text",
		zap.Bool("verified", verified),
		zap.Float64("score", score),
		zap.Int("issues", len(status.PotentialIssues)),
	)
	return status
}

func divisionGuarded(fns []domain.FunctionDescriptor) bool {
	divides := false
	for _, f := range fns {
		if !f.HasDivision {
			continue
		}
		divides = true
		if !f.GuardsDivision {
			return false
		}
	}
	return divides
}

func describe(err error) string {
	if appErr, ok := apperrors.As(err); ok && appErr.Details != "" {
		return appErr.Message + " (" + appErr.Details + ")"
	}
	return err.Error()
}
