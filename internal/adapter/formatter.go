package adapter

import (
	"fmt"
	"strings"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

const noteWidth = 60

// ResultFormatter renders pipeline results as plain text for the CLI.
type ResultFormatter struct{}

func NewResultFormatter() *ResultFormatter {
	return &ResultFormatter{}
}

type translationView struct {
	Code         string
	ID           string
	Language     string
	Confidence   float64
	Source       domain.ClassificationSource
	Complexity   *domain.ComplexityMetrics
	Provability  string
	Quality      domain.QualityScore
	Performance  domain.PerformancePrediction
	Verification *domain.VerificationStatus
	Notes        []domain.TranslationNote
	Degraded     []domain.AnalyzerName
	Suggestions  []string
}

// FormatTranslation prints the translated code followed by its report.
func (f *ResultFormatter) FormatTranslation(res *domain.TranslationResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil translation result")
	}

	view := translationView{
		Code:         strings.TrimRight(res.RuchyCode, "\n"),
		ID:           res.ID,
		Language:     res.SourceLanguage,
		Confidence:   res.Classification.Confidence,
		Source:       res.Classification.Source,
		Complexity:   res.ComplexityMetrics,
		Provability:  "unavailable",
		Quality:      res.QualityScore,
		Performance:  res.PerformancePrediction,
		Verification: res.VerificationStatus,
		Degraded:     res.DegradedAnalyzers,
		Suggestions:  res.OptimizationSuggestions,
	}
	if res.ProvabilityScore != nil {
		view.Provability = fmt.Sprintf("%.1f", *res.ProvabilityScore)
		if res.HighProvability {
			view.Provability += " (high)"
		}
	}
	for _, n := range res.Notes {
		n.Text = util.TruncateString(n.Text, noteWidth)
		view.Notes = append(view.Notes, n)
	}

	return executeFormatterTemplate("translation", view)
}

func (f *ResultFormatter) FormatAnalysis(r *domain.AnalysisReport) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil analysis report")
	}
	return executeFormatterTemplate("analysis", r)
}

func (f *ResultFormatter) FormatVerification(r *domain.VerifyReport) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil verification report")
	}
	return executeFormatterTemplate("verification", r)
}

func (f *ResultFormatter) FormatLanguages(target string, sources []string) (string, error) {
	return executeFormatterTemplate("languages", struct {
		Target  string
		Sources []string
	}{Target: target, Sources: sources})
}

// FormatError renders err the way the HTTP envelope would describe it.
func (f *ResultFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	appErr, ok := apperrors.As(err)
	if !ok {
		return "error: " + err.Error()
	}
	msg := fmt.Sprintf("error [%s]: %s", appErr.Code, appErr.Message)
	if appErr.Details != "" {
		msg += " (" + appErr.Details + ")"
	}
	return msg
}
