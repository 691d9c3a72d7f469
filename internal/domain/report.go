package domain

// AnalysisType selects how much of the analyzer bank /analyze runs.
type AnalysisType string

const (
	AnalysisComplexity AnalysisType = "complexity"
	AnalysisAll        AnalysisType = "all"
)

func (t AnalysisType) Valid() bool {
	return t == AnalysisComplexity || t == AnalysisAll
}

// AnalysisReport is the /analyze response. The optional sections are only
// present for AnalysisAll.
type AnalysisReport struct {
	Language          string                 `json:"language"`
	Cyclomatic        int                    `json:"cyclomatic_complexity"`
	Cognitive         int                    `json:"cognitive_complexity"`
	LinesOfCode       int                    `json:"lines_of_code"`
	BigO              string                 `json:"estimated_big_o"`
	BigONote          string                 `json:"big_o_note"`
	Hotspots          []string               `json:"hotspots"`
	Provability       *ProvabilityScore      `json:"provability,omitempty"`
	Quality           *QualityScore          `json:"quality_score,omitempty"`
	Performance       *PerformancePrediction `json:"performance_prediction,omitempty"`
	DegradedAnalyzers []AnalyzerName         `json:"degraded_analyzers,omitempty"`
}

// VerifyReport is the /verify response.
type VerifyReport struct {
	Verified         bool     `json:"verified"`
	Score            float64  `json:"score"`
	SafetyGuarantees []string `json:"safety_guarantees"`
	PotentialIssues  []string `json:"potential_issues"`
	ProofDetails     string   `json:"proof_details"`
}
