package domain

// TranslateOptions mirrors the request body. Omitted flags default to true.
type TranslateOptions struct {
	Optimize        *bool `json:"optimize,omitempty"`
	Verify          *bool `json:"verify,omitempty"`
	IncludeAnalysis *bool `json:"include_analysis,omitempty"`
	ComplexityCheck *bool `json:"complexity_check,omitempty"`
}

func flag(v *bool) bool {
	return v == nil || *v
}

func (o *TranslateOptions) OptimizeEnabled() bool {
	return o == nil || flag(o.Optimize)
}

func (o *TranslateOptions) VerifyEnabled() bool {
	return o == nil || flag(o.Verify)
}

func (o *TranslateOptions) AnalysisEnabled() bool {
	return o == nil || flag(o.IncludeAnalysis)
}

func (o *TranslateOptions) ComplexityEnabled() bool {
	return o == nil || flag(o.ComplexityCheck)
}

// TranslateRequest is the input of a full pipeline run.
type TranslateRequest struct {
	ID               string
	SourceCode       string
	DeclaredLanguage string
	TargetLanguage   string
	Filename         string
	Options          *TranslateOptions
}

// ComplexityMetrics is the response projection of a ComplexityReport.
type ComplexityMetrics struct {
	Cyclomatic  int    `json:"cyclomatic_complexity"`
	Cognitive   int    `json:"cognitive_complexity"`
	LinesOfCode int    `json:"lines_of_code"`
	BigO        string `json:"estimated_big_o"`
	BigONote    string `json:"big_o_note"`
}

// TranslationResult is assembled once and never mutated after sending.
type TranslationResult struct {
	ID                      string                `json:"id"`
	RuchyCode               string                `json:"ruchy_code"`
	SourceLanguage          string                `json:"source_language"`
	Classification          ClassificationResult  `json:"classification"`
	StructuralSummary       *StructuralSummary    `json:"ast_analysis,omitempty"`
	ProvabilityScore        *float64              `json:"provability_score"`
	HighProvability         bool                  `json:"high_provability"`
	QualityScore            QualityScore          `json:"quality_score"`
	PerformancePrediction   PerformancePrediction `json:"performance_prediction"`
	VerificationStatus      *VerificationStatus   `json:"verification_status,omitempty"`
	OptimizationSuggestions []string              `json:"optimization_suggestions"`
	ComplexityMetrics       *ComplexityMetrics    `json:"complexity_metrics,omitempty"`
	DegradedAnalyzers       []AnalyzerName        `json:"degraded_analyzers"`
	Notes                   []TranslationNote     `json:"translation_notes,omitempty"`
	FinalState              PipelineState         `json:"-"`
}
