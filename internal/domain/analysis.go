package domain

// ClassificationSource says how the input language was decided.
type ClassificationSource string

const (
	SourceDeclared  ClassificationSource = "declared"
	SourceExtension ClassificationSource = "extension"
	SourcePatterns  ClassificationSource = "patterns"
	SourceFallback  ClassificationSource = "fallback"
)

type LanguageScore struct {
	Language string  `json:"language"`
	Score    float64 `json:"score"`
}

type ClassificationResult struct {
	Language    string               `json:"language"`
	Confidence  float64              `json:"confidence"`
	HintHonored bool                 `json:"hint_honored"`
	Source      ClassificationSource `json:"source"`
	Scores      []LanguageScore      `json:"scores,omitempty"`
}

type FunctionComplexity struct {
	Name        string `json:"name"`
	Cyclomatic  int    `json:"cyclomatic_complexity"`
	Cognitive   int    `json:"cognitive_complexity"`
	BigO        string `json:"estimated_big_o"`
	Lines       int    `json:"lines"`
	NestingDeep int    `json:"nesting_depth"`
}

type ComplexityReport struct {
	Cyclomatic  int                  `json:"cyclomatic_complexity"`
	Cognitive   int                  `json:"cognitive_complexity"`
	LinesOfCode int                  `json:"lines_of_code"`
	BigO        string               `json:"estimated_big_o"`
	BigONote    string               `json:"big_o_note"`
	Functions   []FunctionComplexity `json:"functions,omitempty"`
	Hotspots    []string             `json:"hotspots"`
	Degraded    bool                 `json:"degraded,omitempty"`
}

type ProvabilityScore struct {
	Score           float64 `json:"score"`
	HighProvability bool    `json:"high_provability"`
	PureFunctions   int     `json:"pure_functions"`
	TotalFunctions  int     `json:"total_functions"`
	Degraded        bool    `json:"degraded,omitempty"`
}

type QualityComponents struct {
	Correctness     float64 `json:"correctness"`
	Performance     float64 `json:"performance"`
	Maintainability float64 `json:"maintainability"`
	Safety          float64 `json:"safety"`
	Idiomaticity    float64 `json:"idiomaticity"`
}

type QualityScore struct {
	Overall    float64           `json:"overall"`
	Grade      string            `json:"grade"`
	Components QualityComponents `json:"components"`
	Degraded   bool              `json:"degraded,omitempty"`
}

type PerformancePrediction struct {
	EstimatedSpeedup        float64 `json:"estimated_speedup"`
	MemoryUsageChange       float64 `json:"memory_usage_change"`
	BinarySizeEstimateKB    float64 `json:"binary_size_estimate"`
	CompilationTimeEstimate float64 `json:"compilation_time_estimate"`
	Degraded                bool    `json:"degraded,omitempty"`
}

type VerificationStatus struct {
	Verified         bool     `json:"verified"`
	ProofScore       float64  `json:"proof_score"`
	SafetyGuarantees []string `json:"safety_guarantees"`
	PotentialIssues  []string `json:"potential_issues"`
	ProofDetails     string   `json:"proof_details"`
}

// AnalyzerName identifies one member of the analyzer bank.
type AnalyzerName string

const (
	AnalyzerComplexity  AnalyzerName = "complexity"
	AnalyzerProvability AnalyzerName = "provability"
	AnalyzerQuality     AnalyzerName = "quality"
	AnalyzerPerformance AnalyzerName = "performance"
)

// AnalysisBundle is the merged output of the analyzer bank. Each analyzer
// owns exactly one field.
type AnalysisBundle struct {
	Complexity  ComplexityReport
	Provability ProvabilityScore
	Quality     QualityScore
	Performance PerformancePrediction
	Degraded    []AnalyzerName
}

func (b AnalysisBundle) IsDegraded(name AnalyzerName) bool {
	for _, d := range b.Degraded {
		if d == name {
			return true
		}
	}
	return false
}
