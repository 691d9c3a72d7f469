package constants

import "time"

var Service = struct {
	Name           string
	HealthName     string
	Version        string
	TargetLanguage string
}{
	Name:           "rosetta-ruchy-translator",
	HealthName:     "rosetta-ruchy-mcp",
	Version:        "1.0.0",
	TargetLanguage: "ruchy",
}

var Capabilities = []string{
	"code_translation",
	"performance_analysis",
	"formal_verification",
	"quality_assessment",
	"complexity_analysis",
	"benchmark_comparison",
}

var Thresholds = struct {
	HighProvability      float64
	CognitiveIssue       int
	DeepNesting          int
	LongFunctionLines    int
	LongUnitLines        int
	MaintainabilityScale float64
}{
	HighProvability:      90,  // verified 기준
	CognitiveIssue:       15,  // 함수당 인지 복잡도 한도
	DeepNesting:          3,   // 중첩 깊이 경고
	LongFunctionLines:    50,  // 함수 길이 경고
	LongUnitLines:        300, // 단위 전체 길이 경고
	MaintainabilityScale: 5.0,
}

var QualityWeights = struct {
	Correctness     float64
	Performance     float64
	Maintainability float64
	Safety          float64
	Idiomaticity    float64
}{
	Correctness:     0.35,
	Performance:     0.25,
	Maintainability: 0.20,
	Safety:          0.15,
	Idiomaticity:    0.05,
}

var QualityCoefficients = struct {
	CorrectnessBase        float64
	CorrectnessPerUnmapped float64
	CorrectnessFloor       float64
	MaintainabilityFloor   float64
	MaintainabilityCeiling float64
	SafetyFloor            float64
	IdiomaticIdentity      float64
	IdiomaticTranslated    float64
}{
	CorrectnessBase:        0.95,
	CorrectnessPerUnmapped: 0.05,
	CorrectnessFloor:       0.5,
	MaintainabilityFloor:   0.5,
	MaintainabilityCeiling: 1.0,
	SafetyFloor:            0.5,
	IdiomaticIdentity:      1.0,
	IdiomaticTranslated:    0.9,
}

// GradeBands is ordered from the highest band down.
var GradeBands = []struct {
	Min   float64
	Grade string
}{
	{Min: 0.95, Grade: "A+"},
	{Min: 0.90, Grade: "A"},
	{Min: 0.80, Grade: "B+"},
	{Min: 0.70, Grade: "B-"},
	{Min: 0, Grade: "C"},
}

var Degraded = struct {
	BigO         string
	QualityScore float64
	Speedup      float64
	Grade        string
}{
	BigO:         "unknown",
	QualityScore: 0.5,
	Speedup:      1.0,
	Grade:        "C",
}

var Timeouts = struct {
	Build         time.Duration
	Shutdown      time.Duration
	RedisReady    time.Duration
	PostgresReady time.Duration
	SinkWrite     time.Duration
	WSHandshake   time.Duration
	WSWrite       time.Duration
}{
	Build:         30 * time.Second,
	Shutdown:      10 * time.Second,
	RedisReady:    5 * time.Second,
	PostgresReady: 5 * time.Second,
	SinkWrite:     3 * time.Second,
	WSHandshake:   10 * time.Second,
	WSWrite:       5 * time.Second,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 3,
	ResetTimeout:     30 * time.Second,
}

var StatsKeys = struct {
	Prefix string
}{
	Prefix: "rosetta:stats",
}

const BigONote = "heuristic estimate"
