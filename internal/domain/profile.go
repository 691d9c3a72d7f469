package domain

import (
	"regexp"
	"strings"
)

// RuleKind tags the construct a mapping rule rewrites.
type RuleKind string

const (
	RuleFunction    RuleKind = "function"
	RuleConditional RuleKind = "conditional"
	RuleLoop        RuleKind = "loop"
	RuleReturn      RuleKind = "return"
	RuleCall        RuleKind = "call"
	RuleDeclaration RuleKind = "declaration"
	RuleExpression  RuleKind = "expression"
	RuleDirective   RuleKind = "directive"
)

// Structural reports whether the kind rewrites statement shape rather than
// tokens inside a statement. Inline rules run first; structural rules see
// their output.
func (k RuleKind) Structural() bool {
	switch k {
	case RuleCall, RuleExpression:
		return false
	default:
		return true
	}
}

func (k RuleKind) Valid() bool {
	switch k {
	case RuleFunction, RuleConditional, RuleLoop, RuleReturn, RuleCall,
		RuleDeclaration, RuleExpression, RuleDirective:
		return true
	}
	return false
}

type BlockStyle string

const (
	BlockBraces BlockStyle = "braces"
	BlockIndent BlockStyle = "indent"
)

// DetectionPattern is one textual signature with its confidence weight.
// Matcher is nil for plain substring signatures.
type DetectionPattern struct {
	Signature string
	Weight    float64
	Matcher   *regexp.Regexp
}

func (p DetectionPattern) Found(source string) bool {
	if p.Matcher != nil {
		return p.Matcher.MatchString(source)
	}
	return strings.Contains(source, p.Signature)
}

// Rule maps one source construct onto the target language.
type Rule struct {
	Kind        RuleKind
	Pattern     *regexp.Regexp
	Replacement string
	// Until ends a dropped directive block (inclusive).
	Until *regexp.Regexp
}

type Syntax struct {
	BlockStyle        BlockStyle
	LineComments      []string
	BlockCommentStart string
	BlockCommentEnd   string
	Quotes            []string
	MultilineQuotes   []string
	CharLiterals      bool
	Functions         []*regexp.Regexp
	// ExpressionBodies match function headers followed by a bare
	// expression instead of a block, such as `const f = (n) => n * 2`.
	ExpressionBodies  []*regexp.Regexp
	Loop              *regexp.Regexp
	Conditional       *regexp.Regexp
	Branch            *regexp.Regexp
	Return            *regexp.Regexp
	BlockKeywords     []string
	SideEffects       []string
	GlobalMutation    []string
	Memoization       []string
}

// PerformanceModel holds the linear coefficients of the performance predictor.
type PerformanceModel struct {
	MemoryBase          float64
	MemoryPerLine       float64
	MemoryPerFunction   float64
	BinaryBaseKB        float64
	BinaryPerLineKB     float64
	BinaryPerFunctionKB float64
	CompileBaseSec      float64
	CompilePerLineSec   float64
	CompilePerFuncSec   float64
}

// Profile is immutable after the registry builds it.
type Profile struct {
	Language        string
	Extensions      []string
	Identity        bool
	Detection       []DetectionPattern
	Rules           []Rule
	Unsupported     []*regexp.Regexp
	Syntax          Syntax
	BaselineCost    float64
	Performance     PerformanceModel
	AppendEntryCall bool
}

// HasExtension reports whether ext (with leading dot) belongs to the profile.
func (p *Profile) HasExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range p.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
