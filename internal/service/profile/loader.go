package profile

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
)

type fileSpec struct {
	Target   string        `yaml:"target"`
	Profiles []profileSpec `yaml:"profiles"`
}

type profileSpec struct {
	Language        string          `yaml:"language"`
	Identity        bool            `yaml:"identity"`
	Extensions      []string        `yaml:"extensions"`
	BaselineCost    float64         `yaml:"baseline_cost"`
	AppendEntryCall bool            `yaml:"append_entry_call"`
	Performance     performanceSpec `yaml:"performance"`
	Syntax          syntaxSpec      `yaml:"syntax"`
	Detect          []detectSpec    `yaml:"detect"`
	Rules           []ruleSpec      `yaml:"rules"`
	Unsupported     []string        `yaml:"unsupported"`
}

type performanceSpec struct {
	MemoryBase          float64 `yaml:"memory_base"`
	MemoryPerLine       float64 `yaml:"memory_per_line"`
	MemoryPerFunction   float64 `yaml:"memory_per_function"`
	BinaryBaseKB        float64 `yaml:"binary_base_kb"`
	BinaryPerLineKB     float64 `yaml:"binary_per_line_kb"`
	BinaryPerFunctionKB float64 `yaml:"binary_per_function_kb"`
	CompileBaseSec      float64 `yaml:"compile_base_sec"`
	CompilePerLineSec   float64 `yaml:"compile_per_line_sec"`
	CompilePerFuncSec   float64 `yaml:"compile_per_function_sec"`
}

type syntaxSpec struct {
	BlockStyle      string   `yaml:"block_style"`
	LineComments    []string `yaml:"line_comments"`
	BlockComment    []string `yaml:"block_comment"`
	Quotes          []string `yaml:"quotes"`
	MultilineQuotes []string `yaml:"multiline_quotes"`
	CharLiterals    bool     `yaml:"char_literals"`
	Functions       []string `yaml:"functions"`
	ExpressionFuncs []string `yaml:"expression_functions"`
	Loop            string   `yaml:"loop"`
	Conditional     string   `yaml:"conditional"`
	Branch          string   `yaml:"branch"`
	Return          string   `yaml:"return"`
	BlockKeywords   []string `yaml:"block_keywords"`
	SideEffects     []string `yaml:"side_effects"`
	GlobalMutation  []string `yaml:"global_mutation"`
	Memoization     []string `yaml:"memoization"`
}

type detectSpec struct {
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`
	Regex   bool    `yaml:"regex"`
}

type ruleSpec struct {
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
	Until   string `yaml:"until"`
}

// parse decodes and compiles a profile document.
func parse(data []byte) (string, []*domain.Profile, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return "", nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	if strings.TrimSpace(spec.Target) == "" {
		return "", nil, fmt.Errorf("profiles: target language is required")
	}
	if len(spec.Profiles) == 0 {
		return "", nil, fmt.Errorf("profiles: no profiles declared")
	}

	profiles := make([]*domain.Profile, 0, len(spec.Profiles))
	for i, ps := range spec.Profiles {
		p, err := compileProfile(ps)
		if err != nil {
			return "", nil, fmt.Errorf("profile %d (%s): %w", i, ps.Language, err)
		}
		profiles = append(profiles, p)
	}
	return strings.ToLower(strings.TrimSpace(spec.Target)), profiles, nil
}

func compileProfile(ps profileSpec) (*domain.Profile, error) {
	lang := strings.ToLower(strings.TrimSpace(ps.Language))
	if lang == "" {
		return nil, fmt.Errorf("language is required")
	}

	syntax, err := compileSyntax(ps.Syntax)
	if err != nil {
		return nil, fmt.Errorf("syntax: %w", err)
	}

	p := &domain.Profile{
		Language:        lang,
		Identity:        ps.Identity,
		Extensions:      normalizeExtensions(ps.Extensions),
		Syntax:          syntax,
		BaselineCost:    ps.BaselineCost,
		AppendEntryCall: ps.AppendEntryCall,
		Performance: domain.PerformanceModel{
			MemoryBase:          ps.Performance.MemoryBase,
			MemoryPerLine:       ps.Performance.MemoryPerLine,
			MemoryPerFunction:   ps.Performance.MemoryPerFunction,
			BinaryBaseKB:        ps.Performance.BinaryBaseKB,
			BinaryPerLineKB:     ps.Performance.BinaryPerLineKB,
			BinaryPerFunctionKB: ps.Performance.BinaryPerFunctionKB,
			CompileBaseSec:      ps.Performance.CompileBaseSec,
			CompilePerLineSec:   ps.Performance.CompilePerLineSec,
			CompilePerFuncSec:   ps.Performance.CompilePerFuncSec,
		},
	}
	if p.BaselineCost <= 0 {
		return nil, fmt.Errorf("baseline_cost must be positive")
	}

	// the classifier only scores source profiles
	if ps.Identity && len(ps.Detect) > 0 {
		return nil, fmt.Errorf("identity profile must not declare detect patterns")
	}
	for i, d := range ps.Detect {
		if d.Pattern == "" {
			return nil, fmt.Errorf("detect %d: empty pattern", i)
		}
		dp := domain.DetectionPattern{Signature: d.Pattern, Weight: d.Weight}
		if d.Regex {
			re, err := regexp.Compile(d.Pattern)
			if err != nil {
				return nil, fmt.Errorf("detect %d: %w", i, err)
			}
			dp.Matcher = re
		}
		p.Detection = append(p.Detection, dp)
	}

	if ps.Identity && len(ps.Rules) > 0 {
		return nil, fmt.Errorf("identity profile must not declare rules")
	}
	for i, r := range ps.Rules {
		kind := domain.RuleKind(strings.ToLower(r.Kind))
		if !kind.Valid() {
			return nil, fmt.Errorf("rule %d: unknown kind %q", i, r.Kind)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rule := domain.Rule{Kind: kind, Pattern: re, Replacement: r.Replace}
		if r.Until != "" {
			if kind != domain.RuleDirective {
				return nil, fmt.Errorf("rule %d: until is only valid on directive rules", i)
			}
			until, err := regexp.Compile(r.Until)
			if err != nil {
				return nil, fmt.Errorf("rule %d until: %w", i, err)
			}
			rule.Until = until
		}
		p.Rules = append(p.Rules, rule)
	}

	for i, u := range ps.Unsupported {
		re, err := regexp.Compile(u)
		if err != nil {
			return nil, fmt.Errorf("unsupported %d: %w", i, err)
		}
		p.Unsupported = append(p.Unsupported, re)
	}

	return p, nil
}

func compileSyntax(s syntaxSpec) (domain.Syntax, error) {
	out := domain.Syntax{
		LineComments:    s.LineComments,
		Quotes:          s.Quotes,
		MultilineQuotes: s.MultilineQuotes,
		CharLiterals:    s.CharLiterals,
		BlockKeywords:   s.BlockKeywords,
		SideEffects:     s.SideEffects,
		GlobalMutation:  s.GlobalMutation,
		Memoization:     s.Memoization,
	}

	switch domain.BlockStyle(strings.ToLower(s.BlockStyle)) {
	case domain.BlockBraces, "":
		out.BlockStyle = domain.BlockBraces
	case domain.BlockIndent:
		out.BlockStyle = domain.BlockIndent
		if len(s.BlockKeywords) == 0 {
			return out, fmt.Errorf("indent style requires block_keywords")
		}
	default:
		return out, fmt.Errorf("unknown block_style %q", s.BlockStyle)
	}

	switch len(s.BlockComment) {
	case 0:
	case 2:
		out.BlockCommentStart, out.BlockCommentEnd = s.BlockComment[0], s.BlockComment[1]
	default:
		return out, fmt.Errorf("block_comment needs a start and an end marker")
	}

	if len(s.Functions) == 0 {
		return out, fmt.Errorf("at least one function pattern is required")
	}
	for i, f := range s.Functions {
		re, err := regexp.Compile(f)
		if err != nil {
			return out, fmt.Errorf("function %d: %w", i, err)
		}
		if re.NumSubexp() < 2 {
			return out, fmt.Errorf("function %d: pattern must capture name and parameters", i)
		}
		out.Functions = append(out.Functions, re)
	}
	for i, f := range s.ExpressionFuncs {
		re, err := regexp.Compile(f)
		if err != nil {
			return out, fmt.Errorf("expression function %d: %w", i, err)
		}
		if re.NumSubexp() < 2 {
			return out, fmt.Errorf("expression function %d: pattern must capture name and parameters", i)
		}
		out.ExpressionBodies = append(out.ExpressionBodies, re)
	}

	var err error
	if out.Loop, err = compileRequired("loop", s.Loop); err != nil {
		return out, err
	}
	if out.Conditional, err = compileRequired("conditional", s.Conditional); err != nil {
		return out, err
	}
	if out.Return, err = compileRequired("return", s.Return); err != nil {
		return out, err
	}
	if s.Branch != "" {
		if out.Branch, err = regexp.Compile(s.Branch); err != nil {
			return out, fmt.Errorf("branch: %w", err)
		}
	}
	return out, nil
}

func compileRequired(name, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%s pattern is required", name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return re, nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
