package translator

import (
	"regexp"
	"strings"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
)

type frameKind int

const (
	frameOther frameKind = iota
	frameFunction
	frameLoop
	frameConditional
	frameBranch
)

func (k frameKind) control() bool {
	return k == frameLoop || k == frameConditional || k == frameBranch
}

type fnState struct {
	desc     domain.FunctionDescriptor
	selfCall *regexp.Regexp
}

type frame struct {
	kind frameKind
	fn   *fnState
}

var (
	divisionPattern = regexp.MustCompile(`[\w\)\]]\s*(?:/{1,2}|%)\s*[\w\(]`)
	guardPattern    = regexp.MustCompile(`(?:==|!=)\s*0(?:\.0+)?\b|\b0(?:\.0+)?\s*(?:==|!=)`)
	mainCall        = regexp.MustCompile(`\bmain\s*\(`)
	nonParams       = map[string]bool{"self": true, "&self": true, "&mut self": true, "mut self": true, "cls": true, "void": true}
	headerKeywords  = map[string]bool{"return": true, "switch": true, "sizeof": true, "catch": true, "while": true, "for": true, "if": true}
)

// collector builds function descriptors and top-level facts from the
// block events of one unit.
type collector struct {
	syn   domain.Syntax
	stack []frame
	funcs []*fnState
	top   domain.TopLevelFacts

	prevText string
	prevLine int

	callsMain bool
}

func newCollector(syn domain.Syntax) *collector {
	return &collector{syn: syn}
}

func (c *collector) open(header string, line int) {
	kind, name, params := c.classify(header)
	if kind == frameFunction {
		c.begin(name, params, header, line)
		c.remember(header, line)
		return
	}

	c.account(header, line)
	c.stack = append(c.stack, frame{kind: kind})
	c.remember(header, line)
}

// begin records a new function and pushes its frame.
func (c *collector) begin(name, params, header string, line int) {
	fs := &fnState{
		desc: domain.FunctionDescriptor{
			Name:           name,
			StartLine:      line,
			EndLine:        line,
			ParameterCount: countParams(params),
		},
		selfCall: regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`),
	}
	if c.prevLine >= line-1 && isAnnotation(c.prevText) && containsAny(c.prevText, c.syn.Memoization) {
		fs.desc.Memoized = true
	}
	if containsAny(header, c.syn.Memoization) {
		fs.desc.Memoized = true
	}
	c.funcs = append(c.funcs, fs)
	c.stack = append(c.stack, frame{kind: frameFunction, fn: fs})
}

func (c *collector) statement(text string, line int) {
	if name, params, end, ok := c.expressionFunction(text); ok {
		c.begin(name, params, text[:end], line)
		c.account(text[end:], line)
		c.close(line)
		c.remember(text, line)
		return
	}
	c.account(text, line)
	c.remember(text, line)
}

// expressionFunction matches a function whose body is a single expression
// in the same statement. end is the offset where the body starts.
func (c *collector) expressionFunction(text string) (name, params string, end int, ok bool) {
	for _, re := range c.syn.ExpressionBodies {
		m := re.FindStringSubmatchIndex(text)
		if m == nil || m[2] < 0 {
			continue
		}
		if strings.TrimSpace(text[m[1]:]) == "" {
			continue
		}
		args := ""
		if m[4] >= 0 {
			args = text[m[4]:m[5]]
		}
		return text[m[2]:m[3]], args, m[1], true
	}
	return "", "", 0, false
}

func (c *collector) close(line int) {
	if len(c.stack) == 0 {
		return
	}
	f := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	if f.kind == frameFunction && f.fn != nil {
		if line > f.fn.desc.StartLine {
			f.fn.desc.EndLine = line
		}
		f.fn.desc.IsRecursive = f.fn.desc.SelfCallCount > 0
	}
}

func (c *collector) remember(text string, line int) {
	c.prevText = text
	c.prevLine = line
}

func (c *collector) classify(header string) (frameKind, string, string) {
	for _, re := range c.syn.Functions {
		m := re.FindStringSubmatch(header)
		if m == nil || m[1] == "" || headerKeywords[m[1]] {
			continue
		}
		if c.syn.Loop.MatchString(m[1]) || c.syn.Conditional.MatchString(m[1]) {
			continue
		}
		return frameFunction, m[1], m[2]
	}
	switch {
	case c.syn.Loop.MatchString(header):
		return frameLoop, "", ""
	case c.syn.Conditional.MatchString(header):
		return frameConditional, "", ""
	case c.syn.Branch != nil && c.syn.Branch.MatchString(header):
		return frameBranch, "", ""
	}
	return frameOther, "", ""
}

// innermost returns the index of the closest enclosing function frame, or -1.
func (c *collector) innermost() int {
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i].kind == frameFunction {
			return i
		}
	}
	return -1
}

func (c *collector) account(text string, line int) {
	fnIdx := c.innermost()

	control, loops := 0, 0
	for i := fnIdx + 1; i < len(c.stack); i++ {
		if c.stack[i].kind.control() {
			control++
		}
		if c.stack[i].kind == frameLoop {
			loops++
		}
	}

	loopHits := c.syn.Loop.FindAllStringIndex(text, -1)
	condHits := c.syn.Conditional.FindAllStringIndex(text, -1)
	retHits := c.syn.Return.FindAllStringIndex(text, -1)

	level := 0
	if len(loopHits)+len(condHits) > 0 {
		level = control + 1
	}
	loopLevel := 0
	if len(loopHits) > 0 {
		loopLevel = loops + len(loopHits)
	}
	sideEffect := containsAny(text, c.syn.SideEffects)
	mutation := containsAny(text, c.syn.GlobalMutation)

	if fnIdx < 0 {
		c.top.LoopCount += len(loopHits)
		c.top.ConditionalCount += len(condHits)
		c.top.NestingDepth = util.Max(c.top.NestingDepth, level)
		c.top.MaxLoopDepth = util.Max(c.top.MaxLoopDepth, loopLevel)
		c.top.HasSideEffects = c.top.HasSideEffects || sideEffect
		if mainCall.MatchString(text) {
			c.callsMain = true
		}
		return
	}

	fn := c.stack[fnIdx].fn
	d := &fn.desc
	d.LoopCount += len(loopHits)
	d.ConditionalCount += len(condHits)
	d.NestingDepth = util.Max(d.NestingDepth, level)
	d.MaxLoopDepth = util.Max(d.MaxLoopDepth, loopLevel)
	d.ReturnCount += len(retHits)
	if len(retHits) > 0 {
		if control > 0 || guardedReturn(retHits, loopHits, condHits) {
			d.HasEarlyReturn = true
		}
	}
	d.SelfCallCount += len(fn.selfCall.FindAllStringIndex(text, -1))
	if containsAny(text, c.syn.Memoization) {
		d.Memoized = true
	}
	if divisionPattern.MatchString(text) {
		d.HasDivision = true
	}
	if guardPattern.MatchString(text) {
		d.GuardsDivision = true
	}

	// side effects of nested functions taint every enclosing function
	if sideEffect || mutation {
		for i := fnIdx; i >= 0; i-- {
			if c.stack[i].kind != frameFunction {
				continue
			}
			if sideEffect {
				c.stack[i].fn.desc.HasSideEffects = true
			}
			if mutation {
				c.stack[i].fn.desc.MutatesGlobalState = true
			}
		}
	}
}

// guardedReturn catches brace-less forms such as `if (x) return y;` where
// a control keyword precedes the return inside one statement.
func guardedReturn(ret, loops, conds [][]int) bool {
	first := ret[0][0]
	for _, h := range loops {
		if h[0] < first {
			return true
		}
	}
	for _, h := range conds {
		if h[0] < first {
			return true
		}
	}
	return false
}

func (c *collector) summary(lang string, identity bool) domain.StructuralSummary {
	fns := make([]domain.FunctionDescriptor, 0, len(c.funcs))
	for _, f := range c.funcs {
		f.desc.IsRecursive = f.desc.SelfCallCount > 0
		fns = append(fns, f.desc)
	}
	return domain.StructuralSummary{
		Language:      lang,
		Identity:      identity,
		Functions:     fns,
		FunctionCount: len(fns),
		TopLevel:      c.top,
	}
}

func (c *collector) definesMain() bool {
	for _, f := range c.funcs {
		if f.desc.Name == "main" {
			return true
		}
	}
	return false
}

func countParams(params string) int {
	params = strings.TrimSpace(params)
	if params == "" {
		return 0
	}
	count, depth, start := 0, 0, 0
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p != "" && !nonParams[p] {
			count++
		}
	}
	for i := 0; i < len(params); i++ {
		switch params[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				add(params[start:i])
				start = i + 1
			}
		}
	}
	add(params[start:])
	return count
}

// isAnnotation matches decorators and attributes that precede a function.
func isAnnotation(text string) bool {
	return strings.HasPrefix(text, "@") || strings.HasPrefix(text, "#[")
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(text, m) {
			return true
		}
	}
	return false
}
