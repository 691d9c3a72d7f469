package domain

// FunctionDescriptor captures the structural facts of one function.
type FunctionDescriptor struct {
	Name               string `json:"name"`
	StartLine          int    `json:"start_line"`
	EndLine            int    `json:"end_line"`
	ParameterCount     int    `json:"parameter_count"`
	HasEarlyReturn     bool   `json:"has_early_return"`
	IsRecursive        bool   `json:"is_recursive"`
	SelfCallCount      int    `json:"self_call_count"`
	LoopCount          int    `json:"loop_count"`
	ConditionalCount   int    `json:"conditional_count"`
	NestingDepth       int    `json:"nesting_depth"`
	MaxLoopDepth       int    `json:"max_loop_depth"`
	ReturnCount        int    `json:"return_count"`
	HasSideEffects     bool   `json:"has_side_effects"`
	MutatesGlobalState bool   `json:"mutates_global_state"`
	Memoized           bool   `json:"memoized"`
	HasDivision        bool   `json:"has_division"`
	GuardsDivision     bool   `json:"guards_division"`
}

// Pure reports the absence of side-effect markers and global mutation.
func (f FunctionDescriptor) Pure() bool {
	return !f.HasSideEffects && !f.MutatesGlobalState
}

func (f FunctionDescriptor) Decisions() int {
	return f.LoopCount + f.ConditionalCount
}

func (f FunctionDescriptor) Lines() int {
	if f.EndLine < f.StartLine {
		return 0
	}
	return f.EndLine - f.StartLine + 1
}

// TopLevelFacts describes code outside any function body.
type TopLevelFacts struct {
	LoopCount        int  `json:"loop_count"`
	ConditionalCount int  `json:"conditional_count"`
	NestingDepth     int  `json:"nesting_depth"`
	MaxLoopDepth     int  `json:"max_loop_depth"`
	HasSideEffects   bool `json:"has_side_effects"`
}

func (t TopLevelFacts) Decisions() int {
	return t.LoopCount + t.ConditionalCount
}

// StructuralSummary is produced once per translated unit and read by every
// analyzer. Analyzers never look at source text.
type StructuralSummary struct {
	Language           string               `json:"language"`
	Identity           bool                 `json:"identity"`
	Functions          []FunctionDescriptor `json:"functions"`
	FunctionCount      int                  `json:"function_count"`
	TopLevel           TopLevelFacts        `json:"top_level"`
	LineCount          int                  `json:"line_count"`
	PhysicalLines      int                  `json:"physical_lines"`
	CommentLines       int                  `json:"comment_lines"`
	UnmappedConstructs int                  `json:"unmapped_constructs"`
}

// TranslationNote records a construct the translator could not map.
type TranslationNote struct {
	Line int    `json:"line"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}
