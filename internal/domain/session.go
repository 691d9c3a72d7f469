package domain

import "time"

// StepSize selects how a session cuts the source into steps.
type StepSize string

const (
	StepFunction  StepSize = "function"
	StepStatement StepSize = "statement"
	StepAuto      StepSize = "auto"
)

func (s StepSize) Valid() bool {
	return s == StepFunction || s == StepStatement || s == StepAuto
}

// VerificationLevel selects the checks run after every step.
type VerificationLevel string

const (
	LevelBasic         VerificationLevel = "basic"
	LevelStandard      VerificationLevel = "standard"
	LevelComprehensive VerificationLevel = "comprehensive"
)

func (l VerificationLevel) Valid() bool {
	return l == LevelBasic || l == LevelStandard || l == LevelComprehensive
}

type FeedbackType string

const (
	FeedbackApproval   FeedbackType = "approval"
	FeedbackSuggestion FeedbackType = "suggestion"
	FeedbackQuestion   FeedbackType = "question"
	FeedbackRejection  FeedbackType = "rejection"
)

func (f FeedbackType) Valid() bool {
	switch f {
	case FeedbackApproval, FeedbackSuggestion, FeedbackQuestion, FeedbackRejection:
		return true
	}
	return false
}

type CheckKind string

const (
	CheckSyntax      CheckKind = "syntax_check"
	CheckProvability CheckKind = "provability_check"
	CheckQuality     CheckKind = "quality_check"
)

// SessionRequest starts an interactive translation.
type SessionRequest struct {
	SourceCode        string
	DeclaredLanguage  string
	Filename          string
	StepSize          StepSize
	VerificationLevel VerificationLevel
}

// SessionStep is one source line range translated by a single Next call.
type SessionStep struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	RuchyCode   string `json:"ruchy_code,omitempty"`
	Done        bool   `json:"done"`
}

// StepCheck is the outcome of one check after a step.
type StepCheck struct {
	Step        int       `json:"step"`
	Kind        CheckKind `json:"verification_type"`
	Passed      bool      `json:"passed"`
	Details     string    `json:"details"`
	Suggestions []string  `json:"suggestions"`
}

type SessionFeedback struct {
	Step    int          `json:"step"`
	Type    FeedbackType `json:"feedback_type"`
	Content string       `json:"content"`
	At      time.Time    `json:"timestamp"`
}

// Session is a snapshot of an interactive translation.
type Session struct {
	ID                string            `json:"id"`
	SourceLanguage    string            `json:"source_language"`
	StepSize          StepSize          `json:"step_size"`
	VerificationLevel VerificationLevel `json:"verification_level"`
	CurrentStep       int               `json:"current_step"`
	TotalSteps        int               `json:"total_steps"`
	Steps             []SessionStep     `json:"steps"`
	PartialCode       string            `json:"partial_ruchy_code"`
	Checks            []StepCheck       `json:"verification_results"`
	Feedback          []SessionFeedback `json:"user_feedback"`
	Notes             []TranslationNote `json:"notes"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (s *Session) Complete() bool {
	return s.CurrentStep >= s.TotalSteps
}

// Clone copies every slice so the snapshot can leave the owning lock.
func (s *Session) Clone() *Session {
	c := *s
	c.Steps = append([]SessionStep(nil), s.Steps...)
	c.Checks = make([]StepCheck, len(s.Checks))
	for i, ch := range s.Checks {
		ch.Suggestions = append([]string{}, ch.Suggestions...)
		c.Checks[i] = ch
	}
	c.Feedback = append([]SessionFeedback{}, s.Feedback...)
	c.Notes = append([]TranslationNote{}, s.Notes...)
	return &c
}

// SessionResult is returned once when a session is finalized.
type SessionResult struct {
	ID                 string             `json:"id"`
	SourceLanguage     string             `json:"source_language"`
	RuchyCode          string             `json:"ruchy_code"`
	StepsTranslated    int                `json:"steps_translated"`
	TotalSteps         int                `json:"total_steps"`
	FeedbackCount      int                `json:"feedback_count"`
	VerificationStatus VerificationStatus `json:"verification_status"`
}
