package session

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/analyzer"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/translator"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

type Classifier interface {
	Classify(source, declared, filename string) (domain.ClassificationResult, error)
}

type Translator interface {
	Translate(source string, p *domain.Profile) (*translator.Translation, error)
	TranslateFragment(source string, p *domain.Profile) (*translator.Translation, error)
	Scan(source string, p *domain.Profile) (domain.StructuralSummary, error)
}

type Registry interface {
	Lookup(language string) (*domain.Profile, bool)
	Target() *domain.Profile
}

type Verifier interface {
	Verify(text string, summary domain.StructuralSummary) domain.VerificationStatus
}

type Deps struct {
	Classifier Classifier
	Translator Translator
	Registry   Registry
	Verifier   Verifier
}

type Options struct {
	// TTL is the idle time after which a session is dropped.
	TTL       time.Duration
	MaxActive int
}

const qualityPass = 0.8

// entry is the server-side state of one session. mu serializes steps.
type entry struct {
	mu      sync.Mutex
	session *domain.Session
	source  []string
	profile *domain.Profile

	// entryCall is set when the whole unit needs a trailing entry call.
	entryCall   bool
	mainWritten bool
	removed     bool
}

// Manager keeps interactive translation sessions in memory.
type Manager struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewManager(deps Deps, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Start classifies and plans the source. No step runs yet.
func (m *Manager) Start(req domain.SessionRequest) (*domain.Session, error) {
	if strings.TrimSpace(req.SourceCode) == "" {
		return nil, apperrors.NewValidationError("source_code must not be empty", "source_code", nil)
	}
	size := domain.StepSize(util.Normalize(string(req.StepSize)))
	if size == "" {
		size = domain.StepAuto
	}
	if !size.Valid() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("step_size must be %q, %q or %q", domain.StepFunction, domain.StepStatement, domain.StepAuto),
			"step_size", string(req.StepSize))
	}
	level := domain.VerificationLevel(util.Normalize(string(req.VerificationLevel)))
	if level == "" {
		level = domain.LevelStandard
	}
	if !level.Valid() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("verification_level must be %q, %q or %q", domain.LevelBasic, domain.LevelStandard, domain.LevelComprehensive),
			"verification_level", string(req.VerificationLevel))
	}

	classification, err := m.deps.Classifier.Classify(req.SourceCode, req.DeclaredLanguage, req.Filename)
	if err != nil {
		return nil, err
	}
	profile, ok := m.deps.Registry.Lookup(classification.Language)
	if !ok {
		return nil, apperrors.NewInternalError(fmt.Sprintf("no profile for classified language %q", classification.Language), nil)
	}

	// the whole unit must translate before it can be stepped through
	whole, err := m.deps.Translator.Translate(req.SourceCode, profile)
	if err != nil {
		return nil, err
	}
	if size == domain.StepAuto {
		size = domain.StepFunction
		if analyzer.UnitCyclomatic(whole.Summary) > autoStatementCyclomatic {
			size = domain.StepStatement
		}
	}
	steps, err := planSteps(req.SourceCode, whole.Summary, size, profile.Syntax)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &domain.Session{
		ID:                uuid.NewString(),
		SourceLanguage:    profile.Language,
		StepSize:          size,
		VerificationLevel: level,
		TotalSteps:        len(steps),
		Steps:             steps,
		Checks:            []domain.StepCheck{},
		Feedback:          []domain.SessionFeedback{},
		Notes:             []domain.TranslationNote{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	e := &entry{
		session:   s,
		source:    strings.Split(strings.TrimSuffix(strings.ReplaceAll(req.SourceCode, "\r\n", "\n"), "\n"), "\n"),
		profile:   profile,
		entryCall: whole.NeedsEntryCall,
	}

	m.mu.Lock()
	m.evictLocked(now)
	if m.opts.MaxActive > 0 && len(m.sessions) >= m.opts.MaxActive {
		m.mu.Unlock()
		return nil, apperrors.NewAppError("too many active translation sessions", apperrors.CodeSessionLimit, http.StatusTooManyRequests, map[string]any{
			"limit": m.opts.MaxActive,
		})
	}
	m.sessions[s.ID] = e
	m.mu.Unlock()

	m.logger.Info("Translation session started",
		zap.String("session_id", s.ID),
		zap.String("language", s.SourceLanguage),
		zap.String("step_size", string(size)),
		zap.Int("steps", s.TotalSteps),
	)
	return s.Clone(), nil
}

// Next translates the current step and runs the checks of the session's
// level over the code translated so far. A complete session is returned
// unchanged.
func (m *Manager) Next(id string) (*domain.Session, error) {
	e, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	s := e.session
	if s.Complete() {
		return s.Clone(), nil
	}

	step := &s.Steps[s.CurrentStep]
	src := e.source[step.StartLine-1 : step.EndLine]
	frag, err := m.deps.Translator.TranslateFragment(strings.Join(src, "\n")+"\n", e.profile)
	if err != nil {
		return nil, err
	}
	code := strings.TrimRight(frag.Text, "\n")

	partial := s.PartialCode
	if s.CurrentStep == 0 && !e.profile.Identity {
		partial = fmt.Sprintf("// Translated from %s to %s", e.profile.Language, m.deps.Registry.Target().Language)
	}
	switch {
	case code == "":
	case partial == "":
		partial = code
	case s.CurrentStep == 0:
		partial += "\n" + code
	default:
		// fragments drop their leading blank lines
		partial += "\n" + strings.Repeat("\n", leadingBlank(src, e.profile.Identity)) + code
	}

	for _, n := range frag.Notes {
		n.Line += step.StartLine - 1
		s.Notes = append(s.Notes, n)
	}
	step.RuchyCode = code
	step.Done = true
	s.CurrentStep++
	s.PartialCode = partial
	s.Checks = append(s.Checks, m.check(s, frag)...)
	s.UpdatedAt = m.now()
	if frag.NeedsEntryCall {
		e.mainWritten = true
	}

	m.logger.Debug("Translation session step",
		zap.String("session_id", s.ID),
		zap.Int("step", s.CurrentStep),
		zap.Int("of", s.TotalSteps),
		zap.Int("unmapped", len(frag.Notes)),
	)
	return s.Clone(), nil
}

// check runs the checks for the step just taken.
func (m *Manager) check(s *domain.Session, frag *translator.Translation) []domain.StepCheck {
	step := s.CurrentStep
	target := m.deps.Registry.Target()

	syntax := domain.StepCheck{Step: step, Kind: domain.CheckSyntax, Passed: true, Details: "Delimiters balance", Suggestions: []string{}}
	if err := translator.CheckDelimiters(s.PartialCode, target.Syntax); err != nil {
		syntax.Passed = false
		syntax.Details = "Syntax errors detected: " + err.Error()
		syntax.Suggestions = append(syntax.Suggestions, "Check for missing semicolons or braces")
	}
	for _, n := range frag.Notes {
		syntax.Passed = false
		syntax.Suggestions = append(syntax.Suggestions, fmt.Sprintf("Review unmapped %s construct: %s", n.Kind, n.Text))
	}
	checks := []domain.StepCheck{syntax}
	if s.VerificationLevel == domain.LevelBasic {
		return checks
	}

	summary, err := m.deps.Translator.Scan(s.PartialCode, target)
	if err != nil {
		return append(checks, domain.StepCheck{
			Step: step, Kind: domain.CheckProvability, Details: "Translated code does not scan: " + err.Error(), Suggestions: []string{},
		})
	}
	summary.Identity = s.SourceLanguage == target.Language
	summary.UnmappedConstructs = len(s.Notes)

	status := m.deps.Verifier.Verify(s.PartialCode, summary)
	checks = append(checks, domain.StepCheck{
		Step:        step,
		Kind:        domain.CheckProvability,
		Passed:      status.Verified,
		Details:     fmt.Sprintf("Provability score: %.1f/100", status.ProofScore),
		Suggestions: append([]string{}, status.PotentialIssues...),
	})
	if s.VerificationLevel != domain.LevelComprehensive {
		return checks
	}

	q := analyzer.Quality(summary)
	quality := domain.StepCheck{
		Step:        step,
		Kind:        domain.CheckQuality,
		Passed:      q.Overall >= qualityPass,
		Details:     fmt.Sprintf("Quality score: %.2f", q.Overall),
		Suggestions: []string{},
	}
	if !quality.Passed {
		quality.Suggestions = append(quality.Suggestions, "Consider refactoring for better quality")
	}
	return append(checks, quality)
}

// AddFeedback records feedback on a step. Step 0 addresses the session as
// a whole.
func (m *Manager) AddFeedback(id string, fb domain.SessionFeedback) (*domain.Session, error) {
	fb.Type = domain.FeedbackType(util.Normalize(string(fb.Type)))
	if !fb.Type.Valid() {
		return nil, apperrors.NewValidationError("feedback_type must be approval, suggestion, question or rejection", "feedback_type", string(fb.Type))
	}

	e, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	s := e.session
	if fb.Step < 0 || fb.Step > s.TotalSteps {
		return nil, apperrors.NewValidationError(fmt.Sprintf("step must be between 0 and %d", s.TotalSteps), "step", fb.Step)
	}
	fb.At = m.now()
	s.Feedback = append(s.Feedback, fb)
	s.UpdatedAt = fb.At
	return s.Clone(), nil
}

func (m *Manager) Get(id string) (*domain.Session, error) {
	e, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// Finalize removes the session and verifies the code translated so far.
func (m *Manager) Finalize(id string) (*domain.SessionResult, error) {
	e, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	e.removed = true

	s := e.session
	code := s.PartialCode
	if code != "" && e.entryCall && e.mainWritten {
		code += "\n\nmain()"
	}
	if code != "" {
		code += "\n"
	}

	target := m.deps.Registry.Target()
	var status domain.VerificationStatus
	summary, err := m.deps.Translator.Scan(code, target)
	if err != nil {
		status = domain.VerificationStatus{
			SafetyGuarantees: []string{},
			PotentialIssues:  []string{"translated code does not scan: " + err.Error()},
			ProofDetails:     "not verified",
		}
	} else {
		summary.Identity = s.SourceLanguage == target.Language
		summary.UnmappedConstructs = len(s.Notes)
		status = m.deps.Verifier.Verify(code, summary)
	}

	m.logger.Info("Translation session finalized",
		zap.String("session_id", s.ID),
		zap.Int("steps", s.CurrentStep),
		zap.Int("of", s.TotalSteps),
		zap.Bool("verified", status.Verified),
	)
	return &domain.SessionResult{
		ID:                 s.ID,
		SourceLanguage:     s.SourceLanguage,
		RuchyCode:          code,
		StepsTranslated:    s.CurrentStep,
		TotalSteps:         s.TotalSteps,
		FeedbackCount:      len(s.Feedback),
		VerificationStatus: status,
	}, nil
}

// Sweep drops sessions idle for longer than the TTL.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictLocked(m.now())
}

func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// evictLocked skips sessions whose step is in flight; they are busy, not idle.
func (m *Manager) evictLocked(now time.Time) int {
	if m.opts.TTL <= 0 {
		return 0
	}
	evicted := 0
	for id, e := range m.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if now.Sub(e.session.UpdatedAt) > m.opts.TTL {
			e.removed = true
			delete(m.sessions, id)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}

// acquire returns the locked entry for id.
func (m *Manager) acquire(id string) (*entry, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, notFound(id)
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil, notFound(id)
	}
	if m.opts.TTL > 0 && m.now().Sub(e.session.UpdatedAt) > m.opts.TTL {
		e.removed = true
		e.mu.Unlock()
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, notFound(id)
	}
	return e, nil
}

func leadingBlank(lines []string, identity bool) int {
	if identity {
		return 0
	}
	n := 0
	for n < len(lines) && strings.TrimSpace(lines[n]) == "" {
		n++
	}
	return n
}

func notFound(id string) error {
	return apperrors.NewAppError("translation session not found", apperrors.CodeNotFound, http.StatusNotFound, map[string]any{
		"session_id": id,
	}).WithDetails("session_id=" + id)
}
