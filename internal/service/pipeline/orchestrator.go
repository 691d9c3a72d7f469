package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/analyzer"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/stats"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/translator"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

type Classifier interface {
	Classify(source, declared, filename string) (domain.ClassificationResult, error)
}

type Translator interface {
	Translate(source string, p *domain.Profile) (*translator.Translation, error)
	Scan(source string, p *domain.Profile) (domain.StructuralSummary, error)
}

type Registry interface {
	Lookup(language string) (*domain.Profile, bool)
	Target() *domain.Profile
}

type AnalyzerBank interface {
	Run(ctx context.Context, in analyzer.Input) domain.AnalysisBundle
}

type Verifier interface {
	Verify(text string, summary domain.StructuralSummary) domain.VerificationStatus
}

// Recorder receives one outcome per finished translate request.
type Recorder interface {
	Submit(o stats.Outcome) bool
}

// Observer is called synchronously on every state transition.
type Observer func(domain.StageEvent)

// Deps groups the collaborators of the orchestrator. Recorder may be nil.
type Deps struct {
	Classifier Classifier
	Translator Translator
	Registry   Registry
	Bank       AnalyzerBank
	Verifier   Verifier
	Recorder   Recorder
}

// Orchestrator drives classify, translate, analyze and verify for one
// request within a wall-clock budget.
type Orchestrator struct {
	deps    Deps
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func New(deps Deps, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{deps: deps, timeout: timeout, logger: logger, now: time.Now}
}

// Translate runs the full pipeline. The returned error is always an
// *apperrors.AppError carrier.
func (o *Orchestrator) Translate(ctx context.Context, req domain.TranslateRequest, observe Observer) (*domain.TranslationResult, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	r := &run{id: id, state: domain.StateReceived, observe: observe, now: o.now, started: o.now()}
	r.emit("")

	res, err := o.translate(ctx, r, req)
	if err != nil {
		r.fail(err)
		o.record(r, res, err)
		o.logger.Warn("Translation failed",
			zap.String("request_id", id),
			zap.String("language", r.language),
			zap.String("code", errorCode(err)),
			zap.Duration("duration", time.Since(r.started)),
			zap.Error(err),
		)
		return nil, err
	}

	o.record(r, res, nil)
	o.logger.Info("Translation completed",
		zap.String("request_id", id),
		zap.String("language", res.SourceLanguage),
		zap.Any("degraded", res.DegradedAnalyzers),
		zap.Duration("duration", time.Since(r.started)),
	)
	return res, nil
}

func (o *Orchestrator) translate(ctx context.Context, r *run, req domain.TranslateRequest) (*domain.TranslationResult, error) {
	target := o.deps.Registry.Target()
	if t := util.Normalize(req.TargetLanguage); t != "" && t != target.Language {
		return nil, apperrors.NewUnsupportedLanguageError(t, []string{target.Language})
	}

	classification, err := stage(ctx, "classify", o.timeout, func() (domain.ClassificationResult, error) {
		return o.deps.Classifier.Classify(req.SourceCode, req.DeclaredLanguage, req.Filename)
	})
	if err != nil {
		return nil, err
	}
	r.language = classification.Language
	if err := r.advance(domain.StateClassified, classification.Language); err != nil {
		return nil, err
	}

	profile, ok := o.deps.Registry.Lookup(classification.Language)
	if !ok {
		return nil, apperrors.NewInternalError(fmt.Sprintf("no profile for classified language %q", classification.Language), nil)
	}

	translation, err := stage(ctx, "translate", o.timeout, func() (*translator.Translation, error) {
		return o.deps.Translator.Translate(req.SourceCode, profile)
	})
	if err != nil {
		return nil, err
	}
	if err := r.advance(domain.StateTranslated, ""); err != nil {
		return nil, err
	}

	if err := r.advance(domain.StateAnalyzing, ""); err != nil {
		return nil, err
	}
	in := analyzer.Input{Summary: translation.Summary, Source: profile, Target: target}
	bundle, err := stage(ctx, "analyze", o.timeout, func() (domain.AnalysisBundle, error) {
		return o.deps.Bank.Run(ctx, in), nil
	})
	if err != nil {
		return nil, err
	}

	opts := req.Options
	detail := ""
	if !opts.VerifyEnabled() {
		detail = "skipped"
	}
	if err := r.advance(domain.StateVerifying, detail); err != nil {
		return nil, err
	}
	var verification *domain.VerificationStatus
	if opts.VerifyEnabled() {
		status, err := stage(ctx, "verify", o.timeout, func() (domain.VerificationStatus, error) {
			return o.deps.Verifier.Verify(translation.Text, translation.Summary), nil
		})
		if err != nil {
			return nil, err
		}
		verification = &status
	}

	res := assemble(r.id, classification, translation, bundle, verification, opts)
	if err := r.advance(domain.StateCompleted, ""); err != nil {
		return nil, err
	}
	res.FinalState = r.state
	return res, nil
}

func assemble(
	id string,
	classification domain.ClassificationResult,
	translation *translator.Translation,
	bundle domain.AnalysisBundle,
	verification *domain.VerificationStatus,
	opts *domain.TranslateOptions,
) *domain.TranslationResult {
	res := &domain.TranslationResult{
		ID:                      id,
		RuchyCode:               translation.Text,
		SourceLanguage:          classification.Language,
		Classification:          classification,
		HighProvability:         bundle.Provability.HighProvability,
		QualityScore:            bundle.Quality,
		PerformancePrediction:   bundle.Performance,
		VerificationStatus:      verification,
		OptimizationSuggestions: []string{},
		DegradedAnalyzers:       bundle.Degraded,
		Notes:                   translation.Notes,
	}

	if !bundle.IsDegraded(domain.AnalyzerProvability) {
		score := bundle.Provability.Score
		res.ProvabilityScore = &score
	}
	if opts.AnalysisEnabled() {
		summary := translation.Summary
		res.StructuralSummary = &summary
	}
	if opts.ComplexityEnabled() {
		c := bundle.Complexity
		res.ComplexityMetrics = &domain.ComplexityMetrics{
			Cyclomatic:  c.Cyclomatic,
			Cognitive:   c.Cognitive,
			LinesOfCode: c.LinesOfCode,
			BigO:        c.BigO,
			BigONote:    c.BigONote,
		}
	}
	if opts.OptimizeEnabled() {
		res.OptimizationSuggestions = Suggest(translation.Summary, translation.Notes)
	}
	return res
}

// Analyze runs the structure scan plus the requested analyzers. The
// target language is scanned without rewriting.
func (o *Orchestrator) Analyze(ctx context.Context, code, language string, analysisType domain.AnalysisType) (*domain.AnalysisReport, error) {
	if !analysisType.Valid() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("analysis_type must be %q or %q", domain.AnalysisComplexity, domain.AnalysisAll),
			"analysis_type", string(analysisType))
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	classification, err := stage(ctx, "classify", o.timeout, func() (domain.ClassificationResult, error) {
		return o.deps.Classifier.Classify(code, language, "")
	})
	if err != nil {
		return nil, err
	}
	profile, ok := o.deps.Registry.Lookup(classification.Language)
	if !ok {
		return nil, apperrors.NewInternalError(fmt.Sprintf("no profile for classified language %q", classification.Language), nil)
	}

	if analysisType == domain.AnalysisComplexity {
		c, err := stage(ctx, "analyze", o.timeout, func() (domain.ComplexityReport, error) {
			summary, err := o.deps.Translator.Scan(code, profile)
			if err != nil {
				return domain.ComplexityReport{}, err
			}
			return analyzer.Complexity(summary), nil
		})
		if err != nil {
			return nil, err
		}
		return complexityReport(profile.Language, c), nil
	}

	translation, err := stage(ctx, "translate", o.timeout, func() (*translator.Translation, error) {
		return o.deps.Translator.Translate(code, profile)
	})
	if err != nil {
		return nil, err
	}
	in := analyzer.Input{Summary: translation.Summary, Source: profile, Target: o.deps.Registry.Target()}
	bundle, err := stage(ctx, "analyze", o.timeout, func() (domain.AnalysisBundle, error) {
		return o.deps.Bank.Run(ctx, in), nil
	})
	if err != nil {
		return nil, err
	}

	report := complexityReport(profile.Language, bundle.Complexity)
	report.Provability = &bundle.Provability
	report.Quality = &bundle.Quality
	report.Performance = &bundle.Performance
	report.DegradedAnalyzers = bundle.Degraded
	return report, nil
}

func complexityReport(language string, c domain.ComplexityReport) *domain.AnalysisReport {
	hotspots := c.Hotspots
	if hotspots == nil {
		hotspots = []string{}
	}
	return &domain.AnalysisReport{
		Language:    language,
		Cyclomatic:  c.Cyclomatic,
		Cognitive:   c.Cognitive,
		LinesOfCode: c.LinesOfCode,
		BigO:        c.BigO,
		BigONote:    c.BigONote,
		Hotspots:    hotspots,
	}
}

// Verify checks code already written in the target language.
func (o *Orchestrator) Verify(ctx context.Context, code string) (*domain.VerifyReport, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	target := o.deps.Registry.Target()
	status, err := stage(ctx, "verify", o.timeout, func() (domain.VerificationStatus, error) {
		summary, err := o.deps.Translator.Scan(code, target)
		if err != nil {
			return domain.VerificationStatus{}, err
		}
		return o.deps.Verifier.Verify(code, summary), nil
	})
	if err != nil {
		return nil, err
	}
	return &domain.VerifyReport{
		Verified:         status.Verified,
		Score:            status.ProofScore,
		SafetyGuarantees: status.SafetyGuarantees,
		PotentialIssues:  status.PotentialIssues,
		ProofDetails:     status.ProofDetails,
	}, nil
}

func (o *Orchestrator) record(r *run, res *domain.TranslationResult, err error) {
	if o.deps.Recorder == nil {
		return
	}

	out := stats.Outcome{
		RequestID: r.id,
		Language:  r.language,
		State:     r.state,
		Duration:  time.Since(r.started),
		At:        r.started,
	}
	if err != nil {
		out.ErrorCode = errorCode(err)
	}
	if res != nil {
		out.Degraded = res.DegradedAnalyzers
		out.Provability = res.ProvabilityScore
		out.Quality = res.QualityScore.Overall
		out.Grade = res.QualityScore.Grade
		out.Confidence = res.Classification.Confidence
		if res.ComplexityMetrics != nil {
			out.BigO = res.ComplexityMetrics.BigO
			out.Lines = res.ComplexityMetrics.LinesOfCode
		}
		if res.StructuralSummary != nil {
			out.Functions = res.StructuralSummary.FunctionCount
		}
	}
	o.deps.Recorder.Submit(out)
}

func errorCode(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Code
	}
	return apperrors.CodeInternal
}

// run tracks the state machine of one request.
type run struct {
	id       string
	language string
	state    domain.PipelineState
	observe  Observer
	now      func() time.Time
	started  time.Time
}

func (r *run) emit(detail string) {
	if r.observe == nil {
		return
	}
	r.observe(domain.StageEvent{RequestID: r.id, State: r.state, At: r.now(), Detail: detail})
}

func (r *run) advance(to domain.PipelineState, detail string) error {
	if !domain.CanTransition(r.state, to) {
		return apperrors.NewInternalError(fmt.Sprintf("illegal pipeline transition %s -> %s", r.state, to), nil)
	}
	r.state = to
	r.emit(detail)
	return nil
}

func (r *run) fail(err error) {
	if r.state.Terminal() {
		return
	}
	r.state = domain.StateFailed
	r.emit(errorCode(err))
}

type stageResult[T any] struct {
	value T
	err   error
}

// stage runs fn on its own goroutine and gives up when ctx ends. A
// panicking stage becomes an internal error.
func stage[T any](ctx context.Context, name string, budget time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, stageAborted(name, budget, err)
	}

	done := make(chan stageResult[T], 1)
	go func() {
		var (
			catcher panics.Catcher
			res     stageResult[T]
		)
		catcher.Try(func() {
			res.value, res.err = fn()
		})
		if rec := catcher.Recovered(); rec != nil {
			res = stageResult[T]{err: apperrors.NewInternalError(name+" stage panicked", rec.AsError())}
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return zero, stageAborted(name, budget, ctx.Err())
	}
}

func stageAborted(name string, budget time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(name, budget)
	}
	return apperrors.NewInternalError("request canceled during "+name, err)
}
