package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
)

// Bank runs its analyzers concurrently and joins when every analyzer has
// returned or run out of time.
type Bank struct {
	analyzers []Analyzer
	timeout   time.Duration
	logger    *zap.Logger
}

func NewBank(timeout time.Duration, logger *zap.Logger, analyzers ...Analyzer) *Bank {
	if len(analyzers) == 0 {
		analyzers = Standard()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bank{analyzers: analyzers, timeout: timeout, logger: logger}
}

type slot struct {
	contribution Contribution
	degraded     bool
}

type outcome struct {
	contribution Contribution
	err          error
}

// Run never fails. A late or failing analyzer contributes its default and
// is listed in Degraded.
func (b *Bank) Run(ctx context.Context, in Input) domain.AnalysisBundle {
	slots := make([]slot, len(b.analyzers))

	p := pool.New().WithMaxGoroutines(len(b.analyzers))
	for idx, a := range b.analyzers {
		idx, a := idx, a
		p.Go(func() {
			slots[idx] = b.runOne(ctx, a, in)
		})
	}
	p.Wait()

	bundle := domain.AnalysisBundle{Degraded: []domain.AnalyzerName{}}
	for idx, s := range slots {
		if s.contribution != nil {
			s.contribution(&bundle)
		}
		if s.degraded {
			bundle.Degraded = append(bundle.Degraded, b.analyzers[idx].Name())
		}
	}
	return bundle
}

func (b *Bank) runOne(ctx context.Context, a Analyzer, in Input) slot {
	actx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		var (
			catcher panics.Catcher
			out     outcome
		)
		catcher.Try(func() {
			out.contribution, out.err = a.Analyze(actx, in)
		})
		if r := catcher.Recovered(); r != nil {
			out = outcome{err: fmt.Errorf("analyzer panicked: %w", r.AsError())}
		}
		done <- out
	}()

	select {
	case out := <-done:
		if out.err != nil || out.contribution == nil {
			b.logger.Warn("Analyzer degraded",
				zap.String("analyzer", string(a.Name())),
				zap.Error(out.err),
			)
			return slot{contribution: a.Default(in), degraded: true}
		}
		return slot{contribution: out.contribution}
	case <-actx.Done():
		b.logger.Warn("Analyzer timed out",
			zap.String("analyzer", string(a.Name())),
			zap.Duration("budget", b.timeout),
		)
		return slot{contribution: a.Default(in), degraded: true}
	}
}
