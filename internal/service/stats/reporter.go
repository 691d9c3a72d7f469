package stats

import (
	"context"
	"fmt"
	"time"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reporter logs a statistics snapshot on a cron schedule.
type Reporter struct {
	cron   *rcron.Cron
	store  Store
	logger *zap.Logger
}

func NewReporter(schedule string, store Store, logger *zap.Logger) (*Reporter, error) {
	r := &Reporter{
		cron:   rcron.New(),
		store:  store,
		logger: logger,
	}
	if _, err := r.cron.AddFunc(schedule, r.report); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Reporter) Start() {
	r.cron.Start()
	r.logger.Info("Stats reporter started", zap.Int("entries", len(r.cron.Entries())))
}

// Stop waits for a running report to finish.
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("Stats reporter stopped")
}

func (r *Reporter) report() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := r.store.Snapshot(ctx)
	if err != nil {
		r.logger.Warn("Stats snapshot failed", zap.Error(err))
		return
	}

	r.logger.Info("Request statistics",
		zap.Int64("total", s.Total),
		zap.Int64("completed", s.Completed),
		zap.Int64("failed", s.Failed),
		zap.Int64("degraded", s.Degraded),
		zap.Float64("avg_duration_ms", s.AvgDurationMS),
		zap.Any("languages", s.Languages),
	)
}
