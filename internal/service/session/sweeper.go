package session

import (
	"fmt"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper drops idle sessions on a cron schedule.
type Sweeper struct {
	cron    *rcron.Cron
	manager *Manager
	logger  *zap.Logger
}

func NewSweeper(schedule string, manager *Manager, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:    rcron.New(),
		manager: manager,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("Session sweeper started")
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Session sweeper stopped")
}

func (s *Sweeper) sweep() {
	if n := s.manager.Sweep(); n > 0 {
		s.logger.Info("Expired translation sessions dropped",
			zap.Int("dropped", n),
			zap.Int("active", s.manager.Active()),
		)
	}
}
