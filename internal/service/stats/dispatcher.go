package stats

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
)

type guardedSink struct {
	sink    Sink
	breaker *util.CircuitBreaker
}

// Dispatcher delivers outcomes to its sinks off the request path.
type Dispatcher struct {
	queue  chan Outcome
	sinks  []guardedSink
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts the delivery loop. Outcomes submitted while the
// queue is full are dropped.
func NewDispatcher(queueSize int, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		queue:  make(chan Outcome, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	for _, s := range sinks {
		d.sinks = append(d.sinks, guardedSink{
			sink: s,
			breaker: util.NewCircuitBreaker(
				constants.CircuitBreakerConfig.FailureThreshold,
				constants.CircuitBreakerConfig.ResetTimeout,
				logger.With(zap.String("sink", s.Name())),
			),
		})
	}

	go d.loop()
	return d
}

// Submit never blocks.
func (d *Dispatcher) Submit(o Outcome) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}
	select {
	case d.queue <- o:
		return true
	default:
		d.logger.Warn("Stats queue full, dropping outcome",
			zap.String("request_id", o.RequestID),
			zap.Int("capacity", cap(d.queue)),
		)
		return false
	}
}

// Close drains queued outcomes and stops the loop.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for o := range d.queue {
		d.deliver(o)
	}
}

func (d *Dispatcher) deliver(o Outcome) {
	if len(d.sinks) == 0 {
		return
	}

	p := pool.New().WithMaxGoroutines(len(d.sinks))
	for _, gs := range d.sinks {
		gs := gs
		p.Go(func() {
			if !gs.breaker.CanExecute() {
				d.logger.Debug("Sink circuit open, skipping outcome",
					zap.String("sink", gs.sink.Name()),
					zap.String("request_id", o.RequestID),
				)
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), constants.Timeouts.SinkWrite)
			defer cancel()

			if err := gs.sink.Write(ctx, o); err != nil {
				gs.breaker.RecordFailure()
				d.logger.Warn("Stats sink write failed",
					zap.String("sink", gs.sink.Name()),
					zap.String("request_id", o.RequestID),
					zap.Error(err),
				)
				return
			}
			gs.breaker.RecordSuccess()
		})
	}
	p.Wait()
}
