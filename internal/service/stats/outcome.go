package stats

import (
	"context"
	"strconv"
	"time"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
)

// Outcome summarises one finished request.
type Outcome struct {
	RequestID   string
	Language    string
	State       domain.PipelineState
	ErrorCode   string
	Duration    time.Duration
	Degraded    []domain.AnalyzerName
	Provability *float64
	Quality     float64
	Grade       string
	BigO        string
	Lines       int
	Functions   int
	Confidence  float64
	At          time.Time
}

// Sink receives outcomes from the dispatcher.
type Sink interface {
	Name() string
	Write(ctx context.Context, o Outcome) error
}

// Store is a sink that can report aggregated counters.
type Store interface {
	Sink
	Snapshot(ctx context.Context) (Snapshot, error)
}

type Snapshot struct {
	Total         int64            `json:"total_requests"`
	Completed     int64            `json:"completed"`
	Failed        int64            `json:"failed"`
	Degraded      int64            `json:"degraded_requests"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
	Languages     map[string]int64 `json:"languages"`
	Errors        map[string]int64 `json:"errors"`
	Analyzers     map[string]int64 `json:"degraded_analyzers"`
	BigO          map[string]int64 `json:"big_o"`
}

// Counter hashes shared by every store.
const (
	hashTotals    = "totals"
	hashLanguages = "languages"
	hashErrors    = "errors"
	hashAnalyzers = "analyzers"
	hashBigO      = "big_o"
)

const (
	fieldTotal      = "total"
	fieldCompleted  = "completed"
	fieldFailed     = "failed"
	fieldDegraded   = "degraded"
	fieldDurationMS = "duration_ms"
)

type counter struct {
	hash  string
	field string
	delta int64
}

// counters maps an outcome onto hash increments.
func counters(o Outcome) []counter {
	out := []counter{
		{hashTotals, fieldTotal, 1},
		{hashTotals, fieldDurationMS, o.Duration.Milliseconds()},
	}
	switch o.State {
	case domain.StateCompleted:
		out = append(out, counter{hashTotals, fieldCompleted, 1})
	case domain.StateFailed:
		out = append(out, counter{hashTotals, fieldFailed, 1})
	}
	if len(o.Degraded) > 0 {
		out = append(out, counter{hashTotals, fieldDegraded, 1})
	}
	if o.Language != "" {
		out = append(out, counter{hashLanguages, o.Language, 1})
	}
	if o.ErrorCode != "" {
		out = append(out, counter{hashErrors, o.ErrorCode, 1})
	}
	for _, a := range o.Degraded {
		out = append(out, counter{hashAnalyzers, string(a), 1})
	}
	if o.BigO != "" {
		out = append(out, counter{hashBigO, o.BigO, 1})
	}
	return out
}

func snapshotFrom(hashes map[string]map[string]int64) Snapshot {
	totals := hashes[hashTotals]
	s := Snapshot{
		Total:     totals[fieldTotal],
		Completed: totals[fieldCompleted],
		Failed:    totals[fieldFailed],
		Degraded:  totals[fieldDegraded],
		Languages: copyHash(hashes[hashLanguages]),
		Errors:    copyHash(hashes[hashErrors]),
		Analyzers: copyHash(hashes[hashAnalyzers]),
		BigO:      copyHash(hashes[hashBigO]),
	}
	if s.Total > 0 {
		s.AvgDurationMS = float64(totals[fieldDurationMS]) / float64(s.Total)
	}
	return s
}

func copyHash(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// parseHash converts Redis hash values, skipping non-numeric fields.
func parseHash(in map[string]string) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out
}
