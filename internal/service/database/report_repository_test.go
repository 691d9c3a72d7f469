package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/stats"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

type recordedExec struct {
	query string
	args  []any
}

type fakeExecer struct {
	calls []recordedExec
	err   error
}

func (f *fakeExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.calls = append(f.calls, recordedExec{query: query, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func TestEnsureSchemaCreatesReportTable(t *testing.T) {
	db := &fakeExecer{}
	repo := NewReportRepository(db, zap.NewNop())

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if len(db.calls) != 1 || !strings.Contains(db.calls[0].query, "CREATE TABLE IF NOT EXISTS translation_reports") {
		t.Fatalf("unexpected schema statements %+v", db.calls)
	}
}

func TestWriteInsertsOutcomeRow(t *testing.T) {
	db := &fakeExecer{}
	repo := NewReportRepository(db, zap.NewNop())

	score := 87.5
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := repo.Write(context.Background(), stats.Outcome{
		RequestID:   "req-1",
		Language:    "python",
		State:       domain.StateCompleted,
		Duration:    1500 * time.Millisecond,
		Degraded:    []domain.AnalyzerName{domain.AnalyzerPerformance},
		Provability: &score,
		Quality:     0.8,
		Grade:       "B+",
		BigO:        "O(2^n)",
		Lines:       4,
		Functions:   1,
		Confidence:  1,
		At:          at,
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(db.calls) != 1 {
		t.Fatalf("expected one insert, got %d", len(db.calls))
	}

	args := db.calls[0].args
	if len(args) != 14 {
		t.Fatalf("expected 14 arguments, got %d", len(args))
	}
	if args[0] != "req-1" || args[2] != "completed" || args[4] != int64(1500) {
		t.Fatalf("unexpected leading arguments %v", args[:5])
	}
	if p, ok := args[5].(sql.NullFloat64); !ok || !p.Valid || p.Float64 != score {
		t.Fatalf("provability argument = %#v", args[5])
	}
	arr, ok := args[12].(*pq.StringArray)
	if !ok || len(*arr) != 1 || (*arr)[0] != "performance" {
		t.Fatalf("degraded argument = %#v", args[12])
	}
	if args[13] != at {
		t.Fatalf("timestamp argument = %v", args[13])
	}
}

func TestWriteLeavesMissingProvabilityNull(t *testing.T) {
	db := &fakeExecer{}
	repo := NewReportRepository(db, zap.NewNop())

	if err := repo.Write(context.Background(), stats.Outcome{RequestID: "req-2", State: domain.StateFailed}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if p := db.calls[0].args[5].(sql.NullFloat64); p.Valid {
		t.Fatalf("expected NULL provability, got %#v", p)
	}
}

func TestWriteWrapsDriverErrors(t *testing.T) {
	db := &fakeExecer{err: errors.New("connection reset")}
	repo := NewReportRepository(db, zap.NewNop())

	err := repo.Write(context.Background(), stats.Outcome{RequestID: "req-3"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if appErr, ok := apperrors.As(err); !ok || appErr.Code != apperrors.CodeStore {
		t.Fatalf("expected store error, got %v", err)
	}
}
