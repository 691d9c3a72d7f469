package util

import (
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute, zap.NewNop())
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	if !cb.CanExecute() {
		t.Fatalf("one failure must not open the circuit")
	}
	cb.RecordFailure()
	if cb.CanExecute() || cb.GetState() != CircuitStateOpen {
		t.Fatalf("expected open circuit, got %s", cb.GetState())
	}

	now = now.Add(time.Minute)
	if !cb.CanExecute() {
		t.Fatalf("expected a probe after the reset timeout")
	}
	if cb.CanExecute() {
		t.Fatalf("only one probe may run in half-open state")
	}
	cb.RecordSuccess()
	if cb.GetState() != CircuitStateClosed || !cb.CanExecute() {
		t.Fatalf("expected closed circuit after a successful probe, got %s", cb.GetState())
	}
}

func TestCircuitBreakerReopensOnFailedProbe(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(1, time.Second, nil)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(2 * time.Second)
	if !cb.CanExecute() {
		t.Fatalf("expected a probe")
	}
	cb.RecordFailure()
	if cb.GetState() != CircuitStateOpen {
		t.Fatalf("failed probe must reopen, got %s", cb.GetState())
	}

	cb.Reset()
	if cb.GetState() != CircuitStateClosed {
		t.Fatalf("Reset must close the circuit")
	}
}

func TestStringHelpers(t *testing.T) {
	if got := TruncateString("héllo world", 5); got != "héllo..." {
		t.Fatalf("TruncateString = %q", got)
	}
	if got := Normalize("  Python "); got != "python" {
		t.Fatalf("Normalize = %q", got)
	}
	if !Contains([]string{"a", "b"}, "b") || Contains(nil, "a") {
		t.Fatalf("Contains mismatch")
	}
	if Clamp(2, 0, 1) != 1 || Round(0.12345, 3) != 0.123 || Max(2, 3) != 3 {
		t.Fatalf("math helpers mismatch")
	}
}

func TestLoggerWritesToFile(t *testing.T) {
	path := t.TempDir() + "/logs/app.log"
	logger, err := NewCLILogger("WARN", path)
	if err != nil {
		t.Fatalf("NewCLILogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "WARN | ") {
		t.Fatalf("unexpected log contents %q", data)
	}
	if parseLevel(" debug ") != zapcore.DebugLevel || parseLevel("bogus") != zapcore.InfoLevel {
		t.Fatalf("parseLevel mismatch")
	}
}
