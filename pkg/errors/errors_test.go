package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAsFindsWrappedTypes(t *testing.T) {
	parseErr := NewParseError("unbalanced delimiter '}'", 3, 7)
	wrapped := fmt.Errorf("translate: %w", parseErr)

	appErr, ok := As(wrapped)
	if !ok {
		t.Fatalf("expected AppError in chain")
	}
	if appErr.StatusCode != http.StatusUnprocessableEntity || appErr.Code != CodeParse {
		t.Fatalf("unexpected mapping: %d %s", appErr.StatusCode, appErr.Code)
	}
	if appErr.Details != "line 3, column 7" {
		t.Fatalf("unexpected details: %q", appErr.Details)
	}

	var target *ParseError
	if !stderrors.As(wrapped, &target) || target.Line != 3 {
		t.Fatalf("expected ParseError via errors.As")
	}
}

func TestUnsupportedLanguageListsSupported(t *testing.T) {
	err := NewUnsupportedLanguageError("cobol", []string{"rust", "python"})
	if err.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", err.StatusCode)
	}
	if !strings.Contains(err.Details, "rust, python") {
		t.Fatalf("details should list languages: %q", err.Details)
	}
	if !strings.Contains(err.Error(), "cobol") {
		t.Fatalf("message should name the language: %q", err.Error())
	}
}

func TestAsRejectsPlainErrors(t *testing.T) {
	if _, ok := As(stderrors.New("boom")); ok {
		t.Fatalf("plain error must not map to AppError")
	}
	if _, ok := As(nil); ok {
		t.Fatalf("nil must not map to AppError")
	}
}

func TestStoreErrorUnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewStoreError("failed to record outcome", "redis", "hincrby", cause)
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestTimeoutErrorMapsTo504(t *testing.T) {
	err := NewTimeoutError("analyzing", 2*time.Second)
	if err.StatusCode != http.StatusGatewayTimeout || err.Code != CodeTimeout {
		t.Fatalf("unexpected mapping: %d %s", err.StatusCode, err.Code)
	}
}
