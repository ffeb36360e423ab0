package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := NotFound("tasks.get", "task %s not found", "T1")
	wrapped := fmt.Errorf("load task: %w", base)

	kind, ok := KindOf(wrapped)
	if !ok || kind != KindNotFound {
		t.Fatalf("expected not_found, got %v (ok=%v)", kind, ok)
	}
	if !IsKind(wrapped, KindNotFound) {
		t.Error("IsKind should see through fmt wrapping")
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("boom")); ok {
		t.Error("plain errors carry no kind")
	}
}

func TestSentinelComparison(t *testing.T) {
	sentinel := Validation("", "points already awarded: task already completed")
	err := fmt.Errorf("grant: %w", sentinel)
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to match the sentinel")
	}
	other := Validation("", "something else")
	if errors.Is(err, other) {
		t.Error("different message must not match")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("op", "missing"), http.StatusNotFound},
		{Validation("op", "bad"), http.StatusBadRequest},
		{Forbidden("op", "nope"), http.StatusForbidden},
		{Transient("op", "later"), http.StatusServiceUnavailable},
		{Fatal("op", "broken"), http.StatusInternalServerError},
		{errors.New("untyped"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestError_Message(t *testing.T) {
	err := Wrap(KindTransient, "ledger.append", errors.New("connection reset"))
	if got := err.Error(); got != "ledger.append: connection reset" {
		t.Errorf("unexpected message %q", got)
	}
}
