package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("name is required"), KindValidation},
		{"not found", NotFound("session %q not found", "x"), KindNotFound},
		{"conflict", Conflict("duplicate"), KindConflict},
		{"storage", Storage("insert session", cause), KindStorage},
		{"upstream", Upstream("AI service unavailable", nil), KindUpstream},
		{"wrapped", fmt.Errorf("handler: %w", NotFound("gone")), KindNotFound},
		{"untyped", errors.New("boom"), KindStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(NotFound("session %q not found", "s1")); got != `session "s1" not found` {
		t.Errorf("unexpected message: %q", got)
	}
	// Untyped errors must not leak their text to clients.
	if got := MessageOf(errors.New("sqlite: table locked")); got != "internal error" {
		t.Errorf("expected generic message, got %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("insert session", cause)
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() != "insert session: disk full" {
		t.Errorf("unexpected Error(): %q", err.Error())
	}
}
