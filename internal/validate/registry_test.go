package validate

import (
	"context"
	"errors"
	"testing"
	"time"

	"diagmend/internal/diagram"
)

type stubValidator struct {
	typ    string
	result diagram.ValidationResult
}

func (s *stubValidator) Type() string      { return s.typ }
func (s *stubValidator) IsAvailable() bool { return true }
func (s *stubValidator) Validate(context.Context, string) diagram.ValidationResult {
	return s.result
}
func (s *stubValidator) Render(context.Context, string) ([]byte, error) { return nil, nil }

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	want := &stubValidator{typ: "mermaid"}
	r.Register(want)

	got, err := r.Get("mermaid")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != want {
		t.Errorf("Get returned wrong validator")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("ascii-art")
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestRegistryReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubValidator{typ: "dot", result: diagram.ValidationResult{Valid: false}})
	replacement := &stubValidator{typ: "dot", result: diagram.ValidationResult{Valid: true}}
	r.Register(replacement)

	got, err := r.Get("dot")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !got.Validate(context.Background(), "").Valid {
		t.Errorf("registration did not replace prior validator")
	}
}

func TestRegistryTypes(t *testing.T) {
	r := NewRegistry()
	RegisterAllValidators(r, time.Second)

	got := r.Types()
	want := []string{"d2", "dot", "mermaid", "plantuml"}
	if len(got) != len(want) {
		t.Fatalf("Types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Types[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
