package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"diagmend/internal/config"
	"diagmend/internal/correct"
	"diagmend/internal/diagram"
	"diagmend/internal/repair"
	"diagmend/internal/validate"
)

func TestMain(m *testing.M) {
	// go.opencensus.io starts a permanent stats worker goroutine in its
	// package init; it is not something the code under test can stop.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// fakeValidator delegates to a func so tests control validity per code string.
type fakeValidator struct {
	typ         string
	unavailable bool
	validate    func(code string) diagram.ValidationResult
	calls       atomic.Int64
}

func (f *fakeValidator) Type() string      { return f.typ }
func (f *fakeValidator) IsAvailable() bool { return !f.unavailable }
func (f *fakeValidator) Validate(_ context.Context, code string) diagram.ValidationResult {
	f.calls.Add(1)
	if f.unavailable {
		return diagram.ValidationResult{Valid: false, Unavailable: true, Message: "validator \"mmdc\" not found on PATH"}
	}
	return f.validate(code)
}
func (f *fakeValidator) Render(context.Context, string) ([]byte, error) { return nil, nil }

// mockClient implements perception.LLMClient with a function field.
type mockClient struct {
	CompleteWithSystemFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *mockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.CompleteWithSystemFunc != nil {
		return m.CompleteWithSystemFunc(ctx, systemPrompt, userPrompt)
	}
	return "", fmt.Errorf("no mock configured")
}

// acceptOnly builds a validate func that accepts exactly one code string.
func acceptOnly(good string) func(string) diagram.ValidationResult {
	return func(code string) diagram.ValidationResult {
		if strings.TrimSpace(code) == strings.TrimSpace(good) {
			return diagram.ValidationResult{Valid: true}
		}
		return diagram.ValidationResult{Valid: false, Message: "Parse error on line 2"}
	}
}

func newTestRunner(v validate.Validator, client *mockClient) *Runner {
	cfg := config.DefaultConfig()
	cfg.Pipeline.DiagramTypes = []string{"mermaid", "dot"}
	cfg.Pipeline.MaxWorkers = 2

	registry := validate.NewRegistry()
	registry.Register(v)

	var orch *correct.Orchestrator
	if client != nil {
		orch = correct.NewOrchestrator(client)
	} else {
		orch = correct.NewOrchestrator(nil)
	}
	return NewRunner(cfg, registry, repair.NewRepairer(), orch)
}

const goodMermaid = "flowchart TD\nA --> B"

func TestRunValidBlockUntouched(t *testing.T) {
	v := &fakeValidator{typ: "mermaid", validate: acceptOnly(goodMermaid)}
	r := newTestRunner(v, nil)

	text := "Here is the flow:\n\n```mermaid\n" + goodMermaid + "\n```\n\nDone."
	res := r.Run(context.Background(), text)

	if res.FinalText != text {
		t.Errorf("valid input rewritten:\n%q\n%q", text, res.FinalText)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Status != diagram.StatusValid {
		t.Errorf("outcomes = %+v", res.Outcomes)
	}
}

func TestRunValidBlockFenceVariantUntouched(t *testing.T) {
	// Tolerated fence variants (trailing blanks after the tag, indented
	// closing fence) must survive byte-identical when the code is valid.
	v := &fakeValidator{typ: "mermaid", validate: acceptOnly(goodMermaid)}
	r := newTestRunner(v, nil)

	text := "```mermaid  \n" + goodMermaid + "\n  ```\n"
	res := r.Run(context.Background(), text)

	if res.FinalText != text {
		t.Errorf("fence variant normalized:\n%q\n%q", text, res.FinalText)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Status != diagram.StatusValid {
		t.Errorf("outcomes = %+v", res.Outcomes)
	}
}

func TestRunNoDiagramsPassThrough(t *testing.T) {
	v := &fakeValidator{typ: "mermaid", validate: acceptOnly(goodMermaid)}
	r := newTestRunner(v, nil)

	text := "Just prose.\n\n```go\nfunc main() {}\n```\n"
	res := r.Run(context.Background(), text)

	if res.FinalText != text {
		t.Errorf("text without diagrams modified")
	}
	if len(res.Outcomes) != 0 {
		t.Errorf("outcomes = %d, want 0", len(res.Outcomes))
	}
	if v.calls.Load() != 0 {
		t.Errorf("validator called %d times for non-diagram text", v.calls.Load())
	}
}

func TestRunPatternRepair(t *testing.T) {
	v := &fakeValidator{typ: "mermaid", validate: acceptOnly(goodMermaid)}
	r := newTestRunner(v, nil)

	text := "Before.\n\n```mermaid\nflowchart TD\nA -> B\n```\n\nAfter."
	res := r.Run(context.Background(), text)

	o := res.Outcomes[0]
	if o.Status != diagram.StatusRepairedValid {
		t.Fatalf("status = %s, diagnostics = %v", o.Status, o.Diagnostics)
	}
	if strings.TrimSpace(o.FinalCode) != goodMermaid {
		t.Errorf("FinalCode = %q", o.FinalCode)
	}
	want := "Before.\n\n```mermaid\n" + goodMermaid + "\n```\n\nAfter."
	if res.FinalText != want {
		t.Errorf("FinalText = %q, want %q", res.FinalText, want)
	}
}

func TestRunAICorrection(t *testing.T) {
	// The repairer cannot invent a node name, so rules alone cannot reach
	// the accepted form and the AI loop has to run.
	good := "flowchart TD\nA --> Billing"
	v := &fakeValidator{typ: "mermaid", validate: acceptOnly(good)}
	client := &mockClient{
		CompleteWithSystemFunc: func(_ context.Context, _, _ string) (string, error) {
			return "```mermaid\n" + good + "\n```", nil
		},
	}
	r := newTestRunner(v, client)

	text := "```mermaid\nflowchart TD\nA --> Biling[\n```"
	res := r.Run(context.Background(), text)

	o := res.Outcomes[0]
	if o.Status != diagram.StatusAiCorrectedValid {
		t.Fatalf("status = %s, diagnostics = %v", o.Status, o.Diagnostics)
	}
	if len(o.Rounds) != 1 {
		t.Errorf("Rounds = %d, want 1", len(o.Rounds))
	}
	if !strings.Contains(res.FinalText, good) {
		t.Errorf("FinalText = %q", res.FinalText)
	}
}

func TestRunExhaustedRetriesFailed(t *testing.T) {
	v := &fakeValidator{typ: "mermaid", validate: acceptOnly("unreachable")}
	round := 0
	client := &mockClient{
		CompleteWithSystemFunc: func(_ context.Context, _, _ string) (string, error) {
			round++
			return fmt.Sprintf("```mermaid\nbroken attempt %d\n```", round), nil
		},
	}
	r := newTestRunner(v, client)

	text := "Intro text.\n\n```mermaid\nflowchart TD\nA -> B\n```\n\nOutro text."
	res := r.Run(context.Background(), text)

	o := res.Outcomes[0]
	if o.Status != diagram.StatusFailed {
		t.Fatalf("status = %s", o.Status)
	}
	if len(o.Diagnostics) == 0 {
		t.Fatal("failed block has empty diagnostics")
	}
	if round != config.DefaultConfig().AIRetriesFor("mermaid") {
		t.Errorf("AI rounds = %d, want configured budget", round)
	}
	if !strings.Contains(o.FinalCode, "broken attempt") {
		t.Errorf("FinalCode = %q, want last attempt", o.FinalCode)
	}

	if !strings.Contains(res.FinalText, "could not be fixed automatically") {
		t.Error("diagnostic header missing")
	}
	if !strings.Contains(res.FinalText, "Parse error on line 2") {
		t.Error("validator error missing from diagnostic section")
	}
	if !strings.Contains(res.FinalText, o.FinalCode) {
		t.Error("last-attempted code missing from diagnostic section")
	}
	if !strings.HasPrefix(res.FinalText, "Intro text.\n\n") || !strings.HasSuffix(res.FinalText, "\n\nOutro text.") {
		t.Error("prose outside the block was modified")
	}
}

func TestRunValidatorUnavailable(t *testing.T) {
	v := &fakeValidator{typ: "mermaid", unavailable: true}
	r := newTestRunner(v, nil)

	text := "```mermaid\nflowchart TD\nA -> B\n```"
	res := r.Run(context.Background(), text)

	o := res.Outcomes[0]
	if o.Status != diagram.StatusValid {
		t.Fatalf("status = %s, want pass-through", o.Status)
	}
	if len(o.Diagnostics) != 1 || !strings.Contains(o.Diagnostics[0], "not found") {
		t.Errorf("Diagnostics = %v, want single warning", o.Diagnostics)
	}
	if res.FinalText != text {
		t.Errorf("pass-through rewrote text: %q", res.FinalText)
	}
}

func TestRunBlockIndependence(t *testing.T) {
	good := "digraph G { a -> b }"
	mermaidV := &fakeValidator{typ: "mermaid", validate: acceptOnly("unreachable")}
	dotV := &fakeValidator{typ: "dot", validate: acceptOnly(good)}

	cfg := config.DefaultConfig()
	cfg.Pipeline.DiagramTypes = []string{"mermaid", "dot"}
	registry := validate.NewRegistry()
	registry.Register(mermaidV)
	registry.Register(dotV)
	r := NewRunner(cfg, registry, repair.NewRepairer(), correct.NewOrchestrator(nil))

	text := "```mermaid\nhopeless\n```\n\nmiddle\n\n```dot\n" + good + "\n```"
	res := r.Run(context.Background(), text)

	if len(res.Outcomes) != 2 {
		t.Fatalf("outcomes = %d", len(res.Outcomes))
	}
	if res.Outcomes[0].Status != diagram.StatusFailed {
		t.Errorf("block 0 status = %s", res.Outcomes[0].Status)
	}
	if res.Outcomes[1].Status != diagram.StatusValid {
		t.Errorf("block 1 status = %s, failure leaked across blocks", res.Outcomes[1].Status)
	}
	if !strings.Contains(res.FinalText, "\n\nmiddle\n\n") {
		t.Error("prose between blocks modified")
	}
	if !strings.Contains(res.FinalText, "```dot\n"+good+"\n```") {
		t.Error("valid sibling block rewritten")
	}
}

func TestRunCancelledContext(t *testing.T) {
	v := &fakeValidator{typ: "mermaid", validate: acceptOnly(goodMermaid)}
	r := newTestRunner(v, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Run(ctx, "```mermaid\nflowchart TD\nA -> B\n```")
	o := res.Outcomes[0]
	if o.Status != diagram.StatusFailed {
		t.Fatalf("status = %s, want Failed on cancellation", o.Status)
	}
	found := false
	for _, d := range o.Diagnostics {
		if strings.Contains(d, "cancelled") {
			found = true
		}
	}
	if !found {
		t.Errorf("Diagnostics = %v, want cancelled diagnostic", o.Diagnostics)
	}
}

func TestRunRepairLoopStopsWhenNoRuleFires(t *testing.T) {
	// Code no built-in rule touches: repair should run once, change nothing
	// and hand off to AI immediately instead of burning all attempts.
	v := &fakeValidator{typ: "mermaid", validate: acceptOnly("unreachable")}
	r := newTestRunner(v, nil)

	res := r.Run(context.Background(), "```mermaid\nsequenceDiagram\n  A->>B: hi\n```")
	o := res.Outcomes[0]
	if len(o.Repairs) != 1 {
		t.Errorf("Repairs = %d, want early stop after one no-op pass", len(o.Repairs))
	}
	if o.Status != diagram.StatusFailed {
		t.Errorf("status = %s", o.Status)
	}
}
