package validate

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// installStub writes an executable shell script named binary into a temp dir
// and prepends that dir to PATH for the duration of the test.
func installStub(t *testing.T, binary, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub executables require a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, binary)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRunnerSuccess(t *testing.T) {
	installStub(t, "stub-ok", "exit 0")
	r := &runner{binary: "stub-ok", timeout: 5 * time.Second}
	if !r.available() {
		t.Fatal("stub binary not found on PATH")
	}
	res := r.run(context.Background(), t.TempDir(), "")
	if res.exitErr != nil {
		t.Errorf("expected success, got %v", res.exitErr)
	}
	if res.timedOut {
		t.Error("run reported a timeout on a fast exit")
	}
}

func TestRunnerFailureCapturesStderr(t *testing.T) {
	installStub(t, "stub-fail", `echo "line 3: bad arrow" >&2; exit 1`)
	r := &runner{binary: "stub-fail", timeout: 5 * time.Second}
	res := r.run(context.Background(), t.TempDir(), "")
	if res.exitErr == nil {
		t.Fatal("expected exit error")
	}
	if !strings.Contains(res.stderr, "bad arrow") {
		t.Errorf("stderr = %q, want validator message", res.stderr)
	}
}

func TestRunnerTimeout(t *testing.T) {
	installStub(t, "stub-slow", "sleep 10")
	r := &runner{binary: "stub-slow", timeout: 100 * time.Millisecond}
	res := r.run(context.Background(), t.TempDir(), "")
	if !res.timedOut {
		t.Fatal("expected timeout")
	}
	vr := resultFrom(res, func(runResult) string { return "" })
	if vr.Valid {
		t.Error("timed out run reported valid")
	}
	if vr.Message != TimeoutMessage {
		t.Errorf("Message = %q, want %q", vr.Message, TimeoutMessage)
	}
}

func TestRunnerStdin(t *testing.T) {
	installStub(t, "stub-cat", "cat")
	r := &runner{binary: "stub-cat", timeout: 5 * time.Second}
	res := r.run(context.Background(), t.TempDir(), "digraph G {}")
	if res.exitErr != nil {
		t.Fatalf("run failed: %v", res.exitErr)
	}
	if res.stdout != "digraph G {}" {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestValidatorUnavailable(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	v := NewGraphvizValidator(time.Second)
	if v.IsAvailable() {
		t.Fatal("dot reported available on an empty PATH")
	}
	res := v.Validate(context.Background(), "digraph G {}")
	if !res.Unavailable {
		t.Error("result not marked unavailable")
	}
	if res.Valid {
		t.Error("unavailable validator reported valid")
	}
}

func TestGraphvizValidateWithStub(t *testing.T) {
	installStub(t, "dot", `read _ 2>/dev/null; exit 0`)
	v := NewGraphvizValidator(5 * time.Second)
	res := v.Validate(context.Background(), "digraph G { a -> b }")
	if !res.Valid {
		t.Errorf("expected valid, got %+v", res)
	}
}

func TestGraphvizValidateError(t *testing.T) {
	installStub(t, "dot", `echo "Error: syntax error in line 2 near '->'" >&2; exit 1`)
	v := NewGraphvizValidator(5 * time.Second)
	res := v.Validate(context.Background(), "digraph G { a -> }")
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if !strings.Contains(res.Message, "syntax error in line 2") {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestWorkspaceCleanup(t *testing.T) {
	dir, cleanup, err := workspace()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("workspace dir missing: %v", err)
	}
	if _, err := writeInput(dir, "in.txt", "hello"); err != nil {
		t.Fatal(err)
	}
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("workspace not removed after cleanup")
	}
}

func TestPlantumlMessage(t *testing.T) {
	out := "ERROR\n3\nSyntax Error?"
	got := plantumlMessage(out)
	if got != "syntax error at line 3: Syntax Error?" {
		t.Errorf("plantumlMessage = %q", got)
	}
}

func TestMermaidMessage(t *testing.T) {
	res := runResult{stderr: "Generating single mermaid chart\nError: Parse error on line 2:\nExpecting 'SEMI', 'NEWLINE', got 'EOF'\n"}
	got := mermaidMessage(res)
	if !strings.Contains(got, "Parse error on line 2") {
		t.Errorf("mermaidMessage dropped parse error: %q", got)
	}
	if !strings.Contains(got, "Expecting") {
		t.Errorf("mermaidMessage dropped expectation detail: %q", got)
	}
	if strings.Contains(got, "Generating") {
		t.Errorf("mermaidMessage kept progress noise: %q", got)
	}
}
