// Package validate wraps the external diagram validator CLIs behind a common
// adapter interface. Each adapter invokes its tool as a subprocess with a
// bounded timeout and a per-invocation temporary workspace.
package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"diagmend/internal/diagram"
	"diagmend/internal/logging"
)

// ErrUnknownType is returned when no validator is registered for a diagram type.
var ErrUnknownType = errors.New("no validator registered for diagram type")

// TimeoutMessage is the error message reported when a validator run exceeds
// its deadline. The pipeline treats it as a consumed attempt, not a retry.
const TimeoutMessage = "validation timed out"

// Validator checks syntactic validity of one diagram grammar.
type Validator interface {
	// Type returns the diagram type tag this validator handles.
	Type() string
	// IsAvailable reports whether the underlying executable exists on the host.
	IsAvailable() bool
	// Validate runs the external tool against code. It never returns an
	// error: tool failures, timeouts and unavailability are all expressed
	// in the result.
	Validate(ctx context.Context, code string) diagram.ValidationResult
	// Render produces a rendered artifact (SVG bytes) for downstream display.
	Render(ctx context.Context, code string) ([]byte, error)
}

// runner executes one external binary with a timeout. It is shared by all
// adapters in this package.
type runner struct {
	binary  string
	timeout time.Duration

	availOnce sync.Once
	avail     bool
}

// available checks the binary exists on PATH. The result is cached; validators
// are re-created per pipeline construction, not per block.
func (r *runner) available() bool {
	r.availOnce.Do(func() {
		_, err := exec.LookPath(r.binary)
		r.avail = err == nil
	})
	return r.avail
}

// runResult carries the raw subprocess outcome back to the adapter.
type runResult struct {
	stdout   string
	stderr   string
	exitErr  error
	timedOut bool
}

// run executes the binary with args inside dir, feeding stdin if non-empty.
// The subprocess is killed when the deadline passes or ctx is cancelled.
func (r *runner) run(ctx context.Context, dir string, stdin string, args ...string) runResult {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.binary, args...)
	cmd.Dir = dir
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logging.ValidateDebug("%s %v: %v in %v", r.binary, args, err, time.Since(start))

	return runResult{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		exitErr:  err,
		timedOut: runCtx.Err() == context.DeadlineExceeded,
	}
}

// workspace creates a uniquely named temporary directory for one validator
// invocation. Unique names let concurrent invocations coexist; the returned
// cleanup must be deferred so artifacts are removed on every exit path.
func workspace() (string, func(), error) {
	dir := filepath.Join(os.TempDir(), "diagmend-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", nil, fmt.Errorf("failed to create validator workspace: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// writeInput writes code to a named file inside the workspace.
func writeInput(dir, name, code string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(code), 0600); err != nil {
		return "", fmt.Errorf("failed to write validator input: %w", err)
	}
	return path, nil
}

// resultFrom converts a raw subprocess outcome into a ValidationResult using
// the adapter-supplied message extractor.
func resultFrom(res runResult, message func(runResult) string) diagram.ValidationResult {
	if res.timedOut {
		return diagram.ValidationResult{Valid: false, Message: TimeoutMessage}
	}
	if res.exitErr == nil {
		return diagram.ValidationResult{Valid: true}
	}
	msg := strings.TrimSpace(message(res))
	if msg == "" {
		msg = fmt.Sprintf("validator exited with error: %v", res.exitErr)
	}
	return diagram.ValidationResult{Valid: false, Message: msg}
}

// unavailableResult is the pass-through outcome for a missing executable.
func unavailableResult(binary string) diagram.ValidationResult {
	logging.ValidateWarn("validator binary %q not found; passing block through unvalidated", binary)
	return diagram.ValidationResult{
		Valid:       false,
		Unavailable: true,
		Message:     fmt.Sprintf("validator %q not found on PATH", binary),
	}
}

// firstErrorLine trims tool output down to its first meaningful line.
// Validator CLIs tend to print usage noise after the actual error.
func firstErrorLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return line
	}
	return ""
}
