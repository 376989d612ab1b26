package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"diagmend/internal/diagram"
)

// MermaidValidator validates mermaid source by compiling it with the mermaid
// CLI (mmdc). mmdc has no syntax-only mode, so validation renders to SVG in a
// throwaway workspace.
type MermaidValidator struct {
	r runner
}

// NewMermaidValidator builds a validator backed by the mmdc executable.
func NewMermaidValidator(timeout time.Duration) *MermaidValidator {
	return &MermaidValidator{r: runner{binary: "mmdc", timeout: timeout}}
}

func (v *MermaidValidator) Type() string      { return "mermaid" }
func (v *MermaidValidator) IsAvailable() bool { return v.r.available() }

func (v *MermaidValidator) Validate(ctx context.Context, code string) diagram.ValidationResult {
	if !v.r.available() {
		return unavailableResult(v.r.binary)
	}
	dir, cleanup, err := workspace()
	if err != nil {
		return diagram.ValidationResult{Valid: false, Message: err.Error()}
	}
	defer cleanup()

	in, err := writeInput(dir, "diagram.mmd", code)
	if err != nil {
		return diagram.ValidationResult{Valid: false, Message: err.Error()}
	}
	out := filepath.Join(dir, "diagram.svg")
	res := v.r.run(ctx, dir, "", "-i", in, "-o", out, "--quiet")
	return resultFrom(res, mermaidMessage)
}

func (v *MermaidValidator) Render(ctx context.Context, code string) ([]byte, error) {
	if !v.r.available() {
		return nil, fmt.Errorf("mmdc not found on PATH")
	}
	dir, cleanup, err := workspace()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	in, err := writeInput(dir, "diagram.mmd", code)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "diagram.svg")
	res := v.r.run(ctx, dir, "", "-i", in, "-o", out, "--quiet")
	if res.timedOut {
		return nil, fmt.Errorf("mermaid render timed out")
	}
	if res.exitErr != nil {
		return nil, fmt.Errorf("mermaid render failed: %s", firstErrorLine(res.stderr+res.stdout))
	}
	return os.ReadFile(out)
}

// mermaidMessage isolates the parse error from mmdc output. mmdc prints the
// failing line and a caret marker before a "Parse error" summary; the summary
// plus the marked line is the useful part.
func mermaidMessage(res runResult) string {
	combined := res.stderr + "\n" + res.stdout
	var keep []string
	for _, line := range strings.Split(combined, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, "Parse error") ||
			strings.Contains(trimmed, "Expecting") ||
			strings.Contains(trimmed, "Syntax error") ||
			strings.HasPrefix(trimmed, "Error:") {
			keep = append(keep, trimmed)
		}
	}
	if len(keep) == 0 {
		return firstErrorLine(combined)
	}
	return strings.Join(keep, "\n")
}
