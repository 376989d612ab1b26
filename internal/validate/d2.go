package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"diagmend/internal/diagram"
)

// D2Validator validates d2 source with the d2 CLI. There is no dedicated
// syntax mode, so validation compiles to SVG in a throwaway workspace.
type D2Validator struct {
	r runner
}

func NewD2Validator(timeout time.Duration) *D2Validator {
	return &D2Validator{r: runner{binary: "d2", timeout: timeout}}
}

func (v *D2Validator) Type() string      { return "d2" }
func (v *D2Validator) IsAvailable() bool { return v.r.available() }

func (v *D2Validator) Validate(ctx context.Context, code string) diagram.ValidationResult {
	if !v.r.available() {
		return unavailableResult(v.r.binary)
	}
	dir, cleanup, err := workspace()
	if err != nil {
		return diagram.ValidationResult{Valid: false, Message: err.Error()}
	}
	defer cleanup()

	in, err := writeInput(dir, "diagram.d2", code)
	if err != nil {
		return diagram.ValidationResult{Valid: false, Message: err.Error()}
	}
	res := v.r.run(ctx, dir, "", in, filepath.Join(dir, "diagram.svg"))
	return resultFrom(res, func(r runResult) string {
		return firstErrorLine(r.stderr)
	})
}

func (v *D2Validator) Render(ctx context.Context, code string) ([]byte, error) {
	if !v.r.available() {
		return nil, fmt.Errorf("d2 not found on PATH")
	}
	dir, cleanup, err := workspace()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	in, err := writeInput(dir, "diagram.d2", code)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "diagram.svg")
	res := v.r.run(ctx, dir, "", in, out)
	if res.timedOut {
		return nil, fmt.Errorf("d2 render timed out")
	}
	if res.exitErr != nil {
		return nil, fmt.Errorf("d2 render failed: %s", firstErrorLine(res.stderr))
	}
	return os.ReadFile(out)
}
