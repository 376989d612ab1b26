package validate

import (
	"context"
	"fmt"
	"time"

	"diagmend/internal/diagram"
)

// GraphvizValidator validates DOT source with the Graphviz dot binary.
// -Tcanon parses and normalizes without a full layout pass, so it is the
// cheapest syntax check dot offers.
type GraphvizValidator struct {
	r runner
}

func NewGraphvizValidator(timeout time.Duration) *GraphvizValidator {
	return &GraphvizValidator{r: runner{binary: "dot", timeout: timeout}}
}

func (v *GraphvizValidator) Type() string      { return "dot" }
func (v *GraphvizValidator) IsAvailable() bool { return v.r.available() }

func (v *GraphvizValidator) Validate(ctx context.Context, code string) diagram.ValidationResult {
	if !v.r.available() {
		return unavailableResult(v.r.binary)
	}
	dir, cleanup, err := workspace()
	if err != nil {
		return diagram.ValidationResult{Valid: false, Message: err.Error()}
	}
	defer cleanup()

	res := v.r.run(ctx, dir, code, "-Tcanon", "-o", "/dev/null")
	return resultFrom(res, func(r runResult) string {
		return firstErrorLine(r.stderr)
	})
}

func (v *GraphvizValidator) Render(ctx context.Context, code string) ([]byte, error) {
	if !v.r.available() {
		return nil, fmt.Errorf("dot not found on PATH")
	}
	dir, cleanup, err := workspace()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	res := v.r.run(ctx, dir, code, "-Tsvg")
	if res.timedOut {
		return nil, fmt.Errorf("dot render timed out")
	}
	if res.exitErr != nil {
		return nil, fmt.Errorf("dot render failed: %s", firstErrorLine(res.stderr))
	}
	return []byte(res.stdout), nil
}
