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

// PlantUMLValidator validates plantuml source with the plantuml CLI in
// syntax-check mode, which reads from stdin and reports errors without
// rendering.
type PlantUMLValidator struct {
	r runner
}

func NewPlantUMLValidator(timeout time.Duration) *PlantUMLValidator {
	return &PlantUMLValidator{r: runner{binary: "plantuml", timeout: timeout}}
}

func (v *PlantUMLValidator) Type() string      { return "plantuml" }
func (v *PlantUMLValidator) IsAvailable() bool { return v.r.available() }

func (v *PlantUMLValidator) Validate(ctx context.Context, code string) diagram.ValidationResult {
	if !v.r.available() {
		return unavailableResult(v.r.binary)
	}
	dir, cleanup, err := workspace()
	if err != nil {
		return diagram.ValidationResult{Valid: false, Message: err.Error()}
	}
	defer cleanup()

	res := v.r.run(ctx, dir, code, "-syntax", "-pipe")
	if res.timedOut {
		return diagram.ValidationResult{Valid: false, Message: TimeoutMessage}
	}
	// plantuml -syntax exits 0 even for bad input; the verdict is on stdout.
	// First line is the diagram kind on success or "ERROR" on failure.
	out := strings.TrimSpace(res.stdout)
	if res.exitErr != nil {
		return resultFrom(res, func(r runResult) string {
			return firstErrorLine(r.stderr + "\n" + r.stdout)
		})
	}
	if strings.HasPrefix(out, "ERROR") {
		return diagram.ValidationResult{Valid: false, Message: plantumlMessage(out)}
	}
	return diagram.ValidationResult{Valid: true}
}

func (v *PlantUMLValidator) Render(ctx context.Context, code string) ([]byte, error) {
	if !v.r.available() {
		return nil, fmt.Errorf("plantuml not found on PATH")
	}
	dir, cleanup, err := workspace()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	in, err := writeInput(dir, "diagram.puml", code)
	if err != nil {
		return nil, err
	}
	res := v.r.run(ctx, dir, "", "-tsvg", in)
	if res.timedOut {
		return nil, fmt.Errorf("plantuml render timed out")
	}
	if res.exitErr != nil {
		return nil, fmt.Errorf("plantuml render failed: %s", firstErrorLine(res.stderr+res.stdout))
	}
	return os.ReadFile(filepath.Join(dir, "diagram.svg"))
}

// plantumlMessage reshapes "ERROR\n<line>\n<description>" syntax output into
// a single message carrying the line number.
func plantumlMessage(out string) string {
	lines := strings.Split(out, "\n")
	if len(lines) >= 3 {
		return fmt.Sprintf("syntax error at line %s: %s",
			strings.TrimSpace(lines[1]), strings.TrimSpace(lines[2]))
	}
	return out
}
