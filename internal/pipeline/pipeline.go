// Package pipeline wires extraction, validation, repair and AI correction
// into the per-response processing loop.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"diagmend/internal/config"
	"diagmend/internal/correct"
	"diagmend/internal/diagram"
	"diagmend/internal/logging"
	"diagmend/internal/repair"
	"diagmend/internal/validate"
)

// Result is the outcome of one pipeline run over a chat response.
type Result struct {
	FinalText string
	Outcomes  []diagram.Outcome
}

// Fixed reports how many blocks ended in a repaired or AI-corrected state.
func (r Result) Fixed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == diagram.StatusRepairedValid || o.Status == diagram.StatusAiCorrectedValid {
			n++
		}
	}
	return n
}

// Failed reports how many blocks exhausted every recovery budget.
func (r Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == diagram.StatusFailed {
			n++
		}
	}
	return n
}

// Runner drives diagram blocks through the validate/repair/correct state
// machine and reassembles the response text.
type Runner struct {
	cfg       *config.Config
	registry  *validate.Registry
	repairer  *repair.Repairer
	corrector *correct.Orchestrator
}

// NewRunner assembles a pipeline from its collaborators. corrector may wrap a
// nil LLM client; blocks needing AI correction then fail with a diagnostic
// instead of aborting the run.
func NewRunner(cfg *config.Config, registry *validate.Registry, repairer *repair.Repairer, corrector *correct.Orchestrator) *Runner {
	return &Runner{cfg: cfg, registry: registry, repairer: repairer, corrector: corrector}
}

// Run processes every diagram block in text and returns the reassembled
// response. Content anomalies never surface as an error: malformed or
// unfixable diagrams become Failed outcomes rendered as diagnostic sections,
// and text without diagrams comes back untouched.
//
// Blocks are handled concurrently, bounded by pipeline.max_workers; outcome
// order follows block order regardless of completion order.
func (r *Runner) Run(ctx context.Context, text string) Result {
	blocks := diagram.Extract(text, r.cfg.Pipeline.DiagramTypes)
	if len(blocks) == 0 {
		logging.PipelineDebug("no diagram blocks found, text passes through")
		return Result{FinalText: text}
	}
	logging.Pipeline("processing %d diagram block(s)", len(blocks))

	outcomes := make([]diagram.Outcome, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	workers := r.cfg.Pipeline.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, b := range blocks {
		g.Go(func() error {
			outcomes[i] = r.processBlock(gctx, b)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		logging.Pipeline("block %d (%s): %s", o.Block.Index, o.Block.Type, o.Status)
	}

	return Result{
		FinalText: Assemble(text, outcomes),
		Outcomes:  outcomes,
	}
}

// processBlock runs one block through the state machine:
// validate, bounded pattern repair, bounded AI correction, Failed.
func (r *Runner) processBlock(ctx context.Context, b diagram.Block) diagram.Outcome {
	outcome := diagram.Outcome{Block: b, FinalCode: b.Code}

	v, err := r.registry.Get(b.Type)
	if err != nil {
		// Extraction is driven by the configured type list, so a gap in the
		// registry is a wiring mistake. Pass the block through untouched.
		outcome.Status = diagram.StatusValid
		outcome.Diagnostics = append(outcome.Diagnostics, err.Error())
		return outcome
	}

	if cancelled(ctx, &outcome) {
		return outcome
	}

	vr := v.Validate(ctx, b.Code)
	if vr.Unavailable {
		outcome.Status = diagram.StatusValid
		outcome.Diagnostics = append(outcome.Diagnostics, "warning: "+vr.Message+"; block passed through unvalidated")
		return outcome
	}
	if vr.Valid {
		outcome.Status = diagram.StatusValid
		return outcome
	}
	outcome.Diagnostics = addDistinct(outcome.Diagnostics, vr.Message)

	// Pattern repair loop. Each attempt re-applies the rule chain to the
	// previous attempt's output; a pass that changes nothing ends the loop
	// early since further passes are no-ops.
	current := b.Code
	for attempt := 1; attempt <= r.cfg.Pipeline.MaxRepairAttempts; attempt++ {
		if cancelled(ctx, &outcome) {
			return outcome
		}

		ra := r.repairer.Repair(b.Type, current, attempt)
		outcome.Repairs = append(outcome.Repairs, ra)
		if !ra.Changed() {
			logging.RepairDebug("block %d attempt %d: no rule fired, stopping repair", b.Index, attempt)
			break
		}
		current = ra.Code

		vr = v.Validate(ctx, current)
		if vr.Valid {
			outcome.Status = diagram.StatusRepairedValid
			outcome.FinalCode = current
			return outcome
		}
		outcome.Diagnostics = addDistinct(outcome.Diagnostics, vr.Message)
	}

	if cancelled(ctx, &outcome) {
		return outcome
	}

	// AI correction loop, bounded per diagram type.
	res := r.corrector.Correct(ctx, b, current, outcome.Diagnostics, v, r.cfg.AIRetriesFor(b.Type))
	outcome.Rounds = res.Rounds
	outcome.Diagnostics = res.Diagnostics
	outcome.FinalCode = res.FinalCode

	if res.Corrected {
		outcome.Status = diagram.StatusAiCorrectedValid
		return outcome
	}

	outcome.Status = diagram.StatusFailed
	if len(outcome.Diagnostics) == 0 {
		outcome.Diagnostics = append(outcome.Diagnostics, "diagram failed validation and no fix was found")
	}
	return outcome
}

// cancelled marks the outcome Failed with a cancelled diagnostic when ctx is
// done, so interrupted blocks are reported rather than left undefined.
func cancelled(ctx context.Context, outcome *diagram.Outcome) bool {
	if ctx.Err() == nil {
		return false
	}
	outcome.Status = diagram.StatusFailed
	outcome.Diagnostics = addDistinct(outcome.Diagnostics, "cancelled before processing completed")
	return true
}

func addDistinct(list []string, msg string) []string {
	if msg == "" {
		return list
	}
	for _, existing := range list {
		if existing == msg {
			return list
		}
	}
	return append(list, msg)
}
