// Package correct runs the bounded AI correction loop for diagram blocks the
// pattern repairer could not fix.
package correct

import (
	"context"
	"fmt"
	"strings"

	"diagmend/internal/diagram"
	"diagmend/internal/logging"
	"diagmend/internal/perception"
	"diagmend/internal/validate"
)

// Result is the outcome of one correction loop over a single block.
type Result struct {
	Rounds      []diagram.CorrectionRound
	FinalCode   string // last code attempted, valid when Corrected
	Corrected   bool
	Diagnostics []string // distinct errors accumulated across rounds
}

// Orchestrator drives the request/validate cycle against an LLM.
type Orchestrator struct {
	client perception.LLMClient
}

// NewOrchestrator wraps an LLM client. A nil client is allowed; Correct then
// fails immediately with a diagnostic, which the pipeline renders as an
// unfixable block.
func NewOrchestrator(client perception.LLMClient) *Orchestrator {
	return &Orchestrator{client: client}
}

// Correct asks the model to fix code until it validates or maxRounds is
// exhausted. errs seeds the error history with what validation and repair
// already found. Provider faults and truncated replies consume a round and
// never abort the loop.
func (o *Orchestrator) Correct(ctx context.Context, block diagram.Block, code string, errs []string, v validate.Validator, maxRounds int) Result {
	result := Result{FinalCode: code, Diagnostics: append([]string(nil), errs...)}

	if o.client == nil {
		result.Diagnostics = appendDistinct(result.Diagnostics, "ai correction unavailable: no LLM provider configured")
		return result
	}

	current := code
	for round := 1; round <= maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			result.Diagnostics = appendDistinct(result.Diagnostics, "correction cancelled: "+err.Error())
			return result
		}

		prompt := buildCorrectionPrompt(block.Type, current, result.Diagnostics, round)
		cr := diagram.CorrectionRound{Round: round, Prompt: prompt}

		reply, err := o.client.CompleteWithSystem(ctx, systemPrompt, prompt)
		if err != nil {
			logging.CorrectWarn("block %d round %d: provider fault: %v", block.Index, round, err)
			cr.Validation = diagram.ValidationResult{Valid: false, Message: "provider fault: " + err.Error()}
			result.Rounds = append(result.Rounds, cr)
			result.Diagnostics = appendDistinct(result.Diagnostics, fmt.Sprintf("round %d: provider fault: %v", round, err))
			continue
		}
		cr.Reply = reply

		extracted := extractDiagram(reply, block.Type)
		cr.Code = extracted

		if looksTruncated(reply, extracted, current) {
			logging.CorrectWarn("block %d round %d: reply looks truncated, discarding", block.Index, round)
			cr.Truncated = true
			cr.Validation = diagram.ValidationResult{Valid: false, Message: "reply truncated"}
			result.Rounds = append(result.Rounds, cr)
			result.Diagnostics = appendDistinct(result.Diagnostics, fmt.Sprintf("round %d: reply truncated", round))
			continue
		}

		vr := v.Validate(ctx, extracted)
		cr.Validation = vr
		result.Rounds = append(result.Rounds, cr)
		result.FinalCode = extracted

		if vr.Valid {
			logging.Correct("block %d corrected in %d round(s)", block.Index, round)
			result.Corrected = true
			return result
		}

		logging.CorrectDebug("block %d round %d: still invalid: %s", block.Index, round, vr.Message)
		result.Diagnostics = appendDistinct(result.Diagnostics, vr.Message)
		current = extracted
	}

	logging.Correct("block %d: exhausted %d correction round(s)", block.Index, maxRounds)
	return result
}

// extractDiagram pulls the diagram source out of a model reply. Preference
// order: a fence tagged with the block's type, then any fenced block, then
// the raw reply. Models sometimes answer with bare code despite being told
// to fence it.
func extractDiagram(reply, diagramType string) string {
	blocks := diagram.Extract(reply, []string{diagramType})
	if len(blocks) > 0 {
		return blocks[0].Code
	}
	if code, ok := anyFencedBlock(reply); ok {
		return code
	}
	return strings.TrimSpace(reply)
}

// anyFencedBlock returns the body of the first complete code fence in text,
// whatever its tag.
func anyFencedBlock(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if start == -1 {
				start = i
				continue
			}
			return strings.Join(lines[start+1:i], "\n"), true
		}
	}
	return "", false
}

func appendDistinct(list []string, msg string) []string {
	for _, existing := range list {
		if existing == msg {
			return list
		}
	}
	return append(list, msg)
}
