// Package diagram defines the data model for the diagram correction pipeline
// and the extractor that locates fenced diagram blocks in model output.
package diagram

// Status is the terminal classification of a diagram block after the
// pipeline has finished with it.
type Status int

const (
	// StatusValid means the original code validated on first attempt.
	StatusValid Status = iota
	// StatusRepairedValid means deterministic pattern repair produced valid code.
	StatusRepairedValid
	// StatusAiCorrectedValid means the AI correction loop produced valid code.
	StatusAiCorrectedValid
	// StatusFailed means every recovery budget was exhausted.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusRepairedValid:
		return "repaired"
	case StatusAiCorrectedValid:
		return "ai_corrected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Succeeded reports whether the block ended with syntactically valid code.
func (s Status) Succeeded() bool {
	return s == StatusValid || s == StatusRepairedValid || s == StatusAiCorrectedValid
}

// Block identifies one fenced diagram region in the source text.
// Blocks are immutable once extracted; repair and correction work on copies
// of Code, never on the Block itself.
type Block struct {
	Type    string // diagram grammar tag on the opening fence, e.g. "mermaid"
	Code    string // raw code between the fences, fence lines excluded
	Start   int    // byte offset of the opening fence in the source text
	End     int    // byte offset one past the last byte of the closing fence
	Index   int    // position among extracted blocks, left to right
	Opening string // opening fence line verbatim, trailing newline included
	Closing string // closing fence verbatim, leading indentation included
}

// ValidationResult is the outcome of one validator invocation.
type ValidationResult struct {
	Valid       bool
	Message     string // validator error output, empty when Valid
	Unavailable bool   // the external validator executable is missing
}

// RepairAttempt records one pass of the pattern repairer over a code string.
// A single attempt may apply several rules; AppliedRules is empty when no
// rule's precondition matched.
type RepairAttempt struct {
	Attempt      int
	AppliedRules []string
	Code         string
}

// Changed reports whether the attempt produced an edit.
func (a RepairAttempt) Changed() bool {
	return len(a.AppliedRules) > 0
}

// CorrectionRound records one request/response cycle with the AI model for
// one diagram block.
type CorrectionRound struct {
	Round      int
	Prompt     string
	Reply      string
	Code       string // code extracted from the reply, possibly re-fenced
	Validation ValidationResult
	Truncated  bool
}

// Outcome is the terminal record for one diagram block.
// Diagnostics accumulates every distinct validator error seen across all
// repair and correction attempts; it is non-empty whenever Status is Failed.
type Outcome struct {
	Block       Block
	Status      Status
	FinalCode   string
	Diagnostics []string
	Repairs     []RepairAttempt
	Rounds      []CorrectionRound
}
