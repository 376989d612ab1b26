package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"diagmend/internal/diagram"
)

// failureChecklists lists common causes shown in a failed block's diagnostic
// section, per diagram type.
var failureChecklists = map[string][]string{
	"mermaid": {
		"missing or wrong diagram declaration on the first line",
		"flowchart edges written as -> instead of -->",
		"unquoted special characters in node labels",
		"a node named \"end\" (reserved word)",
		"an unclosed subgraph",
	},
	"plantuml": {
		"missing @startuml / @enduml envelope",
		"unquoted multi-word participant names",
		"whitespace inside arrows",
	},
	"dot": {
		"missing digraph/graph declaration",
		"-- edges in a digraph or -> edges in a graph",
		"unquoted identifiers with spaces or special characters",
		"unbalanced braces",
	},
	"d2": {
		"mermaid-style --> or => connections",
		"unbalanced container braces",
	},
}

// Assemble reconstitutes the response text from per-block outcomes.
// Blocks that were valid as written keep their original bytes; repaired and
// corrected blocks are re-fenced in place with their final code; failed
// blocks become a demarcated diagnostic section. Bytes outside the original
// block ranges are never touched. Replacement runs in descending offset
// order so earlier offsets stay valid while later ranges are spliced.
func Assemble(original string, outcomes []diagram.Outcome) string {
	ordered := make([]diagram.Outcome, len(outcomes))
	copy(ordered, outcomes)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Block.Start > ordered[j].Block.Start
	})

	text := original
	for _, o := range ordered {
		var replacement string
		switch {
		case o.Status == diagram.StatusValid:
			continue
		case o.Status.Succeeded():
			replacement = diagram.Rewrap(o.Block, o.FinalCode)
		default:
			replacement = renderFailure(o)
		}
		text = text[:o.Block.Start] + replacement + text[o.Block.End:]
	}
	return text
}

// renderFailure formats the diagnostic section for a block that exhausted
// every recovery budget.
func renderFailure(o diagram.Outcome) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "> **Diagram could not be fixed automatically** (%s)\n>\n", o.Block.Type)
	sb.WriteString("> Errors encountered:\n")
	for _, d := range o.Diagnostics {
		fmt.Fprintf(&sb, "> - %s\n", d)
	}

	if checklist, ok := failureChecklists[o.Block.Type]; ok {
		sb.WriteString(">\n> Common causes to check:\n")
		for _, item := range checklist {
			fmt.Fprintf(&sb, "> - %s\n", item)
		}
	}

	sb.WriteString(">\n> Last attempted code:\n\n")
	fmt.Fprintf(&sb, "```\n%s\n```", strings.TrimRight(o.FinalCode, "\n"))

	return sb.String()
}
