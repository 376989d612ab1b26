package correct

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a diagram syntax repair assistant. You receive a broken diagram
and the exact error output from its validator. Fix the syntax while preserving
the diagram's structure and meaning. Do not add, remove or rename nodes, edges
or labels unless the error requires it.`

// grammarBriefs carries per-grammar syntax reminders injected into correction
// prompts. Kept short: the model knows the grammars, it just needs the ground
// rules it most often breaks.
var grammarBriefs = map[string]string{
	"mermaid": `Mermaid rules:
- The first line must be a diagram declaration (flowchart TD, sequenceDiagram, classDiagram, ...)
- Flowchart edges use -->, not ->
- Node labels containing (), {} or other special characters must be quoted: A["label (x)"]
- "end" is reserved; do not use it as a node id
- Every subgraph needs a matching end`,
	"plantuml": `PlantUML rules:
- The diagram must be wrapped in @startuml / @enduml
- Multi-word participant names must be quoted or aliased
- Arrows are ->, -->, ->> with no spaces inside the arrow`,
	"dot": `Graphviz DOT rules:
- The body must be wrapped in digraph NAME { ... } or graph NAME { ... }
- digraph uses ->, graph uses --
- Identifiers with spaces or special characters must be double-quoted
- Braces must balance`,
	"d2": `D2 rules:
- Connections use ->, <-, <-> or -- (never --> or =>)
- Containers use name: { ... } and braces must balance
- Labels with special characters go after a colon: a.b: "label"`,
}

// buildCorrectionPrompt assembles the user prompt for one correction round.
// errs holds every distinct validator error seen so far, most recent last.
func buildCorrectionPrompt(diagramType, code string, errs []string, round int) string {
	var sb strings.Builder

	if round == 1 {
		fmt.Fprintf(&sb, "The following %s diagram fails validation.\n\n", diagramType)
	} else {
		fmt.Fprintf(&sb, "Your previous %s correction still fails validation. Round %d.\n\n", diagramType, round)
	}

	sb.WriteString("--- VALIDATOR ERRORS ---\n")
	for _, e := range errs {
		sb.WriteString(e)
		sb.WriteString("\n")
	}

	sb.WriteString("\n--- CURRENT DIAGRAM ---\n")
	fmt.Fprintf(&sb, "```%s\n%s\n```\n", diagramType, strings.TrimRight(code, "\n"))

	if brief, ok := grammarBriefs[diagramType]; ok {
		sb.WriteString("\n--- SYNTAX REMINDERS ---\n")
		sb.WriteString(brief)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, `
Fix ALL the validator errors listed above. Preserve every node, edge and label.

Reply with ONLY the corrected diagram in a single %s code fence. No explanation before or after the fence.`, "```"+diagramType)

	return sb.String()
}
