package repair

import (
	"regexp"
	"strings"
)

var (
	mermaidDeclRe = regexp.MustCompile(`^(flowchart|graph|sequenceDiagram|classDiagram|stateDiagram(-v2)?|erDiagram|gantt|pie|journey|gitGraph|mindmap|timeline|quadrantChart)\b`)
	// an edge with a label but no target node arrowhead: "A -- text --> B" is
	// fine, "A -- text -- B" is not
	mermaidSpacedArrowRe = regexp.MustCompile(`--\s+>`)
	mermaidBareArrowRe   = regexp.MustCompile(`(\w[\])}"]?)\s*->\s*(\w)`)
	// bracket node labels containing characters the parser chokes on unquoted
	mermaidUnquotedLabelRe = regexp.MustCompile(`\[([^\[\]"]*[(){}][^\[\]"]*)\]`)
	mermaidEdgeEndRe       = regexp.MustCompile(`(-->|---|-\.->|==>)(\s*(\|[^|]*\|)?\s*)end\b`)
)

// mermaidRules is the built-in chain for mermaid blocks, in application order.
func mermaidRules() []Rule {
	return []Rule{
		{ID: "mermaid/strip-stray-fences", Apply: stripStrayFences},
		{ID: "mermaid/infer-declaration", Apply: mermaidInferDeclaration},
		{ID: "mermaid/fix-arrow-spacing", Apply: mermaidFixArrows},
		{ID: "mermaid/quote-special-labels", Apply: mermaidQuoteLabels},
		{ID: "mermaid/rename-end-node", Apply: mermaidRenameEndNode},
		{ID: "mermaid/close-subgraphs", Apply: mermaidCloseSubgraphs},
	}
}

// stripStrayFences removes backtick fence lines that leaked into the block
// body, usually when a model nested a fence inside its own reply.
func stripStrayFences(code string) (string, bool) {
	hadTrailing := strings.HasSuffix(code, "\n")
	lines := strings.Split(strings.TrimSuffix(code, "\n"), "\n")
	kept := lines[:0]
	changed := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			changed = true
			continue
		}
		kept = append(kept, line)
	}
	if !changed {
		return code, false
	}
	out := strings.Join(kept, "\n")
	if hadTrailing {
		out += "\n"
	}
	return out, true
}

// mermaidInferDeclaration prepends a flowchart declaration when the block
// starts straight into node/edge statements. Only flowchart syntax is
// inferable; other diagram kinds without their header are left for the AI
// loop.
func mermaidInferDeclaration(code string) (string, bool) {
	first := firstContentLine(code, "%%")
	if first == "" || mermaidDeclRe.MatchString(first) {
		return code, false
	}
	if !strings.Contains(code, "-->") && !strings.Contains(code, "---") {
		return code, false
	}
	return "flowchart TD\n" + code, true
}

// mermaidFixArrows repairs split arrowheads ("-- >") and upgrades bare "->"
// edges to "-->" in flowcharts, where "->" is not a valid edge.
func mermaidFixArrows(code string) (string, bool) {
	first := firstContentLine(code, "%%")
	isFlow := strings.HasPrefix(first, "flowchart") || strings.HasPrefix(first, "graph")
	return mapLines(code, func(line string) string {
		line = mermaidSpacedArrowRe.ReplaceAllString(line, "-->")
		if isFlow && !strings.Contains(line, "-->") && !strings.Contains(line, "->>") {
			line = mermaidBareArrowRe.ReplaceAllString(line, "$1 --> $2")
		}
		return line
	})
}

// mermaidQuoteLabels wraps bracket labels containing parentheses or braces in
// quotes, which mermaid requires.
func mermaidQuoteLabels(code string) (string, bool) {
	return mapLines(code, func(line string) string {
		return mermaidUnquotedLabelRe.ReplaceAllString(line, `["$1"]`)
	})
}

// mermaidRenameEndNode rewrites edges targeting a node literally named "end",
// a reserved word that terminates subgraphs. Lowercase "end" as a node id is
// a parse error; "End" is not.
func mermaidRenameEndNode(code string) (string, bool) {
	return mapLines(code, func(line string) string {
		return mermaidEdgeEndRe.ReplaceAllString(line, "${1}${2}End")
	})
}

// mermaidCloseSubgraphs appends missing "end" terminators for open subgraphs.
func mermaidCloseSubgraphs(code string) (string, bool) {
	open := 0
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "subgraph ") || trimmed == "subgraph" {
			open++
		} else if trimmed == "end" {
			open--
		}
	}
	if open <= 0 {
		return code, false
	}
	terminators := make([]string, open)
	for i := range terminators {
		terminators[i] = "end"
	}
	return appendLines(code, terminators...), true
}
