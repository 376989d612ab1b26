package repair

import (
	"regexp"
	"strings"
)

var (
	graphvizDeclRe        = regexp.MustCompile(`^\s*(strict\s+)?(di)?graph\b`)
	graphvizSpacedArrowRe = regexp.MustCompile(`-\s+>`)
)

func graphvizRules() []Rule {
	return []Rule{
		{ID: "dot/strip-stray-fences", Apply: stripStrayFences},
		{ID: "dot/wrap-digraph", Apply: graphvizWrapDigraph},
		{ID: "dot/fix-arrow-spacing", Apply: graphvizFixArrows},
		{ID: "dot/match-edge-operator", Apply: graphvizMatchEdgeOp},
		{ID: "dot/balance-braces", Apply: graphvizBalanceBraces},
	}
}

// graphvizWrapDigraph wraps bare edge statements in a digraph envelope when
// the declaration is missing.
func graphvizWrapDigraph(code string) (string, bool) {
	first := firstContentLine(code, "//")
	if first == "" || graphvizDeclRe.MatchString(first) {
		return code, false
	}
	if !strings.Contains(code, "->") && !strings.Contains(code, "--") {
		return code, false
	}
	hadTrailing := strings.HasSuffix(code, "\n")
	body := strings.TrimSuffix(code, "\n")
	out := "digraph G {\n" + body + "\n}"
	if hadTrailing {
		out += "\n"
	}
	return out, true
}

func graphvizFixArrows(code string) (string, bool) {
	return mapLines(code, func(line string) string {
		return graphvizSpacedArrowRe.ReplaceAllString(line, "->")
	})
}

// graphvizMatchEdgeOp aligns the edge operator with the graph kind: "->" in
// digraphs, "--" in undirected graphs. Mixing them is a parse error.
func graphvizMatchEdgeOp(code string) (string, bool) {
	first := firstContentLine(code, "//")
	directed := strings.Contains(first, "digraph")
	if !directed && !graphvizDeclRe.MatchString(first) {
		return code, false
	}
	return mapLines(code, func(line string) string {
		if strings.Contains(line, `"`) {
			return line
		}
		if directed {
			return strings.ReplaceAll(line, " -- ", " -> ")
		}
		return strings.ReplaceAll(line, " -> ", " -- ")
	})
}

// graphvizBalanceBraces appends closing braces for an unbalanced body. Extra
// closers cannot be fixed deterministically and fall through to validation.
func graphvizBalanceBraces(code string) (string, bool) {
	depth := braceBalance(code)
	if depth <= 0 {
		return code, false
	}
	closers := make([]string, depth)
	for i := range closers {
		closers[i] = "}"
	}
	return appendLines(code, closers...), true
}
