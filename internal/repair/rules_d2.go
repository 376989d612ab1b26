package repair

import (
	"regexp"
	"strings"
)

var (
	d2MermaidArrowRe = regexp.MustCompile(`-->`)
	d2FatArrowRe     = regexp.MustCompile(`=>`)
)

func d2Rules() []Rule {
	return []Rule{
		{ID: "d2/strip-stray-fences", Apply: stripStrayFences},
		{ID: "d2/normalize-arrows", Apply: d2NormalizeArrows},
		{ID: "d2/balance-braces", Apply: d2BalanceBraces},
	}
}

// d2NormalizeArrows rewrites mermaid-style "-->" and "=>" connections to d2's
// "->". Models that switch grammars mid-conversation leak the wrong arrow in.
func d2NormalizeArrows(code string) (string, bool) {
	return mapLines(code, func(line string) string {
		if strings.Contains(line, `"`) {
			return line
		}
		line = d2MermaidArrowRe.ReplaceAllString(line, "->")
		return d2FatArrowRe.ReplaceAllString(line, "->")
	})
}

func d2BalanceBraces(code string) (string, bool) {
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
