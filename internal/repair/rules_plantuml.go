package repair

import (
	"regexp"
	"strings"
)

var (
	plantumlSpacedArrowRe = regexp.MustCompile(`(-+)\s+>`)
	plantumlParticipantRe = regexp.MustCompile(`^(\s*)(participant|actor|boundary|control|entity|database|collections|queue)\s+([^"\s][^"]*\S)\s*$`)
)

func plantumlRules() []Rule {
	return []Rule{
		{ID: "plantuml/strip-stray-fences", Apply: stripStrayFences},
		{ID: "plantuml/wrap-startuml", Apply: plantumlWrap},
		{ID: "plantuml/fix-arrow-spacing", Apply: plantumlFixArrows},
		{ID: "plantuml/quote-participants", Apply: plantumlQuoteParticipants},
	}
}

// plantumlWrap adds the @startuml/@enduml envelope when either side is
// missing. Models routinely emit the body alone or drop the closing tag.
func plantumlWrap(code string) (string, bool) {
	body := strings.TrimSpace(code)
	if body == "" {
		return code, false
	}
	hasStart := strings.Contains(body, "@start")
	hasEnd := strings.Contains(body, "@end")
	if hasStart && hasEnd {
		return code, false
	}
	out := code
	if !hasStart {
		out = "@startuml\n" + out
	}
	if !hasEnd {
		out = appendLines(out, "@enduml")
	}
	return out, true
}

// plantumlFixArrows rejoins arrowheads split by whitespace ("-- >" and the
// like).
func plantumlFixArrows(code string) (string, bool) {
	return mapLines(code, func(line string) string {
		return plantumlSpacedArrowRe.ReplaceAllString(line, "$1>")
	})
}

// plantumlQuoteParticipants quotes multi-word participant names that lack an
// alias, which the parser rejects.
func plantumlQuoteParticipants(code string) (string, bool) {
	return mapLines(code, func(line string) string {
		m := plantumlParticipantRe.FindStringSubmatch(line)
		if m == nil {
			return line
		}
		name := m[3]
		if !strings.Contains(name, " ") || strings.Contains(name, " as ") {
			return line
		}
		return m[1] + m[2] + ` "` + name + `"`
	})
}
