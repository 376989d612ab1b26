package correct

import "strings"

// trailingFragments are token suffixes a reply should never end on. A reply
// cut off mid-stream usually stops inside an arrow or an open delimiter.
var trailingFragments = []string{"--", "-", "->", "=", "=>", "[", "(", "{", "|", "@start"}

// looksTruncated reports whether a model reply appears to have been cut off
// before the diagram was complete.
//
// Three signals, any one of which is enough:
//   - the reply opened a code fence it never closed
//   - the extracted code shrank below a quarter of the original, which no
//     plausible syntax fix does
//   - the code ends mid-token (a dangling arrow or open delimiter)
func looksTruncated(reply, extracted, original string) bool {
	if unclosedFence(reply) {
		return true
	}
	if len(original) >= 40 && len(extracted)*4 < len(original) {
		return true
	}
	trimmed := strings.TrimRight(extracted, " \t\n")
	for _, frag := range trailingFragments {
		if strings.HasSuffix(trimmed, frag) {
			return true
		}
	}
	return false
}

// unclosedFence reports whether reply contains an odd number of fence lines.
func unclosedFence(reply string) bool {
	count := 0
	for _, line := range strings.Split(reply, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			count++
		}
	}
	return count%2 == 1
}
