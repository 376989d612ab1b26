package diagram

import (
	"strings"
)

const fenceMarker = "```"

// Extract scans text for fenced blocks whose info string matches one of the
// recognized diagram types and returns them in order of appearance.
//
// Tolerates trailing whitespace after the type tag, a missing newline after
// the closing fence, and blocks of different types interleaved with prose.
// An opening fence with no matching closing fence is an extraction anomaly:
// the region is skipped entirely and left for the caller to pass through
// untouched. Empty blocks are still returned.
func Extract(text string, diagramTypes []string) []Block {
	if len(diagramTypes) == 0 {
		return nil
	}
	recognized := make(map[string]struct{}, len(diagramTypes))
	for _, t := range diagramTypes {
		recognized[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	var blocks []Block
	pos := 0
	for {
		open := indexFenceAt(text, pos)
		if open < 0 {
			break
		}

		infoStart := open + len(fenceMarker)
		infoEnd := strings.IndexByte(text[infoStart:], '\n')
		var info, body string
		var bodyStart int
		if infoEnd < 0 {
			// Opening fence on the final line with no newline: no body.
			info = text[infoStart:]
			bodyStart = len(text)
		} else {
			info = text[infoStart : infoStart+infoEnd]
			bodyStart = infoStart + infoEnd + 1
		}

		tag := fenceTag(info)
		if _, ok := recognized[tag]; !ok {
			pos = infoStart
			continue
		}

		closing := indexFenceAt(text, bodyStart)
		if closing < 0 {
			// Unterminated fence: leave the anomalous region untouched.
			break
		}
		if !bareFenceLine(text, closing) {
			// A fence carrying its own info tag opens a new block; the
			// current fence is unterminated and its region passes through.
			pos = closing
			continue
		}
		closeStart := lineIndentStart(text, closing)
		body = text[bodyStart:closeStart]
		// Drop the newline that belongs to the body's last line so the
		// re-wrapped fence does not grow a blank line.
		body = strings.TrimSuffix(body, "\n")

		end := closing + len(fenceMarker)
		blocks = append(blocks, Block{
			Type:    tag,
			Code:    body,
			Start:   open,
			End:     end,
			Index:   len(blocks),
			Opening: text[open:bodyStart],
			Closing: text[closeStart:end],
		})
		pos = end
	}
	return blocks
}

// indexFenceAt returns the offset of the next fence marker at the start of a
// line (ignoring leading blanks) at or after from, or -1.
func indexFenceAt(text string, from int) int {
	for from <= len(text)-len(fenceMarker) {
		i := strings.Index(text[from:], fenceMarker)
		if i < 0 {
			return -1
		}
		abs := from + i
		if atLineStart(text, abs) {
			return abs
		}
		from = abs + len(fenceMarker)
	}
	return -1
}

// atLineStart reports whether only spaces or tabs precede offset i on its line.
func atLineStart(text string, i int) bool {
	for i > 0 {
		c := text[i-1]
		if c == '\n' {
			return true
		}
		if c != ' ' && c != '\t' {
			return false
		}
		i--
	}
	return true
}

// bareFenceLine reports whether the fence at offset i has only blanks
// after the marker on its line. Only a bare fence can close a block.
func bareFenceLine(text string, i int) bool {
	for j := i + len(fenceMarker); j < len(text) && text[j] != '\n'; j++ {
		if text[j] != ' ' && text[j] != '\t' {
			return false
		}
	}
	return true
}

// lineIndentStart returns the offset where the line containing offset i
// begins. Callers pass fence offsets, so only blanks precede i on the line.
func lineIndentStart(text string, i int) int {
	for i > 0 && text[i-1] != '\n' {
		i--
	}
	return i
}

// fenceTag extracts the diagram type from a fence info string.
// The tag is the first whitespace-separated field, lowercased.
func fenceTag(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Rewrap wraps code in the original block's verbatim fence lines so a
// replacement does not disturb the fence style around it. Blocks built
// without fence text fall back to a canonical fence.
func Rewrap(b Block, code string) string {
	opening := b.Opening
	if opening == "" {
		opening = fenceMarker + b.Type + "\n"
	}
	closing := b.Closing
	if closing == "" {
		closing = fenceMarker
	}
	return opening + code + "\n" + closing
}
