package correct

import (
	"strings"
	"testing"
)

func TestLooksTruncated(t *testing.T) {
	long := "flowchart TD\n" +
		"A --> B\nB --> C\nC --> D\nD --> E\nE --> F\n"

	tests := []struct {
		name      string
		reply     string
		extracted string
		original  string
		want      bool
	}{
		{
			name:      "complete reply",
			reply:     "```mermaid\nflowchart TD\nA --> B\n```",
			extracted: "flowchart TD\nA --> B",
			original:  "flowchart TD\nA -> B",
			want:      false,
		},
		{
			name:      "unclosed fence",
			reply:     "```mermaid\nflowchart TD\nA --> B",
			extracted: "flowchart TD\nA --> B",
			original:  "flowchart TD\nA -> B",
			want:      true,
		},
		{
			name:      "drastic shrink",
			reply:     "```mermaid\nflowchart TD\n```",
			extracted: "flowchart TD",
			original:  long,
			want:      true,
		},
		{
			name:      "dangling arrow",
			reply:     "```mermaid\nflowchart TD\nA -->\n```",
			extracted: "flowchart TD\nA -->",
			original:  "flowchart TD\nA --> B",
			want:      true,
		},
		{
			name:      "open bracket",
			reply:     "```mermaid\nflowchart TD\nA[\n```",
			extracted: "flowchart TD\nA[",
			original:  "flowchart TD\nA --> B",
			want:      true,
		},
		{
			name:      "short original exempt from shrink check",
			reply:     "```dot\ndigraph G {}\n```",
			extracted: "digraph G {}",
			original:  "digraph G {",
			want:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksTruncated(tt.reply, tt.extracted, tt.original); got != tt.want {
				t.Errorf("looksTruncated = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnyFencedBlock(t *testing.T) {
	code, ok := anyFencedBlock("prose\n```\na -> b\n```\nmore prose")
	if !ok || code != "a -> b" {
		t.Errorf("anyFencedBlock = %q, %v", code, ok)
	}

	if _, ok := anyFencedBlock("no fences here"); ok {
		t.Error("found a fence where none exists")
	}
}

func TestBuildCorrectionPromptSections(t *testing.T) {
	p := buildCorrectionPrompt("mermaid", "flowchart TD\nA -> B", []string{"Parse error"}, 1)
	for _, want := range []string{"--- VALIDATOR ERRORS ---", "--- CURRENT DIAGRAM ---", "```mermaid", "ONLY"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	p2 := buildCorrectionPrompt("mermaid", "x", []string{"e"}, 3)
	if !strings.Contains(p2, "Round 3") {
		t.Error("retry prompt missing round number")
	}
}
