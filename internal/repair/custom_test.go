package repair

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCustomRules(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - id: fix-house-style-arrow
    types: [mermaid, dot]
    pattern: '==>'
    replace: '-->'
  - id: mermaid-only
    types: [mermaid]
    pattern: 'TOOD'
    replace: 'TODO'
`)
	rules, err := LoadCustomRules(path)
	if err != nil {
		t.Fatalf("LoadCustomRules: %v", err)
	}
	if len(rules["mermaid"]) != 2 {
		t.Errorf("mermaid rules = %d, want 2", len(rules["mermaid"]))
	}
	if len(rules["dot"]) != 1 {
		t.Errorf("dot rules = %d, want 1", len(rules["dot"]))
	}
	if rules["mermaid"][0].ID != "custom/fix-house-style-arrow" {
		t.Errorf("ID = %q", rules["mermaid"][0].ID)
	}

	out, changed := rules["mermaid"][0].Apply("A ==> B")
	if !changed || out != "A --> B" {
		t.Errorf("Apply = %q, %v", out, changed)
	}
}

func TestLoadCustomRulesSkipsBadPattern(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - id: broken
    types: [mermaid]
    pattern: '([unclosed'
    replace: 'x'
  - id: good
    types: [mermaid]
    pattern: 'a'
    replace: 'b'
`)
	rules, err := LoadCustomRules(path)
	if err != nil {
		t.Fatalf("LoadCustomRules: %v", err)
	}
	if len(rules["mermaid"]) != 1 {
		t.Fatalf("mermaid rules = %d, want bad pattern skipped", len(rules["mermaid"]))
	}
	if rules["mermaid"][0].ID != "custom/good" {
		t.Errorf("ID = %q", rules["mermaid"][0].ID)
	}
}

func TestLoadCustomRulesMissingFile(t *testing.T) {
	_, err := LoadCustomRules(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCustomRulesRunAfterBuiltins(t *testing.T) {
	r := NewRepairer()
	r.SetCustomRules(map[string][]Rule{
		"mermaid": {{
			ID: "custom/tag",
			Apply: func(code string) (string, bool) {
				if strings.Contains(code, "%% reviewed") {
					return code, false
				}
				return code + "\n%% reviewed", true
			},
		}},
	})

	got := r.Repair("mermaid", "A -> B", 1)
	rules := got.AppliedRules
	if rules[len(rules)-1] != "custom/tag" {
		t.Errorf("AppliedRules = %v, want custom rule last", rules)
	}
	if !strings.Contains(got.Code, "%% reviewed") {
		t.Errorf("Code = %q", got.Code)
	}
}

func TestWatcherReload(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - id: v1
    types: [d2]
    pattern: 'foo'
    replace: 'bar'
`)
	r := NewRepairer()
	w, err := NewRulesWatcher(path, r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.watcher.Close()

	w.Reload()
	if len(r.Rules("d2")) != len(d2Rules())+1 {
		t.Fatalf("custom rule not loaded")
	}

	if err := os.WriteFile(path, []byte(`
rules:
  - id: v2
    types: [d2]
    pattern: 'foo'
    replace: 'baz'
  - id: v2b
    types: [d2]
    pattern: 'qux'
    replace: 'quux'
`), 0644); err != nil {
		t.Fatal(err)
	}
	w.Reload()

	if len(r.Rules("d2")) != len(d2Rules())+2 {
		t.Errorf("reload did not replace rules: %d", len(r.Rules("d2")))
	}
	stats := w.GetStats()
	if stats.ReloadsTriggered != 2 {
		t.Errorf("ReloadsTriggered = %d, want 2", stats.ReloadsTriggered)
	}
}

func TestWatcherReloadKeepsRulesOnFailure(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - id: keep
    types: [mermaid]
    pattern: 'x'
    replace: 'y'
`)
	r := NewRepairer()
	w, err := NewRulesWatcher(path, r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.watcher.Close()

	w.Reload()
	before := len(r.Rules("mermaid"))

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	w.Reload()

	if len(r.Rules("mermaid")) != before {
		t.Errorf("failed reload changed rules")
	}
	if w.GetStats().ReloadFailures != 1 {
		t.Errorf("ReloadFailures = %d, want 1", w.GetStats().ReloadFailures)
	}
}
