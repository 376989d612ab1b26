// Package repair applies deterministic pattern fixes to diagram source before
// any AI correction is attempted. Rules are cheap text transforms for the
// mistakes AI-generated diagrams make most often: missing declarations,
// malformed arrows, unquoted labels, unbalanced delimiters.
package repair

import (
	"sync"

	"diagmend/internal/diagram"
	"diagmend/internal/logging"
)

// Rule is one deterministic fix for a recurring syntax mistake. Apply returns
// the rewritten code and whether it changed anything. Rules must be
// idempotent: applying a rule to its own output changes nothing.
type Rule struct {
	ID    string
	Apply func(code string) (string, bool)
}

// Repairer holds per-grammar rule chains. Rules run in registration order;
// custom rules loaded from a user file run after the built-ins.
type Repairer struct {
	mu      sync.RWMutex
	builtin map[string][]Rule
	custom  map[string][]Rule
}

// NewRepairer builds a repairer with the built-in rule set for every
// supported grammar.
func NewRepairer() *Repairer {
	return &Repairer{
		builtin: map[string][]Rule{
			"mermaid":  mermaidRules(),
			"plantuml": plantumlRules(),
			"dot":      graphvizRules(),
			"d2":       d2Rules(),
		},
		custom: make(map[string][]Rule),
	}
}

// SetCustomRules replaces the custom rule tail for all grammars. Used by the
// custom rules loader and its file watcher.
func (r *Repairer) SetCustomRules(rules map[string][]Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom = rules
}

// Rules returns the active rule chain for a diagram type, built-ins first.
func (r *Repairer) Rules(diagramType string) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := make([]Rule, 0, len(r.builtin[diagramType])+len(r.custom[diagramType]))
	chain = append(chain, r.builtin[diagramType]...)
	chain = append(chain, r.custom[diagramType]...)
	return chain
}

// Repair runs one pass of the rule chain over code. Every rule whose
// precondition matches is applied, in order, each seeing the output of the
// previous. The attempt records the IDs of rules that made an edit.
func (r *Repairer) Repair(diagramType, code string, attempt int) diagram.RepairAttempt {
	result := diagram.RepairAttempt{Attempt: attempt, Code: code}
	for _, rule := range r.Rules(diagramType) {
		next, changed := rule.Apply(result.Code)
		if !changed {
			continue
		}
		logging.RepairDebug("attempt %d: rule %s fired for %s block", attempt, rule.ID, diagramType)
		result.Code = next
		result.AppliedRules = append(result.AppliedRules, rule.ID)
	}
	if result.Changed() {
		logging.Repair("attempt %d: applied %v", attempt, result.AppliedRules)
	}
	return result
}
