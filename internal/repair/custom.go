package repair

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"diagmend/internal/logging"
)

// CustomRule is a user-defined regex rewrite loaded from a YAML rules file.
// Rules apply to every diagram type listed in Types.
type CustomRule struct {
	ID      string   `yaml:"id"`
	Types   []string `yaml:"types"`
	Pattern string   `yaml:"pattern"`
	Replace string   `yaml:"replace"`
}

type customRulesFile struct {
	Rules []CustomRule `yaml:"rules"`
}

// LoadCustomRules parses a YAML rules file into per-type rule chains. A rule
// with a bad regex is skipped with a warning rather than failing the load;
// the remaining rules still apply.
func LoadCustomRules(path string) (map[string][]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom rules file: %w", err)
	}

	var file customRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse custom rules file: %w", err)
	}

	rules := make(map[string][]Rule)
	for _, cr := range file.Rules {
		if cr.ID == "" || cr.Pattern == "" {
			logging.Get(logging.CategoryRepair).Warn("custom rule missing id or pattern, skipping")
			continue
		}
		re, err := regexp.Compile(cr.Pattern)
		if err != nil {
			logging.Get(logging.CategoryRepair).Warn("custom rule %s: bad pattern: %v", cr.ID, err)
			continue
		}
		rule := Rule{
			ID: "custom/" + cr.ID,
			Apply: func(code string) (string, bool) {
				out := re.ReplaceAllString(code, cr.Replace)
				return out, out != code
			},
		}
		for _, t := range cr.Types {
			rules[t] = append(rules[t], rule)
		}
	}
	logging.Repair("loaded custom rules from %s for %d diagram types", path, len(rules))
	return rules, nil
}
