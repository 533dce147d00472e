package rules

import (
	_ "embed"
	"fmt"

	"github.com/alevsk/mpd-scope/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAMLBytes []byte

// catalogue holds the rule descriptions loaded from the embedded YAML, in
// evaluation order.
var catalogue []RuleSpec

func validateRuleSpec(spec RuleSpec) error {
	if spec.ID == "" {
		return fmt.Errorf("rule missing id")
	}
	if spec.Name == "" {
		return fmt.Errorf("rule %q missing name", spec.ID)
	}
	if spec.Severity < types.SeverityInfo || spec.Severity > types.SeverityVeryHigh {
		return fmt.Errorf("invalid severity %d in rule %q", spec.Severity, spec.ID)
	}
	switch spec.Scope {
	case ScopeManifest, ScopeRefresh:
	default:
		return fmt.Errorf("invalid scope %q in rule %q", spec.Scope, spec.ID)
	}
	if _, ok := registry[spec.ID]; !ok {
		return fmt.Errorf("rule %q has no implementation", spec.ID)
	}
	return nil
}

// loadCatalogue parses and validates the embedded rule catalogue.
func loadCatalogue(data []byte) ([]RuleSpec, error) {
	var specs []RuleSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	seen := map[string]bool{}
	for _, spec := range specs {
		if err := validateRuleSpec(spec); err != nil {
			return nil, fmt.Errorf("invalid rule: %w", err)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("invalid rule: duplicate id %q", spec.ID)
		}
		seen[spec.ID] = true
	}
	return specs, nil
}

// Catalogue returns a copy of the loaded rule descriptions.
func Catalogue() []RuleSpec {
	out := make([]RuleSpec, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup returns the description of the rule with the given id.
func Lookup(id string) (RuleSpec, bool) {
	for _, spec := range catalogue {
		if spec.ID == id {
			return spec, true
		}
	}
	return RuleSpec{}, false
}

func init() {
	specs, err := loadCatalogue(rulesYAMLBytes)
	if err != nil {
		panic(fmt.Sprintf("failed to load rules: %v", err))
	}
	catalogue = specs
}
