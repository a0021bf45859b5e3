package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/autofund/internal/fund"
)

// ruleFile is the YAML document accepted by "rules add". A file may hold
// a single rule or a list under the rules key.
type ruleFile struct {
	Rules []fund.Rule `yaml:"rules"`
}

// LoadRuleFile reads and validates rules from a YAML file.
// All rules must validate; a single invalid rule rejects the whole file.
func LoadRuleFile(path string) ([]fund.Rule, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("rule file not found: %s", path))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read rule file", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to parse rule file", err)
	}

	loaded := file.Rules
	if len(loaded) == 0 {
		// Fall back to a single top-level rule document.
		var single fund.Rule
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to parse rule file", err)
		}
		if single.Name == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("no rules found in %s", path))
		}
		loaded = []fund.Rule{single}
	}

	for i, r := range loaded {
		if err := fund.ValidateRule(r); err != nil {
			return nil, WrapExitError(ExitFailure, fmt.Sprintf("rule %d (%s) is invalid", i+1, r.Name), err)
		}
	}
	return loaded, nil
}
