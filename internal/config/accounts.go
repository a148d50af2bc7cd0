package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
)

// accountEntry is one row of the accounts_file YAML list.
type accountEntry struct {
	Stash       string `yaml:"stash"`
	Network     string `yaml:"network"`
	Description string `yaml:"description"`
}

// LoadAccounts reads path, a YAML list of {stash, network, description},
// and returns the monitored contexts. Contexts are loaded once at startup
// and never re-read; a zero-length result is a configuration error, since
// the monitor would otherwise start and do nothing.
func LoadAccounts(path string) ([]monitor.Context, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading accounts file %s: %w", path, err)
	}

	var entries []accountEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing accounts file %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("accounts file %s names zero accounts", path)
	}

	seen := make(map[monitor.ContextID]bool, len(entries))
	contexts := make([]monitor.Context, 0, len(entries))
	for i, e := range entries {
		c := monitor.Context{
			Stash:       e.Stash,
			Network:     monitor.Network(e.Network),
			Description: e.Description,
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("accounts file %s, entry %d: %w", path, i, err)
		}
		if seen[c.ID()] {
			return nil, fmt.Errorf("accounts file %s names %s more than once", path, c)
		}
		seen[c.ID()] = true
		contexts = append(contexts, c)
	}
	return contexts, nil
}
