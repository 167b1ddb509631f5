package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lotworks/dunner/errors"
)

// Rep is one sales-team member in the roster file.
type Rep struct {
	Name   string `yaml:"name"`
	UserID string `yaml:"user_id"`
}

// LoadRoster reads the sales-rep roster YAML. Workflows that fan out per
// rep abort when the roster is missing or malformed; running against
// nobody is a configuration mistake, not an empty result.
func LoadRoster(path string) ([]Rep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithHint(
			errors.NewFatalConfig("roster file %s: %v", path, err),
			"list the team as {name, user_id} pairs in roster.yaml")
	}
	var reps []Rep
	if err := yaml.Unmarshal(data, &reps); err != nil {
		return nil, errors.NewFatalConfig("roster file %s is not valid YAML: %v", path, err)
	}
	for i, rep := range reps {
		if rep.Name == "" || rep.UserID == "" {
			return nil, errors.NewFatalConfig("roster file %s: entry %d is missing name or user_id", path, i+1)
		}
	}
	if len(reps) == 0 {
		return nil, errors.NewFatalConfig("roster file %s lists no reps", path)
	}
	return reps, nil
}
