package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/resource-calendar/internal/scheduler"
)

type rulePair struct {
	Resource string `yaml:"resource"`
	With     string `yaml:"with"`
}

type ruleFile struct {
	Requires []rulePair `yaml:"requires"`
	Excludes []rulePair `yaml:"excludes"`
}

// LoadRules reads resource rules from a YAML file:
//
//	requires:
//	  - resource: ballista
//	    with: engineer
//	excludes:
//	  - resource: senate
//	    with: legion1
func LoadRules(path string) (*scheduler.Constraints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes the YAML rule format. Unknown keys are rejected.
func ParseRules(data []byte) (*scheduler.Constraints, error) {
	var file ruleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	constraints := &scheduler.Constraints{}
	var problems []string
	add := func(kind string, i int, pair rulePair, apply func(a, b string)) {
		resource, other := strings.TrimSpace(pair.Resource), strings.TrimSpace(pair.With)
		if resource == "" || other == "" {
			problems = append(problems, fmt.Sprintf("%s[%d]: resource and with are required", kind, i))
			return
		}
		if resource == other {
			problems = append(problems, fmt.Sprintf("%s[%d]: %q cannot refer to itself", kind, i, resource))
			return
		}
		apply(resource, other)
	}
	for i, pair := range file.Requires {
		add("requires", i, pair, constraints.Require)
	}
	for i, pair := range file.Excludes {
		add("excludes", i, pair, constraints.Exclude)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid rules: %s", strings.Join(problems, "; "))
	}
	return constraints, nil
}
