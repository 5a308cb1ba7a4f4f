package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/example/resource-calendar/internal/scheduler"
)

func TestLoadRules(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `requires:
  - resource: ballista
    with: engineer
excludes:
  - resource: senate
    with: legion1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	constraints, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules returned error: %v", err)
	}
	want := []scheduler.Rule{
		{Kind: scheduler.RuleRequires, Resource: "ballista", Other: "engineer"},
		{Kind: scheduler.RuleExcludes, Resource: "senate", Other: "legion1"},
	}
	if got := constraints.Rules(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected rules %+v", got)
	}
}

func TestParseRules_Empty(t *testing.T) {
	t.Parallel()

	constraints, err := ParseRules(nil)
	if err != nil {
		t.Fatalf("empty file must be accepted: %v", err)
	}
	if constraints.Len() != 0 {
		t.Fatalf("expected no rules, got %d", constraints.Len())
	}
}

func TestParseRules_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		want  string
	}{
		"missing with":  {input: "requires:\n  - resource: ballista\n", want: "requires[0]"},
		"self exclude":  {input: "excludes:\n  - resource: senate\n    with: senate\n", want: "itself"},
		"unknown key":   {input: "forbids:\n  - resource: a\n    with: b\n", want: "parse rules"},
		"not a mapping": {input: "- just a list\n", want: "parse rules"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules([]byte(tc.input))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
