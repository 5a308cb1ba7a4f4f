package scheduler

import (
	"errors"
	"fmt"
)

// ErrRuleViolation is matched by every RuleViolation.
var ErrRuleViolation = errors.New("scheduler: resource rule violated")

// RuleKind identifies the type of a resource rule.
type RuleKind string

const (
	// RuleRequires means the first resource needs the second on the same event.
	RuleRequires RuleKind = "requires"
	// RuleExcludes means the two resources may never share an event.
	RuleExcludes RuleKind = "excludes"
)

// Rule pairs two resources under a RuleKind.
type Rule struct {
	Kind     RuleKind
	Resource string
	Other    string
}

// RuleViolation describes the first rule an event's resource set breaks.
type RuleViolation struct {
	Rule Rule
}

// Error implements the error interface.
func (v *RuleViolation) Error() string {
	switch v.Rule.Kind {
	case RuleRequires:
		return fmt.Sprintf("resource %q also requires resource %q", v.Rule.Resource, v.Rule.Other)
	case RuleExcludes:
		return fmt.Sprintf("resource %q cannot be used together with %q", v.Rule.Resource, v.Rule.Other)
	}
	return "resource rule violated"
}

// Is reports whether target is ErrRuleViolation.
func (v *RuleViolation) Is(target error) bool {
	return target == ErrRuleViolation
}

// Constraints is a reusable set of co-requirement and exclusion rules. The zero
// value accepts every event.
type Constraints struct {
	rules []Rule
}

// Require records that events using resource must also use other.
func (c *Constraints) Require(resource, other string) {
	c.rules = append(c.rules, Rule{Kind: RuleRequires, Resource: resource, Other: other})
}

// Exclude records that resource and other must never co-occur.
func (c *Constraints) Exclude(resource, other string) {
	c.rules = append(c.rules, Rule{Kind: RuleExcludes, Resource: resource, Other: other})
}

// Rules returns a copy of the configured rules in insertion order.
func (c *Constraints) Rules() []Rule {
	if c == nil {
		return nil
	}
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Len returns the number of configured rules.
func (c *Constraints) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// Validate checks the event's resource set. Co-requirements are evaluated
// before exclusions.
func (c *Constraints) Validate(event Event) error {
	if c == nil {
		return nil
	}
	for _, rule := range c.rules {
		if rule.Kind == RuleRequires && event.HasResource(rule.Resource) && !event.HasResource(rule.Other) {
			return &RuleViolation{Rule: rule}
		}
	}
	for _, rule := range c.rules {
		if rule.Kind == RuleExcludes && event.HasResource(rule.Resource) && event.HasResource(rule.Other) {
			return &RuleViolation{Rule: rule}
		}
	}
	return nil
}
