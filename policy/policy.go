// Package policy maps full gRPC method names to per-method admission rules.
// Methods are organized into named groups via a small builder, and a
// [Resolver] picks the best-matching group for an incoming method.
package policy

import (
	"regexp"
	"time"
)

// AdmissionRule describes the sliding-window quota for a group of methods:
// at most MaxCalls admissions within any trailing Window.
type AdmissionRule struct {
	MaxCalls int
	Window   time.Duration
}

// Policy holds the configuration applied to a matched method group.
type Policy struct {
	Admission *AdmissionRule
}

// matchKind orders the matching strategies by priority; lower wins.
type matchKind int

const (
	kindExact matchKind = iota
	kindPrefix
	kindRegex
)

// rule is one matching rule together with the group it belongs to.
type rule struct {
	kind    matchKind
	pattern string
	re      *regexp.Regexp
	group   *GroupBuilder
}

// GroupBuilder accumulates matching rules and a policy for one method group.
type GroupBuilder struct {
	name   string
	rules  []rule
	policy *Policy
}

// Group starts a new method group with the given name.
func Group(name string) *GroupBuilder {
	return &GroupBuilder{name: name}
}

// Exact adds an exact-match rule.
func (g *GroupBuilder) Exact(method string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindExact, pattern: method, group: g})
	return g
}

// Prefix adds a prefix-match rule.
func (g *GroupBuilder) Prefix(prefix string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindPrefix, pattern: prefix, group: g})
	return g
}

// Regex adds a regex-match rule. The pattern is compiled immediately; an
// invalid pattern panics.
func (g *GroupBuilder) Regex(pattern string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindRegex, pattern: pattern, re: regexp.MustCompile(pattern), group: g})
	return g
}

// Policy attaches the group's policy and returns the builder.
func (g *GroupBuilder) Policy(p Policy) *GroupBuilder {
	g.policy = &p
	return g
}
