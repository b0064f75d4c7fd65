package policy

import "strings"

// Resolver resolves a full gRPC method name ("/service/Method") to the
// best-matching group and its policy.
type Resolver struct {
	rules []rule // flattened from all groups, registration order preserved
}

// NewResolver flattens the supplied group builders into a single rule set.
func NewResolver(groups ...*GroupBuilder) *Resolver {
	var rules []rule
	for _, g := range groups {
		rules = append(rules, g.rules...)
	}
	return &Resolver{rules: rules}
}

// Resolve finds the best match for fullMethod.
//
// Priority: exact beats prefix beats regex; among matches of the same kind
// the longer match wins; remaining ties go to the rule registered first.
// ok is false when nothing matches.
func (res *Resolver) Resolve(fullMethod string) (groupName string, pol *Policy, ok bool) {
	var (
		best    *rule
		bestLen int
	)
	for i := range res.rules {
		r := &res.rules[i]
		matched, length := r.matchLen(fullMethod)
		if !matched {
			continue
		}
		if best == nil || r.kind < best.kind || (r.kind == best.kind && length > bestLen) {
			best = r
			bestLen = length
		}
	}
	if best == nil {
		return "", nil, false
	}
	return best.group.name, best.group.policy, true
}

// matchLen reports whether r matches fullMethod and how much of it matched,
// used to break ties among same-kind rules.
func (r *rule) matchLen(fullMethod string) (bool, int) {
	switch r.kind {
	case kindExact:
		if fullMethod == r.pattern {
			return true, len(r.pattern)
		}
	case kindPrefix:
		if strings.HasPrefix(fullMethod, r.pattern) {
			return true, len(r.pattern)
		}
	case kindRegex:
		if loc := r.re.FindStringIndex(fullMethod); loc != nil {
			return true, loc[1] - loc[0]
		}
	}
	return false, 0
}
