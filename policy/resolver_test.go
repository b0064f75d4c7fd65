package policy_test

import (
	"testing"
	"time"

	"github.com/mkarlsen/pacegate/policy"
)

func admission(maxCalls int, window time.Duration) policy.Policy {
	return policy.Policy{Admission: &policy.AdmissionRule{MaxCalls: maxCalls, Window: window}}
}

func TestResolve_NoMatch(t *testing.T) {
	res := policy.NewResolver(
		policy.Group("calc").Prefix("/calc.Calculator/").Policy(admission(5, time.Second)),
	)
	if _, _, ok := res.Resolve("/other.Service/Do"); ok {
		t.Fatal("expected no match for unrelated method")
	}
}

func TestResolve_ExactBeatsPrefix(t *testing.T) {
	res := policy.NewResolver(
		policy.Group("wide").Prefix("/calc.Calculator/").Policy(admission(100, time.Minute)),
		policy.Group("narrow").Exact("/calc.Calculator/CalculateFactorial").Policy(admission(2, time.Minute)),
	)

	name, pol, ok := res.Resolve("/calc.Calculator/CalculateFactorial")
	if !ok {
		t.Fatal("expected a match")
	}
	if name != "narrow" {
		t.Fatalf("resolved group %q, want %q", name, "narrow")
	}
	if pol.Admission.MaxCalls != 2 {
		t.Fatalf("MaxCalls = %d, want 2", pol.Admission.MaxCalls)
	}

	name, _, ok = res.Resolve("/calc.Calculator/GeneratePrimes")
	if !ok || name != "wide" {
		t.Fatalf("resolved group %q (ok=%v), want %q", name, ok, "wide")
	}
}

func TestResolve_PrefixBeatsRegex(t *testing.T) {
	res := policy.NewResolver(
		policy.Group("rx").Regex(`/calc\..*`).Policy(admission(1, time.Second)),
		policy.Group("px").Prefix("/calc.").Policy(admission(9, time.Second)),
	)
	name, _, ok := res.Resolve("/calc.Calculator/GeneratePrimes")
	if !ok || name != "px" {
		t.Fatalf("resolved group %q (ok=%v), want %q", name, ok, "px")
	}
}

func TestResolve_LongerPrefixWins(t *testing.T) {
	res := policy.NewResolver(
		policy.Group("short").Prefix("/calc.").Policy(admission(9, time.Second)),
		policy.Group("long").Prefix("/calc.Calculator/").Policy(admission(3, time.Second)),
	)
	name, _, ok := res.Resolve("/calc.Calculator/GenerateFibonacci")
	if !ok || name != "long" {
		t.Fatalf("resolved group %q (ok=%v), want %q", name, ok, "long")
	}
}

func TestResolve_TieGoesToFirstRegistered(t *testing.T) {
	res := policy.NewResolver(
		policy.Group("a").Exact("/svc/Do").Policy(admission(1, time.Second)),
		policy.Group("b").Exact("/svc/Do").Policy(admission(2, time.Second)),
	)
	name, _, ok := res.Resolve("/svc/Do")
	if !ok || name != "a" {
		t.Fatalf("resolved group %q (ok=%v), want %q", name, ok, "a")
	}
}
