package proxy

import (
	"fmt"
	"strings"

	"github.com/gatehouse-dev/gatehouse/internal/endpoint"
)

// TargetKind selects where a matched request is sent.
type TargetKind string

const (
	// TargetBackend forwards the request to the supervised API process.
	TargetBackend TargetKind = "backend"
	// TargetStatic serves the request from the built UI bundle.
	TargetStatic TargetKind = "static"
)

// Rule maps a path prefix to a target. Rules are evaluated in declaration
// order and the first match wins, so the catch-all must come last.
type Rule struct {
	Prefix         string     `yaml:"prefix" json:"prefix"`
	Target         TargetKind `yaml:"target" json:"target"`
	PreservePrefix bool       `yaml:"preserve_prefix" json:"preserve_prefix"`
	Streaming      bool       `yaml:"streaming" json:"streaming"`
}

// Matches reports whether the rule applies to the request path. Matching is
// plain string prefix, the same semantics as an nginx prefix location.
func (r Rule) Matches(path string) bool {
	return strings.HasPrefix(path, r.Prefix)
}

// IsBackend reports whether the rule forwards to the backend process.
func (r Rule) IsBackend() bool {
	return r.Target == TargetBackend
}

// DefaultRules returns the routing table for the stock single-container
// deployment: backend surfaces pass through, everything else falls to the
// UI bundle.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/health", Target: TargetBackend, PreservePrefix: true},
		{Prefix: "/docs", Target: TargetBackend, PreservePrefix: true},
		{Prefix: "/openapi.json", Target: TargetBackend, PreservePrefix: true},
		{Prefix: endpoint.APIPrefix + "/", Target: TargetBackend, PreservePrefix: true, Streaming: true},
		{Prefix: "/", Target: TargetStatic},
	}
}

// Match returns the first rule matching path.
func Match(rules []Rule, path string) (Rule, bool) {
	for _, rule := range rules {
		if rule.Matches(path) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Validate checks that the table is well formed: prefixes are rooted,
// targets are known, every rule is reachable, and no request can fall
// through past the last rule.
func Validate(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("route table must not be empty")
	}
	for i, rule := range rules {
		if !strings.HasPrefix(rule.Prefix, "/") {
			return fmt.Errorf("rule %d: prefix %q must start with /", i, rule.Prefix)
		}
		if rule.Target != TargetBackend && rule.Target != TargetStatic {
			return fmt.Errorf("rule %d: unknown target %q", i, rule.Target)
		}
		for j := 0; j < i; j++ {
			if rules[j].Matches(rule.Prefix) {
				return fmt.Errorf(
					"rule %d: prefix %q is unreachable, shadowed by earlier prefix %q",
					i, rule.Prefix, rules[j].Prefix,
				)
			}
		}
	}
	if last := rules[len(rules)-1]; last.Prefix != "/" {
		return fmt.Errorf("last rule must be the catch-all prefix /, got %q", last.Prefix)
	}
	return nil
}

// EnsureAPIRoute checks that requests under the API prefix reach the
// backend. A table that serves the API prefix from the UI bundle would break
// every same-origin client.
func EnsureAPIRoute(rules []Rule) error {
	probe := endpoint.APIPrefix + "/"
	rule, ok := Match(rules, probe)
	if !ok {
		return fmt.Errorf("route table does not cover %s", probe)
	}
	if rule.Target != TargetBackend {
		return fmt.Errorf("route table sends %s to %s, expected backend", probe, rule.Target)
	}
	return nil
}
