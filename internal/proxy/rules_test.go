package proxy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRules_Shape(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	require.NoError(t, Validate(rules))
	require.NoError(t, EnsureAPIRoute(rules))

	last := rules[len(rules)-1]
	require.Equal(t, "/", last.Prefix)
	require.Equal(t, TargetStatic, last.Target)
}

func TestMatch_FirstRuleWins(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()

	tests := []struct {
		path   string
		prefix string
		target TargetKind
	}{
		{"/health", "/health", TargetBackend},
		{"/healthz", "/health", TargetBackend},
		{"/docs", "/docs", TargetBackend},
		{"/openapi.json", "/openapi.json", TargetBackend},
		{"/api/widgets", "/api/", TargetBackend},
		{"/api/", "/api/", TargetBackend},
		{"/api", "/", TargetStatic},
		{"/", "/", TargetStatic},
		{"/projects/42", "/", TargetStatic},
		{"/assets/app.js", "/", TargetStatic},
	}

	for _, tt := range tests {
		rule, ok := Match(rules, tt.path)
		require.True(t, ok, "path %s should match", tt.path)
		require.Equal(t, tt.prefix, rule.Prefix, "path %s", tt.path)
		require.Equal(t, tt.target, rule.Target, "path %s", tt.path)
	}
}

func TestValidate_RejectsBadTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules []Rule
	}{
		{"empty table", nil},
		{"unrooted prefix", []Rule{
			{Prefix: "api/", Target: TargetBackend},
			{Prefix: "/", Target: TargetStatic},
		}},
		{"unknown target", []Rule{
			{Prefix: "/api/", Target: TargetKind("upstream")},
			{Prefix: "/", Target: TargetStatic},
		}},
		{"no catch-all", []Rule{
			{Prefix: "/api/", Target: TargetBackend},
		}},
		{"shadowed rule", []Rule{
			{Prefix: "/api/", Target: TargetBackend},
			{Prefix: "/api/v2/", Target: TargetBackend},
			{Prefix: "/", Target: TargetStatic},
		}},
		{"catch-all not last", []Rule{
			{Prefix: "/", Target: TargetStatic},
			{Prefix: "/api/", Target: TargetBackend},
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Error(t, Validate(tt.rules))
		})
	}
}

func TestValidate_AcceptsSpecificBeforeGeneral(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{Prefix: "/api/internal/", Target: TargetStatic},
		{Prefix: "/api/", Target: TargetBackend, Streaming: true},
		{Prefix: "/", Target: TargetStatic},
	}
	require.NoError(t, Validate(rules))

	rule, ok := Match(rules, "/api/internal/secrets")
	require.True(t, ok)
	require.Equal(t, TargetStatic, rule.Target)
}

func TestEnsureAPIRoute_RejectsStaticAPI(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{Prefix: "/", Target: TargetStatic},
	}
	require.Error(t, EnsureAPIRoute(rules))

	rules = []Rule{
		{Prefix: "/api/", Target: TargetStatic},
		{Prefix: "/", Target: TargetBackend},
	}
	require.Error(t, EnsureAPIRoute(rules))
}
