package routing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules_ClassifyDashboardRoutes(t *testing.T) {
	c := NewClassifier(DefaultRules())

	cases := map[string]RouteClass{
		"/":                          RouteClassPage,
		"/control":                   RouteClassPage,
		"/index.html":                RouteClassPage,
		"/api":                       RouteClassAPI,
		"/api/data":                  RouteClassAPI,
		"/api/charts/cost.png":       RouteClassAPI,
		"/api/health":                RouteClassOps,
		"/api/healthz":               RouteClassAPI,
		"/debug/prometheus":          RouteClassOps,
		"/results/charts/topsis.png": RouteClassStatic,
		"/results/charts-old/x.png":  RouteClassPage,
		"/js/app.js":                 RouteClassStatic,
		"/apiary":                    RouteClassPage,
	}
	for path, want := range cases {
		assert.Equal(t, want, c.ClassifyPath(path), path)
	}
}

func TestClassifier_With(t *testing.T) {
	c := NewClassifier(DefaultRules()).With(AllowlistRule{Prefix: "/metrics", Class: RouteClassOps})
	assert.Equal(t, RouteClassOps, c.ClassifyPath("/metrics"))
	assert.Equal(t, RouteClassAPI, c.ClassifyPath("/api/data"))
}

func TestClassifier_NilFallsBackToPrefix(t *testing.T) {
	var c *Classifier
	assert.Equal(t, RouteClassAPI, c.ClassifyPath("/api/data"))
	assert.Equal(t, RouteClassPage, c.ClassifyPath("/index.html"))
}

func TestRouteClass_IsJSON(t *testing.T) {
	assert.True(t, RouteClassAPI.IsJSON())
	assert.True(t, RouteClassOps.IsJSON())
	assert.False(t, RouteClassPage.IsJSON())
	assert.False(t, RouteClassStatic.IsJSON())
}

func TestLoadAllowlist(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	rules, err := LoadAllowlist("", "")
	require.NoError(t, err)
	assert.NotEmpty(t, rules)

	custom := write("custom.yaml", "version: 1\nentrypoints:\n  server:\n    - prefix: /status\n      class: ops\n")
	rules, err = LoadAllowlist(custom, "server")
	require.NoError(t, err)
	assert.Equal(t, []AllowlistRule{{Prefix: "/status", Class: RouteClassOps}}, rules)

	_, err = LoadAllowlist(filepath.Join(dir, "missing.yaml"), "server")
	require.ErrorIs(t, err, ErrAllowlistNotFound)

	_, err = LoadAllowlist(custom, "worker")
	require.Error(t, err)

	badVersion := write("v2.yaml", "version: 2\nentrypoints: {}\n")
	_, err = LoadAllowlist(badVersion, "server")
	require.Error(t, err)

	badClass := write("class.yaml", "version: 1\nentrypoints:\n  server:\n    - prefix: /x\n      class: websocket\n")
	_, err = LoadAllowlist(badClass, "server")
	require.Error(t, err)

	badPrefix := write("prefix.yaml", "version: 1\nentrypoints:\n  server:\n    - prefix: api\n      class: api\n")
	_, err = LoadAllowlist(badPrefix, "server")
	require.Error(t, err)
}

func TestHasPathPrefixOnBoundary(t *testing.T) {
	assert.True(t, HasPathPrefixOnBoundary("/api/data", "/api"))
	assert.True(t, HasPathPrefixOnBoundary("/api", "/api"))
	assert.False(t, HasPathPrefixOnBoundary("/apiary", "/api"))
	assert.True(t, HasPathPrefixOnBoundary("/anything", "/"))
	assert.True(t, HasPathPrefixOnBoundary("/api/x", "/api/"))
	assert.False(t, HasPathPrefixOnBoundary("/api", ""))
}
