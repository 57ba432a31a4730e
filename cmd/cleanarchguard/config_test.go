package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".gocleanarch.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "version: 1\nignore_tests: true\n"))
	require.NoError(t, err)

	assert.Equal(t, "modules", cfg.Root)
	assert.True(t, cfg.IgnoreTests)

	aliases := cfg.layerAliases()
	assert.Equal(t, cleanarch.LayerDomain, aliases["domain"])
	assert.Equal(t, cleanarch.LayerApplication, aliases["services"])
	assert.Equal(t, cleanarch.LayerInterfaces, aliases["presentation"])
	assert.Equal(t, cleanarch.LayerInfrastructure, aliases["infrastructure"])
}

func TestLoadConfig_CustomAliasesReplaceDefaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "root: pkg\naliases:\n  application: [usecases]\n"))
	require.NoError(t, err)

	aliases := cfg.layerAliases()
	assert.Equal(t, "pkg", cfg.Root)
	assert.Equal(t, cleanarch.LayerApplication, aliases["usecases"])
	_, ok := aliases["services"]
	assert.False(t, ok)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	_, err = loadConfig(writeConfig(t, "version: 3\n"))
	require.Error(t, err)

	_, err = loadConfig(writeConfig(t, "root: [\n"))
	require.Error(t, err)
}

func TestResolveRoot(t *testing.T) {
	_, err := resolveRoot("  ")
	require.Error(t, err)

	abs, err := resolveRoot("modules")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
}

func TestFilterViolations(t *testing.T) {
	cfg := &config{
		SharedModules:     []string{"shared"},
		AllowedViolations: []string{"handlers/run_events_handler.go"},
	}
	messages := []string{
		"cannot import between dashboard and shared modules",
		"infrastructure imported from domain in handlers/run_events_handler.go",
		"infrastructure imported from services in services/snapshot_service.go",
	}

	assert.Equal(t,
		[]string{"infrastructure imported from services in services/snapshot_service.go"},
		filterViolations(messages, cfg),
	)
	assert.Nil(t, filterViolations(nil, cfg))
}
