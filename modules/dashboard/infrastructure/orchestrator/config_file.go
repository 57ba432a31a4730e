package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/syurii10/cloud-optimization-project/modules/dashboard/domain/testrun"
)

// ConfigFile writes the run configuration where the orchestrator reads it.
type ConfigFile struct {
	path string
}

func NewConfigFile(path string) *ConfigFile {
	return &ConfigFile{path: path}
}

func (f *ConfigFile) Path() string {
	return f.path
}

// Save replaces the file atomically so the orchestrator never observes a
// partial write.
func (f *ConfigFile) Save(cfg testrun.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode test config")
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".test_config-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create temp config")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write temp config")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp config")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrap(err, "failed to chmod temp config")
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Wrapf(err, "failed to write %s", f.path)
	}
	return nil
}
