// Package normalize turns a model directory's raw configuration into a
// fully-specified one, optionally autofilling unspecified fields from the
// model's on-disk artifacts.
package normalize

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mharting/servecheck/internal/modelconfig"
	"github.com/mharting/servecheck/internal/platform"
)

// Normalize produces the fully-specified configuration for the model in
// modelDir.
//
// If the directory holds a configuration file it is strictly parsed;
// otherwise autofill must be enabled or normalization fails. With
// autofill, unset fields (platform, name, default filename) are derived
// from the artifacts under the version-1 subdirectory. Defaults that do
// not depend on artifacts (version policy, instance group) are applied in
// both postures.
//
// The resulting platform must have an entry in platforms.
func Normalize(modelDir string, platforms platform.ConfigMap, autofill bool) (*modelconfig.Config, error) {
	var cfg *modelconfig.Config
	switch {
	case modelconfig.HasConfig(modelDir):
		parsed, err := modelconfig.ReadConfig(modelDir)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	case autofill:
		cfg = &modelconfig.Config{}
	default:
		return nil, fmt.Errorf(
			"model %q has no %s and autofill is disabled",
			filepath.Base(modelDir), modelconfig.ConfigFileName)
	}

	if autofill {
		if err := applyAutofill(modelDir, cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(cfg)

	if !platforms.Has(cfg.Platform) {
		return nil, fmt.Errorf(
			"platform %q for model %q has no entry in the platform config map",
			cfg.Platform, cfg.Name)
	}

	return cfg, nil
}

// applyAutofill derives unset fields from the model's on-disk artifacts.
func applyAutofill(modelDir string, cfg *modelconfig.Config) error {
	if cfg.Name == "" {
		cfg.Name = filepath.Base(modelDir)
	}
	if cfg.Platform == "" {
		detected, err := detectPlatform(modelDir)
		if err != nil {
			return err
		}
		cfg.Platform = detected
	}
	return nil
}

// applyDefaults fills the fields that have static defaults.
func applyDefaults(cfg *modelconfig.Config) {
	if cfg.VersionPolicy == nil {
		cfg.VersionPolicy = &modelconfig.VersionPolicy{
			Latest: &modelconfig.LatestVersions{NumVersions: 1},
		}
	}
	if len(cfg.InstanceGroup) == 0 {
		cfg.InstanceGroup = []modelconfig.InstanceGroup{{
			Name:  cfg.Name,
			Kind:  "KIND_CPU",
			Count: 1,
		}}
	}
	if cfg.DefaultModelFilename == "" {
		if name, ok := modelconfig.DefaultModelFilenameFor(cfg.Platform); ok {
			cfg.DefaultModelFilename = name
		}
	}
}

// detectPlatform inspects the version-1 artifacts and infers which
// serving platform the model uses.
func detectPlatform(modelDir string) (string, error) {
	versionDir := filepath.Join(modelDir, modelconfig.DefaultVersion)

	if isDir(filepath.Join(versionDir, "model.savedmodel")) {
		return modelconfig.TensorFlowSavedModelPlatform, nil
	}
	if isFile(filepath.Join(versionDir, "model.graphdef")) {
		return modelconfig.TensorFlowGraphDefPlatform, nil
	}
	if isFile(filepath.Join(versionDir, "model.netdef")) &&
		isFile(filepath.Join(versionDir, "init_model.netdef")) {
		return modelconfig.Caffe2NetDefPlatform, nil
	}
	if isFile(filepath.Join(versionDir, "model.plan")) {
		return modelconfig.TensorRTPlanPlatform, nil
	}
	if isFile(filepath.Join(versionDir, "libcustom.so")) {
		return modelconfig.CustomPlatform, nil
	}

	return "", fmt.Errorf(
		"unable to derive platform for model %q from artifacts in %s",
		filepath.Base(modelDir), versionDir)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
