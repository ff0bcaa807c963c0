// Package bundle defines the capability used to load a model's versioned
// artifacts and one implementation per supported serving format.
//
// Initializers here do not run any framework; they verify that the
// version directory holds the artifacts the format requires, which is
// what the harness needs to exercise the load path.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mharting/servecheck/internal/modelconfig"
)

// Initializer loads a model's versioned artifacts using its normalized
// configuration. One implementation exists per supported model format, so
// the set of formats stays closed and enumerable.
type Initializer interface {
	// Platform returns the platform identifier this initializer serves.
	Platform() string

	// Initialize attempts to load the model version in versionDir.
	Initialize(versionDir string, cfg *modelconfig.Config) error
}

// ForPlatform returns the initializer for a platform, or false if the
// platform is unknown.
func ForPlatform(platform string) (Initializer, bool) {
	switch platform {
	case modelconfig.TensorFlowGraphDefPlatform:
		return GraphDef{}, true
	case modelconfig.TensorFlowSavedModelPlatform:
		return SavedModel{}, true
	case modelconfig.Caffe2NetDefPlatform:
		return NetDef{}, true
	case modelconfig.TensorRTPlanPlatform:
		return Plan{}, true
	case modelconfig.CustomPlatform:
		return Custom{}, true
	default:
		return nil, false
	}
}

// Nop accepts any configuration without touching the filesystem. It is
// the initializer to use when only normalization and validation are under
// test.
type Nop struct{}

func (Nop) Platform() string { return "" }

func (Nop) Initialize(versionDir string, cfg *modelconfig.Config) error { return nil }

// GraphDef initializes TensorFlow GraphDef bundles.
type GraphDef struct{}

func (GraphDef) Platform() string { return modelconfig.TensorFlowGraphDefPlatform }

func (g GraphDef) Initialize(versionDir string, cfg *modelconfig.Config) error {
	return checkArtifact(g, versionDir, cfg, false)
}

// SavedModel initializes TensorFlow SavedModel bundles. The artifact is a
// directory rather than a single file.
type SavedModel struct{}

func (SavedModel) Platform() string { return modelconfig.TensorFlowSavedModelPlatform }

func (s SavedModel) Initialize(versionDir string, cfg *modelconfig.Config) error {
	return checkArtifact(s, versionDir, cfg, true)
}

// NetDef initializes Caffe2 NetDef bundles, which need both a predict net
// and an init net.
type NetDef struct{}

func (NetDef) Platform() string { return modelconfig.Caffe2NetDefPlatform }

func (n NetDef) Initialize(versionDir string, cfg *modelconfig.Config) error {
	if err := checkArtifact(n, versionDir, cfg, false); err != nil {
		return err
	}
	initNet := filepath.Join(versionDir, "init_model.netdef")
	if !exists(initNet, false) {
		return fmt.Errorf("netdef bundle for model %q is missing init net %s", cfg.Name, initNet)
	}
	return nil
}

// Plan initializes TensorRT Plan bundles.
type Plan struct{}

func (Plan) Platform() string { return modelconfig.TensorRTPlanPlatform }

func (p Plan) Initialize(versionDir string, cfg *modelconfig.Config) error {
	return checkArtifact(p, versionDir, cfg, false)
}

// Custom initializes custom-backend bundles.
type Custom struct{}

func (Custom) Platform() string { return modelconfig.CustomPlatform }

func (c Custom) Initialize(versionDir string, cfg *modelconfig.Config) error {
	return checkArtifact(c, versionDir, cfg, false)
}

// checkArtifact verifies the config targets the initializer's platform
// and that the expected model artifact is present in versionDir.
func checkArtifact(init Initializer, versionDir string, cfg *modelconfig.Config, wantDir bool) error {
	if cfg.Platform != init.Platform() {
		return fmt.Errorf(
			"cannot initialize %s bundle for model %q: config platform is %q",
			init.Platform(), cfg.Name, cfg.Platform)
	}

	filename := cfg.DefaultModelFilename
	if filename == "" {
		filename, _ = modelconfig.DefaultModelFilenameFor(init.Platform())
	}

	artifact := filepath.Join(versionDir, filename)
	if !exists(artifact, wantDir) {
		return fmt.Errorf(
			"%s bundle for model %q is missing artifact %s",
			init.Platform(), cfg.Name, artifact)
	}
	return nil
}

func exists(path string, wantDir bool) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir() == wantDir
}
