package harness

import (
	"path/filepath"

	"github.com/mharting/servecheck/internal/bundle"
	"github.com/mharting/servecheck/internal/modelconfig"
	"github.com/mharting/servecheck/internal/normalize"
	"github.com/mharting/servecheck/internal/platform"
)

// ValidateInit runs the full validation pipeline for one model directory:
// normalize, validate, then initialize the version-1 bundle.
//
// On success ok is true and result holds the normalized configuration's
// textual dump. On the first failing stage the pipeline short-circuits:
// ok is false and result holds that stage's error text verbatim. There is
// no retry and no partial success.
func ValidateInit(modelDir string, autofill bool, init bundle.Initializer) (result string, ok bool) {
	platforms := platform.NewConfigMap()

	cfg, err := normalize.Normalize(modelDir, platforms, autofill)
	if err != nil {
		return err.Error(), false
	}

	// Empty expected platform: accept whatever platform normalization
	// settled on.
	if err := modelconfig.Validate(cfg, ""); err != nil {
		return err.Error(), false
	}

	// The harness assumes the configuration corresponds to version "1".
	versionPath := filepath.Join(modelDir, modelconfig.DefaultVersion)
	if err := init.Initialize(versionPath, cfg); err != nil {
		return err.Error(), false
	}

	return cfg.DebugString(), true
}
