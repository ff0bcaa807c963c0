package harness

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mharting/servecheck/internal/bundle"
	"github.com/mharting/servecheck/internal/modelconfig"
)

// Fixture repository paths used by ValidateAll, resolved against the
// walker's root.
const (
	SanityRepo   = "testdata/model_config_sanity"
	AutofillRepo = "testdata/autofill_sanity"
)

// ModelResult is the outcome of validating one model directory.
type ModelResult struct {
	// Model is the model directory's base name.
	Model string `json:"model"`

	// Pass is true when the pipeline output matched a golden candidate
	// (or the model had no golden files to violate).
	Pass bool `json:"pass"`

	// Actual is the pipeline's textual result: the configuration dump on
	// success, or the failing stage's error text.
	Actual string `json:"actual,omitempty"`

	// Expected is the failure exemplar: the last golden candidate
	// compared. Empty when the model passed.
	Expected string `json:"expected,omitempty"`
}

// Walker enumerates the model directories under a repository path and
// validates each one.
//
// Root is the directory against which relative repository paths resolve;
// it is explicit rather than read from the environment so callers control
// it. Platform, when non-empty, is rewritten into each model's on-disk
// configuration file before validation — a deliberate, persistent
// mutation of the fixture tree, idempotent per value. A nil Init defaults
// to bundle.Nop. A nil Logger defaults to slog.Default.
type Walker struct {
	Root     string
	Autofill bool
	Platform string
	Init     bundle.Initializer
	Logger   *slog.Logger
}

// ValidateOne validates every model directory directly under repoPath and
// returns one result per model, in listing order.
//
// Per-model failures are recorded and the walk continues. The returned
// error is fatal: an unlistable repository or model directory, or a
// failed platform rewrite, aborts the run immediately.
func (w *Walker) ValidateOne(repoPath string) ([]ModelResult, error) {
	base := repoPath
	if !filepath.IsAbs(repoPath) && w.Root != "" {
		base = filepath.Join(w.Root, repoPath)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("failed to list model repository %s: %w", base, err)
	}

	log := w.logger()
	init := w.initializer()

	var results []ModelResult
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		modelDir := filepath.Join(base, entry.Name())

		// A requested platform override is written through to the fixture
		// before the pipeline sees it.
		if w.Platform != "" && modelconfig.HasConfig(modelDir) {
			if err := rewritePlatform(modelDir, w.Platform); err != nil {
				return nil, err
			}
		}

		log.Info("testing model", "model", entry.Name())

		// The textual result is compared even when the pipeline failed:
		// some fixtures expect a specific failure text.
		actual, _ := ValidateInit(modelDir, w.Autofill, init)

		candidates, err := readCandidates(modelDir)
		if err != nil {
			return nil, err
		}
		for _, candidate := range candidates {
			log.Info("comparing with expected file",
				"model", entry.Name(), "file", candidate.Name)
		}

		pass, exemplar := MatchCandidates(candidates, actual)
		if !pass {
			log.Error("model output does not match any expected file",
				"model", entry.Name(),
				"expected", exemplar,
				"actual", actual)
		}

		results = append(results, ModelResult{
			Model:    entry.Name(),
			Pass:     pass,
			Actual:   actual,
			Expected: exemplar,
		})
	}

	return results, nil
}

// ValidateAll runs the two canonical fixture postures: the sanity
// repository with autofill disabled and the walker's platform forced,
// then the autofill repository with autofill enabled and no override.
func (w *Walker) ValidateAll() ([]ModelResult, error) {
	sanity := Walker{
		Root:     w.Root,
		Autofill: false,
		Platform: w.Platform,
		Init:     w.Init,
		Logger:   w.Logger,
	}
	results, err := sanity.ValidateOne(SanityRepo)
	if err != nil {
		return nil, err
	}

	autofill := Walker{
		Root:     w.Root,
		Autofill: true,
		Init:     w.Init,
		Logger:   w.Logger,
	}
	more, err := autofill.ValidateOne(AutofillRepo)
	if err != nil {
		return nil, err
	}

	return append(results, more...), nil
}

func (w *Walker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

func (w *Walker) initializer() bundle.Initializer {
	if w.Init != nil {
		return w.Init
	}
	return bundle.Nop{}
}

// rewritePlatform parses the model's configuration file, overwrites its
// platform field, and writes it back in place. Re-running with the same
// platform yields a byte-identical file.
func rewritePlatform(modelDir, platform string) error {
	cfg, err := modelconfig.ReadConfig(modelDir)
	if err != nil {
		return fmt.Errorf("failed to rewrite platform in %s: %w", modelDir, err)
	}
	cfg.SetPlatform(platform)
	if err := modelconfig.WriteConfig(modelDir, cfg); err != nil {
		return fmt.Errorf("failed to rewrite platform in %s: %w", modelDir, err)
	}
	return nil
}
