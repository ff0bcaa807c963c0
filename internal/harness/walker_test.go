package harness

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mharting/servecheck/internal/bundle"
	"github.com/mharting/servecheck/internal/modelconfig"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeExpected stores a golden file produced by actually running the
// pipeline, optionally truncated by trunc bytes.
func writeExpected(t *testing.T, modelDir, name string, autofill bool, init bundle.Initializer, trunc int) {
	t.Helper()
	actual, _ := ValidateInit(modelDir, autofill, init)
	require.Greater(t, len(actual), trunc)
	require.NoError(t, os.WriteFile(
		filepath.Join(modelDir, name), []byte(actual[:len(actual)-trunc]), 0644))
}

func TestValidateOne_Aggregation(t *testing.T) {
	repo := t.TempDir()

	passing := writeGraphDefModel(t, repo, "passing")
	writeExpected(t, passing, "expected", false, bundle.GraphDef{}, 0)

	failing := writeGraphDefModel(t, repo, "failing")
	require.NoError(t, os.WriteFile(
		filepath.Join(failing, "expected"), []byte("not what the pipeline prints"), 0644))

	w := Walker{Init: bundle.GraphDef{}, Logger: discardLogger()}
	results, err := w.ValidateOne(repo)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// os.ReadDir lists in name order.
	assert.Equal(t, "failing", results[0].Model)
	assert.False(t, results[0].Pass)
	assert.Equal(t, "not what the pipeline prints", results[0].Expected)
	assert.NotEmpty(t, results[0].Actual)

	assert.Equal(t, "passing", results[1].Model)
	assert.True(t, results[1].Pass)
	assert.Empty(t, results[1].Expected)
}

func TestValidateOne_VacuousPass(t *testing.T) {
	repo := t.TempDir()
	writeGraphDefModel(t, repo, "no_expectations")

	w := Walker{Init: bundle.GraphDef{}, Logger: discardLogger()}
	results, err := w.ValidateOne(repo)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Pass)
}

func TestValidateOne_TruncatedGolden(t *testing.T) {
	repo := t.TempDir()
	modelDir := filepath.Join(repo, "inferred")
	require.NoError(t, os.MkdirAll(filepath.Join(modelDir, "1"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(modelDir, "1", "model.graphdef"), []byte("fake"), 0644))

	// Golden file stops short of the dump's trailing fields; the
	// truncation rule must still accept the longer actual output.
	writeExpected(t, modelDir, "expected_autofill.txt", true, bundle.GraphDef{}, 25)

	w := Walker{Autofill: true, Init: bundle.GraphDef{}, Logger: discardLogger()}
	results, err := w.ValidateOne(repo)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Pass, "expected: %s\nactual: %s", results[0].Expected, results[0].Actual)
}

func TestValidateOne_PlatformOverride(t *testing.T) {
	repo := t.TempDir()
	modelDir := writeGraphDefModel(t, repo, "overridden")

	w := Walker{
		Platform: modelconfig.TensorRTPlanPlatform,
		Init:     bundle.Plan{},
		Logger:   discardLogger(),
	}
	_, err := w.ValidateOne(repo)
	require.NoError(t, err)

	cfg, err := modelconfig.ReadConfig(modelDir)
	require.NoError(t, err)
	assert.Equal(t, modelconfig.TensorRTPlanPlatform, cfg.Platform)
	// Only the platform field changes.
	assert.Equal(t, "overridden", cfg.Name)
	assert.Equal(t, 8, cfg.MaxBatchSize)
	require.Len(t, cfg.Input, 1)
	assert.Equal(t, "INPUT0", cfg.Input[0].Name)
}

func TestValidateOne_OverrideIdempotence(t *testing.T) {
	repo := t.TempDir()
	modelDir := writeGraphDefModel(t, repo, "twice")
	configPath := modelconfig.ConfigPath(modelDir)

	w := Walker{
		Platform: modelconfig.TensorRTPlanPlatform,
		Init:     bundle.Plan{},
		Logger:   discardLogger(),
	}

	_, err := w.ValidateOne(repo)
	require.NoError(t, err)
	first, err := os.ReadFile(configPath)
	require.NoError(t, err)

	_, err = w.ValidateOne(repo)
	require.NoError(t, err)
	second, err := os.ReadFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, first, second, "rewriting the same platform must be byte-identical")
}

func TestValidateOne_MissingRepositoryIsFatal(t *testing.T) {
	w := Walker{Logger: discardLogger()}
	_, err := w.ValidateOne(filepath.Join(t.TempDir(), "does_not_exist"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list model repository")
}

func TestValidateOne_BrokenConfigRewriteIsFatal(t *testing.T) {
	repo := t.TempDir()
	modelDir := filepath.Join(repo, "broken")
	require.NoError(t, os.MkdirAll(modelDir, 0755))
	require.NoError(t, os.WriteFile(
		modelconfig.ConfigPath(modelDir), []byte("platform: [unclosed"), 0644))

	w := Walker{Platform: modelconfig.TensorRTPlanPlatform, Logger: discardLogger()}
	_, err := w.ValidateOne(repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to rewrite platform")
}

func TestValidateOne_ResolvesAgainstRoot(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "models")
	require.NoError(t, os.MkdirAll(repo, 0755))
	writeGraphDefModel(t, repo, "relative")

	w := Walker{Root: root, Init: bundle.GraphDef{}, Logger: discardLogger()}
	results, err := w.ValidateOne("models")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "relative", results[0].Model)
}

func TestValidateOne_SkipsPlainFiles(t *testing.T) {
	repo := t.TempDir()
	writeGraphDefModel(t, repo, "only_model")
	require.NoError(t, os.WriteFile(filepath.Join(repo, "README"), []byte("notes"), 0644))

	w := Walker{Init: bundle.GraphDef{}, Logger: discardLogger()}
	results, err := w.ValidateOne(repo)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "only_model", results[0].Model)
}

func TestValidateAll(t *testing.T) {
	root := t.TempDir()

	sanityRepo := filepath.Join(root, SanityRepo)
	require.NoError(t, os.MkdirAll(sanityRepo, 0755))
	sanityModel := writeGraphDefModel(t, sanityRepo, "sanity_model")
	writeExpected(t, sanityModel, "expected", false, bundle.GraphDef{}, 0)

	autofillRepo := filepath.Join(root, AutofillRepo)
	autofillModel := filepath.Join(autofillRepo, "autofill_model")
	require.NoError(t, os.MkdirAll(filepath.Join(autofillModel, "1"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(autofillModel, "1", "model.graphdef"), []byte("fake"), 0644))
	writeExpected(t, autofillModel, "expected", true, bundle.GraphDef{}, 0)

	w := Walker{
		Root:     root,
		Platform: modelconfig.TensorFlowGraphDefPlatform,
		Init:     bundle.GraphDef{},
		Logger:   discardLogger(),
	}
	results, err := w.ValidateAll()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "sanity_model", results[0].Model)
	assert.True(t, results[0].Pass, "expected: %s\nactual: %s", results[0].Expected, results[0].Actual)
	assert.Equal(t, "autofill_model", results[1].Model)
	assert.True(t, results[1].Pass, "expected: %s\nactual: %s", results[1].Expected, results[1].Actual)
}

func TestValidateAll_MissingFixturesIsFatal(t *testing.T) {
	w := Walker{Root: t.TempDir(), Logger: discardLogger()}
	_, err := w.ValidateAll()
	require.Error(t, err)
}
