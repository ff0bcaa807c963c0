package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mharting/servecheck/internal/bundle"
	"github.com/mharting/servecheck/internal/modelconfig"
)

// recordingInit counts Initialize calls; it observes whether earlier
// pipeline stages short-circuited.
type recordingInit struct {
	calls int
	err   error
}

func (r *recordingInit) Platform() string { return "" }

func (r *recordingInit) Initialize(versionDir string, cfg *modelconfig.Config) error {
	r.calls++
	return r.err
}

// writeGraphDefModel lays out a model directory with a config file and a
// version-1 graphdef artifact, returning the model path.
func writeGraphDefModel(t *testing.T, base, name string) string {
	t.Helper()
	modelDir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(filepath.Join(modelDir, "1"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(modelDir, "1", "model.graphdef"), []byte("fake graphdef"), 0644))

	cfg := &modelconfig.Config{
		Name:         name,
		Platform:     modelconfig.TensorFlowGraphDefPlatform,
		MaxBatchSize: 8,
		Input: []modelconfig.IOSpec{
			{Name: "INPUT0", DataType: "TYPE_INT32", Dims: []int64{16}},
		},
		Output: []modelconfig.IOSpec{
			{Name: "OUTPUT0", DataType: "TYPE_INT32", Dims: []int64{16}},
		},
	}
	require.NoError(t, modelconfig.WriteConfig(modelDir, cfg))
	return modelDir
}

func TestValidateInit_Success(t *testing.T) {
	modelDir := writeGraphDefModel(t, t.TempDir(), "simple")

	result, ok := ValidateInit(modelDir, false, bundle.GraphDef{})
	require.True(t, ok, "pipeline failed: %s", result)
	assert.Contains(t, result, "name: simple")
	assert.Contains(t, result, "platform: tensorflow_graphdef")
	// Normalization fills the static defaults before the dump is taken.
	assert.Contains(t, result, "version_policy")
	assert.Contains(t, result, "default_model_filename: model.graphdef")
}

func TestValidateInit_NormalizeFailureShortCircuits(t *testing.T) {
	modelDir := filepath.Join(t.TempDir(), "no_config")
	require.NoError(t, os.MkdirAll(modelDir, 0755))

	init := &recordingInit{}
	result, ok := ValidateInit(modelDir, false, init)
	assert.False(t, ok)
	assert.Contains(t, result, "autofill is disabled")
	assert.Zero(t, init.calls, "initializer must not run after a normalize failure")
}

func TestValidateInit_UnsupportedPlatform(t *testing.T) {
	modelDir := filepath.Join(t.TempDir(), "bad_platform")
	require.NoError(t, os.MkdirAll(modelDir, 0755))
	require.NoError(t, modelconfig.WriteConfig(modelDir, &modelconfig.Config{
		Name:     "bad_platform",
		Platform: "pytorch_libtorch",
	}))

	init := &recordingInit{}
	result, ok := ValidateInit(modelDir, false, init)
	assert.False(t, ok)
	// The failure text names the offending platform so it can be matched
	// by failure-expecting golden files.
	assert.Contains(t, result, "pytorch_libtorch")
	assert.Zero(t, init.calls)
}

func TestValidateInit_ValidateFailureShortCircuits(t *testing.T) {
	modelDir := filepath.Join(t.TempDir(), "bad_batch")
	require.NoError(t, os.MkdirAll(modelDir, 0755))
	require.NoError(t, modelconfig.WriteConfig(modelDir, &modelconfig.Config{
		Name:         "bad_batch",
		Platform:     modelconfig.TensorFlowGraphDefPlatform,
		MaxBatchSize: -4,
	}))

	init := &recordingInit{}
	result, ok := ValidateInit(modelDir, false, init)
	assert.False(t, ok)
	assert.Contains(t, result, "max_batch_size")
	assert.Zero(t, init.calls, "initializer must not run after a validation failure")
}

func TestValidateInit_InitFailure(t *testing.T) {
	base := t.TempDir()
	modelDir := writeGraphDefModel(t, base, "missing_artifact")
	require.NoError(t, os.Remove(filepath.Join(modelDir, "1", "model.graphdef")))

	result, ok := ValidateInit(modelDir, false, bundle.GraphDef{})
	assert.False(t, ok)
	assert.Contains(t, result, "missing artifact")
}

func TestValidateInit_AutofillWithoutConfig(t *testing.T) {
	base := t.TempDir()
	modelDir := filepath.Join(base, "inferred")
	require.NoError(t, os.MkdirAll(filepath.Join(modelDir, "1"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(modelDir, "1", "model.graphdef"), []byte("fake"), 0644))

	result, ok := ValidateInit(modelDir, true, bundle.GraphDef{})
	require.True(t, ok, "pipeline failed: %s", result)
	assert.Contains(t, result, "name: inferred")
	assert.Contains(t, result, "platform: tensorflow_graphdef")
}
