// Package modelconfig defines the serving configuration for a single model
// and its on-disk representation.
//
// A model directory holds its configuration in a fixed-name YAML file
// (ConfigFileName). Parsing is strict: unknown fields are rejected so that
// fixture typos surface as errors rather than silently-ignored settings.
package modelconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the fixed file name of a model's configuration inside
// its model directory.
const ConfigFileName = "config.yaml"

// DefaultVersion is the version subdirectory the harness assumes a model
// configuration corresponds to.
const DefaultVersion = "1"

// Supported serving platforms. The set is closed: the registry, the
// validator and the bundle initializers all enumerate exactly these.
const (
	TensorFlowGraphDefPlatform   = "tensorflow_graphdef"
	TensorFlowSavedModelPlatform = "tensorflow_savedmodel"
	Caffe2NetDefPlatform         = "caffe2_netdef"
	TensorRTPlanPlatform         = "tensorrt_plan"
	CustomPlatform               = "custom"
)

// Platforms returns the closed set of supported platform identifiers in a
// fixed order.
func Platforms() []string {
	return []string{
		TensorFlowGraphDefPlatform,
		TensorFlowSavedModelPlatform,
		Caffe2NetDefPlatform,
		TensorRTPlanPlatform,
		CustomPlatform,
	}
}

// KnownPlatform reports whether p is one of the supported platforms.
func KnownPlatform(p string) bool {
	for _, known := range Platforms() {
		if p == known {
			return true
		}
	}
	return false
}

// DefaultModelFilenameFor returns the conventional artifact name for a
// platform's model file inside a version directory. ok is false for
// unknown platforms.
func DefaultModelFilenameFor(platform string) (name string, ok bool) {
	switch platform {
	case TensorFlowGraphDefPlatform:
		return "model.graphdef", true
	case TensorFlowSavedModelPlatform:
		return "model.savedmodel", true
	case Caffe2NetDefPlatform:
		return "model.netdef", true
	case TensorRTPlanPlatform:
		return "model.plan", true
	case CustomPlatform:
		return "libcustom.so", true
	default:
		return "", false
	}
}

// IOSpec describes one input or output tensor of a model.
type IOSpec struct {
	Name     string  `yaml:"name"`
	DataType string  `yaml:"data_type"`
	Dims     []int64 `yaml:"dims"`
}

// LatestVersions serves the newest NumVersions versions of a model.
type LatestVersions struct {
	NumVersions int `yaml:"num_versions"`
}

// AllVersions serves every available version.
type AllVersions struct{}

// SpecificVersions serves only the listed versions.
type SpecificVersions struct {
	Versions []int64 `yaml:"versions"`
}

// VersionPolicy selects which versions of a model are served.
// Exactly one of the three fields may be set.
type VersionPolicy struct {
	Latest   *LatestVersions   `yaml:"latest,omitempty"`
	All      *AllVersions      `yaml:"all,omitempty"`
	Specific *SpecificVersions `yaml:"specific,omitempty"`
}

// InstanceGroup describes a group of execution instances for a model.
type InstanceGroup struct {
	Name  string `yaml:"name,omitempty"`
	Kind  string `yaml:"kind,omitempty"` // KIND_CPU or KIND_GPU
	Count int    `yaml:"count,omitempty"`
	GPUs  []int  `yaml:"gpus,omitempty"`
}

// Config is the serving configuration for one model.
//
// Field order matters: DebugString marshals the struct as-is, and golden
// files depend on that order being stable.
type Config struct {
	Name                 string          `yaml:"name"`
	Platform             string          `yaml:"platform"`
	MaxBatchSize         int             `yaml:"max_batch_size"`
	Input                []IOSpec        `yaml:"input,omitempty"`
	Output               []IOSpec        `yaml:"output,omitempty"`
	VersionPolicy        *VersionPolicy  `yaml:"version_policy,omitempty"`
	InstanceGroup        []InstanceGroup `yaml:"instance_group,omitempty"`
	DefaultModelFilename string          `yaml:"default_model_filename,omitempty"`
}

// SetPlatform overwrites the platform field.
func (c *Config) SetPlatform(platform string) {
	c.Platform = platform
}

// DebugString returns the deterministic textual dump of the configuration.
// This is the text compared against golden files, so it must be stable
// across runs for an identical configuration.
func (c *Config) DebugString() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		// Config contains only marshalable types; this is unreachable in
		// practice but must not panic inside the harness.
		return fmt.Sprintf("!error marshaling config: %v", err)
	}
	return string(out)
}

// ConfigPath returns the path of the configuration file inside modelDir.
func ConfigPath(modelDir string) string {
	return filepath.Join(modelDir, ConfigFileName)
}

// HasConfig reports whether modelDir contains a configuration file.
func HasConfig(modelDir string) bool {
	info, err := os.Stat(ConfigPath(modelDir))
	return err == nil && !info.IsDir()
}

// ReadConfig reads and strictly parses the configuration file in modelDir.
func ReadConfig(modelDir string) (*Config, error) {
	path := ConfigPath(modelDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration text. Unknown fields are errors.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}
	return &cfg, nil
}

// WriteConfig writes cfg to the fixed-name configuration file in modelDir,
// replacing any existing file.
func WriteConfig(modelDir string, cfg *Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal model config: %w", err)
	}
	path := ConfigPath(modelDir)
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write model config %s: %w", path, err)
	}
	return nil
}
