// Package platform builds the registry of per-platform adapter
// configurations used to seed the config normalizer.
package platform

import (
	"github.com/mharting/servecheck/internal/modelconfig"
)

// GraphDefAdapterConfig configures the TensorFlow GraphDef source adapter.
type GraphDefAdapterConfig struct {
	AllowGPUMemoryGrowth bool
}

// SavedModelAdapterConfig configures the TensorFlow SavedModel source adapter.
type SavedModelAdapterConfig struct {
	AllowGPUMemoryGrowth bool
	SessionTarget        string
}

// NetDefAdapterConfig configures the Caffe2 NetDef source adapter.
type NetDefAdapterConfig struct {
	NumWorkers int
}

// PlanAdapterConfig configures the TensorRT Plan source adapter.
type PlanAdapterConfig struct {
	MaxWorkspaceBytes int64
}

// CustomAdapterConfig configures the custom-backend source adapter.
type CustomAdapterConfig struct {
	LibraryPath string
}

// Entry wraps one platform's adapter configuration. The payload is opaque
// to the harness; the normalizer recovers the concrete type by platform
// key.
type Entry struct {
	Platform      string
	AdapterConfig any
}

// ConfigMap maps a platform identifier to its adapter configuration.
// It is built once per validation pass and never mutated afterwards.
type ConfigMap map[string]Entry

// NewConfigMap returns a ConfigMap with a default-constructed adapter
// configuration for every supported platform. Construction is pure and
// total: the result is a fresh value and there is no failure mode.
func NewConfigMap() ConfigMap {
	m := make(ConfigMap, 5)
	m.put(modelconfig.TensorFlowGraphDefPlatform, GraphDefAdapterConfig{})
	m.put(modelconfig.TensorFlowSavedModelPlatform, SavedModelAdapterConfig{})
	m.put(modelconfig.Caffe2NetDefPlatform, NetDefAdapterConfig{})
	m.put(modelconfig.TensorRTPlanPlatform, PlanAdapterConfig{})
	m.put(modelconfig.CustomPlatform, CustomAdapterConfig{})
	return m
}

func (m ConfigMap) put(platform string, adapterConfig any) {
	m[platform] = Entry{Platform: platform, AdapterConfig: adapterConfig}
}

// Has reports whether the map contains an entry for platform.
func (m ConfigMap) Has(platform string) bool {
	_, ok := m[platform]
	return ok
}
