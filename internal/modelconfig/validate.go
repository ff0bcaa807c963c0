package modelconfig

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Validation error codes (C100-C199).
const (
	ErrCodeSchema           = "C100" // structural schema violation
	ErrCodeNameEmpty        = "C101" // name is required
	ErrCodeUnknownPlatform  = "C102" // platform not in the supported set
	ErrCodePlatformMismatch = "C103" // platform differs from the expected one
	ErrCodeBatchNegative    = "C104" // max_batch_size must be >= 0
	ErrCodeIONameEmpty      = "C105" // input/output name is required
	ErrCodeIODataType       = "C106" // input/output data type invalid
	ErrCodeIODims           = "C107" // input/output dims invalid
	ErrCodeInstanceCount    = "C108" // instance group count must be >= 1
	ErrCodeVersionPolicy    = "C109" // version policy invalid
	ErrCodeInternal         = "C110" // validator internal error
)

// ValidationError is a single coded validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors aggregates every failure found in one pass.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks cfg against the structural schema and the platform
// invariants. It collects all errors rather than failing fast.
//
// expectedPlatform restricts which platform the config may declare; the
// empty string accepts whatever platform is set.
func Validate(cfg *Config, expectedPlatform string) error {
	errs := validateSchema(cfg)
	errs = append(errs, validateSemantics(cfg, expectedPlatform)...)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validateSchema unifies the config with the embedded CUE schema and
// collects any structural violations.
func validateSchema(cfg *Config) ValidationErrors {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return ValidationErrors{{
			Field:   "schema",
			Message: fmt.Sprintf("failed to compile config schema: %v", err),
			Code:    ErrCodeInternal,
		}}
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return ValidationErrors{{
			Field:   "schema",
			Message: "config schema has no #Config definition",
			Code:    ErrCodeInternal,
		}}
	}

	// Round-trip through YAML so CUE validates the wire shape of the
	// config rather than the Go struct.
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return ValidationErrors{{
			Field:   "config",
			Message: fmt.Sprintf("failed to marshal config: %v", err),
			Code:    ErrCodeInternal,
		}}
	}
	var wire map[string]any
	if err := yaml.Unmarshal(raw, &wire); err != nil {
		return ValidationErrors{{
			Field:   "config",
			Message: fmt.Sprintf("failed to decode config: %v", err),
			Code:    ErrCodeInternal,
		}}
	}

	unified := def.Unify(ctx.Encode(wire))
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		var errs ValidationErrors
		for _, e := range cueerrors.Errors(err) {
			errs = append(errs, ValidationError{
				Field:   strings.Join(e.Path(), "."),
				Message: e.Error(),
				Code:    ErrCodeSchema,
			})
		}
		return errs
	}
	return nil
}

// validateSemantics checks the rules the schema cannot express.
func validateSemantics(cfg *Config, expectedPlatform string) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(cfg.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "model configuration must specify a name",
			Code:    ErrCodeNameEmpty,
		})
	}

	if !KnownPlatform(cfg.Platform) {
		errs = append(errs, ValidationError{
			Field:   "platform",
			Message: fmt.Sprintf("platform %q is not supported; must be one of %v", cfg.Platform, Platforms()),
			Code:    ErrCodeUnknownPlatform,
		})
	}

	if expectedPlatform != "" && cfg.Platform != expectedPlatform {
		errs = append(errs, ValidationError{
			Field:   "platform",
			Message: fmt.Sprintf("platform %q does not match expected platform %q", cfg.Platform, expectedPlatform),
			Code:    ErrCodePlatformMismatch,
		})
	}

	if cfg.MaxBatchSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_batch_size",
			Message: fmt.Sprintf("max_batch_size must be non-negative, got %d", cfg.MaxBatchSize),
			Code:    ErrCodeBatchNegative,
		})
	}

	errs = append(errs, validateIOSpecs("input", cfg.Input)...)
	errs = append(errs, validateIOSpecs("output", cfg.Output)...)

	for i, group := range cfg.InstanceGroup {
		if group.Count < 1 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("instance_group[%d].count", i),
				Message: fmt.Sprintf("instance count must be at least 1, got %d", group.Count),
				Code:    ErrCodeInstanceCount,
			})
		}
	}

	if cfg.VersionPolicy != nil {
		errs = append(errs, validateVersionPolicy(cfg.VersionPolicy)...)
	}

	return errs
}

func validateIOSpecs(field string, specs []IOSpec) ValidationErrors {
	var errs ValidationErrors
	for i, spec := range specs {
		at := fmt.Sprintf("%s[%d]", field, i)
		if spec.Name == "" {
			errs = append(errs, ValidationError{
				Field:   at + ".name",
				Message: "tensor name is required",
				Code:    ErrCodeIONameEmpty,
			})
		}
		if !strings.HasPrefix(spec.DataType, "TYPE_") {
			errs = append(errs, ValidationError{
				Field:   at + ".data_type",
				Message: fmt.Sprintf("data type %q must have prefix TYPE_", spec.DataType),
				Code:    ErrCodeIODataType,
			})
		}
		if len(spec.Dims) == 0 {
			errs = append(errs, ValidationError{
				Field:   at + ".dims",
				Message: "dims must be non-empty",
				Code:    ErrCodeIODims,
			})
		}
		for j, dim := range spec.Dims {
			// -1 marks a variable-size dimension.
			if dim < 1 && dim != -1 {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.dims[%d]", at, j),
					Message: fmt.Sprintf("dimension must be -1 or >= 1, got %d", dim),
					Code:    ErrCodeIODims,
				})
			}
		}
	}
	return errs
}

func validateVersionPolicy(policy *VersionPolicy) ValidationErrors {
	set := 0
	if policy.Latest != nil {
		set++
	}
	if policy.All != nil {
		set++
	}
	if policy.Specific != nil {
		set++
	}
	if set != 1 {
		return ValidationErrors{{
			Field:   "version_policy",
			Message: fmt.Sprintf("exactly one of latest, all, specific must be set, got %d", set),
			Code:    ErrCodeVersionPolicy,
		}}
	}

	var errs ValidationErrors
	if policy.Latest != nil && policy.Latest.NumVersions < 1 {
		errs = append(errs, ValidationError{
			Field:   "version_policy.latest.num_versions",
			Message: fmt.Sprintf("num_versions must be at least 1, got %d", policy.Latest.NumVersions),
			Code:    ErrCodeVersionPolicy,
		})
	}
	if policy.Specific != nil && len(policy.Specific.Versions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "version_policy.specific.versions",
			Message: "versions must be non-empty",
			Code:    ErrCodeVersionPolicy,
		})
	}
	return errs
}
