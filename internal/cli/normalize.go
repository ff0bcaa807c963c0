package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mharting/servecheck/internal/modelconfig"
	"github.com/mharting/servecheck/internal/normalize"
	"github.com/mharting/servecheck/internal/platform"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	Root     string
	Autofill bool
}

// NormalizeResult is the JSON payload for a normalized configuration.
type NormalizeResult struct {
	Model  string `json:"model"`
	Config string `json:"config"`
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize <model-dir>",
		Short: "Print the normalized configuration for one model",
		Long: `Normalize and validate a single model directory's configuration and
print the resulting dump. This is the validation pipeline without the
bundle initialization and golden comparison stages, useful for
inspecting what the harness would compare.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", os.Getenv(RootEnvVar),
		"root directory for resolving the model path (default $"+RootEnvVar+")")
	cmd.Flags().BoolVar(&opts.Autofill, "autofill", false, "derive unspecified config fields from model artifacts")

	return cmd
}

func runNormalize(opts *NormalizeOptions, modelDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if !filepath.IsAbs(modelDir) && opts.Root != "" {
		modelDir = filepath.Join(opts.Root, modelDir)
	}

	cfg, err := normalize.Normalize(modelDir, platform.NewConfigMap(), opts.Autofill)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "normalization failed", err)
	}
	if err := modelconfig.Validate(cfg, ""); err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(NormalizeResult{
			Model:  filepath.Base(modelDir),
			Config: cfg.DebugString(),
		})
	}
	fmt.Fprint(cmd.OutOrStdout(), cfg.DebugString())
	return nil
}
