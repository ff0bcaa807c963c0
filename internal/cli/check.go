package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mharting/servecheck/internal/bundle"
	"github.com/mharting/servecheck/internal/harness"
	"github.com/mharting/servecheck/internal/store"
)

// RootEnvVar names the environment variable holding the default root
// against which repository paths resolve.
const RootEnvVar = "SERVECHECK_ROOT"

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Root     string
	Autofill bool
	Platform string
	All      bool   // run the two canonical fixture postures
	Record   string // sqlite database to record results into
}

// CheckResult holds the overall result of a check run.
type CheckResult struct {
	RunID  string                `json:"run_id,omitempty"`
	Models []harness.ModelResult `json:"models"`
	Passed int                   `json:"passed"`
	Failed int                   `json:"failed"`
	Total  int                   `json:"total"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check [repository]",
		Short: "Validate every model under a repository path",
		Long: `Validate every model directory under a repository path.

Each model is normalized (optionally with autofill), validated, loaded
through its bundle initializer, and its configuration dump is compared
against the model's expected* golden files. When --platform is given,
each model's on-disk configuration file is rewritten in place to use
that platform before validation; the mutation persists in the fixture
tree.

Exit codes:
  0 - All models passed
  1 - One or more models failed
  2 - Command error (unlistable repository, broken fixture, etc.)

Examples:
  servecheck check ./testdata/model_config_sanity --platform tensorrt_plan
  servecheck check ./testdata/autofill_sanity --autofill
  servecheck check --all --platform tensorflow_graphdef
  servecheck check ./models --autofill --record results.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.All && len(args) == 0 {
				return NewExitError(ExitCommandError, "a repository path is required unless --all is given")
			}
			repo := ""
			if len(args) == 1 {
				repo = args[0]
			}
			return runCheck(opts, repo, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", os.Getenv(RootEnvVar),
		"root directory for resolving repository paths (default $"+RootEnvVar+")")
	cmd.Flags().BoolVar(&opts.Autofill, "autofill", false, "derive unspecified config fields from model artifacts")
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "force this platform into each model's config file")
	cmd.Flags().BoolVar(&opts.All, "all", false, "run the canonical sanity and autofill fixture repositories")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record results into this sqlite database")

	return cmd
}

func runCheck(opts *CheckOptions, repo string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	init := bundle.Initializer(bundle.Nop{})
	if opts.Platform != "" {
		if forPlatform, ok := bundle.ForPlatform(opts.Platform); ok {
			init = forPlatform
		} else {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown platform %q", opts.Platform))
		}
	}

	walker := harness.Walker{
		Root:     opts.Root,
		Autofill: opts.Autofill,
		Platform: opts.Platform,
		Init:     init,
		Logger:   logger,
	}

	var results []harness.ModelResult
	var err error
	if opts.All {
		results, err = walker.ValidateAll()
		repo = "all"
	} else {
		results, err = walker.ValidateOne(repo)
	}
	if err != nil {
		formatter.Error(ErrCodeEnvironment, err.Error(), nil)
		return WrapExitError(ExitCommandError, "validation run aborted", err)
	}

	result := CheckResult{Models: results, Total: len(results)}
	for _, model := range results {
		if model.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Record != "" {
		runID, err := recordResults(cmd, opts, repo, results)
		if err != nil {
			formatter.Error(ErrCodeRecord, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record results", err)
		}
		result.RunID = runID
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for _, model := range results {
			status := "PASS"
			if !model.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(out, "%s  %s\n", status, model.Model)
		}
		fmt.Fprintf(out, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d models failed", result.Failed, result.Total))
	}
	return nil
}

// recordResults writes the run and its per-model results to the sqlite
// database named by --record.
func recordResults(cmd *cobra.Command, opts *CheckOptions, repo string, results []harness.ModelResult) (string, error) {
	db, err := store.Open(opts.Record)
	if err != nil {
		return "", err
	}
	defer db.Close()

	ctx := cmd.Context()
	run := store.NewRun(repo, opts.Autofill, opts.Platform)
	if err := db.WriteRun(ctx, run); err != nil {
		return "", err
	}
	for _, result := range results {
		if err := db.WriteModelResult(ctx, run.ID, result); err != nil {
			return "", err
		}
	}
	return run.ID, nil
}
