package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/qoracle/internal/harness"
	"github.com/roach88/qoracle/internal/oracle"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Filter string // scenario name filter (glob pattern)
	Probe  bool   // also run the concurrency guard and cancellation checks
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string   `json:"name"`
	Pass    bool     `json:"pass"`
	Rows    int      `json:"rows"`
	Entries int      `json:"entries"`
	Value   *int64   `json:"value,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// CheckResult holds the overall check result.
type CheckResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <scenarios-dir>",
		Short: "Run query scenarios through the oracle",
		Long: `Run every scenario file in a directory against a seeded store and
compare each live result with the snapshot baseline.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios, etc.)

Examples:
  qoracle check ./scenarios
  qoracle check ./scenarios --filter "london-*"
  qoracle check ./scenarios --probe --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the name")
	cmd.Flags().BoolVar(&opts.Probe, "probe", false, "also check the concurrency guard and cancellation")

	return cmd
}

func runCheck(ctx context.Context, opts *CheckOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeScenariosNotFound,
			NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir)))
	}

	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeScenarioLoad,
			WrapExitError(ExitCommandError, "failed to load scenarios", err))
	}
	if scenarios, err = filterScenarios(scenarios, opts.Filter); err != nil {
		return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeInvalidFilter,
			WrapExitError(ExitCommandError, "invalid filter", err))
	}

	if len(scenarios) == 0 {
		if opts.Format == "json" {
			return outputCheckJSON(cmd, CheckResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	cfg, logger, err := opts.load(cmd.ErrOrStderr())
	if err != nil {
		return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeConfig, err)
	}
	fx, err := oracle.Open(ctx, oracle.WithConfig(cfg), oracle.WithLogger(logger))
	if err != nil {
		return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeFixture,
			WrapExitError(ExitCommandError, "failed to open fixture", err))
	}
	defer func() {
		if closeErr := fx.Close(); closeErr != nil {
			logger.Error("error closing fixture", "error", closeErr)
		}
	}()

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	h := harness.New(fx, logger)
	result := CheckResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarios)),
		Total:     len(scenarios),
	}
	for _, s := range scenarios {
		f.VerboseLog("checking %s: %s", s.Name, s.Description)
		sr, err := checkScenario(ctx, h, s, opts)
		if err != nil {
			return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeScenarioError,
				WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s could not be checked", s.Name), err))
		}
		if opts.Format != "json" {
			printScenario(cmd, sr)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputCheckJSON(cmd, result)
	}
	return outputCheckText(cmd, result)
}

// checkScenario runs one scenario. The returned error means the scenario
// is defective or the run was canceled, not that it failed.
func checkScenario(ctx context.Context, h *harness.Harness, s *harness.Scenario, opts *CheckOptions) (ScenarioResult, error) {
	r, err := h.Run(ctx, s)
	if err != nil {
		return ScenarioResult{}, err
	}
	sr := ScenarioResult{
		Name:    r.Name,
		Pass:    r.Pass,
		Rows:    len(r.Rows),
		Entries: r.Entries,
		Value:   r.Value,
		Errors:  r.Errors,
	}
	if opts.Probe && sr.Pass {
		if err := h.Probe(ctx, s); err != nil {
			if oracle.IsAuthoringError(err) || oracle.IsCancellation(err) {
				return ScenarioResult{}, err
			}
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
		}
	}
	return sr, nil
}

// filterScenarios keeps scenarios whose name matches the glob pattern.
func filterScenarios(scenarios []*harness.Scenario, pattern string) ([]*harness.Scenario, error) {
	if pattern == "" {
		return scenarios, nil
	}
	var out []*harness.Scenario
	for _, s := range scenarios {
		matched, err := filepath.Match(pattern, s.Name)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, s)
		}
	}
	return out, nil
}

func printScenario(cmd *cobra.Command, sr ScenarioResult) {
	w := cmd.OutOrStdout()
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s (%d rows, %d tracked)\n", sr.Name, sr.Rows, sr.Entries)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// outputCheckJSON outputs the check result as JSON.
func outputCheckJSON(cmd *cobra.Command, result CheckResult) error {
	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if result.Failed == 0 {
		return f.Success(result)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := f.Failure(result, ErrCodeCheckFailed, msg); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

// outputCheckText outputs the check summary as text.
func outputCheckText(cmd *cobra.Command, result CheckResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Check Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
