package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qoracle/internal/fixture"
	"github.com/roach88/qoracle/internal/model"
	"github.com/roach88/qoracle/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
	Driver   string
}

// SeedResult reports the row count of every set after seeding.
type SeedResult struct {
	Database string           `json:"database"`
	Seeded   bool             `json:"seeded"` // false if the data set was already present
	Counts   map[string]int64 `json:"counts"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the Northwind data set to a SQLite file",
		Long: `Create a SQLite database holding the generated Northwind data set.

Point the dsn setting at the file to run checks against it instead of a
private in-memory store. Seeding an already seeded file is a no-op.

Example:
  qoracle seed --db ./northwind.db
  qoracle seed --db ./northwind.db --driver sqlite`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "sqlite driver (sqlite3|sqlite); defaults to the configured driver")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSeed(ctx context.Context, opts *SeedOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := opts.load(cmd.ErrOrStderr())
	if err != nil {
		return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeConfig, err)
	}
	driver := opts.Driver
	if driver == "" {
		driver = cfg.Driver
	}

	logger.Info("opening database", "path", opts.Database, "driver", driver)
	s, err := store.Open(opts.Database, store.WithDriver(driver))
	if err != nil {
		return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeDatabase,
			WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	result := SeedResult{Database: opts.Database, Seeded: true}
	if err := s.Seed(ctx, fixture.Northwind()); err != nil {
		if !errors.Is(err, store.ErrAlreadySeeded) {
			return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeSeedFailed,
				WrapExitError(ExitFailure, "failed to seed database", err))
		}
		result.Seeded = false
	}
	if result.Counts, err = s.Counts(ctx); err != nil {
		return commandError(cmd.OutOrStdout(), opts.Format, ErrCodeSeedFailed,
			WrapExitError(ExitFailure, "failed to count rows", err))
	}
	logger.Debug("seed finished", "seeded", result.Seeded)

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	if result.Seeded {
		fmt.Fprintf(w, "Seeded %s\n", opts.Database)
	} else {
		fmt.Fprintf(w, "%s already seeded\n", opts.Database)
	}
	for _, set := range model.SetNames() {
		fmt.Fprintf(w, "  %-14s %d\n", set, result.Counts[set])
	}
	return nil
}
