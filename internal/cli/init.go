package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/drillstore/internal/store"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and install history on configured tables",
		Long: `Open (creating if needed) the configured database, run the bootstrap DDL
from the config file and install history triggers on every table listed
under "tables".

Bootstrap statements run on every init, so they must be idempotent
(CREATE TABLE IF NOT EXISTS ...).

Examples:
  drillstore init --config drillstore.yaml
  drillstore init --config drillstore.cue --db ./show.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	for i, ddl := range s.cfg.Bootstrap {
		if err := s.store.Exec(ctx, ddl); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("bootstrap statement %d failed", i+1), err)
		}
		s.out.VerboseLog("bootstrap statement %d applied", i+1)
	}

	return installTables(ctx, s, s.cfg.Tables)
}

// NewInstallCommand creates the install command.
func NewInstallCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install <table>...",
		Short: "Install history triggers on tables",
		Long: `Install (or reinstall) the insert, update and delete history triggers on
each named table. Reinstall after altering a table's columns.

Examples:
  drillstore install marchers pages --db ./show.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return installTables(context.Background(), s, args)
		},
	}
}

// installTables installs history on each table, stopping at the first
// failure.
func installTables(ctx context.Context, s *session, tables []string) error {
	installed := make([]store.TableSchema, 0, len(tables))
	for _, table := range tables {
		res := s.engine.InstallHistory(ctx, table)
		if !res.Success {
			return writeResult(s.out, res)
		}
		installed = append(installed, res.Data)
	}
	if len(installed) == 0 {
		s.out.VerboseLog("no tables configured")
	}
	return s.out.Success(installed)
}
