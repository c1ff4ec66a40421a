package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/drillstore/internal/config"
	"github.com/roach88/drillstore/internal/engine"
	"github.com/roach88/drillstore/internal/history"
	"github.com/roach88/drillstore/internal/logging"
	"github.com/roach88/drillstore/internal/store"
)

// session is an opened store and the engine serving one command.
type session struct {
	cfg    *config.Config
	store  *store.Store
	engine *engine.Engine
	out    *OutputFormatter
}

// openSession loads configuration, applies flag overrides and opens the
// database. Logs go to the command's stderr.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger := logging.Setup(level, cfg.Log.Format, cmd.ErrOrStderr())

	mode, err := engine.ParseCompensation(cfg.Compensation)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid compensation", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database opened", "path", cfg.Database, "compensation", mode)

	return &session{
		cfg:   cfg,
		store: st,
		engine: engine.New(st, history.NewManager(st),
			engine.WithLogger(logger),
			engine.WithCompensation(mode),
		),
		out: newFormatter(opts, cmd),
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
