package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/drillstore/internal/history"
)

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "undo",
		Short:         "Revert the newest undo step",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return writeResult(s.out, s.engine.Undo(context.Background()))
		},
	}
}

// NewRedoCommand creates the redo command.
func NewRedoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "redo",
		Short:         "Reapply the newest undone step",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return writeResult(s.out, s.engine.Redo(context.Background()))
		},
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var stack string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded history",
		Long: `List the change records held on the undo and redo stacks, oldest first.

Examples:
  drillstore history
  drillstore history --stack redo --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stack != "" {
				if _, err := history.ParseStack(stack); err != nil {
					return WrapExitError(ExitCommandError, "invalid --stack", err)
				}
			}

			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return writeResult(s.out, s.engine.History(context.Background(), history.Stack(stack)))
		},
	}

	cmd.Flags().StringVar(&stack, "stack", "", "undo or redo (default both)")

	return cmd
}
