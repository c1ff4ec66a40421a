package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/drillstore/internal/engine"
	"github.com/roach88/drillstore/internal/row"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	var idColumn string

	cmd := &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Print one row",
		Long: `Print the row of a table whose id column equals id. The id column
defaults to rowid.

Examples:
  drillstore get marchers 3
  drillstore get marchers 12 --id-column id --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid id %q", args[1]), err)
			}

			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return writeResult(s.out, s.engine.GetOne(context.Background(), engine.GetOneRequest{
				Table:    args[0],
				ID:       id,
				IDColumn: idColumn,
			}))
		},
	}

	cmd.Flags().StringVar(&idColumn, "id-column", "", "column to match id against (default rowid)")

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <table>",
		Short:         "Print every row of a table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return writeResult(s.out, s.engine.GetAll(context.Background(), engine.GetAllRequest{Table: args[0]}))
		},
	}
}

// ItemOptions holds the flags shared by create and update.
type ItemOptions struct {
	Items       string // JSON array of row objects
	File        string // YAML or JSON file holding the array
	NoNextGroup bool   // fold into the previous undo step
}

func (o *ItemOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Items, "items", "", "rows as a JSON array")
	cmd.Flags().StringVar(&o.File, "file", "", "YAML or JSON file holding the rows")
	cmd.Flags().BoolVar(&o.NoNextGroup, "no-next-group", false, "fold this batch into the previous undo step")
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ItemOptions{}

	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Insert rows as one undo step",
		Long: `Insert rows into a table as one undo step and print the stored rows.
Ids in the input are ignored; created_at and updated_at are stamped when the
table has them.

Examples:
  drillstore create marchers --items '[{"label":"A1"},{"label":"A2"}]'
  drillstore create marchers --file marchers.yaml --no-next-group`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readItems(opts.Items, opts.File)
			if err != nil {
				return err
			}

			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return writeResult(s.out, s.engine.CreateMany(context.Background(), engine.CreateManyRequest{
				Table:            args[0],
				Items:            items,
				UseNextUndoGroup: nextGroup(opts.NoNextGroup),
			}))
		},
	}

	opts.register(cmd)

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ItemOptions{}

	cmd := &cobra.Command{
		Use:   "update <table>",
		Short: "Update rows as one undo step",
		Long: `Apply column changes to existing rows as one undo step. Each item names
its row by the table's id column (or "id"); items without one are skipped.

Examples:
  drillstore update marchers --items '[{"id":1,"label":"B1"}]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readItems(opts.Items, opts.File)
			if err != nil {
				return err
			}

			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return writeResult(s.out, s.engine.UpdateMany(context.Background(), engine.UpdateManyRequest{
				Table:            args[0],
				Items:            items,
				UseNextUndoGroup: nextGroup(opts.NoNextGroup),
			}))
		},
	}

	opts.register(cmd)

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		ids         []int64
		idColumn    string
		noNextGroup bool
	)

	cmd := &cobra.Command{
		Use:   "delete <table>",
		Short: "Delete rows as one undo step",
		Long: `Delete the rows whose id column matches one of --ids as one undo step and
print them as they were. Nothing is deleted if any id is missing.

Examples:
  drillstore delete marchers --ids 3,4
  drillstore delete pages --ids 2 --id-column id`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ids) == 0 {
				return NewExitError(ExitCommandError, "--ids is required")
			}

			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return writeResult(s.out, s.engine.DeleteMany(context.Background(), engine.DeleteManyRequest{
				Table:            args[0],
				IDs:              ids,
				IDColumn:         idColumn,
				UseNextUndoGroup: nextGroup(noNextGroup),
			}))
		},
	}

	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "comma-separated row ids")
	cmd.Flags().StringVar(&idColumn, "id-column", "", "column to match ids against (default rowid)")
	cmd.Flags().BoolVar(&noNextGroup, "no-next-group", false, "fold this batch into the previous undo step")

	return cmd
}

// nextGroup maps --no-next-group onto the request field. Unset keeps the
// engine default.
func nextGroup(noNext bool) *bool {
	if !noNext {
		return nil
	}
	v := false
	return &v
}

// readItems decodes the row list given by --items or --file. Exactly one
// must be set. JSON numbers are kept as json.Number so integer ids survive.
func readItems(items, file string) ([]row.Row, error) {
	switch {
	case items != "" && file != "":
		return nil, NewExitError(ExitCommandError, "--items and --file are mutually exclusive")
	case items != "":
		rows, err := decodeJSONItems([]byte(items))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --items JSON", err)
		}
		return rows, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read items file", err)
		}
		var rows []row.Row
		if strings.EqualFold(filepath.Ext(file), ".json") {
			rows, err = decodeJSONItems(data)
		} else {
			err = yaml.Unmarshal(data, &rows)
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid items file %s", file), err)
		}
		return rows, nil
	default:
		return nil, NewExitError(ExitCommandError, "one of --items or --file is required")
	}
}

func decodeJSONItems(data []byte) ([]row.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []row.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
