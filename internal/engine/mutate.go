package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/drillstore/internal/row"
	"github.com/roach88/drillstore/internal/store"
)

// createMany inserts items as one undo step and returns the stored rows.
func (e *Engine) createMany(ctx context.Context, log *slog.Logger, req CreateManyRequest) ([]row.Row, error) {
	ts, err := e.tableSchema(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	items, err := normalizeItems(req.Table, req.Items)
	if err != nil {
		return nil, err
	}

	now := row.FormatTimestamp(e.clock.Now())
	stripped := createIDKeys(ts)

	b := &batch{
		op:      "create",
		table:   ts.Name,
		useNext: useNext(req.UseNextUndoGroup),
		log:     log,
	}
	b.apply = func(q store.Querier, b *batch) ([]row.Row, error) {
		ids := make([]int64, 0, len(items))
		for _, item := range items {
			values := withoutIDs(item, stripped...)
			if ts.HasCreatedAt {
				setColumn(values, "created_at", now)
			}
			if ts.HasUpdatedAt {
				setColumn(values, "updated_at", now)
			}

			id, err := store.InsertRow(ctx, q, ts, values)
			if err != nil {
				return nil, NewStoreFault(ts.Name, err)
			}
			b.markWritten()
			ids = append(ids, id)
		}
		return refetch(ctx, q, ts, ids)
	}

	out, err := e.execute(ctx, b)
	if err != nil {
		return nil, err
	}
	log.Info("rows created", "table", ts.Name, "count", len(out), "group", b.group, "merged", b.merged)
	return out, nil
}

// updateMany applies each item's columns to the row named by its id.
// Items without an id are skipped with a warning.
func (e *Engine) updateMany(ctx context.Context, log *slog.Logger, req UpdateManyRequest) ([]row.Row, error) {
	ts, err := e.tableSchema(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	items, err := normalizeItems(req.Table, req.Items)
	if err != nil {
		return nil, err
	}

	type change struct {
		id     int64
		values row.Row
	}
	changes := make([]change, 0, len(items))
	for i, item := range items {
		id, key, ok := itemID(ts, item)
		if !ok {
			log.Warn("update item skipped", "kind", KindValidationSkip, "table", ts.Name, "index", i,
				"reason", fmt.Sprintf("no integer %q or %q", ts.IDColumn, "id"))
			continue
		}
		changes = append(changes, change{id: id, values: withoutIDs(item, key, ts.IDColumn, store.RowIDColumn)})
	}

	now := row.FormatTimestamp(e.clock.Now())

	b := &batch{
		op:      "update",
		table:   ts.Name,
		useNext: useNext(req.UseNextUndoGroup),
		log:     log,
	}
	b.validate = func(q store.Querier) error {
		ids := make([]int64, len(changes))
		for i, c := range changes {
			ids[i] = c.id
		}
		_, err := snapshot(ctx, q, ts, ts.IDColumn, ids)
		return err
	}
	b.apply = func(q store.Querier, b *batch) ([]row.Row, error) {
		ids := make([]int64, 0, len(changes))
		for _, c := range changes {
			if ts.HasUpdatedAt {
				setColumn(c.values, "updated_at", now)
			}
			n, err := store.UpdateRow(ctx, q, ts, ts.IDColumn, c.id, c.values)
			if err != nil {
				return nil, NewStoreFault(ts.Name, err)
			}
			if n > 0 {
				b.markWritten()
			}
			ids = append(ids, c.id)
		}
		return refetchBy(ctx, q, ts, ts.IDColumn, ids)
	}

	out, err := e.execute(ctx, b)
	if err != nil {
		return nil, err
	}
	log.Info("rows updated", "table", ts.Name, "count", len(out), "skipped", len(items)-len(changes),
		"group", b.group, "merged", b.merged)
	return out, nil
}

// deleteMany removes every row whose idColumn matches one of ids and returns
// the rows as they were before removal. Nothing is removed unless every id
// exists.
func (e *Engine) deleteMany(ctx context.Context, log *slog.Logger, req DeleteManyRequest) ([]row.Row, error) {
	ts, err := e.tableSchema(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	if len(req.IDs) == 0 {
		return nil, NewInvalidRequest(ts.Name, errors.New("no ids to delete"))
	}
	idColumn, err := ts.ResolveIDColumn(req.IDColumn)
	if err != nil {
		return nil, NewInvalidRequest(ts.Name, err)
	}
	ids := uniqueIDs(req.IDs)

	var before []row.Row

	b := &batch{
		op:      "delete",
		table:   ts.Name,
		useNext: useNext(req.UseNextUndoGroup),
		log:     log,
	}
	b.validate = func(q store.Querier) error {
		var err error
		before, err = snapshot(ctx, q, ts, idColumn, ids)
		return err
	}
	b.apply = func(q store.Querier, b *batch) ([]row.Row, error) {
		for _, id := range ids {
			n, err := store.DeleteRow(ctx, q, ts, idColumn, id)
			if err != nil {
				return nil, NewStoreFault(ts.Name, err)
			}
			if n > 0 {
				b.markWritten()
			}
		}
		return before, nil
	}

	out, err := e.execute(ctx, b)
	if err != nil {
		return nil, err
	}
	log.Info("rows deleted", "table", ts.Name, "count", len(out), "group", b.group, "merged", b.merged)
	return out, nil
}

// tableSchema resolves table for a public call. Internal and unknown tables
// are invalid requests.
func (e *Engine) tableSchema(ctx context.Context, table string) (store.TableSchema, error) {
	if table == "" {
		return store.TableSchema{}, NewInvalidRequest(table, errors.New("table name is required"))
	}
	if store.IsInternalTable(table) {
		return store.TableSchema{}, NewInvalidRequest(table, fmt.Errorf("table %q is internal", table))
	}
	ts, err := e.store.Schema(ctx, e.store.DB(), table)
	if err != nil {
		if errors.Is(err, store.ErrUnknownTable) {
			return store.TableSchema{}, NewInvalidRequest(table, err)
		}
		return store.TableSchema{}, NewStoreFault(table, err)
	}
	return ts, nil
}

// snapshot reads every row matching each id and fails with NotFound listing
// all ids that match nothing.
func snapshot(ctx context.Context, q store.Querier, ts store.TableSchema, idColumn string, ids []int64) ([]row.Row, error) {
	rows := make([]row.Row, 0, len(ids))
	var missing []int64
	for _, id := range ids {
		found, err := store.FindRows(ctx, q, ts, idColumn, id)
		if err != nil {
			return nil, NewStoreFault(ts.Name, err)
		}
		if len(found) == 0 {
			missing = append(missing, id)
			continue
		}
		rows = append(rows, found...)
	}
	if len(missing) > 0 {
		return nil, NewNotFoundError(ts.Name, missing)
	}
	return rows, nil
}

// refetch reads back rows by rowid.
func refetch(ctx context.Context, q store.Querier, ts store.TableSchema, ids []int64) ([]row.Row, error) {
	return refetchBy(ctx, q, ts, store.RowIDColumn, ids)
}

func refetchBy(ctx context.Context, q store.Querier, ts store.TableSchema, idColumn string, ids []int64) ([]row.Row, error) {
	out := make([]row.Row, 0, len(ids))
	for _, id := range ids {
		r, err := store.GetRow(ctx, q, ts, idColumn, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewReFetchError(ts.Name, id, err)
		}
		if err != nil {
			return nil, NewStoreFault(ts.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// normalizeItems validates every item before anything is written.
func normalizeItems(table string, items []row.Row) ([]row.Row, error) {
	if len(items) == 0 {
		return nil, NewInvalidRequest(table, errors.New("no items"))
	}
	out := make([]row.Row, len(items))
	for i, item := range items {
		r, err := row.Normalize(item)
		if err != nil {
			return nil, NewInvalidRequest(table, fmt.Errorf("item %d: %w", i, err))
		}
		out[i] = r
	}
	return out, nil
}

// itemID finds the integer id of an update item: the table's id column
// first, then "id" when that name is not an unrelated column. Returns the
// key it was read from.
func itemID(ts store.TableSchema, item row.Row) (int64, string, bool) {
	keys := []string{ts.IDColumn}
	if !strings.EqualFold(ts.IDColumn, "id") && !ts.HasColumn("id") {
		keys = append(keys, "id")
	}
	for _, k := range keys {
		for name := range item {
			if !strings.EqualFold(name, k) {
				continue
			}
			if id, ok := item.Int64(name); ok {
				return id, k, true
			}
		}
	}
	return 0, "", false
}

// createIDKeys names the caller keys create drops so the store assigns the
// row identifier. "id" and "rowid" are kept when they are ordinary declared
// columns.
func createIDKeys(ts store.TableSchema) []string {
	keys := []string{ts.IDColumn}
	for _, k := range []string{"id", store.RowIDColumn} {
		if !strings.EqualFold(k, ts.IDColumn) && !ts.HasColumn(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// withoutIDs returns a copy of r with every key matching one of names
// (case-insensitive) removed.
func withoutIDs(r row.Row, names ...string) row.Row {
	out := make(row.Row, len(r))
	for k, v := range r {
		drop := false
		for _, n := range names {
			if n != "" && strings.EqualFold(k, n) {
				drop = true
				break
			}
		}
		if !drop {
			out[k] = v
		}
	}
	return out
}

// setColumn assigns value to column, replacing any caller-supplied key that
// differs only in case.
func setColumn(r row.Row, column string, value any) {
	for k := range r {
		if strings.EqualFold(k, column) {
			delete(r, k)
		}
	}
	r[column] = value
}

func useNext(v *bool) bool {
	return v == nil || *v
}
