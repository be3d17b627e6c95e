package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo/internal/store"
)

// collection implements store.Collection for one JSON document table.
type collection[T any] struct {
	db     store.DBTX
	name   string
	logger *slog.Logger
}

// NewCollection returns a typed view over the named collection. The name
// must be one of the collections created by the schema migrations.
// Panics on a nil db or a name that is not a valid identifier, both of
// which are wiring mistakes rather than runtime conditions.
func NewCollection[T any](db store.DBTX, name string, logger *slog.Logger) store.Collection[T] {
	if db == nil {
		panic("db cannot be nil")
	}
	if !validIdent(name) {
		panic(fmt.Sprintf("invalid collection name %q", name))
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &collection[T]{
		db:     db,
		name:   name,
		logger: logger.With(slog.String("collection", name)),
	}
}

// Get implements store.Collection.Get.
func (c *collection[T]) Get(ctx context.Context, id string) (*T, error) {
	var data []byte
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = ?", c.name)
	err := c.db.QueryRowContext(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %s", store.ErrNotFound, id)
		}
		return nil, c.storageErr("get", err)
	}

	record := new(T)
	if err := json.Unmarshal(data, record); err != nil {
		return nil, store.NewStoreError(c.name, "get", "corrupt record", err)
	}

	return record, nil
}

// Put implements store.Collection.Put. It inserts or replaces the record
// stored under id.
func (c *collection[T]) Put(ctx context.Context, id string, record *T) error {
	if record == nil {
		return fmt.Errorf("%w: nil record", store.ErrInvalidEntity)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (id, data) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data",
		c.name,
	)
	if _, err := c.db.ExecContext(ctx, query, id, data); err != nil {
		return c.storageErr("put", err)
	}

	return nil
}

// Delete implements store.Collection.Delete.
func (c *collection[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", c.name)
	res, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return c.storageErr("delete", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return c.storageErr("delete", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %s", store.ErrNotFound, id)
	}

	return nil
}

// Scan implements store.Collection.Scan.
func (c *collection[T]) Scan(ctx context.Context, q store.Query) ([]*T, error) {
	where, args, err := buildWhere(q.Where)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT data FROM %s", c.name)
	sb.WriteString(where)

	if len(q.OrderBy) > 0 {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		clauses := make([]string, 0, len(q.OrderBy))
		for _, field := range q.OrderBy {
			if !validIdent(field) {
				return nil, fmt.Errorf("%w: order field %q", store.ErrInvalidQuery, field)
			}
			clauses = append(clauses, fmt.Sprintf("json_extract(data, '$.%s') %s", field, dir))
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(clauses, ", "))
	}

	if q.Limit > 0 || q.Offset > 0 {
		limit := q.Limit
		if limit <= 0 {
			limit = -1 // SQLite: no limit, offset still applies
		}
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", limit, q.Offset)
	}

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, c.storageErr("scan", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, c.storageErr("scan", err)
		}
		record := new(T)
		if err := json.Unmarshal(data, record); err != nil {
			return nil, store.NewStoreError(c.name, "scan", "corrupt record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, c.storageErr("scan", err)
	}

	return records, nil
}

// Count implements store.Collection.Count.
func (c *collection[T]) Count(ctx context.Context, preds ...store.Predicate) (int, error) {
	where, args, err := buildWhere(preds)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", c.name, where)
	var count int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, c.storageErr("count", err)
	}

	return count, nil
}

// WithTx implements store.Collection.WithTx.
func (c *collection[T]) WithTx(tx *sql.Tx) store.Collection[T] {
	return &collection[T]{db: tx, name: c.name, logger: c.logger}
}

func (c *collection[T]) storageErr(op string, err error) error {
	c.logger.Error("storage operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return store.NewStoreError(c.name, op, "storage failure",
		fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err))
}

// buildWhere renders predicates into a WHERE clause with placeholder args.
func buildWhere(preds []store.Predicate) (string, []any, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))

	for _, p := range preds {
		if !validIdent(p.Field) {
			return "", nil, fmt.Errorf("%w: field %q", store.ErrInvalidQuery, p.Field)
		}
		expr := fmt.Sprintf("json_extract(data, '$.%s')", p.Field)

		switch p.Op {
		case store.OpEq, store.OpNe, store.OpGt, store.OpGte, store.OpLt, store.OpLte:
			op, ok := sqlOps[p.Op]
			if !ok {
				return "", nil, fmt.Errorf("%w: operator %q", store.ErrInvalidQuery, p.Op)
			}
			clauses = append(clauses, fmt.Sprintf("%s %s ?", expr, op))
			args = append(args, toArg(p.Value))
		case store.OpIn:
			if len(p.Values) == 0 {
				// An empty IN set matches nothing.
				clauses = append(clauses, "0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.Values)), ", ")
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", expr, placeholders))
			for _, v := range p.Values {
				args = append(args, toArg(v))
			}
		default:
			return "", nil, fmt.Errorf("%w: operator %q", store.ErrInvalidQuery, p.Op)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

var sqlOps = map[store.Op]string{
	store.OpEq:  "=",
	store.OpNe:  "!=",
	store.OpGt:  ">",
	store.OpGte: ">=",
	store.OpLt:  "<",
	store.OpLte: "<=",
}

// toArg converts Go values into forms comparable against json_extract
// results: timestamps become their canonical JSON encoding, booleans the
// 0/1 integers SQLite's JSON functions yield, and UUIDs their string form.
func toArg(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case bool:
		if val {
			return 1
		}
		return 0
	case uuid.UUID:
		return val.String()
	default:
		return v
	}
}

// validIdent reports whether s is safe to interpolate as a table or JSON
// field name.
func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
