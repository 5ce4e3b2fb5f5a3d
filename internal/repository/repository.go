package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Scanner is implemented by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Repository is the CRUD surface shared by every entity.
type Repository[T any] interface {
	All(ctx context.Context) ([]*T, error)
	GetByField(ctx context.Context, field string, value any) (*T, error)
	Create(ctx context.Context, v *T) error
	CreateMany(ctx context.Context, vs []*T) error
	Update(ctx context.Context, id string, changes map[string]any) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Table describes how an entity maps onto its table. Columns[0] must be the
// primary key; Values returns arguments in Columns order.
type Table[T any] struct {
	Name    string
	Columns []string
	Scan    func(Scanner) (*T, error)
	Values  func(*T) []any
	// Prepare runs before an insert. It assigns ids and timestamps.
	Prepare func(v *T, now time.Time)
}

func (t Table[T]) key() string { return t.Columns[0] }

func (t Table[T]) has(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

func (t Table[T]) selectList() string { return strings.Join(t.Columns, ", ") }

// SQLRepo implements Repository for any Table over database/sql.
type SQLRepo[T any] struct {
	db    DBTX
	table Table[T]
	now   func() time.Time
}

// NewSQLRepo binds table to db.
func NewSQLRepo[T any](db DBTX, table Table[T]) *SQLRepo[T] {
	return &SQLRepo[T]{db: db, table: table, now: func() time.Time { return time.Now().UTC() }}
}

// All returns every row, oldest first when the table tracks creation time.
func (r *SQLRepo[T]) All(ctx context.Context) ([]*T, error) {
	order := r.table.key()
	if r.table.has("created_at") {
		order = "created_at"
	}
	return r.Where(ctx, "1 = 1 ORDER BY "+order)
}

// GetByField fetches the single row whose field equals value.
func (r *SQLRepo[T]) GetByField(ctx context.Context, field string, value any) (*T, error) {
	if !r.table.has(field) {
		return nil, errors.Wrapf(ErrUnknownField, "%s.%s", r.table.Name, field)
	}
	return r.First(ctx, field+" = ?", value)
}

// First returns the first row matching clause, which may carry ORDER BY and
// LIMIT after the condition.
func (r *SQLRepo[T]) First(ctx context.Context, clause string, args ...any) (*T, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s", r.table.selectList(), r.table.Name, clause)
	v, err := r.table.Scan(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, translate(err, r.table.Name+".First")
	}
	return v, nil
}

// Where returns every row matching clause.
func (r *SQLRepo[T]) Where(ctx context.Context, clause string, args ...any) ([]*T, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s", r.table.selectList(), r.table.Name, clause)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translate(err, r.table.Name+".Where")
	}
	defer rows.Close()

	out := []*T{}
	for rows.Next() {
		v, err := r.table.Scan(rows)
		if err != nil {
			return nil, translate(err, r.table.Name+".Where.Scan")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, r.table.Name+".Where.Rows")
	}
	return out, nil
}

// Create inserts v after Prepare has filled ids and timestamps.
func (r *SQLRepo[T]) Create(ctx context.Context, v *T) error {
	return r.CreateMany(ctx, []*T{v})
}

// CreateMany inserts every value with a single multi-row statement, so
// either all rows land or none do.
func (r *SQLRepo[T]) CreateMany(ctx context.Context, vs []*T) error {
	if len(vs) == 0 {
		return nil
	}
	now := r.now()
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(r.table.Columns)), ", ") + ")"
	groups := make([]string, 0, len(vs))
	args := make([]any, 0, len(vs)*len(r.table.Columns))
	for _, v := range vs {
		if r.table.Prepare != nil {
			r.table.Prepare(v, now)
		}
		groups = append(groups, placeholder)
		args = append(args, r.table.Values(v)...)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		r.table.Name, r.table.selectList(), strings.Join(groups, ", "))
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return translate(err, r.table.Name+".Create")
	}
	return nil
}

// Update applies changes (column -> value) to the row with the given id and
// returns the fresh row. updated_at is maintained automatically.
func (r *SQLRepo[T]) Update(ctx context.Context, id string, changes map[string]any) (*T, error) {
	if len(changes) == 0 {
		return nil, errors.New("update without changes")
	}
	cols := make([]string, 0, len(changes))
	for col := range changes {
		if col == r.table.key() || col == "created_at" || col == "updated_at" || !r.table.has(col) {
			return nil, errors.Wrapf(ErrUnknownField, "%s.%s", r.table.Name, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+2)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, changes[col])
	}
	if r.table.has("updated_at") {
		sets = append(sets, "updated_at = ?")
		args = append(args, r.now())
	}
	args = append(args, id)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", r.table.Name, strings.Join(sets, ", "), r.table.key())
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, translate(err, r.table.Name+".Update")
	}
	return r.GetByField(ctx, r.table.key(), id)
}

// Delete removes the row with the given id.
func (r *SQLRepo[T]) Delete(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.table.Name, r.table.key())
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return translate(err, r.table.Name+".Delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, r.table.Name+".Delete")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
