package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/iliyamo/hotel-backoffice/internal/model"
)

// MySQLCollection persists one entity type as JSON documents in a table
// with the layout created by the migrations:
//
//	persistent_id CHAR(36) PRIMARY KEY, legacy_id BIGINT UNIQUE,
//	body JSON, created_at DATETIME(6), updated_at DATETIME(6)
//
// The identifier columns are authoritative; the copy inside body is only
// informational.
type MySQLCollection[T Entity] struct {
	db    *sqlx.DB
	table string
	newFn func() T
	now   func() time.Time
}

// NewMySQLCollection binds a collection to table.  table is a trusted
// constant, never user input.
func NewMySQLCollection[T Entity](db *sqlx.DB, table string, newFn func() T) *MySQLCollection[T] {
	return &MySQLCollection[T]{db: db, table: table, newFn: newFn, now: time.Now}
}

type documentRow struct {
	PersistentID string        `db:"persistent_id"`
	LegacyID     sql.NullInt64 `db:"legacy_id"`
	Body         []byte        `db:"body"`
}

func (c *MySQLCollection[T]) decode(row documentRow) (T, error) {
	e := c.newFn()
	if err := json.Unmarshal(row.Body, e); err != nil {
		var zero T
		return zero, errors.Wrapf(err, "%s: decode %s", c.table, row.PersistentID)
	}
	id := e.Ident()
	id.PersistentID = row.PersistentID
	id.LegacyID = 0
	if row.LegacyID.Valid {
		id.LegacyID = row.LegacyID.Int64
	}
	return e, nil
}

// unavailable tags err as a durable store failure while keeping the
// driver error in the chain.
func (c *MySQLCollection[T]) unavailable(err error, op string) error {
	return errors.Wrapf(fmt.Errorf("%w: %w", ErrStoreUnavailable, err), "%s: %s", c.table, op)
}

func (c *MySQLCollection[T]) findOne(ctx context.Context, where string, arg any) (T, error) {
	var zero T
	q := fmt.Sprintf("SELECT persistent_id, legacy_id, body FROM %s WHERE %s = ? LIMIT 1", c.table, where)
	var row documentRow
	if err := c.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, c.unavailable(err, "find by "+where)
	}
	return c.decode(row)
}

func (c *MySQLCollection[T]) FindByPersistentID(ctx context.Context, id string) (T, error) {
	return c.findOne(ctx, "persistent_id", id)
}

func (c *MySQLCollection[T]) FindByLegacyID(ctx context.Context, id int64) (T, error) {
	return c.findOne(ctx, "legacy_id", id)
}

// List returns every document in creation order.
func (c *MySQLCollection[T]) List(ctx context.Context) ([]T, error) {
	q := fmt.Sprintf("SELECT persistent_id, legacy_id, body FROM %s ORDER BY created_at, legacy_id", c.table)
	var rows []documentRow
	if err := c.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, c.unavailable(err, "list")
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		e, err := c.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Insert issues the persistent id, assigns the next legacy id unless e
// already carries one (copy-forward), and writes the document in a single
// transaction.  e keeps its original identity if anything fails.
func (c *MySQLCollection[T]) Insert(ctx context.Context, e T) (err error) {
	id := e.Ident()
	orig := *id
	defer func() {
		if err != nil {
			*id = orig
		}
	}()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return c.unavailable(err, "begin")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if id.LegacyID <= 0 {
		var max int64
		q := fmt.Sprintf("SELECT COALESCE(MAX(legacy_id), 0) FROM %s FOR UPDATE", c.table)
		if err = tx.GetContext(ctx, &max, q); err != nil {
			return c.unavailable(err, "next legacy id")
		}
		id.LegacyID = max + 1
	}
	id.PersistentID = model.NewPersistentID()

	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "%s: encode", c.table)
	}
	now := c.now().UTC()
	q := fmt.Sprintf("INSERT INTO %s (persistent_id, legacy_id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)", c.table)
	if _, err = tx.ExecContext(ctx, q, id.PersistentID, id.LegacyID, body, now, now); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return errors.Wrapf(ErrConflict, "%s: legacy id %d", c.table, id.LegacyID)
		}
		return c.unavailable(err, "insert")
	}
	if err = tx.Commit(); err != nil {
		return c.unavailable(err, "commit")
	}
	committed = true
	return nil
}

// Update rewrites the document body.  The row is located by persistent id,
// or by legacy id for rows that predate persistent ids.
func (c *MySQLCollection[T]) Update(ctx context.Context, e T) error {
	id := *e.Ident()
	where, arg := "persistent_id", any(id.PersistentID)
	if id.PersistentID == "" {
		if id.LegacyID <= 0 {
			return ErrNotFound
		}
		where, arg = "legacy_id", any(id.LegacyID)
	}
	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "%s: encode", c.table)
	}
	q := fmt.Sprintf("UPDATE %s SET body = ?, updated_at = ? WHERE %s = ?", c.table, where)
	res, err := c.db.ExecContext(ctx, q, body, c.now().UTC(), arg)
	if err != nil {
		return c.unavailable(err, "update")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
