package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-backoffice/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

const (
	selectByLegacy     = "SELECT persistent_id, legacy_id, body FROM customers WHERE legacy_id = ? LIMIT 1"
	selectByPersistent = "SELECT persistent_id, legacy_id, body FROM customers WHERE persistent_id = ? LIMIT 1"
	selectAll          = "SELECT persistent_id, legacy_id, body FROM customers ORDER BY created_at, legacy_id"
	selectMaxLegacy    = "SELECT COALESCE(MAX(legacy_id), 0) FROM customers FOR UPDATE"
	insertDocument     = "INSERT INTO customers (persistent_id, legacy_id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
)

func newMockCollection(t *testing.T) (*MySQLCollection[*model.Customer], sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	c := NewMySQLCollection(sqlx.NewDb(db, "mysql"), TableCustomers, func() *model.Customer { return &model.Customer{} })
	c.now = func() time.Time { return fixedNow }
	return c, mock
}

func documentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"persistent_id", "legacy_id", "body"})
}

func TestMySQLFindUsesIdentifierColumns(t *testing.T) {
	c, mock := newMockCollection(t)
	mock.ExpectQuery(selectByLegacy).WithArgs(int64(1)).
		WillReturnRows(documentRows().AddRow("p-1", int64(1), []byte(`{"persistentId":"stale","legacyId":99,"name":"Amina"}`)))

	got, err := c.FindByLegacyID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "p-1", got.PersistentID)
	assert.Equal(t, int64(1), got.LegacyID)
	assert.Equal(t, "Amina", got.Name)
}

func TestMySQLFindNullLegacyID(t *testing.T) {
	c, mock := newMockCollection(t)
	mock.ExpectQuery(selectByPersistent).WithArgs("p-2").
		WillReturnRows(documentRows().AddRow("p-2", nil, []byte(`{"legacyId":5,"name":"Jonas"}`)))

	got, err := c.FindByPersistentID(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Zero(t, got.LegacyID)
}

func TestMySQLFindErrors(t *testing.T) {
	c, mock := newMockCollection(t)
	mock.ExpectQuery(selectByLegacy).WithArgs(int64(9)).WillReturnRows(documentRows())
	mock.ExpectQuery(selectByLegacy).WithArgs(int64(10)).WillReturnError(mysql.ErrInvalidConn)

	_, err := c.FindByLegacyID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.FindByLegacyID(context.Background(), 10)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, mysql.ErrInvalidConn)
}

func TestMySQLList(t *testing.T) {
	c, mock := newMockCollection(t)
	mock.ExpectQuery(selectAll).WillReturnRows(documentRows().
		AddRow("p-1", int64(1), []byte(`{"name":"Amina"}`)).
		AddRow("p-2", int64(2), []byte(`{"name":"Jonas"}`)))

	got, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Jonas", got[1].Name)
	assert.Equal(t, int64(2), got[1].LegacyID)
}

func TestMySQLInsertAssignsNextLegacyID(t *testing.T) {
	c, mock := newMockCollection(t)
	mock.ExpectBegin()
	mock.ExpectQuery(selectMaxLegacy).WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(4)))
	mock.ExpectExec(insertDocument).
		WithArgs(sqlmock.AnyArg(), int64(5), sqlmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := &model.Customer{Name: "Mei"}
	require.NoError(t, c.Insert(context.Background(), e))
	assert.Equal(t, int64(5), e.LegacyID)
	assert.Equal(t, model.KeyPersistent, model.ParseKey(e.PersistentID).Kind())
}

func TestMySQLInsertCopiesLegacyIDForward(t *testing.T) {
	c, mock := newMockCollection(t)
	mock.ExpectBegin()
	mock.ExpectExec(insertDocument).
		WithArgs(sqlmock.AnyArg(), int64(7), sqlmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := &model.Customer{Identity: model.Identity{LegacyID: 7}, Name: "Mei"}
	require.NoError(t, c.Insert(context.Background(), e))
	assert.Equal(t, int64(7), e.LegacyID)
	assert.NotEmpty(t, e.PersistentID)
}

func TestMySQLInsertFailureRestoresIdentity(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"duplicate legacy id", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, ErrConflict},
		{"connection lost", mysql.ErrInvalidConn, ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newMockCollection(t)
			mock.ExpectBegin()
			mock.ExpectQuery(selectMaxLegacy).WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(2)))
			mock.ExpectExec(insertDocument).WillReturnError(tt.err)
			mock.ExpectRollback()

			e := &model.Customer{Name: "Mei"}
			err := c.Insert(context.Background(), e)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, e.PersistentID)
			assert.Zero(t, e.LegacyID)
		})
	}
}

func TestMySQLInsertBeginFailure(t *testing.T) {
	c, mock := newMockCollection(t)
	mock.ExpectBegin().WillReturnError(mysql.ErrInvalidConn)

	e := &model.Customer{Identity: model.Identity{LegacyID: 3}}
	err := c.Insert(context.Background(), e)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, model.Identity{LegacyID: 3}, e.Identity)
}

func TestMySQLUpdate(t *testing.T) {
	t.Run("by persistent id", func(t *testing.T) {
		c, mock := newMockCollection(t)
		mock.ExpectExec("UPDATE customers SET body = ?, updated_at = ? WHERE persistent_id = ?").
			WithArgs(sqlmock.AnyArg(), fixedNow, "p-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		e := &model.Customer{Identity: model.Identity{PersistentID: "p-1", LegacyID: 1}}
		assert.NoError(t, c.Update(context.Background(), e))
	})

	t.Run("by legacy id", func(t *testing.T) {
		c, mock := newMockCollection(t)
		mock.ExpectExec("UPDATE customers SET body = ?, updated_at = ? WHERE legacy_id = ?").
			WithArgs(sqlmock.AnyArg(), fixedNow, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		e := &model.Customer{Identity: model.Identity{LegacyID: 3}}
		assert.NoError(t, c.Update(context.Background(), e))
	})

	t.Run("no matching row", func(t *testing.T) {
		c, mock := newMockCollection(t)
		mock.ExpectExec("UPDATE customers SET body = ?, updated_at = ? WHERE persistent_id = ?").
			WithArgs(sqlmock.AnyArg(), fixedNow, "p-9").
			WillReturnResult(sqlmock.NewResult(0, 0))

		e := &model.Customer{Identity: model.Identity{PersistentID: "p-9"}}
		assert.ErrorIs(t, c.Update(context.Background(), e), ErrNotFound)
	})

	t.Run("no identity", func(t *testing.T) {
		c, _ := newMockCollection(t)
		assert.ErrorIs(t, c.Update(context.Background(), &model.Customer{}), ErrNotFound)
	})

	t.Run("driver error", func(t *testing.T) {
		c, mock := newMockCollection(t)
		mock.ExpectExec("UPDATE customers SET body = ?, updated_at = ? WHERE persistent_id = ?").
			WillReturnError(mysql.ErrInvalidConn)

		e := &model.Customer{Identity: model.Identity{PersistentID: "p-1"}}
		assert.ErrorIs(t, c.Update(context.Background(), e), ErrStoreUnavailable)
	})
}
