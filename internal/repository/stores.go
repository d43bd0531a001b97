package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/repository/bootstrap"
)

// Table names created by the migrations.
const (
	TableOrders    = "guest_orders"
	TableCustomers = "customers"
	TableRooms     = "rooms"
	TableStaff     = "staff"
)

// Stores bundles one coordinator per entity type sharing a single Health.
type Stores struct {
	Orders    *Store[*model.GuestOrder]
	Customers *Store[*model.Customer]
	Rooms     *Store[*model.Room]
	Staff     *Store[*model.Staff]
	Health    *Health

	seed *bootstrap.Data
}

// NewStores wires every collection.  When db is nil the process runs on the
// mirrors alone.
func NewStores(db *sqlx.DB, seed *bootstrap.Data, log logrus.FieldLogger) *Stores {
	health := NewHealth(db != nil)
	return &Stores{
		Orders:    newStore(TableOrders, db, func() *model.GuestOrder { return &model.GuestOrder{} }, nil, health, log),
		Customers: newStore(TableCustomers, db, func() *model.Customer { return &model.Customer{} }, seed.Customers, health, log),
		Rooms:     newStore(TableRooms, db, func() *model.Room { return &model.Room{} }, seed.Rooms, health, log),
		Staff:     newStore(TableStaff, db, func() *model.Staff { return &model.Staff{} }, seed.Staff, health, log),
		Health:    health,
		seed:      seed,
	}
}

// SetAttemptTimeout bounds every durable call made by the stores.
func (s *Stores) SetAttemptTimeout(d time.Duration) {
	s.Orders.SetAttemptTimeout(d)
	s.Customers.SetAttemptTimeout(d)
	s.Rooms.SetAttemptTimeout(d)
	s.Staff.SetAttemptTimeout(d)
}

func newStore[T Entity](table string, db *sqlx.DB, newFn func() T, seed func() ([]T, error), health *Health, log logrus.FieldLogger) *Store[T] {
	var durable Collection[T]
	if db != nil {
		durable = NewMySQLCollection(db, table, newFn)
	}
	return NewStore(table, durable, NewMirror(newFn, seed), health, log)
}

// SeedDurable copies the bootstrap records into the durable store, keeping
// their legacy ids.  Records whose legacy id already exists are skipped.  It
// never degrades to the mirror: a durable failure is returned.
func (s *Stores) SeedDurable(ctx context.Context) (int, error) {
	total := 0
	n, err := copyForward(ctx, s.Rooms, s.seed.Rooms)
	total += n
	if err != nil {
		return total, err
	}
	n, err = copyForward(ctx, s.Customers, s.seed.Customers)
	total += n
	if err != nil {
		return total, err
	}
	n, err = copyForward(ctx, s.Staff, s.seed.Staff)
	return total + n, err
}

func copyForward[T Entity](ctx context.Context, s *Store[T], load func() ([]T, error)) (int, error) {
	if s.durable == nil {
		return 0, errors.Wrapf(ErrStoreUnavailable, "%s: no durable store configured", s.name)
	}
	items, err := load()
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, e := range items {
		legacy := e.Ident().LegacyID
		if legacy > 0 {
			_, err := s.durable.FindByLegacyID(ctx, legacy)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return inserted, err
			}
		}
		if err := s.durable.Insert(ctx, e); err != nil {
			return inserted, err
		}
		s.log.WithFields(logrus.Fields{
			"collection":   s.name,
			"legacyId":     e.Ident().LegacyID,
			"persistentId": e.Ident().PersistentID,
		}).Info("seeded")
		inserted++
	}
	return inserted, nil
}
