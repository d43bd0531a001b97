// Package repotest provides an in-memory durable collection that can be
// switched off, for exercising the fallback coordinator in tests.
package repotest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/repository"
)

// Durable mimics MySQLCollection: it issues persistent ids, assigns legacy
// ids from its own sequence and fails every call while down.
type Durable[T repository.Entity] struct {
	mu    sync.Mutex
	newFn func() T
	rows  []fakeRow
	down  bool
	calls map[string]int
}

type fakeRow struct {
	id   model.Identity
	body []byte
}

func NewDurable[T repository.Entity](newFn func() T) *Durable[T] {
	return &Durable[T]{newFn: newFn, calls: map[string]int{}}
}

// SetDown makes every following call fail with repository.ErrStoreUnavailable.
func (f *Durable[T]) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// Calls counts calls of op ("find", "list", "insert", "update").
func (f *Durable[T]) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Len is the number of stored rows.
func (f *Durable[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *Durable[T]) enter(op string) error {
	f.calls[op]++
	if f.down {
		return errors.Wrap(repository.ErrStoreUnavailable, "dial tcp: connection refused")
	}
	return nil
}

func (f *Durable[T]) decode(r fakeRow) (T, error) {
	e := f.newFn()
	if err := json.Unmarshal(r.body, e); err != nil {
		var zero T
		return zero, err
	}
	*e.Ident() = r.id
	return e, nil
}

func (f *Durable[T]) FindByPersistentID(_ context.Context, id string) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var zero T
	if err := f.enter("find"); err != nil {
		return zero, err
	}
	for _, r := range f.rows {
		if r.id.PersistentID == id {
			return f.decode(r)
		}
	}
	return zero, repository.ErrNotFound
}

func (f *Durable[T]) FindByLegacyID(_ context.Context, id int64) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var zero T
	if err := f.enter("find"); err != nil {
		return zero, err
	}
	for _, r := range f.rows {
		if r.id.LegacyID == id {
			return f.decode(r)
		}
	}
	return zero, repository.ErrNotFound
}

func (f *Durable[T]) List(_ context.Context) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list"); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(f.rows))
	for _, r := range f.rows {
		e, err := f.decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *Durable[T]) Insert(_ context.Context, e T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("insert"); err != nil {
		return err
	}
	id := e.Ident()
	if id.LegacyID <= 0 {
		var max int64
		for _, r := range f.rows {
			if r.id.LegacyID > max {
				max = r.id.LegacyID
			}
		}
		id.LegacyID = max + 1
	}
	id.PersistentID = model.NewPersistentID()
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	f.rows = append(f.rows, fakeRow{id: *id, body: body})
	return nil
}

func (f *Durable[T]) Update(_ context.Context, e T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("update"); err != nil {
		return err
	}
	id := *e.Ident()
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	for i, r := range f.rows {
		if r.id.PersistentID == id.PersistentID {
			f.rows[i].body = body
			return nil
		}
	}
	return repository.ErrNotFound
}
