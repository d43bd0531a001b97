package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/iliyamo/hotel-backoffice/internal/model"
)

// mirrorEntry stores an encoded copy so callers can never alias the
// stored record.  Resident entries were written while serving as fallback
// and stay authoritative in the mirror.
type mirrorEntry struct {
	id       model.Identity
	body     []byte
	resident bool
}

// Mirror is the in-process collection used when the durable store cannot
// serve a request.  It is seeded lazily from bootstrap data on first use and
// diverges from the durable store only through fallback writes; it is not a
// cache of the durable store.
type Mirror[T Entity] struct {
	newFn func() T
	seed  func() ([]T, error)

	once    sync.Once
	seedErr error

	mu      sync.RWMutex
	entries []*mirrorEntry
}

// NewMirror builds a mirror.  newFn allocates an empty entity for decoding
// and seed, when non-nil, returns the bootstrap records.
func NewMirror[T Entity](newFn func() T, seed func() ([]T, error)) *Mirror[T] {
	return &Mirror[T]{newFn: newFn, seed: seed}
}

func (m *Mirror[T]) ensureSeeded() error {
	m.once.Do(func() {
		if m.seed == nil {
			return
		}
		items, err := m.seed()
		if err != nil {
			m.seedErr = errors.Wrap(err, "mirror seed")
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, e := range items {
			if _, err := m.insertLocked(e, false); err != nil {
				m.seedErr = err
				return
			}
		}
	})
	return m.seedErr
}

func (m *Mirror[T]) decode(en *mirrorEntry) (T, error) {
	e := m.newFn()
	if err := json.Unmarshal(en.body, e); err != nil {
		var zero T
		return zero, errors.Wrap(err, "mirror decode")
	}
	*e.Ident() = en.id
	return e, nil
}

func (m *Mirror[T]) find(match func(*mirrorEntry) bool, residentOnly bool) (T, error) {
	var zero T
	if err := m.ensureSeeded(); err != nil {
		return zero, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, en := range m.entries {
		if residentOnly && !en.resident {
			continue
		}
		if match(en) {
			return m.decode(en)
		}
	}
	return zero, ErrNotFound
}

func (m *Mirror[T]) list(residentOnly bool) ([]T, error) {
	if err := m.ensureSeeded(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.entries))
	for _, en := range m.entries {
		if residentOnly && !en.resident {
			continue
		}
		e, err := m.decode(en)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func byPersistent(id string) func(*mirrorEntry) bool {
	return func(en *mirrorEntry) bool { return en.id.PersistentID != "" && en.id.PersistentID == id }
}

func byLegacy(id int64) func(*mirrorEntry) bool {
	return func(en *mirrorEntry) bool { return en.id.LegacyID == id }
}

// byIdentity prefers the persistent id and falls back to the legacy id only
// for records that never had one.
func byIdentity(id model.Identity) func(*mirrorEntry) bool {
	if id.PersistentID != "" {
		return byPersistent(id.PersistentID)
	}
	return func(en *mirrorEntry) bool { return en.id.PersistentID == "" && en.id.LegacyID == id.LegacyID }
}

func (m *Mirror[T]) FindByPersistentID(_ context.Context, id string) (T, error) {
	return m.find(byPersistent(id), false)
}

func (m *Mirror[T]) FindByLegacyID(_ context.Context, id int64) (T, error) {
	return m.find(byLegacy(id), false)
}

func (m *Mirror[T]) List(_ context.Context) ([]T, error) { return m.list(false) }

// Insert adds e as a resident record.  The mirror never issues persistent
// ids; a legacy id is assigned from the mirror's own namespace unless e
// already carries one.
func (m *Mirror[T]) Insert(_ context.Context, e T) error {
	if err := m.ensureSeeded(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.insertLocked(e, true)
	return err
}

func (m *Mirror[T]) insertLocked(e T, resident bool) (*mirrorEntry, error) {
	id := e.Ident()
	if id.LegacyID > 0 {
		for _, en := range m.entries {
			if en.id.LegacyID == id.LegacyID {
				return nil, errors.Wrapf(ErrConflict, "legacy id %d", id.LegacyID)
			}
		}
	} else {
		id.LegacyID = m.nextLegacyLocked()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "mirror encode")
	}
	en := &mirrorEntry{id: *id, body: body, resident: resident}
	m.entries = append(m.entries, en)
	return en, nil
}

func (m *Mirror[T]) nextLegacyLocked() int64 {
	var max int64
	for _, en := range m.entries {
		if en.id.LegacyID > max {
			max = en.id.LegacyID
		}
	}
	return max + 1
}

// Update replaces the stored copy of e and marks it resident.  An entity
// the mirror has never seen (a durable record whose update degraded) is
// added as-is so that it keeps both of its identifiers.
func (m *Mirror[T]) Update(_ context.Context, e T) error {
	if err := m.ensureSeeded(); err != nil {
		return err
	}
	id := *e.Ident()
	if id.Empty() {
		return ErrNotFound
	}
	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "mirror encode")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	match := byIdentity(id)
	for _, en := range m.entries {
		if match(en) {
			en.body = body
			en.resident = true
			return nil
		}
	}
	m.entries = append(m.entries, &mirrorEntry{id: id, body: body, resident: true})
	return nil
}

// IsResident reports whether the mirror is authoritative for id.
func (m *Mirror[T]) IsResident(id model.Identity) bool {
	if m.ensureSeeded() != nil || id.Empty() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	match := byIdentity(id)
	for _, en := range m.entries {
		if en.resident && match(en) {
			return true
		}
	}
	return false
}

// Residents is a read view over the records the mirror is authoritative
// for.  Writes go to the full mirror.
func (m *Mirror[T]) Residents() Collection[T] { return residentView[T]{m: m} }

type residentView[T Entity] struct{ m *Mirror[T] }

func (v residentView[T]) FindByPersistentID(_ context.Context, id string) (T, error) {
	return v.m.find(byPersistent(id), true)
}

func (v residentView[T]) FindByLegacyID(_ context.Context, id int64) (T, error) {
	return v.m.find(byLegacy(id), true)
}

func (v residentView[T]) List(_ context.Context) ([]T, error) { return v.m.list(true) }

func (v residentView[T]) Insert(ctx context.Context, e T) error { return v.m.Insert(ctx, e) }

func (v residentView[T]) Update(ctx context.Context, e T) error { return v.m.Update(ctx, e) }
