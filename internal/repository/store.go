package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-backoffice/internal/model"
)

// Store is the fallback coordinator for one entity type.  Every operation
// is attempted against the durable collection first; any durable error
// other than ErrNotFound is logged, recorded on Health, and the same
// operation is replayed against the mirror.  Callers get the same shapes
// and errors in both modes.
//
// Each durable attempt runs under its own deadline, shorter than the
// request's, so a stalled server still leaves time to answer from the
// mirror.  Only a cancelled request skips the fallback.
//
// An entity written to the mirror stays there: while the durable store is
// reachable, mirror-resident records are consulted before durable ones and
// are never merged with them.  There is no automatic migration back.
type Store[T Entity] struct {
	name    string
	durable Collection[T]
	mirror  *Mirror[T]
	health  *Health
	log     logrus.FieldLogger
	attempt time.Duration
}

// DefaultAttemptTimeout bounds one durable call.
const DefaultAttemptTimeout = time.Second

// NewStore wires a coordinator.  A nil durable collection means the process
// runs mirror-only.
func NewStore[T Entity](name string, durable Collection[T], mirror *Mirror[T], health *Health, log logrus.FieldLogger) *Store[T] {
	return &Store[T]{name: name, durable: durable, mirror: mirror, health: health, log: log, attempt: DefaultAttemptTimeout}
}

// SetAttemptTimeout changes the deadline of each durable call.  Values <= 0
// are ignored.
func (s *Store[T]) SetAttemptTimeout(d time.Duration) {
	if d > 0 {
		s.attempt = d
	}
}

// Name is the collection name used in logs and metrics.
func (s *Store[T]) Name() string { return s.name }

// withStore runs fn against the durable collection and degrades to the
// mirror on a store failure, a timed out attempt included.  ErrNotFound is
// an answer, not a failure.  The mirror never blocks, so it is replayed
// even when the request deadline has passed.
func withStore[T Entity, R any](ctx context.Context, s *Store[T], op string, fn func(context.Context, Collection[T]) (R, error)) (R, error) {
	if s.durable == nil {
		return fn(ctx, s.mirror)
	}
	actx, cancel := context.WithTimeout(ctx, s.attempt)
	r, err := fn(actx, s.durable)
	cancel()
	if err == nil || errors.Is(err, ErrNotFound) {
		s.health.Recovered()
		return r, err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return r, ctx.Err()
	}
	s.health.Degraded(s.name, op, err)
	s.log.WithFields(logrus.Fields{
		"collection": s.name,
		"op":         op,
		"error":      err.Error(),
	}).Warn("durable store failed, serving from mirror")
	return fn(context.WithoutCancel(ctx), s.mirror)
}

// Resolve finds the entity addressed by raw under either identity scheme.
func (s *Store[T]) Resolve(ctx context.Context, raw string) (T, error) {
	key := model.ParseKey(raw)
	if key.Kind() == model.KeyInvalid {
		var zero T
		return zero, ErrNotFound
	}
	if s.durable != nil {
		if e, err := findByKey(ctx, s.mirror.Residents(), key); err == nil {
			return e, nil
		}
	}
	return withStore(ctx, s, "resolve", func(ctx context.Context, c Collection[T]) (T, error) {
		return findByKey(ctx, c, key)
	})
}

// Create stores a new entity and fills in its identifiers.
func (s *Store[T]) Create(ctx context.Context, e T) error {
	_, err := withStore(ctx, s, "insert", func(ctx context.Context, c Collection[T]) (struct{}, error) {
		return struct{}{}, c.Insert(ctx, e)
	})
	return err
}

// Update writes e back to whichever side is authoritative for it.
func (s *Store[T]) Update(ctx context.Context, e T) error {
	if s.durable != nil && s.mirror.IsResident(*e.Ident()) {
		return s.mirror.Update(ctx, e)
	}
	_, err := withStore(ctx, s, "update", func(ctx context.Context, c Collection[T]) (struct{}, error) {
		return struct{}{}, c.Update(ctx, e)
	})
	return err
}

// Find returns the first listed entity accepted by match.
func (s *Store[T]) Find(ctx context.Context, match func(T) bool) (T, error) {
	var zero T
	all, err := s.List(ctx)
	if err != nil {
		return zero, err
	}
	for _, e := range all {
		if match(e) {
			return e, nil
		}
	}
	return zero, ErrNotFound
}

// List returns every entity: durable records, minus any shadowed by a
// mirror-resident copy, followed by mirror-resident records.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	if s.durable == nil {
		return s.mirror.List(ctx)
	}
	residents, err := s.mirror.Residents().List(ctx)
	if err != nil {
		return nil, err
	}
	return withStore(ctx, s, "list", func(ctx context.Context, c Collection[T]) ([]T, error) {
		if c != s.durable {
			return c.List(ctx)
		}
		durable, err := c.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(residents) == 0 {
			return durable, nil
		}
		shadowed := make(map[string]struct{}, len(residents))
		for _, r := range residents {
			if pid := r.Ident().PersistentID; pid != "" {
				shadowed[pid] = struct{}{}
			}
		}
		out := make([]T, 0, len(durable)+len(residents))
		for _, d := range durable {
			if _, ok := shadowed[d.Ident().PersistentID]; ok {
				continue
			}
			out = append(out, d)
		}
		return append(out, residents...), nil
	})
}
