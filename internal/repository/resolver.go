package repository

import (
	"context"

	"github.com/iliyamo/hotel-backoffice/internal/model"
)

// Resolve locates the entity addressed by raw in c.  The shape of raw alone
// decides which lookup runs; there is no second attempt under the other
// scheme, and an unmatched identifier is ErrNotFound.
func Resolve[T Entity](ctx context.Context, c Collection[T], raw string) (T, error) {
	return findByKey(ctx, c, model.ParseKey(raw))
}

func findByKey[T Entity](ctx context.Context, c Collection[T], key model.Key) (T, error) {
	switch key.Kind() {
	case model.KeyPersistent:
		return c.FindByPersistentID(ctx, key.Persistent())
	case model.KeyLegacy:
		return c.FindByLegacyID(ctx, key.Legacy())
	}
	var zero T
	return zero, ErrNotFound
}
