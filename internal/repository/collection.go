package repository

import (
	"context"

	"github.com/iliyamo/hotel-backoffice/internal/model"
)

// Entity is implemented by every struct embedding model.Identity.
type Entity interface {
	Ident() *model.Identity
}

// Collection is the storage contract shared by the durable store and the
// in-process mirror.  Both sides implement identical semantics so the
// fallback coordinator can replay an operation on either.
//
// Insert assigns the identifiers the side is responsible for: the durable
// store issues a persistent id, both sides assign the next legacy id unless
// one was supplied.  Update locates the entity by its identity and never
// changes it.
type Collection[T Entity] interface {
	FindByPersistentID(ctx context.Context, id string) (T, error)
	FindByLegacyID(ctx context.Context, id int64) (T, error)
	List(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, e T) error
	Update(ctx context.Context, e T) error
}
