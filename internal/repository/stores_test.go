package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/repository"
	"github.com/iliyamo/hotel-backoffice/internal/repository/bootstrap"
)

func TestNewStoresWithoutDatabase(t *testing.T) {
	stores := repository.NewStores(nil, bootstrap.New(bcrypt.MinCost), quietLog())
	ctx := context.Background()

	assert.Equal(t, repository.ModeFallback, stores.Health.Mode())

	rooms, err := stores.Rooms.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rooms)

	berlin, err := stores.Rooms.Find(ctx, func(r *model.Room) bool { return r.Number == "Berlin" })
	require.NoError(t, err)
	assert.Equal(t, int64(1), berlin.LegacyID)

	orders, err := stores.Orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = stores.SeedDurable(ctx)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}
