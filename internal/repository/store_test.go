package repository_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/repository"
	"github.com/iliyamo/hotel-backoffice/internal/repository/repotest"
)

func newCustomer() *model.Customer { return &model.Customer{} }

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seedCustomers() ([]*model.Customer, error) {
	return []*model.Customer{
		{Identity: model.Identity{LegacyID: 1}, Name: "Amina"},
		{Identity: model.Identity{LegacyID: 2}, Name: "Jonas"},
	}, nil
}

func setup(t *testing.T) (*repository.Store[*model.Customer], *repotest.Durable[*model.Customer], *repository.Health) {
	t.Helper()
	durable := repotest.NewDurable(newCustomer)
	health := repository.NewHealth(true)
	store := repository.NewStore[*model.Customer]("customers", durable, repository.NewMirror(newCustomer, seedCustomers), health, quietLog())
	return store, durable, health
}

func TestStoreCreateIssuesBothIdentifiers(t *testing.T) {
	store, _, health := setup(t)
	ctx := context.Background()

	c := &model.Customer{Name: "Mei"}
	require.NoError(t, store.Create(ctx, c))

	assert.NotEmpty(t, c.PersistentID)
	assert.Equal(t, int64(1), c.LegacyID)
	assert.Equal(t, repository.ModeDurable, health.Mode())

	byPersistent, err := store.Resolve(ctx, c.PersistentID)
	require.NoError(t, err)
	byLegacy, err := store.Resolve(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, byPersistent, byLegacy)
	assert.Equal(t, "Mei", byLegacy.Name)
}

func TestStoreResolveUnknownIsNotFound(t *testing.T) {
	store, durable, health := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.Customer{Name: "Mei"}))

	for _, raw := range []string{model.NewPersistentID(), "999", "Berlin", "", "-1"} {
		_, err := store.Resolve(ctx, raw)
		assert.ErrorIs(t, err, repository.ErrNotFound, raw)
	}
	assert.Equal(t, repository.ModeDurable, health.Mode(), "not found is not a store failure")
	assert.Equal(t, 1, durable.Len(), "a failed resolve never creates")
}

func TestStoreResolveShapeDecidesLookup(t *testing.T) {
	store, durable, _ := setup(t)
	ctx := context.Background()

	// 32 digits parse as a UUID, so only the persistent lookup runs.
	_, err := store.Resolve(ctx, "12345678901234567890123456789012")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1, durable.Calls("find"))
}

func TestStoreFallsBackWhenDurableFails(t *testing.T) {
	store, durable, health := setup(t)
	ctx := context.Background()
	durable.SetDown(true)

	c := &model.Customer{Name: "Mei"}
	require.NoError(t, store.Create(ctx, c))
	assert.Empty(t, c.PersistentID, "the mirror never issues persistent ids")
	assert.Equal(t, int64(3), c.LegacyID, "next legacy id after the seeded records")

	got, err := store.Resolve(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Mei", got.Name)

	seeded, err := store.Resolve(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Amina", seeded.Name)

	snap := health.Snapshot()
	assert.Equal(t, repository.ModeFallback, snap.Mode)
	assert.GreaterOrEqual(t, snap.Degradations, int64(1))
	assert.Contains(t, snap.LastError, "connection refused")
	assert.NotNil(t, snap.LastDegradedAt)
}

func TestMirrorResidentStaysAuthoritativeAfterRecovery(t *testing.T) {
	store, durable, health := setup(t)
	ctx := context.Background()

	durable.SetDown(true)
	c := &model.Customer{Name: "Fallback guest"}
	require.NoError(t, store.Create(ctx, c))
	durable.SetDown(false)

	got, err := store.Resolve(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Fallback guest", got.Name)

	got.Phone = "+1"
	require.NoError(t, store.Update(ctx, got))
	assert.Zero(t, durable.Calls("update"), "updates of mirror residents stay in the mirror")
	assert.Zero(t, durable.Len(), "no automatic migration")

	again, err := store.Resolve(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "+1", again.Phone)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Fallback guest", list[0].Name)
	assert.Equal(t, repository.ModeDurable, health.Mode())
}

func TestDegradedUpdateShadowsDurableRecord(t *testing.T) {
	store, durable, _ := setup(t)
	ctx := context.Background()

	c := &model.Customer{Name: "Mei"}
	require.NoError(t, store.Create(ctx, c))
	pid := c.PersistentID

	durable.SetDown(true)
	c.Phone = "+49"
	require.NoError(t, store.Update(ctx, c))
	durable.SetDown(false)

	got, err := store.Resolve(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, "+49", got.Phone)
	assert.Equal(t, pid, got.PersistentID, "identifiers survive the fallback write")
	assert.Equal(t, c.LegacyID, got.LegacyID)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "the durable copy is shadowed, never merged")
	assert.Equal(t, "+49", list[0].Phone)
}

func TestStoreListFallsBackToWholeMirror(t *testing.T) {
	store, durable, _ := setup(t)
	ctx := context.Background()
	durable.SetDown(true)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestStoreUpdateUnknownIsNotFound(t *testing.T) {
	store, _, _ := setup(t)
	err := store.Update(context.Background(), &model.Customer{Identity: model.Identity{PersistentID: model.NewPersistentID()}})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMirrorOnlyStore(t *testing.T) {
	health := repository.NewHealth(false)
	store := repository.NewStore[*model.Customer]("customers", nil, repository.NewMirror(newCustomer, seedCustomers), health, quietLog())
	ctx := context.Background()

	c := &model.Customer{Name: "Mei"}
	require.NoError(t, store.Create(ctx, c))
	assert.Equal(t, int64(3), c.LegacyID)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	found, err := store.Find(ctx, func(c *model.Customer) bool { return c.Name == "Jonas" })
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.LegacyID)

	assert.Equal(t, repository.ModeFallback, health.Mode())
	health.Recovered()
	assert.Equal(t, repository.ModeFallback, health.Mode(), "nothing to recover to")
}

// stalled is a durable collection that accepts the call and never answers.
type stalled struct{}

func (stalled) FindByPersistentID(ctx context.Context, _ string) (*model.Customer, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalled) FindByLegacyID(ctx context.Context, _ int64) (*model.Customer, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalled) List(ctx context.Context) ([]*model.Customer, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalled) Insert(ctx context.Context, _ *model.Customer) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalled) Update(ctx context.Context, _ *model.Customer) error {
	<-ctx.Done()
	return ctx.Err()
}

func stalledStore() (*repository.Store[*model.Customer], *repository.Health) {
	health := repository.NewHealth(true)
	store := repository.NewStore[*model.Customer]("customers", stalled{}, repository.NewMirror(newCustomer, seedCustomers), health, quietLog())
	return store, health
}

func TestStoreFallsBackWhenDurableStalls(t *testing.T) {
	store, health := stalledStore()
	store.SetAttemptTimeout(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c := &model.Customer{Name: "Mei"}
	start := time.Now()
	require.NoError(t, store.Create(ctx, c))
	assert.Equal(t, int64(3), c.LegacyID)
	assert.Equal(t, repository.ModeFallback, health.Mode())
	assert.Equal(t, int64(1), health.Snapshot().Degradations)

	got, err := store.Resolve(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Mei", got.Name)

	_, err = store.Resolve(ctx, "1")
	require.NoError(t, err)
	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Less(t, time.Since(start), time.Second, "each stalled attempt is cut short")
}

func TestStoreFallsBackWhenRequestDeadlinePasses(t *testing.T) {
	store, health := stalledStore()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := &model.Customer{Name: "Mei"}
	require.NoError(t, store.Create(ctx, c))
	assert.Positive(t, c.LegacyID)
	assert.Equal(t, repository.ModeFallback, health.Mode())
}

func TestStoreCancelledRequestSkipsFallback(t *testing.T) {
	store, health := stalledStore()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := store.Create(ctx, &model.Customer{Name: "Mei"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, repository.ModeDurable, health.Mode())
	assert.Zero(t, health.Snapshot().Degradations)
}
