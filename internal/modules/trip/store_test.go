package trip

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimoreirac/pi-tercero/internal/dbtest"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

func setupStore(t *testing.T) (*pgxpool.Pool, *Store, types.ID) {
	t.Helper()
	pool := dbtest.Open(t)
	driver := &user.User{
		ID:         types.ID(uuid.NewString()),
		ExternalID: "test:" + uuid.NewString(),
		Email:      uuid.NewString() + "@example.com",
		Name:       "driver",
	}
	require.NoError(t, user.NewStore(pool).Create(context.Background(), driver))
	return pool, NewStore(pool), driver.ID
}

func newTrip(driver types.ID, departure time.Time) *Trip {
	return &Trip{
		ID:             types.ID(uuid.NewString()),
		DriverID:       driver,
		Origin:         "Quito",
		Destination:    "Ibarra",
		DepartureAt:    departure,
		SeatsAvailable: 3,
		Status:         StatusActive,
	}
}

func TestStore_CreateGet(t *testing.T) {
	_, store, driver := setupStore(t)
	ctx := context.Background()

	departure := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	tr := newTrip(driver, departure)
	require.NoError(t, store.Create(ctx, tr))
	assert.False(t, tr.CreatedAt.IsZero())

	got, err := store.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, driver, got.DriverID)
	assert.Equal(t, "Quito", got.Origin)
	assert.True(t, departure.Equal(got.DepartureAt))
	assert.Equal(t, 3, got.SeatsAvailable)
	assert.Nil(t, got.Description)
	assert.Empty(t, got.AreaTags)
	assert.Equal(t, StatusActive, got.Status)

	_, err = store.Get(ctx, types.ID(uuid.NewString()))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateWritesOnlyChangedColumns(t *testing.T) {
	_, store, driver := setupStore(t)
	ctx := context.Background()

	tr := newTrip(driver, time.Now().Add(time.Hour).UTC())
	require.NoError(t, store.Create(ctx, tr))

	desc := "sale desde la plaza"
	got, err := store.Update(ctx, tr.ID, Changes{
		FieldSeats:       2,
		FieldStatus:      StatusInactive,
		FieldDescription: &desc,
		FieldAreaTags:    []string{"norte", "centro"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.SeatsAvailable)
	assert.Equal(t, StatusInactive, got.Status)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	assert.Equal(t, []string{"norte", "centro"}, got.AreaTags)
	assert.Equal(t, "Quito", got.Origin)
	assert.False(t, got.UpdatedAt.Before(tr.UpdatedAt))

	var nilDesc *string
	got, err = store.Update(ctx, tr.ID, Changes{FieldDescription: nilDesc})
	require.NoError(t, err)
	assert.Nil(t, got.Description)

	same, err := store.Update(ctx, tr.ID, Changes{})
	require.NoError(t, err)
	assert.Equal(t, got.SeatsAvailable, same.SeatsAvailable)

	_, err = store.Update(ctx, types.ID(uuid.NewString()), Changes{FieldSeats: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Lists(t *testing.T) {
	_, store, driver := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	late := newTrip(driver, now.Add(3*time.Hour))
	early := newTrip(driver, now.Add(time.Hour))
	inactive := newTrip(driver, now.Add(2*time.Hour))
	inactive.Status = StatusInactive
	for _, tr := range []*Trip{late, early, inactive} {
		require.NoError(t, store.Create(ctx, tr))
	}

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, early.ID, active[0].ID)
	assert.Equal(t, late.ID, active[1].ID)

	mine, err := store.ListByDriver(ctx, driver)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, late.ID, mine[0].ID)
	assert.Equal(t, early.ID, mine[2].ID)

	none, err := store.ListByDriver(ctx, types.ID(uuid.NewString()))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Delete(t *testing.T) {
	pool, store, driver := setupStore(t)
	ctx := context.Background()

	tr := newTrip(driver, time.Now().Add(time.Hour).UTC())
	require.NoError(t, store.Create(ctx, tr))

	require.NoError(t, store.Delete(ctx, tr.ID))
	_, err := store.Get(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, tr.ID), ErrNotFound)

	again := newTrip(driver, time.Now().Add(time.Hour).UTC())
	require.NoError(t, store.Create(ctx, again))
	_, err = pool.Exec(ctx, `DELETE FROM usuarios WHERE id_usuario = $1`, string(driver))
	require.NoError(t, err)
	_, err = store.Get(ctx, again.ID)
	assert.ErrorIs(t, err, ErrNotFound, "trips cascade with their driver")
}
