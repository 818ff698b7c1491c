package incident

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimoreirac/pi-tercero/internal/dbtest"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type pgFixture struct {
	pool   *pgxpool.Pool
	store  *Store
	driver types.ID
	rider  types.ID
	trip   *trip.Trip
}

func setupPG(t *testing.T) pgFixture {
	t.Helper()
	pool := dbtest.Open(t)
	f := pgFixture{pool: pool, store: NewStore(pool)}
	f.driver = f.user(t, "Conductora")
	f.rider = f.user(t, "Pasajero")
	f.trip = &trip.Trip{
		ID:             types.ID(uuid.NewString()),
		DriverID:       f.driver,
		Origin:         "Cuenca",
		Destination:    "Loja",
		DepartureAt:    time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		SeatsAvailable: 2,
		Status:         trip.StatusActive,
	}
	require.NoError(t, trip.NewStore(pool).Create(context.Background(), f.trip))
	return f
}

func (f pgFixture) user(t *testing.T, name string) types.ID {
	t.Helper()
	u := &user.User{
		ID:         types.ID(uuid.NewString()),
		ExternalID: "test:" + uuid.NewString(),
		Email:      uuid.NewString() + "@example.com",
		Name:       name,
	}
	require.NoError(t, user.NewStore(f.pool).Create(context.Background(), u))
	return u.ID
}

func (f pgFixture) report(t *testing.T, reporter types.ID, c Category) *Incident {
	t.Helper()
	i := &Incident{
		ID:          types.ID(uuid.NewString()),
		TripID:      f.trip.ID,
		ReporterID:  reporter,
		Category:    c,
		Description: "llegó tarde",
		Status:      StatusOpen,
	}
	require.NoError(t, f.store.Create(context.Background(), i))
	return i
}

func TestStore_CreateGet(t *testing.T) {
	f := setupPG(t)
	ctx := context.Background()

	in := f.report(t, f.rider, CategoryDelay)
	assert.False(t, in.CreatedAt.IsZero())

	got, err := f.store.Get(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, f.trip.ID, got.TripID)
	assert.Equal(t, f.rider, got.ReporterID)
	assert.Equal(t, CategoryDelay, got.Category)
	assert.Equal(t, StatusOpen, got.Status)

	_, err = f.store.Get(ctx, types.ID(uuid.NewString()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListByTripCarriesReporterName(t *testing.T) {
	f := setupPG(t)
	ctx := context.Background()

	f.report(t, f.rider, CategoryDelay)
	f.report(t, f.driver, CategoryBehavior)

	list, err := f.store.ListByTrip(ctx, f.trip.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	names := map[types.ID]string{}
	for _, ti := range list {
		names[ti.ReporterID] = ti.ReporterName
	}
	assert.Equal(t, "Pasajero", names[f.rider])
	assert.Equal(t, "Conductora", names[f.driver])

	empty, err := f.store.ListByTrip(ctx, types.ID(uuid.NewString()))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_ListByReporterCarriesTrip(t *testing.T) {
	f := setupPG(t)
	ctx := context.Background()

	f.report(t, f.rider, CategoryOther)
	f.report(t, f.driver, CategoryAccident)

	list, err := f.store.ListByReporter(ctx, f.rider)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Cuenca", list[0].Origin)
	assert.Equal(t, "Loja", list[0].Destination)
	assert.True(t, f.trip.DepartureAt.Equal(list[0].DepartureAt))
}

func TestStore_UpdateDelete(t *testing.T) {
	f := setupPG(t)
	ctx := context.Background()

	in := f.report(t, f.rider, CategoryDelay)
	next := *in
	next.Category = CategoryCancellation
	next.Description = "canceló sin aviso"
	next.Status = StatusInReview

	got, err := f.store.Update(ctx, &next)
	require.NoError(t, err)
	assert.Equal(t, CategoryCancellation, got.Category)
	assert.Equal(t, "canceló sin aviso", got.Description)
	assert.Equal(t, StatusInReview, got.Status)
	assert.Equal(t, in.CreatedAt.Unix(), got.CreatedAt.Unix())

	missing := next
	missing.ID = types.ID(uuid.NewString())
	_, err = f.store.Update(ctx, &missing)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.store.Delete(ctx, in.ID))
	assert.ErrorIs(t, f.store.Delete(ctx, in.ID), ErrNotFound)
}

func TestStore_IncidentsCascadeWithTrip(t *testing.T) {
	f := setupPG(t)
	ctx := context.Background()

	in := f.report(t, f.rider, CategoryDelay)
	require.NoError(t, trip.NewStore(f.pool).Delete(ctx, f.trip.ID))

	_, err := f.store.Get(ctx, in.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
