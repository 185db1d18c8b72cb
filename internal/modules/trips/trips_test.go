// README: Trips service tests (owner scoping, ordering) and Postgres store round trip.
package trips

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wander/internal/infra"
	"wander/internal/modules/tripgen"
	"wander/migrations"
)

type memStore struct {
	mu   sync.Mutex
	recs map[string]tripgen.TripRecord
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]tripgen.TripRecord)}
}

func (m *memStore) Create(_ context.Context, rec *tripgen.TripRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.ID]; ok {
		return ErrConflict
	}
	m.recs[rec.ID] = *rec
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*tripgen.TripRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *memStore) ListByOwner(_ context.Context, owner string) ([]tripgen.TripRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tripgen.TripRecord
	for _, rec := range m.recs {
		if rec.OwnerIdentity == owner {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, id)
	return nil
}

func mustPlan(t *testing.T, raw string) tripgen.TripPlan {
	t.Helper()
	plan, err := tripgen.ParsePlan(raw, false)
	require.NoError(t, err)
	return plan
}

func seedTrip(t *testing.T, s *Service, id, owner string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, s.CreateTrip(context.Background(), &tripgen.TripRecord{
		ID:            id,
		OwnerIdentity: owner,
		Plan:          mustPlan(t, `{"trip_details":{"destination":"Paris"}}`),
		Request:       tripgen.TripRequest{Destination: "Paris", TotalDays: 3, Budget: tripgen.BudgetModerate},
		CreatedAt:     createdAt,
	}))
}

func TestService_ListNewestFirst(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedTrip(t, svc, "1", "alice", base)
	seedTrip(t, svc, "2", "alice", base.Add(time.Hour))
	seedTrip(t, svc, "3", "bob", base.Add(2*time.Hour))

	recs, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].ID)
	assert.Equal(t, "1", recs[1].ID)
}

func TestService_GetAndDeleteAreOwnerScoped(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil)
	seedTrip(t, svc, "1", "alice", time.Now())

	_, err := svc.Get(context.Background(), "bob", "1")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = svc.Delete(context.Background(), "bob", "1")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, stillThere := store.recs["1"]
	assert.True(t, stillThere)

	rec, err := svc.Get(context.Background(), "alice", "1")
	require.NoError(t, err)
	assert.Equal(t, "Paris", rec.Plan.Destination())

	require.NoError(t, svc.Delete(context.Background(), "alice", "1"))
	_, err = svc.Get(context.Background(), "alice", "1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecordFromDoc(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec, err := recordFromDoc("1700000000000", tripDoc{
		UserEmail:     "alice@example.com",
		TripPlan:      map[string]any{"trip_details": map[string]any{"destination": "Paris"}},
		TripData:      `{"destination":"Paris","total_days":3,"traveler":{"title":"Couple"},"budget":"Moderate"}`,
		WishlistItems: []string{"Louvre"},
		DocID:         "1700000000000",
		CreatedAt:     created,
	})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", rec.ID)
	assert.Equal(t, "alice@example.com", rec.OwnerIdentity)
	assert.Equal(t, "Paris", rec.Plan.Destination())
	assert.Equal(t, 3, rec.Request.TotalDays)
	assert.Equal(t, "Couple", rec.Request.Traveler.Title)
	assert.Equal(t, []string{"Louvre"}, rec.PreferenceSnapshot)
	assert.Equal(t, created, rec.CreatedAt)
}

func TestRecordFromDoc_BadTripData(t *testing.T) {
	_, err := recordFromDoc("1", tripDoc{TripData: "{not json"})
	assert.Error(t, err)
}

// TestPostgresStore_RoundTrip needs a database; it skips when WANDER_TEST_DSN is not set.
func TestPostgresStore_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	rec := &tripgen.TripRecord{
		ID:                 "42",
		OwnerIdentity:      "alice@example.com",
		Plan:               mustPlan(t, `{"trip_details":{"destination":"Paris"}}`),
		Request:            tripgen.TripRequest{Destination: "Paris", TotalDays: 3, Budget: tripgen.BudgetModerate},
		PreferenceSnapshot: []string{"Louvre"},
		CreatedAt:          time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.Create(ctx, rec))
	assert.True(t, errors.Is(store.Create(ctx, rec), ErrConflict))

	got, err := store.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Paris", got.Plan.Destination())
	assert.Equal(t, []string{"Louvre"}, got.PreferenceSnapshot)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	list, err := store.ListByOwner(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, "42"))
	_, err = store.Get(ctx, "42")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("WANDER_TEST_DSN")
	if dsn == "" {
		t.Skip("WANDER_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := infra.ApplyMigrations(ctx, db, migrations.FS); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE user_trips"); err != nil {
		t.Fatalf("truncate user_trips: %v", err)
	}
	return db
}
