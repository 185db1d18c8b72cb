// README: Trip records service: create (for the generator), list, get and delete per owner.
package trips

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"wander/internal/modules/tripgen"
)

var (
	ErrNotFound = errors.New("trip not found")
	ErrConflict = errors.New("trip id already exists")
)

// Store persists trip records. Implementations wrap transport failures in
// tripgen.ErrStoreUnavailable.
type Store interface {
	Create(ctx context.Context, rec *tripgen.TripRecord) error
	Get(ctx context.Context, id string) (*tripgen.TripRecord, error)
	ListByOwner(ctx context.Context, owner string) ([]tripgen.TripRecord, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("trips")}
}

// CreateTrip satisfies tripgen.RecordStore.
func (s *Service) CreateTrip(ctx context.Context, rec *tripgen.TripRecord) error {
	return s.store.Create(ctx, rec)
}

// List returns the owner's trips, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]tripgen.TripRecord, error) {
	recs, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

// Get returns ErrNotFound for trips owned by someone else.
func (s *Service) Get(ctx context.Context, owner, id string) (*tripgen.TripRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerIdentity != owner {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("trip deleted", zap.String("owner", owner), zap.String("trip_id", id))
	return nil
}
