package trips

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wander/internal/modules/tripgen"
)

const tripsCollection = "UserTrips"

// tripDoc is the document layout the mobile client reads.
type tripDoc struct {
	UserEmail     string         `firestore:"userEmail"`
	TripPlan      map[string]any `firestore:"tripPlan"`
	TripData      string         `firestore:"tripData"`
	WishlistItems []string       `firestore:"wishlistItems"`
	DocID         string         `firestore:"docId"`
	CreatedAt     time.Time      `firestore:"createdAt"`
}

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Create(ctx context.Context, rec *tripgen.TripRecord) error {
	tripData, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("encode trip data: %w", err)
	}
	doc := tripDoc{
		UserEmail:     rec.OwnerIdentity,
		TripPlan:      rec.Plan.Fields,
		TripData:      string(tripData),
		WishlistItems: rec.PreferenceSnapshot,
		DocID:         rec.ID,
		CreatedAt:     rec.CreatedAt,
	}
	if doc.WishlistItems == nil {
		doc.WishlistItems = []string{}
	}
	if _, err := s.client.Collection(tripsCollection).Doc(rec.ID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("%w: %s", ErrConflict, rec.ID)
		}
		return fmt.Errorf("%w: create trip: %v", tripgen.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*tripgen.TripRecord, error) {
	snap, err := s.client.Collection(tripsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get trip: %v", tripgen.ErrStoreUnavailable, err)
	}
	return decodeTripDoc(snap)
}

func (s *FirestoreStore) ListByOwner(ctx context.Context, owner string) ([]tripgen.TripRecord, error) {
	snaps, err := s.client.Collection(tripsCollection).Where("userEmail", "==", owner).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: list trips: %v", tripgen.ErrStoreUnavailable, err)
	}
	out := make([]tripgen.TripRecord, 0, len(snaps))
	for _, snap := range snaps {
		rec, err := decodeTripDoc(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(tripsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("%w: delete trip: %v", tripgen.ErrStoreUnavailable, err)
	}
	return nil
}

func decodeTripDoc(snap *firestore.DocumentSnapshot) (*tripgen.TripRecord, error) {
	var doc tripDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode trip %s: %w", snap.Ref.ID, err)
	}
	return recordFromDoc(snap.Ref.ID, doc)
}

func recordFromDoc(id string, doc tripDoc) (*tripgen.TripRecord, error) {
	rec := &tripgen.TripRecord{
		ID:                 id,
		OwnerIdentity:      doc.UserEmail,
		PreferenceSnapshot: doc.WishlistItems,
		CreatedAt:          doc.CreatedAt,
	}
	if doc.TripData != "" {
		if err := json.Unmarshal([]byte(doc.TripData), &rec.Request); err != nil {
			return nil, fmt.Errorf("decode trip %s request: %w", id, err)
		}
	}
	if doc.TripPlan != nil {
		raw, err := json.Marshal(doc.TripPlan)
		if err != nil {
			return nil, fmt.Errorf("encode trip %s plan: %w", id, err)
		}
		if err := json.Unmarshal(raw, &rec.Plan); err != nil {
			return nil, fmt.Errorf("decode trip %s plan: %w", id, err)
		}
	}
	return rec, nil
}
