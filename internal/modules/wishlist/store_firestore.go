package wishlist

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wander/internal/modules/tripgen"
)

const wishlistCollection = "Wishlist"

type itemDoc struct {
	Item      string    `firestore:"item"`
	UserEmail string    `firestore:"userEmail"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Add(ctx context.Context, item *Item) error {
	doc := itemDoc{Item: item.Item, UserEmail: item.Owner, CreatedAt: item.CreatedAt}
	if _, err := s.client.Collection(wishlistCollection).Doc(item.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("%w: add wishlist item: %v", tripgen.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*Item, error) {
	snap, err := s.client.Collection(wishlistCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get wishlist item: %v", tripgen.ErrStoreUnavailable, err)
	}
	return decodeItem(snap)
}

func (s *FirestoreStore) ListByOwner(ctx context.Context, owner string) ([]Item, error) {
	snaps, err := s.client.Collection(wishlistCollection).Where("userEmail", "==", owner).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: list wishlist: %v", tripgen.ErrStoreUnavailable, err)
	}
	out := make([]Item, 0, len(snaps))
	for _, snap := range snaps {
		item, err := decodeItem(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(wishlistCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("%w: delete wishlist item: %v", tripgen.ErrStoreUnavailable, err)
	}
	return nil
}

func decodeItem(snap *firestore.DocumentSnapshot) (*Item, error) {
	var doc itemDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode wishlist item %s: %w", snap.Ref.ID, err)
	}
	return &Item{ID: snap.Ref.ID, Owner: doc.UserEmail, Item: doc.Item, CreatedAt: doc.CreatedAt}, nil
}
