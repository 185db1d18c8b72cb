// README: Wishlist service: the user's travel preferences, also the generator's PreferenceStore.
package wishlist

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound    = errors.New("wishlist item not found")
	ErrInvalidItem = errors.New("wishlist item is empty")
)

// maxItemLen caps a single entry in characters; the prompt carries every item.
const maxItemLen = 200

type Item struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Item      string    `json:"item"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists wishlist items. Implementations wrap transport failures in
// tripgen.ErrStoreUnavailable.
type Store interface {
	Add(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	ListByOwner(ctx context.Context, owner string) ([]Item, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("wishlist"), now: time.Now}
}

// List returns the owner's items, oldest first.
func (s *Service) List(ctx context.Context, owner string) ([]Item, error) {
	items, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Service) Add(ctx context.Context, owner, text string) (*Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidItem
	}
	if utf8.RuneCountInString(text) > maxItemLen {
		text = strings.TrimSpace(string([]rune(text)[:maxItemLen]))
	}
	item := &Item{
		ID:        uuid.NewString(),
		Owner:     owner,
		Item:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Add(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("wishlist item added", zap.String("owner", owner), zap.String("item_id", item.ID))
	return item, nil
}

// Remove returns ErrNotFound for items owned by someone else.
func (s *Service) Remove(ctx context.Context, owner, id string) error {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Owner != owner {
		return ErrNotFound
	}
	return s.store.Delete(ctx, id)
}

// Preferences satisfies tripgen.PreferenceStore.
func (s *Service) Preferences(ctx context.Context, owner string) ([]string, error) {
	items, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Item)
	}
	return out, nil
}
