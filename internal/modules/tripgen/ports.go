package tripgen

import "context"

// PreferenceStore returns an owner's wishlist, oldest first. Unknown owners get
// an empty slice; transport failures wrap ErrStoreUnavailable.
type PreferenceStore interface {
	Preferences(ctx context.Context, owner string) ([]string, error)
}

// RecordStore creates trip records under caller-supplied ids.
type RecordStore interface {
	CreateTrip(ctx context.Context, rec *TripRecord) error
}

// CompletionService sends one prompt and returns the model's raw text.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type IDGenerator interface {
	NextID() string
}

// Locker serializes generation attempts that share a key. The returned unlock
// func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
