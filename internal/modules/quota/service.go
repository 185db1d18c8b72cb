// README: Monthly trip-generation allowance per signed-in owner.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wander/internal/modules/tripgen"
)

type Store interface {
	Consume(ctx context.Context, owner string, allowance int, month string) error
	EnsureOwner(ctx context.Context, owner string, allowance int, month string) error
	Refund(ctx context.Context, owner string, allowance int, month string) error
}

// Service orchestrates quota logic. A nil *Service allows everything.
type Service struct {
	store     Store
	allowance int
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store Store, allowance int, logger *zap.Logger) *Service {
	if allowance <= 0 {
		allowance = DefaultAllowance
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, allowance: allowance, logger: logger.Named("quota"), now: time.Now}
}

func (s *Service) month() string {
	return s.now().UTC().Format("2006-01")
}

// Consume deducts one generation from the owner's monthly allowance.
// If the owner row does not exist yet it is initialised and the generation is immediately consumed.
// Anonymous callers (empty owner) are not metered.
func (s *Service) Consume(ctx context.Context, owner string) error {
	if s == nil || owner == "" {
		return nil
	}
	month := s.month()
	err := s.store.Consume(ctx, owner, s.allowance, month)
	if !errors.Is(err, ErrQuotaExceeded) {
		return storeErr(err)
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.store.EnsureOwner(ctx, owner, s.allowance, month); initErr != nil {
		return storeErr(initErr)
	}
	if err := s.store.Consume(ctx, owner, s.allowance, month); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.logger.Info("quota exhausted", zap.String("owner", owner), zap.String("month", month))
			return err
		}
		return storeErr(err)
	}
	return nil
}

// storeErr makes sure transport failures classify as ErrStoreUnavailable.
func storeErr(err error) error {
	if err == nil || errors.Is(err, tripgen.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", tripgen.ErrStoreUnavailable, err)
}

// Refund returns a generation consumed by an attempt that failed on our side.
func (s *Service) Refund(ctx context.Context, owner string) {
	if s == nil || owner == "" {
		return
	}
	if err := s.store.Refund(ctx, owner, s.allowance, s.month()); err != nil {
		s.logger.Warn("quota refund failed", zap.String("owner", owner), zap.Error(err))
	}
}
