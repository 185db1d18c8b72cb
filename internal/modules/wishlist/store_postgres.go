package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wander/internal/modules/tripgen"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, item *Item) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO wishlist_items (id, owner, item, created_at)
		VALUES ($1, $2, $3, $4)`,
		item.ID, item.Owner, item.Item, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: add wishlist item: %v", tripgen.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Item, error) {
	var it Item
	err := s.db.QueryRow(ctx, `
		SELECT id, owner, item, created_at
		FROM wishlist_items
		WHERE id = $1`, id,
	).Scan(&it.ID, &it.Owner, &it.Item, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get wishlist item: %v", tripgen.ErrStoreUnavailable, err)
	}
	return &it, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner, item, created_at
		FROM wishlist_items
		WHERE owner = $1
		ORDER BY created_at ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: list wishlist: %v", tripgen.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Owner, &it.Item, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan wishlist item: %v", tripgen.ErrStoreUnavailable, err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list wishlist: %v", tripgen.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM wishlist_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete wishlist item: %v", tripgen.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
