package trips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wander/internal/modules/tripgen"
)

const uniqueViolation = "23505"

// PostgresStore keeps trips in the user_trips table (migrations/0002_user_trips.sql).
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rec *tripgen.TripRecord) error {
	tripData, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("encode trip data: %w", err)
	}
	prefs := rec.PreferenceSnapshot
	if prefs == nil {
		prefs = []string{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO user_trips (id, owner, trip_plan, trip_data, preferences, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID,
		rec.OwnerIdentity,
		[]byte(rec.Plan.Raw),
		tripData,
		prefsJSON,
		rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrConflict, rec.ID)
		}
		return fmt.Errorf("%w: insert trip: %v", tripgen.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*tripgen.TripRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner, trip_plan, trip_data, preferences, created_at
		FROM user_trips
		WHERE id = $1`, id)
	rec, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]tripgen.TripRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner, trip_plan, trip_data, preferences, created_at
		FROM user_trips
		WHERE owner = $1
		ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: list trips: %v", tripgen.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []tripgen.TripRecord
	for rows.Next() {
		rec, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list trips: %v", tripgen.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM user_trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete trip: %v", tripgen.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTrip(row pgx.Row) (*tripgen.TripRecord, error) {
	var (
		rec                       tripgen.TripRecord
		plan, tripData, prefsJSON []byte
	)
	if err := row.Scan(&rec.ID, &rec.OwnerIdentity, &plan, &tripData, &prefsJSON, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan trip: %v", tripgen.ErrStoreUnavailable, err)
	}
	if err := json.Unmarshal(plan, &rec.Plan); err != nil {
		return nil, fmt.Errorf("decode trip %s plan: %w", rec.ID, err)
	}
	if err := json.Unmarshal(tripData, &rec.Request); err != nil {
		return nil, fmt.Errorf("decode trip %s request: %w", rec.ID, err)
	}
	if err := json.Unmarshal(prefsJSON, &rec.PreferenceSnapshot); err != nil {
		return nil, fmt.Errorf("decode trip %s preferences: %w", rec.ID, err)
	}
	return &rec, nil
}
