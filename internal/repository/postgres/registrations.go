package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"registration-service/internal/model"
	"registration-service/internal/repository"
)

// RegistrationRepository implements repository.RegistrationStore on
// PostgreSQL.
//
// Every state transition runs inside a transaction that first acquires a
// row-level lock on the event (SELECT ... FOR UPDATE). A naive
// read-then-write would let two concurrent callers both observe a free
// seat and both claim it; the row lock serializes all writers for one
// event, so the capacity check, the counter update, the waitlist position
// assignment and the promotion step can never interleave. Events never
// contend with each other — the lock is per event row.
//
// The (user_id, event_id) primary key backstops the duplicate check: even
// if a registration were attempted outside the lock, the second insert
// would fail rather than produce two records.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Register creates a registration or waitlist entry for (userID, eventID)
// as one atomic transition.
func (r *RegistrationRepository) Register(ctx context.Context, userID, eventID string) (result *model.RegisterResult, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the event row. Everything below happens under this lock.
	var capacity, registeredCount, nextPosition int
	var waitlistEnabled bool
	err = tx.QueryRow(ctx,
		`SELECT capacity, registered_count, waitlist_enabled, next_waitlist_position
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&capacity, &registeredCount, &waitlistEnabled, &nextPosition)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	// Duplicate check. At most one registration may exist per (user, event).
	var existing model.RegistrationStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM registrations WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	).Scan(&existing)
	switch {
	case err == nil:
		if existing == model.Waitlisted {
			return nil, repository.ErrAlreadyWaitlisted
		}
		return nil, repository.ErrAlreadyRegistered
	case errors.Is(err, pgx.ErrNoRows):
		// proceed
	default:
		return nil, fmt.Errorf("check duplicate: %w", err)
	}

	now := time.Now().UTC()
	switch {
	case registeredCount < capacity:
		_, err = tx.Exec(ctx,
			`INSERT INTO registrations (user_id, event_id, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $4)`,
			userID, eventID, model.Registered, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert registration: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE events SET registered_count = registered_count + 1 WHERE id = $1`,
			eventID,
		)
		if err != nil {
			return nil, fmt.Errorf("increment registered_count: %w", err)
		}
		result = &model.RegisterResult{Outcome: model.OutcomeRegistered}

	case waitlistEnabled:
		_, err = tx.Exec(ctx,
			`INSERT INTO registrations (user_id, event_id, status, waitlist_position, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $5)`,
			userID, eventID, model.Waitlisted, nextPosition, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert waitlist entry: %w", err)
		}
		// Positions are never reused, even after removals.
		_, err = tx.Exec(ctx,
			`UPDATE events SET next_waitlist_position = next_waitlist_position + 1 WHERE id = $1`,
			eventID,
		)
		if err != nil {
			return nil, fmt.Errorf("advance waitlist position: %w", err)
		}
		result = &model.RegisterResult{Outcome: model.OutcomeWaitlisted, Position: nextPosition}

	default:
		return nil, repository.ErrEventFull
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// Unregister removes the registration for (userID, eventID). When a
// registered user leaves, the freed seat is handed to the waitlist head in
// the same transaction, so no concurrent register can race into it first.
func (r *RegistrationRepository) Unregister(ctx context.Context, userID, eventID string) (result *model.UnregisterResult, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the event row before touching its registrations or counter.
	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT true FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	var removed model.RegistrationStatus
	err = tx.QueryRow(ctx,
		`DELETE FROM registrations WHERE user_id = $1 AND event_id = $2 RETURNING status`,
		userID, eventID,
	).Scan(&removed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("delete registration: %w", err)
	}

	result = &model.UnregisterResult{RemovedStatus: removed}

	// A waitlisted user never consumed a seat: delete only, no promotion.
	if removed == model.Registered {
		_, err = tx.Exec(ctx,
			`UPDATE events SET registered_count = registered_count - 1 WHERE id = $1`,
			eventID,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement registered_count: %w", err)
		}

		promoted, perr := r.promoteNext(ctx, tx, eventID)
		if perr != nil {
			err = perr
			return nil, err
		}
		result.PromotedUserID = promoted
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// promoteNext moves the waitlist head (lowest position) to registered and
// takes back the freed seat. Runs inside the caller's transaction, under
// the event row lock. Returns the promoted user id, or "" when the
// waitlist is empty.
func (r *RegistrationRepository) promoteNext(ctx context.Context, tx pgx.Tx, eventID string) (string, error) {
	var promoted string
	err := tx.QueryRow(ctx,
		`SELECT user_id FROM registrations
		 WHERE event_id = $1 AND status = $2
		 ORDER BY waitlist_position ASC
		 LIMIT 1`,
		eventID, model.Waitlisted,
	).Scan(&promoted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("read waitlist head: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE registrations
		 SET status = $1, waitlist_position = NULL, updated_at = $2
		 WHERE user_id = $3 AND event_id = $4`,
		model.Registered, time.Now().UTC(), promoted, eventID,
	)
	if err != nil {
		return "", fmt.Errorf("promote waitlist head: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE events SET registered_count = registered_count + 1 WHERE id = $1`,
		eventID,
	)
	if err != nil {
		return "", fmt.Errorf("increment registered_count: %w", err)
	}
	return promoted, nil
}

// ListByUser returns the user's registrations, newest first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, event_id, status, waitlist_position, created_at, updated_at
		 FROM registrations
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations by user: %w", err)
	}
	defer rows.Close()
	return scanRegistrations(rows)
}

// ListByEvent returns an event's registered users (oldest first) followed
// by its waitlist in position order.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, event_id, status, waitlist_position, created_at, updated_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY waitlist_position ASC NULLS FIRST, created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations by event: %w", err)
	}
	defer rows.Close()
	return scanRegistrations(rows)
}

func scanRegistrations(rows pgx.Rows) ([]model.Registration, error) {
	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.UserID, &reg.EventID, &reg.Status, &reg.WaitlistPosition, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
