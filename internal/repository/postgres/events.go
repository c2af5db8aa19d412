// Package postgres implements the repository interfaces on PostgreSQL.
// It uses pgx directly (no ORM) for transparency and performance.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"registration-service/internal/model"
	"registration-service/internal/repository"
)

// EventRepository implements repository.EventCatalog on PostgreSQL.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, date, location, organizer, status,
	capacity, registered_count, waitlist_enabled, created_at, updated_at`

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	now := time.Now().UTC()
	event := &model.Event{
		ID:              uuid.New().String(),
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Location:        req.Location,
		Organizer:       req.Organizer,
		Status:          req.Status,
		Capacity:        req.Capacity,
		RegisteredCount: 0,
		WaitlistEnabled: req.WaitlistEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, date, location, organizer, status,
		                     capacity, registered_count, waitlist_enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID, event.Title, event.Description, event.Date, event.Location, event.Organizer,
		event.Status, event.Capacity, event.RegisteredCount, event.WaitlistEnabled,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns events matching the filter, newest first.
func (r *EventRepository) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, strings.ToLower(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		conds = append(conds, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	if filter.Organizer != "" {
		args = append(args, "%"+filter.Organizer+"%")
		conds = append(conds, fmt.Sprintf("organizer ILIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if err := scanEvent(row, &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// Update applies the non-nil fields of req to the event inside a
// transaction, locking the row so the capacity change cannot race with a
// concurrent registration.
func (r *EventRepository) Update(ctx context.Context, id string, req model.UpdateEventRequest) (event *model.Event, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var e model.Event
	row := tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
	if err = scanEvent(row, &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Date != nil {
		e.Date = *req.Date
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.Organizer != nil {
		e.Organizer = *req.Organizer
	}
	if req.Status != nil {
		e.Status = *req.Status
	}
	if req.Capacity != nil {
		if *req.Capacity < e.RegisteredCount {
			return nil, repository.ErrCapacityBelowCount
		}
		e.Capacity = *req.Capacity
	}
	if req.WaitlistEnabled != nil {
		e.WaitlistEnabled = *req.WaitlistEnabled
	}
	e.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, date = $4, location = $5, organizer = $6,
		     status = $7, capacity = $8, waitlist_enabled = $9, updated_at = $10
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Date, e.Location, e.Organizer,
		e.Status, e.Capacity, e.WaitlistEnabled, e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &e, nil
}

// Delete removes an event. Deletion is refused while registrations or
// waitlist entries still reference it.
func (r *EventRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists bool
	err = tx.QueryRow(ctx, `SELECT true FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrEventNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	var hasRegs bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1)`, id,
	).Scan(&hasRegs)
	if err != nil {
		return fmt.Errorf("check registrations: %w", err)
	}
	if hasRegs {
		return repository.ErrHasRegistrations
	}

	if _, err = tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return tx.Commit(ctx)
}

// scanEvent reads one event row from either a pgx.Row or pgx.Rows.
func scanEvent(row pgx.Row, e *model.Event) error {
	return row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Organizer, &e.Status,
		&e.Capacity, &e.RegisteredCount, &e.WaitlistEnabled, &e.CreatedAt, &e.UpdatedAt,
	)
}
