package service

import (
	"context"
	"strings"
	"time"

	"registration-service/internal/cache"
	"registration-service/internal/model"
	"registration-service/internal/repository"
)

// EventService orchestrates event catalog operations.
type EventService struct {
	catalog repository.EventCatalog
	cache   *cache.EventSummaries
	timeout time.Duration
}

// NewEventService constructs an EventService. summaries may be nil to
// disable cache invalidation on updates.
func NewEventService(catalog repository.EventCatalog, summaries *cache.EventSummaries, timeout time.Duration) *EventService {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &EventService{catalog: catalog, cache: summaries, timeout: timeout}
}

func (s *EventService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// CreateEvent validates the request and delegates to the catalog.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	req.Organizer = strings.TrimSpace(req.Organizer)

	if err := validateLength("title", req.Title, 1, 200); err != nil {
		return nil, err
	}
	if err := validateLength("description", req.Description, 1, 2000); err != nil {
		return nil, err
	}
	if err := validateDate(req.Date); err != nil {
		return nil, err
	}
	if err := validateLength("location", req.Location, 1, 500); err != nil {
		return nil, err
	}
	if err := validateLength("organizer", req.Organizer, 1, 200); err != nil {
		return nil, err
	}
	if req.Capacity < 1 || req.Capacity > 100_000 {
		return nil, invalidf("capacity must be between 1 and 100000")
	}
	if !req.Status.Valid() {
		return nil, invalidf("status must be one of draft, published, active, cancelled, completed")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	event, err := s.catalog.Create(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	return event, nil
}

// ListEvents returns events matching the filter.
func (s *EventService) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	events, err := s.catalog.List(ctx, filter)
	if err != nil {
		return nil, classify(err)
	}
	return events, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, invalidf("event id is required")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	event, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return event, nil
}

// UpdateEvent validates the provided fields and applies a partial update.
func (s *EventService) UpdateEvent(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	if id == "" {
		return nil, invalidf("event id is required")
	}
	if req == (model.UpdateEventRequest{}) {
		return nil, invalidf("no fields to update")
	}
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
		if err := validateLength("title", trimmed, 1, 200); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if err := validateLength("description", *req.Description, 1, 2000); err != nil {
			return nil, err
		}
	}
	if req.Date != nil {
		if err := validateDate(*req.Date); err != nil {
			return nil, err
		}
	}
	if req.Location != nil {
		if err := validateLength("location", *req.Location, 1, 500); err != nil {
			return nil, err
		}
	}
	if req.Organizer != nil {
		if err := validateLength("organizer", *req.Organizer, 1, 200); err != nil {
			return nil, err
		}
	}
	if req.Capacity != nil && (*req.Capacity < 1 || *req.Capacity > 100_000) {
		return nil, invalidf("capacity must be between 1 and 100000")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, invalidf("status must be one of draft, published, active, cancelled, completed")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	event, err := s.catalog.Update(ctx, id, req)
	if err != nil {
		return nil, classify(err)
	}
	_ = s.cache.Invalidate(ctx, id)
	return event, nil
}

// DeleteEvent removes an event; refused while registrations exist.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return invalidf("event id is required")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.catalog.Delete(ctx, id); err != nil {
		return classify(err)
	}
	_ = s.cache.Invalidate(ctx, id)
	return nil
}

func validateLength(field, value string, min, max int) error {
	if len(value) < min || len(value) > max {
		return invalidf("%s must be between %d and %d characters", field, min, max)
	}
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return invalidf("date must be in ISO format (YYYY-MM-DD)")
	}
	return nil
}
