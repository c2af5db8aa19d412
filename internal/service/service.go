// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. RegistrationService is
// the registration engine; EventService and UserService cover the event
// catalog and user directory.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"registration-service/internal/cache"
	"registration-service/internal/metrics"
	"registration-service/internal/model"
	"registration-service/internal/repository"
)

// DefaultStoreTimeout bounds every store interaction so a slow backend
// surfaces as ServiceUnavailable instead of a hang.
const DefaultStoreTimeout = 5 * time.Second

// ValidationError marks malformed input, caught before touching storage.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// classify passes domain errors through unchanged and folds everything
// else (connection failures, timeouts) into ErrUnavailable, so a store
// outage is never mistaken for a NotFound.
func classify(err error) error {
	if err == nil || repository.IsDomain(err) {
		return err
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
}

// RegistrationService is the registration engine. It enforces the
// preconditions (user and event existence), delegates the atomic state
// transitions to the store, and joins event summaries into listings.
type RegistrationService struct {
	store   repository.RegistrationStore
	events  repository.EventCatalog
	users   repository.UserDirectory
	cache   *cache.EventSummaries
	timeout time.Duration
}

// NewRegistrationService constructs a RegistrationService. summaries may
// be nil to disable caching.
func NewRegistrationService(
	store repository.RegistrationStore,
	events repository.EventCatalog,
	users repository.UserDirectory,
	summaries *cache.EventSummaries,
	timeout time.Duration,
) *RegistrationService {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &RegistrationService{
		store:   store,
		events:  events,
		users:   users,
		cache:   summaries,
		timeout: timeout,
	}
}

func (s *RegistrationService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Register registers userID for eventID, or places the user on the
// waitlist when the event is full and allows one. The store performs the
// duplicate check, capacity check and insert as one atomic transition; a
// rejected attempt mutates nothing.
func (s *RegistrationService) Register(ctx context.Context, userID, eventID string) (*model.RegisterResult, error) {
	if userID == "" {
		return nil, invalidf("user id is required")
	}
	if eventID == "" {
		return nil, invalidf("event id is required")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	result, err := s.store.Register(ctx, userID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRegistered):
			metrics.RegistrationConflictsTotal.WithLabelValues("already_registered").Inc()
		case errors.Is(err, repository.ErrAlreadyWaitlisted):
			metrics.RegistrationConflictsTotal.WithLabelValues("already_waitlisted").Inc()
		case errors.Is(err, repository.ErrEventFull):
			metrics.RegistrationConflictsTotal.WithLabelValues("event_full").Inc()
		}
		return nil, classify(err)
	}
	metrics.RegistrationsTotal.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

// Unregister removes the registration for (userID, eventID). Removing a
// registered user frees the seat and promotes the waitlist head in the
// same atomic transition; removing a waitlisted user only deletes the
// entry.
func (s *RegistrationService) Unregister(ctx context.Context, userID, eventID string) (*model.UnregisterResult, error) {
	if userID == "" {
		return nil, invalidf("user id is required")
	}
	if eventID == "" {
		return nil, invalidf("event id is required")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	result, err := s.store.Unregister(ctx, userID, eventID)
	if err != nil {
		return nil, classify(err)
	}
	metrics.UnregistrationsTotal.WithLabelValues(string(result.RemovedStatus)).Inc()
	if result.PromotedUserID != "" {
		metrics.PromotionsTotal.Inc()
	}
	return result, nil
}

// ListUserRegistrations returns the user's registrations with the event
// summary joined in. A user with no registrations gets an empty slice,
// not an error. Summaries come from the cache when warm; staleness is
// acceptable for listings.
func (s *RegistrationService) ListUserRegistrations(ctx context.Context, userID string) ([]model.UserRegistration, error) {
	if userID == "" {
		return nil, invalidf("user id is required")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	regs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}

	out := make([]model.UserRegistration, 0, len(regs))
	for _, reg := range regs {
		summary, err := s.eventSummary(ctx, reg.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrEventNotFound) {
				continue
			}
			return nil, classify(err)
		}
		out = append(out, model.UserRegistration{
			EventID:          reg.EventID,
			Title:            summary.Title,
			Date:             summary.Date,
			Location:         summary.Location,
			Status:           reg.Status,
			WaitlistPosition: reg.WaitlistPosition,
		})
	}
	return out, nil
}

// eventSummary resolves an event summary through the cache.
func (s *RegistrationService) eventSummary(ctx context.Context, eventID string) (model.Summary, error) {
	if summary, ok := s.cache.Get(ctx, eventID); ok {
		return summary, nil
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return model.Summary{}, err
	}
	summary := event.Summary()
	s.cache.Set(ctx, summary)
	return summary, nil
}

// ListEventRegistrations returns an event's registered users and its
// waitlist in promotion order.
func (s *RegistrationService) ListEventRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	if eventID == "" {
		return nil, invalidf("event id is required")
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, classify(err)
	}
	regs, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, classify(err)
	}
	return regs, nil
}
