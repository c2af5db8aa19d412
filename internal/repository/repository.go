// Package repository defines the storage interfaces consumed by the service
// layer and the domain errors they report. Implementations live in the
// postgres and memory subpackages.
package repository

import (
	"context"
	"errors"

	"registration-service/internal/model"
)

// ErrUserNotFound is returned when a referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrEventNotFound is returned when a referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrRegistrationNotFound is returned when no registration exists for the
// given (user, event) pair.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrEventFull is returned when an event has no remaining capacity and no
// waitlist to fall back on.
var ErrEventFull = errors.New("event is fully booked")

// ErrAlreadyRegistered is returned when the same user registers twice.
var ErrAlreadyRegistered = errors.New("user already registered for this event")

// ErrAlreadyWaitlisted is returned when a user on the waitlist registers again.
var ErrAlreadyWaitlisted = errors.New("user already on the waitlist for this event")

// ErrHasRegistrations is returned when deleting an event that still has
// registrations or waitlist entries.
var ErrHasRegistrations = errors.New("event still has registrations")

// ErrCapacityBelowCount is returned when an update would shrink an event's
// capacity below its current registered count.
var ErrCapacityBelowCount = errors.New("capacity cannot be lower than registered count")

// ErrUnavailable is returned when the store is unreachable or timed out.
// Callers may retry; it is never conflated with a NotFound condition.
var ErrUnavailable = errors.New("storage unavailable")

// IsDomain reports whether err is one of the terminal domain errors above,
// as opposed to an infrastructure failure.
func IsDomain(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrRegistrationNotFound) ||
		errors.Is(err, ErrEventFull) ||
		errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrAlreadyWaitlisted) ||
		errors.Is(err, ErrHasRegistrations) ||
		errors.Is(err, ErrCapacityBelowCount)
}

// RegistrationStore is the engine's view of durable registration state.
// Register and Unregister are single atomic transitions: either every part
// of the transition commits (record, counter, waitlist) or none does, and
// concurrent calls against the same event are serialized by the store.
type RegistrationStore interface {
	// Register creates a registration or waitlist entry for (userID, eventID).
	// Fails with ErrEventNotFound, ErrAlreadyRegistered, ErrAlreadyWaitlisted
	// or ErrEventFull.
	Register(ctx context.Context, userID, eventID string) (*model.RegisterResult, error)

	// Unregister removes the registration for (userID, eventID). Removing a
	// registered user frees a seat and promotes the waitlist head, if any,
	// within the same atomic transition. Fails with ErrRegistrationNotFound.
	Unregister(ctx context.Context, userID, eventID string) (*model.UnregisterResult, error)

	// ListByUser returns the user's registrations, newest first. An unknown
	// user yields an empty slice, not an error.
	ListByUser(ctx context.Context, userID string) ([]model.Registration, error)

	// ListByEvent returns an event's registrations: registered entries first
	// (oldest first), then the waitlist in position order.
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// EventCatalog manages the event records the engine registers against.
type EventCatalog interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// UserDirectory manages attendee identities.
type UserDirectory interface {
	Create(ctx context.Context, name string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}
