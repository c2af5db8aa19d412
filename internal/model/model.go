// Package model defines the core domain types for the registration service.
package model

import "time"

// EventStatus enumerates the lifecycle states of an event.
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusActive    EventStatus = "active"
	StatusCancelled EventStatus = "cancelled"
	StatusCompleted EventStatus = "completed"
)

// Valid reports whether s is one of the known event statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusActive, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// RegistrationStatus is the state of a single (user, event) registration.
type RegistrationStatus string

const (
	Registered RegistrationStatus = "registered"
	Waitlisted RegistrationStatus = "waitlisted"
)

// User represents an attendee in the user directory.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Event represents a bookable event in the catalog.
type Event struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Date            string      `json:"date"` // ISO format, YYYY-MM-DD
	Location        string      `json:"location"`
	Organizer       string      `json:"organizer"`
	Status          EventStatus `json:"status"`
	Capacity        int         `json:"capacity"`
	RegisteredCount int         `json:"registered_count"`
	WaitlistEnabled bool        `json:"waitlist_enabled"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.RegisteredCount
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// Summary is the subset of event fields joined into a user's
// registration listing. It is what the event-summary cache stores.
type Summary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Location string `json:"location"`
}

// Summary projects the cacheable summary fields of an event.
func (e *Event) Summary() Summary {
	return Summary{ID: e.ID, Title: e.Title, Date: e.Date, Location: e.Location}
}

// Registration represents a user's registration or waitlist entry for an
// event. At most one Registration exists per (user, event) pair.
type Registration struct {
	UserID  string             `json:"user_id"`
	EventID string             `json:"event_id"`
	Status  RegistrationStatus `json:"status"`
	// WaitlistPosition is set iff Status is waitlisted. Positions form a
	// strictly increasing sequence per event and are never reused, so the
	// ordering stays stable even after removals leave gaps.
	WaitlistPosition *int      `json:"waitlist_position,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RegisterOutcome distinguishes the two ways a register call can succeed.
type RegisterOutcome string

const (
	OutcomeRegistered RegisterOutcome = "registered"
	OutcomeWaitlisted RegisterOutcome = "waitlisted"
)

// RegisterResult summarises a successful registration attempt.
type RegisterResult struct {
	Outcome RegisterOutcome `json:"outcome"`
	// Position is the assigned waitlist position when Outcome is waitlisted.
	Position int `json:"position,omitempty"`
}

// UnregisterResult summarises a successful unregistration. PromotedUserID
// is non-empty when removing a registered user promoted the waitlist head.
type UnregisterResult struct {
	RemovedStatus  RegistrationStatus `json:"removed_status"`
	PromotedUserID string             `json:"promoted_user_id,omitempty"`
}

// UserRegistration is one row of a user's registration listing, with the
// event summary joined in.
type UserRegistration struct {
	EventID          string             `json:"event_id"`
	Title            string             `json:"title"`
	Date             string             `json:"date"`
	Location         string             `json:"location"`
	Status           RegistrationStatus `json:"status"`
	WaitlistPosition *int               `json:"waitlist_position,omitempty"`
}

// EventFilter narrows an event listing. Zero values match everything.
type EventFilter struct {
	Status    string // exact, case-insensitive
	Location  string // substring, case-insensitive
	Organizer string // substring, case-insensitive
}

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Name string `json:"name"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Date            string      `json:"date"`
	Location        string      `json:"location"`
	Organizer       string      `json:"organizer"`
	Status          EventStatus `json:"status"`
	Capacity        int         `json:"capacity"`
	WaitlistEnabled bool        `json:"waitlist_enabled"`
}

// UpdateEventRequest is the payload for a partial event update. Only
// non-nil fields are applied.
type UpdateEventRequest struct {
	Title           *string      `json:"title,omitempty"`
	Description     *string      `json:"description,omitempty"`
	Date            *string      `json:"date,omitempty"`
	Location        *string      `json:"location,omitempty"`
	Organizer       *string      `json:"organizer,omitempty"`
	Status          *EventStatus `json:"status,omitempty"`
	Capacity        *int         `json:"capacity,omitempty"`
	WaitlistEnabled *bool        `json:"waitlist_enabled,omitempty"`
}

// RegisterRequest is the payload for registering a user for an event.
type RegisterRequest struct {
	UserID string `json:"user_id"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
