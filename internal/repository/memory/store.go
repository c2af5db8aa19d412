// Package memory implements the repository interfaces in process memory.
// A single mutex serializes every state transition, giving the same
// atomicity guarantees as the postgres implementation: a register or
// unregister either fully applies or not at all, and no reader ever
// observes a half-applied transition. It backs the test suites, which
// exercise the engine without external infrastructure.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"registration-service/internal/model"
	"registration-service/internal/repository"
)

type regKey struct {
	userID  string
	eventID string
}

type eventRecord struct {
	event model.Event
	// nextWaitlistPosition is monotonic per event and never reused.
	nextWaitlistPosition int
}

type regRecord struct {
	reg model.Registration
	seq int // insertion order, for stable listings
}

// Store holds all shared state. It implements
// repository.RegistrationStore directly; the event catalog and user
// directory views over the same state are exposed through Events and
// Users.
type Store struct {
	mu            sync.Mutex
	users         map[string]model.User
	events        map[string]*eventRecord
	registrations map[regKey]*regRecord
	seq           int
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		users:         make(map[string]model.User),
		events:        make(map[string]*eventRecord),
		registrations: make(map[regKey]*regRecord),
	}
}

// Events returns the event catalog view of the store.
func (s *Store) Events() repository.EventCatalog { return eventCatalog{s} }

// Users returns the user directory view of the store.
func (s *Store) Users() repository.UserDirectory { return userDirectory{s} }

var _ repository.RegistrationStore = (*Store)(nil)
var _ repository.EventCatalog = eventCatalog{}
var _ repository.UserDirectory = userDirectory{}

// ─── RegistrationStore ────────────────────────────────────────────────────────

// Register creates a registration or waitlist entry as one atomic transition.
func (s *Store) Register(ctx context.Context, userID, eventID string) (*model.RegisterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[eventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}

	key := regKey{userID: userID, eventID: eventID}
	if existing, ok := s.registrations[key]; ok {
		if existing.reg.Status == model.Waitlisted {
			return nil, repository.ErrAlreadyWaitlisted
		}
		return nil, repository.ErrAlreadyRegistered
	}

	now := time.Now().UTC()
	s.seq++
	switch {
	case rec.event.RegisteredCount < rec.event.Capacity:
		s.registrations[key] = &regRecord{
			reg: model.Registration{
				UserID:    userID,
				EventID:   eventID,
				Status:    model.Registered,
				CreatedAt: now,
				UpdatedAt: now,
			},
			seq: s.seq,
		}
		rec.event.RegisteredCount++
		return &model.RegisterResult{Outcome: model.OutcomeRegistered}, nil

	case rec.event.WaitlistEnabled:
		pos := rec.nextWaitlistPosition
		rec.nextWaitlistPosition++
		s.registrations[key] = &regRecord{
			reg: model.Registration{
				UserID:           userID,
				EventID:          eventID,
				Status:           model.Waitlisted,
				WaitlistPosition: &pos,
				CreatedAt:        now,
				UpdatedAt:        now,
			},
			seq: s.seq,
		}
		return &model.RegisterResult{Outcome: model.OutcomeWaitlisted, Position: pos}, nil

	default:
		return nil, repository.ErrEventFull
	}
}

// Unregister removes a registration; removing a registered user promotes
// the waitlist head within the same critical section.
func (s *Store) Unregister(ctx context.Context, userID, eventID string) (*model.UnregisterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := regKey{userID: userID, eventID: eventID}
	existing, ok := s.registrations[key]
	if !ok {
		return nil, repository.ErrRegistrationNotFound
	}
	delete(s.registrations, key)

	result := &model.UnregisterResult{RemovedStatus: existing.reg.Status}
	if existing.reg.Status != model.Registered {
		// Waitlisted users never held a seat: no count change, no promotion.
		return result, nil
	}

	rec := s.events[eventID]
	rec.event.RegisteredCount--

	if head := s.waitlistHead(eventID); head != nil {
		head.reg.Status = model.Registered
		head.reg.WaitlistPosition = nil
		head.reg.UpdatedAt = time.Now().UTC()
		rec.event.RegisteredCount++
		result.PromotedUserID = head.reg.UserID
	}
	return result, nil
}

// waitlistHead returns the waitlisted record with the lowest position for
// the event, or nil. Caller must hold the lock.
func (s *Store) waitlistHead(eventID string) *regRecord {
	var head *regRecord
	for key, rec := range s.registrations {
		if key.eventID != eventID || rec.reg.Status != model.Waitlisted {
			continue
		}
		if head == nil || *rec.reg.WaitlistPosition < *head.reg.WaitlistPosition {
			head = rec
		}
	}
	return head
}

// ListByUser returns the user's registrations, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []*regRecord
	for key, rec := range s.registrations {
		if key.userID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	return copyRegistrations(recs), nil
}

// ListByEvent returns registered users (oldest first) followed by the
// waitlist in position order.
func (s *Store) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []*regRecord
	for key, rec := range s.registrations {
		if key.eventID == eventID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if (a.reg.Status == model.Waitlisted) != (b.reg.Status == model.Waitlisted) {
			return a.reg.Status != model.Waitlisted
		}
		if a.reg.Status == model.Waitlisted {
			return *a.reg.WaitlistPosition < *b.reg.WaitlistPosition
		}
		return a.seq < b.seq
	})
	return copyRegistrations(recs), nil
}

func copyRegistrations(recs []*regRecord) []model.Registration {
	out := make([]model.Registration, 0, len(recs))
	for _, rec := range recs {
		reg := rec.reg
		if reg.WaitlistPosition != nil {
			pos := *reg.WaitlistPosition
			reg.WaitlistPosition = &pos
		}
		out = append(out, reg)
	}
	return out
}

// ─── EventCatalog ─────────────────────────────────────────────────────────────

type eventCatalog struct {
	s *Store
}

// Create inserts a new event with a generated UUID.
func (c eventCatalog) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	event := model.Event{
		ID:              uuid.New().String(),
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Location:        req.Location,
		Organizer:       req.Organizer,
		Status:          req.Status,
		Capacity:        req.Capacity,
		WaitlistEnabled: req.WaitlistEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.events[event.ID] = &eventRecord{event: event, nextWaitlistPosition: 1}
	return &event, nil
}

// List returns events matching the filter, newest first.
func (c eventCatalog) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []model.Event
	for _, rec := range s.events {
		e := rec.event
		if filter.Status != "" && !strings.EqualFold(string(e.Status), filter.Status) {
			continue
		}
		if filter.Location != "" && !containsFold(e.Location, filter.Location) {
			continue
		}
		if filter.Organizer != "" && !containsFold(e.Organizer, filter.Organizer) {
			continue
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return events, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// GetByID returns a single event or ErrEventNotFound.
func (c eventCatalog) GetByID(ctx context.Context, id string) (*model.Event, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	e := rec.event
	return &e, nil
}

// Update applies the non-nil fields of req to the event.
func (c eventCatalog) Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	e := &rec.event
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
	out := *e
	return &out, nil
}

// Delete removes an event unless registrations still reference it.
func (c eventCatalog) Delete(ctx context.Context, id string) error {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	for key := range s.registrations {
		if key.eventID == id {
			return repository.ErrHasRegistrations
		}
	}
	delete(s.events, id)
	return nil
}

// ─── UserDirectory ────────────────────────────────────────────────────────────

type userDirectory struct {
	s *Store
}

// Create inserts a new user with a generated UUID.
func (d userDirectory) Create(ctx context.Context, name string) (*model.User, error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user := model.User{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	s.users[user.ID] = user
	return &user, nil
}

// GetByID returns a single user or ErrUserNotFound.
func (d userDirectory) GetByID(ctx context.Context, id string) (*model.User, error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

// Exists reports whether a user with the given id exists.
func (d userDirectory) Exists(ctx context.Context, id string) (bool, error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.users[id]
	return ok, nil
}
