package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registration-service/internal/model"
	"registration-service/internal/repository"
)

func newTestEvent(t *testing.T, s *Store, capacity int, waitlist bool) *model.Event {
	t.Helper()
	event, err := s.Events().Create(context.Background(), model.CreateEventRequest{
		Title:           "GopherCon",
		Description:     "annual gathering",
		Date:            "2026-09-15",
		Location:        "Berlin",
		Organizer:       "acme",
		Status:          model.StatusPublished,
		Capacity:        capacity,
		WaitlistEnabled: waitlist,
	})
	require.NoError(t, err)
	return event
}

func newTestUser(t *testing.T, s *Store, name string) *model.User {
	t.Helper()
	user, err := s.Users().Create(context.Background(), name)
	require.NoError(t, err)
	return user
}

func TestRegisterUnderCapacity(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 2, false)
	user := newTestUser(t, s, "alice")

	result, err := s.Register(ctx, user.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeRegistered, result.Outcome)
	assert.Zero(t, result.Position)

	got, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegisteredCount)
}

func TestRegisterUnknownEvent(t *testing.T) {
	s := New()
	user := newTestUser(t, s, "alice")

	_, err := s.Register(context.Background(), user.ID, "missing")
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestRegisterTwiceConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 2, true)
	user := newTestUser(t, s, "alice")

	_, err := s.Register(ctx, user.ID, event.ID)
	require.NoError(t, err)

	_, err = s.Register(ctx, user.ID, event.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyRegistered)

	// Count unchanged by the rejected attempt.
	got, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegisteredCount)
}

func TestWaitlistedRegisterTwiceConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 1, true)
	a := newTestUser(t, s, "alice")
	b := newTestUser(t, s, "bob")

	_, err := s.Register(ctx, a.ID, event.ID)
	require.NoError(t, err)
	_, err = s.Register(ctx, b.ID, event.ID)
	require.NoError(t, err)

	_, err = s.Register(ctx, b.ID, event.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyWaitlisted)
}

func TestFullEventWithoutWaitlist(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 1, false)
	a := newTestUser(t, s, "alice")
	b := newTestUser(t, s, "bob")

	result, err := s.Register(ctx, a.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeRegistered, result.Outcome)

	_, err = s.Register(ctx, b.ID, event.ID)
	assert.ErrorIs(t, err, repository.ErrEventFull)
}

func TestWaitlistPositionsStartAtOneAndIncrease(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 1, true)

	holder := newTestUser(t, s, "holder")
	_, err := s.Register(ctx, holder.ID, event.ID)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		u := newTestUser(t, s, "waiter")
		result, err := s.Register(ctx, u.ID, event.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeWaitlisted, result.Outcome)
		assert.Equal(t, i, result.Position)
	}
}

func TestWaitlistPositionsNeverReused(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 1, true)

	holder := newTestUser(t, s, "holder")
	_, err := s.Register(ctx, holder.ID, event.ID)
	require.NoError(t, err)

	c := newTestUser(t, s, "carol")
	result, err := s.Register(ctx, c.ID, event.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.Position)

	// Carol leaves the waitlist; Dave must not get her old position.
	_, err = s.Unregister(ctx, c.ID, event.ID)
	require.NoError(t, err)

	d := newTestUser(t, s, "dave")
	result, err = s.Register(ctx, d.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Position)
}

func TestUnregisterUnknown(t *testing.T) {
	s := New()
	event := newTestEvent(t, s, 1, false)
	user := newTestUser(t, s, "alice")

	_, err := s.Unregister(context.Background(), user.ID, event.ID)
	assert.ErrorIs(t, err, repository.ErrRegistrationNotFound)
}

func TestUnregisterWaitlistedIsCountNeutral(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 1, true)
	a := newTestUser(t, s, "alice")
	b := newTestUser(t, s, "bob")

	_, err := s.Register(ctx, a.ID, event.ID)
	require.NoError(t, err)
	_, err = s.Register(ctx, b.ID, event.ID)
	require.NoError(t, err)

	result, err := s.Unregister(ctx, b.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Waitlisted, result.RemovedStatus)
	assert.Empty(t, result.PromotedUserID)

	got, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegisteredCount)
}

// Capacity 2, waitlist enabled: A and B register, C waits at position 1,
// A leaves, C takes the freed seat.
func TestUnregisterPromotesWaitlistHead(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 2, true)
	a := newTestUser(t, s, "alice")
	b := newTestUser(t, s, "bob")
	c := newTestUser(t, s, "carol")

	result, err := s.Register(ctx, a.ID, event.ID)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeRegistered, result.Outcome)

	result, err = s.Register(ctx, b.ID, event.ID)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeRegistered, result.Outcome)

	result, err = s.Register(ctx, c.ID, event.ID)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeWaitlisted, result.Outcome)
	require.Equal(t, 1, result.Position)

	unreg, err := s.Unregister(ctx, a.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Registered, unreg.RemovedStatus)
	assert.Equal(t, c.ID, unreg.PromotedUserID)

	// Count back at capacity, waitlist empty, C registered.
	got, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RegisteredCount)

	regs, err := s.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	for _, reg := range regs {
		assert.Equal(t, model.Registered, reg.Status)
		assert.Nil(t, reg.WaitlistPosition)
	}
}

func TestPromotionIsFIFO(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 1, true)
	holder := newTestUser(t, s, "holder")
	a := newTestUser(t, s, "first-in-line")
	b := newTestUser(t, s, "second-in-line")

	_, err := s.Register(ctx, holder.ID, event.ID)
	require.NoError(t, err)
	_, err = s.Register(ctx, a.ID, event.ID)
	require.NoError(t, err)
	_, err = s.Register(ctx, b.ID, event.ID)
	require.NoError(t, err)

	unreg, err := s.Unregister(ctx, holder.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, unreg.PromotedUserID)

	unreg, err = s.Unregister(ctx, a.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, unreg.PromotedUserID)
}

func TestListByUserEmpty(t *testing.T) {
	s := New()
	regs, err := s.ListByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestListByEventOrdersWaitlistByPosition(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 1, true)

	holder := newTestUser(t, s, "holder")
	_, err := s.Register(ctx, holder.ID, event.ID)
	require.NoError(t, err)

	var waiters []*model.User
	for i := 0; i < 3; i++ {
		u := newTestUser(t, s, "waiter")
		waiters = append(waiters, u)
		_, err := s.Register(ctx, u.ID, event.ID)
		require.NoError(t, err)
	}

	regs, err := s.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, regs, 4)
	assert.Equal(t, holder.ID, regs[0].UserID)
	for i, u := range waiters {
		assert.Equal(t, u.ID, regs[i+1].UserID)
		require.NotNil(t, regs[i+1].WaitlistPosition)
		assert.Equal(t, i+1, *regs[i+1].WaitlistPosition)
	}
}

func TestEventDeleteRefusedWithRegistrations(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 1, false)
	user := newTestUser(t, s, "alice")

	_, err := s.Register(ctx, user.ID, event.ID)
	require.NoError(t, err)

	err = s.Events().Delete(ctx, event.ID)
	assert.ErrorIs(t, err, repository.ErrHasRegistrations)

	_, err = s.Unregister(ctx, user.ID, event.ID)
	require.NoError(t, err)
	assert.NoError(t, s.Events().Delete(ctx, event.ID))
}

func TestEventUpdateCannotShrinkBelowCount(t *testing.T) {
	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, 3, false)
	for i := 0; i < 2; i++ {
		u := newTestUser(t, s, "attendee")
		_, err := s.Register(ctx, u.ID, event.ID)
		require.NoError(t, err)
	}

	one := 1
	_, err := s.Events().Update(ctx, event.ID, model.UpdateEventRequest{Capacity: &one})
	assert.ErrorIs(t, err, repository.ErrCapacityBelowCount)

	two := 2
	updated, err := s.Events().Update(ctx, event.ID, model.UpdateEventRequest{Capacity: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Capacity)
	assert.True(t, updated.IsFull())
}

func TestEventListFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Events().Create(ctx, model.CreateEventRequest{
		Title: "a", Description: "d", Date: "2026-01-01", Location: "Berlin Arena",
		Organizer: "ACME Corp", Status: model.StatusPublished, Capacity: 10,
	})
	require.NoError(t, err)
	_, err = s.Events().Create(ctx, model.CreateEventRequest{
		Title: "b", Description: "d", Date: "2026-01-02", Location: "Lisbon Hall",
		Organizer: "Initech", Status: model.StatusDraft, Capacity: 10,
	})
	require.NoError(t, err)

	events, err := s.Events().List(ctx, model.EventFilter{Status: "PUBLISHED"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Title)

	events, err = s.Events().List(ctx, model.EventFilter{Location: "lisbon"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].Title)

	events, err = s.Events().List(ctx, model.EventFilter{Organizer: "acme"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Title)

	events, err = s.Events().List(ctx, model.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

// N concurrent registrations against capacity K must produce exactly K
// registered outcomes and N-K waitlisted outcomes with distinct positions
// 1..N-K, and the counter must never exceed K.
func TestConcurrentRegistrations(t *testing.T) {
	const (
		capacity = 5
		callers  = 40
	)

	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, capacity, true)

	users := make([]*model.User, callers)
	for i := range users {
		users[i] = newTestUser(t, s, "caller")
	}

	results := make(chan *model.RegisterResult, callers)
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			result, err := s.Register(ctx, userID, event.ID)
			assert.NoError(t, err)
			results <- result
		}(u.ID)
	}
	wg.Wait()
	close(results)

	registered := 0
	positions := make(map[int]bool)
	for result := range results {
		switch result.Outcome {
		case model.OutcomeRegistered:
			registered++
		case model.OutcomeWaitlisted:
			assert.False(t, positions[result.Position], "position %d assigned twice", result.Position)
			positions[result.Position] = true
		}
	}

	assert.Equal(t, capacity, registered)
	assert.Len(t, positions, callers-capacity)
	for p := 1; p <= callers-capacity; p++ {
		assert.True(t, positions[p], "missing position %d", p)
	}

	got, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, got.RegisteredCount)
}

// Concurrent unregisters and registers must keep the count within bounds
// and promote exactly one waiter per freed seat.
func TestConcurrentUnregisterAndRegister(t *testing.T) {
	const capacity = 10

	s := New()
	ctx := context.Background()
	event := newTestEvent(t, s, capacity, true)

	var holders, waiters []*model.User
	for i := 0; i < capacity; i++ {
		u := newTestUser(t, s, "holder")
		holders = append(holders, u)
		_, err := s.Register(ctx, u.ID, event.ID)
		require.NoError(t, err)
	}
	for i := 0; i < capacity; i++ {
		u := newTestUser(t, s, "waiter")
		waiters = append(waiters, u)
		result, err := s.Register(ctx, u.ID, event.ID)
		require.NoError(t, err)
		require.Equal(t, model.OutcomeWaitlisted, result.Outcome)
	}

	var wg sync.WaitGroup
	for _, u := range holders {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := s.Unregister(ctx, userID, event.ID)
			assert.NoError(t, err)
		}(u.ID)
	}
	wg.Wait()

	// Every freed seat went to a waiter: the event is full again and the
	// waitlist is empty.
	got, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, got.RegisteredCount)

	regs, err := s.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, regs, capacity)
	for _, reg := range regs {
		assert.Equal(t, model.Registered, reg.Status)
	}
	for _, u := range waiters {
		found := false
		for _, reg := range regs {
			if reg.UserID == u.ID {
				found = true
				break
			}
		}
		assert.True(t, found, "waiter %s was not promoted", u.ID)
	}
}
