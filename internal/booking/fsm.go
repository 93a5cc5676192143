// Package booking sequences booking creation and payment creation as a
// two-step workflow driven by a small FSM. Every UI surface opening a
// booking drives one session of this package instead of re-implementing
// the booking-to-payment handoff inline.
package booking

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"stayhub/internal/metrics"
	"stayhub/internal/models"
)

// State represents the current state of the booking workflow.
type State string

const (
	StateClosed      State = "closed"
	StateBookingOpen State = "booking_open"
	StatePaymentOpen State = "payment_open"
)

// Context is the data carried across the booking-to-payment transition.
// BookingID is set only after a booking has been created.
type Context struct {
	UserID      string  `json:"userId"`
	HotelID     string  `json:"hotelId"`
	RoomID      string  `json:"roomId,omitempty"`
	ApartmentID string  `json:"apartmentId,omitempty"`
	MaxCapacity int     `json:"maxCapacity"`
	MaxPrice    float64 `json:"maxPrice"`
	BookingID   string  `json:"bookingId,omitempty"`
}

// Unit derives the target unit reference from the context.
func (c Context) Unit() models.UnitRef {
	if c.RoomID != "" {
		return models.UnitRef{Kind: models.BookingTypeRoom, ID: c.RoomID}
	}
	return models.UnitRef{Kind: models.BookingTypeApartment, ID: c.ApartmentID}
}

// Session is one booking workflow instance.
type Session struct {
	ID        string
	State     State
	Ctx       Context
	StartedAt time.Time
	UpdatedAt time.Time

	// Reservations for the session's unit, fetched when the session
	// opened. Settled is false while no fetch has succeeded yet, so
	// "no data yet" is distinguishable from "confirmed empty".
	Reservations []models.Reservation
	Settled      bool

	// inFlight guards against concurrent re-submission; generation is
	// bumped on cancel so settled network results arriving afterwards
	// are discarded without mutating state.
	inFlight   bool
	generation uint64

	mu sync.Mutex
}

// NewSession creates a session in the initial closed state.
func NewSession(ctx Context) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		State:     StateClosed,
		Ctx:       ctx,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// GetState returns the current state.
func (s *Session) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

// IsExpired checks if the session has been idle past the timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.UpdatedAt) > timeout
}

// setStateLocked updates the state. Caller holds s.mu.
func (s *Session) setStateLocked(state State) {
	s.State = state
	s.UpdatedAt = time.Now()
}

// SessionStore manages live booking sessions.
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewSessionStore creates a session store with the given idle timeout.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// Create registers a new session for the given context.
func (ss *SessionStore) Create(ctx Context) *Session {
	session := NewSession(ctx)
	ss.mu.Lock()
	ss.sessions[session.ID] = session
	ss.mu.Unlock()
	metrics.SetActiveSessions(ss.Len())
	return session
}

// Get returns a session by id, or nil.
func (ss *SessionStore) Get(id string) *Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.sessions[id]
}

// Delete removes a session.
func (ss *SessionStore) Delete(id string) {
	ss.mu.Lock()
	delete(ss.sessions, id)
	ss.mu.Unlock()
	metrics.SetActiveSessions(ss.Len())
}

// Len returns the number of live sessions.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Cleanup removes expired sessions and returns how many were dropped.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	removed := 0
	for id, session := range ss.sessions {
		if session.IsExpired(ss.timeout) {
			delete(ss.sessions, id)
			removed++
		}
	}
	ss.mu.Unlock()
	metrics.SetActiveSessions(ss.Len())
	return removed
}

// FSM manages state transitions for the booking workflow. The payment
// state is reachable only through an open booking, which is what makes
// submitting a payment before a successful booking impossible.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the workflow FSM with its allowed transitions.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateClosed:      {StateBookingOpen},
			StateBookingOpen: {StatePaymentOpen, StateClosed},
			StatePaymentOpen: {StateClosed},
		},
	}
}

// CanTransition checks if a transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// transitionLocked updates the session state if allowed. Caller holds
// session.mu.
func (f *FSM) transitionLocked(session *Session, to State) bool {
	if f.CanTransition(session.State, to) {
		session.setStateLocked(to)
		return true
	}
	return false
}
