package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"stayhub/internal/availability"
	"stayhub/internal/events"
	"stayhub/internal/metrics"
	"stayhub/internal/models"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("booking session not found")
	// ErrInvalidState rejects an operation the current state does not allow.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrDateConflict rejects a candidate range overlapping an existing
	// reservation. No API call is made in this case.
	ErrDateConflict = errors.New("selected dates conflict with an existing reservation")
	// ErrSubmitInFlight rejects a re-submission while one is pending.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	// ErrAvailabilityPending rejects submission while the reservation
	// fetch for the unit has not settled yet.
	ErrAvailabilityPending = errors.New("availability is still loading, try again")
)

// BookingAPI is the slice of the remote API the orchestrator drives.
type BookingAPI interface {
	CreateBooking(ctx context.Context, draft *models.BookingDraft) (string, error)
	CreatePayment(ctx context.Context, draft *models.PaymentDraft) (string, error)
}

// Completion is the terminal result of a full booking-payment flow.
type Completion struct {
	SessionID string `json:"sessionId"`
	BookingID string `json:"bookingId"`
	PaymentID string `json:"paymentId"`
}

// Config holds orchestrator tunables.
type Config struct {
	SessionTimeout time.Duration
	// RequireSettledAvailability blocks booking submission until the
	// reservation fetch for the session's unit has succeeded at least
	// once, so a user cannot book against conflicts that simply have
	// not loaded yet.
	RequireSettledAvailability bool
}

// Orchestrator drives booking sessions through the FSM: open, validate
// and submit the booking, hand the created booking id to the payment
// step, and reset on completion or cancel.
type Orchestrator struct {
	store    *SessionStore
	fsm      *FSM
	resolver *availability.Resolver
	api      BookingAPI
	validate *validator.Validate
	cfg      Config
	logger   zerolog.Logger
	bus      *events.Bus
	now      func() time.Time
}

// NewOrchestrator wires the orchestrator.
func NewOrchestrator(resolver *availability.Resolver, api BookingAPI, cfg Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    NewSessionStore(cfg.SessionTimeout),
		fsm:      NewFSM(),
		resolver: resolver,
		api:      api,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger.With().Str("component", "booking").Logger(),
		now:      time.Now,
	}
}

// UseEventBus publishes flow milestones to the given bus.
func (o *Orchestrator) UseEventBus(bus *events.Bus) {
	o.bus = bus
}

func (o *Orchestrator) publish(eventType string, payload any) {
	if o.bus == nil {
		return
	}
	if err := o.bus.PublishJSON(eventType, payload); err != nil {
		o.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

// Store exposes the session store for cleanup loops.
func (o *Orchestrator) Store() *SessionStore {
	return o.store
}

// OpenBooking starts a session: closed -> booking_open, seeding the
// context and loading the unit's reservations. The caller must supply
// an authenticated user id; an unauthenticated caller is rejected
// upstream before this is ever invoked.
func (o *Orchestrator) OpenBooking(ctx context.Context, bctx Context) (*Session, error) {
	if bctx.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrInvalidDraft)
	}
	if bctx.RoomID != "" && bctx.ApartmentID != "" {
		return nil, fmt.Errorf("%w: both roomId and apartmentId set", models.ErrInvalidDraft)
	}
	unit := bctx.Unit()
	if err := unit.Validate(); err != nil {
		return nil, err
	}

	session := o.store.Create(bctx)
	session.mu.Lock()
	o.fsm.transitionLocked(session, StateBookingOpen)
	session.mu.Unlock()

	o.loadReservations(ctx, session, unit)

	o.logger.Info().
		Str("session_id", session.ID).
		Str("unit_kind", string(unit.Kind)).
		Str("unit_id", unit.ID).
		Msg("booking session opened")
	return session, nil
}

// RefreshAvailability retries the reservation fetch for a session whose
// initial load failed.
func (o *Orchestrator) RefreshAvailability(ctx context.Context, sessionID string) error {
	session := o.store.Get(sessionID)
	if session == nil {
		return ErrSessionNotFound
	}
	o.loadReservations(ctx, session, session.Ctx.Unit())
	session.mu.Lock()
	settled := session.Settled
	session.mu.Unlock()
	if !settled {
		return ErrAvailabilityPending
	}
	return nil
}

func (o *Orchestrator) loadReservations(ctx context.Context, session *Session, unit models.UnitRef) {
	gen := o.generation(session)
	reservations, err := o.resolver.LoadReservations(ctx, unit)

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.generation != gen {
		// Session was cancelled while the fetch was in flight.
		return
	}
	session.Reservations = reservations
	session.Settled = err == nil
}

func (o *Orchestrator) generation(session *Session) uint64 {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.generation
}

// BlockedDates returns the session's disabled calendar days.
func (o *Orchestrator) BlockedDates(sessionID string) (availability.DateSet, error) {
	session := o.store.Get(sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return availability.ComputeBlockedDates(session.Reservations), nil
}

// CheckDates is the live, advisory overlap check run as the user edits
// either date field. It surfaces a conflict without changing state.
func (o *Orchestrator) CheckDates(sessionID string, checkIn, checkOut models.Date) error {
	session := o.store.Get(sessionID)
	if session == nil {
		return ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.State != StateBookingOpen {
		return ErrInvalidState
	}
	if availability.Overlaps(session.Reservations, checkIn, checkOut) {
		return ErrDateConflict
	}
	return nil
}

// SubmitBooking validates the draft, runs the authoritative overlap
// check, and calls booking-create. On success the session moves
// booking_open -> payment_open in one transition, carrying the created
// booking id; no intermediate closed state is observable.
func (o *Orchestrator) SubmitBooking(ctx context.Context, sessionID string, draft *models.BookingDraft) (string, error) {
	session := o.store.Get(sessionID)
	if session == nil {
		return "", ErrSessionNotFound
	}

	session.mu.Lock()
	if session.State != StateBookingOpen {
		session.mu.Unlock()
		return "", ErrInvalidState
	}
	if session.inFlight {
		session.mu.Unlock()
		return "", ErrSubmitInFlight
	}

	// The session context, not the user, decides identity and target.
	draft.UserID = session.Ctx.UserID
	draft.HotelID = session.Ctx.HotelID
	draft.RoomID = session.Ctx.RoomID
	draft.ApartmentID = session.Ctx.ApartmentID

	if err := o.validate.Struct(draft); err != nil {
		session.mu.Unlock()
		metrics.IncBookingSubmitted("invalid")
		return "", fmt.Errorf("%w: %v", models.ErrInvalidDraft, err)
	}
	if err := draft.Validate(o.now(), session.Ctx.MaxCapacity); err != nil {
		session.mu.Unlock()
		metrics.IncBookingSubmitted("invalid")
		return "", err
	}
	if o.cfg.RequireSettledAvailability && !session.Settled {
		session.mu.Unlock()
		metrics.IncBookingSubmitted("availability_pending")
		return "", ErrAvailabilityPending
	}
	if availability.Overlaps(session.Reservations, draft.CheckInDate, draft.CheckOutDate) {
		session.mu.Unlock()
		metrics.IncDateConflict()
		metrics.IncBookingSubmitted("conflict")
		return "", ErrDateConflict
	}

	session.inFlight = true
	gen := session.generation
	session.mu.Unlock()

	bookingID, err := o.api.CreateBooking(ctx, draft)

	session.mu.Lock()
	defer session.mu.Unlock()
	session.inFlight = false

	if session.generation != gen || session.State != StateBookingOpen {
		// Superseded by a cancel; the server-side booking, if created,
		// stays pending-payment and is settled via the shortage flow.
		o.logger.Warn().Str("session_id", session.ID).Msg("booking result discarded after cancel")
		return "", ErrInvalidState
	}
	if err != nil {
		metrics.IncBookingSubmitted("rejected")
		o.logger.Error().Err(err).Str("session_id", session.ID).Msg("booking rejected")
		return "", err
	}

	session.Ctx.BookingID = bookingID
	o.fsm.transitionLocked(session, StatePaymentOpen)
	metrics.IncBookingSubmitted("success")
	o.publish(events.TypeBookingCreated, map[string]string{"sessionId": session.ID, "bookingId": bookingID})
	o.logger.Info().
		Str("session_id", session.ID).
		Str("booking_id", bookingID).
		Msg("booking created, payment step opened")
	return bookingID, nil
}

// SubmitPayment validates the amount against the session's price
// ceiling and calls payment-create for the booking created in the
// previous step. On success the session closes and completion is
// signalled to the caller.
func (o *Orchestrator) SubmitPayment(ctx context.Context, sessionID string, draft *models.PaymentDraft) (*Completion, error) {
	session := o.store.Get(sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	session.mu.Lock()
	if session.State != StatePaymentOpen {
		session.mu.Unlock()
		return nil, ErrInvalidState
	}
	if session.inFlight {
		session.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	// The booking id comes from context; the user cannot change it.
	draft.BookingID = session.Ctx.BookingID

	if err := o.validate.Struct(draft); err != nil {
		session.mu.Unlock()
		metrics.IncPaymentSubmitted("invalid")
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidDraft, err)
	}
	if err := draft.Validate(session.Ctx.MaxPrice); err != nil {
		session.mu.Unlock()
		metrics.IncPaymentSubmitted("invalid")
		return nil, err
	}

	session.inFlight = true
	gen := session.generation
	bookingID := session.Ctx.BookingID
	session.mu.Unlock()

	paymentID, err := o.api.CreatePayment(ctx, draft)

	session.mu.Lock()
	session.inFlight = false

	if session.generation != gen || session.State != StatePaymentOpen {
		session.mu.Unlock()
		o.logger.Warn().Str("session_id", session.ID).Msg("payment result discarded after cancel")
		return nil, ErrInvalidState
	}
	if err != nil {
		session.mu.Unlock()
		metrics.IncPaymentSubmitted("rejected")
		o.logger.Error().Err(err).Str("session_id", session.ID).Msg("payment rejected")
		return nil, err
	}

	o.fsm.transitionLocked(session, StateClosed)
	session.Ctx = Context{}
	session.mu.Unlock()

	o.store.Delete(session.ID)
	metrics.IncPaymentSubmitted("success")

	completion := Completion{SessionID: sessionID, BookingID: bookingID, PaymentID: paymentID}
	o.publish(events.TypeFlowCompleted, completion)
	o.logger.Info().
		Str("session_id", sessionID).
		Str("booking_id", bookingID).
		Str("payment_id", paymentID).
		Msg("booking flow completed")
	return &completion, nil
}

// Cancel closes the session from any state without calling any API.
// Idempotent: cancelling an unknown or already-closed session is a
// no-op. In-flight network results are discarded once cancelled.
func (o *Orchestrator) Cancel(sessionID string) {
	session := o.store.Get(sessionID)
	if session == nil {
		return
	}
	session.mu.Lock()
	session.generation++
	session.setStateLocked(StateClosed)
	session.Ctx = Context{}
	session.mu.Unlock()

	o.store.Delete(sessionID)
	o.publish(events.TypeSessionCancelled, map[string]string{"sessionId": sessionID})
	o.logger.Info().Str("session_id", sessionID).Msg("booking session cancelled")
}

// Snapshot is the read model of a session for the UI shell.
type Snapshot struct {
	ID           string   `json:"id"`
	State        State    `json:"state"`
	BookingID    string   `json:"bookingId,omitempty"`
	MaxCapacity  int      `json:"maxCapacity"`
	MaxPrice     float64  `json:"maxPrice"`
	BlockedDates []string `json:"blockedDates"`
	Settled      bool     `json:"availabilitySettled"`
}

// GetSnapshot returns the session read model.
func (o *Orchestrator) GetSnapshot(sessionID string) (*Snapshot, error) {
	session := o.store.Get(sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return &Snapshot{
		ID:           session.ID,
		State:        session.State,
		BookingID:    session.Ctx.BookingID,
		MaxCapacity:  session.Ctx.MaxCapacity,
		MaxPrice:     session.Ctx.MaxPrice,
		BlockedDates: availability.ComputeBlockedDates(session.Reservations).Sorted(),
		Settled:      session.Settled,
	}, nil
}
