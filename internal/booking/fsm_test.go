package booking

import (
	"testing"
	"time"
)

func TestFSMTransitions(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		name        string
		from        State
		to          State
		shouldAllow bool
	}{
		{"closed to booking open", StateClosed, StateBookingOpen, true},
		{"booking open to payment open", StateBookingOpen, StatePaymentOpen, true},
		{"payment open to closed", StatePaymentOpen, StateClosed, true},
		// Cancel paths
		{"booking open to closed", StateBookingOpen, StateClosed, true},
		// Invalid transitions
		{"closed to payment open", StateClosed, StatePaymentOpen, false},
		{"payment open to booking open", StatePaymentOpen, StateBookingOpen, false},
		{"closed to closed", StateClosed, StateClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed := fsm.CanTransition(tt.from, tt.to)
			if allowed != tt.shouldAllow {
				t.Errorf("transition %s -> %s: expected allowed=%v, got %v",
					tt.from, tt.to, tt.shouldAllow, allowed)
			}
		})
	}
}

func TestPaymentOpenOnlyReachableViaBookingOpen(t *testing.T) {
	fsm := NewFSM()

	// The only edge into payment_open originates from booking_open.
	for from := range fsm.transitions {
		if from == StateBookingOpen {
			continue
		}
		if fsm.CanTransition(from, StatePaymentOpen) {
			t.Errorf("payment_open must not be reachable from %s", from)
		}
	}
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Minute)

	if store.Get("missing") != nil {
		t.Error("expected nil for non-existent session")
	}

	created := store.Create(Context{UserID: "u1", HotelID: "h1", RoomID: "r1"})
	if created == nil {
		t.Fatal("expected created session")
	}
	if created.State != StateClosed {
		t.Errorf("expected initial closed state, got %s", created.State)
	}
	if created.ID == "" {
		t.Error("expected a session id")
	}

	if store.Get(created.ID) != created {
		t.Error("expected same session object")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 session, got %d", store.Len())
	}

	store.Delete(created.ID)
	if store.Get(created.ID) != nil {
		t.Error("session should be deleted")
	}
}

func TestSessionStoreCleanup(t *testing.T) {
	store := NewSessionStore(time.Minute)

	stale := store.Create(Context{UserID: "u1", RoomID: "r1"})
	stale.mu.Lock()
	stale.UpdatedAt = time.Now().Add(-2 * time.Minute)
	stale.mu.Unlock()

	fresh := store.Create(Context{UserID: "u2", RoomID: "r2"})

	if removed := store.Cleanup(); removed != 1 {
		t.Errorf("expected 1 removed session, got %d", removed)
	}
	if store.Get(stale.ID) != nil {
		t.Error("stale session should be removed")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("fresh session should survive cleanup")
	}
}

func TestContextUnit(t *testing.T) {
	room := Context{RoomID: "r1"}.Unit()
	if room.Kind != "ROOM" || room.ID != "r1" {
		t.Errorf("unexpected room unit: %+v", room)
	}

	apartment := Context{ApartmentID: "a1"}.Unit()
	if apartment.Kind != "APARTMENT" || apartment.ID != "a1" {
		t.Errorf("unexpected apartment unit: %+v", apartment)
	}
}
