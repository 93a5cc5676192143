// Package models defines the booking domain types shared across the gateway.
package models

import (
	"errors"
	"fmt"
	"time"
)

// BookingType discriminates which kind of unit a booking targets.
type BookingType string

const (
	BookingTypeRoom      BookingType = "ROOM"
	BookingTypeApartment BookingType = "APARTMENT"
)

// ErrInvalidDraft marks local validation failures caught before any
// network call is made.
var ErrInvalidDraft = errors.New("invalid draft")

// UnitRef identifies exactly one bookable unit: a room or an apartment.
type UnitRef struct {
	Kind BookingType
	ID   string
}

// Validate checks the reference points at a single concrete unit.
func (u UnitRef) Validate() error {
	switch u.Kind {
	case BookingTypeRoom, BookingTypeApartment:
	default:
		return fmt.Errorf("%w: unknown unit kind %q", ErrInvalidDraft, string(u.Kind))
	}
	if u.ID == "" {
		return fmt.Errorf("%w: unit id is required", ErrInvalidDraft)
	}
	return nil
}

// Reservation is an existing booking's occupied date range for one unit.
// The interval is closed: both checkInDate and checkOutDate are occupied.
type Reservation struct {
	CheckInDate  Date `json:"checkInDate"`
	CheckOutDate Date `json:"checkOutDate"`
}

// OverlapsRange reports whether the reservation intersects [start, end].
// Boundary touch counts as overlap.
func (r Reservation) OverlapsRange(start, end Date) bool {
	return !start.After(r.CheckOutDate.Time) && !end.Before(r.CheckInDate.Time)
}

// ContainsDate reports whether the reservation covers a specific day.
func (r Reservation) ContainsDate(d Date) bool {
	return !d.Before(r.CheckInDate.Time) && !d.After(r.CheckOutDate.Time)
}

// Nights returns the number of occupied days in the closed interval.
func (r Reservation) Nights() int {
	return int(r.CheckOutDate.Sub(r.CheckInDate.Time).Hours()/24) + 1
}

// BookingDraft is the form state composed by the user before submission.
type BookingDraft struct {
	CheckInDate    Date        `json:"checkInDate"`
	CheckOutDate   Date        `json:"checkOutDate"`
	NumberOfGuests int         `json:"numberOfGuests" validate:"required,min=1,max=50"`
	BookingType    BookingType `json:"bookingType"`
	UserID         string      `json:"userId" validate:"required"`
	HotelID        string      `json:"hotelId" validate:"required"`
	ApartmentID    string      `json:"apartmentId,omitempty"`
	RoomID         string      `json:"roomId,omitempty"`
}

// Unit derives the unit reference from the draft. Exactly one of
// ApartmentID/RoomID must be set; BookingType follows from which one.
func (d *BookingDraft) Unit() (UnitRef, error) {
	switch {
	case d.RoomID != "" && d.ApartmentID != "":
		return UnitRef{}, fmt.Errorf("%w: both roomId and apartmentId set", ErrInvalidDraft)
	case d.RoomID != "":
		return UnitRef{Kind: BookingTypeRoom, ID: d.RoomID}, nil
	case d.ApartmentID != "":
		return UnitRef{Kind: BookingTypeApartment, ID: d.ApartmentID}, nil
	default:
		return UnitRef{}, fmt.Errorf("%w: either roomId or apartmentId is required", ErrInvalidDraft)
	}
}

// Validate enforces the cross-field draft invariants: both dates set and
// strictly in the future, checkout after checkin, guest count within the
// unit's capacity, and a coherent unit reference. Field-level bounds are
// covered separately by validator tags.
func (d *BookingDraft) Validate(now time.Time, maxCapacity int) error {
	if d.CheckInDate.IsZero() || d.CheckOutDate.IsZero() {
		return fmt.Errorf("%w: check-in and check-out dates are required", ErrInvalidDraft)
	}
	today := DateOf(now)
	if !d.CheckInDate.After(today.Time) {
		return fmt.Errorf("%w: check-in date must be in the future", ErrInvalidDraft)
	}
	if !d.CheckOutDate.After(d.CheckInDate.Time) {
		return fmt.Errorf("%w: check-out date must be after check-in date", ErrInvalidDraft)
	}
	if maxCapacity > 0 && d.NumberOfGuests > maxCapacity {
		return fmt.Errorf("%w: number of guests exceeds unit capacity of %d", ErrInvalidDraft, maxCapacity)
	}
	unit, err := d.Unit()
	if err != nil {
		return err
	}
	if d.BookingType != "" && d.BookingType != unit.Kind {
		return fmt.Errorf("%w: bookingType %s does not match unit", ErrInvalidDraft, d.BookingType)
	}
	return nil
}
