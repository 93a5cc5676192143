// Package availability turns a unit's existing reservations into the
// blocked-date set fed to calendar UIs and a pure overlap predicate.
package availability

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"stayhub/internal/models"
)

// ReservationSource fetches existing reservations for a unit. Satisfied
// by hotelapi.Client.
type ReservationSource interface {
	UnitReservations(ctx context.Context, unit models.UnitRef) ([]models.Reservation, error)
}

// Resolver loads reservations and derives blocked dates for one unit.
type Resolver struct {
	source ReservationSource
	logger zerolog.Logger
}

// NewResolver builds a resolver over the given reservation source.
func NewResolver(source ReservationSource, logger zerolog.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: logger.With().Str("component", "availability").Logger(),
	}
}

// LoadReservations fetches the unit's reservations. A unit reference
// without an id skips the fetch entirely and yields no reservations.
// Fetch failures also yield no reservations so the caller can render an
// unblocked calendar, but the error is returned so the caller knows the
// data has not settled.
func (r *Resolver) LoadReservations(ctx context.Context, unit models.UnitRef) ([]models.Reservation, error) {
	if unit.ID == "" {
		return nil, nil
	}
	reservations, err := r.source.UnitReservations(ctx, unit)
	if err != nil {
		r.logger.Error().Err(err).
			Str("unit_kind", string(unit.Kind)).
			Str("unit_id", unit.ID).
			Msg("failed to load reservations")
		return nil, err
	}
	return reservations, nil
}

// DateSet is a set of calendar days, keyed by ISO date string.
type DateSet map[string]struct{}

// Has reports whether the set contains the given day.
func (s DateSet) Has(d models.Date) bool {
	_, ok := s[d.String()]
	return ok
}

// Sorted returns the set as ordered ISO date strings.
func (s DateSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ComputeBlockedDates enumerates every day of every reservation's closed
// interval into one set. Pure; recomputing from the same input yields an
// identical set.
func ComputeBlockedDates(reservations []models.Reservation) DateSet {
	blocked := make(DateSet)
	for _, res := range reservations {
		if res.CheckInDate.IsZero() || res.CheckOutDate.IsZero() {
			continue
		}
		if res.CheckOutDate.Before(res.CheckInDate.Time) {
			continue
		}
		for d := res.CheckInDate; !d.After(res.CheckOutDate.Time); d = d.AddDays(1) {
			blocked[d.String()] = struct{}{}
		}
	}
	return blocked
}

// Overlaps reports whether the closed candidate interval [start, end]
// intersects any reservation. Missing bounds never overlap; the check
// runs live while the user edits and again authoritatively at submit.
func Overlaps(reservations []models.Reservation, start, end models.Date) bool {
	if start.IsZero() || end.IsZero() {
		return false
	}
	for _, res := range reservations {
		if res.OverlapsRange(start, end) {
			return true
		}
	}
	return false
}
