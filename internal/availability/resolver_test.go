package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/models"
)

type stubSource struct {
	reservations []models.Reservation
	err          error
	calls        int
}

func (s *stubSource) UnitReservations(_ context.Context, _ models.UnitRef) ([]models.Reservation, error) {
	s.calls++
	return s.reservations, s.err
}

func reservation(inY int, inM time.Month, inD, outY int, outM time.Month, outD int) models.Reservation {
	return models.Reservation{
		CheckInDate:  models.NewDate(inY, inM, inD),
		CheckOutDate: models.NewDate(outY, outM, outD),
	}
}

func TestLoadReservationsSkipsEmptyUnitID(t *testing.T) {
	source := &stubSource{}
	resolver := NewResolver(source, zerolog.Nop())

	reservations, err := resolver.LoadReservations(context.Background(), models.UnitRef{Kind: models.BookingTypeRoom})
	require.NoError(t, err)
	assert.Nil(t, reservations)
	assert.Zero(t, source.calls, "no network call should be made without a unit id")
}

func TestLoadReservationsFetchError(t *testing.T) {
	source := &stubSource{err: errors.New("boom")}
	resolver := NewResolver(source, zerolog.Nop())

	reservations, err := resolver.LoadReservations(context.Background(), models.UnitRef{Kind: models.BookingTypeRoom, ID: "r1"})
	assert.Error(t, err)
	assert.Nil(t, reservations)
}

func TestComputeBlockedDates(t *testing.T) {
	blocked := ComputeBlockedDates([]models.Reservation{
		reservation(2024, time.March, 1, 2024, time.March, 3),
	})

	assert.Len(t, blocked, 3)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03"}, blocked.Sorted())
	assert.True(t, blocked.Has(models.NewDate(2024, time.March, 2)))
	assert.False(t, blocked.Has(models.NewDate(2024, time.March, 4)))
}

func TestComputeBlockedDatesEmpty(t *testing.T) {
	assert.Empty(t, ComputeBlockedDates(nil))
}

func TestComputeBlockedDatesUnionAndIdempotence(t *testing.T) {
	reservations := []models.Reservation{
		reservation(2024, time.March, 1, 2024, time.March, 3),
		reservation(2024, time.March, 3, 2024, time.March, 5),
	}

	first := ComputeBlockedDates(reservations)
	second := ComputeBlockedDates(reservations)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04", "2024-03-05"}, first.Sorted())
}

func TestComputeBlockedDatesSkipsMalformed(t *testing.T) {
	blocked := ComputeBlockedDates([]models.Reservation{
		{CheckInDate: models.NewDate(2024, time.March, 5), CheckOutDate: models.NewDate(2024, time.March, 1)},
		{CheckOutDate: models.NewDate(2024, time.March, 1)},
	})
	assert.Empty(t, blocked)
}

func TestOverlaps(t *testing.T) {
	reservations := []models.Reservation{
		reservation(2024, time.January, 10, 2024, time.January, 15),
	}

	tests := []struct {
		name     string
		start    models.Date
		end      models.Date
		expected bool
	}{
		{"boundary touch counts", models.NewDate(2024, time.January, 15), models.NewDate(2024, time.January, 20), true},
		{"day after is free", models.NewDate(2024, time.January, 16), models.NewDate(2024, time.January, 20), false},
		{"inside", models.NewDate(2024, time.January, 12), models.NewDate(2024, time.January, 13), true},
		{"before", models.NewDate(2024, time.January, 1), models.NewDate(2024, time.January, 9), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(reservations, tt.start, tt.end))
		})
	}
}

func TestOverlapsMissingBounds(t *testing.T) {
	reservations := []models.Reservation{
		reservation(2024, time.January, 10, 2024, time.January, 15),
	}

	assert.False(t, Overlaps(reservations, models.Date{}, models.NewDate(2024, time.January, 12)))
	assert.False(t, Overlaps(reservations, models.NewDate(2024, time.January, 12), models.Date{}))
	assert.False(t, Overlaps(nil, models.NewDate(2024, time.January, 12), models.NewDate(2024, time.January, 13)))
}
