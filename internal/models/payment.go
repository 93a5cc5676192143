package models

import (
	"fmt"
	"math"
)

// maxPaymentAmount bounds the integral part to 10 digits, matching the
// upstream decimal(10,2) column.
const maxPaymentAmount = 1e10

// PaymentDraft is the payment form state. BookingID is supplied by the
// orchestrator from the preceding booking step, never by the user.
type PaymentDraft struct {
	BookingID string  `json:"bookingId" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Notes     string  `json:"notes,omitempty"`
}

// Validate enforces the amount invariants: positive, at most two decimal
// places, within the decimal(10,2) range, and no greater than the
// price ceiling carried in the session context (0 means no ceiling).
func (p *PaymentDraft) Validate(ceiling float64) error {
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidDraft)
	}
	if p.Amount >= maxPaymentAmount {
		return fmt.Errorf("%w: amount is too large", ErrInvalidDraft)
	}
	cents := p.Amount * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		return fmt.Errorf("%w: amount may have at most two decimal places", ErrInvalidDraft)
	}
	if ceiling > 0 && p.Amount > ceiling {
		return fmt.Errorf("%w: amount exceeds the price ceiling of %.2f", ErrInvalidDraft, ceiling)
	}
	return nil
}
