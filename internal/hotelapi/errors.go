package hotelapi

import (
	"errors"
	"fmt"
)

// GenericErrorMessage is shown whenever no structured message can be
// extracted from a failure.
const GenericErrorMessage = "Something went wrong. Please try again."

// errorEnvelope is the error body shape shared by every write endpoint:
// { data: { errors: [{message}], message } }.
type errorEnvelope struct {
	Data struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
		Message string `json:"message"`
	} `json:"data"`
}

// APIError is a structured rejection from the remote API.
type APIError struct {
	Status   int
	Messages []string
	Fallback string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api rejected request (http %d): %s", e.Status, e.UserMessage())
}

// UserMessage extracts the message to surface, in priority order: the
// first structured error item, then the envelope-level message, then
// the generic fallback.
func (e *APIError) UserMessage() string {
	if len(e.Messages) > 0 && e.Messages[0] != "" {
		return e.Messages[0]
	}
	if e.Fallback != "" {
		return e.Fallback
	}
	return GenericErrorMessage
}

func newAPIError(status int, env errorEnvelope) *APIError {
	apiErr := &APIError{Status: status, Fallback: env.Data.Message}
	for _, item := range env.Data.Errors {
		apiErr.Messages = append(apiErr.Messages, item.Message)
	}
	return apiErr
}

// UserMessage resolves any submit-path error to the text shown to the
// user. Transport and unknown errors collapse to the generic fallback;
// both booking and payment submission share this single extraction.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return GenericErrorMessage
}
