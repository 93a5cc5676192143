package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/availability"
	"stayhub/internal/booking"
	"stayhub/internal/hotelapi"
)

const testSecret = "test-secret"

// newTestStack wires the real client, resolver and orchestrator against
// a fake upstream API.
func newTestStack(t *testing.T) http.Handler {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/bookings/room/"):
			_, _ = w.Write([]byte(`{"data":{"content":[{"checkInDate":"2030-06-01","checkOutDate":"2030-06-05"}]}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/bookings":
			_, _ = w.Write([]byte(`{"id":"abc"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/payments":
			_, _ = w.Write([]byte(`{"id":"pay-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/hotels":
			_, _ = w.Write([]byte(`{"data":{"content":[{"id":"h1","name":"Grand"}],"totalElements":1,"page":0,"size":20}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	client := hotelapi.NewClient(upstream.URL, "", zerolog.Nop())
	resolver := availability.NewResolver(client, zerolog.Nop())
	orch := booking.NewOrchestrator(resolver, client, booking.Config{RequireSettledAvailability: true}, zerolog.Nop())

	return New(orch, resolver, client, testSecret, zerolog.Nop()).Routes(nil)
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthzIsPublic(t *testing.T) {
	handler := newTestStack(t)
	rec := doRequest(t, handler, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	handler := newTestStack(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/hotels", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/api/hotels", "Bearer not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListHotels(t *testing.T) {
	handler := newTestStack(t)
	token := bearerToken(t, "u1")

	rec := doRequest(t, handler, http.MethodGet, "/api/hotels?city=riga", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["totalElements"])
}

func TestBlockedDatesEndpoint(t *testing.T) {
	handler := newTestStack(t)
	token := bearerToken(t, "u1")

	rec := doRequest(t, handler, http.MethodGet, "/api/units/room/R1/blocked-dates", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["settled"])
	assert.Len(t, body["blockedDates"], 5)

	rec = doRequest(t, handler, http.MethodGet, "/api/units/cabin/R1/blocked-dates", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	handler := newTestStack(t)
	token := bearerToken(t, "u1")

	// Open the booking surface.
	rec := doRequest(t, handler, http.MethodPost, "/api/booking-sessions", token,
		`{"hotelId":"h1","roomId":"R1","maxCapacity":2,"maxPrice":200}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decode(t, rec)
	sessionID := session["id"].(string)
	assert.Equal(t, "booking_open", session["state"])
	assert.Contains(t, session["blockedDates"], "2030-06-03")

	// Live date check flags the conflict.
	rec = doRequest(t, handler, http.MethodPost, "/api/booking-sessions/"+sessionID+"/check-dates", token,
		`{"checkInDate":"2030-06-03","checkOutDate":"2030-06-06"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["conflict"])

	// Conflicting submit is rejected locally.
	rec = doRequest(t, handler, http.MethodPost, "/api/booking-sessions/"+sessionID+"/booking", token,
		`{"checkInDate":"2030-06-03","checkOutDate":"2030-06-06","numberOfGuests":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Too many guests fails validation before any upstream call.
	rec = doRequest(t, handler, http.MethodPost, "/api/booking-sessions/"+sessionID+"/booking", token,
		`{"checkInDate":"2030-06-06","checkOutDate":"2030-06-08","numberOfGuests":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Corrected dates create the booking and open the payment step.
	rec = doRequest(t, handler, http.MethodPost, "/api/booking-sessions/"+sessionID+"/booking", token,
		`{"checkInDate":"2030-06-06","checkOutDate":"2030-06-08","numberOfGuests":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "abc", body["bookingId"])
	assert.Equal(t, "payment_open", body["session"].(map[string]any)["state"])

	// Amount above the ceiling is rejected locally.
	rec = doRequest(t, handler, http.MethodPost, "/api/booking-sessions/"+sessionID+"/payment", token,
		`{"amount":250.00}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Valid payment completes the flow.
	rec = doRequest(t, handler, http.MethodPost, "/api/booking-sessions/"+sessionID+"/payment", token,
		`{"amount":150.00,"notes":"weekend stay"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["completed"])
	assert.Equal(t, "abc", body["bookingId"])
	assert.Equal(t, "pay-1", body["paymentId"])

	// The session is gone once completed.
	rec = doRequest(t, handler, http.MethodGet, "/api/booking-sessions/"+sessionID, token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelSessionIdempotent(t *testing.T) {
	handler := newTestStack(t)
	token := bearerToken(t, "u1")

	rec := doRequest(t, handler, http.MethodPost, "/api/booking-sessions", token,
		`{"hotelId":"h1","roomId":"R1","maxCapacity":2,"maxPrice":200}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID := decode(t, rec)["id"].(string)

	rec = doRequest(t, handler, http.MethodDelete, "/api/booking-sessions/"+sessionID, token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, handler, http.MethodDelete, "/api/booking-sessions/"+sessionID, token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOpenSessionRequiresUnit(t *testing.T) {
	handler := newTestStack(t)
	token := bearerToken(t, "u1")

	rec := doRequest(t, handler, http.MethodPost, "/api/booking-sessions", token, `{"hotelId":"h1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
