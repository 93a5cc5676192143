// Package hotelapi is the HTTP client for the remote hotel booking API.
// The remote service owns all inventory; this client only reads
// reservations and creates bookings and payments on behalf of the UI.
package hotelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stayhub/internal/listquery"
	"stayhub/internal/metrics"
	"stayhub/internal/models"
)

// Client calls the remote booking/payment REST endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger

	rdb      *redis.Client
	cacheTTL time.Duration
	limiter  *rate.Limiter
}

// NewClient constructs a client for the given base URL and API key.
func NewClient(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "hotelapi").Logger(),
	}
}

// UseRedisCache configures read-through caching for GET endpoints.
func (c *Client) UseRedisCache(rdb *redis.Client, ttl time.Duration) {
	c.rdb = rdb
	c.cacheTTL = ttl
}

// UseRateLimit bounds outbound request rate with a token bucket.
func (c *Client) UseRateLimit(rps float64, burst int) {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// reservationsEnvelope is the read shape of the reservations endpoints:
// { data: { content: [...] } }.
type reservationsEnvelope struct {
	Data struct {
		Content []models.Reservation `json:"content"`
	} `json:"data"`
}

// reservationsCacheKey includes both unit kind and id so a fetch for one
// unit can never be replayed for another.
func reservationsCacheKey(unit models.UnitRef) string {
	return fmt.Sprintf("reservations:%s:%s", strings.ToLower(string(unit.Kind)), unit.ID)
}

// UnitReservations fetches all existing reservations for one unit.
func (c *Client) UnitReservations(ctx context.Context, unit models.UnitRef) ([]models.Reservation, error) {
	if err := unit.Validate(); err != nil {
		return nil, err
	}

	var endpoint string
	switch unit.Kind {
	case models.BookingTypeRoom:
		endpoint = fmt.Sprintf("%s/bookings/room/%s", c.baseURL, url.PathEscape(unit.ID))
	case models.BookingTypeApartment:
		endpoint = fmt.Sprintf("%s/bookings/apartment/%s", c.baseURL, url.PathEscape(unit.ID))
	}

	cacheKey := reservationsCacheKey(unit)
	var env reservationsEnvelope
	if c.readCache(ctx, cacheKey, &env) {
		return env.Data.Content, nil
	}

	if err := c.doGet(ctx, "reservations", endpoint, &env); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, env)
	return env.Data.Content, nil
}

// createBookingRequest matches POST /bookings. Unset unit ids go over
// the wire as explicit nulls.
type createBookingRequest struct {
	CheckInDate    models.Date        `json:"checkInDate"`
	CheckOutDate   models.Date        `json:"checkOutDate"`
	NumberOfGuests int                `json:"numberOfGuests"`
	BookingType    models.BookingType `json:"bookingType"`
	UserID         string             `json:"userId"`
	HotelID        string             `json:"hotelId"`
	ApartmentID    *string            `json:"apartmentId"`
	RoomID         *string            `json:"roomId"`
}

type createBookingResponse struct {
	ID string `json:"id"`
}

// CreateBooking submits a booking and returns the created booking id.
// Structured rejections come back as *APIError.
func (c *Client) CreateBooking(ctx context.Context, draft *models.BookingDraft) (string, error) {
	unit, err := draft.Unit()
	if err != nil {
		return "", err
	}

	body := createBookingRequest{
		CheckInDate:    draft.CheckInDate,
		CheckOutDate:   draft.CheckOutDate,
		NumberOfGuests: draft.NumberOfGuests,
		BookingType:    unit.Kind,
		UserID:         draft.UserID,
		HotelID:        draft.HotelID,
		ApartmentID:    nullable(draft.ApartmentID),
		RoomID:         nullable(draft.RoomID),
	}

	var resp createBookingResponse
	if err := c.doJSON(ctx, http.MethodPost, "create_booking", c.baseURL+"/bookings", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("booking created without id")
	}

	// The unit now has one more reservation; drop the stale cache entry.
	c.invalidate(ctx, reservationsCacheKey(unit))
	return resp.ID, nil
}

// createPaymentRequest matches POST /payments.
type createPaymentRequest struct {
	BookingID string  `json:"bookingId"`
	Amount    float64 `json:"amount"`
	Notes     *string `json:"notes"`
}

type createPaymentResponse struct {
	ID string `json:"id"`
}

// CreatePayment submits a payment for a created booking and returns the
// payment id.
func (c *Client) CreatePayment(ctx context.Context, draft *models.PaymentDraft) (string, error) {
	body := createPaymentRequest{
		BookingID: draft.BookingID,
		Amount:    draft.Amount,
		Notes:     nullable(draft.Notes),
	}
	var resp createPaymentResponse
	if err := c.doJSON(ctx, http.MethodPost, "create_payment", c.baseURL+"/payments", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// PayShortage settles the unpaid remainder of a payment via the
// reconciliation endpoint. Shares the standard error envelope.
func (c *Client) PayShortage(ctx context.Context, paymentID string, shortageAmount float64) error {
	endpoint := fmt.Sprintf("%s/payments/%s/pay-shortage", c.baseURL, url.PathEscape(paymentID))
	body := struct {
		ShortageAmount float64 `json:"shortageAmount"`
	}{ShortageAmount: shortageAmount}
	return c.doJSON(ctx, http.MethodPatch, "pay_shortage", endpoint, body, nil)
}

// ListHotels returns a filtered page of hotels.
func (c *Client) ListHotels(ctx context.Context, params listquery.Params) (listquery.Page[models.Hotel], error) {
	return list[models.Hotel](ctx, c, "hotels", c.baseURL+"/hotels", params)
}

// ListRooms returns a filtered page of rooms for a hotel.
func (c *Client) ListRooms(ctx context.Context, hotelID string, params listquery.Params) (listquery.Page[models.Room], error) {
	endpoint := fmt.Sprintf("%s/rooms/hotel/%s", c.baseURL, url.PathEscape(hotelID))
	return list[models.Room](ctx, c, "rooms", endpoint, params)
}

// ListApartments returns a filtered page of apartments for a hotel.
func (c *Client) ListApartments(ctx context.Context, hotelID string, params listquery.Params) (listquery.Page[models.Apartment], error) {
	endpoint := fmt.Sprintf("%s/apartments/hotel/%s", c.baseURL, url.PathEscape(hotelID))
	return list[models.Apartment](ctx, c, "apartments", endpoint, params)
}

func list[T any](ctx context.Context, c *Client, name, endpoint string, params listquery.Params) (listquery.Page[T], error) {
	var env struct {
		Data listquery.Page[T] `json:"data"`
	}
	if err := c.doGet(ctx, name, endpoint+"?"+params.Values().Encode(), &env); err != nil {
		return listquery.Page[T]{}, err
	}
	return env.Data, nil
}

// HealthCheck verifies the remote API is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.rdb == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.rdb == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) invalidate(ctx context.Context, key string) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, key).Err()
}

func (c *Client) doGet(ctx context.Context, name, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(name, req, out)
}

func (c *Client) doJSON(ctx context.Context, method, name, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(name, req, out)
}

func (c *Client) do(name string, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncUpstream(name, "transport_error")
		c.logger.Error().Err(err).Str("endpoint", name).Msg("upstream request failed")
		return fmt.Errorf("call %s: %w", name, err)
	}
	defer resp.Body.Close()

	metrics.IncUpstream(name, fmt.Sprintf("%d", resp.StatusCode))
	c.logger.Debug().
		Str("endpoint", name).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream request")

	if resp.StatusCode >= 300 {
		var env errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return newAPIError(resp.StatusCode, env)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
