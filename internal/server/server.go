// Package server exposes the booking gateway over HTTP for the browser UI.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"stayhub/internal/availability"
	"stayhub/internal/booking"
	"stayhub/internal/hotelapi"
	"stayhub/internal/listquery"
	"stayhub/internal/models"
)

// Server wires the orchestrator and resolver behind the HTTP routes.
type Server struct {
	orch      *booking.Orchestrator
	resolver  *availability.Resolver
	client    *hotelapi.Client
	jwtSecret string
	logger    zerolog.Logger
}

// New constructs the gateway server.
func New(orch *booking.Orchestrator, resolver *availability.Resolver, client *hotelapi.Client, jwtSecret string, logger zerolog.Logger) *Server {
	return &Server{
		orch:      orch,
		resolver:  resolver,
		client:    client,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "server").Logger(),
	}
}

// Routes builds the router.
func (s *Server) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.jwtSecret))

		r.Get("/hotels", s.handleListHotels)
		r.Get("/units/{kind}/{id}/blocked-dates", s.handleBlockedDates)

		r.Route("/booking-sessions", func(r chi.Router) {
			r.Post("/", s.handleOpenSession)
			r.Get("/{id}", s.handleGetSession)
			r.Post("/{id}/check-dates", s.handleCheckDates)
			r.Post("/{id}/booking", s.handleSubmitBooking)
			r.Post("/{id}/payment", s.handleSubmitPayment)
			r.Post("/{id}/refresh-availability", s.handleRefreshAvailability)
			r.Delete("/{id}", s.handleCancelSession)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListHotels(w http.ResponseWriter, r *http.Request) {
	page, err := s.client.ListHotels(r.Context(), listquery.FromQuery(r.URL.Query()))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleBlockedDates serves the date-picker's disabled dates for a unit
// outside any session, e.g. for a read-only calendar preview.
func (s *Server) handleBlockedDates(w http.ResponseWriter, r *http.Request) {
	unit, err := unitFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservations, err := s.resolver.LoadReservations(r.Context(), unit)
	settled := err == nil
	writeJSON(w, http.StatusOK, map[string]any{
		"blockedDates": availability.ComputeBlockedDates(reservations).Sorted(),
		"settled":      settled,
	})
}

type openSessionRequest struct {
	HotelID     string  `json:"hotelId"`
	RoomID      string  `json:"roomId,omitempty"`
	ApartmentID string  `json:"apartmentId,omitempty"`
	MaxCapacity int     `json:"maxCapacity"`
	MaxPrice    float64 `json:"maxPrice"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.orch.OpenBooking(r.Context(), booking.Context{
		UserID:      userID(r.Context()),
		HotelID:     req.HotelID,
		RoomID:      req.RoomID,
		ApartmentID: req.ApartmentID,
		MaxCapacity: req.MaxCapacity,
		MaxPrice:    req.MaxPrice,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	snapshot, err := s.orch.GetSnapshot(session.ID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.orch.GetSnapshot(chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type checkDatesRequest struct {
	CheckInDate  models.Date `json:"checkInDate"`
	CheckOutDate models.Date `json:"checkOutDate"`
}

func (s *Server) handleCheckDates(w http.ResponseWriter, r *http.Request) {
	var req checkDatesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.orch.CheckDates(chi.URLParam(r, "id"), req.CheckInDate, req.CheckOutDate)
	if errors.Is(err, booking.ErrDateConflict) {
		writeJSON(w, http.StatusOK, map[string]any{"conflict": true, "message": err.Error()})
		return
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflict": false})
}

func (s *Server) handleSubmitBooking(w http.ResponseWriter, r *http.Request) {
	var draft models.BookingDraft
	if err := decodeBody(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := chi.URLParam(r, "id")
	bookingID, err := s.orch.SubmitBooking(r.Context(), sessionID, &draft)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	snapshot, err := s.orch.GetSnapshot(sessionID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookingId": bookingID, "session": snapshot})
}

func (s *Server) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	var draft models.PaymentDraft
	if err := decodeBody(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	completion, err := s.orch.SubmitPayment(r.Context(), chi.URLParam(r, "id"), &draft)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completed": true, "bookingId": completion.BookingID, "paymentId": completion.PaymentID})
}

func (s *Server) handleRefreshAvailability(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.RefreshAvailability(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	s.orch.Cancel(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func unitFromPath(r *http.Request) (models.UnitRef, error) {
	kind := chi.URLParam(r, "kind")
	id := chi.URLParam(r, "id")
	switch kind {
	case "room":
		return models.UnitRef{Kind: models.BookingTypeRoom, ID: id}, nil
	case "apartment":
		return models.UnitRef{Kind: models.BookingTypeApartment, ID: id}, nil
	default:
		return models.UnitRef{}, errors.New("unit kind must be room or apartment")
	}
}

// writeFailure maps the error taxonomy to HTTP statuses: local
// validation 422, conflicts and wrong-state 409, double-submit 429,
// loading availability 503, remote rejections and transport errors 502
// with the extracted user message.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidDraft):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, booking.ErrDateConflict), errors.Is(err, booking.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrSubmitInFlight):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, booking.ErrAvailabilityPending):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusBadGateway, hotelapi.UserMessage(err))
	}
}

func decodeBody(r *http.Request, out any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(out); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
