package handler

import (
	"net/http"
	"trippey_quests/internal/api/middleware"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/common"

	"github.com/go-chi/chi/v5"
)

type TripHandler struct {
	tripService *service.TripService
}

func NewTripHandler(ts *service.TripService) *TripHandler {
	return &TripHandler{tripService: ts}
}

func (h *TripHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.createTrip)
	r.Get("/", h.listTrips)
	r.Get("/{tripID}", h.getTrip)
	r.Post("/{tripID}/expenses", h.addExpense)
	r.Get("/{tripID}/expenses", h.listExpenses)
}

func (h *TripHandler) createTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.CreateTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.tripService.CreateTrip(r.Context(), userID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, trip)
}

func (h *TripHandler) listTrips(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	trips, err := h.tripService.ListTrips(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, trips)
}

func (h *TripHandler) getTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	trip, err := h.tripService.GetTrip(r.Context(), userID, chi.URLParam(r, "tripID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) addExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.AddExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	receipt, err := h.tripService.AddExpense(r.Context(), userID, chi.URLParam(r, "tripID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, receipt)
}

func (h *TripHandler) listExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	expenses, err := h.tripService.ListExpenses(r.Context(), userID, chi.URLParam(r, "tripID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, expenses)
}
