package handler

import (
	"net/http"
	"trippey_quests/internal/api/middleware"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/common"

	"github.com/go-chi/chi/v5"
)

type StoreHandler struct {
	storeService *service.StoreService
}

func NewStoreHandler(ss *service.StoreService) *StoreHandler {
	return &StoreHandler{storeService: ss}
}

func (h *StoreHandler) RegisterRoutes(r chi.Router) {
	r.Get("/items", h.listItems)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/items/{itemID}/purchase", h.purchase)

		authed.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminOnly)
			admin.Post("/items", h.createItem)
		})
	})
}

func (h *StoreHandler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.storeService.ListItems(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, items)
}

func (h *StoreHandler) createItem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.storeService.CreateItem(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, item)
}

func (h *StoreHandler) purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.storeService.Purchase(r.Context(), userID, chi.URLParam(r, "itemID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, p)
}
