package handler

import (
	"net/http"
	"trippey_quests/internal/api/middleware"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type QuestHandler struct {
	questService *service.QuestService
}

func NewQuestHandler(qs *service.QuestService) *QuestHandler {
	return &QuestHandler{questService: qs}
}

func (h *QuestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listQuests)         // GET /api/v1/quests?category=budget
	r.Get("/{questRef}", h.getQuest) // GET /api/v1/quests/eat-like-a-local or /{uuid}

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/{questRef}/start", h.startQuest)

		authed.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminOnly)
			admin.Post("/", h.createQuest)
		})
	})
}

func (h *QuestHandler) createQuest(w http.ResponseWriter, r *http.Request) {
	var req service.CreateQuestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quest, err := h.questService.CreateQuest(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, quest)
}

func (h *QuestHandler) listQuests(w http.ResponseWriter, r *http.Request) {
	category := model.QuestCategory(r.URL.Query().Get("category"))
	page, err := h.questService.ListQuests(r.Context(), category, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *QuestHandler) getQuest(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "questRef")
	var quest *model.Quest
	var err error
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		quest, err = h.questService.GetQuestByID(r.Context(), ref)
	} else {
		quest, err = h.questService.GetQuestBySlug(r.Context(), ref)
	}
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, quest)
}

func (h *QuestHandler) startQuest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	attempt, err := h.questService.StartQuest(r.Context(), userID, chi.URLParam(r, "questRef"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, attempt)
}
