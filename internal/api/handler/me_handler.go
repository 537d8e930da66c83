package handler

import (
	"net/http"
	"trippey_quests/internal/api/middleware"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/common"

	"github.com/go-chi/chi/v5"
)

// MeHandler serves the caller's own quests, submissions, coins and standing.
type MeHandler struct {
	questService       *service.QuestService
	submissionService  *service.SubmissionService
	rewardService      *service.RewardService
	leaderboardService *service.LeaderboardService
	storeService       *service.StoreService
}

func NewMeHandler(
	qs *service.QuestService,
	ss *service.SubmissionService,
	rs *service.RewardService,
	ls *service.LeaderboardService,
	st *service.StoreService,
) *MeHandler {
	return &MeHandler{
		questService:       qs,
		submissionService:  ss,
		rewardService:      rs,
		leaderboardService: ls,
		storeService:       st,
	}
}

func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/quests", h.myQuests)
	r.Get("/submissions", h.mySubmissions)
	r.Get("/coins", h.myCoins)
	r.Get("/rewards", h.myRewards)
	r.Get("/leaderboard", h.myStanding)
	r.Get("/purchases", h.myPurchases)
}

func (h *MeHandler) myQuests(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	attempts, err := h.questService.ListMyQuests(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, attempts)
}

func (h *MeHandler) mySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	subs, err := h.submissionService.ListMySubmissions(r.Context(), userID, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}

func (h *MeHandler) myCoins(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ledger, err := h.rewardService.GetCoins(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, ledger)
}

func (h *MeHandler) myRewards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	rewards, err := h.rewardService.ListRewards(r.Context(), userID, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rewards)
}

func (h *MeHandler) myStanding(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	entry, err := h.leaderboardService.Me(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entry)
}

func (h *MeHandler) myPurchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	purchases, err := h.storeService.ListPurchases(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, purchases)
}
