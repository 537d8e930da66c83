package handler

import (
	"context"
	"errors"
	"net/http"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/platform/logging"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type SubmissionVerifier interface {
	Verify(ctx context.Context, req service.VerifyRequest) (*service.VerifyOutcome, error)
}

type CoinAwarder interface {
	Award(ctx context.Context, req service.AwardRequest) (int, error)
}

// InternalHandler serves the service-to-service verification and award
// entry points. Mount it behind middleware.InternalOnly.
type InternalHandler struct {
	verifier SubmissionVerifier
	awarder  CoinAwarder
}

func NewInternalHandler(v SubmissionVerifier, a CoinAwarder) *InternalHandler {
	return &InternalHandler{verifier: v, awarder: a}
}

func (h *InternalHandler) RegisterRoutes(r chi.Router) {
	r.Post("/verify", h.verify)
	r.Post("/award", h.award)
}

type verifyResponse struct {
	Success             bool                     `json:"success"`
	VerificationResults model.VerificationResult `json:"verificationResults"`
	CoinsAwarded        int                      `json:"coinsAwarded"`
}

type awardResponse struct {
	Success           bool `json:"success"`
	TotalCoinsAwarded int  `json:"totalCoinsAwarded"`
	Duplicate         bool `json:"duplicate,omitempty"`
}

func (h *InternalHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req service.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	outcome, err := h.verifier.Verify(r.Context(), req)
	if err != nil {
		logging.WithFields(logrus.Fields{"submission_id": req.SubmissionID}).WithError(err).Error("verification request failed")
		common.RespondWithErrorDetails(w, common.HTTPStatusFromError(err), "Verification failed",
			map[string]interface{}{"submissionId": req.SubmissionID, "reason": err.Error()})
		return
	}
	common.RespondWithJSON(w, http.StatusOK, verifyResponse{
		Success:             true,
		VerificationResults: outcome.Result,
		CoinsAwarded:        outcome.CoinsAwarded,
	})
}

func (h *InternalHandler) award(w http.ResponseWriter, r *http.Request) {
	var req service.AwardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	total, err := h.awarder.Award(r.Context(), req)
	if errors.Is(err, common.ErrAlreadyAwarded) {
		common.RespondWithJSON(w, http.StatusOK, awardResponse{Success: true, Duplicate: true})
		return
	}
	if err != nil {
		logging.WithFields(logrus.Fields{"user_id": req.UserID, "quest_id": req.QuestID}).WithError(err).Error("award request failed")
		common.RespondWithErrorDetails(w, common.HTTPStatusFromError(err), "Award failed",
			map[string]interface{}{"userId": req.UserID, "questId": req.QuestID, "reason": err.Error()})
		return
	}
	common.RespondWithJSON(w, http.StatusOK, awardResponse{Success: true, TotalCoinsAwarded: total})
}
