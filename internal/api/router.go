package api

import (
	"net/http"
	"time"
	"trippey_quests/internal/api/handler"
	"trippey_quests/internal/api/middleware"
	"trippey_quests/internal/app/service"
	"trippey_quests/internal/common/security"
	"trippey_quests/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

// Services is everything the HTTP layer dispatches to.
type Services struct {
	Quests       *service.QuestService
	Submissions  *service.SubmissionService
	Verification handler.SubmissionVerifier
	Rewards      *service.RewardService
	Leaderboard  *service.LeaderboardService
	Store        *service.StoreService
	Trips        *service.TripService
}

type RouterConfig struct {
	InternalSecret string
	RatePerSecond  float64
	RateBurst      int
	RequestTimeout time.Duration
}

func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(metrics.InstrumentHTTP)

	// Searches "Authorization: Bearer T"; Authenticator decides per route.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		if cfg.RatePerSecond > 0 {
			v1.Use(middleware.NewRateLimiter(cfg.RatePerSecond, cfg.RateBurst).Handler)
		}

		v1.Route("/quests", handler.NewQuestHandler(svc.Quests).RegisterRoutes)
		v1.Route("/submissions", handler.NewSubmissionHandler(svc.Submissions).RegisterRoutes)
		v1.Route("/me", handler.NewMeHandler(svc.Quests, svc.Submissions, svc.Rewards, svc.Leaderboard, svc.Store).RegisterRoutes)
		v1.Route("/leaderboard", handler.NewLeaderboardHandler(svc.Leaderboard).RegisterRoutes)
		v1.Route("/store", handler.NewStoreHandler(svc.Store).RegisterRoutes)
		v1.Route("/trips", handler.NewTripHandler(svc.Trips).RegisterRoutes)

		// Service-to-service (verification pipeline, partner awards)
		v1.Route("/internal", func(internal chi.Router) {
			internal.Use(middleware.InternalOnly(cfg.InternalSecret))
			handler.NewInternalHandler(svc.Verification, svc.Rewards).RegisterRoutes(internal)
		})
	})

	return r
}
