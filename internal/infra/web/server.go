package web

import (
	"net/http"

	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	subUC    *usecase.SubscriptionUseCase
	adminUC  *usecase.AdminUseCase
	statsUC  *usecase.StatsUseCase
	auth     *AuthManager
	adminKey string
	log      *zerolog.Logger
}

func NewServer(
	subUC *usecase.SubscriptionUseCase,
	adminUC *usecase.AdminUseCase,
	statsUC *usecase.StatsUseCase,
	auth *AuthManager,
	adminKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		subUC:    subUC,
		adminUC:  adminUC,
		statsUC:  statsUC,
		auth:     auth,
		adminKey: adminKey,
		log:      logger,
	}
}

// Router builds the chi mux for both the customer API and the admin API.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Post("/", s.createHandler)
		r.Get("/", s.listHandler)
		r.Get("/{id}", s.getHandler)
		r.Post("/{id}/pause", s.actionHandler(model.ActionPause, s.subUC.Pause))
		r.Post("/{id}/resume", s.actionHandler(model.ActionResume, s.subUC.Resume))
		r.Post("/{id}/skip", s.actionHandler(model.ActionSkip, s.subUC.Skip))
		r.Post("/{id}/cancel", s.actionHandler(model.ActionCancel, s.subUC.Cancel))
		r.Put("/{id}/quantity", s.quantityHandler)
		r.Put("/{id}/frequency", s.frequencyHandler)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Post("/login", s.loginHandler)
		r.Group(func(r chi.Router) {
			r.Use(s.adminAuthMiddleware)
			r.Post("/logout", s.logoutHandler)
			r.Get("/stats", s.statsHandler)
			r.Post("/subscriptions/{id}/modify", s.modifyHandler)
			r.Post("/subscriptions/{id}/extend", s.extendHandler)
		})
	})

	return r
}

type actorKey struct{}

// adminAuthMiddleware validates the session token and stashes the admin
// identity for the handlers to use as the audit actor.
func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != "admin" || claims.Subject == "" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		ctx := contextWithActor(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
