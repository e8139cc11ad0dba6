// Package server is the HTTP surface: the authenticated client API and the
// basic-auth admin endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vicraft/backend/internal/auth"
	"github.com/vicraft/backend/internal/config"
	"github.com/vicraft/backend/internal/service"
	"github.com/vicraft/backend/internal/storage"
)

type Server struct {
	cfg         config.Config
	log         *slog.Logger
	users       *service.UserService
	generation  *service.GenerationService
	payments    *service.PaymentService
	catalog     *service.CatalogService
	maintenance *service.MaintenanceService
	uploader    *storage.Uploader
	router      *chi.Mux
}

func NewServer(
	cfg config.Config,
	log *slog.Logger,
	verifier *auth.Verifier,
	users *service.UserService,
	generation *service.GenerationService,
	payments *service.PaymentService,
	catalog *service.CatalogService,
	maintenance *service.MaintenanceService,
	uploader *storage.Uploader,
) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:         cfg,
		log:         log,
		users:       users,
		generation:  generation,
		payments:    payments,
		catalog:     catalog,
		maintenance: maintenance,
		uploader:    uploader,
		router:      r,
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/models", s.handleListModels)
		api.Get("/packages", s.handleListPackages)
		api.Get("/packages/coins", s.handleListCoinPackages)
		api.Get("/packages/subscriptions", s.handleListSubscriptionPackages)

		api.Group(func(protected chi.Router) {
			protected.Use(auth.Middleware(verifier))

			protected.Get("/user/me", s.handleMe)
			protected.Get("/user/coins", s.handleCoins)
			protected.Get("/user/history", s.handleHistory)
			protected.Get("/user/subscription", s.handleSubscription)
			protected.Get("/user/discount", s.handleDiscount)
			protected.Get("/orders", s.handleOrders)

			protected.Post("/generate/{task}", s.handleGenerate)
			protected.Get("/generate/result", s.handleResult)

			protected.Post("/uploads", s.handleUpload)

			protected.Post("/payments/create-order", s.handleCreatePaymentOrder)
			protected.Post("/payments/capture-order", s.handleCapturePayment)
		})
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(s.basicAuthMiddleware())
		admin.Post("/poll-history", s.handlePollHistory)
		admin.Post("/cleanup-history", s.handleCleanupHistory)
		admin.Post("/set-subscription", s.handleSetSubscription)
		admin.Post("/grant-daily-coins", s.handleGrantDailyCoins)
		admin.Post("/models", s.handleUpsertModel)
		admin.Post("/packages/coins", s.handleUpsertCoinPackage)
		admin.Post("/packages/subscriptions", s.handleUpsertSubscriptionPackage)
	})

	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.cfg.AdminUsername || pass != s.cfg.AdminPassword {
				w.Header().Set("WWW-Authenticate", `Basic realm="vicraft"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
