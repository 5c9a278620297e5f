package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Learnify/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Learnify/internal/api/middlewares"
	"github.com/markdave123-py/Learnify/internal/config"
	"github.com/markdave123-py/Learnify/internal/logger"
)

const (
	requestTimeout = 60 * time.Second
	uploadTimeout  = 6 * time.Minute
)

// Handlers groups everything the router serves.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Upload  *handlers.UploadHandler
	Library *handlers.LibraryHandler
	Study   *handlers.StudyHandler
	Billing *handlers.BillingHandler
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, h Handlers) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv}
}

func newRouter(cfg *config.Config, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Serve static files from the web directory
	fileServer := http.FileServer(http.Dir(cfg.WebDir))
	r.Handle("/*", fileServer)

	// API routes
	r.Route("/api", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(middleware.Timeout(requestTimeout))
			public.Post("/signup", h.Auth.Signup)
			public.Post("/login", h.Auth.Login)
			public.Get("/plans", h.Billing.Plans)
			public.Post("/webhooks/stripe", h.Billing.StripeWebhook)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

			// generation can take minutes, so it gets its own deadline
			protected.With(middleware.Timeout(uploadTimeout)).Post("/upload", h.Upload.Upload)

			protected.Group(func(pr chi.Router) {
				pr.Use(middleware.Timeout(requestTimeout))
				pr.Get("/me", h.Auth.Me)
				pr.Get("/limits", h.Billing.Limits)
				pr.Get("/dashboard", h.Library.Dashboard)
				pr.Post("/complete", h.Library.Complete)

				pr.Get("/quizzes", h.Library.GetQuizzes)
				pr.Get("/allQuizzes", h.Library.ListQuizzes)
				pr.Delete("/quizzes/{id}", h.Library.DeleteQuiz)
				pr.Get("/quizzes/{id}/source", h.Library.QuizSource)
				pr.Get("/quizzes/{id}/progress", h.Study.GetProgress)
				pr.Post("/quizzes/{id}/progress", h.Study.PostProgress)

				pr.Get("/summaries", h.Library.GetSummaries)
				pr.Delete("/summaries/{id}", h.Library.DeleteSummary)
				pr.Get("/summaries/{id}/source", h.Library.SummarySource)
			})
		})
	})

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
