package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inkwell-app/inkwell/internal/api/handlers"
	appMiddleware "github.com/inkwell-app/inkwell/internal/api/middlewares"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient,
	intake *services.IntakeService, jobs *services.JobService,
	status *services.StatusService, drafts *services.DraftService) *Server {

	authHandler := handlers.NewAuthHandler(db)
	projectHandler := handlers.NewProjectHandler(db, status)
	refHandler := handlers.NewReferenceHandler(intake, jobs, obj, cfg)
	jobHandler := handlers.NewJobHandler(jobs)
	draftHandler := handlers.NewDraftHandler(drafts)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)

			protected.Post("/projects", projectHandler.Create)
			protected.Get("/projects/{id}/status", projectHandler.Status)

			protected.Post("/projects/{id}/references/upload", refHandler.Upload)
			protected.Post("/projects/{id}/references/file", refHandler.AddFile)
			protected.Post("/projects/{id}/references/text", refHandler.AddText)
			protected.Post("/projects/{id}/references/url", refHandler.AddLink)
			protected.Post("/projects/{id}/references/youtube", refHandler.AddYouTube)
			protected.Get("/projects/{id}/references", refHandler.List)
			protected.Delete("/references/{id}", refHandler.Delete)
			protected.Post("/references/{id}/retry", refHandler.Retry)

			protected.Get("/jobs/{id}", jobHandler.Get)
			protected.Post("/internal/jobs/complete", jobHandler.Complete)

			protected.Post("/projects/{id}/versions/generate", draftHandler.Generate)
			protected.Post("/projects/{id}/versions/regenerate", draftHandler.Regenerate)
			protected.Get("/projects/{id}/versions", draftHandler.ListVersions)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
