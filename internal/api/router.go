package api

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds settings for the API router.
// Passed from main.go so the router can configure CORS and auth from env vars.
type RouterConfig struct {
	// BackendAPIKey is the key that must be provided in X-API-Key or Authorization: Bearer <key>.
	// If empty, auth middleware is skipped (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// If empty, defaults to "*" (development mode).
	CorsAllowedOrigins string
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (applied to all routes including /health)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// CORS: restrict origins when configured, otherwise allow all (dev mode)
	allowedOrigins := []string{"*"}
	if cfg.CorsAllowedOrigins != "" {
		origins := strings.Split(cfg.CorsAllowedOrigins, ",")
		trimmed := make([]string, 0, len(origins))
		for _, o := range origins {
			if s := strings.TrimSpace(o); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			allowedOrigins = trimmed
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (public, no auth required)
	r.Get("/health", h.Health)

	// API routes, protected by API key auth
	r.Route("/v1", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		// Project
		r.Get("/project", h.GetProject)
		r.Put("/project", h.PutProject)
		r.Post("/project/save", h.SaveProject)
		r.Post("/project/load", h.LoadProject)
		r.Get("/project/export", h.ExportProject)
		r.Post("/project/import", h.ImportProject)
		r.Post("/project/template", h.SelectTemplate)
		r.Post("/project/identity-lock", h.CreateIdentityLock)
		r.Get("/project/language-suggestion", h.SuggestLanguage)
		r.Get("/project/voice-suggestion", h.SuggestVoiceStyle)

		// Presets
		r.Get("/presets/scenes", h.ListScenes)
		r.Get("/presets/templates", h.ListTemplates)

		// Render queue
		r.Get("/queue", h.GetQueue)
		r.Post("/queue", h.BuildQueue)
		r.Post("/queue/start", h.StartQueue)
		r.Post("/queue/cancel", h.CancelQueue)
		r.Get("/queue/manifest", h.GetManifest)
		r.Get("/queue/{id}", h.GetQueueItem)
		r.Get("/queue/{id}/recipe", h.GetRecipe)
		r.Get("/queue/{id}/qr", h.GetShareQR)

		// Artifacts and render history
		r.Get("/blobs/{id}", h.GetBlob)
		r.Get("/history", h.ListHistory)
		r.Get("/history/{id}", h.GetHistoryJob)
	})

	return r
}
