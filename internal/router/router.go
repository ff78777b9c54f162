package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gemchat-backend/internal/handlers"
	"gemchat-backend/internal/middleware"
)

func New(
	logger *zap.Logger,
	generateHandler *handlers.GenerateHandler,
	chatHandler *handlers.ChatHandler,
	staticDir string,
	allowedOrigin string,
	maxBodyBytes int64,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(allowedOrigin))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── API Routes ────
	r.Group(func(r chi.Router) {
		r.Use(middleware.BodyLimit(maxBodyBytes))
		r.Post("/generate-text", generateHandler.GenerateText)
		r.Post("/api/chat", chatHandler.Chat)
	})

	// ──── Chat page ────
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}
