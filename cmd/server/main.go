package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gemchat-backend/internal/config"
	"gemchat-backend/internal/handlers"
	"gemchat-backend/internal/logger"
	"gemchat-backend/internal/router"
	"gemchat-backend/internal/services"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log := logger.MustNew(cfg.LogLevel, cfg.IsDevelopment())
	defer log.Sync()
	log.Info("✓ Environment variables loaded", zap.String("env", cfg.Env))

	// ──── Step 2: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		cfg.SystemInstruction,
		cfg.GeminiConcurrentReqs,
		cfg.UpstreamTimeout,
		log,
	)
	if err != nil {
		log.Fatal("✗ Gemini client initialization failed", zap.Error(err))
	}
	defer geminiService.Close()
	log.Info("✓ Gemini client initialized", zap.String("model", cfg.GeminiModel))

	// ──── Step 3: Initialize Handlers ────
	generateHandler := handlers.NewGenerateHandler(geminiService, log)
	chatHandler := handlers.NewChatHandler(geminiService, log)

	// ──── Step 4: Start HTTP Server ────
	r := router.New(
		log,
		generateHandler,
		chatHandler,
		cfg.StaticDir,
		cfg.AllowedOrigin,
		cfg.MaxBodyBytes,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Fatal("✗ Failed to listen", zap.String("addr", server.Addr), zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info(fmt.Sprintf("✓ Server running on port %s", cfg.Port),
		zap.String("chat", fmt.Sprintf("http://localhost:%s/", cfg.Port)),
		zap.String("static_dir", cfg.StaticDir),
	)

	if err := serve(server, ln, sigChan, 30*time.Second, log); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
	log.Info("✓ Server stopped")
}

// serve runs server on ln until a signal arrives on stop, then shuts down
// gracefully. It returns only after in-flight requests have finished or the
// shutdown timeout has passed.
func serve(server *http.Server, ln net.Listener, stop <-chan os.Signal, shutdownTimeout time.Duration, log *zap.Logger) error {
	done := make(chan error, 1)
	go func() {
		<-stop
		log.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		done <- server.Shutdown(ctx)
	}()

	if err := server.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return <-done
}
