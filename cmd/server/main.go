package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-server/internal/auth"
	"chat-server/internal/config"
	"chat-server/internal/directory"
	"chat-server/internal/engine"
	"chat-server/internal/handlers"
	"chat-server/internal/metrics"
	"chat-server/internal/upload"
	"chat-server/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Account directory: Postgres when configured, in-memory otherwise
	var dir directory.Directory
	if cfg.Chat.DirectoryURL != "" {
		pg, err := directory.NewPostgres(cfg.Chat.DirectoryURL)
		if err != nil {
			logger.Fatal("Failed to connect to account directory: %v", err)
		}
		dir = pg
	} else {
		logger.Info("No DATABASE_URL configured, keeping accounts in memory")
		dir = directory.NewMemory()
	}
	defer dir.Close()

	// Initialize services
	authService := auth.NewService(dir, cfg)
	eng := engine.New(engine.Options{
		HistoryCap:  cfg.Chat.HistoryCap,
		DefaultRoom: cfg.Chat.DefaultRoom,
		SeedRooms:   cfg.Chat.SeedRooms,
	})
	store, err := upload.NewStore(cfg.Upload.Dir)
	if err != nil {
		logger.Fatal("Failed to initialize upload store: %v", err)
	}

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	apiHandlers := handlers.NewAPIHandlers(eng)
	uploadHandlers := handlers.NewUploadHandlers(store, cfg.Upload.MaxSize)
	wsHandlers := handlers.NewWebSocketHandlers(authService, eng)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, apiHandlers, uploadHandlers, wsHandlers, store)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

func setupRoutes(
	mux *http.ServeMux,
	authHandlers *handlers.AuthHandlers,
	apiHandlers *handlers.APIHandlers,
	uploadHandlers *handlers.UploadHandlers,
	wsHandlers *handlers.WebSocketHandlers,
	store *upload.Store,
) {
	// Auth routes
	mux.HandleFunc("/api/login", authHandlers.Login)
	mux.HandleFunc("/api/register", authHandlers.Register)

	// Chat read-side routes
	mux.HandleFunc("/api/messages", apiHandlers.Messages)
	mux.HandleFunc("/api/search", apiHandlers.Search)
	mux.HandleFunc("/api/rooms", apiHandlers.Rooms)
	mux.HandleFunc("/api/members", apiHandlers.Members)
	mux.HandleFunc("/api/users", apiHandlers.Users)

	// Attachments
	mux.HandleFunc("/api/upload", uploadHandlers.Upload)
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(store.Dir()))))

	// Telemetry
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
