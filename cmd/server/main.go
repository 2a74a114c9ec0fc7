package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Baalavignesh/DiggerMan/internal/auth"
	"github.com/Baalavignesh/DiggerMan/internal/config"
	"github.com/Baalavignesh/DiggerMan/internal/database"
	"github.com/Baalavignesh/DiggerMan/internal/handlers"
	"github.com/Baalavignesh/DiggerMan/internal/hub"
	"github.com/Baalavignesh/DiggerMan/internal/identity"
	"github.com/Baalavignesh/DiggerMan/internal/leaderboard"
	"github.com/Baalavignesh/DiggerMan/internal/ledger"
	"github.com/Baalavignesh/DiggerMan/internal/middleware"
	"github.com/Baalavignesh/DiggerMan/internal/redis"
	"github.com/Baalavignesh/DiggerMan/internal/router"
	"github.com/Baalavignesh/DiggerMan/internal/session"
	"github.com/Baalavignesh/DiggerMan/internal/store"
	"github.com/Baalavignesh/DiggerMan/internal/telemetry"
)

// Store backends
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port      string `env:"PORT" envDefault:"8080"`
	Backend   string `env:"STORE_BACKEND" envDefault:"redis"`
	DevTokens bool   `env:"DEV_TOKENS" envDefault:"false"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration from environment
	cfg := &ServerConfig{}
	if err := config.ParseEnv(cfg); err != nil {
		log.Fatalf("[API] Failed to load server config: %v", err)
	}

	telemetryCfg, err := telemetry.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("[API] %v", err)
	}
	shutdownTracing, err := telemetry.Setup(ctx, telemetryCfg, "diggerman")
	if err != nil {
		log.Fatalf("[API] Failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize store
	log.Printf("[API] Initializing %s store...", cfg.Backend)
	st, closer, err := openStore(cfg.Backend)
	if err != nil {
		log.Fatalf("[API] Failed to open store: %v", err)
	}
	defer closer.Close()

	authCfg, err := auth.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("[API] Failed to load auth config: %v", err)
	}
	signer, err := auth.NewSigner(authCfg)
	if err != nil {
		log.Fatalf("[API] Failed to create token signer: %v", err)
	}

	// Initialize services
	scores := ledger.New(st)
	names := identity.NewService(st, scores)
	engine := leaderboard.NewEngine(st)
	viewers := hub.New()
	msgRouter := router.New(router.Deps{
		Identity:    names,
		Ledger:      scores,
		Leaderboard: engine,
		Sessions:    session.New(st, names),
		Broadcaster: viewers,
	})

	// Initialize handlers
	leaderboardHandler := handlers.NewLeaderboardHandler(engine, names)
	playerHandler := handlers.NewPlayerHandler(msgRouter)
	messageHandler := handlers.NewMessageHandler(msgRouter)
	presenceHandler := handlers.NewPresenceHandler(viewers)
	webViewHandler := handlers.NewWebViewHandler(msgRouter, viewers)

	// Setup HTTP routes
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"backend": cfg.Backend,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// Post routes
	mux.HandleFunc("GET /api/posts/{postID}/leaderboard", middleware.ResolveViewer(signer, leaderboardHandler.GetLeaderboard))
	mux.HandleFunc("POST /api/posts/{postID}/players", middleware.ResolveViewer(signer, playerHandler.RegisterPlayer))
	mux.HandleFunc("POST /api/posts/{postID}/messages", middleware.ResolveViewer(signer, messageHandler.PostMessage))
	mux.HandleFunc("GET /api/posts/{postID}/presence", middleware.ResolveViewer(signer, presenceHandler.GetPresence))

	// Web view channel
	mux.HandleFunc("GET /ws", middleware.ResolveViewer(signer, webViewHandler.Connect))

	if cfg.DevTokens {
		log.Println("[API] Dev token endpoint enabled")
		mux.HandleFunc("POST /api/dev/token", handlers.NewAuthHandler(signer).IssueDevToken)
	}

	handler := middleware.Logger(corsMiddleware(mux))

	// Websocket connections are long lived, so only header reads are bounded.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("[API] Starting server on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[API] Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[API] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Graceful shutdown failed: %v", err)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore connects the configured backend
func openStore(backend string) (store.Store, io.Closer, error) {
	switch backend {
	case BackendRedis:
		redisCfg, err := redis.LoadConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		client, err := redis.NewClient(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewStore(client), client, nil

	case BackendPostgres, BackendSQLite:
		dbCfg, err := database.LoadConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		dbCfg.Driver = backend
		db, err := database.NewConnection(dbCfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.InitSchema(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, db, nil

	case BackendMemory:
		log.Println("[API] Using in-memory store; state is lost on restart")
		return store.NewMemory(), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unsupported store backend %q", backend)
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
