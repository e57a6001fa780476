// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onematch/onematch-backend/internal/auth"
	"github.com/onematch/onematch-backend/internal/common/database"
	"github.com/onematch/onematch-backend/internal/common/utils"
	"github.com/onematch/onematch-backend/internal/config"
	"github.com/onematch/onematch-backend/internal/matchmaking"
	"github.com/onematch/onematch-backend/internal/messaging"
	"github.com/onematch/onematch-backend/internal/notifications"
	"github.com/onematch/onematch-backend/internal/profile"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting OneMatch API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load and validate configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration loaded and valid")

	// 3. Connect to PostgreSQL
	log.Println("\n🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("❌ Failed to ping PostgreSQL:", err)
	}
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis (optional; enables cross-instance locking)
	log.Println("\n📮 Step 4: Connecting to Redis...")
	var redisClient *redis.Client

	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable: %v, continuing without Redis", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, skipping Redis connection")
	}

	// 5. Run database migrations
	log.Println("\n🔨 Step 5: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations: ", err)
	}
	log.Println("✅ Database migrations completed")

	// 6. Initialize the matchmaking engine
	log.Println("\n💘 Step 6: Initializing Matchmaking engine...")

	var locker matchmaking.Locker
	if redisClient != nil {
		locker = matchmaking.NewRedisLocker(redisClient)
		log.Println("   ✅ Using Redis-backed locks")
	} else {
		locker = matchmaking.NewLockTable()
		log.Println("   ⚠️  Using in-process locks (single instance only)")
	}

	profileRepo := profile.NewPostgresRepository(db)
	matchmakingRepo := matchmaking.NewPostgresRepository(db)
	matchmakingService := matchmaking.NewService(matchmakingRepo, profileRepo, locker, matchmaking.Settings{
		MilestoneThreshold:  cfg.MilestoneThreshold,
		InitiatorReflection: cfg.InitiatorReflection,
		RecipientReflection: cfg.RecipientReflection,
		Weights: matchmaking.ScoreWeights{
			Personality:       cfg.WeightPersonality,
			Emotional:         cfg.WeightEmotional,
			Interest:          cfg.WeightInterest,
			RelationshipGoals: cfg.WeightRelationshipGoals,
		},
	})
	matchmakingHandler := matchmaking.NewHandler(matchmakingService)
	log.Println("✅ Matchmaking engine initialized")

	// 7. Initialize Messaging module
	log.Println("\n💬 Step 7: Initializing Messaging module...")

	messagingHub := messaging.NewHub()
	go messagingHub.Run()
	log.Println("   ✅ WebSocket hub started")

	messagingRepo := messaging.NewPostgresRepository(db)
	messagingService := messaging.NewService(messagingRepo, matchmakingService, messagingHub, messaging.Settings{
		MilestoneThreshold: cfg.MilestoneThreshold,
		ConversationWindow: cfg.ConversationWindow,
		MaxMessageLength:   cfg.MaxMessageLength,
	})
	messagingHandler := messaging.NewHandler(messagingService, messagingHub)
	log.Println("✅ Messaging module initialized")

	// 8. Initialize Notifications module
	log.Println("\n🔔 Step 8: Initializing Notifications module...")
	notificationsService := notifications.NewService(matchmakingService, messagingRepo)
	notificationsHandler := notifications.NewHandler(notificationsService)
	log.Println("✅ Notifications module initialized")

	// 9. Setup routes
	log.Println("\n🛣️  Step 9: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck(messagingHub)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	matchmaking.RegisterRoutes(router, matchmakingHandler, authMiddleware)
	log.Println("   ✅ Matchmaking routes registered")

	messaging.RegisterRoutes(router, messagingHandler, authMiddleware)
	log.Println("   ✅ Messaging routes registered")

	notifications.RegisterRoutes(router, notificationsHandler, authMiddleware)
	log.Println("   ✅ Notifications routes registered")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 10. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")

	log.Println("   - Shutting down messaging hub...")
	messagingHub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

func healthCheck(hub *messaging.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":             "healthy",
			"time":               time.Now().UTC().Format(time.RFC3339),
			"active_connections": hub.ActiveConnections(),
		})
	}
}

// loggingMiddleware logs each request with method, path and duration
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

// corsMiddleware adds CORS headers for the mobile and web clients
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

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE,
			name VARCHAR(100) NOT NULL,
			age INTEGER,
			gender VARCHAR(20),
			location VARCHAR(255),
			bio TEXT,
			profile_picture TEXT,
			is_profile_complete BOOLEAN DEFAULT FALSE,
			personality JSONB,
			emotional_patterns JSONB,
			relationship_preferences JSONB,
			interests TEXT[] DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id UUID PRIMARY KEY,
			user1_id BIGINT NOT NULL REFERENCES users(id),
			user2_id BIGINT NOT NULL REFERENCES users(id),
			match_date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			end_date TIMESTAMPTZ,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			compatibility_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			personality_match DOUBLE PRECISION NOT NULL DEFAULT 0,
			emotional_match DOUBLE PRECISION NOT NULL DEFAULT 0,
			interest_match DOUBLE PRECISION NOT NULL DEFAULT 0,
			relationship_goals_match DOUBLE PRECISION NOT NULL DEFAULT 0,
			message_count INTEGER NOT NULL DEFAULT 0,
			milestone_reached BOOLEAN NOT NULL DEFAULT FALSE,
			milestone_reached_at TIMESTAMPTZ,
			unpinned_by BIGINT,
			unpin_reason VARCHAR(50),
			unpin_details TEXT,
			CHECK (user1_id < user2_id)
		)`,

		// At most one ongoing match per user, enforced by the database
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_user1_ongoing
			ON matches (user1_id) WHERE status IN ('active', 'pinned')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_user2_ongoing
			ON matches (user2_id) WHERE status IN ('active', 'pinned')`,

		`CREATE TABLE IF NOT EXISTS user_states (
			user_id BIGINT PRIMARY KEY REFERENCES users(id),
			current_state VARCHAR(20) NOT NULL DEFAULT 'available'
				CHECK (current_state IN ('available', 'matched', 'pinned', 'frozen')),
			current_match UUID REFERENCES matches(id),
			state_start_time TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			state_end_time TIMESTAMPTZ,
			reflection_period_end TIMESTAMPTZ,
			message_count INTEGER NOT NULL DEFAULT 0,
			milestone_reached BOOLEAN NOT NULL DEFAULT FALSE,
			last_feedback_reason VARCHAR(50),
			last_feedback_details TEXT,
			last_feedback_received_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS user_match_history (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			match_id UUID NOT NULL REFERENCES matches(id),
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			status VARCHAR(20) NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			milestone_reached BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_match_history_user
			ON user_match_history (user_id)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			match_id UUID NOT NULL REFERENCES matches(id),
			sender_id BIGINT NOT NULL REFERENCES users(id),
			receiver_id BIGINT NOT NULL REFERENCES users(id),
			content TEXT NOT NULL DEFAULT '',
			message_type VARCHAR(10) NOT NULL DEFAULT 'text',
			voice_url TEXT,
			duration INTEGER,
			message_number INTEGER NOT NULL,
			contributes_to_milestone BOOLEAN NOT NULL DEFAULT TRUE,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			read_at TIMESTAMPTZ,
			client_message_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_match
			ON messages (match_id, created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_client_id
			ON messages (match_id, client_message_id)
			WHERE client_message_id IS NOT NULL`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
