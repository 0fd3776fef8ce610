// cmd/api/main.go
// Main entry point for the application with debug logging
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

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pairplan/pairplan-backend/internal/analysis"
	"github.com/pairplan/pairplan-backend/internal/auth"
	"github.com/pairplan/pairplan-backend/internal/common/database"
	"github.com/pairplan/pairplan-backend/internal/common/utils"
	"github.com/pairplan/pairplan-backend/internal/compat"
	"github.com/pairplan/pairplan-backend/internal/config"
	"github.com/pairplan/pairplan-backend/internal/notification"
	"github.com/pairplan/pairplan-backend/internal/retry"
	"github.com/pairplan/pairplan-backend/internal/session"
	"github.com/pairplan/pairplan-backend/internal/venues"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
)

func main() {
	// Enable detailed logging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting PairPlan Outing Planner API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	log.Println("✅ Configuration loaded")

	// 3. Validate configuration
	log.Println("\n✔️  Step 3: Validating configuration...")
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration is valid")

	// 4. Connect to PostgreSQL
	log.Println("\n🗄️  Step 4: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 5. Connect to Redis (optional)
	log.Println("\n📮 Step 5: Connecting to Redis...")
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), continuing without caching", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, skipping Redis connection")
	}

	// 6. Run database migrations
	log.Println("\n🔨 Step 6: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations: ", err)
	}
	log.Println("✅ Database migrations completed")

	// 7. Initialize the session module
	log.Println("\n🤝 Step 7: Initializing planning sessions...")

	flows := session.NewFlowTracker()
	sessionRepo := session.NewPostgresRepository(db)
	sessionService := session.NewService(sessionRepo, flows, cfg.SessionTTL)

	hub := session.NewHub(sessionRepo)
	go hub.Run()
	sessionService.SetBroadcaster(hub)
	log.Println("   ✅ WebSocket hub started")

	compatCache := compat.NewCache(redisClient, cfg.CompatCacheTTL)
	sessionService.SetCompatCache(compatCache)
	log.Println("✅ Planning sessions initialized")

	// 8. Initialize compatibility scoring
	log.Println("\n💞 Step 8: Initializing compatibility scoring...")

	var primaryScorer compat.Scorer
	var geminiScorer *compat.GeminiScorer
	if cfg.GeminiAPIKey != "" {
		geminiScorer, err = compat.NewGeminiScorer(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Printf("⚠️  Gemini scorer unavailable (%v), relying on deterministic scoring", err)
		} else {
			primaryScorer = geminiScorer
			defer geminiScorer.Close()
			log.Println("   ✅ Gemini scorer configured")
		}
	} else {
		log.Println("   ⚠️  GEMINI_API_KEY not set, relying on deterministic scoring")
	}
	fallbackScorer := compat.NewFallbackScorer()
	log.Println("✅ Compatibility scoring initialized")

	// 9. Initialize venue aggregation
	log.Println("\n📍 Step 9: Initializing venue aggregation...")

	venueCache := venues.NewQueryCache(redisClient, cfg.VenueCacheTTL)
	aggregator := venues.NewAggregator(seedSources(), venues.AggregatorConfig{
		SourceTimeout:    cfg.SourceTimeout,
		PerSourceLimit:   cfg.PerSourceLimit,
		GlobalLimit:      cfg.GlobalVenueLimit,
		MinCandidates:    cfg.MinCandidates,
		NameSimilarity:   cfg.NameSimilarity,
		CoordToleranceKm: cfg.CoordToleranceKm,
	}, venueCache)
	ranker := venues.NewRanker(cfg.MaxRecommendations)
	log.Println("✅ Venue aggregation initialized")

	// 10. Initialize the analysis orchestrator
	log.Println("\n🧠 Step 10: Initializing analysis orchestrator...")

	analysisService := analysis.NewService(
		sessionService,
		flows,
		primaryScorer,
		fallbackScorer,
		compatCache,
		aggregator,
		ranker,
		analysis.Config{
			RetryPolicy:   retry.Policy{MaxAttempts: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay},
			ScorerTimeout: cfg.ScorerTimeout,
			DefaultRadius: 5,
		},
	)
	sessionService.SetRecommendations(analysisService)
	log.Println("✅ Analysis orchestrator initialized")

	// 11. Initialize invitations
	log.Println("\n💌 Step 11: Initializing invitations...")

	var emailProvider notification.EmailProvider
	switch cfg.NotifyProvider {
	case "sendgrid":
		emailProvider = notification.NewSendGridEmailProvider(cfg.SendGridAPIKey, cfg.EmailFrom)
		log.Println("   ✅ Using SendGrid for invitation emails")
	case "log":
		emailProvider = notification.NewLogEmailProvider()
		log.Println("   ⚠️  Logging invitations instead of delivering them")
	default:
		emailProvider = notification.NewMockEmailProvider()
		log.Println("   ⚠️  Using mock email provider (development mode)")
	}

	inviter := notification.NewInviter(emailProvider, notification.NewPostgresDirectory(db))
	sessionService.SetNotifier(inviter)
	log.Println("✅ Invitations initialized")

	// 12. Setup routes
	log.Println("\n🛣️  Step 12: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck(hub)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	sessionHandler := session.NewHandler(sessionService, hub)
	session.RegisterRoutes(router, sessionHandler, authMiddleware)
	log.Println("   ✅ Session routes registered")

	analysisHandler := analysis.NewHandler(analysisService)
	analysis.RegisterRoutes(router, analysisHandler, authMiddleware)
	log.Println("   ✅ Analysis routes registered")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 13. Start the expiry sweep
	log.Println("\n⏰ Step 13: Starting expiry sweep...")
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	session.NewScheduler(sessionService, cfg.ExpirySweepPeriod).Start(sweepCtx)
	log.Println("✅ Expiry sweep started")

	// 14. Create and start HTTP server
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

	log.Println("   - Shutting down session hub...")
	hub.Shutdown()
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

// runMigrations brings the schema up to date. Statements are idempotent.
func runMigrations(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			display_name VARCHAR(100),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS planning_sessions (
			id UUID PRIMARY KEY,
			initiator_id BIGINT NOT NULL REFERENCES users(id),
			partner_id BIGINT NOT NULL REFERENCES users(id),
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			initiator_preferences_complete BOOLEAN NOT NULL DEFAULT FALSE,
			partner_preferences_complete BOOLEAN NOT NULL DEFAULT FALSE,
			both_preferences_complete BOOLEAN NOT NULL DEFAULT FALSE,
			initiator_preferences JSONB,
			partner_preferences JSONB,
			compatibility_score DOUBLE PRECISION,
			selected_venue_id VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMPTZ NOT NULL,
			CONSTRAINT no_self_pairing CHECK (initiator_id <> partner_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_planning_sessions_pair
			ON planning_sessions (initiator_id, partner_id) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_planning_sessions_expiry
			ON planning_sessions (expires_at) WHERE status = 'active'`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// seedSources is the development venue catalog. Real provider clients plug in
// behind the same Source interface.
func seedSources() []venues.Source {
	rating := func(v float64) *float64 { return &v }
	price := func(p string) *string { return &p }
	coord := func(c float64) *float64 { return &c }

	downtown := venues.NewStaticSource("downtown", []venues.RawVenue{
		{SourceID: "dt-1", Source: "downtown", Name: "Luigi's Trattoria", Address: "12 Mulberry St", Category: "italian", Tags: []string{"romantic", "cozy"}, Rating: rating(4.5), PriceTier: price("$$"), Latitude: coord(40.7191), Longitude: coord(-73.9973)},
		{SourceID: "dt-2", Source: "downtown", Name: "Sakura Sushi", Address: "88 Mott St", Category: "japanese", Tags: []string{"quiet", "intimate"}, Rating: rating(4.7), PriceTier: price("$$$"), Latitude: coord(40.7170), Longitude: coord(-73.9986)},
		{SourceID: "dt-3", Source: "downtown", Name: "El Farolito", Address: "24 Essex St", Category: "mexican", Tags: []string{"lively", "casual"}, Rating: rating(4.3), PriceTier: price("$"), Latitude: coord(40.7154), Longitude: coord(-73.9890)},
		{SourceID: "dt-4", Source: "downtown", Name: "Blue Note Jazz Club", Address: "131 W 3rd St", Category: "bar", Tags: []string{"live-music", "romantic"}, Rating: rating(4.6), PriceTier: price("$$$"), Latitude: coord(40.7308), Longitude: coord(-74.0007)},
	})

	uptown := venues.NewStaticSource("uptown", []venues.RawVenue{
		{SourceID: "ut-1", Source: "uptown", Name: "Luigis Trattoria", Address: "12 Mulberry Street", Category: "italian", Tags: []string{"italian", "date-night"}, Rating: rating(4.4), PriceTier: price("$$"), Latitude: coord(40.7192), Longitude: coord(-73.9974)},
		{SourceID: "ut-2", Source: "uptown", Name: "The Golden Dragon", Address: "310 Amsterdam Ave", Category: "chinese", Tags: []string{"family", "casual"}, Rating: rating(4.1), PriceTier: price("$$"), Latitude: coord(40.7812), Longitude: coord(-73.9810)},
		{SourceID: "ut-3", Source: "uptown", Name: "Corner Cafe", Address: "951 Columbus Ave", Category: "cafe", Tags: []string{"brunch", "cozy"}, Rating: rating(4.2), PriceTier: price("$"), Latitude: coord(40.7990), Longitude: coord(-73.9610)},
	})

	return []venues.Source{downtown, uptown}
}

func healthCheck(hub *session.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":        "healthy",
			"timestamp":     time.Now().Format(time.RFC3339),
			"subscriptions": hub.ActiveSubscriptions(),
		})
	}
}

// loggingMiddleware logs each request with its duration
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

// corsMiddleware handles cross-origin requests
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
