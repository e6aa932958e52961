package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/patente-quiz/backend/internal/analytics"
	"github.com/patente-quiz/backend/internal/audit"
	"github.com/patente-quiz/backend/internal/config"
	"github.com/patente-quiz/backend/internal/database"
	"github.com/patente-quiz/backend/internal/gamification"
	"github.com/patente-quiz/backend/internal/middleware"
	"github.com/patente-quiz/backend/internal/questions"
	"github.com/patente-quiz/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ranks, err := gamification.ParseRankTable(cfg.RankTable)
	if err != nil {
		log.Fatalf("Invalid RANK_TABLE: %v", err)
	}
	policy, err := gamification.PolicyByName(cfg.ResubmissionPolicy)
	if err != nil {
		log.Fatalf("Invalid RESUBMISSION_POLICY: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var repo store.Repository
	var questionSource gamification.QuestionSource

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.Connect(cfg.DB)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		questionStore := questions.NewStore(db)
		if cfg.QuestionsFile != "" {
			catalog, err := questions.LoadCatalog(cfg.QuestionsFile)
			if err != nil {
				log.Fatalf("Failed to load questions: %v", err)
			}
			n, err := questionStore.Import(ctx, catalog)
			if err != nil {
				log.Fatalf("Failed to import questions: %v", err)
			}
			log.Printf("[questions] imported %d questions from %s", n, cfg.QuestionsFile)
		}

		repo = store.NewPostgres(db)
		questionSource = questionStore

	case config.BackendMemory:
		if cfg.QuestionsFile == "" {
			log.Fatal("QUESTIONS_FILE is required with the memory store backend")
		}
		catalog, err := questions.LoadCatalog(cfg.QuestionsFile)
		if err != nil {
			log.Fatalf("Failed to load questions: %v", err)
		}
		log.Printf("[questions] loaded %d questions from %s", catalog.Len(), cfg.QuestionsFile)

		repo = store.NewMemory()
		questionSource = catalog
	}

	// Initialize services
	ledger := gamification.NewService(repo, questionSource, ranks, gamification.Options{
		XPPerCorrect: cfg.XPPerCorrect,
		Policy:       policy,
	})
	aggregator := analytics.NewService(repo, ledger, ranks, analytics.Options{
		HardestMinSamples:     cfg.HardestMinSamples,
		NotificationScanLimit: cfg.NotificationScanLimit,
	})
	log.Printf("[gamification] %d ranks, %d XP per correct answer, %s policy",
		len(ranks.Ranks()), cfg.XPPerCorrect, policy.Name())

	if cfg.AuditInterval > 0 {
		auditJobs := audit.NewScheduler(audit.NewAuditor(repo))
		if err := auditJobs.Start(cfg.AuditInterval); err != nil {
			log.Fatalf("Failed to schedule audit: %v", err)
		}
		defer auditJobs.Stop()
	}

	// Initialize handlers
	gamificationHandler := gamification.NewHandler(ledger)
	analyticsHandler := analytics.NewHandler(aggregator)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.Logging(log.Default()))
	api := r.PathPrefix("/api/v1").Subrouter()

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth([]byte(cfg.JWTSecret)))

	protected.HandleFunc("/answers", gamificationHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/progress", gamificationHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/progress/archive", gamificationHandler.ArchiveProgress).Methods("POST")

	protected.HandleFunc("/analytics/accuracy", analyticsHandler.GetAccuracy).Methods("GET")
	protected.HandleFunc("/analytics/hardest", analyticsHandler.GetHardest).Methods("GET")
	protected.HandleFunc("/analytics/trend", analyticsHandler.GetTrend).Methods("GET")
	protected.HandleFunc("/analytics/tip", analyticsHandler.GetTip).Methods("GET")
	protected.HandleFunc("/analytics/dashboard", analyticsHandler.GetDashboard).Methods("GET")
	protected.HandleFunc("/notifications", analyticsHandler.GetNotifications).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: c.Handler(r),
	}

	go func() {
		log.Printf("Server starting on :%s (%s store)", cfg.Port, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
