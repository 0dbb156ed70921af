package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AutoPostAPI/calendar"
	"AutoPostAPI/config"
	"AutoPostAPI/database"
	"AutoPostAPI/generators"
	"AutoPostAPI/handlers"
	"AutoPostAPI/middleware"
	"AutoPostAPI/publishers"
	"AutoPostAPI/services"
	"AutoPostAPI/utils"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	loaded, err := config.LoadEnv()
	if err != nil {
		utils.Errorf("Failed to load env file: %v", err)
		os.Exit(1)
	}
	cfg := config.Load()
	utils.SetLogLevel(cfg.LogLevel)
	utils.SetLogFormat(cfg.LogFormat)
	utils.SetLogColor(cfg.LogColor)
	if len(loaded) > 0 {
		utils.Infof("Loaded environment from %v", loaded)
	}

	loc, err := cfg.Location()
	if err != nil {
		utils.Warnf("Unknown AUTOMATION_TIMEZONE %q, falling back to UTC: %v", cfg.Timezone, err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		utils.Errorf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	rules, err := calendar.LoadRuleSet(cfg.RulesFile)
	if err != nil {
		utils.Errorf("Failed to load occasion rules: %v", err)
		os.Exit(1)
	}
	if err := rules.Validate(); err != nil {
		utils.Warnf("Occasion catalog has problems, affected rules will be skipped: %v", err)
	}
	utils.Infof("Loaded %d occasion rules", len(rules))

	generator := generators.NewGenerator(generators.Config{
		GeminiAPIKey:      cfg.GeminiAPIKey,
		GeminiModel:       cfg.GeminiModel,
		GeminiBaseURL:     cfg.GeminiBaseURL,
		UnsplashAccessKey: cfg.UnsplashAccessKey,
		UnsplashBaseURL:   cfg.UnsplashBaseURL,
		VerifyImages:      cfg.VerifyImages,
		StubMode:          cfg.GeneratorStubMode,
		Timeout:           cfg.GenerationTimeout,
		MaxRetries:        cfg.GenerationMaxRetries,
		RetryDelay:        2 * time.Second,
	})

	metrics := services.NewMetrics(prometheus.DefaultRegisterer)
	provisioner := services.NewProvisioner(db, generator, metrics)
	sweeper := services.NewSweeper(db, publishers.NewSimulatedPublisher(), cfg.StalePostingAfter, metrics)
	automation := services.NewAutomationService(db, rules, provisioner, sweeper,
		calendar.AgendaOptions{Location: loc, StartHour: cfg.StartHour}, metrics)
	posts := services.NewPostService(db, generator, loc)

	scheduler := services.NewScheduler(automation, loc, cfg.DailySchedule, cfg.SweepSchedule)
	if err := scheduler.Start(); err != nil {
		utils.Errorf("Failed to start scheduler: %v", err)
		os.Exit(1)
	}

	handler := handlers.NewHandler(db.DB, db, automation, posts)
	r := setupRoutes(handler, services.NewTokenValidator(cfg.JWTSecret), cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Infof("Server starting on port %s (timezone %s)", cfg.Port, loc)
		printEndpoints()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Errorf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	utils.Infof("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Errorf("HTTP shutdown: %v", err)
	}
	scheduler.Stop()
}

func setupRoutes(h *handlers.Handler, tokens middleware.TokenValidator, cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins)))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	// Public routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.AuthMiddleware(tokens))

	// Automation triggers
	triggers := middleware.NewRateLimiter(cfg.TriggerRatePerMin, cfg.TriggerBurst)
	protected.HandleFunc("/automation/run-daily", triggers.LimitHandler(h.RunDaily)).Methods("POST")
	protected.HandleFunc("/automation/run-sweep", triggers.LimitHandler(h.RunSweep)).Methods("POST")

	// Occasions
	protected.HandleFunc("/occasions/today", h.TodayOccasions).Methods("GET")
	protected.HandleFunc("/occasions/upcoming", h.UpcomingOccasions).Methods("GET")

	// Posts
	protected.HandleFunc("/posts/generate", h.GeneratePost).Methods("POST")
	protected.HandleFunc("/posts/today", h.TodayPosts).Methods("GET")
	protected.HandleFunc("/posts", h.ListPosts).Methods("GET")
	protected.HandleFunc("/posts/{id}", h.GetPost).Methods("GET")
	protected.HandleFunc("/posts/{id}", h.DeletePost).Methods("DELETE")
	protected.HandleFunc("/posts/{id}/schedule", h.SchedulePost).Methods("POST")

	return r
}

func printEndpoints() {
	utils.Infof("Endpoints available:")
	utils.Infof("  GET    /health                      - Health check")
	utils.Infof("  GET    /metrics                     - Prometheus metrics")
	utils.Infof("  POST   /api/automation/run-daily    - Run daily provisioning now (auth)")
	utils.Infof("  POST   /api/automation/run-sweep    - Finalize due posts now (auth)")
	utils.Infof("  GET    /api/occasions/today         - Today's agenda preview (auth)")
	utils.Infof("  GET    /api/occasions/upcoming      - Upcoming yearly occasions (auth)")
	utils.Infof("  POST   /api/posts/generate          - Generate a draft post (auth)")
	utils.Infof("  GET    /api/posts                   - List posts (auth)")
	utils.Infof("  GET    /api/posts/today             - Today's scheduled posts (auth)")
	utils.Infof("  GET    /api/posts/{id}              - Get post (auth)")
	utils.Infof("  DELETE /api/posts/{id}              - Delete post (auth)")
	utils.Infof("  POST   /api/posts/{id}/schedule     - Schedule a draft (auth)")
}
