package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nafsAPI/handlers"
	"nafsAPI/internal/catalog"
	"nafsAPI/internal/config"
	"nafsAPI/internal/day"
	"nafsAPI/internal/store/postgres"
	"nafsAPI/middleware"
	"nafsAPI/services"
	"nafsAPI/utils"

	_ "net/http/pprof"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := utils.NewLogger(cfg.LogFile, cfg.LogLevel)
	defer logger.Sync()
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	clerk.SetKey(cfg.ClerkSecretKey)
	logger.Info("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	dbPool, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		logger.Info("Closing database connection pool...")
		dbPool.Close()
	}()

	st := postgres.New(dbPool)
	if err := st.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	if err := cat.Seed(ctx, st); err != nil {
		logger.Fatal("Failed to seed catalog", zap.Error(err))
	}
	logger.Info("Database ready",
		zap.Int("dimensions", len(cat.Dimensions())),
		zap.Int("challenges", len(cat.Challenges())),
	)

	middleware.InitPrometheus()
	services.InitMetrics()

	clock := day.SystemClock{}
	dimensionService := services.NewDimensionService(st, cfg.DimensionBaseline, clock, logger)
	scheduleService := services.NewScheduleService(st, clock, logger)
	challengeService := services.NewChallengeService(st, scheduleService, clock, logger)
	streakService := services.NewStreakService(st, clock, logger)
	taskService := services.NewTaskService(st, dimensionService, challengeService, streakService, clock, logger)
	userService := services.NewUserService(st, dimensionService, clock, logger)

	userHandler := handlers.NewUserHandler(userService, dimensionService, streakService)
	challengeHandler := handlers.NewChallengeHandler(userService, challengeService, scheduleService, dimensionService)
	taskHandler := handlers.NewTaskHandler(userService, taskService, scheduleService)
	webhookHandler, err := handlers.NewWebhookHandler(userService, cfg.ClerkWebhookSecret, logger)
	if err != nil {
		logger.Fatal("Invalid webhook configuration", zap.Error(err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(5, 30)
	go limiter.CleanupVisitors(rootCtx)

	r := mux.NewRouter()
	r.Use(middleware.Recovery(logger))

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(limiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)
	standardRouter.Use(middleware.RequestLogger(logger))

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret)(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := st.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "nafs-api"}`))
	}).Methods("GET")

	standardRouter.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/catalog/dimensions", challengeHandler.ListDimensions).Methods("GET")
	api.HandleFunc("/catalog/challenges", challengeHandler.ListChallenges).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware(middleware.ClerkVerify, logger))

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/dimensions", userHandler.GetDimensions).Methods("GET")
	protected.HandleFunc("/user/calendar", userHandler.GetCalendar).Methods("GET")
	protected.HandleFunc("/user/streak/check", userHandler.CheckStreak).Methods("POST")
	protected.HandleFunc("/user/streak/complete-day", userHandler.CompleteDay).Methods("POST")

	protected.HandleFunc("/challenge/current", challengeHandler.GetCurrent).Methods("GET")
	protected.HandleFunc("/challenge/status", challengeHandler.GetStatus).Methods("GET")
	protected.HandleFunc("/challenge/enroll", challengeHandler.Enroll).Methods("POST")
	protected.HandleFunc("/challenge/custom", challengeHandler.CreateCustom).Methods("POST")
	protected.HandleFunc("/challenge/{enrollmentId}/generate", challengeHandler.Generate).Methods("POST")
	protected.HandleFunc("/challenge/{enrollmentId}/complete", challengeHandler.Complete).Methods("POST")
	protected.HandleFunc("/challenge/{enrollmentId}/abandon", challengeHandler.Abandon).Methods("POST")

	protected.HandleFunc("/tasks/today", taskHandler.Today).Methods("GET")
	protected.HandleFunc("/tasks/{dailyTaskId}/complete", taskHandler.Complete).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Error starting server", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server shutdown complete")
}
