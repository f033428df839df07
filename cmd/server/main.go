package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wellmind/internal/cache"
	"wellmind/internal/config"
	"wellmind/internal/logging"
	"wellmind/internal/repository"
	"wellmind/internal/service"
	"wellmind/internal/transport/rest"
	"wellmind/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log := logging.New("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for name, b := range map[string]config.BackendConfig{
		"prediction": cfg.Backends.Prediction,
		"clustering": cfg.Backends.Clustering,
		"chat":       cfg.Backends.Chat,
		"synthetic":  cfg.Backends.Synthetic,
	} {
		log.Info("backend configured", "name", name, "enabled", b.IsEnabled(), "url", b.BaseURL)
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Error("failed to ping MongoDB", "error", err)
		os.Exit(1)
	}
	log.Info("connected to MongoDB", "database", cfg.MongoDatabase)

	db := mongoClient.Database(cfg.MongoDatabase)
	if err := repository.EnsureAlertIndexes(ctx, db); err != nil {
		log.Error("failed to create alert indexes", "error", err)
		os.Exit(1)
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Error("failed to ping Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis", "addr", cfg.RedisAddr)

	wsHub := ws.NewHub()
	defer wsHub.Close()

	// Initialize repositories
	outcomeRepo := repository.NewOutcomeRepo(db)
	interventionRepo := repository.NewInterventionRepo(db)
	predictionRepo := repository.NewPredictionRepo(db)
	alertRepo := repository.NewAlertRepo(db)

	// Initialize caches
	clusterStates := cache.NewClusterStateCache(rdb)
	alertClaims := cache.NewAlertCache(rdb)
	catalogMirror := cache.NewCatalogCache(rdb)
	healthReports := cache.NewHealthCache(rdb, healthReportTTL(cfg.HealthPollInterval))
	riskBoard := cache.NewRiskBoardCache(rdb)
	interventionStats := cache.NewStatsCache(rdb)

	// Initialize services
	backends := service.NewBackends(cfg.Backends)
	catalogStore := service.NewCatalogStore()
	catalogSvc := service.NewCatalogService(catalogStore, backends.Clustering, catalogMirror, cfg.ClusterCount)
	if err := catalogSvc.Restore(ctx); err != nil {
		log.Warn("cluster catalog not restored", "error", err)
	}

	authSvc := service.NewAuthService(cfg.ProfessionalUsername, cfg.ProfessionalPassword, cfg.JWTSecret)
	crisisSvc := service.NewCrisisService(alertClaims, alertRepo, wsHub)
	assessmentSvc := service.NewAssessmentService(
		backends.Prediction,
		backends.Clustering,
		backends.Chat,
		service.NewClusterAssigner(cfg.BoundaryEpsilon),
		catalogStore,
		clusterStates,
		riskBoard,
		predictionRepo,
		crisisSvc,
	)
	outcomeSvc := service.NewOutcomeService(outcomeRepo, interventionRepo, assessmentSvc, backends.Synthetic, interventionStats)
	healthSvc := service.NewHealthService(backends, healthReports)

	report := healthSvc.Report(ctx, true)
	log.Info("backend health", "status", report.Status)
	if cfg.HealthPollInterval > 0 {
		go healthSvc.Run(ctx, cfg.HealthPollInterval)
	}

	router := rest.NewRouter(&rest.Container{
		AuthService:       authSvc,
		AssessmentService: assessmentSvc,
		OutcomeService:    outcomeSvc,
		CrisisService:     crisisSvc,
		CatalogService:    catalogSvc,
		HealthService:     healthSvc,
		WSHub:             wsHub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ListenAndServe failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

// healthReportTTL keeps a shared report alive for a few poll intervals
func healthReportTTL(interval time.Duration) time.Duration {
	if interval <= 0 {
		return time.Minute
	}
	return 3 * interval
}
