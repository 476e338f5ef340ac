package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"github.com/lendaworks/paybridge/internal/config"
	"github.com/lendaworks/paybridge/internal/database"
	"github.com/lendaworks/paybridge/internal/handlers"
	"github.com/lendaworks/paybridge/internal/jobs"
	"github.com/lendaworks/paybridge/internal/middleware"
	"github.com/lendaworks/paybridge/internal/queue"
	"github.com/lendaworks/paybridge/internal/routes"
	"github.com/lendaworks/paybridge/internal/services/loanbook"
	"github.com/lendaworks/paybridge/internal/services/reconcile"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.LoadConfig()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx := context.Background()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	// Loan book adapters.
	resolver := loanbook.NewResolver(db)
	applier := loanbook.NewApplier(db)
	store := loanbook.NewNotificationStore(db)

	// Replay queue and the engine wired to it.
	replayQueue := queue.NewRedisQueue(redisClient)
	gapReporter := jobs.NewQueueGapReporter(replayQueue, cfg.Reconcile.ReplayDelay,
		cfg.Reconcile.ReplayMaxRetries, log)
	engine := reconcile.NewEngine(resolver, resolver, applier, store, gapReporter, log)

	// Replay workers drain gap jobs back through the engine.
	replayJob := jobs.NewReplayJob(store, engine, log)
	replayWorker := queue.NewWorker(replayQueue, jobs.QueueReconcileReplay,
		replayJob.Handle, cfg.Reconcile.ReplayWorkers, log)
	replayWorker.Start()

	// Scheduled gap scan for operator alerting.
	scheduler := gocron.NewScheduler(time.UTC)
	gapReport := jobs.NewGapReportJob(store, replayQueue, log)
	if err := gapReport.Schedule(scheduler, cfg.Reconcile.GapScanInterval); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule gap scan")
	}
	scheduler.StartAsync()

	// HTTP surface.
	rateLimiter := middleware.NewRateLimiter(cfg.C2B.RateLimit, cfg.C2B.RateBurst)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	c2bHandler := handlers.NewC2BHandler(engine, resolver, log)
	routes.SetupC2BRoutes(router, c2bHandler,
		middleware.SourceAuth(cfg.C2B.SourceToken),
		rateLimiter.Middleware(),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Str("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	scheduler.Stop()
	replayWorker.Stop()
	rateLimiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exiting")
}
