package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/proctorhub/proctorhub-backend/internal/audit"
	"github.com/proctorhub/proctorhub-backend/internal/config"
	"github.com/proctorhub/proctorhub-backend/internal/crypto"
	"github.com/proctorhub/proctorhub-backend/internal/database"
	"github.com/proctorhub/proctorhub-backend/internal/handler"
	"github.com/proctorhub/proctorhub-backend/internal/logger"
	"github.com/proctorhub/proctorhub-backend/internal/repository"
	"github.com/proctorhub/proctorhub-backend/internal/router"
	"github.com/proctorhub/proctorhub-backend/internal/service"
	"github.com/proctorhub/proctorhub-backend/internal/store"
	"github.com/proctorhub/proctorhub-backend/internal/validator"
	"github.com/proctorhub/proctorhub-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ProctorHub Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	cipher, err := crypto.New(cfg.EncryptionSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize question cipher")
	}

	// Repositories
	studentRepo := repository.NewStudentRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	resultRepo := repository.NewResultRepository(pool)

	// Session store and audit sink
	sessions := store.NewSessionStore(rdb, cfg.SessionGrace)
	sink := audit.NewRedisSink(rdb, log)

	// Services
	authService := service.NewAuthService(cfg, rdb, studentRepo)
	questionService := service.NewQuestionService(questionRepo, cipher, log)
	sessionService := service.NewSessionService(
		testRepo, assignmentRepo, resultRepo, questionRepo, questionService, sessions, sink, log)
	gradingService := service.NewGradingService(
		testRepo, resultRepo, questionService, sessions, cipher, sink, log)

	// Handlers
	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(authService, studentRepo),
		Exam:   handler.NewExamHandler(sessionService, gradingService, resultRepo, assignmentRepo),
		System: handler.NewSystemHandler(pool, rdb),
	}

	// Background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())

	auditWorker := worker.NewAuditWorker(pool, rdb, log)
	reaperWorker := worker.NewReaperWorker(sessions, gradingService, assignmentRepo, cfg.ReaperInterval, log)

	go auditWorker.Start(workerCtx)
	go reaperWorker.Start(workerCtx)

	r := router.SetupRouter(authService, handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
