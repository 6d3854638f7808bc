package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cps-exam-service/internal/app"
	"cps-exam-service/internal/config"
	"cps-exam-service/internal/exam"
	"cps-exam-service/internal/infra/memory"
	pgstore "cps-exam-service/internal/infra/postgres"
	redisstore "cps-exam-service/internal/infra/redis"
	"cps-exam-service/internal/logger"
	transport "cps-exam-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	service := app.NewExamService(deps.sessions, deps.exams, deps.attempts, serviceOptions(cfg, log))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewMux(service, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting exam service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// deps groups the storage adapters chosen from config.
type deps struct {
	sessions app.SessionRepository
	exams    app.ExamRepository
	attempts app.AttemptRecorder
	loader   memory.ExamLoader
	pool     *pgxpool.Pool
	redis    *redis.Client
}

func (d deps) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

// buildDeps prefers Postgres for content and history and Redis for caching,
// falling back to in-memory adapters for whatever is not configured.
func buildDeps(ctx context.Context, cfg config.Config, log zerolog.Logger) (deps, error) {
	var d deps
	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return deps{}, err
		}
		d.pool = pool
	}

	d.loader = memory.NewStaticExamLoader(memory.SampleExams())
	if d.pool != nil {
		d.loader = pgstore.NewExamLoader(d.pool)
	}

	examTTL := config.TTLDuration(cfg.Exam.TTL, 10*time.Minute)
	switch {
	case d.redis != nil:
		d.exams = redisstore.NewExamRepository(d.redis, d.loader, examTTL)
		d.sessions = redisstore.NewSessionStore(d.redis, redisTTL)
	default:
		d.exams = memory.NewExamRepository(d.loader, examTTL)
		d.sessions = memory.NewSessionStore()
	}

	switch {
	case d.pool != nil:
		d.attempts = pgstore.NewAttemptRecorder(d.pool)
	case d.redis != nil:
		d.attempts = redisstore.NewAttemptStore(d.redis, cfg.Redis.History)
	default:
		d.attempts = memory.NewAttemptStore()
	}

	log.Debug().
		Bool("postgres", d.pool != nil).
		Bool("redis", d.redis != nil).
		Msg("storage configured")
	return d, nil
}

func serviceOptions(cfg config.Config, log zerolog.Logger) app.Options {
	return app.Options{
		TimeLimit:    cfg.Exam.TimeLimit,
		TickInterval: config.TTLDuration(cfg.Exam.TickInterval, exam.DefaultTickInterval),
		Benchmark:    app.Benchmark{Threshold: cfg.Exam.PassThreshold},
		Logger:       log,
	}
}
