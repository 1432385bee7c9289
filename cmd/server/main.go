package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/hibiken/asynq"
	"github.com/schedcu/v2/internal/api"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/job"
	"github.com/schedcu/v2/internal/repository"
	"github.com/schedcu/v2/internal/repository/memory"
	"github.com/schedcu/v2/internal/repository/postgres"
)

func main() {
	redisAddr := envOrDefault("REDIS_ADDR", "localhost:6379")
	serverAddr := envOrDefault("SERVER_ADDR", ":8080")

	jobs, closeDB := newJobRepository()
	if closeDB != nil {
		defer closeDB()
	}

	scheduler, err := job.NewScheduler(redisAddr)
	if err != nil {
		log.Fatalf("failed to start job scheduler: %v", err)
	}
	defer scheduler.Close()

	cancels := job.NewCancelRegistry()
	handlers := job.NewHandlers(jobs, cancels)

	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)
	worker := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{Concurrency: envOrDefaultInt("MILP_WORKER_CONCURRENCY", 4)},
	)

	go func() {
		log.Println("starting asynq worker")
		if err := worker.Run(mux); err != nil {
			log.Fatalf("asynq worker stopped: %v", err)
		}
	}()

	router := api.NewRouter(scheduler, jobs, cancels, defaultOptionsFromEnv())

	go func() {
		log.Printf("starting HTTP server on %s", serverAddr)
		if err := router.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("shutting down")
	worker.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}

// newJobRepository picks postgres when DATABASE_URL is set, else the
// in-memory repository (suitable for local development and tests). The
// returned close func is nil for the in-memory case.
func newJobRepository() (repository.JobRepository, func()) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return memory.NewJobRepository(), nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("failed to reach postgres: %v", err)
	}
	if _, err := db.Exec(postgres.Schema); err != nil {
		log.Fatalf("failed to apply postgres schema: %v", err)
	}

	return postgres.NewJobRepository(db), func() { db.Close() }
}

// defaultOptionsFromEnv builds the fleet-wide Options defaults applied to
// any request that leaves the corresponding field unset.
func defaultOptionsFromEnv() entity.Options {
	return entity.Options{
		Solver:         envOrDefault("MILP_DEFAULT_SOLVER", "cpsat"),
		MaxSolveTimeMs: envOrDefaultInt("MILP_MAX_SOLVE_TIME_MS", 60000),
		CSPSettings: entity.CSPSettings{
			MaxIterations: envOrDefaultInt("MILP_POSTPROCESS_MAX_ITERATIONS", 400),
			TimeLimitMs:   envOrDefaultInt("MILP_POSTPROCESS_TIME_LIMIT_MS", 4000),
			TabuSize:      entity.IntPtr(envOrDefaultInt("MILP_POSTPROCESS_TABU_SIZE", 32)),
			MaxSameShift:  envOrDefaultInt("MILP_POSTPROCESS_MAX_SAME_SHIFT", 3),
			OffTolerance:  envOrDefaultInt("MILP_POSTPROCESS_OFF_TOLERANCE", 1),
			Annealing: entity.AnnealingSettings{
				Temperature: envOrDefaultFloat("MILP_POSTPROCESS_ANNEAL_TEMP", 5.0),
				CoolingRate: envOrDefaultFloat("MILP_POSTPROCESS_ANNEAL_COOL", 0.92),
			},
		},
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid int for %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("invalid float for %s=%q, using default %g", key, v, fallback)
		return fallback
	}
	return f
}
