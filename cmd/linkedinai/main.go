// Command linkedinai runs the scheduled-publishing service: the HTTP
// API, the queue workers, and the periodic sweep and recurrence jobs,
// all in one process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Shivang0/linkedinai/internal/api"
	"github.com/Shivang0/linkedinai/internal/config"
	"github.com/Shivang0/linkedinai/internal/db"
	"github.com/Shivang0/linkedinai/internal/linkedin"
	"github.com/Shivang0/linkedinai/internal/logger"
	"github.com/Shivang0/linkedinai/internal/media"
	"github.com/Shivang0/linkedinai/internal/notifier"
	"github.com/Shivang0/linkedinai/internal/publish"
	"github.com/Shivang0/linkedinai/internal/queue"
	"github.com/Shivang0/linkedinai/internal/ratelimit"
	"github.com/Shivang0/linkedinai/internal/redis"
	"github.com/Shivang0/linkedinai/internal/repository"
	"github.com/Shivang0/linkedinai/internal/scheduler"
)

const publishLimiterKey = "linkedin:publish"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("service exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logger)

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Shutdown(pool)(context.Background()) }()

	if err := db.Migrate(ctx, pool, cfg.DB.MigrationsTable, log); err != nil {
		return err
	}

	redisClient, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redis.Shutdown(redisClient)(context.Background()) }()

	repo := repository.New(pool)

	attempter := publish.NewAttempter(
		repo,
		linkedin.NewClient(),
		media.NewS3Resolver(cfg.Media),
		ratelimit.New(redisClient, publishLimiterKey, cfg.RateLimit.PublishPerSecond),
		notifier.New(cfg.Notifier, log),
		log,
	)

	workers := river.NewWorkers()
	river.AddWorker(workers, publish.NewWorker(attempter, log))

	q, err := queue.New(pool, workers, cfg.Queue, log)
	if err != nil {
		return err
	}

	sched := scheduler.New(repo, q, log)
	sweeper := publish.NewSweeper(repo, attempter, cfg.SweepBatchSize, log)

	handler := api.New(sched, map[string]api.HealthCheck{
		"postgres": db.Healthcheck(pool),
		"redis":    redis.Healthcheck(redisClient),
	}, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	crontab := cron.New()
	if _, err := crontab.AddFunc(every(cfg.SweepInterval), func() {
		if _, err := sweeper.Sweep(context.Background()); err != nil {
			log.Error("sweep failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	if _, err := crontab.AddFunc(every(cfg.ExpandInterval), func() {
		if _, err := sched.ExpandRecurring(context.Background(), cfg.ExpandLookAhead); err != nil {
			log.Error("recurrence expansion failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("register expand job: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := q.Start(ctx); err != nil {
			return err
		}
		log.Info("queue workers started", slog.Int("max_workers", cfg.Queue.MaxWorkers))
		<-ctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer stopCancel()
		return q.Stop(stopCtx)
	})

	g.Go(func() error {
		crontab.Start()
		<-ctx.Done()
		<-crontab.Stop().Done()
		return nil
	})

	g.Go(func() error {
		log.Info("http server starting", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown completed")
	return nil
}

// every renders a duration as a cron spec.
func every(d time.Duration) string {
	return "@every " + d.String()
}
