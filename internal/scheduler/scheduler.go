package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Engine is the subset of the duel service the background jobs drive.
type Engine interface {
	MatchWaiting(ctx context.Context) (int, error)
	Cleanup(ctx context.Context) (int, error)
	ExpireIdle(ctx context.Context) (int, error)
}

type Intervals struct {
	MatchSweep time.Duration
	Cleanup    time.Duration
}

type Scheduler struct {
	sched  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the matchmaking sweep and the janitor. Nothing runs until
// Start is called.
func New(engine Engine, intervals Intervals) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, ctx: ctx, cancel: cancel}

	jobs := []struct {
		name     string
		interval time.Duration
		run      func(context.Context)
	}{
		{"match-waiting", intervals.MatchSweep, func(ctx context.Context) {
			if n, err := engine.MatchWaiting(ctx); err != nil {
				slog.Error("matchmaking sweep failed", "error", err)
			} else if n > 0 {
				slog.Info("matchmaking sweep", "matched", n)
			}
		}},
		{"janitor", intervals.Cleanup, func(ctx context.Context) {
			if n, err := engine.Cleanup(ctx); err != nil {
				slog.Error("waiting duel cleanup failed", "error", err)
			} else if n > 0 {
				slog.Info("waiting duel cleanup", "reaped", n)
			}
			if n, err := engine.ExpireIdle(ctx); err != nil {
				slog.Error("idle duel expiry failed", "error", err)
			} else if n > 0 {
				slog.Info("idle duel expiry", "expired", n)
			}
		}},
	}

	for _, job := range jobs {
		run := job.run
		_, err := sched.NewJob(
			gocron.DurationJob(job.interval),
			gocron.NewTask(func() { run(s.ctx) }),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			_ = sched.Shutdown()
			return nil, fmt.Errorf("failed to register %s job: %w", job.name, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.sched.Shutdown()
}
