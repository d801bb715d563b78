package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
	"github.com/angelmondragon/interviewprep-backend/pkg/metrics"
)

const (
	PracticeExpiryJobName = "practice-session-expiry"

	defaultSessionMaxAge = 6 * time.Hour
	defaultExpiryRounds  = 20
)

type sessionExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

type PracticeExpiryJobParams struct {
	Logger   *logger.Logger
	Sessions sessionExpirer
	Metrics  *metrics.CronJobMetrics
	// MaxAge is how long a session may stay active after it starts.
	MaxAge time.Duration
	// MaxRounds caps batches per run so one cycle cannot spin forever.
	MaxRounds int
}

// NewPracticeExpiryJob completes practice sessions left active past MaxAge.
func NewPracticeExpiryJob(params PracticeExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("practice service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}
	rounds := params.MaxRounds
	if rounds <= 0 {
		rounds = defaultExpiryRounds
	}
	return &practiceExpiryJob{
		logg:     params.Logger,
		sessions: params.Sessions,
		metrics:  params.Metrics,
		maxAge:   maxAge,
		rounds:   rounds,
		now:      time.Now,
	}, nil
}

type practiceExpiryJob struct {
	logg     *logger.Logger
	sessions sessionExpirer
	metrics  *metrics.CronJobMetrics
	maxAge   time.Duration
	rounds   int
	now      func() time.Time
}

func (j *practiceExpiryJob) Name() string { return PracticeExpiryJobName }

func (j *practiceExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	total := 0
	for round := 0; round < j.rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := j.sessions.ExpireStale(ctx, cutoff)
		total += n
		if err != nil {
			j.report(total)
			return fmt.Errorf("expire practice sessions: %w", err)
		}
		if n == 0 {
			break
		}
	}
	j.report(total)

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"max_age": j.maxAge.String(),
		"expired": total,
	}), "practice session expiry complete")
	return nil
}

func (j *practiceExpiryJob) report(n int) {
	if j.metrics != nil && n > 0 {
		j.metrics.AddProcessed(j.Name(), n)
	}
}
