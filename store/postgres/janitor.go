package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultJanitorSchedule prunes expired rows once a minute.
const DefaultJanitorSchedule = "@every 1m"

// Janitor periodically deletes expired slot and window rows. Redis
// expires keys by itself; Postgres needs this sweep or dead rows
// accumulate between acquisitions of rarely used keys.
type Janitor struct {
	store    *Store
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithJanitorSchedule overrides the cron schedule
// (standard cron spec or @every syntax).
func WithJanitorSchedule(spec string) JanitorOption {
	return func(j *Janitor) { j.schedule = spec }
}

// WithJanitorLogger sets the janitor's logger.
func WithJanitorLogger(l *slog.Logger) JanitorOption {
	return func(j *Janitor) { j.logger = l }
}

// NewJanitor creates a Janitor for the store. Call Start to begin
// sweeping and Stop on shutdown.
func NewJanitor(store *Store, opts ...JanitorOption) *Janitor {
	j := &Janitor{
		store:    store,
		cron:     cron.New(),
		schedule: DefaultJanitorSchedule,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Start schedules the sweep and begins running it.
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		if sweepErr := j.Sweep(context.Background()); sweepErr != nil {
			j.logger.Error("throttle janitor sweep failed",
				slog.String("error", sweepErr.Error()),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("throttle/postgres: janitor schedule %q: %w", j.schedule, err)
	}
	j.cron.Start()
	return nil
}

// Stop halts the sweep schedule. A sweep already in progress finishes.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep deletes expired slot and window rows once.
func (j *Janitor) Sweep(ctx context.Context) error {
	slots, err := j.store.db.NewDelete().Model((*slotModel)(nil)).
		Where("expires_at <= NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("throttle/postgres: sweep slots: %w", err)
	}

	windows, err := j.store.db.NewDelete().Model((*windowModel)(nil)).
		Where("expires_at <= NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("throttle/postgres: sweep windows: %w", err)
	}

	if slotsN, _ := slots.RowsAffected(); slotsN > 0 {
		j.logger.Debug("throttle janitor pruned slots", slog.Int64("rows", slotsN))
	}
	if windowsN, _ := windows.RowsAffected(); windowsN > 0 {
		j.logger.Debug("throttle janitor pruned windows", slog.Int64("rows", windowsN))
	}
	return nil
}
