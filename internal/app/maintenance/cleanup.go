// Package maintenance schedules the background sweeps that remove lapsed and
// rejected registrations, and records when each sweep last ran.
package maintenance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gatehouse-dev/gatehouse/internal/cache"
	"github.com/gatehouse-dev/gatehouse/internal/services"
	"github.com/gatehouse-dev/gatehouse/pkg/logger"
)

const (
	defaultExpiredSpec  = "@daily"
	defaultRejectedSpec = "@weekly"
	defaultPurgeSpec    = "@hourly"
)

// Marker keys under which the last sweep outcome is stored.
const (
	MarkerKeyExpired  = "sweep:last:expired"
	MarkerKeyRejected = "sweep:last:rejected"
)

// Marker records the outcome of the most recent sweep run.
type Marker struct {
	At              time.Time `json:"at"`
	AccountsDeleted int       `json:"accounts_deleted"`
	ProfilesDeleted int       `json:"profiles_deleted"`
}

// expiryPurger is implemented by stores that can drop lapsed entries in bulk.
type expiryPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates the registration sweeps: deleting registrations whose
// activation window lapsed unused and registrations that were rejected. A nil
// marks store skips marker recording.
type Cleaner struct {
	registrations *services.RegistrationService
	marks         cache.Store
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger
	enabled       bool

	expiredSchedule  string
	rejectedSchedule string
	purgeSchedule    string
	sweepRejected    bool
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for sweep markers.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithExpiredSchedule overrides the cron specification for the expired sweep.
func WithExpiredSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.expiredSchedule = spec
		}
	}
}

// WithRejectedSchedule overrides the cron specification for the rejected sweep.
func WithRejectedSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.rejectedSchedule = spec
		}
	}
}

// WithRejectedSweep controls whether the rejected sweep is scheduled. Sites
// that keep rejected registrations as review history switch it off; manual
// runs are unaffected.
func WithRejectedSweep(enabled bool) Option {
	return func(cleaner *Cleaner) {
		cleaner.sweepRejected = enabled
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil registration
// service disables the sweeps entirely.
func NewCleaner(registrations *services.RegistrationService, marks cache.Store, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		registrations:    registrations,
		marks:            marks,
		now:              time.Now,
		expiredSchedule:  defaultExpiredSpec,
		rejectedSchedule: defaultRejectedSpec,
		purgeSchedule:    defaultPurgeSpec,
		sweepRejected:    true,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.registrations != nil

	return cleaner
}

// Start registers the sweeps with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if _, err := c.cron.AddFunc(c.expiredSchedule, func() {
		if _, err := c.RunExpired(context.Background()); err != nil {
			c.log.Warn("expired sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if c.sweepRejected {
		if _, err := c.cron.AddFunc(c.rejectedSchedule, func() {
			if _, err := c.RunRejected(context.Background()); err != nil {
				c.log.Warn("rejected sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if purger, ok := c.marks.(expiryPurger); ok {
		if _, err := c.cron.AddFunc(c.purgeSchedule, func() {
			if _, err := purger.PurgeExpired(context.Background()); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunExpired sweeps registrations whose activation window lapsed unused.
func (c *Cleaner) RunExpired(ctx context.Context) (services.SweepResult, error) {
	result, err := c.registrations.DeleteExpired(ctx)
	if err != nil {
		return result, err
	}

	c.log.Info("expired sweep finished",
		zap.Int("accounts_deleted", result.AccountsDeleted),
		zap.Int("profiles_deleted", result.ProfilesDeleted),
	)
	c.mark(ctx, MarkerKeyExpired, result)
	return result, nil
}

// RunRejected sweeps registrations that were rejected.
func (c *Cleaner) RunRejected(ctx context.Context) (services.SweepResult, error) {
	result, err := c.registrations.DeleteRejected(ctx)
	if err != nil {
		return result, err
	}

	c.log.Info("rejected sweep finished",
		zap.Int("accounts_deleted", result.AccountsDeleted),
		zap.Int("profiles_deleted", result.ProfilesDeleted),
	)
	c.mark(ctx, MarkerKeyRejected, result)
	return result, nil
}

// RunOnce executes every configured sweep sequentially. Used by the sweep
// command and in tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.enabled {
		return nil
	}

	var errs error

	if _, err := c.RunExpired(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := c.RunRejected(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	if purger, ok := c.marks.(expiryPurger); ok {
		if _, err := purger.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (c *Cleaner) mark(ctx context.Context, key string, result services.SweepResult) {
	if c.marks == nil {
		return
	}

	raw, err := json.Marshal(Marker{
		At:              c.now().UTC(),
		AccountsDeleted: result.AccountsDeleted,
		ProfilesDeleted: result.ProfilesDeleted,
	})
	if err != nil {
		return
	}

	if err := c.marks.Set(ctx, key, raw, 0); err != nil {
		c.log.Warn("sweep marker write failed", zap.String("key", key), zap.Error(err))
	}
}
