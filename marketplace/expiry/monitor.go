package expiry

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanpawarit/kcartbot/marketplace/model"
	"github.com/tanpawarit/kcartbot/marketplace/notify"
	"github.com/tanpawarit/kcartbot/marketplace/store"
)

const lockName = "expiry-sweep"

type Config struct {
	Interval      time.Duration `envconfig:"INTERVAL" split_words:"true" default:"5m"`
	ThresholdDays int           `envconfig:"THRESHOLD_DAYS" split_words:"true" default:"7"`
	DedupWindow   time.Duration `envconfig:"DEDUP_WINDOW" split_words:"true" default:"24h"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" split_words:"true" default:"2m"`
	Disabled      bool          `envconfig:"DISABLED" split_words:"true" default:"false"`
}

func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}
	if c.ThresholdDays < 0 {
		return fmt.Errorf("threshold days must be >= 0")
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("dedup window must be > 0")
	}
	return nil
}

type Notifier interface {
	Notify(ctx context.Context, ev notify.Event) (*notify.Delivery, error)
}

// Locker grants a lease shared by every instance of the service.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type Report struct {
	Candidates int  `json:"candidates"`
	Notified   int  `json:"notified"`
	Skipped    int  `json:"skipped"`
	Failed     int  `json:"failed"`
	Suppressed bool `json:"suppressed"`
}

type Monitor struct {
	store    *store.Store
	notifier Notifier
	locker   Locker
	cfg      Config
	running  atomic.Bool
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Monitor)

func WithLocker(l Locker) Option {
	return func(m *Monitor) { m.locker = l }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMonitor(st *store.Store, notifier Notifier, cfg Config, opts ...Option) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	m := &Monitor{
		store:    st,
		notifier: notifier,
		cfg:      cfg,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Run sweeps once immediately and then every Interval until ctx ends.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info().Dur("interval", m.cfg.Interval).Int("threshold_days", m.cfg.ThresholdDays).Msg("expiry monitor started")

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := m.Trigger(ctx); err != nil && ctx.Err() == nil {
			m.log.Error().Err(err).Msg("expiry sweep failed")
		}
		select {
		case <-ctx.Done():
			m.log.Info().Msg("expiry monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Trigger runs one sweep unless another one is active here or, with a Locker,
// anywhere else. A skipped run reports Suppressed.
func (m *Monitor) Trigger(ctx context.Context) (Report, error) {
	if !m.running.CompareAndSwap(false, true) {
		m.log.Debug().Msg("expiry sweep already running")
		return Report{Suppressed: true}, nil
	}
	defer m.running.Store(false)

	if m.locker != nil {
		release, ok, err := m.locker.Acquire(ctx, lockName, m.cfg.LockTTL)
		if err != nil {
			return Report{}, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			m.log.Debug().Msg("expiry sweep held by another instance")
			return Report{Suppressed: true}, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				m.log.Warn().Err(err).Msg("release sweep lock")
			}
		}()
	}

	return m.Sweep(ctx)
}

// Sweep raises one expiry_alert per active listing expiring within the
// threshold, skipping listings alerted inside the dedup window.
func (m *Monitor) Sweep(ctx context.Context) (Report, error) {
	now := m.now().UTC()
	today := model.Day(now)
	until := today.AddDate(0, 0, m.cfg.ThresholdDays)

	listings, err := m.store.ExpiringListings(ctx, today, until)
	if err != nil {
		return Report{}, err
	}

	report := Report{Candidates: len(listings)}
	since := now.Add(-m.cfg.DedupWindow)
	for _, l := range listings {
		recent, err := m.store.RecentNotificationExists(ctx, l.ID, model.NotificationExpiryAlert, since)
		if err != nil {
			return report, err
		}
		if recent {
			report.Skipped++
			continue
		}

		days, _ := l.DaysUntilExpiry(today)
		_, err = m.notifier.Notify(ctx, notify.Event{
			UserID:      l.SupplierID,
			Message:     alertMessage(l, days),
			Type:        model.NotificationExpiryAlert,
			InventoryID: l.ID,
		})
		if err != nil {
			report.Failed++
			m.log.Error().Err(err).Str("listing_id", l.ID).Msg("expiry alert failed")
			continue
		}
		report.Notified++
	}

	m.log.Info().
		Int("candidates", report.Candidates).
		Int("notified", report.Notified).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("expiry sweep finished")
	return report, nil
}

func alertMessage(l *model.InventoryListing, days int) string {
	name, unit := "product", ""
	if l.Product != nil {
		name, unit = l.Product.Name, l.Product.Unit
	}
	return fmt.Sprintf(
		"Stock Expiry Alert: Your %s inventory (%s %s) will expire in %d day(s) on %s. Consider reducing prices or promoting this product.",
		name,
		strconv.FormatFloat(l.Quantity, 'f', -1, 64),
		unit,
		days,
		l.ExpiryDate.Format("2006-01-02"),
	)
}
