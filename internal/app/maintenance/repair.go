package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/avellaud/pictobank/internal/models"
	"github.com/avellaud/pictobank/internal/storage"
	"github.com/avellaud/pictobank/pkg/logger"
	"github.com/avellaud/pictobank/pkg/metrics"
)

const defaultSchedule = "@daily"

// Repairer re-materializes missing physical directories from folder metadata.
// Metadata is the source of truth: a row without physical backing is repaired
// here, while orphan files are never promoted into metadata.
type Repairer struct {
	db     *gorm.DB
	mirror storage.Mirror
	cron   *cron.Cron
	log    *zap.Logger

	schedule string
}

// Option customises the Repairer.
type Option func(*Repairer)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Repairer) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the repair pass.
func WithSchedule(spec string) Option {
	return func(r *Repairer) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// NewRepairer constructs a Repairer.
func NewRepairer(db *gorm.DB, mirror storage.Mirror, opts ...Option) (*Repairer, error) {
	if db == nil {
		return nil, errors.New("maintenance: db is required")
	}
	if mirror == nil {
		return nil, errors.New("maintenance: mirror is required")
	}

	r := &Repairer{
		db:       db,
		mirror:   mirror,
		cron:     cron.New(),
		log:      logger.WithModule("maintenance"),
		schedule: defaultSchedule,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start registers the repair job and starts the scheduler.
func (r *Repairer) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if repaired, err := r.RunOnce(context.Background()); err != nil {
			r.log.Error("mirror repair pass failed", zap.Error(err))
		} else if repaired > 0 {
			r.log.Info("mirror repair pass completed", zap.Int("repaired", repaired))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule repair: %w", err)
	}

	r.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for a running pass to finish.
func (r *Repairer) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// RunOnce walks all folder rows and re-creates any directory missing from the
// mirror. Returns how many directories were re-materialized.
func (r *Repairer) RunOnce(ctx context.Context) (int, error) {
	var folders []models.Folder
	if err := r.db.WithContext(ctx).Order("path").Find(&folders).Error; err != nil {
		return 0, fmt.Errorf("maintenance: load folders: %w", err)
	}

	repaired := 0
	var errs error
	for _, folder := range folders {
		if r.mirror.Exists(folder.Path) {
			continue
		}
		if err := r.mirror.EnsureDir(folder.Path); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		repaired++
		metrics.MirrorRepairs.Inc()
		r.log.Info("re-materialized folder directory", zap.String("path", folder.Path))
	}

	return repaired, errs
}
