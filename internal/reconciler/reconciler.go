package reconciler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
)

// Reconciler runs the scheduled sweeps that the reactive consistency rules
// leave behind: fragments whose last referencing header was cascade-deleted,
// and read ledger rows past the retention window.
type Reconciler struct {
	store     db.Store
	scheduler gocron.Scheduler
	retention time.Duration
}

func New(store db.Store, retention time.Duration) (*Reconciler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Reconciler{
		store:     store,
		scheduler: scheduler,
		retention: retention,
	}, nil
}

// Start schedules the sweeps and starts the scheduler.
func (r *Reconciler) Start() error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(
			func() {
				r.collectOrphanFragments()
			},
		),
	)
	if err != nil {
		return err
	}

	_, err = r.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(
			func() {
				r.purgeReadDeliveries()
			},
		),
	)
	if err != nil {
		return err
	}

	r.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down.
func (r *Reconciler) Stop() error {
	return r.scheduler.Shutdown()
}

func (r *Reconciler) collectOrphanFragments() {
	ctx := context.Background()

	avatars, err := r.store.DeleteOrphanAvatars(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to collect orphan avatars")
		return
	}

	attachments, err := r.store.DeleteOrphanAttachments(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to collect orphan attachments")
		return
	}

	if avatars > 0 || attachments > 0 {
		log.Info().Int64("avatars", avatars).Int64("attachments", attachments).Msg("collected orphan fragments")
	}
}

func (r *Reconciler) purgeReadDeliveries() {
	ctx := context.Background()
	cutoff := time.Now().Add(-r.retention)

	purged, err := r.store.PurgeReadDeliveriesBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to purge read deliveries")
		return
	}

	if purged > 0 {
		log.Info().Int64("deliveries", purged).Time("cutoff", cutoff).Msg("purged read deliveries")
	}
}
