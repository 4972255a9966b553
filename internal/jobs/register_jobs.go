package jobs

import (
	"context"
	"log"

	"github.com/givehub/backend/internal/config"
	"github.com/go-co-op/gocron"
)

// ScheduleSweeps registers both sweeps on the scheduler with their configured
// cron expressions. SingletonMode guarantees a tick never overlaps a still
// running previous tick of the same sweep.
func ScheduleSweeps(scheduler *gocron.Scheduler, revocation *RevocationSweep, listing *ListingSweep, cfg *config.Config) error {
	if _, err := scheduler.Cron(cfg.Verification.RevocationCron).SingletonMode().Do(func() {
		if err := revocation.Run(context.Background()); err != nil {
			log.Printf("Revocation sweep failed: %v", err)
		}
	}); err != nil {
		return err
	}

	if _, err := scheduler.Cron(cfg.Listing.Cron).SingletonMode().Do(func() {
		if err := listing.Run(context.Background()); err != nil {
			log.Printf("Listing sweep failed: %v", err)
		}
	}); err != nil {
		return err
	}

	return nil
}
