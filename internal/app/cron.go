package app

import (
	"context"
	"fmt"
	"time"

	pkgcron "github.com/jgmap/core/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, svcs services, logger *zap.Logger) {
	cronLogger := logger.Named("cron")

	sched.Register(pkgcron.Job{
		Name:        "sync_cleanup",
		Description: "Usuwanie rozliczonych zdarzeń synchronizacji starszych niż doba",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			deleted, err := svcs.sync.Cleanup(ctx)
			if err != nil {
				cronLogger.Warn("sync cleanup failed", zap.Error(err))
				return err
			}
			if deleted > 0 {
				cronLogger.Info(fmt.Sprintf("sync cleanup removed %d events", deleted))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "maintenance",
		Description: "Codzienne porządki: osierocone wiersze, przeterminowane promocje, stare zgłoszenia",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cronLogger.Info("maintenance pass starting")
			return svcs.maintenance.Run(ctx)
		},
	})
}
