package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup/internal/logger"
	"github.com/listenupapp/readup/internal/service"
)

// BootReconciliation holds the report of the startup ledger reconciliation.
type BootReconciliation struct {
	Report *service.ReconcileReport
}

// ProvideBootReconciliation corrects session state from the ledger before
// the server accepts requests.
func ProvideBootReconciliation(i do.Injector) (*BootReconciliation, error) {
	progress := do.MustInvoke[*service.ProgressService](i)

	report, err := progress.Reconcile(context.Background())
	if err != nil {
		return nil, err
	}
	return &BootReconciliation{Report: report}, nil
}

// StaleSessionJob periodically closes reading sessions that were never ended.
type StaleSessionJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *StaleSessionJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideStaleSessionJob provides the periodic stale session sweep.
func ProvideStaleSessionJob(i do.Injector) (*StaleSessionJob, error) {
	sessions := do.MustInvoke[*service.ReadingSessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(staleSessionSweep)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if count, err := sessions.CloseStale(ctx); err != nil {
					log.Warn("Stale session sweep failed", "error", err)
				} else if count > 0 {
					log.Info("Stale session sweep completed", "closed", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Stale session job started", "interval", staleSessionSweep)

	return &StaleSessionJob{cancel: cancel}, nil
}
