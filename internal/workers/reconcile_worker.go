package workers

import (
	"context"
	"sync/atomic"
	"time"

	"paywall_backend/internal/logger"
	"paywall_backend/internal/models"
	"paywall_backend/internal/repositories"
	"paywall_backend/internal/services"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const workerName = "reconcile_worker"

type ReconcileConfig struct {
	Interval    time.Duration
	StaleAfter  time.Duration
	Concurrency int
	BatchSize   int
}

// ReconcileReport - итог одного прохода
type ReconcileReport struct {
	Checked int `json:"checked"`
	Settled int `json:"settled"`
}

// ReconcileWorker перепроверяет зависшие pending транзакции через status API.
// Подтвержденные оплаты закрываются, остальные остаются pending до следующего прохода.
type ReconcileWorker struct {
	db          *gorm.DB
	txRepo      repositories.TransactionRepository
	entitlement services.EntitlementService
	cfg         ReconcileConfig
	now         func() time.Time
}

func NewReconcileWorker(db *gorm.DB, txRepo repositories.TransactionRepository, entitlement services.EntitlementService, cfg ReconcileConfig) *ReconcileWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &ReconcileWorker{
		db:          db,
		txRepo:      txRepo,
		entitlement: entitlement,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Start запускает фоновую сверку; остановка по ctx
func (w *ReconcileWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *ReconcileWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	logger.Info("reconcile worker started", "interval", w.cfg.Interval, "stale_after", w.cfg.StaleAfter)
	for {
		select {
		case <-ctx.Done():
			logger.Info("reconcile worker stopped")
			return
		case <-ticker.C:
			report, err := w.RunOnce(ctx)
			if err != nil {
				logger.WorkerLog(workerName, "run", err)
				continue
			}
			if report.Checked > 0 {
				logger.Info("reconcile pass finished", "checked", report.Checked, "settled", report.Settled)
			}
		}
	}
}

// RunOnce проверяет одну пачку транзакций старше StaleAfter
func (w *ReconcileWorker) RunOnce(ctx context.Context) (ReconcileReport, error) {
	cutoff := w.now().Add(-w.cfg.StaleAfter)
	stale, err := w.txRepo.FindStalePending(w.db, cutoff, w.cfg.BatchSize)
	if err != nil {
		return ReconcileReport{}, err
	}

	var settled atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for i := range stale {
		t := &stale[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			txCtx := logger.WithTransactionParam(gctx, t.TransactionParam)
			status, err := w.entitlement.ReverifyPending(txCtx, w.db, t, services.SourceReconciler)
			if err != nil {
				// Ошибка по одной транзакции не останавливает проход
				logger.CtxWithError(txCtx, "reconcile transaction failed", err)
				return nil
			}
			if status == models.PaymentStatusPaid {
				settled.Add(1)
			}
			return nil
		})
	}

	err = g.Wait()
	return ReconcileReport{Checked: len(stale), Settled: int(settled.Load())}, err
}
