package jobs

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/robfig/cron/v3"
)

const gaugeSchedule = "@every 1m"

// Settler settles pending payouts
type Settler interface {
	Settle(ctx context.Context) (models.SettlementResult, error)
	PendingCount(ctx context.Context) (int, error)
}

// Recorder receives job outcomes
type Recorder interface {
	RecordSettlement(completed, failed int)
	SetPendingPayouts(n int)
	UpdateDBConnections(count float64)
}

// CronManager manages scheduled jobs
type CronManager struct {
	cron     *cron.Cron
	settler  Settler
	recorder Recorder
	dbStats  func() sql.DBStats
	logger   *log.Logger

	// one settlement at a time, even when a run overruns its schedule
	settling sync.Mutex
}

// NewCronManager creates a new cron manager. dbStats may be nil.
func NewCronManager(settler Settler, recorder Recorder, dbStats func() sql.DBStats, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:     cron.New(),
		settler:  settler,
		recorder: recorder,
		dbStats:  dbStats,
		logger:   logger,
	}
}

// SetupJobs configures all scheduled jobs. An empty settlementSchedule
// leaves settlement to manual runs.
func (cm *CronManager) SetupJobs(settlementSchedule string) error {
	cm.logger.Println("Setting up cron jobs...")

	if settlementSchedule != "" {
		_, err := cm.cron.AddFunc(settlementSchedule, func() {
			cm.logger.Println("🕐 Running payout settlement job...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			if _, err := cm.RunSettlement(ctx); err != nil {
				cm.logger.Printf("❌ Payout settlement failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	_, err := cm.cron.AddFunc(gaugeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cm.RefreshGauges(ctx)
	})
	if err != nil {
		return err
	}

	cm.logger.Println("✅ Cron jobs configured successfully")
	if settlementSchedule != "" {
		cm.logger.Printf("  - %s: Settle pending payouts", settlementSchedule)
	}
	cm.logger.Printf("  - %s: Refresh gauges", gaugeSchedule)

	return nil
}

// RunSettlement settles pending payouts once and records the outcome
func (cm *CronManager) RunSettlement(ctx context.Context) (models.SettlementResult, error) {
	cm.settling.Lock()
	defer cm.settling.Unlock()

	result, err := cm.settler.Settle(ctx)
	if cm.recorder != nil {
		cm.recorder.RecordSettlement(result.Completed, result.Failed)
	}
	if err != nil {
		return result, err
	}

	cm.logger.Printf("✅ Payout settlement completed: %d completed, %d failed", result.Completed, result.Failed)
	cm.RefreshGauges(ctx)
	return result, nil
}

// RefreshGauges updates the pending payouts and connection gauges
func (cm *CronManager) RefreshGauges(ctx context.Context) {
	if cm.recorder == nil {
		return
	}

	n, err := cm.settler.PendingCount(ctx)
	if err != nil {
		cm.logger.Printf("⚠️ Failed to count pending payouts: %v", err)
	} else {
		cm.recorder.SetPendingPayouts(n)
	}

	if cm.dbStats != nil {
		cm.recorder.UpdateDBConnections(float64(cm.dbStats().InUse))
	}
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Println("🚀 Starting cron scheduler...")
	cm.cron.Start()
}

// Stop stops the cron scheduler and waits for running jobs
func (cm *CronManager) Stop() {
	cm.logger.Println("🛑 Stopping cron scheduler...")
	<-cm.cron.Stop().Done()
}
