package store

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultLogRetentionInterval = 6 * time.Hour
	defaultLogRetentionDays     = 30
	defaultLogDeleteBatchSize   = 5000
	maxDeleteBatchesPerRun      = 2000
)

// LogRetentionCleaner periodically deletes old rows from the frontend_logs
// table so the sink cannot grow without bound.
type LogRetentionCleaner struct {
	db            *gorm.DB
	interval      time.Duration
	retentionDays int
	batchSize     int
}

// NewLogRetentionCleaner constructs a cleaner with the default schedule.
func NewLogRetentionCleaner(db *gorm.DB) *LogRetentionCleaner {
	if db == nil {
		return nil
	}
	return &LogRetentionCleaner{
		db:            db,
		interval:      defaultLogRetentionInterval,
		retentionDays: defaultLogRetentionDays,
		batchSize:     defaultLogDeleteBatchSize,
	}
}

// Start launches the cleanup loop in a background goroutine. The loop exits
// when ctx is cancelled.
func (c *LogRetentionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go c.run(ctx)
	log.Infof("frontend log retention cleaner started (interval=%s retention_days=%d)", c.interval, c.retentionDays)
}

func (c *LogRetentionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.cleanupOnce(ctx)

		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// cleanupOnce deletes expired rows in bounded batches so one run never holds
// a long transaction over the table.
func (c *LogRetentionCleaner) cleanupOnce(ctx context.Context) {
	if c.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -c.retentionDays)

	deletedTotal := int64(0)
	for i := 0; i < maxDeleteBatchesPerRun; i++ {
		if ctx.Err() != nil {
			return
		}
		n, errDelete := c.deleteBatch(ctx, cutoff)
		if errDelete != nil {
			log.WithError(errDelete).Warn("frontend log retention: delete batch failed")
			break
		}
		if n <= 0 {
			break
		}
		deletedTotal += n
	}

	if deletedTotal > 0 {
		log.Infof("frontend log retention: deleted %d rows (cutoff=%s)", deletedTotal, cutoff.Format(time.RFC3339))
	}
}

func (c *LogRetentionCleaner) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	res := c.db.WithContext(ctx).Exec(`
		DELETE FROM frontend_logs
		WHERE id IN (
			SELECT id FROM frontend_logs
			WHERE created_at < ?
			ORDER BY id
			LIMIT ?
		)`, cutoff, c.batchSize)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
