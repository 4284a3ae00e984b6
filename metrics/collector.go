package metrics

import (
	"context"
	"log/slog"
	"time"

	"pollblog-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Collector samples table sizes into the pollblog_table_rows gauge.
type Collector struct {
	DB       *gorm.DB
	Interval time.Duration
	Logger   *slog.Logger
}

func (c *Collector) Run(ctx context.Context) error {
	interval := c.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Collect(ctx); err != nil {
				c.Logger.Warn("collecting table metrics failed", "error", err)
			}
		}
	}
}

// Collect takes one sample of every table.
func (c *Collector) Collect(ctx context.Context) error {
	for _, model := range models.All() {
		stmt := &gorm.Statement{DB: c.DB}
		if err := stmt.Parse(model); err != nil {
			return err
		}
		if err := c.collectTable(ctx, model, stmt.Schema); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) collectTable(ctx context.Context, model any, s *schema.Schema) error {
	var count int64
	if err := c.DB.WithContext(ctx).Model(model).Count(&count).Error; err != nil {
		return err
	}
	tableRows.WithLabelValues(s.Table).Set(float64(count))
	return nil
}
