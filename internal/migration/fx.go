package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gstengine/internal/config"
	"github.com/smallbiznis/gstengine/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		if err := Apply(conn); err != nil {
			return err
		}

		if !cfg.SeedReferenceData {
			return nil
		}
		stats, err := seed.EnsureReferenceData(context.Background(), conn, node)
		if err != nil {
			return err
		}
		log.Named("migrations").Info("reference data seeded",
			zap.Int("states", stats.States),
			zap.Int("classification_codes", stats.ClassificationCodes),
			zap.Int("rate_records", stats.RateRecords),
		)
		return nil
	}),
)
