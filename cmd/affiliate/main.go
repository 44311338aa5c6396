package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affiliate/internal/affiliate"
	"github.com/smallbiznis/affiliate/internal/attribution"
	"github.com/smallbiznis/affiliate/internal/audit"
	"github.com/smallbiznis/affiliate/internal/cache"
	"github.com/smallbiznis/affiliate/internal/clock"
	"github.com/smallbiznis/affiliate/internal/config"
	"github.com/smallbiznis/affiliate/internal/conversion"
	"github.com/smallbiznis/affiliate/internal/export"
	"github.com/smallbiznis/affiliate/internal/link"
	"github.com/smallbiznis/affiliate/internal/lock"
	"github.com/smallbiznis/affiliate/internal/migration"
	"github.com/smallbiznis/affiliate/internal/observability"
	"github.com/smallbiznis/affiliate/internal/payout"
	"github.com/smallbiznis/affiliate/internal/providers"
	"github.com/smallbiznis/affiliate/internal/scheduler"
	"github.com/smallbiznis/affiliate/internal/server"
	"github.com/smallbiznis/affiliate/internal/settings"
	"github.com/smallbiznis/affiliate/internal/stats"
	"github.com/smallbiznis/affiliate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		cache.Module,
		lock.Module,
		providers.Module,

		// Functional Domains
		audit.Module,
		settings.Module,
		affiliate.Module,
		attribution.Module,
		link.Module,
		conversion.Module,
		payout.Module,
		stats.Module,
		export.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
