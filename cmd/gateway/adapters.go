package main

import (
	"go.uber.org/zap"

	"github.com/finrelay/gateway/config"
	"github.com/finrelay/gateway/provider"
)

// registerAdapters wires concrete provider.Adapter implementations into
// registry from cfg.Providers. The upstream HTTP clients themselves are
// out of this repository's scope (spec §1): each is a black-box adapter
// that returns opaque text or a categorizable error, supplied by the
// deployment rather than the core. A real build replaces this function
// body with one constructor call per cfg.Providers[i].Type.
func registerAdapters(registry *provider.Registry, cfg *config.Config, logger *zap.Logger) {
	for _, p := range cfg.Providers {
		logger.Warn("no concrete adapter constructor wired for provider type; skipping registration",
			zap.String("provider_id", p.ID), zap.String("type", p.Type))
	}
}
