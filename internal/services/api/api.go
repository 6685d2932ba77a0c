// Package api composes the HTTP API: meta endpoints and the harvest module under /api/v1
package api

import (
	"tulflow/internal/modkit"
	"tulflow/internal/modkit/httpkit"
	"tulflow/internal/modkit/module"
	"tulflow/internal/modkit/swaggerkit"
	"tulflow/internal/platform/config"
	"tulflow/internal/platform/logger"
	phttp "tulflow/internal/platform/net/http"
	"tulflow/internal/platform/net/middleware"
	"tulflow/internal/platform/store"

	metamod "tulflow/internal/services/api/meta/module"
	harvestmod "tulflow/internal/services/harvest/module"
)

// Options are the API options
type Options struct {
	Config        config.Conf // root config; modules read their own prefixes
	Store         *store.Store
	Logger        *logger.Logger
	EnableSwagger bool

	// Modules replaces the default module set (tests)
	Modules []module.Module
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	deps := modkit.FromStore(opt.Config, opt.Store)
	if opt.Logger != nil {
		deps.Log = opt.Logger
	}

	mods := opt.Modules
	if mods == nil {
		mods = []module.Module{
			metamod.New(deps),
			harvestmod.New(deps),
		}
	}

	ac := opt.Config.Prefix("CORE_API_")
	r.Use(middleware.Heartbeat("/health"))
	swaggerkit.Mount(r, opt.EnableSwagger)

	stack := httpkit.CommonStack(httpkit.StackOptions{
		Origins: ac.MayCSV("CORS_ORIGINS", nil),
		Timeout: ac.MayDuration("TIMEOUT", 0),
		Slow:    ac.MayDuration("SLOW", 0),
	})
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			// register each module's ports under its own name for cross-module lookups
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})
}
