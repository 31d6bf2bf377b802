package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/playforge/remoteconfig/cmd/configserver/container"
	"github.com/playforge/remoteconfig/cmd/configserver/handlers"
	"github.com/playforge/remoteconfig/cmd/configserver/repository"
	"github.com/playforge/remoteconfig/cmd/configserver/routes"
	"github.com/playforge/remoteconfig/common/bootstrap"
	"github.com/playforge/remoteconfig/common/db"
	"github.com/playforge/remoteconfig/common/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap common components (config, logger, DB, redis, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "configserver",
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return repository.Migrate(ctx, database)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap configserver: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	// Build the initial resolution snapshot before taking traffic
	if err := serviceContainer.SnapshotService.Refresh(ctx); err != nil {
		components.Logger.Error("initial snapshot refresh failed", "error", err)
		os.Exit(1)
	}

	// Refresh on invalidation messages and on the periodic safety tick
	go serviceContainer.SnapshotService.StartListener(ctx, components.Config.Resolver.RefreshInterval)

	e := setupEcho()
	setupMiddleware(e)
	registerRoutes(e, serviceContainer)

	startServer(ctx, e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterConfigRoutes(e, serviceContainer)
	routes.RegisterDeploymentRoutes(e, serviceContainer)
	routes.RegisterCampaignRoutes(e, serviceContainer)
	routes.RegisterContextRoutes(e, serviceContainer)
	routes.RegisterResolveRoutes(e, serviceContainer)
}

// startServer starts the HTTP server with graceful shutdown
func startServer(ctx context.Context, e *echo.Echo, components *bootstrap.Components) {
	srv := server.New(
		components.Config.Service.Name,
		components.Config.Service.Port,
		e,
		components.Logger,
	)
	if err := srv.Start(ctx); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
