package container

import (
	"github.com/playforge/remoteconfig/cmd/configserver/repository"
	"github.com/playforge/remoteconfig/cmd/configserver/service"
	"github.com/playforge/remoteconfig/common/bootstrap"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components

	Store *repository.Store

	ConfigService     *service.ConfigService
	VersionService    *service.VersionService
	DeploymentService *service.DeploymentService
	CampaignService   *service.CampaignService
	CatalogService    *service.CatalogService
	SnapshotService   *service.SnapshotService
	Resolver          *service.Resolver
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	store := repository.NewStore(components.DB)

	// Bottom-up: the snapshot service feeds everything that touches resolution
	snapshotService := service.NewSnapshotService(
		store,
		components.Redis,
		components.Cache,
		components.Telemetry,
		components.Config.Resolver.InvalidationChannel,
		components.Logger,
	)

	configService := service.NewConfigService(store, components.Logger)
	versionService := service.NewVersionService(store, components.Logger)
	deploymentService := service.NewDeploymentService(store, snapshotService, components.Logger)
	campaignService := service.NewCampaignService(store, snapshotService, components.Logger)
	catalogService := service.NewCatalogService(store, snapshotService, components.Logger)
	resolver := service.NewResolver(
		snapshotService,
		components.Cache,
		components.Config.Cache.DefaultTTL,
		components.Telemetry,
		components.Logger,
	)

	return &Container{
		Components:        components,
		Store:             store,
		ConfigService:     configService,
		VersionService:    versionService,
		DeploymentService: deploymentService,
		CampaignService:   campaignService,
		CatalogService:    catalogService,
		SnapshotService:   snapshotService,
		Resolver:          resolver,
	}, nil
}
