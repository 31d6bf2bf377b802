package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/playforge/remoteconfig/common/logger"
	"github.com/playforge/remoteconfig/common/models"
	"github.com/playforge/remoteconfig/common/targeting"
	"github.com/playforge/remoteconfig/common/telemetry"
)

type testEnv struct {
	store       *memoryStore
	configs     *ConfigService
	versions    *VersionService
	deployments *DeploymentService
	campaigns   *CampaignService
	catalog     *CatalogService
	snapshots   *SnapshotService
	resolver    *Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemoryStore()
	log := logger.New("error", "json")
	tel := telemetry.New("test", 0, log)

	snapshots := NewSnapshotService(store, nil, nil, tel, "test:invalidate", log)

	return &testEnv{
		store:       store,
		configs:     NewConfigService(store, log),
		versions:    NewVersionService(store, log),
		deployments: NewDeploymentService(store, snapshots, log),
		campaigns:   NewCampaignService(store, snapshots, log),
		catalog:     NewCatalogService(store, snapshots, log),
		snapshots:   snapshots,
		resolver:    NewResolver(snapshots, nil, 0, tel, log),
	}
}

func (e *testEnv) mustCreateConfig(t *testing.T, key string, valueType models.ConfigValueType, def models.Value) *models.ConfigEntry {
	t.Helper()
	entry, err := e.configs.Create(context.Background(), &CreateConfigRequest{
		KeyName:      key,
		ValueType:    valueType,
		DefaultValue: def,
		CreatedBy:    "test",
	})
	require.NoError(t, err)
	return entry
}

func (e *testEnv) mustPublish(t *testing.T, name string, configIDs ...uuid.UUID) *models.Deployment {
	t.Helper()
	ctx := context.Background()
	_, err := e.versions.Stage(ctx, configIDs, "", "test")
	require.NoError(t, err)
	deployment, err := e.deployments.Publish(ctx, name, "", "test")
	require.NoError(t, err)
	return deployment
}

func (e *testEnv) mustCreateField(t *testing.T, key string, fieldType models.FieldType, operators ...string) *models.ContextFieldDefinition {
	t.Helper()
	field, err := e.catalog.CreateField(context.Background(), &CreateFieldRequest{
		Key:       key,
		Name:      key,
		Type:      fieldType,
		Operators: operators,
	})
	require.NoError(t, err)
	return field
}

func (e *testEnv) mustStartCampaign(t *testing.T, name string, priority int, traffic float64, conds []models.TargetCondition) *models.Campaign {
	t.Helper()
	ctx := context.Background()
	campaign, err := e.campaigns.Create(ctx, &CreateCampaignRequest{
		CampaignName:      name,
		Priority:          priority,
		TrafficPercentage: traffic,
		TargetConditions:  conds,
		CreatedBy:         "test",
	})
	require.NoError(t, err)
	campaign, err = e.campaigns.Transition(ctx, campaign.ID, models.CampaignRunning)
	require.NoError(t, err)
	return campaign
}

func levelCond(op string, n float64) models.TargetCondition {
	return models.TargetCondition{Field: "userLevel", Operator: op, Value: models.NumberValue(n)}
}

func standardFields(t *testing.T, e *testEnv) {
	t.Helper()
	e.mustCreateField(t, "userLevel", models.FieldNumber,
		targeting.OpEquals, targeting.OpGreaterThan, targeting.OpGreaterThanOrEqual, targeting.OpLessThan)
	e.mustCreateField(t, "country", models.FieldString,
		targeting.OpEquals, targeting.OpNotEquals, targeting.OpIn, targeting.OpNotIn)
}

func timePtr(ts time.Time) *time.Time { return &ts }
