package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/remoteconfig/common/bucketing"
	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/models"
	"github.com/playforge/remoteconfig/common/targeting"
)

func TestResolveUnknownKey(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.snapshots.Refresh(context.Background()))

	_, err := e.resolver.Resolve(context.Background(), "nope", nil, "user-1")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestResolvePublishedFallback(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))

	_, err := e.versions.CreateDraft(ctx, entry.ID, models.StringValue("dark"), "alex")
	require.NoError(t, err)
	e.mustPublish(t, "release-1", entry.ID)

	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "published", res.Source)
	assert.Equal(t, "dark", res.Value.Str)
	assert.Nil(t, res.CampaignID)
}

func TestResolveDefaultBeforeFirstPublish(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))
	require.NoError(t, e.snapshots.Refresh(ctx))

	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "published", res.Source)
	assert.Equal(t, "light", res.Value.Str)
}

func TestResolveCampaignOverride(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	standardFields(t, e)
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))

	campaign := e.mustStartCampaign(t, "whales", 1, 100,
		[]models.TargetCondition{levelCond(targeting.OpGreaterThanOrEqual, 50)})
	_, err := e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.StringValue("gold"))
	require.NoError(t, err)

	res, err := e.resolver.Resolve(ctx, "ui.theme", map[string]any{"userLevel": 60}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "campaign", res.Source)
	assert.Equal(t, "gold", res.Value.Str)
	require.NotNil(t, res.CampaignID)
	assert.Equal(t, campaign.ID, *res.CampaignID)

	// subject outside the targeting falls back to the published value
	res, err = e.resolver.Resolve(ctx, "ui.theme", map[string]any{"userLevel": 10}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "published", res.Source)
	assert.Equal(t, "light", res.Value.Str)
}

func TestResolveSkipsCampaignWithoutValueForKey(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	standardFields(t, e)
	e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))
	other := e.mustCreateConfig(t, "max.slots", models.ConfigNumber, models.NumberValue(5))

	// campaign targets everyone but only carries a value for max.slots
	campaign := e.mustStartCampaign(t, "slots-boost", 1, 100, nil)
	_, err := e.campaigns.SetOverride(ctx, campaign.ID, other.ID, models.NumberValue(10))
	require.NoError(t, err)

	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "published", res.Source)
}

func TestResolvePriorityOrder(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	standardFields(t, e)
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))

	low := e.mustStartCampaign(t, "low", 10, 100, nil)
	high := e.mustStartCampaign(t, "high", 1, 100, nil)
	_, err := e.campaigns.SetOverride(ctx, low.ID, entry.ID, models.StringValue("bronze"))
	require.NoError(t, err)
	_, err = e.campaigns.SetOverride(ctx, high.ID, entry.ID, models.StringValue("gold"))
	require.NoError(t, err)

	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "gold", res.Value.Str)
	assert.Equal(t, high.ID, *res.CampaignID)
}

func TestResolveTrafficExclusionFallsThrough(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	standardFields(t, e)
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))

	narrow := e.mustStartCampaign(t, "narrow", 1, 1, nil)
	wide := e.mustStartCampaign(t, "wide", 10, 100, nil)
	_, err := e.campaigns.SetOverride(ctx, narrow.ID, entry.ID, models.StringValue("rare"))
	require.NoError(t, err)
	_, err = e.campaigns.SetOverride(ctx, wide.ID, entry.ID, models.StringValue("common"))
	require.NoError(t, err)

	// find a subject outside the 1% slice of the high-priority campaign
	subject := ""
	for i := 0; i < 1000; i++ {
		candidate := fmt.Sprintf("user-%d", i)
		if !bucketing.IsInTraffic(candidate, narrow.ID.String(), 1) {
			subject = candidate
			break
		}
	}
	require.NotEmpty(t, subject)

	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, subject)
	require.NoError(t, err)
	assert.Equal(t, "common", res.Value.Str, "excluded subjects move on to the next campaign, not the default")
	assert.Equal(t, wide.ID, *res.CampaignID)
}

func TestResolveVariantSelection(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	standardFields(t, e)
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))

	campaign := e.mustStartCampaign(t, "ab", 1, 100, nil)
	for _, name := range []string{"control", "treatment"} {
		_, err := e.campaigns.SetVariant(ctx, campaign.ID, &SetVariantRequest{
			ConfigID:          entry.ID,
			VariantName:       name,
			Value:             models.StringValue(name),
			TrafficPercentage: 50,
			IsActive:          true,
		})
		require.NoError(t, err)
	}

	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "variant", res.Source)
	require.NotNil(t, res.VariantName)
	assert.Equal(t, *res.VariantName, res.Value.Str)

	// assignment is sticky per subject
	again, err := e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, *res.VariantName, *again.VariantName)
}

func TestResolveVariantRemainderUsesOverride(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	standardFields(t, e)
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))

	campaign := e.mustStartCampaign(t, "partial-ab", 1, 100, nil)
	_, err := e.campaigns.SetVariant(ctx, campaign.ID, &SetVariantRequest{
		ConfigID:          entry.ID,
		VariantName:       "treatment",
		Value:             models.StringValue("exp"),
		TrafficPercentage: 10,
		IsActive:          true,
	})
	require.NoError(t, err)
	_, err = e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.StringValue("base"))
	require.NoError(t, err)

	fresh, err := e.campaigns.Get(ctx, campaign.ID)
	require.NoError(t, err)

	// find a subject past the 10% variant coverage
	subject := ""
	for i := 0; i < 1000; i++ {
		candidate := fmt.Sprintf("user-%d", i)
		if bucketing.SelectVariant(candidate, campaign.ID.String(), fresh.Variants) == nil {
			subject = candidate
			break
		}
	}
	require.NotEmpty(t, subject)

	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, subject)
	require.NoError(t, err)
	assert.Equal(t, "campaign", res.Source)
	assert.Equal(t, "base", res.Value.Str)
}

func TestResolveSkipsOutOfWindowCampaign(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	standardFields(t, e)
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))

	campaign, err := e.campaigns.Create(ctx, &CreateCampaignRequest{
		CampaignName:      "expired",
		Priority:          1,
		TrafficPercentage: 100,
		StartDate:         timePtr(time.Now().UTC().Add(-48 * time.Hour)),
		EndDate:           timePtr(time.Now().UTC().Add(-24 * time.Hour)),
		CreatedBy:         "test",
	})
	require.NoError(t, err)
	_, err = e.campaigns.Transition(ctx, campaign.ID, models.CampaignRunning)
	require.NoError(t, err)
	_, err = e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.StringValue("old"))
	require.NoError(t, err)

	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "published", res.Source)
}

func TestResolveExpressionGate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	standardFields(t, e)
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))

	expr := `ctx.country == "SE"`
	campaign, err := e.campaigns.Create(ctx, &CreateCampaignRequest{
		CampaignName:      "nordics",
		Priority:          1,
		TrafficPercentage: 100,
		Expression:        &expr,
		CreatedBy:         "test",
	})
	require.NoError(t, err)
	_, err = e.campaigns.Transition(ctx, campaign.ID, models.CampaignRunning)
	require.NoError(t, err)
	_, err = e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.StringValue("norrsken"))
	require.NoError(t, err)

	res, err := e.resolver.Resolve(ctx, "ui.theme", map[string]any{"country": "SE"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "campaign", res.Source)

	res, err = e.resolver.Resolve(ctx, "ui.theme", map[string]any{"country": "DE"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "published", res.Source)
}

// countingCache wraps a map and records hits, misses and writes
type countingCache struct {
	data   map[string][]byte
	hits   int
	misses int
	sets   int
}

func newCountingCache() *countingCache {
	return &countingCache{data: map[string][]byte{}}
}

func (c *countingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return raw, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.sets++
	c.data[key] = value
	return nil
}

func (c *countingCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *countingCache) Flush(context.Context) error {
	c.data = map[string][]byte{}
	return nil
}

func (c *countingCache) Close() error { return nil }

func TestResolveCachesResponses(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	responses := newCountingCache()
	e.resolver = NewResolver(e.snapshots, responses, time.Minute, e.resolver.tel, e.resolver.log)

	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))
	_, err := e.versions.CreateDraft(ctx, entry.ID, models.StringValue("dark"), "alex")
	require.NoError(t, err)
	e.mustPublish(t, "release-1", entry.ID)

	first, err := e.resolver.Resolve(ctx, "ui.theme", map[string]any{"country": "SE"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, responses.sets)
	assert.Equal(t, 0, responses.hits)

	second, err := e.resolver.Resolve(ctx, "ui.theme", map[string]any{"country": "SE"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, responses.hits, "identical request served from cache")
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.Source, second.Source)

	// a different subject or context misses
	_, err = e.resolver.Resolve(ctx, "ui.theme", map[string]any{"country": "SE"}, "user-2")
	require.NoError(t, err)
	_, err = e.resolver.Resolve(ctx, "ui.theme", map[string]any{"country": "DE"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, responses.hits)
	assert.Equal(t, 3, responses.sets)
}

func TestResolveCacheFlushedOnSnapshotRefresh(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	responses := newCountingCache()
	e.snapshots = NewSnapshotService(e.store, nil, responses, e.resolver.tel, "test:invalidate", e.resolver.log)
	e.versions = NewVersionService(e.store, e.resolver.log)
	e.deployments = NewDeploymentService(e.store, e.snapshots, e.resolver.log)
	e.resolver = NewResolver(e.snapshots, responses, time.Minute, e.resolver.tel, e.resolver.log)

	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))
	require.NoError(t, e.snapshots.Refresh(ctx))

	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "light", res.Value.Str)

	// publishing flushes the response cache along with the snapshot refresh
	_, err = e.versions.CreateDraft(ctx, entry.ID, models.StringValue("dark"), "alex")
	require.NoError(t, err)
	_, err = e.versions.Stage(ctx, []uuid.UUID{entry.ID}, "", "alex")
	require.NoError(t, err)
	_, err = e.deployments.Publish(ctx, "release-1", "", "alex")
	require.NoError(t, err)

	res, err = e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "dark", res.Value.Str, "stale responses must not survive a publish")
}

func TestResolveBatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))
	e.mustCreateConfig(t, "max.slots", models.ConfigNumber, models.NumberValue(5))
	require.NoError(t, e.snapshots.Refresh(ctx))

	out, err := e.resolver.ResolveBatch(ctx, []string{"ui.theme", "max.slots"}, nil, "user-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "light", out["ui.theme"].Value.Str)
	assert.Equal(t, float64(5), out["max.slots"].Value.Num)

	_, err = e.resolver.ResolveBatch(ctx, []string{"ui.theme", "missing"}, nil, "user-1")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}
