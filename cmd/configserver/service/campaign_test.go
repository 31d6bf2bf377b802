package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/models"
	"github.com/playforge/remoteconfig/common/targeting"
)

func TestCreateCampaignRejectsUnknownField(t *testing.T) {
	e := newTestEnv(t)
	standardFields(t, e)

	_, err := e.campaigns.Create(context.Background(), &CreateCampaignRequest{
		CampaignName:      "bad",
		TrafficPercentage: 100,
		TargetConditions: []models.TargetCondition{
			{Field: "shoeSize", Operator: targeting.OpEquals, Value: models.NumberValue(43)},
		},
	})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestCreateCampaignRejectsDisabledOperator(t *testing.T) {
	e := newTestEnv(t)
	standardFields(t, e)

	// country was registered without greater_than
	_, err := e.campaigns.Create(context.Background(), &CreateCampaignRequest{
		CampaignName:      "bad",
		TrafficPercentage: 100,
		TargetConditions: []models.TargetCondition{
			{Field: "country", Operator: targeting.OpGreaterThan, Value: models.StringValue("a")},
		},
	})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestCreateCampaignRejectsBadExpression(t *testing.T) {
	e := newTestEnv(t)
	expr := "ctx.country =="

	_, err := e.campaigns.Create(context.Background(), &CreateCampaignRequest{
		CampaignName:      "bad",
		TrafficPercentage: 100,
		Expression:        &expr,
	})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestCreateCampaignRejectsBadSchedule(t *testing.T) {
	e := newTestEnv(t)
	now := time.Now().UTC()

	_, err := e.campaigns.Create(context.Background(), &CreateCampaignRequest{
		CampaignName:      "bad",
		TrafficPercentage: 100,
		StartDate:         timePtr(now),
		EndDate:           timePtr(now.Add(-time.Hour)),
	})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestCreateCampaignRejectsBadTraffic(t *testing.T) {
	e := newTestEnv(t)

	for _, pct := range []float64{-1, 101} {
		_, err := e.campaigns.Create(context.Background(), &CreateCampaignRequest{
			CampaignName:      "bad",
			TrafficPercentage: pct,
		})
		require.Error(t, err)
		assert.True(t, errs.IsValidation(err))
	}
}

func TestCampaignIllegalTransition(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	campaign, err := e.campaigns.Create(ctx, &CreateCampaignRequest{
		CampaignName:      "lifecycle",
		TrafficPercentage: 100,
	})
	require.NoError(t, err)

	_, err = e.campaigns.Transition(ctx, campaign.ID, models.CampaignCompleted)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidState(err))

	got, err := e.campaigns.Get(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignDraft, got.Status)
}

func TestCampaignPauseResume(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	campaign := e.mustStartCampaign(t, "pausable", 1, 100, nil)

	paused, err := e.campaigns.Transition(ctx, campaign.ID, models.CampaignPaused)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignPaused, paused.Status)

	resumed, err := e.campaigns.Transition(ctx, campaign.ID, models.CampaignRunning)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignRunning, resumed.Status)
}

func TestSetOverrideValidatesValueType(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	entry := e.mustCreateConfig(t, "max.slots", models.ConfigNumber, models.NumberValue(5))
	campaign := e.mustStartCampaign(t, "typed", 1, 100, nil)

	_, err := e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.StringValue("many"))
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))

	_, err = e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.NumberValue(10))
	require.NoError(t, err)
}

func TestSetOverrideReplacesExisting(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	entry := e.mustCreateConfig(t, "max.slots", models.ConfigNumber, models.NumberValue(5))
	campaign := e.mustStartCampaign(t, "replace", 1, 100, nil)

	_, err := e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.NumberValue(10))
	require.NoError(t, err)
	_, err = e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.NumberValue(20))
	require.NoError(t, err)

	got, err := e.campaigns.Get(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, got.Overrides, 1)
	assert.Equal(t, float64(20), got.Overrides[0].Value.Num)
}

func TestRemoveOverride(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	entry := e.mustCreateConfig(t, "max.slots", models.ConfigNumber, models.NumberValue(5))
	campaign := e.mustStartCampaign(t, "detach", 1, 100, nil)

	_, err := e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.NumberValue(10))
	require.NoError(t, err)
	require.NoError(t, e.campaigns.RemoveOverride(ctx, campaign.ID, entry.ID))

	got, err := e.campaigns.Get(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Overrides)

	err = e.campaigns.RemoveOverride(ctx, campaign.ID, entry.ID)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestSetVariantEnforcesTrafficSum(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))
	campaign := e.mustStartCampaign(t, "ab", 1, 100, nil)

	_, err := e.campaigns.SetVariant(ctx, campaign.ID, &SetVariantRequest{
		ConfigID: entry.ID, VariantName: "a", Value: models.StringValue("a"),
		TrafficPercentage: 60, IsActive: true,
	})
	require.NoError(t, err)

	_, err = e.campaigns.SetVariant(ctx, campaign.ID, &SetVariantRequest{
		ConfigID: entry.ID, VariantName: "b", Value: models.StringValue("b"),
		TrafficPercentage: 50, IsActive: true,
	})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))

	// inactive variants do not count towards the sum
	_, err = e.campaigns.SetVariant(ctx, campaign.ID, &SetVariantRequest{
		ConfigID: entry.ID, VariantName: "b", Value: models.StringValue("b"),
		TrafficPercentage: 50, IsActive: false,
	})
	require.NoError(t, err)
}

func TestSetVariantReplaceKeepsIdentity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))
	campaign := e.mustStartCampaign(t, "ab", 1, 100, nil)

	first, err := e.campaigns.SetVariant(ctx, campaign.ID, &SetVariantRequest{
		ConfigID: entry.ID, VariantName: "a", Value: models.StringValue("v1"),
		TrafficPercentage: 50, IsActive: true,
	})
	require.NoError(t, err)

	second, err := e.campaigns.SetVariant(ctx, campaign.ID, &SetVariantRequest{
		ConfigID: entry.ID, VariantName: "a", Value: models.StringValue("v2"),
		TrafficPercentage: 40, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := e.campaigns.Get(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, "v2", got.Variants[0].Value.Str)
}

func TestRemoveVariantUnknown(t *testing.T) {
	e := newTestEnv(t)
	campaign := e.mustStartCampaign(t, "empty", 1, 100, nil)

	err := e.campaigns.RemoveVariant(context.Background(), campaign.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestUpdateCampaignClearsExpression(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	expr := `ctx.premium == true`

	campaign, err := e.campaigns.Create(ctx, &CreateCampaignRequest{
		CampaignName:      "gated",
		TrafficPercentage: 100,
		Expression:        &expr,
	})
	require.NoError(t, err)
	require.NotNil(t, campaign.Expression)

	empty := ""
	updated, err := e.campaigns.Update(ctx, campaign.ID, &UpdateCampaignRequest{Expression: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.Expression)
}

func TestDeleteCampaignRemovesAttachments(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	entry := e.mustCreateConfig(t, "ui.theme", models.ConfigString, models.StringValue("light"))
	campaign := e.mustStartCampaign(t, "doomed", 1, 100, nil)

	_, err := e.campaigns.SetOverride(ctx, campaign.ID, entry.ID, models.StringValue("x"))
	require.NoError(t, err)

	require.NoError(t, e.campaigns.Delete(ctx, campaign.ID))
	_, err = e.campaigns.Get(ctx, campaign.ID)
	assert.True(t, errs.IsNotFound(err))

	// the resolver no longer sees the campaign
	res, err := e.resolver.Resolve(ctx, "ui.theme", nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "published", res.Source)
}
