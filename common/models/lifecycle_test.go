package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/remoteconfig/common/errs"
)

func TestVersionTransitions(t *testing.T) {
	v := &ConfigVersion{VersionNumber: 1, Status: StatusDraft}

	require.NoError(t, v.Transition(StatusStaged))
	assert.True(t, v.IsStaged())

	require.NoError(t, v.Transition(StatusPublished))
	assert.True(t, v.IsPublished())

	require.NoError(t, v.Transition(StatusArchived))

	// archived is terminal
	err := v.Transition(StatusPublished)
	assert.True(t, errs.IsInvalidState(err))
}

func TestVersionTransitionRejectsSkips(t *testing.T) {
	v := &ConfigVersion{VersionNumber: 1, Status: StatusDraft}

	err := v.Transition(StatusPublished)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidState(err))
	assert.True(t, v.IsDraft(), "failed transition must not change status")
}

func TestStagedCanReturnToDraft(t *testing.T) {
	v := &ConfigVersion{VersionNumber: 1, Status: StatusStaged}
	require.NoError(t, v.Transition(StatusDraft))
	assert.True(t, v.IsDraft())
}

func TestCampaignTransitions(t *testing.T) {
	c := &Campaign{CampaignName: "promo", Status: CampaignDraft}

	require.NoError(t, c.TransitionStatus(CampaignScheduled))
	require.NoError(t, c.TransitionStatus(CampaignRunning))
	require.NoError(t, c.TransitionStatus(CampaignPaused))
	require.NoError(t, c.TransitionStatus(CampaignRunning))
	require.NoError(t, c.TransitionStatus(CampaignCompleted))

	err := c.TransitionStatus(CampaignRunning)
	assert.True(t, errs.IsInvalidState(err))
}

func TestCampaignInWindow(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Campaign{}).InWindow(now), "no bounds means always in window")
	assert.True(t, (&Campaign{StartDate: &past, EndDate: &future}).InWindow(now))
	assert.False(t, (&Campaign{StartDate: &future}).InWindow(now))
	assert.False(t, (&Campaign{EndDate: &past}).InWindow(now))
}

func TestValidateVariants(t *testing.T) {
	configA := uuid.New()
	configB := uuid.New()

	c := &Campaign{Variants: []Variant{
		{ConfigID: configA, VariantName: "control", TrafficPercentage: 50, IsActive: true},
		{ConfigID: configA, VariantName: "treatment", TrafficPercentage: 50, IsActive: true},
		{ConfigID: configB, VariantName: "control", TrafficPercentage: 90, IsActive: true},
	}}
	require.NoError(t, c.ValidateVariants())

	c.Variants = append(c.Variants, Variant{
		ConfigID: configA, VariantName: "extra", TrafficPercentage: 1, IsActive: true,
	})
	err := c.ValidateVariants()
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))

	// inactive variants do not count toward the sum
	c.Variants[3].IsActive = false
	require.NoError(t, c.ValidateVariants())
}

func TestOverrideAndVariantLookup(t *testing.T) {
	configA := uuid.New()
	configB := uuid.New()

	c := &Campaign{
		Overrides: []CampaignOverride{{ConfigID: configA, Value: StringValue("on")}},
		Variants: []Variant{
			{ConfigID: configA, VariantName: "a", IsActive: true},
			{ConfigID: configA, VariantName: "b", IsActive: false},
		},
	}

	require.NotNil(t, c.OverrideFor(configA))
	assert.Nil(t, c.OverrideFor(configB))

	active := c.VariantsFor(configA)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].VariantName)
}
