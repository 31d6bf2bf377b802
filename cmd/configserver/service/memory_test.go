package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/models"
)

// memoryStore is an in-memory Store for tests. Writes are applied directly,
// which is enough here: the services stage all checks before mutating.
type memoryStore struct {
	mu sync.Mutex

	configs     map[uuid.UUID]*models.ConfigEntry
	versions    map[uuid.UUID]*models.ConfigVersion
	deployments map[uuid.UUID]*models.Deployment
	campaigns   map[uuid.UUID]*models.Campaign
	fields      map[uuid.UUID]*models.ContextFieldDefinition
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		configs:     make(map[uuid.UUID]*models.ConfigEntry),
		versions:    make(map[uuid.UUID]*models.ConfigVersion),
		deployments: make(map[uuid.UUID]*models.Deployment),
		campaigns:   make(map[uuid.UUID]*models.Campaign),
		fields:      make(map[uuid.UUID]*models.ContextFieldDefinition),
	}
}

func (s *memoryStore) Configs() ConfigStore             { return (*memConfigs)(s) }
func (s *memoryStore) Versions() VersionStore           { return (*memVersions)(s) }
func (s *memoryStore) Deployments() DeploymentStore     { return (*memDeployments)(s) }
func (s *memoryStore) Campaigns() CampaignStore         { return (*memCampaigns)(s) }
func (s *memoryStore) ContextFields() ContextFieldStore { return (*memFields)(s) }

func (s *memoryStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(s)
}

type memConfigs memoryStore

func (s *memConfigs) Insert(_ context.Context, entry *models.ConfigEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.configs[entry.ID] = &cp
	return nil
}

func (s *memConfigs) Update(_ context.Context, entry *models.ConfigEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[entry.ID]; !ok {
		return errs.NotFound("config", entry.ID.String())
	}
	cp := *entry
	s.configs[entry.ID] = &cp
	return nil
}

func (s *memConfigs) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[id]; !ok {
		return errs.NotFound("config", id.String())
	}
	delete(s.configs, id)
	for vid, v := range s.versions {
		if v.ConfigID == id {
			delete(s.versions, vid)
		}
	}
	return nil
}

func (s *memConfigs) Get(_ context.Context, id uuid.UUID) (*models.ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.configs[id]
	if !ok {
		return nil, errs.NotFound("config", id.String())
	}
	cp := *entry
	return &cp, nil
}

func (s *memConfigs) GetByKey(_ context.Context, keyName string) (*models.ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.configs {
		if entry.KeyName == keyName {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, errs.NotFound("config", keyName)
}

func (s *memConfigs) List(_ context.Context, filter ConfigFilter) ([]*models.ConfigEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ConfigEntry
	for _, entry := range s.configs {
		if filter.Search != "" && !strings.Contains(entry.KeyName, filter.Search) {
			continue
		}
		if filter.ValueType != "" && entry.ValueType != filter.ValueType {
			continue
		}
		if filter.IsActive != nil && entry.IsActive != *filter.IsActive {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KeyName < out[j].KeyName })
	return out, len(out), nil
}

func (s *memConfigs) ListActive(_ context.Context) ([]*models.ConfigEntry, error) {
	active := true
	out, _, err := s.List(context.Background(), ConfigFilter{IsActive: &active})
	return out, err
}

type memVersions memoryStore

func (s *memVersions) Insert(_ context.Context, version *models.ConfigVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *version
	s.versions[version.ID] = &cp
	return nil
}

func (s *memVersions) UpdateStatus(_ context.Context, id uuid.UUID, status models.VersionStatus, publishedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[id]
	if !ok {
		return errs.NotFound("version", id.String())
	}
	v.Status = status
	if publishedAt != nil {
		v.PublishedAt = publishedAt
	}
	return nil
}

func (s *memVersions) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[id]; !ok {
		return errs.NotFound("version", id.String())
	}
	delete(s.versions, id)
	return nil
}

func (s *memVersions) Latest(_ context.Context, configID uuid.UUID) (*models.ConfigVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.ConfigVersion
	for _, v := range s.versions {
		if v.ConfigID != configID {
			continue
		}
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memVersions) ByStatus(_ context.Context, configID uuid.UUID, status models.VersionStatus) (*models.ConfigVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.ConfigVersion
	for _, v := range s.versions {
		if v.ConfigID != configID || v.Status != status {
			continue
		}
		if found == nil || v.VersionNumber > found.VersionNumber {
			found = v
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (s *memVersions) AllStaged(_ context.Context) ([]*models.ConfigVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ConfigVersion
	for _, v := range s.versions {
		if v.Status == models.StatusStaged {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConfigID.String() < out[j].ConfigID.String()
	})
	return out, nil
}

func (s *memVersions) List(_ context.Context, configID uuid.UUID) ([]*models.ConfigVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ConfigVersion
	for _, v := range s.versions {
		if v.ConfigID == configID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (s *memVersions) NextVersionNumber(_ context.Context, configID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, v := range s.versions {
		if v.ConfigID == configID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max + 1, nil
}

type memDeployments memoryStore

func (s *memDeployments) Insert(_ context.Context, deployment *models.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *deployment
	s.deployments[deployment.ID] = &cp
	return nil
}

func (s *memDeployments) Get(_ context.Context, id uuid.UUID) (*models.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[id]
	if !ok {
		return nil, errs.NotFound("deployment", id.String())
	}
	cp := *d
	return &cp, nil
}

func (s *memDeployments) GetByName(_ context.Context, name string) (*models.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deployments {
		if d.DeploymentName == name {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memDeployments) List(_ context.Context, page, limit int) ([]*models.Deployment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Deployment
	for _, d := range s.deployments {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeployedAt.After(out[j].DeployedAt) })
	total := len(out)
	start := (page - 1) * limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

type memCampaigns memoryStore

func (s *memCampaigns) Insert(_ context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *campaign
	s.campaigns[campaign.ID] = &cp
	return nil
}

func (s *memCampaigns) Update(_ context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.campaigns[campaign.ID]
	if !ok {
		return errs.NotFound("campaign", campaign.ID.String())
	}
	cp := *campaign
	// overrides and variants are managed through their own operations
	cp.Overrides = existing.Overrides
	cp.Variants = existing.Variants
	s.campaigns[campaign.ID] = &cp
	return nil
}

func (s *memCampaigns) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[id]; !ok {
		return errs.NotFound("campaign", id.String())
	}
	delete(s.campaigns, id)
	return nil
}

func (s *memCampaigns) Get(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, errs.NotFound("campaign", id.String())
	}
	cp := *c
	return &cp, nil
}

func (s *memCampaigns) List(_ context.Context, page, limit int) ([]*models.Campaign, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Campaign
	for _, c := range s.campaigns {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, len(out), nil
}

func (s *memCampaigns) ListRunnable(_ context.Context) ([]*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Campaign
	for _, c := range s.campaigns {
		if c.IsActive && c.Status == models.CampaignRunning {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (s *memCampaigns) UpsertOverride(_ context.Context, override *models.CampaignOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[override.CampaignID]
	if !ok {
		return errs.NotFound("campaign", override.CampaignID.String())
	}
	for i := range c.Overrides {
		if c.Overrides[i].ConfigID == override.ConfigID {
			c.Overrides[i] = *override
			return nil
		}
	}
	c.Overrides = append(c.Overrides, *override)
	return nil
}

func (s *memCampaigns) DeleteOverride(_ context.Context, campaignID, configID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return errs.NotFound("campaign", campaignID.String())
	}
	for i := range c.Overrides {
		if c.Overrides[i].ConfigID == configID {
			c.Overrides = append(c.Overrides[:i], c.Overrides[i+1:]...)
			return nil
		}
	}
	return errs.NotFound("override", configID.String())
}

func (s *memCampaigns) UpsertVariant(_ context.Context, variant *models.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[variant.CampaignID]
	if !ok {
		return errs.NotFound("campaign", variant.CampaignID.String())
	}
	for i := range c.Variants {
		if c.Variants[i].ConfigID == variant.ConfigID && c.Variants[i].VariantName == variant.VariantName {
			c.Variants[i] = *variant
			return nil
		}
	}
	c.Variants = append(c.Variants, *variant)
	return nil
}

func (s *memCampaigns) DeleteVariant(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		for i := range c.Variants {
			if c.Variants[i].ID == id {
				c.Variants = append(c.Variants[:i], c.Variants[i+1:]...)
				return nil
			}
		}
	}
	return errs.NotFound("variant", id.String())
}

type memFields memoryStore

func (s *memFields) Insert(_ context.Context, field *models.ContextFieldDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *field
	s.fields[field.ID] = &cp
	return nil
}

func (s *memFields) Update(_ context.Context, field *models.ContextFieldDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[field.ID]; !ok {
		return errs.NotFound("context field", field.ID.String())
	}
	cp := *field
	s.fields[field.ID] = &cp
	return nil
}

func (s *memFields) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[id]; !ok {
		return errs.NotFound("context field", id.String())
	}
	delete(s.fields, id)
	return nil
}

func (s *memFields) Get(_ context.Context, id uuid.UUID) (*models.ContextFieldDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[id]
	if !ok {
		return nil, errs.NotFound("context field", id.String())
	}
	cp := *f
	return &cp, nil
}

func (s *memFields) GetByKey(_ context.Context, key string) (*models.ContextFieldDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.fields {
		if f.Key == key {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memFields) List(_ context.Context) ([]*models.ContextFieldDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ContextFieldDefinition
	for _, f := range s.fields {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
