package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/logger"
	"github.com/playforge/remoteconfig/common/models"
)

// ConfigService handles config entry CRUD
type ConfigService struct {
	store Store
	log   *logger.Logger
}

// NewConfigService creates a new config service
func NewConfigService(store Store, log *logger.Logger) *ConfigService {
	return &ConfigService{store: store, log: log}
}

// CreateConfigRequest carries the fields for a new config entry
type CreateConfigRequest struct {
	KeyName      string                 `json:"key_name"`
	Description  string                 `json:"description"`
	ValueType    models.ConfigValueType `json:"value_type"`
	DefaultValue models.Value           `json:"default_value"`
	Schema       json.RawMessage        `json:"schema,omitempty"`
	CreatedBy    string                 `json:"created_by"`
}

// Create inserts a new config entry with a unique, immutable key name
func (s *ConfigService) Create(ctx context.Context, req *CreateConfigRequest) (*models.ConfigEntry, error) {
	if req.KeyName == "" {
		return nil, errs.Validation("key_name", "key name is required")
	}
	if !validConfigValueType(req.ValueType) {
		return nil, errs.Validation("value_type", "unknown value type %q", req.ValueType)
	}

	existing, err := s.store.Configs().GetByKey(ctx, req.KeyName)
	if err != nil && !errs.IsNotFound(err) {
		return nil, fmt.Errorf("check key name: %w", err)
	}
	if existing != nil {
		return nil, errs.Conflict("config", req.KeyName)
	}

	if err := ValidateConfigValue(req.ValueType, req.DefaultValue, req.Schema); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &models.ConfigEntry{
		ID:           uuid.New(),
		KeyName:      req.KeyName,
		Description:  req.Description,
		ValueType:    req.ValueType,
		DefaultValue: req.DefaultValue,
		Schema:       req.Schema,
		IsActive:     true,
		CreatedBy:    req.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Configs().Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert config: %w", err)
	}

	s.log.Info("config created", "config_key", entry.KeyName, "value_type", entry.ValueType)
	return entry, nil
}

// UpdateConfigRequest carries mutable config entry fields. KeyName is
// immutable after creation.
type UpdateConfigRequest struct {
	Description *string         `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

// Update modifies a config entry's mutable attributes
func (s *ConfigService) Update(ctx context.Context, id uuid.UUID, req *UpdateConfigRequest) (*models.ConfigEntry, error) {
	entry, err := s.store.Configs().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		entry.Description = *req.Description
	}
	if req.Schema != nil {
		entry.Schema = req.Schema
	}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := s.store.Configs().Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("update config: %w", err)
	}

	return entry, nil
}

// Delete removes a config entry and its version history
func (s *ConfigService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.Configs().Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Configs().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	s.log.Info("config deleted", "config_id", id)
	return nil
}

// Get returns a config entry by id
func (s *ConfigService) Get(ctx context.Context, id uuid.UUID) (*models.ConfigEntry, error) {
	return s.store.Configs().Get(ctx, id)
}

// GetByKey returns a config entry by key name
func (s *ConfigService) GetByKey(ctx context.Context, keyName string) (*models.ConfigEntry, error) {
	return s.store.Configs().GetByKey(ctx, keyName)
}

// List returns config entries matching the filter plus the total count
func (s *ConfigService) List(ctx context.Context, filter ConfigFilter) ([]*models.ConfigEntry, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	return s.store.Configs().List(ctx, filter)
}

func validConfigValueType(t models.ConfigValueType) bool {
	switch t {
	case models.ConfigString, models.ConfigNumber, models.ConfigBoolean,
		models.ConfigJSON, models.ConfigYAML:
		return true
	}
	return false
}

// ValidateConfigValue checks a value against the config's declared type and,
// for json configs, the optional JSON Schema
func ValidateConfigValue(valueType models.ConfigValueType, value models.Value, schema json.RawMessage) error {
	switch valueType {
	case models.ConfigString:
		if _, err := value.AsString(); err != nil {
			return errs.Validation("value", "%v", err)
		}

	case models.ConfigNumber:
		if _, err := value.AsNumber(); err != nil {
			return errs.Validation("value", "%v", err)
		}

	case models.ConfigBoolean:
		if _, err := value.AsBool(); err != nil {
			return errs.Validation("value", "%v", err)
		}

	case models.ConfigJSON:
		raw, err := json.Marshal(value)
		if err != nil || !json.Valid(raw) {
			return errs.Validation("value", "value is not valid JSON")
		}
		if len(schema) > 0 {
			result, err := gojsonschema.Validate(
				gojsonschema.NewBytesLoader(schema),
				gojsonschema.NewBytesLoader(raw),
			)
			if err != nil {
				return errs.Validation("schema", "schema validation failed: %v", err)
			}
			if !result.Valid() {
				var ves errs.ValidationErrors
				for _, desc := range result.Errors() {
					ves = append(ves, errs.Validation("value", "%s", desc.String()))
				}
				return ves
			}
		}

	case models.ConfigYAML:
		s, err := value.AsString()
		if err != nil {
			return errs.Validation("value", "yaml config expects a string value: %v", err)
		}
		var out any
		if err := yaml.Unmarshal([]byte(s), &out); err != nil {
			return errs.Validation("value", "value is not valid YAML: %v", err)
		}

	default:
		return errs.Validation("value_type", "unknown value type %q", valueType)
	}

	return nil
}
