package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/logger"
	"github.com/playforge/remoteconfig/common/models"
	"github.com/playforge/remoteconfig/common/targeting"
)

// CatalogService manages the context field catalog that targeting conditions
// are validated against, and exposes the fixed operator set.
type CatalogService struct {
	store     Store
	snapshots *SnapshotService
	log       *logger.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store Store, snapshots *SnapshotService, log *logger.Logger) *CatalogService {
	return &CatalogService{store: store, snapshots: snapshots, log: log}
}

// CreateFieldRequest carries the definition of a new context field
type CreateFieldRequest struct {
	Key          string           `json:"key"`
	Name         string           `json:"name"`
	Type         models.FieldType `json:"type"`
	Operators    []string         `json:"operators,omitempty"`
	Options      []string         `json:"options,omitempty"`
	DefaultValue *models.Value    `json:"default_value,omitempty"`
	IsRequired   bool             `json:"is_required"`
}

// CreateField registers a new context field. When no operator subset is
// given, every catalog operator supporting the field type is enabled.
func (s *CatalogService) CreateField(ctx context.Context, req *CreateFieldRequest) (*models.ContextFieldDefinition, error) {
	if req.Key == "" {
		return nil, errs.Validation("key", "field key is required")
	}
	if !validFieldType(req.Type) {
		return nil, errs.Validation("type", "unknown field type %q", req.Type)
	}
	if err := validateOperatorSubset(req.Type, req.Operators); err != nil {
		return nil, err
	}

	existing, err := s.store.ContextFields().GetByKey(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("check field key: %w", err)
	}
	if existing != nil {
		return nil, errs.Conflict("context field", req.Key)
	}

	operators := req.Operators
	if len(operators) == 0 {
		for _, op := range targeting.Catalog() {
			if op.SupportsFieldType(req.Type) {
				operators = append(operators, op.Key)
			}
		}
	}

	now := time.Now().UTC()
	field := &models.ContextFieldDefinition{
		ID:           uuid.New(),
		Key:          req.Key,
		Name:         req.Name,
		Type:         req.Type,
		Operators:    operators,
		Options:      req.Options,
		DefaultValue: req.DefaultValue,
		IsRequired:   req.IsRequired,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.ContextFields().Insert(ctx, field); err != nil {
		return nil, fmt.Errorf("insert context field: %w", err)
	}

	s.log.Info("context field created", "field_key", field.Key, "field_type", field.Type)
	s.snapshots.NotifyChanged(ctx, "context field created")
	return field, nil
}

// UpdateFieldRequest carries mutable context field attributes. Key and Type
// are immutable: changing them would silently invalidate stored conditions.
type UpdateFieldRequest struct {
	Name         *string       `json:"name,omitempty"`
	Operators    *[]string     `json:"operators,omitempty"`
	Options      *[]string     `json:"options,omitempty"`
	DefaultValue *models.Value `json:"default_value,omitempty"`
	IsRequired   *bool         `json:"is_required,omitempty"`
}

// UpdateField modifies a context field definition
func (s *CatalogService) UpdateField(ctx context.Context, id uuid.UUID, req *UpdateFieldRequest) (*models.ContextFieldDefinition, error) {
	field, err := s.store.ContextFields().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		field.Name = *req.Name
	}
	if req.Operators != nil {
		if err := validateOperatorSubset(field.Type, *req.Operators); err != nil {
			return nil, err
		}
		field.Operators = *req.Operators
	}
	if req.Options != nil {
		field.Options = *req.Options
	}
	if req.DefaultValue != nil {
		field.DefaultValue = req.DefaultValue
	}
	if req.IsRequired != nil {
		field.IsRequired = *req.IsRequired
	}
	field.UpdatedAt = time.Now().UTC()

	if err := s.store.ContextFields().Update(ctx, field); err != nil {
		return nil, fmt.Errorf("update context field: %w", err)
	}

	s.snapshots.NotifyChanged(ctx, "context field updated")
	return field, nil
}

// DeleteField removes a context field. Deletion is refused while any active
// campaign still references the field in its conditions.
func (s *CatalogService) DeleteField(ctx context.Context, id uuid.UUID) error {
	field, err := s.store.ContextFields().Get(ctx, id)
	if err != nil {
		return err
	}

	campaigns, _, err := s.store.Campaigns().List(ctx, 1, listAllLimit)
	if err != nil {
		return fmt.Errorf("list campaigns: %w", err)
	}
	for _, c := range campaigns {
		if !c.IsActive {
			continue
		}
		for _, cond := range c.TargetConditions {
			if cond.Field == field.Key {
				return errs.InvalidState(
					"context field %s is referenced by campaign %s and cannot be deleted",
					field.Key, c.CampaignName)
			}
		}
	}

	if err := s.store.ContextFields().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete context field: %w", err)
	}

	s.log.Info("context field deleted", "field_key", field.Key)
	s.snapshots.NotifyChanged(ctx, "context field deleted")
	return nil
}

// GetField returns a context field by id
func (s *CatalogService) GetField(ctx context.Context, id uuid.UUID) (*models.ContextFieldDefinition, error) {
	return s.store.ContextFields().Get(ctx, id)
}

// ListFields returns all context field definitions
func (s *CatalogService) ListFields(ctx context.Context) ([]*models.ContextFieldDefinition, error) {
	return s.store.ContextFields().List(ctx)
}

// Operators returns the full fixed operator catalog
func (s *CatalogService) Operators() []models.ContextOperator {
	return targeting.Catalog()
}

// OperatorsForField returns the operators usable with a field, honoring its
// configured subset
func (s *CatalogService) OperatorsForField(ctx context.Context, id uuid.UUID) ([]models.ContextOperator, error) {
	field, err := s.store.ContextFields().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	model, err := s.contextModel(ctx)
	if err != nil {
		return nil, err
	}
	return model.OperatorsForField(*field), nil
}

// ValidateConditions checks a condition list against the current catalog
// without persisting anything
func (s *CatalogService) ValidateConditions(ctx context.Context, conditions []models.TargetCondition) error {
	model, err := s.contextModel(ctx)
	if err != nil {
		return err
	}
	return model.ValidateConditions(conditions)
}

// TestConditions evaluates a condition list against a sample context, so rule
// authors can try targeting rules before attaching them to a campaign. The
// returned trace carries each condition's individual outcome.
func (s *CatalogService) TestConditions(ctx context.Context, conditions []models.TargetCondition, sample map[string]any) (bool, []targeting.ConditionResult, error) {
	model, err := s.contextModel(ctx)
	if err != nil {
		return false, nil, err
	}
	if err := model.ValidateConditions(conditions); err != nil {
		return false, nil, err
	}
	return targeting.NewEvaluator(model).EvaluateTrace(conditions, sample)
}

// listAllLimit bounds the campaign scan used by the delete guard
const listAllLimit = 10000

func (s *CatalogService) contextModel(ctx context.Context) (*targeting.ContextModel, error) {
	fields, err := s.store.ContextFields().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list context fields: %w", err)
	}
	defs := make([]models.ContextFieldDefinition, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, *f)
	}
	return targeting.NewContextModel(defs), nil
}

func validFieldType(t models.FieldType) bool {
	switch t {
	case models.FieldString, models.FieldNumber, models.FieldBoolean,
		models.FieldArray, models.FieldVersion:
		return true
	}
	return false
}

func validateOperatorSubset(fieldType models.FieldType, operators []string) error {
	for _, key := range operators {
		op, ok := targeting.LookupOperator(key)
		if !ok {
			return errs.Validation("operators", "unknown operator %q", key)
		}
		if !op.SupportsFieldType(fieldType) {
			return errs.Validation("operators", "operator %q does not support %s fields", key, fieldType)
		}
	}
	return nil
}
