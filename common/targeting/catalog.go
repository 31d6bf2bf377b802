package targeting

import (
	"regexp"

	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/models"
)

// Operator keys of the fixed catalog. The catalog is not user-editable.
const (
	OpEquals             = "equals"
	OpNotEquals          = "not_equals"
	OpGreaterThan        = "greater_than"
	OpGreaterThanOrEqual = "greater_than_or_equal"
	OpLessThan           = "less_than"
	OpLessThanOrEqual    = "less_than_or_equal"
	OpIn                 = "in"
	OpNotIn              = "not_in"
	OpContains           = "contains"
	OpNotContains        = "not_contains"
	OpExists             = "exists"
	OpNotExists          = "not_exists"
	OpVersionEq          = "version_eq"
	OpVersionGt          = "version_gt"
	OpVersionGte         = "version_gte"
	OpVersionLt          = "version_lt"
	OpVersionLte         = "version_lte"
)

var allFieldTypes = []models.FieldType{
	models.FieldString, models.FieldNumber, models.FieldBoolean,
	models.FieldArray, models.FieldVersion,
}

// catalog is the global operator catalog in presentation order
var catalog = []models.ContextOperator{
	{Key: OpEquals, Name: "Equals", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldString, models.FieldNumber, models.FieldBoolean, models.FieldVersion}},
	{Key: OpNotEquals, Name: "Not equals", ValueType: models.OperandSingle, Negative: true,
		SupportedFieldTypes: []models.FieldType{models.FieldString, models.FieldNumber, models.FieldBoolean, models.FieldVersion}},
	{Key: OpGreaterThan, Name: "Greater than", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldNumber}},
	{Key: OpGreaterThanOrEqual, Name: "Greater than or equal", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldNumber}},
	{Key: OpLessThan, Name: "Less than", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldNumber}},
	{Key: OpLessThanOrEqual, Name: "Less than or equal", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldNumber}},
	{Key: OpIn, Name: "In list", ValueType: models.OperandMultiple,
		SupportedFieldTypes: []models.FieldType{models.FieldString, models.FieldNumber, models.FieldVersion}},
	{Key: OpNotIn, Name: "Not in list", ValueType: models.OperandMultiple, Negative: true,
		SupportedFieldTypes: []models.FieldType{models.FieldString, models.FieldNumber, models.FieldVersion}},
	{Key: OpContains, Name: "Contains", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldString, models.FieldArray}},
	{Key: OpNotContains, Name: "Does not contain", ValueType: models.OperandSingle, Negative: true,
		SupportedFieldTypes: []models.FieldType{models.FieldString, models.FieldArray}},
	{Key: OpExists, Name: "Exists", ValueType: models.OperandNone,
		SupportedFieldTypes: allFieldTypes},
	{Key: OpNotExists, Name: "Does not exist", ValueType: models.OperandNone, Negative: true,
		SupportedFieldTypes: allFieldTypes},
	{Key: OpVersionEq, Name: "Version equals", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldVersion}},
	{Key: OpVersionGt, Name: "Version greater than", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldVersion}},
	{Key: OpVersionGte, Name: "Version greater than or equal", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldVersion}},
	{Key: OpVersionLt, Name: "Version less than", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldVersion}},
	{Key: OpVersionLte, Name: "Version less than or equal", ValueType: models.OperandSingle,
		SupportedFieldTypes: []models.FieldType{models.FieldVersion}},
}

var catalogByKey = func() map[string]models.ContextOperator {
	m := make(map[string]models.ContextOperator, len(catalog))
	for _, op := range catalog {
		m[op.Key] = op
	}
	return m
}()

// Catalog returns the global operator catalog
func Catalog() []models.ContextOperator {
	out := make([]models.ContextOperator, len(catalog))
	copy(out, catalog)
	return out
}

// LookupOperator returns an operator from the catalog by key
func LookupOperator(key string) (models.ContextOperator, bool) {
	op, ok := catalogByKey[key]
	return op, ok
}

// versionPattern accepts dotted numeric versions: 1.0, 1.2.3, 1.2.3.4
var versionPattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// ContextModel holds the field registry and the operator catalog used to
// validate and evaluate conditions
type ContextModel struct {
	fields map[string]models.ContextFieldDefinition
}

// NewContextModel builds a context model over the given field definitions
func NewContextModel(fields []models.ContextFieldDefinition) *ContextModel {
	m := &ContextModel{fields: make(map[string]models.ContextFieldDefinition, len(fields))}
	for _, f := range fields {
		m.fields[f.Key] = f
	}
	return m
}

// Field returns a field definition by key
func (m *ContextModel) Field(key string) (models.ContextFieldDefinition, bool) {
	f, ok := m.fields[key]
	return f, ok
}

// OperatorsForField filters the catalog to operators applicable to the field:
// the field's type must be supported and the field must enable the operator
func (m *ContextModel) OperatorsForField(field models.ContextFieldDefinition) []models.ContextOperator {
	var out []models.ContextOperator
	for _, op := range catalog {
		if op.SupportsFieldType(field.Type) && field.AllowsOperator(op.Key) {
			out = append(out, op)
		}
	}
	return out
}

// ValidateCondition checks a single condition against the model and returns
// all problems found
func (m *ContextModel) ValidateCondition(cond models.TargetCondition) []*errs.ValidationError {
	var out []*errs.ValidationError

	field, ok := m.fields[cond.Field]
	if !ok {
		out = append(out, errs.Validation("field", "unknown context field %q", cond.Field))
		return out
	}

	op, ok := catalogByKey[cond.Operator]
	if !ok {
		out = append(out, errs.Validation("operator", "unknown operator %q", cond.Operator))
		return out
	}
	if !op.SupportsFieldType(field.Type) {
		out = append(out, errs.Validation("operator", "operator %q does not apply to %s fields", op.Key, field.Type))
	}
	if !field.AllowsOperator(op.Key) {
		out = append(out, errs.Validation("operator", "operator %q is not enabled for field %q", op.Key, field.Key))
	}

	if cond.LogicalOperator != "" &&
		cond.LogicalOperator != models.LogicalAnd && cond.LogicalOperator != models.LogicalOr {
		out = append(out, errs.Validation("logical_operator", "must be AND or OR, got %q", cond.LogicalOperator))
	}

	switch op.ValueType {
	case models.OperandNone:
		// value ignored

	case models.OperandSingle:
		out = append(out, m.validateSingleValue(field, cond)...)

	case models.OperandMultiple:
		if cond.Value.Kind != models.KindArray || len(cond.Value.Arr) == 0 {
			out = append(out, errs.Validation("value", "operator %q requires a non-empty list", op.Key))
		}
	}

	return out
}

func (m *ContextModel) validateSingleValue(field models.ContextFieldDefinition, cond models.TargetCondition) []*errs.ValidationError {
	var out []*errs.ValidationError

	s, err := cond.Value.AsString()
	if err != nil || s == "" {
		out = append(out, errs.Validation("value", "operator %q requires a single non-empty value", cond.Operator))
		return out
	}

	switch field.Type {
	case models.FieldNumber:
		if _, err := cond.Value.AsNumber(); err != nil {
			out = append(out, errs.Validation("value", "field %q expects a numeric value, got %q", field.Key, s))
		}
	case models.FieldVersion:
		if !versionPattern.MatchString(s) {
			out = append(out, errs.Validation("value", "field %q expects a version like 1.2.3, got %q", field.Key, s))
		}
	}

	if len(field.Options) > 0 {
		found := false
		for _, opt := range field.Options {
			if opt == s {
				found = true
				break
			}
		}
		if !found {
			out = append(out, errs.Validation("value", "value %q is not among the allowed options for field %q", s, field.Key))
		}
	}

	return out
}

// ValidateConditions validates a whole condition list and returns an
// aggregate error, or nil when everything checks out
func (m *ContextModel) ValidateConditions(conds []models.TargetCondition) error {
	var all errs.ValidationErrors
	for i, cond := range conds {
		for _, ve := range m.ValidateCondition(cond) {
			all = append(all, errs.Validation(
				ve.Field, "condition %d: %s", i, ve.Msg))
		}
	}
	if len(all) == 0 {
		return nil
	}
	return all
}
