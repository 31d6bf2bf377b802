package models

import (
	"time"

	"github.com/google/uuid"
)

// FieldType is the declared type of a context field
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
	FieldVersion FieldType = "version"
)

// OperatorValueType describes the shape of a condition's value for an operator
type OperatorValueType string

const (
	// OperandNone takes no value (e.g. exists)
	OperandNone OperatorValueType = "none"
	// OperandSingle takes a single scalar value
	OperandSingle OperatorValueType = "single"
	// OperandMultiple takes a non-empty list of values
	OperandMultiple OperatorValueType = "multiple"
)

// LogicalOperator combines a condition with the previous one in the list
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// ContextFieldDefinition declares a targetable request attribute.
// Maps to: context_field table
type ContextFieldDefinition struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Key  string    `db:"key" json:"key"`
	Name string    `db:"name" json:"name"`
	Type FieldType `db:"type" json:"type"`

	// Operator keys enabled for this field (subset of the global catalog)
	Operators []string `db:"operators" json:"operators"`

	// Optional enumerated allowed values
	Options []string `db:"options" json:"options,omitempty"`

	DefaultValue *Value `db:"default_value" json:"default_value,omitempty"`
	IsRequired   bool   `db:"is_required" json:"is_required"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AllowsOperator reports whether the field enables the given operator key
func (f *ContextFieldDefinition) AllowsOperator(key string) bool {
	for _, op := range f.Operators {
		if op == key {
			return true
		}
	}
	return false
}

// ContextOperator is one entry of the fixed operator catalog
type ContextOperator struct {
	Key                 string            `json:"key"`
	Name                string            `json:"name"`
	ValueType           OperatorValueType `json:"value_type"`
	SupportedFieldTypes []FieldType       `json:"supported_field_types"`

	// Negative operators are satisfied by a missing context key
	Negative bool `json:"negative"`
}

// SupportsFieldType reports whether the operator applies to the given type
func (o *ContextOperator) SupportsFieldType(t FieldType) bool {
	for _, ft := range o.SupportedFieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// TargetCondition is one row of a campaign's flat condition list. The
// logical operator combines it with the previous condition; the first
// condition's operator is ignored.
type TargetCondition struct {
	Field           string          `json:"field"`
	Operator        string          `json:"operator"`
	Value           Value           `json:"value,omitempty"`
	LogicalOperator LogicalOperator `json:"logical_operator,omitempty"`
}
