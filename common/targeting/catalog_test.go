package targeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/remoteconfig/common/models"
)

func TestOperatorsForFieldHonorsSubset(t *testing.T) {
	model := NewContextModel([]models.ContextFieldDefinition{
		{Key: "userLevel", Type: models.FieldNumber, Operators: []string{OpEquals, OpGreaterThan}},
	})

	field, ok := model.Field("userLevel")
	require.True(t, ok)

	ops := model.OperatorsForField(field)
	keys := make([]string, 0, len(ops))
	for _, op := range ops {
		keys = append(keys, op.Key)
	}
	assert.ElementsMatch(t, []string{OpEquals, OpGreaterThan}, keys)
}

func TestValidateConditionUnknownField(t *testing.T) {
	model := NewContextModel(nil)

	ves := model.ValidateCondition(models.TargetCondition{Field: "ghost", Operator: OpEquals})
	require.Len(t, ves, 1)
	assert.Contains(t, ves[0].Error(), "unknown context field")
}

func TestValidateConditionOperatorChecks(t *testing.T) {
	model := NewContextModel([]models.ContextFieldDefinition{
		{Key: "country", Type: models.FieldString, Operators: []string{OpEquals}},
	})

	// unknown operator
	ves := model.ValidateCondition(models.TargetCondition{Field: "country", Operator: "between"})
	require.NotEmpty(t, ves)

	// operator exists but does not apply to strings
	ves = model.ValidateCondition(models.TargetCondition{
		Field: "country", Operator: OpGreaterThan, Value: models.NumberValue(1),
	})
	require.NotEmpty(t, ves)

	// operator applies but the field did not enable it
	ves = model.ValidateCondition(models.TargetCondition{
		Field: "country", Operator: OpNotEquals, Value: models.StringValue("us"),
	})
	require.NotEmpty(t, ves)
	assert.Contains(t, ves[0].Error(), "not enabled")
}

func TestValidateConditionOperandShape(t *testing.T) {
	model := NewContextModel([]models.ContextFieldDefinition{
		{Key: "country", Type: models.FieldString, Operators: []string{OpIn, OpEquals}},
		{Key: "userLevel", Type: models.FieldNumber, Operators: []string{OpGreaterThan}},
		{Key: "appVersion", Type: models.FieldVersion, Operators: []string{OpVersionGte}},
		{Key: "plan", Type: models.FieldString, Operators: []string{OpEquals}, Options: []string{"free", "pro"}},
	})

	// multiple-operand operator requires a non-empty list
	ves := model.ValidateCondition(models.TargetCondition{
		Field: "country", Operator: OpIn, Value: models.StringValue("us"),
	})
	require.NotEmpty(t, ves)

	ves = model.ValidateCondition(models.TargetCondition{
		Field: "country", Operator: OpIn, Value: models.StringArrayValue(),
	})
	require.NotEmpty(t, ves)

	// numeric field rejects non-numeric operand
	ves = model.ValidateCondition(models.TargetCondition{
		Field: "userLevel", Operator: OpGreaterThan, Value: models.StringValue("high"),
	})
	require.NotEmpty(t, ves)

	// version operand must parse
	ves = model.ValidateCondition(models.TargetCondition{
		Field: "appVersion", Operator: OpVersionGte, Value: models.StringValue("one.two"),
	})
	require.NotEmpty(t, ves)

	// enumerated options restrict operand values
	ves = model.ValidateCondition(models.TargetCondition{
		Field: "plan", Operator: OpEquals, Value: models.StringValue("enterprise"),
	})
	require.NotEmpty(t, ves)

	ves = model.ValidateCondition(models.TargetCondition{
		Field: "plan", Operator: OpEquals, Value: models.StringValue("pro"),
	})
	assert.Empty(t, ves)
}

func TestValidateConditionsAggregates(t *testing.T) {
	model := NewContextModel([]models.ContextFieldDefinition{
		{Key: "country", Type: models.FieldString, Operators: []string{OpEquals}},
	})

	err := model.ValidateConditions([]models.TargetCondition{
		{Field: "country", Operator: OpEquals, Value: models.StringValue("us")},
		{Field: "ghost", Operator: OpEquals, Value: models.StringValue("x"), LogicalOperator: models.LogicalAnd},
		{Field: "country", Operator: "between", LogicalOperator: "XOR"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "condition 1")
	assert.Contains(t, err.Error(), "condition 2")

	require.NoError(t, model.ValidateConditions(nil))
}

func TestCatalogReturnsCopy(t *testing.T) {
	ops := Catalog()
	require.NotEmpty(t, ops)
	ops[0].Key = "mutated"

	fresh := Catalog()
	assert.NotEqual(t, "mutated", fresh[0].Key)
}
