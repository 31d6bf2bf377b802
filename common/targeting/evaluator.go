package targeting

import (
	"strconv"
	"strings"

	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/models"
)

// Evaluator evaluates flat condition lists against a concrete context map.
// Conditions combine left to right with no precedence.
type Evaluator struct {
	model *ContextModel
}

// NewEvaluator creates an evaluator over the given context model
func NewEvaluator(model *ContextModel) *Evaluator {
	return &Evaluator{model: model}
}

// Evaluate runs the condition list against the context. An empty list
// evaluates to true. Unknown fields or operators are hard evaluation errors.
func (e *Evaluator) Evaluate(conds []models.TargetCondition, context map[string]any) (bool, error) {
	if len(conds) == 0 {
		return true, nil
	}

	result, err := e.EvaluateOne(conds[0], context)
	if err != nil {
		return false, err
	}

	for _, cond := range conds[1:] {
		next, err := e.EvaluateOne(cond, context)
		if err != nil {
			return false, err
		}
		if cond.LogicalOperator == models.LogicalOr {
			result = result || next
		} else {
			result = result && next
		}
	}

	return result, nil
}

// ConditionResult records one condition's outcome during a trace run
type ConditionResult struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Matched  bool   `json:"matched"`
}

// EvaluateTrace evaluates like Evaluate but also reports each condition's
// individual outcome, for rule-authoring tooling
func (e *Evaluator) EvaluateTrace(conds []models.TargetCondition, context map[string]any) (bool, []ConditionResult, error) {
	trace := make([]ConditionResult, 0, len(conds))
	if len(conds) == 0 {
		return true, trace, nil
	}

	var result bool
	for i, cond := range conds {
		matched, err := e.EvaluateOne(cond, context)
		if err != nil {
			return false, nil, err
		}
		trace = append(trace, ConditionResult{Field: cond.Field, Operator: cond.Operator, Matched: matched})
		switch {
		case i == 0:
			result = matched
		case cond.LogicalOperator == models.LogicalOr:
			result = result || matched
		default:
			result = result && matched
		}
	}
	return result, trace, nil
}

// EvaluateOne evaluates a single condition against the context
func (e *Evaluator) EvaluateOne(cond models.TargetCondition, context map[string]any) (bool, error) {
	field, ok := e.model.Field(cond.Field)
	if !ok {
		return false, errs.Evaluation(cond.Field, cond.Operator, "unknown context field")
	}
	op, ok := LookupOperator(cond.Operator)
	if !ok {
		return false, errs.Evaluation(cond.Field, cond.Operator, "unknown operator")
	}
	if !op.SupportsFieldType(field.Type) {
		return false, errs.Evaluation(cond.Field, cond.Operator, "operator does not apply to %s fields", field.Type)
	}

	raw, present := context[cond.Field]
	if !present && field.DefaultValue != nil {
		return e.apply(field, op, cond.Value, *field.DefaultValue)
	}

	switch op.Key {
	case OpExists:
		return present, nil
	case OpNotExists:
		return !present, nil
	}

	// Absence satisfies negation; every other operator fails on a missing key
	if !present {
		return op.Negative, nil
	}

	return e.apply(field, op, cond.Value, fromAny(raw))
}

// apply dispatches per operator semantics with both sides coerced to the
// field's declared type
func (e *Evaluator) apply(field models.ContextFieldDefinition, op models.ContextOperator, condValue, ctxValue models.Value) (bool, error) {
	switch op.Key {
	case OpExists:
		return true, nil
	case OpNotExists:
		return false, nil

	case OpEquals, OpNotEquals:
		eq, err := equalByType(field.Type, ctxValue, condValue)
		if err != nil {
			return false, errs.Evaluation(field.Key, op.Key, "%v", err)
		}
		if op.Key == OpNotEquals {
			return !eq, nil
		}
		return eq, nil

	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		left, err := ctxValue.AsNumber()
		if err != nil {
			return false, errs.Evaluation(field.Key, op.Key, "context value: %v", err)
		}
		right, err := condValue.AsNumber()
		if err != nil {
			return false, errs.Evaluation(field.Key, op.Key, "condition value: %v", err)
		}
		switch op.Key {
		case OpGreaterThan:
			return left > right, nil
		case OpGreaterThanOrEqual:
			return left >= right, nil
		case OpLessThan:
			return left < right, nil
		default:
			return left <= right, nil
		}

	case OpIn, OpNotIn:
		list, err := condValue.AsStrings()
		if err != nil {
			return false, errs.Evaluation(field.Key, op.Key, "condition list: %v", err)
		}
		found := false
		for _, item := range list {
			eq, err := equalByType(field.Type, ctxValue, models.StringValue(item))
			if err != nil {
				continue
			}
			if eq {
				found = true
				break
			}
		}
		if op.Key == OpNotIn {
			return !found, nil
		}
		return found, nil

	case OpContains, OpNotContains:
		contained, err := contains(field.Type, ctxValue, condValue)
		if err != nil {
			return false, errs.Evaluation(field.Key, op.Key, "%v", err)
		}
		if op.Key == OpNotContains {
			return !contained, nil
		}
		return contained, nil

	case OpVersionEq, OpVersionGt, OpVersionGte, OpVersionLt, OpVersionLte:
		left, err := ctxValue.AsString()
		if err != nil {
			return false, errs.Evaluation(field.Key, op.Key, "context value: %v", err)
		}
		right, err := condValue.AsString()
		if err != nil {
			return false, errs.Evaluation(field.Key, op.Key, "condition value: %v", err)
		}
		cmp, err := CompareVersions(left, right)
		if err != nil {
			return false, errs.Evaluation(field.Key, op.Key, "%v", err)
		}
		switch op.Key {
		case OpVersionEq:
			return cmp == 0, nil
		case OpVersionGt:
			return cmp > 0, nil
		case OpVersionGte:
			return cmp >= 0, nil
		case OpVersionLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	}

	return false, errs.Evaluation(field.Key, op.Key, "operator not implemented")
}

// equalByType compares two values after coercion to the field's declared type
func equalByType(t models.FieldType, left, right models.Value) (bool, error) {
	switch t {
	case models.FieldNumber:
		l, err := left.AsNumber()
		if err != nil {
			return false, err
		}
		r, err := right.AsNumber()
		if err != nil {
			return false, err
		}
		return l == r, nil
	case models.FieldBoolean:
		l, err := left.AsBool()
		if err != nil {
			return false, err
		}
		r, err := right.AsBool()
		if err != nil {
			return false, err
		}
		return l == r, nil
	default:
		l, err := left.AsString()
		if err != nil {
			return false, err
		}
		r, err := right.AsString()
		if err != nil {
			return false, err
		}
		return l == r, nil
	}
}

// contains checks substring membership for string fields and element
// membership for array fields
func contains(t models.FieldType, ctxValue, condValue models.Value) (bool, error) {
	needle, err := condValue.AsString()
	if err != nil {
		return false, err
	}

	if t == models.FieldArray {
		elems, err := ctxValue.AsStrings()
		if err != nil {
			return false, err
		}
		for _, e := range elems {
			if e == needle {
				return true, nil
			}
		}
		return false, nil
	}

	haystack, err := ctxValue.AsString()
	if err != nil {
		return false, err
	}
	return strings.Contains(haystack, needle), nil
}

// CompareVersions compares two dotted numeric versions component-wise.
// Missing components count as zero, so 1.2 == 1.2.0.
func CompareVersions(a, b string) (int, error) {
	as, err := versionComponents(a)
	if err != nil {
		return 0, err
	}
	bs, err := versionComponents(b)
	if err != nil {
		return 0, err
	}

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av != bv {
			if av < bv {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

func versionComponents(v string) ([]int, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if !versionPattern.MatchString(v) {
		return nil, errs.Validation("version", "malformed version %q", v)
	}
	parts := strings.Split(v, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errs.Validation("version", "malformed version %q", v)
		}
		out = append(out, n)
	}
	return out, nil
}

// fromAny converts a loosely-typed context entry into a Value
func fromAny(raw any) models.Value {
	switch v := raw.(type) {
	case models.Value:
		return v
	case string:
		return models.StringValue(v)
	case bool:
		return models.BoolValue(v)
	case float64:
		return models.NumberValue(v)
	case float32:
		return models.NumberValue(float64(v))
	case int:
		return models.NumberValue(float64(v))
	case int32:
		return models.NumberValue(float64(v))
	case int64:
		return models.NumberValue(float64(v))
	case []string:
		return models.StringArrayValue(v...)
	case []any:
		arr := make([]models.Value, 0, len(v))
		for _, e := range v {
			arr = append(arr, fromAny(e))
		}
		return models.ArrayValue(arr...)
	default:
		return models.Value{}
	}
}
