package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueUnmarshalInfersKind(t *testing.T) {
	tests := []struct {
		name string
		json string
		kind ValueKind
	}{
		{"string", `"dark"`, KindString},
		{"number", `42.5`, KindNumber},
		{"negative number", `-3`, KindNumber},
		{"bool true", `true`, KindBool},
		{"bool false", `false`, KindBool},
		{"array", `["us","eu"]`, KindArray},
		{"object", `{"max":10}`, KindJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.json), &v))
			assert.Equal(t, tt.kind, v.Kind)
		})
	}
}

func TestValueRoundTrip(t *testing.T) {
	for _, raw := range []string{`"dark"`, `42.5`, `true`, `["a","b"]`, `{"max":10}`} {
		var v Value
		require.NoError(t, json.Unmarshal([]byte(raw), &v))
		out, err := json.Marshal(v)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	}
}

func TestValueCoercion(t *testing.T) {
	n, err := StringValue("3.5").AsNumber()
	require.NoError(t, err)
	assert.Equal(t, 3.5, n)

	_, err = StringValue("abc").AsNumber()
	assert.Error(t, err)

	b, err := StringValue("true").AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	s, err := NumberValue(5).AsString()
	require.NoError(t, err)
	assert.Equal(t, "5", s)

	strs, err := StringArrayValue("us", "eu").AsStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"us", "eu"}, strs)

	// scalar becomes single-element list
	strs, err = StringValue("us").AsStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"us"}, strs)

	_, err = JSONValue(json.RawMessage(`{}`)).AsString()
	assert.Error(t, err)
}

func TestValueEqualCoercesToReceiverKind(t *testing.T) {
	assert.True(t, NumberValue(5).Equal(StringValue("5")))
	assert.True(t, StringValue("5").Equal(NumberValue(5)))
	assert.True(t, BoolValue(true).Equal(StringValue("true")))
	assert.False(t, NumberValue(5).Equal(NumberValue(6)))
	assert.True(t, StringArrayValue("a", "b").Equal(StringArrayValue("a", "b")))
	assert.False(t, StringArrayValue("a", "b").Equal(StringArrayValue("b", "a")))
}

func TestValueUnmarshalNull(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.True(t, v.IsZero())
}
