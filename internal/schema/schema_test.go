package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return New("devspace_test",
		Field{Name: "type", Kind: String, Required: true, Enum: []string{"var"}},
		Field{Name: "key", Kind: String, Required: true},
		Field{Name: "force", Kind: Boolean, Default: false},
		Field{Name: "sync", Kind: Boolean},
		Field{Name: "lines", Kind: Number},
		Field{Name: "images", Kind: StringArray},
	)
}

func TestValidateAppliesDefaults(t *testing.T) {
	in, err := testSchema().Validate(json.RawMessage(`{"type":"var","key":"FOO"}`))
	require.NoError(t, err)

	assert.Equal(t, "var", in.Str("type"))
	require.NotNil(t, in.Bool("force"))
	assert.False(t, *in.Bool("force"))
	assert.Nil(t, in.Bool("sync"))
	assert.Nil(t, in.Number("lines"))
	assert.Nil(t, in.Strings("images"))
	assert.False(t, in.Has("sync"))
}

func TestValidateTypedValues(t *testing.T) {
	in, err := testSchema().Validate(json.RawMessage(`{"type":"var","key":"K","sync":false,"lines":50,"images":["a","b"]}`))
	require.NoError(t, err)

	require.NotNil(t, in.Bool("sync"))
	assert.False(t, *in.Bool("sync"))
	require.NotNil(t, in.Number("lines"))
	assert.Equal(t, 50.0, *in.Number("lines"))
	assert.Equal(t, []string{"a", "b"}, in.Strings("images"))
}

func TestValidateMissingRequired(t *testing.T) {
	_, err := testSchema().Validate(json.RawMessage(`{}`))
	require.Error(t, err)

	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.ElementsMatch(t, []string{"type", "key"}, v.Fields())
	assert.Contains(t, v.Error(), "devspace_test")
}

func TestValidateNullArgumentsIsEmptyObject(t *testing.T) {
	s := New("devspace_version", Field{Name: "workingDirectory", Kind: String})

	for _, raw := range []string{"", "null", "  "} {
		in, err := s.Validate(json.RawMessage(raw))
		require.NoError(t, err, "raw=%q", raw)
		assert.False(t, in.Has("workingDirectory"))
	}
}

func TestValidateEnum(t *testing.T) {
	_, err := testSchema().Validate(json.RawMessage(`{"type":"secret","key":"K"}`))
	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, []string{"type"}, v.Fields())
}

func TestValidateWrongType(t *testing.T) {
	_, err := testSchema().Validate(json.RawMessage(`{"type":"var","key":"K","lines":"ten","images":["a",3]}`))
	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Contains(t, v.Fields(), "lines")
	assert.Contains(t, v.Fields(), "images/1")
}

func TestValidateNullOptionalIsRejected(t *testing.T) {
	_, err := testSchema().Validate(json.RawMessage(`{"type":"var","key":"K","sync":null}`))
	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, []string{"sync"}, v.Fields())
}

func TestValidateDropsUnknownFields(t *testing.T) {
	in, err := testSchema().Validate(json.RawMessage(`{"type":"var","key":"K","extra":1}`))
	require.NoError(t, err)
	assert.False(t, in.Has("extra"))
}

func TestValidateNonObject(t *testing.T) {
	_, err := testSchema().Validate(json.RawMessage(`[1,2]`))
	var v *Violation
	require.True(t, errors.As(err, &v))
}

func TestJSONDocument(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(testSchema().JSON(), &doc))

	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, []any{"type", "key"}, doc["required"])

	props := doc["properties"].(map[string]any)
	images := props["images"].(map[string]any)
	assert.Equal(t, "array", images["type"])
	assert.Equal(t, map[string]any{"type": "string"}, images["items"])
	assert.Equal(t, false, props["force"].(map[string]any)["default"])
}
