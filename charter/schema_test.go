package charter_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chartrun/machine/charter"
)

func TestSchemaValidateAcceptsAndRejects(t *testing.T) {
	schema, err := charter.NewSchema(map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"name": map[string]any{"type": "string"}},
		"required":             []any{"name"},
		"additionalProperties": false,
	})
	require.NoError(t, err)

	require.NoError(t, schema.Validate(map[string]any{"name": "a"}))
	require.Error(t, schema.Validate(map[string]any{}))
	require.Error(t, schema.Validate(map[string]any{"name": "a", "extra": 1}))
}

func TestNilSchemaAcceptsAnything(t *testing.T) {
	var schema *charter.Schema
	require.NoError(t, schema.Validate(map[string]any{"whatever": true}))
	require.Equal(t, map[string]any{}, schema.JSONSchema())
}

func TestDecodeValidateRoundTripsPayload(t *testing.T) {
	schema, err := charter.NewSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"count": map[string]any{"type": "integer"}},
	})
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{"count": 3})
	require.NoError(t, err)

	decoded, err := schema.DecodeValidate(payload)
	require.NoError(t, err)
	require.EqualValues(t, 3, decoded["count"])
}

func TestDecodeValidateRejectsInvalidPayload(t *testing.T) {
	schema, err := charter.NewSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"count": map[string]any{"type": "integer"}},
	})
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{"count": "not a number"})
	require.NoError(t, err)

	_, err = schema.DecodeValidate(payload)
	require.Error(t, err)
}

func TestMustSchemaPanicsOnInvalidDocument(t *testing.T) {
	require.Panics(t, func() {
		charter.MustSchema(map[string]any{"type": "not-a-real-type"})
	})
}
