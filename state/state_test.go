package state_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/state"
)

func TestUpdateStateShallowMergesPatch(t *testing.T) {
	current := map[string]any{"count": 1.0, "name": "a"}
	patch := map[string]any{"count": 2.0}

	res := state.UpdateState(current, patch, nil)
	require.True(t, res.Success)
	require.Equal(t, 2.0, res.State["count"])
	require.Equal(t, "a", res.State["name"])

	// Original map is untouched.
	require.Equal(t, 1.0, current["count"])
}

func TestUpdateStateRejectsInvalidMergeAndKeepsOriginal(t *testing.T) {
	schema, err := charter.NewSchema(map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"count": map[string]any{"type": "number"}},
		"additionalProperties": false,
	})
	require.NoError(t, err)

	current := map[string]any{"count": 1.0}
	patch := map[string]any{"count": "not a number"}

	res := state.UpdateState(current, patch, schema)
	require.False(t, res.Success)
	require.Equal(t, current, res.State)
	require.NotEmpty(t, res.Error)
}

func TestUpdateStateAcceptsValidMerge(t *testing.T) {
	schema, err := charter.NewSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"count": map[string]any{"type": "number"}},
	})
	require.NoError(t, err)

	res := state.UpdateState(map[string]any{"count": 1.0}, map[string]any{"count": 5.0}, schema)
	require.True(t, res.Success)
	require.Equal(t, 5.0, res.State["count"])
}

func TestAncestorWriteErrorMessage(t *testing.T) {
	err := &state.AncestorWriteError{InstanceID: "abc"}
	require.Contains(t, err.Error(), "abc")
	require.Contains(t, err.Error(), "read-only")
}
