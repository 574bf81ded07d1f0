package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunItem_OutputMatches(t *testing.T) {
	t.Run("no expected output", func(t *testing.T) {
		ri := &RunItem{ActualOutput: NewJSONValue("anything")}
		require.False(t, ri.OutputMatches())
	})

	t.Run("matching strings", func(t *testing.T) {
		ri := &RunItem{
			ExpectedOutput: NewJSONValue("hello"),
			ActualOutput:   NewJSONValue("hello"),
		}
		require.True(t, ri.OutputMatches())
	})

	t.Run("structurally equal maps", func(t *testing.T) {
		ri := &RunItem{
			ExpectedOutput: NewJSONValue(map[string]any{"b": 2.0, "a": 1.0}),
			ActualOutput:   NewJSONValue(map[string]any{"a": 1.0, "b": 2.0}),
		}
		require.True(t, ri.OutputMatches())
	})

	t.Run("mismatched values", func(t *testing.T) {
		ri := &RunItem{
			ExpectedOutput: NewJSONValue("hello"),
			ActualOutput:   NewJSONValue("goodbye"),
		}
		require.False(t, ri.OutputMatches())
	})
}

func TestRunStatus_Terminal(t *testing.T) {
	require.False(t, RunStatusPending.Terminal())
	require.False(t, RunStatusRunning.Terminal())
	require.True(t, RunStatusCompleted.Terminal())
	require.True(t, RunStatusFailed.Terminal())
}

func TestJSONValue_IsEmpty(t *testing.T) {
	require.True(t, JSONValue{}.IsEmpty())
	require.True(t, NewJSONValue(nil).IsEmpty())
	require.True(t, NewJSONValue("").IsEmpty())
	require.False(t, NewJSONValue("x").IsEmpty())
	require.False(t, NewJSONValue(map[string]any{}).IsEmpty())
}

func TestJSONValue_Scan(t *testing.T) {
	var v JSONValue
	require.NoError(t, v.Scan([]byte(`{"a":1}`)))
	require.True(t, v.Present)
	require.Equal(t, map[string]any{"a": 1.0}, v.Val)

	require.NoError(t, v.Scan(nil))
	require.False(t, v.Present)
}

func TestJSONValue_CanonicalString(t *testing.T) {
	require.Equal(t, "plain", NewJSONValue("plain").CanonicalString())
	require.Equal(t, `{"a":1,"b":2}`, NewJSONValue(map[string]any{"b": 2, "a": 1}).CanonicalString())
	require.Equal(t, "", JSONValue{}.CanonicalString())
}

func TestPriority_Exceeds(t *testing.T) {
	require.True(t, PriorityHigh.Exceeds(PriorityMedium))
	require.True(t, PriorityMedium.Exceeds(PriorityLow))
	require.False(t, PriorityLow.Exceeds(PriorityHigh))
	require.False(t, PriorityHigh.Exceeds(PriorityHigh))
	require.True(t, PriorityLow.Exceeds(Priority("")))
}
