package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackedURLIntervalMarshalsAsSeconds(t *testing.T) {
	tracked := NewTrackedURL("https://example.com/alci", ".price", "alci_levha", 24*time.Hour)

	raw, err := json.Marshal(tracked)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.EqualValues(t, 86400, fields["interval_seconds"])
	assert.NotContains(t, fields, "interval")
}

func TestTrackedURLIntervalRoundTrips(t *testing.T) {
	tracked := NewTrackedURL("https://example.com/alci", ".price", "alci_levha", 6*time.Hour)

	raw, err := json.Marshal(tracked)
	require.NoError(t, err)

	var decoded TrackedURL
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 6*time.Hour, decoded.Interval)
	assert.Equal(t, tracked.ID, decoded.ID)
	assert.Equal(t, tracked.MaterialKey, decoded.MaterialKey)
}
