package address

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	a := &Address{
		ID:         "addr-1",
		UserID:     "user-1",
		Recipient:  "Jo Doe",
		Phone:      "090-0000-0000",
		Line1:      "1-2-3 Chiyoda",
		Line2:      "Apt 4",
		City:       "Tokyo",
		Province:   "Tokyo",
		PostalCode: "100-0001",
		IsDefault:  true,
	}

	raw, err := a.Snapshot()
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(raw, &snap))

	assert.Equal(t, "addr-1", snap["address_id"])
	assert.Equal(t, "Jo Doe", snap["recipient"])
	assert.Equal(t, "1-2-3 Chiyoda", snap["line1"])
	assert.Equal(t, "Apt 4", snap["line2"])
	assert.Equal(t, "100-0001", snap["postal_code"])

	// owner and bookkeeping fields stay out of the snapshot
	assert.NotContains(t, snap, "user_id")
	assert.NotContains(t, snap, "is_default")
	assert.NotContains(t, snap, "created_at")
}

func TestSnapshot_OmitsEmptyLine2(t *testing.T) {
	a := &Address{ID: "addr-1", Recipient: "Jo Doe", Line1: "1 Main St"}

	raw, err := a.Snapshot()
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.NotContains(t, snap, "line2")
}
