package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemID_JSONRoundTrip(t *testing.T) {
	id := NewItemID()

	data, err := json.Marshal(id)
	require.NoError(t, err)

	var got ItemID
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, id.Equals(got))
}

func TestItemID_UnmarshalRejectsNonUUID(t *testing.T) {
	for _, raw := range []string{`"not-a-uuid"`, `""`, `42`} {
		var id ItemID
		err := json.Unmarshal([]byte(raw), &id)
		require.Error(t, err, "input %s", raw)
		assert.True(t, id.IsZero())
	}
}

func TestItemID_UnmarshalNull(t *testing.T) {
	var id ItemID
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))
	assert.True(t, id.IsZero())
}

func TestItemID_FromString(t *testing.T) {
	id := NewItemID()

	parsed, err := NewItemIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(parsed))

	_, err = NewItemIDFromString("")
	require.Error(t, err)

	_, err = NewItemIDFromString("not-a-uuid")
	require.Error(t, err)
}
