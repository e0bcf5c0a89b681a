package events

import (
	"encoding/json"
	"testing"
	"time"

	"share-note-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteEvents(t *testing.T) {
	id := valueobjects.NewNoteID()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expires := ts.Add(time.Hour)

	created := NewNoteCreated(id, expires, ts)
	consumed := NewNoteConsumed(id, expires, ts.Add(time.Minute))

	var _ DomainEvent = created
	var _ DomainEvent = consumed

	assert.Equal(t, TypeNoteCreated, created.GetEventType())
	assert.Equal(t, id.String(), created.GetAggregateID())
	assert.Equal(t, ts, created.GetTimestamp())
	assert.Equal(t, 1, created.GetVersion())

	assert.Equal(t, TypeNoteConsumed, consumed.GetEventType())
	assert.Equal(t, ts.Add(time.Minute), consumed.GetTimestamp())
}

func TestNoteEvents_CarryNoSecrets(t *testing.T) {
	raw, err := json.Marshal(NewNoteCreated(valueobjects.NewNoteID(), time.Now(), time.Now()))
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Contains(t, fields, "note_id")
	assert.Contains(t, fields, "expires_at")
	assert.NotContains(t, fields, "content")
	assert.NotContains(t, fields, "password_hash")
}
