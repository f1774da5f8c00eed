package realtime

import (
	"encoding/json"
	"testing"

	"rightsnet/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		topic   string
		kind    string
		id      int
		wantErr bool
	}{
		{topic: ConversationTopic(12), kind: "conversation", id: 12},
		{topic: UserTopic(3), kind: "user", id: 3},
		{topic: CommunityTopic(7), kind: "community", id: 7},
		{topic: FeedTopic, kind: "feed"},
		{topic: PresenceTopic, kind: "presence"},
		{topic: "conversation:abc", wantErr: true},
		{topic: "conversation:-1", wantErr: true},
		{topic: "table:1", wantErr: true},
		{topic: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			kind, id, err := ParseTopic(tt.topic)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	msg := &models.Message{ID: 4, ConversationID: 2, SenderID: 1, Content: "hello"}

	var typed models.Message
	require.NoError(t, DecodeRecord(msg, &typed))
	assert.Equal(t, *msg, typed)

	// a change that went over the wire carries a generic map
	data, err := json.Marshal(NewChange("conversation:2", TableMessages, Insert, msg, nil))
	require.NoError(t, err)
	var wire Change
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.IsType(t, map[string]any{}, wire.Record)

	var decoded models.Message
	require.NoError(t, DecodeRecord(wire.Record, &decoded))
	assert.Equal(t, "hello", decoded.Content)
	assert.Equal(t, 4, decoded.ID)

	assert.Error(t, DecodeRecord(nil, &decoded))
}
