package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConversationChannelRoundTrip(t *testing.T) {
	id := uuid.New()
	channel := ConversationChannel(id)

	got, ok := ParseConversationChannel(channel)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestParseConversationChannel_Rejects(t *testing.T) {
	for _, channel := range []string{
		"",
		"conversation:",
		"conversation:not-a-uuid",
		"user:" + uuid.New().String(),
		uuid.New().String(),
	} {
		_, ok := ParseConversationChannel(channel)
		assert.False(t, ok, "channel %q", channel)
	}
}

func TestIsUserChannel(t *testing.T) {
	id := uuid.New()
	assert.True(t, IsUserChannel(UserChannel(id), id))
	assert.False(t, IsUserChannel(UserChannel(uuid.New()), id))
	assert.False(t, IsUserChannel(ConversationChannel(id), id))
}
