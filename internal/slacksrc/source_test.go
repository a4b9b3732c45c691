package slacksrc

import (
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
)

func TestIsActiveUser(t *testing.T) {
	tests := []struct {
		name string
		user slack.User
		want bool
	}{
		{"regular member", slack.User{ID: "U1", Name: "alice"}, true},
		{"deleted", slack.User{ID: "U2", Name: "bob", Deleted: true}, false},
		{"bot", slack.User{ID: "U3", Name: "deploybot", IsBot: true}, false},
		{"payment restricted", slack.User{ID: "U4", Name: "guest", IsRestricted: true}, false},
		{"system account", slack.User{ID: "USLACKBOT", Name: "slackbot"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isActiveUser(tt.user))
		})
	}
}

func TestToMessage(t *testing.T) {
	m := slack.Message{Msg: slack.Msg{
		Timestamp:       "1700000000.000100",
		User:            "U1",
		Text:            "<@U2> hello",
		SubType:         "",
		ThreadTimestamp: "1700000000.000100",
		ReplyCount:      3,
	}}

	got := toMessage(m, "general")
	assert.Equal(t, "general", got.Channel, "channel name is stamped on, the API leaves it empty")
	assert.Equal(t, "1700000000.000100", got.Timestamp)
	assert.Equal(t, "U1", got.SenderID)
	assert.Equal(t, "<@U2> hello", got.Text)
	assert.Equal(t, 3, got.ReplyCount)
	assert.True(t, got.IsThreadRoot())
}
