package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relmap/internal/domain"
)

func TestWriteChannelAndLoadAll(t *testing.T) {
	dir := t.TempDir()

	msgs := []domain.Message{
		{
			Timestamp:       "1700000000.000100",
			Channel:         "general",
			SenderID:        "U1",
			Text:            "<@U2> morning",
			ThreadTimestamp: "1700000000.000100",
			ReplyCount:      2,
		},
		{
			Timestamp: "1700000000.000200",
			Channel:   "general",
			SenderID:  "U2",
			Text:      "morning",
			Subtype:   "channel_join",
		},
	}
	require.NoError(t, WriteChannel(dir, "general", msgs))
	require.NoError(t, WriteChannel(dir, "random", []domain.Message{
		{Timestamp: "1700000001.000100", Channel: "random", SenderID: "U3", Text: "lunch"},
	}))

	loaded, err := LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	byTS := map[string]domain.Message{}
	for _, m := range loaded {
		byTS[m.Timestamp] = m
	}
	assert.Equal(t, msgs[0], byTS["1700000000.000100"])
	assert.Equal(t, msgs[1], byTS["1700000000.000200"])
	assert.Equal(t, "random", byTS["1700000001.000100"].Channel)
}

func TestLoadAll_OldFormatSnapshot(t *testing.T) {
	dir := t.TempDir()

	// Snapshot written by an earlier version: no channel, thread or
	// reply-count fields.
	old := `[{"user": "U1", "text": "hello", "subtype": "", "ts": "1.0"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "general.json"), []byte(old), 0o644))

	loaded, err := LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	m := loaded[0]
	assert.Equal(t, "general", m.Channel, "channel defaults to the file name")
	assert.Equal(t, "U1", m.SenderID)
	assert.Zero(t, m.ReplyCount)
	assert.Empty(t, m.ThreadTimestamp)
}

func TestLoadAll_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, WriteChannel(dir, "general", nil))

	loaded, err := LoadAll(dir)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestReset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "channels")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.json"), []byte("[]"), 0o644))

	require.NoError(t, Reset(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
