package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relmap/internal/domain"
	"relmap/internal/relation"
)

func TestSanitizeCellText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"commas", "a,b,c", "a，b，c"},
		{"newlines", "line1\nline2\r\nline3", "line1 line2  line3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeCellText(tt.in))
		})
	}
}

func TestWriteParticipantDumps(t *testing.T) {
	dir := t.TempDir()
	dumpDir := filepath.Join(dir, "user")

	reg := relation.NewRegistry()
	reg.Register("U1", "U2", domain.Message{Timestamp: "1.0", Channel: "general", Text: "hey, you\nthere"})
	reg.Register("U1", "U9", domain.Message{Timestamp: "2.0", Channel: "general", Text: "gone"})

	parts := []domain.Participant{
		{ID: "U1", Name: `ali/ce:a?`},
		{ID: "U2", Name: "bob"},
	}

	require.NoError(t, WriteParticipantDumps(dumpDir, reg, parts, testLogger()))

	// Filename-unsafe characters are stripped from the sender's name.
	data, err := os.ReadFile(filepath.Join(dumpDir, "alicea.csv"))
	require.NoError(t, err)
	assert.Equal(t, "toUser.name,message.text\nbob,hey， you there\n", string(data))

	// Recipients without a directory entry contribute no rows; senders
	// without relations get no file.
	entries, err := os.ReadDir(dumpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteParticipantDumps_RecreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dumpDir := filepath.Join(dir, "user")
	require.NoError(t, os.MkdirAll(dumpDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dumpDir, "stale.csv"), []byte("old"), 0o644))

	reg := relation.NewRegistry()
	require.NoError(t, WriteParticipantDumps(dumpDir, reg, nil, testLogger()))

	_, err := os.Stat(filepath.Join(dumpDir, "stale.csv"))
	assert.True(t, os.IsNotExist(err))
}
