// Package cache persists per-channel message snapshots as JSON so that the
// aggregation and export stages can be re-run without touching the network.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"relmap/internal/domain"
)

// record is the on-disk shape of one cached message. Older snapshots carry
// only user, text, subtype and ts; the newer fields unmarshal to zero
// values, which the loader tolerates.
type record struct {
	SenderID        string `json:"user"`
	Text            string `json:"text"`
	Subtype         string `json:"subtype,omitempty"`
	Timestamp       string `json:"ts"`
	Channel         string `json:"channel,omitempty"`
	ThreadTimestamp string `json:"threadTs,omitempty"`
	ReplyCount      int    `json:"replyCount,omitempty"`
}

func toRecord(m domain.Message) record {
	return record{
		SenderID:        m.SenderID,
		Text:            m.Text,
		Subtype:         m.Subtype,
		Timestamp:       m.Timestamp,
		Channel:         m.Channel,
		ThreadTimestamp: m.ThreadTimestamp,
		ReplyCount:      m.ReplyCount,
	}
}

func (r record) toMessage(fallbackChannel string) domain.Message {
	channel := r.Channel
	if channel == "" {
		channel = fallbackChannel
	}
	return domain.Message{
		Timestamp:       r.Timestamp,
		Channel:         channel,
		SenderID:        r.SenderID,
		Text:            r.Text,
		Subtype:         r.Subtype,
		ThreadTimestamp: r.ThreadTimestamp,
		ReplyCount:      r.ReplyCount,
	}
}

// Reset clears and recreates the snapshot directory for a fresh run.
func Reset(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cannot clear cache directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}
	return nil
}

// WriteChannel snapshots one channel's messages to <dir>/<channel>.json.
func WriteChannel(dir, channelName string, msgs []domain.Message) error {
	records := make([]record, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, toRecord(m))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal snapshot for %s: %w", channelName, err)
	}

	path := filepath.Join(dir, channelName+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadAll reads every channel snapshot under dir back into messages. A
// record without a channel field inherits the snapshot's file name, so
// old-format snapshots stay usable.
func LoadAll(dir string) ([]domain.Message, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read cache directory %s: %w", dir, err)
	}

	var messages []domain.Message
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read snapshot %s: %w", path, err)
		}

		var records []record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("cannot parse snapshot %s: %w", path, err)
		}

		channelName := strings.TrimSuffix(entry.Name(), ".json")
		for _, r := range records {
			messages = append(messages, r.toMessage(channelName))
		}
	}
	return messages, nil
}
