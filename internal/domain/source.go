package domain

import (
	"context"
	"time"
)

// Source supplies the chat-platform data for one run.
type Source interface {
	// ListChannels returns every non-archived channel the token can see.
	ListChannels(ctx context.Context) ([]Channel, error)
	// FetchMessages returns all messages in a channel since oldest,
	// thread replies included, with Channel stamped on every record.
	FetchMessages(ctx context.Context, ch Channel, oldest time.Time) ([]Message, error)
	// ListParticipants returns the active members of the workspace:
	// not deleted, not bots, not payment-restricted, and not the
	// platform's built-in system account.
	ListParticipants(ctx context.Context) ([]Participant, error)
}

// Summarizer condenses a set of message texts into one short label.
type Summarizer interface {
	Summarize(ctx context.Context, texts []string) (string, error)
}
