package domain

// Message is the canonical message record the classifier and exporters work
// with. The Slack source and the channel cache both convert into this shape;
// core packages never depend on a platform or on-disk representation.
type Message struct {
	Timestamp       string // platform ts, unique within a channel, sortable as a string
	Channel         string
	SenderID        string
	Text            string
	Subtype         string
	ThreadTimestamp string // empty when the message is outside any thread
	ReplyCount      int
}

// IsThreadRoot reports whether the message heads a thread.
func (m Message) IsThreadRoot() bool { return m.ReplyCount > 0 }
