package relation

import "relmap/internal/domain"

// Relation is a directed edge between two participants carrying every
// message that evidences it. Evidence is kept in discovery order and
// deduplicated by message timestamp: two contributions with the same
// timestamp are the same underlying event and must not be counted twice.
type Relation struct {
	FromID string
	ToID   string

	messages []domain.Message
	seen     map[string]struct{} // evidence timestamps
}

func newRelation(fromID, toID string, msg domain.Message) *Relation {
	return &Relation{
		FromID:   fromID,
		ToID:     toID,
		messages: []domain.Message{msg},
		seen:     map[string]struct{}{msg.Timestamp: {}},
	}
}

// add appends msg unless evidence with the same timestamp is already present.
func (r *Relation) add(msg domain.Message) {
	if _, ok := r.seen[msg.Timestamp]; ok {
		return
	}
	r.seen[msg.Timestamp] = struct{}{}
	r.messages = append(r.messages, msg)
}

// Messages returns the evidence in discovery order. The slice is shared;
// callers must not modify it.
func (r *Relation) Messages() []domain.Message { return r.messages }

// MessageCount returns the number of deduplicated evidence messages.
func (r *Relation) MessageCount() int { return len(r.messages) }

// PrimaryChannel returns the channel contributing the most evidence
// messages. Ties go to the channel seen first in evidence order.
func (r *Relation) PrimaryChannel() string {
	counts := make(map[string]int)
	var order []string
	for _, m := range r.messages {
		if _, ok := counts[m.Channel]; !ok {
			order = append(order, m.Channel)
		}
		counts[m.Channel]++
	}

	best := ""
	bestCount := 0
	for _, ch := range order {
		if counts[ch] > bestCount {
			best, bestCount = ch, counts[ch]
		}
	}
	return best
}
