package relation

import (
	"regexp"
	"sort"

	"relmap/internal/domain"
)

// mentionPattern matches the platform's user-mention markup, e.g. <@U02ABC3DE>.
var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)>`)

// DefaultNonConversationalSubtypes lists the message subtypes that carry no
// conversational intent and never produce relations.
func DefaultNonConversationalSubtypes() []string {
	return []string{
		"channel_join", "channel_leave",
		"group_join", "group_leave",
		"message_changed", "message_deleted",
	}
}

// Options control which conversational signals the classifier extracts.
type Options struct {
	// ThreadPropagation interprets a thread reply as directed at every
	// participant who posted earlier in the same thread.
	ThreadPropagation bool
	// NonConversationalSubtypes overrides the default skip list when
	// non-empty.
	NonConversationalSubtypes []string
}

// Candidate is one directed relation extracted from a single message.
type Candidate struct {
	FromID  string
	ToID    string
	Message domain.Message
}

// Classifier decides whether a raw message represents a conversational act
// and, if so, which directed relations it evidences. It is built once per
// run from the immutable participant and message snapshots.
type Classifier struct {
	active  map[string]struct{}
	skip    map[string]struct{}
	threads map[string][]domain.Message // thread ts -> messages ascending by ts
	opts    Options
}

// NewClassifier indexes the run's snapshots. Thread lookups are resolved
// against the full message set, grouped by thread timestamp and sorted
// ascending so that "earlier speakers" is well defined.
func NewClassifier(participants []domain.Participant, messages []domain.Message, opts Options) *Classifier {
	active := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		active[p.ID] = struct{}{}
	}

	subtypes := opts.NonConversationalSubtypes
	if len(subtypes) == 0 {
		subtypes = DefaultNonConversationalSubtypes()
	}
	skip := make(map[string]struct{}, len(subtypes))
	for _, st := range subtypes {
		skip[st] = struct{}{}
	}

	threads := make(map[string][]domain.Message)
	for _, m := range messages {
		if m.ThreadTimestamp == "" {
			continue
		}
		threads[m.ThreadTimestamp] = append(threads[m.ThreadTimestamp], m)
	}
	for ts := range threads {
		group := threads[ts]
		sort.Slice(group, func(i, j int) bool { return group[i].Timestamp < group[j].Timestamp })
	}

	return &Classifier{active: active, skip: skip, threads: threads, opts: opts}
}

// Classify returns the directed relations evidenced by one message. A
// non-conversational subtype, an inactive sender, or a message with no
// usable mention or thread signal all yield no candidates; none of these
// are errors.
func (c *Classifier) Classify(msg domain.Message) []Candidate {
	if _, ok := c.skip[msg.Subtype]; ok {
		return nil
	}
	if !c.isActive(msg.SenderID) {
		return nil
	}

	var candidates []Candidate

	if c.opts.ThreadPropagation && msg.IsThreadRoot() {
		// A missing thread group is a data anomaly; skip it rather
		// than fail the run.
		if group, ok := c.threads[msg.ThreadTimestamp]; ok {
			candidates = append(candidates, c.classifyThread(group)...)
		}
	}

	candidates = append(candidates, c.classifyMentions(msg)...)
	return candidates
}

// classifyMentions extracts sender -> mentioned-user relations. Self
// mentions occasionally appear in real traffic and are dropped as noise, as
// are mentions of anyone outside the active set.
func (c *Classifier) classifyMentions(msg domain.Message) []Candidate {
	var candidates []Candidate
	for _, match := range mentionPattern.FindAllStringSubmatch(msg.Text, -1) {
		toID := match[1]
		if toID == msg.SenderID || !c.isActive(toID) {
			continue
		}
		candidates = append(candidates, Candidate{FromID: msg.SenderID, ToID: toID, Message: msg})
	}
	return candidates
}

// classifyThread treats the thread as an implicit conversation: each message
// is directed at everyone who has already spoken in it. The root's sender
// seeds the addressed set; each reply emits a relation to every earlier
// speaker except itself and then joins the addressed set.
func (c *Classifier) classifyThread(group []domain.Message) []Candidate {
	if len(group) == 0 {
		return nil
	}

	addressed := []string{group[0].SenderID}
	member := map[string]struct{}{group[0].SenderID: {}}

	var candidates []Candidate
	for _, msg := range group[1:] {
		fromID := msg.SenderID
		for _, toID := range addressed {
			if toID == fromID {
				continue
			}
			if !c.isActive(fromID) || !c.isActive(toID) {
				continue
			}
			candidates = append(candidates, Candidate{FromID: fromID, ToID: toID, Message: msg})
		}
		if _, ok := member[fromID]; !ok {
			member[fromID] = struct{}{}
			addressed = append(addressed, fromID)
		}
	}
	return candidates
}

func (c *Classifier) isActive(id string) bool {
	_, ok := c.active[id]
	return ok
}

// BuildRegistry classifies every message and merges the resulting candidates
// into a fresh registry. Classification order does not matter for the final
// counts because the registry dedup is commutative.
func BuildRegistry(classifier *Classifier, messages []domain.Message) *Registry {
	reg := NewRegistry()
	for _, msg := range messages {
		for _, cand := range classifier.Classify(msg) {
			reg.Register(cand.FromID, cand.ToID, cand.Message)
		}
	}
	return reg
}
