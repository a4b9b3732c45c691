package relation

import (
	"errors"
	"sync"

	"relmap/internal/domain"
)

// ErrEmptyRegistry is returned by MaxMessageCount when no relation has been
// registered. Callers must special-case an empty run instead of dividing by
// zero downstream.
var ErrEmptyRegistry = errors.New("relation: registry holds no relations")

type pairKey struct {
	from string
	to   string
}

// Registry accumulates relations keyed by ordered (from, to) pair. At most
// one relation exists per pair; registering evidence for a known pair merges
// into it. Register is safe for concurrent use and merging is commutative
// (dedup by timestamp, not arrival order), so concurrent producers may feed
// the registry in any interleaving. The read accessors are meant for the
// single-threaded export phase after all registration has completed.
type Registry struct {
	mu     sync.Mutex
	byPair map[pairKey]*Relation
	order  []*Relation // registration order
}

func NewRegistry() *Registry {
	return &Registry{byPair: make(map[pairKey]*Relation)}
}

// Register records msg as evidence for the (fromID, toID) relation,
// creating the relation on first sight.
func (g *Registry) Register(fromID, toID string, msg domain.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := pairKey{from: fromID, to: toID}
	if rel, ok := g.byPair[key]; ok {
		rel.add(msg)
		return
	}
	rel := newRelation(fromID, toID, msg)
	g.byPair[key] = rel
	g.order = append(g.order, rel)
}

// EdgeCount returns the number of distinct directed pairs.
func (g *Registry) EdgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}

// Relations returns every relation in registration order.
func (g *Registry) Relations() []*Relation {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Relation, len(g.order))
	copy(out, g.order)
	return out
}

// RelationsFrom returns the relations originating at participantID, in
// registration order.
func (g *Registry) RelationsFrom(participantID string) []*Relation {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*Relation
	for _, rel := range g.order {
		if rel.FromID == participantID {
			out = append(out, rel)
		}
	}
	return out
}

// MaxMessageCount returns the largest evidence count over all relations.
func (g *Registry) MaxMessageCount() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.order) == 0 {
		return 0, ErrEmptyRegistry
	}
	max := 0
	for _, rel := range g.order {
		if n := rel.MessageCount(); n > max {
			max = n
		}
	}
	return max, nil
}
