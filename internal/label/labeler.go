// Package label condenses the message corpus of each participant pair into
// a short descriptive label via a text-generation API.
package label

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"relmap/internal/domain"
	"relmap/internal/relation"
)

const (
	defaultTextBudget  = 8192
	defaultConcurrency = 4
)

// Config configures the labeler.
type Config struct {
	Summarizer  domain.Summarizer
	Logger      *slog.Logger
	TextBudget  int // max bytes of concatenated message text per request
	Concurrency int
}

// Labeler requests one label per unordered participant pair with any
// bidirectional evidence. Results are cached by pair key, so repeated runs
// over the same labeler never re-request a pair.
type Labeler struct {
	summarizer  domain.Summarizer
	logger      *slog.Logger
	textBudget  int
	concurrency int

	mu    sync.Mutex
	cache map[string]string
}

func New(cfg Config) *Labeler {
	if cfg.TextBudget <= 0 {
		cfg.TextBudget = defaultTextBudget
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Labeler{
		summarizer:  cfg.Summarizer,
		logger:      cfg.Logger,
		textBudget:  cfg.TextBudget,
		concurrency: cfg.Concurrency,
		cache:       make(map[string]string),
	}
}

// LabelAll summarizes every unordered pair in the registry concurrently and
// returns pair key -> label. A failed pair is skipped and the exporter falls
// back to the relation's primary channel.
func (l *Labeler) LabelAll(ctx context.Context, reg *relation.Registry) map[string]string {
	corpus := pairCorpus(reg)

	keys := make([]string, 0, len(corpus))
	for key := range corpus {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, key := range keys {
		if l.cached(key) {
			continue
		}
		texts := corpus[key]
		g.Go(func() error {
			label, err := l.summarizer.Summarize(gctx, l.truncate(texts))
			if err != nil {
				l.logger.Warn("pair label request failed", "pair", key, "err", err)
				return nil
			}
			l.store(key, label)
			return nil
		})
	}
	_ = g.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.cache))
	for key, label := range l.cache {
		out[key] = label
	}
	return out
}

func (l *Labeler) cached(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.cache[key]
	return ok
}

func (l *Labeler) store(key, label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[key] = label
}

// truncate caps the corpus at the text budget, keeping whole messages.
func (l *Labeler) truncate(texts []string) []string {
	total := 0
	for i, text := range texts {
		total += len(text)
		if total > l.textBudget {
			return texts[:i]
		}
	}
	return texts
}

// pairCorpus merges both directions of every pair into one text list,
// ordered by message timestamp. Duplicate evidence timestamps across the
// two directions collapse to one entry.
func pairCorpus(reg *relation.Registry) map[string][]string {
	type entry struct {
		ts   string
		text string
	}
	byPair := make(map[string][]entry)
	seen := make(map[string]map[string]struct{})

	for _, rel := range reg.Relations() {
		key := relation.PairKey(rel.FromID, rel.ToID)
		if seen[key] == nil {
			seen[key] = make(map[string]struct{})
		}
		for _, m := range rel.Messages() {
			if _, ok := seen[key][m.Timestamp]; ok {
				continue
			}
			seen[key][m.Timestamp] = struct{}{}
			byPair[key] = append(byPair[key], entry{ts: m.Timestamp, text: m.Text})
		}
	}

	out := make(map[string][]string, len(byPair))
	for key, entries := range byPair {
		sort.Slice(entries, func(i, j int) bool { return entries[i].ts < entries[j].ts })
		texts := make([]string, 0, len(entries))
		for _, e := range entries {
			if strings.TrimSpace(e.text) == "" {
				continue
			}
			texts = append(texts, e.text)
		}
		out[key] = texts
	}
	return out
}
