// Package slacksrc fetches the run's message and participant snapshots from
// the Slack Web API.
package slacksrc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"

	"relmap/internal/domain"
)

// systemAccountName is Slack's built-in account, never a real participant.
const systemAccountName = "slackbot"

const (
	defaultPageLimit          = 1000
	defaultChannelConcurrency = 4
	defaultThreadConcurrency  = 8
)

// Config configures the Slack source.
type Config struct {
	Token              string
	Logger             *slog.Logger
	PageLimit          int
	ChannelConcurrency int
	ThreadConcurrency  int
}

// Source implements domain.Source against the Slack Web API.
type Source struct {
	client             *slack.Client
	logger             *slog.Logger
	pageLimit          int
	channelConcurrency int
	threadConcurrency  int
}

var _ domain.Source = (*Source)(nil)

// New creates a Slack source.
func New(cfg Config) *Source {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.ChannelConcurrency <= 0 {
		cfg.ChannelConcurrency = defaultChannelConcurrency
	}
	if cfg.ThreadConcurrency <= 0 {
		cfg.ThreadConcurrency = defaultThreadConcurrency
	}
	return &Source{
		client:             slack.New(cfg.Token),
		logger:             cfg.Logger,
		pageLimit:          cfg.PageLimit,
		channelConcurrency: cfg.ChannelConcurrency,
		threadConcurrency:  cfg.ThreadConcurrency,
	}
}

// ListChannels pages through every non-archived public and private channel.
func (s *Source) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	params := &slack.GetConversationsParameters{
		Types:           []string{"public_channel", "private_channel"},
		ExcludeArchived: true,
		Limit:           s.pageLimit,
	}

	var channels []domain.Channel
	for {
		page, nextCursor, err := s.client.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("list channels: %w", err)
		}
		for _, ch := range page {
			channels = append(channels, domain.Channel{ID: ch.ID, Name: ch.Name})
		}
		if nextCursor == "" {
			return channels, nil
		}
		params.Cursor = nextCursor
	}
}

// ListParticipants returns the active workspace members: not deleted, not
// bots, not payment-restricted, and never the built-in system account.
func (s *Source) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	users, err := s.client.GetUsersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("user directory: %w", err)
	}

	var participants []domain.Participant
	for _, u := range users {
		if !isActiveUser(u) {
			continue
		}
		name := u.RealName
		if name == "" {
			name = u.Name
		}
		participants = append(participants, domain.Participant{
			ID:        u.ID,
			Name:      name,
			AvatarURL: u.Profile.Image48,
		})
	}
	return participants, nil
}

func isActiveUser(u slack.User) bool {
	return !u.Deleted && !u.IsBot && !u.IsRestricted && u.Name != systemAccountName
}

// FetchMessages returns a channel's root messages since oldest plus every
// thread reply, with the channel name stamped on each record: the history
// API leaves the channel field empty.
func (s *Source) FetchMessages(ctx context.Context, ch domain.Channel, oldest time.Time) ([]domain.Message, error) {
	oldestTS := fmt.Sprintf("%d.000000", oldest.Unix())

	var roots []slack.Message
	cursor := ""
	for {
		resp, err := s.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: ch.ID,
			Oldest:    oldestTS,
			Limit:     s.pageLimit,
			Cursor:    cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("history of %s: %w", ch.Name, err)
		}
		roots = append(roots, resp.Messages...)
		cursor = resp.ResponseMetaData.NextCursor
		if cursor == "" {
			break
		}
	}

	messages := make([]domain.Message, 0, len(roots))
	for _, m := range roots {
		messages = append(messages, toMessage(m, ch.Name))
	}
	messages = append(messages, s.fetchThreadReplies(ctx, ch, roots, oldestTS)...)

	s.logger.Debug("channel history fetched", "channel", ch.Name, "roots", len(roots), "total", len(messages))
	return messages, nil
}

// fetchThreadReplies fans out one task per thread root. A failed thread
// contributes nothing instead of failing the channel.
func (s *Source) fetchThreadReplies(ctx context.Context, ch domain.Channel, roots []slack.Message, oldestTS string) []domain.Message {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.threadConcurrency)

	var mu sync.Mutex
	var replies []domain.Message

	for _, root := range roots {
		if root.ReplyCount == 0 {
			continue
		}
		g.Go(func() error {
			var msgs []domain.Message
			cursor := ""
			for {
				page, _, nextCursor, err := s.client.GetConversationRepliesContext(gctx, &slack.GetConversationRepliesParameters{
					ChannelID: ch.ID,
					Timestamp: root.Timestamp,
					Oldest:    oldestTS,
					Limit:     s.pageLimit,
					Cursor:    cursor,
				})
				if err != nil {
					s.logger.Warn("thread fetch failed", "channel", ch.Name, "thread", root.Timestamp, "err", err)
					return nil
				}
				for _, m := range page {
					// The replies endpoint includes the root itself.
					if m.Timestamp == root.Timestamp {
						continue
					}
					msgs = append(msgs, toMessage(m, ch.Name))
				}
				if nextCursor == "" {
					break
				}
				cursor = nextCursor
			}

			mu.Lock()
			replies = append(replies, msgs...)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return replies
}

// FetchAll fans out one fetch task per channel and joins them. A failed
// channel degrades to an empty contribution. onChannel, when non-nil, runs
// once per successfully fetched channel (the cache snapshot hook).
func (s *Source) FetchAll(ctx context.Context, channels []domain.Channel, oldest time.Time, onChannel func(domain.Channel, []domain.Message)) []domain.Message {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.channelConcurrency)

	var mu sync.Mutex
	var all []domain.Message
	done := 0

	for _, ch := range channels {
		g.Go(func() error {
			msgs, err := s.FetchMessages(gctx, ch, oldest)
			if err != nil {
				s.logger.Warn("channel fetch failed", "channel", ch.Name, "err", err)
				msgs = nil
			} else if onChannel != nil {
				onChannel(ch, msgs)
			}

			mu.Lock()
			all = append(all, msgs...)
			done++
			s.logger.Info("channel fetched", "channel", ch.Name, "done", done, "channels", len(channels), "messages", len(all))
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return all
}

func toMessage(m slack.Message, channelName string) domain.Message {
	return domain.Message{
		Timestamp:       m.Timestamp,
		Channel:         channelName,
		SenderID:        m.User,
		Text:            m.Text,
		Subtype:         m.SubType,
		ThreadTimestamp: m.ThreadTimestamp,
		ReplyCount:      m.ReplyCount,
	}
}
