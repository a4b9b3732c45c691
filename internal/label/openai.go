package label

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"relmap/internal/domain"
)

// MessagesMarker is the substitution point for the concatenated message
// corpus in the prompt template.
const MessagesMarker = "$MESSAGES$"

// DefaultPrompt is used when no prompt template file is configured.
const DefaultPrompt = "The following chat messages were exchanged between two coworkers. " +
	"Describe their working relationship in at most three words. " +
	"Answer with the description only.\n\n" + MessagesMarker

// OpenAIConfig configures the OpenAI-compatible summarizer.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string // optional: any OpenAI-compatible endpoint
	Model          string
	PromptTemplate string // must contain MessagesMarker; empty uses DefaultPrompt
}

// OpenAISummarizer implements domain.Summarizer on a chat-completion API.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
	prompt string
}

var _ domain.Summarizer = (*OpenAISummarizer)(nil)

func NewOpenAISummarizer(cfg OpenAIConfig) (*OpenAISummarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarizer: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	prompt := cfg.PromptTemplate
	if prompt == "" {
		prompt = DefaultPrompt
	}
	if !strings.Contains(prompt, MessagesMarker) {
		return nil, fmt.Errorf("summarizer: prompt template is missing the %s marker", MessagesMarker)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAISummarizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		prompt: prompt,
	}, nil
}

// Summarize requests one short label for the given message corpus.
func (s *OpenAISummarizer) Summarize(ctx context.Context, texts []string) (string, error) {
	prompt := strings.Replace(s.prompt, MessagesMarker, strings.Join(texts, "\n"), 1)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
