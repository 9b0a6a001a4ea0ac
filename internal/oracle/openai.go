package oracle

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"quill/api/internal/span"
)

// OpenAI implements Client using the official openai-go SDK (chat
// completions).
type OpenAI struct {
	model string
	opts  []option.RequestOption
}

// NewOpenAI builds a client for the given model. baseURL may be empty to use
// the default endpoint.
func NewOpenAI(apiKey, baseURL, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{model: model, opts: opts}, nil
}

func (o *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	client := openai.NewClient(o.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// SuggestEdits asks the model for corrections to text. Malformed model
// output is treated as zero candidates.
func (o *OpenAI) SuggestEdits(ctx context.Context, text string) ([]span.Candidate, error) {
	raw, err := o.complete(ctx, suggestSystemPrompt, buildSuggestUserPrompt(text))
	if err != nil {
		return nil, err
	}
	return parseCandidates(raw), nil
}

// GenerateIdeas asks the model for content ideas about topic.
func (o *OpenAI) GenerateIdeas(ctx context.Context, topic string, count int) ([]Idea, error) {
	raw, err := o.complete(ctx, ideasSystemPrompt, buildIdeasUserPrompt(topic, count))
	if err != nil {
		return nil, err
	}
	return parseIdeas(raw), nil
}
