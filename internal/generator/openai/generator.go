package openai

import (
	"context"
	"errors"

	goopenai "github.com/sashabaranov/go-openai"

	"shopbot/internal/domain"
	"shopbot/internal/generator"
)

const providerName = "openai"

type openAICompleter struct {
	client *goopenai.Client
}

func (c *openAICompleter) Name() string { return providerName }

func (c *openAICompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	rsp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", classify(err)
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", &generator.Error{Kind: generator.KindMalformed, Provider: providerName, Err: generator.ErrMalformedResponse}
	}

	return rsp.Choices[0].Message.Content, nil
}

func classify(err error) *generator.Error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		kind := generator.KindForStatus(apiErr.HTTPStatusCode)
		if code, _ := apiErr.Code.(string); code == "insufficient_quota" || apiErr.Type == "insufficient_quota" {
			kind = generator.KindQuota
		}
		return &generator.Error{Kind: kind, Provider: providerName, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &generator.Error{Kind: generator.KindForStatus(reqErr.HTTPStatusCode), Provider: providerName, Err: err}
	}
	return generator.Classify(providerName, err)
}

// NewCompleter creates an OpenAI chat completer. WithBaseURL points it at any
// OpenAI-compatible server.
func NewCompleter(opts ...generator.Option) domain.Completer {
	options := generator.NewOptions(opts...)

	cfg := goopenai.DefaultConfig(options.ApiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}

	return &openAICompleter{
		client: goopenai.NewClientWithConfig(cfg),
	}
}
