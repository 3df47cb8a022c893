package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"shopbot/internal/domain"
	"shopbot/internal/generator"
)

const providerName = "anthropic"

type anthropicCompleter struct {
	client *anthropic.Client
}

func (c *anthropicCompleter) Name() string { return providerName }

func (c *anthropicCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == string(domain.RoleAssistant) {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
	}

	rsp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", &generator.Error{Kind: generator.KindMalformed, Provider: providerName, Err: generator.ErrMalformedResponse}
	}

	return result, nil
}

func classify(err error) *generator.Error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &generator.Error{Kind: generator.KindForStatus(apiErr.StatusCode), Provider: providerName, Err: err}
	}
	return generator.Classify(providerName, err)
}

// NewCompleter creates an Anthropic messages completer. The SDK's own retries
// are disabled: a failed call falls back to the retrieved context instead.
func NewCompleter(opts ...generator.Option) domain.Completer {
	options := generator.NewOptions(opts...)

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.ApiKey),
		anthropicopt.WithMaxRetries(0),
	}
	if options.BaseURL != "" {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	return &anthropicCompleter{client: &client}
}
