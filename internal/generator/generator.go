// Package generator turns retrieved shop texts into an answer, either by
// asking a language model or by falling back to the raw texts.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shopbot/internal/domain"
	"shopbot/internal/observability"
	"shopbot/internal/retriever"
)

const (
	NoInfoAnswer   = "죄송합니다, 질문에 관련된 정보를 찾을 수 없습니다."
	fallbackLabel  = "광진구 착한가게 정보: "
	credentialNote = "(ChatGPT API 키를 입력하면 더 자연스러운 응답을 받을 수 있습니다.)"
	failurePrefix  = "API 오류가 발생했습니다: "
	failureLabel   = "기본 정보: "

	DefaultSystemPrompt = "당신은 광진구 착한가게에 대한 정보를 제공하는 도우미입니다. 주어진 정보만을 기반으로 답변해주세요."
)

// Factory builds a completer bound to one credential.
type Factory func(credential string) (domain.Completer, error)

// Config holds the fixed generation parameters.
type Config struct {
	Model        string
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration
	SystemPrompt string
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "gpt-3.5-turbo"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 500
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	return c
}

// Answerer decides how a query is answered from its retrieved context.
type Answerer struct {
	factory Factory
	cfg     Config
	logger  *slog.Logger
}

func NewAnswerer(factory Factory, cfg Config, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{factory: factory, cfg: cfg.withDefaults(), logger: logger}
}

// Generate answers query from the retrieved texts. A no-result context and a
// missing credential produce canned answers without any external call.
// Otherwise a single completion is requested and any failure is returned as
// *Error.
func (a *Answerer) Generate(ctx context.Context, query string, texts []string, credential string) (string, error) {
	if retriever.IsNoData(texts) {
		return NoInfoAnswer, nil
	}
	if strings.TrimSpace(credential) == "" {
		return fallbackLabel + joinContext(texts) + "\n\n" + credentialNote, nil
	}

	completer, err := a.factory(credential)
	if err != nil {
		return "", Classify("unknown", err)
	}
	ctx, span := observability.StartLLMSpan(ctx, completer.Name(), a.cfg.Model)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	text, err := completer.Complete(ctx, domain.CompletionRequest{
		System:      a.cfg.SystemPrompt,
		Messages:    []domain.Message{{Role: string(domain.RoleUser), Content: BuildPrompt(query, texts)}},
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		gerr := Classify(completer.Name(), err)
		observability.RecordError(span, gerr)
		return "", gerr
	}
	text = strings.TrimSpace(text)
	if text == "" {
		gerr := &Error{Kind: KindMalformed, Provider: completer.Name(), Err: ErrMalformedResponse}
		observability.RecordError(span, gerr)
		return "", gerr
	}
	return text, nil
}

// Answer is Generate with failures folded into a readable fallback that
// still carries the retrieved context. It never returns an error.
func (a *Answerer) Answer(ctx context.Context, query string, texts []string, credential string) string {
	text, err := a.Generate(ctx, query, texts, credential)
	if err == nil {
		return text
	}
	var gerr *Error
	if !errors.As(err, &gerr) {
		gerr = Classify("unknown", err)
	}
	a.logger.WarnContext(ctx, "language model call failed, answering from context",
		"provider", gerr.Provider, "kind", string(gerr.Kind), "error", gerr.Err)
	return FailureAnswer(gerr, texts)
}

// FailureAnswer formats the answer used when the model call failed.
func FailureAnswer(err *Error, texts []string) string {
	return fmt.Sprintf("%s[%s] %v\n\n%s%s", failurePrefix, err.Kind, err.Err, failureLabel, joinContext(texts))
}

// BuildPrompt embeds the joined context and the question in the user prompt.
func BuildPrompt(query string, texts []string) string {
	var b strings.Builder
	b.WriteString("다음은 광진구 착한가게에 대한 정보입니다:\n\n")
	b.WriteString(joinContext(texts))
	b.WriteString("\n\n위 정보를 바탕으로 다음 질문에 친절하고 자세하게 답변해주세요:\n\n")
	b.WriteString("질문: ")
	b.WriteString(query)
	return b.String()
}

func joinContext(texts []string) string { return strings.Join(texts, " ") }
