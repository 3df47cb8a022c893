package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopbot/internal/domain"
	"shopbot/internal/generator"
)

func request() domain.CompletionRequest {
	return domain.CompletionRequest{
		System:      generator.DefaultSystemPrompt,
		Messages:    []domain.Message{{Role: "user", Content: "중곡동 할인"}},
		Model:       "gpt-3.5-turbo",
		MaxTokens:   500,
		Temperature: 0.7,
	}
}

func serve(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/v1"
}

func TestComplete_Success(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo",
			"choices":[{"index":0,"message":{"role":"assistant","content":"맛있는 한끼를 추천합니다."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewCompleter(generator.WithApiKey("sk-test"), generator.WithBaseURL(srv.URL+"/v1"))
	text, err := c.Complete(context.Background(), request())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != "맛있는 한끼를 추천합니다." {
		t.Fatalf("unexpected text %q", text)
	}
	for _, want := range []string{`"role":"system"`, `"max_tokens":500`, `"model":"gpt-3.5-turbo"`} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("request body lacks %s: %s", want, gotBody)
		}
	}
}

func TestComplete_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   generator.Kind
	}{
		{"unauthorized", 401, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`, generator.KindAuth},
		{"rate limited", 429, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, generator.KindQuota},
		{"insufficient quota", 400, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`, generator.KindQuota},
		{"server error", 503, `{"error":{"message":"overloaded","type":"server_error"}}`, generator.KindNetwork},
		{"no choices", 200, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo","choices":[]}`, generator.KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompleter(generator.WithApiKey("sk-test"), generator.WithBaseURL(serve(t, tt.status, tt.body)))
			_, err := c.Complete(context.Background(), request())
			var gerr *generator.Error
			if !errors.As(err, &gerr) {
				t.Fatalf("expected *generator.Error, got %v", err)
			}
			if gerr.Kind != tt.want {
				t.Fatalf("expected kind %s, got %s (%v)", tt.want, gerr.Kind, err)
			}
			if gerr.Provider != "openai" {
				t.Fatalf("unexpected provider %s", gerr.Provider)
			}
		})
	}
}

func TestComplete_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/v1"
	srv.Close()

	c := NewCompleter(generator.WithApiKey("sk-test"), generator.WithBaseURL(url))
	_, err := c.Complete(context.Background(), request())
	var gerr *generator.Error
	if !errors.As(err, &gerr) || gerr.Kind != generator.KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

// A garbage body must never escape the answerer as an error.
func TestAnswerer_FallsBackOnGarbage(t *testing.T) {
	url := serve(t, 200, `<html>not json</html>`)
	factory := func(credential string) (domain.Completer, error) {
		return NewCompleter(generator.WithApiKey(credential), generator.WithBaseURL(url)), nil
	}
	a := generator.NewAnswerer(factory, generator.Config{}, nil)
	texts := []string{"자양동의 '마을 세탁소'는 무료로 세탁물을 수거합니다."}
	got := a.Answer(context.Background(), "세탁소", texts, "sk-test")
	if !strings.Contains(got, texts[0]) {
		t.Fatalf("expected context in fallback, got %q", got)
	}
}
