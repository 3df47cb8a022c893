package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shopbot/internal/domain"
	"shopbot/internal/embedding/hashing"
	"shopbot/internal/generator"
	"shopbot/internal/retriever"
	"shopbot/internal/session"
	"shopbot/internal/store"
	"shopbot/internal/vectorstore/memory"
)

type recordingAnswerer struct {
	calls      int
	credential string
	texts      []string
}

func (r *recordingAnswerer) Answer(_ context.Context, _ string, texts []string, credential string) string {
	r.calls++
	r.credential = credential
	r.texts = texts
	return "answer"
}

type failingRetriever struct{}

func (failingRetriever) Retrieve(context.Context, string, int) ([]string, error) {
	return nil, errors.New("embedder crashed")
}

type blockingRetriever struct {
	entered chan struct{}
	release chan struct{}
}

func (b blockingRetriever) Retrieve(context.Context, string, int) ([]string, error) {
	close(b.entered)
	<-b.release
	return []string{"텍스트"}, nil
}

func newSeededStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, hashing.NewEmbedder(hashing.DefaultDimension), memory.NewStorage())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.EnsureSeeded(ctx, s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestAsk_AppendsBothTurns(t *testing.T) {
	st := newSeededStore(t)
	ans := &recordingAnswerer{}
	svc := NewChatService(st, retriever.New(st, 3), ans, session.New(), 3, nil)
	svc.SetCredential("  sk-test  ")

	got, err := svc.Ask(context.Background(), "  중곡동 할인  ")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got != "answer" {
		t.Fatalf("unexpected answer %q", got)
	}
	if ans.credential != "sk-test" {
		t.Fatalf("expected trimmed credential, got %q", ans.credential)
	}
	if len(ans.texts) != 3 || ans.texts[0] != store.SeedShops[0] {
		t.Fatalf("unexpected retrieved texts %v", ans.texts)
	}
	turns := svc.Conversation()
	want := []domain.Turn{{Role: domain.RoleUser, Content: "중곡동 할인"}, {Role: domain.RoleAssistant, Content: "answer"}}
	if len(turns) != 2 || turns[0] != want[0] || turns[1] != want[1] {
		t.Fatalf("unexpected turns %+v", turns)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	st := newSeededStore(t)
	ans := &recordingAnswerer{}
	svc := NewChatService(st, retriever.New(st, 3), ans, nil, 3, nil)
	if _, err := svc.Ask(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	if len(svc.Conversation()) != 0 || ans.calls != 0 {
		t.Fatal("empty question must not touch the session or the answerer")
	}
}

func TestAsk_RetrievalFailureStillAnswers(t *testing.T) {
	ans := &recordingAnswerer{}
	svc := NewChatService(newSeededStore(t), failingRetriever{}, ans, nil, 3, nil)
	got, err := svc.Ask(context.Background(), "빵집")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got != retrievalFailedAnswer {
		t.Fatalf("unexpected answer %q", got)
	}
	turns := svc.Conversation()
	if len(turns) != 2 || turns[1].Role != domain.RoleAssistant {
		t.Fatalf("expected balanced log, got %+v", turns)
	}
}

func TestAsk_WithoutCredentialEndToEnd(t *testing.T) {
	st := newSeededStore(t)
	factoryCalls := 0
	answerer := generator.NewAnswerer(func(string) (domain.Completer, error) {
		factoryCalls++
		return nil, errors.New("should not be called")
	}, generator.Config{}, nil)
	svc := NewChatService(st, retriever.New(st, 3), answerer, nil, 3, nil)

	got, err := svc.Ask(context.Background(), "중곡동 할인")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if factoryCalls != 0 {
		t.Fatalf("no external call expected, got %d", factoryCalls)
	}
	if !strings.Contains(got, store.SeedShops[0]) {
		t.Fatalf("fallback should contain the top document: %q", got)
	}
}

func TestAddDocument(t *testing.T) {
	ctx := context.Background()
	st := newSeededStore(t)
	svc := NewChatService(st, retriever.New(st, 3), &recordingAnswerer{}, nil, 3, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	if _, err := svc.AddDocument(ctx, " "); !errors.Is(err, store.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	id, err := svc.AddDocument(ctx, "테스트 가게 정보")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	docs, err := svc.Documents(ctx)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != len(store.SeedShops)+1 {
		t.Fatalf("expected %d documents, got %d", len(store.SeedShops)+1, len(docs))
	}
	last := docs[len(docs)-1]
	if last.ID != id || last.Text != "테스트 가게 정보" {
		t.Fatalf("unexpected last document %+v", last)
	}
	if last.Metadata["source"] != "user_input" || last.Metadata["date_added"] != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected metadata %v", last.Metadata)
	}
}

func TestResetConversation_KeepsDocuments(t *testing.T) {
	ctx := context.Background()
	st := newSeededStore(t)
	svc := NewChatService(st, retriever.New(st, 3), &recordingAnswerer{}, nil, 3, nil)
	_, _ = svc.Ask(ctx, "빵집")
	svc.ResetConversation()
	if len(svc.Conversation()) != 0 {
		t.Fatal("expected empty conversation")
	}
	docs, _ := svc.Documents(ctx)
	if len(docs) != len(store.SeedShops) {
		t.Fatalf("reset must not touch documents, got %d", len(docs))
	}
}

func TestCredential(t *testing.T) {
	svc := NewChatService(nil, nil, nil, nil, 3, nil)
	if svc.HasCredential() {
		t.Fatal("expected no credential")
	}
	svc.SetCredential("sk-test")
	if !svc.HasCredential() {
		t.Fatal("expected credential")
	}
	svc.SetCredential("  ")
	if svc.HasCredential() {
		t.Fatal("blank credential should clear it")
	}
}

func TestResetConversation_WaitsForAsk(t *testing.T) {
	r := blockingRetriever{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewChatService(nil, r, &recordingAnswerer{}, nil, 3, nil)

	asked := make(chan struct{})
	go func() {
		defer close(asked)
		_, _ = svc.Ask(context.Background(), "빵집")
	}()
	<-r.entered

	reset := make(chan struct{})
	go func() {
		defer close(reset)
		svc.ResetConversation()
	}()
	select {
	case <-reset:
		t.Fatal("reset finished while an ask was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(r.release)
	<-asked
	<-reset
	if turns := svc.Conversation(); len(turns) != 0 {
		t.Fatalf("expected an empty log after reset, got %+v", turns)
	}
}
