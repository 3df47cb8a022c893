package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"shopbot/internal/domain"
	"shopbot/internal/observability"
	"shopbot/internal/session"
)

// ErrEmptyQuestion is returned when Ask gets a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

const retrievalFailedAnswer = "검색 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요."

// ExampleQuestions are offered to users who do not know what to ask.
var ExampleQuestions = []string{
	"광진구에 어떤 착한가게들이 있나요?",
	"착한가게들이 제공하는 할인 혜택은 무엇인가요?",
	"착한가게들은 어떤 사회공헌 활동을 하고 있나요?",
	"중곡동 근처에 있는 착한가게를 알려주세요.",
}

// DocumentStore is the subset of the store the chat service uses.
type DocumentStore interface {
	Insert(ctx context.Context, text string, metadata map[string]string) (string, error)
	ListAll(ctx context.Context) ([]domain.Document, error)
}

// Retriever finds the texts relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Answerer turns retrieved texts into an answer. It never fails.
type Answerer interface {
	Answer(ctx context.Context, query string, texts []string, credential string) string
}

// ChatService runs one question through retrieval and generation and keeps
// the conversation log balanced: every accepted question gets one answer.
type ChatService struct {
	store     DocumentStore
	retriever Retriever
	answerer  Answerer
	session   *session.Conversation
	topK      int
	logger    *slog.Logger
	now       func() time.Time

	askMu      sync.Mutex
	credMu     sync.RWMutex
	credential string
}

func NewChatService(store DocumentStore, retriever Retriever, answerer Answerer, conv *session.Conversation, topK int, logger *slog.Logger) *ChatService {
	if conv == nil {
		conv = session.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		store:     store,
		retriever: retriever,
		answerer:  answerer,
		session:   conv,
		topK:      topK,
		logger:    logger,
		now:       time.Now,
	}
}

// Ask answers question with the credential set through SetCredential.
func (s *ChatService) Ask(ctx context.Context, question string) (string, error) {
	return s.AskWithCredential(ctx, question, s.getCredential())
}

// AskWithCredential answers question using credential for this call only.
func (s *ChatService) AskWithCredential(ctx context.Context, question, credential string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", ErrEmptyQuestion
	}
	s.askMu.Lock()
	defer s.askMu.Unlock()

	ctx, span := observability.StartSpan(ctx, "chat.ask", attribute.Bool("chat.has_credential", credential != ""))
	defer span.End()

	s.session.Append(domain.RoleUser, q)
	var answer string
	texts, err := s.retriever.Retrieve(ctx, q, s.topK)
	if err != nil {
		observability.RecordError(span, err)
		s.logger.ErrorContext(ctx, "retrieval failed", "error", err)
		answer = retrievalFailedAnswer
	} else {
		answer = s.answerer.Answer(ctx, q, texts, credential)
	}
	s.session.Append(domain.RoleAssistant, answer)
	return answer, nil
}

// AddDocument stores a user-submitted shop description.
func (s *ChatService) AddDocument(ctx context.Context, text string) (string, error) {
	id, err := s.store.Insert(ctx, text, map[string]string{
		"source":     "user_input",
		"date_added": s.now().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}
	s.logger.InfoContext(ctx, "document added", "id", id)
	return id, nil
}

// Documents lists every stored document in insertion order.
func (s *ChatService) Documents(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListAll(ctx)
}

// Conversation returns the turns so far.
func (s *ChatService) Conversation() []domain.Turn { return s.session.Turns() }

// ResetConversation clears the turns; stored documents are kept. It waits
// for an ask in flight so its question and answer go together.
func (s *ChatService) ResetConversation() {
	s.askMu.Lock()
	defer s.askMu.Unlock()
	s.session.Reset()
	s.logger.Info("conversation reset")
}

// SetCredential replaces the language model credential held in memory.
func (s *ChatService) SetCredential(credential string) {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	s.credential = strings.TrimSpace(credential)
}

func (s *ChatService) HasCredential() bool { return s.getCredential() != "" }

func (s *ChatService) getCredential() string {
	s.credMu.RLock()
	defer s.credMu.RUnlock()
	return s.credential
}
