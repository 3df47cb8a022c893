package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"shopbot/internal/domain"
)

// ChatPort is the TUI-facing subset of the chat service.
type ChatPort interface {
	Ask(ctx context.Context, question string) (string, error)
	AddDocument(ctx context.Context, text string) (string, error)
	Documents(ctx context.Context) ([]domain.Document, error)
	Conversation() []domain.Turn
	ResetConversation()
	SetCredential(credential string)
	HasCredential() bool
}

const helpText = `명령어:
  /key <API 키>   언어 모델 API 키 설정 (빈 값이면 해제)
  /add <가게 정보> 새 착한가게 정보 추가
  /docs           저장된 가게 정보 목록
  /reset          대화 기록 초기화
  /help           도움말
Tab 키로 예시 질문을 고를 수 있습니다. Ctrl+C로 종료합니다.`

type answerMsg struct {
	answer string
	err    error
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	ctx      context.Context
	service  ChatPort
	examples []string
	input    textinput.Model
	viewport viewport.Model
	notice   string
	pending  string
	status   string
	example  int
	busy     bool
	ready    bool
}

// New creates a new TUI model instance.
func New(ctx context.Context, service ChatPort, examples []string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "질문을 입력하세요 (/help 로 도움말)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  service,
		examples: examples,
		input:    ti,
		viewport: vp,
		status:   "광진구 착한가게에 대해 무엇이든 물어보세요.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header lines, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		m.pending = ""
		if msg.err != nil {
			m.status = "오류: " + msg.err.Error()
		} else {
			m.status = "답변이 도착했습니다."
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			if len(m.examples) > 0 {
				m.input.SetValue(m.examples[m.example])
				m.input.CursorEnd()
				m.example = (m.example + 1) % len(m.examples)
			}
			return m, nil
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			if strings.HasPrefix(line, "/") {
				m.input.Reset()
				m.runCommand(line)
				m.refresh()
				return m, nil
			}
			if m.busy {
				m.status = "이전 질문에 대한 답변을 기다리는 중입니다."
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.pending = line
			m.notice = ""
			m.status = "답변을 생성하는 중입니다..."
			m.refresh()
			return m, m.ask(line)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		answer, err := svc.Ask(ctx, question)
		return answerMsg{answer: answer, err: err}
	}
}

func (m *Model) runCommand(line string) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/key":
		m.service.SetCredential(arg)
		if arg == "" {
			m.status = "API 키가 해제되었습니다. 기본 정보로 답변합니다."
		} else {
			m.status = "API 키가 설정되었습니다: " + maskCredential(arg)
		}
	case "/add":
		if arg == "" {
			m.status = "추가할 가게 정보를 입력해주세요."
			return
		}
		id, err := m.service.AddDocument(m.ctx, arg)
		if err != nil {
			m.status = "오류: " + err.Error()
			return
		}
		m.status = "새 가게 정보가 추가되었습니다: " + id
	case "/docs":
		docs, err := m.service.Documents(m.ctx)
		if err != nil {
			m.status = "오류: " + err.Error()
			return
		}
		var b strings.Builder
		b.WriteString(fmt.Sprintf("저장된 가게 정보 (%d개):\n", len(docs)))
		for i, d := range docs {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, d.Text))
		}
		m.notice = strings.TrimRight(b.String(), "\n")
		m.status = ""
	case "/reset":
		if m.busy {
			m.status = "답변을 기다리는 중에는 대화 기록을 초기화할 수 없습니다."
			return
		}
		m.service.ResetConversation()
		m.notice = ""
		m.status = "대화 기록이 초기화되었습니다."
	case "/help":
		m.notice = helpText
		m.status = ""
	default:
		m.status = "알 수 없는 명령어입니다: " + name
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("광진구 착한가게 챗봇")
	mode := "API 키 없음: 검색된 정보를 그대로 보여줍니다"
	if m.service.HasCredential() {
		mode = "API 키 설정됨: 언어 모델이 답변을 작성합니다"
	}
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(mode)
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + sub + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) renderConversation() string {
	turns := m.service.Conversation()
	var parts []string
	if len(turns) == 0 && m.notice == "" && m.pending == "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("아직 대화가 없습니다. Tab 키로 예시 질문을 불러올 수 있습니다."))
	}
	wrap := lipgloss.NewStyle()
	if m.viewport.Width > 4 {
		wrap = wrap.Width(m.viewport.Width - 4)
	}
	for _, t := range turns {
		label := assistantStyle.Render("챗봇")
		if t.Role == domain.RoleUser {
			label = userStyle.Render("나")
		}
		parts = append(parts, label+"\n"+wrap.Render(t.Content))
	}
	if m.pending != "" {
		parts = append(parts, userStyle.Render("나")+"\n"+wrap.Render(m.pending))
		parts = append(parts, noticeStyle.Render("답변을 생성하는 중입니다..."))
	}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(wrap.Render(m.notice)))
	}
	return strings.Join(parts, "\n\n")
}

func maskCredential(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return "****"
	}
	return string(r[:3]) + "****" + string(r[len(r)-2:])
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
