package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pion/webrtc/v4"

	"github.com/qrave1/InterviewRoom/internal/client/session"
	"github.com/qrave1/InterviewRoom/internal/domain/models"
)

const helpLine = "/call  /mute  /video  /tab  /end  /quit  · enter sends chat"

// Controller - операции сессии, доступные из интерфейса
type Controller interface {
	Call() error
	End() error
	ToggleMute() (bool, error)
	ToggleVideo() (bool, error)
	SendChat(text string) error
	ReportTabSwitch() error
}

// Info - неизменяемые сведения о подключении для заголовка
type Info struct {
	RoomID   string
	Identity string
	Role     models.Role
}

// Сообщения от сессии
type (
	StateMsg struct {
		From session.State
		To   session.State
	}
	PeerMsg struct {
		Peer *session.Peer
	}
	ChatMsg struct {
		Entry session.ChatEntry
	}
	AlertMsg struct {
		Alert session.Alert
	}
	ErrorMsg struct {
		Err error
	}
	RemoteTrackMsg struct {
		Kind string
	}
	RemoteClearedMsg struct{}
)

type actionMsg struct {
	action string
	err    error
}

type muteMsg struct {
	muted bool
	err   error
}

type videoMsg struct {
	on  bool
	err error
}

// Hooks переводит события сессии в сообщения программы.
// send обычно (*tea.Program).Send, он безопасен для вызова из других горутин.
func Hooks(send func(tea.Msg)) session.Hooks {
	return session.Hooks{
		OnStateChange: func(from, to session.State) { send(StateMsg{From: from, To: to}) },
		OnPeer: func(p *session.Peer) {
			if p != nil {
				cp := *p
				p = &cp
			}
			send(PeerMsg{Peer: p})
		},
		OnRemoteTrack:   func(tr *webrtc.TrackRemote) { send(RemoteTrackMsg{Kind: tr.Kind().String()}) },
		OnRemoteCleared: func() { send(RemoteClearedMsg{}) },
		OnChat:          func(e session.ChatEntry) { send(ChatMsg{Entry: e}) },
		OnAlert:         func(a session.Alert) { send(AlertMsg{Alert: a}) },
		OnError:         func(err error) { send(ErrorMsg{Err: err}) },
	}
}

type Model struct {
	ctrl Controller
	info Info

	state   session.State
	peer    *session.Peer
	remote  map[string]bool
	muted   bool
	videoOn bool
	status  string
	lines   []string

	input    textinput.Model
	log      viewport.Model
	spinner  spinner.Model
	quitting bool
}

func New(ctrl Controller, info Info) *Model {
	in := textinput.New()
	in.Placeholder = "message or /command"
	in.CharLimit = 4000
	in.Prompt = "› "
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Primary)

	return &Model{
		ctrl:    ctrl,
		info:    info,
		remote:  map[string]bool{},
		videoOn: true,
		input:   in,
		log:     viewport.New(80, 15),
		spinner: s,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			return m, m.execute(line)
		}

	case tea.WindowSizeMsg:
		m.log.Width = msg.Width - 2
		m.log.Height = max(msg.Height-8, 3)
		m.input.Width = msg.Width - 4
		m.refresh()

	case StateMsg:
		m.state = msg.To
		m.appendLine(mutedStyle.Render(fmt.Sprintf("state: %s → %s", msg.From, msg.To)))

	case PeerMsg:
		m.peer = msg.Peer
		if msg.Peer != nil {
			m.appendLine(peerStyle.Render(fmt.Sprintf("%s (%s) is in the room", msg.Peer.Identity, msg.Peer.Role)))
		}

	case RemoteTrackMsg:
		m.remote[msg.Kind] = true

	case RemoteClearedMsg:
		m.remote = map[string]bool{}

	case ChatMsg:
		m.appendLine(formatChat(msg.Entry))

	case AlertMsg:
		text := msg.Alert.Message
		if msg.Alert.From != "" {
			text = msg.Alert.From + ": " + text
		}
		m.appendLine(warningStyle.Render("! " + text))

	case ErrorMsg:
		m.status = msg.Err.Error()

	case actionMsg:
		m.setResult(msg.action, msg.err)

	case muteMsg:
		if msg.err == nil {
			m.muted = msg.muted
		}
		m.setResult("mute", msg.err)

	case videoMsg:
		if msg.err == nil {
			m.videoOn = msg.on
		}
		m.setResult("video", msg.err)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) execute(line string) tea.Cmd {
	if line == "" {
		return nil
	}

	ctrl := m.ctrl
	m.status = ""

	switch line {
	case "/quit":
		m.quitting = true
		return tea.Quit
	case "/call":
		return func() tea.Msg { return actionMsg{action: "call", err: ctrl.Call()} }
	case "/end":
		return func() tea.Msg { return actionMsg{action: "end", err: ctrl.End()} }
	case "/tab":
		return func() tea.Msg { return actionMsg{action: "tab-switch", err: ctrl.ReportTabSwitch()} }
	case "/mute":
		return func() tea.Msg {
			muted, err := ctrl.ToggleMute()
			return muteMsg{muted: muted, err: err}
		}
	case "/video":
		return func() tea.Msg {
			on, err := ctrl.ToggleVideo()
			return videoMsg{on: on, err: err}
		}
	}

	if strings.HasPrefix(line, "/") {
		m.status = "unknown command " + line
		return nil
	}

	return func() tea.Msg { return actionMsg{action: "chat", err: ctrl.SendChat(line)} }
}

func (m *Model) setResult(action string, err error) {
	if err != nil {
		m.status = fmt.Sprintf("%s: %v", action, err)
	}
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *Model) refresh() {
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	state := m.state.String()
	badge := badgeStyle.Background(stateColor(state)).Render(state)
	if m.state == session.Negotiating {
		badge = m.spinner.View() + " " + badge
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("room %s · %s (%s)", m.info.RoomID, m.info.Identity, m.info.Role)))
	b.WriteString(" ")
	b.WriteString(badge)
	b.WriteString("\n")

	peer := "waiting for someone to join"
	if m.peer != nil {
		peer = fmt.Sprintf("peer: %s (%s)", m.peer.Identity, m.peer.Role)
	}
	b.WriteString(peerStyle.Render(peer))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(m.mediaLine()))
	b.WriteString("\n")

	b.WriteString(logStyle.Render(m.log.View()))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render(helpLine))

	return b.String()
}

func (m *Model) mediaLine() string {
	mic := "mic on"
	if m.muted {
		mic = "mic muted"
	}
	cam := "camera on"
	if !m.videoOn {
		cam = "camera off"
	}

	remote := "no remote media"
	if len(m.remote) > 0 {
		kinds := make([]string, 0, len(m.remote))
		for _, k := range []string{"audio", "video"} {
			if m.remote[k] {
				kinds = append(kinds, k)
			}
		}
		remote = "receiving " + strings.Join(kinds, "+")
	}

	return fmt.Sprintf("%s · %s · %s", mic, cam, remote)
}

func formatChat(e session.ChatEntry) string {
	ts := e.SentAt.Format(time.TimeOnly)

	name := otherStyle.Render(e.From)
	if e.Local {
		name = selfStyle.Render("you")
	}

	return fmt.Sprintf("%s %s: %s", mutedStyle.Render(ts), name, e.Text)
}
