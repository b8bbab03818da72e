package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/qrave1/InterviewRoom/internal/client/session"
	"github.com/qrave1/InterviewRoom/internal/domain/models"
)

type fakeController struct {
	calls   []string
	chats   []string
	callErr error
	muted   bool
}

func (f *fakeController) Call() error {
	f.calls = append(f.calls, "call")
	return f.callErr
}

func (f *fakeController) End() error {
	f.calls = append(f.calls, "end")
	return nil
}

func (f *fakeController) ToggleMute() (bool, error) {
	f.calls = append(f.calls, "mute")
	f.muted = !f.muted
	return f.muted, nil
}

func (f *fakeController) ToggleVideo() (bool, error) {
	f.calls = append(f.calls, "video")
	return false, nil
}

func (f *fakeController) SendChat(text string) error {
	f.chats = append(f.chats, text)
	return nil
}

func (f *fakeController) ReportTabSwitch() error {
	f.calls = append(f.calls, "tab")
	return session.ErrNotPermitted
}

func newTestModel(ctrl Controller) *Model {
	return New(ctrl, Info{RoomID: "room-1", Identity: "alice", Role: models.RoleInterviewer})
}

// submit набирает строку, жмёт enter и прогоняет результат команды через Update
func submit(t *testing.T, m *Model, line string) tea.Cmd {
	t.Helper()

	m.input.SetValue(line)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		return nil
	}

	msg := cmd()
	if _, ok := msg.(tea.QuitMsg); ok {
		return cmd
	}
	m.Update(msg)
	return cmd
}

func TestModel_Commands(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	submit(t, m, "/call")
	submit(t, m, "/mute")
	submit(t, m, "/video")
	submit(t, m, "/end")

	want := []string{"call", "mute", "video", "end"}
	if strings.Join(ctrl.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls=%v, want %v", ctrl.calls, want)
	}

	view := m.View()
	if !strings.Contains(view, "mic muted") || !strings.Contains(view, "camera off") {
		t.Fatalf("media state not rendered:\n%s", view)
	}
	if m.input.Value() != "" {
		t.Fatal("input must be cleared after submit")
	}
}

func TestModel_ChatAndUnknownCommand(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	submit(t, m, "hello there")
	if len(ctrl.chats) != 1 || ctrl.chats[0] != "hello there" {
		t.Fatalf("chats=%v", ctrl.chats)
	}

	if cmd := submit(t, m, "/dance"); cmd != nil {
		t.Fatal("unknown command must not run anything")
	}
	if !strings.Contains(m.View(), "unknown command /dance") {
		t.Fatal("unknown command not reported")
	}

	if cmd := submit(t, m, "   "); cmd != nil {
		t.Fatal("blank line must be ignored")
	}
}

func TestModel_ErrorsShownInStatus(t *testing.T) {
	ctrl := &fakeController{callErr: session.ErrNoPeer}
	m := newTestModel(ctrl)

	submit(t, m, "/call")
	if !strings.Contains(m.View(), "call: "+session.ErrNoPeer.Error()) {
		t.Fatalf("call error not shown:\n%s", m.View())
	}

	submit(t, m, "/tab")
	if !strings.Contains(m.View(), session.ErrNotPermitted.Error()) {
		t.Fatal("tab-switch error not shown")
	}

	m.Update(ErrorMsg{Err: errors.New("relay: boom")})
	if !strings.Contains(m.View(), "relay: boom") {
		t.Fatal("session error not shown")
	}
}

func TestModel_SessionEvents(t *testing.T) {
	m := newTestModel(&fakeController{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	m.Update(PeerMsg{Peer: &session.Peer{Identity: "bob", Handle: "h2", Role: models.RoleCandidate}})
	m.Update(StateMsg{From: session.Idle, To: session.AwaitingPeer})
	m.Update(StateMsg{From: session.AwaitingPeer, To: session.Connected})
	m.Update(RemoteTrackMsg{Kind: "video"})
	m.Update(ChatMsg{Entry: session.ChatEntry{From: "bob", Text: "hi!", SentAt: time.Now()}})
	m.Update(AlertMsg{Alert: session.Alert{Kind: session.AlertTabSwitch, From: "bob", Message: "left the tab"}})

	view := m.View()
	for _, want := range []string{"peer: bob (candidate)", "connected", "receiving video", "hi!", "bob: left the tab"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view does not contain %q:\n%s", want, view)
		}
	}

	m.Update(RemoteClearedMsg{})
	m.Update(PeerMsg{})
	view = m.View()
	if !strings.Contains(view, "no remote media") || !strings.Contains(view, "waiting for someone") {
		t.Fatalf("cleared state not rendered:\n%s", view)
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(&fakeController{})

	cmd := submit(t, m, "/quit")
	if cmd == nil {
		t.Fatal("quit must return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("quit must return tea.Quit")
	}
	if m.View() != "" {
		t.Fatal("view must be empty after quit")
	}
}

func TestHooks_ForwardToProgram(t *testing.T) {
	var got []tea.Msg
	hooks := Hooks(func(msg tea.Msg) { got = append(got, msg) })

	peer := &session.Peer{Identity: "bob"}
	hooks.OnPeer(peer)
	peer.Identity = "mutated"
	hooks.OnStateChange(session.Idle, session.AwaitingPeer)
	hooks.OnRemoteCleared()

	if len(got) != 3 {
		t.Fatalf("messages=%d, want 3", len(got))
	}
	if pm := got[0].(PeerMsg); pm.Peer.Identity != "bob" {
		t.Fatal("peer must be copied before it leaves the session loop")
	}
}
