package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/pion/webrtc/v4"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/client/media"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/domain/models"
)

const eventQueueSize = 128

type commandKind int

const (
	cmdCall commandKind = iota
	cmdEnd
	cmdToggleMute
	cmdToggleVideo
	cmdChat
	cmdTabSwitch
	cmdClose
)

type result struct {
	on  bool
	err error
}

type command struct {
	kind  commandKind
	text  string
	reply chan result
}

// События pion помечены поколением peer connection, события старых соединений отбрасываются
type (
	pcStateEvent struct {
		gen   uint64
		state webrtc.PeerConnectionState
	}
	localCandidateEvent struct {
		gen       uint64
		candidate webrtc.ICECandidateInit
	}
	remoteTrackEvent struct {
		gen   uint64
		track *webrtc.TrackRemote
	}
	timerEvent struct {
		gen uint64
	}
)

// Session - клиентская сторона звонка в комнате интервью.
// Всё состояние меняется только в цикле Run; публичные методы отправляют в него команды.
type Session struct {
	opts Options
	log  *slog.Logger

	events  chan any
	done    chan struct{}
	started atomic.Bool
	state   atomic.Int32

	mu   sync.Mutex
	peer *Peer
	chat []ChatEntry

	// принадлежит циклу событий
	ctx        context.Context
	local      media.Local
	pc         *webrtc.PeerConnection
	pcDone     chan struct{}
	pcGen      uint64
	hasRemote  bool
	candidates *candidateQueue
	timer      *time.Timer
	timerGen   uint64
}

func New(opts Options) (*Session, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	return &Session{
		opts: opts,
		log: opts.Log.With(
			slog.String(constant.RoomID, opts.RoomID),
			slog.String(constant.Role, string(opts.Role)),
		),
		events:     make(chan any, eventQueueSize),
		done:       make(chan struct{}),
		candidates: newCandidateQueue(opts.MaxQueuedCandidates),
	}, nil
}

// Run захватывает локальное медиа, входит в комнату и обрабатывает события до отмены ctx,
// вызова Close или потери соединения с релеем.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		select {
		case <-s.done:
			return ErrClosed
		default:
			return errors.New("session is already running")
		}
	}
	defer close(s.done)

	s.ctx = ctx

	if err := s.acquireMedia(); err != nil {
		s.reportError(err)
		return err
	}

	join := events.JoinRoomEvent{
		RoomID:   s.opts.RoomID,
		Identity: s.opts.Identity,
		Role:     string(s.opts.Role),
	}
	if err := s.opts.Signaler.Send(events.TypeJoinRoom, join); err != nil {
		s.releaseMedia()
		return fmt.Errorf("join room: %w", err)
	}

	s.log.Info("joined room")

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()

		case msg, ok := <-s.opts.Inbound:
			if !ok {
				s.shutdown()
				return ErrRelayClosed
			}
			s.handleMessage(msg)

		case ev := <-s.events:
			if cmd, ok := ev.(command); ok && cmd.kind == cmdClose {
				s.shutdown()
				cmd.reply <- result{}
				return nil
			}
			s.handleEvent(ev)
		}
	}
}

// State - текущее состояние звонка
func (s *Session) State() State {
	return State(s.state.Load())
}

// Peer - текущий собеседник, если он известен
func (s *Session) Peer() (Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.peer == nil {
		return Peer{}, false
	}
	return *s.peer, true
}

// ChatLog - копия журнала чата в порядке получения
func (s *Session) ChatLog() []ChatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]ChatEntry(nil), s.chat...)
}

// Call начинает звонок. Доступно только интервьюеру.
func (s *Session) Call() error {
	return s.do(cmdCall, "").err
}

// End завершает звонок в любом состоянии и освобождает локальное медиа
func (s *Session) End() error {
	return s.do(cmdEnd, "").err
}

// ToggleMute переключает микрофон и возвращает true, если звук выключен
func (s *Session) ToggleMute() (bool, error) {
	r := s.do(cmdToggleMute, "")
	return r.on, r.err
}

// ToggleVideo переключает камеру и возвращает true, если видео включено
func (s *Session) ToggleVideo() (bool, error) {
	r := s.do(cmdToggleVideo, "")
	return r.on, r.err
}

func (s *Session) SendChat(text string) error {
	return s.do(cmdChat, text).err
}

// ReportTabSwitch сообщает интервьюеру, что кандидат ушёл со вкладки
func (s *Session) ReportTabSwitch() error {
	return s.do(cmdTabSwitch, "").err
}

// Close выходит из комнаты и ждёт остановки Run.
// Если Run ещё не запускался, сессия закрывается сразу и Run вернёт ErrClosed.
func (s *Session) Close() error {
	if s.started.CompareAndSwap(false, true) {
		close(s.done)
		return nil
	}

	if err := s.do(cmdClose, "").err; err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	<-s.done
	return nil
}

func (s *Session) do(kind commandKind, text string) result {
	if !s.started.Load() {
		return result{err: ErrNotRunning}
	}

	cmd := command{kind: kind, text: text, reply: make(chan result, 1)}

	select {
	case s.events <- cmd:
	case <-s.done:
		return result{err: ErrClosed}
	}

	select {
	case r := <-cmd.reply:
		return r
	case <-s.done:
		select {
		case r := <-cmd.reply:
			return r
		default:
			return result{err: ErrClosed}
		}
	}
}

func (s *Session) post(ev any) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// postFrom не блокирует колбэки pion после закрытия их соединения
func (s *Session) postFrom(pcDone <-chan struct{}, ev any) {
	select {
	case s.events <- ev:
	case <-pcDone:
	case <-s.done:
	}
}

func (s *Session) handleEvent(ev any) {
	switch e := ev.(type) {
	case command:
		s.handleCommand(e)

	case pcStateEvent:
		if e.gen == s.pcGen && s.pc != nil {
			s.onConnectionState(e.state)
		}

	case localCandidateEvent:
		if e.gen != s.pcGen || s.pc == nil || s.peer == nil {
			return
		}
		raw, err := json.Marshal(e.candidate)
		if err != nil {
			s.log.Error("marshal local candidate", slog.Any(constant.Error, err))
			return
		}
		if err = s.opts.Signaler.Send(events.TypeICECandidate, events.NegotiationEvent{
			Candidate: raw,
			To:        s.peer.Handle,
		}); err != nil {
			s.log.Warn("send local candidate", slog.Any(constant.Error, err))
		}

	case remoteTrackEvent:
		if e.gen != s.pcGen || s.pc == nil {
			return
		}
		s.hasRemote = true
		s.log.Info("remote track", slog.String("kind", e.track.Kind().String()))
		if s.opts.Hooks.OnRemoteTrack != nil {
			s.opts.Hooks.OnRemoteTrack(e.track)
		}

	case timerEvent:
		if e.gen == s.timerGen {
			s.onTimeout()
		}
	}
}

func (s *Session) handleCommand(cmd command) {
	var r result

	switch cmd.kind {
	case cmdCall:
		r.err = s.call()
	case cmdEnd:
		s.end()
	case cmdToggleMute:
		r.on, r.err = s.toggleAudio()
	case cmdToggleVideo:
		r.on, r.err = s.toggleVideo()
	case cmdChat:
		r.err = s.sendChat(cmd.text)
	case cmdTabSwitch:
		r.err = s.reportTabSwitch()
	}

	cmd.reply <- r
}

func (s *Session) handleMessage(msg events.Message) {
	log := s.log.With(slog.String(constant.EventType, msg.Type))

	switch msg.Type {
	case events.TypeUsersInRoom:
		ev, err := events.DecodeData[events.UsersInRoomEvent](msg)
		if err != nil {
			log.Warn("decode frame", slog.Any(constant.Error, err))
			return
		}
		if len(ev.Users) == 0 {
			log.Info("room is empty")
			return
		}
		u := ev.Users[0]
		s.peerAnnounced(Peer{Identity: u.Identity, Handle: u.SessionHandle, Role: parseRole(u.Role)})

	case events.TypeUserReady:
		ev, err := events.DecodeData[events.UserReadyEvent](msg)
		if err != nil {
			log.Warn("decode frame", slog.Any(constant.Error, err))
			return
		}
		s.peerAnnounced(Peer{Identity: ev.Identity, Handle: ev.SessionHandle, Role: parseRole(ev.Role)})

	case events.TypeUserLeft:
		ev, err := events.DecodeData[events.UserLeftEvent](msg)
		if err != nil {
			log.Warn("decode frame", slog.Any(constant.Error, err))
			return
		}
		s.peerGone(ev.SessionHandle)

	case events.TypeOffer, events.TypeAnswer, events.TypeICECandidate:
		ev, err := events.DecodeData[events.NegotiationEvent](msg)
		if err != nil {
			log.Warn("decode frame", slog.Any(constant.Error, err))
			return
		}
		switch msg.Type {
		case events.TypeOffer:
			s.onOffer(ev)
		case events.TypeAnswer:
			s.onAnswer(ev)
		default:
			s.onRemoteCandidate(ev)
		}

	case events.TypeChatMessage:
		ev, err := events.DecodeData[events.ChatEvent](msg)
		if err != nil {
			log.Warn("decode frame", slog.Any(constant.Error, err))
			return
		}
		s.appendChat(ChatEntry{From: ev.From, Text: ev.Text, SentAt: time.UnixMilli(ev.SentAt)})

	case events.TypeCandidateTabSwitch:
		if s.opts.Role != models.RoleInterviewer {
			return
		}
		ev, err := events.DecodeData[events.SideChannelEvent](msg)
		if err != nil {
			log.Warn("decode frame", slog.Any(constant.Error, err))
			return
		}
		s.alert(Alert{Kind: AlertTabSwitch, From: ev.From, Message: "candidate switched away from the interview"})

	case events.TypeNotification:
		ev, err := events.DecodeData[events.NotificationEvent](msg)
		if err != nil {
			log.Warn("decode frame", slog.Any(constant.Error, err))
			return
		}
		s.alert(Alert{Kind: AlertNotification, Message: ev.Message})

	case events.TypeError:
		ev, err := events.DecodeData[events.ErrorEvent](msg)
		if err != nil {
			log.Warn("decode frame", slog.Any(constant.Error, err))
			return
		}
		s.reportError(fmt.Errorf("relay: %s", ev.Message))

	case events.TypeWelcome, events.TypePong:

	default:
		log.Debug("ignore frame")
	}
}

func (s *Session) peerAnnounced(p Peer) {
	if s.pc != nil && s.peer != nil && s.peer.Handle != p.Handle {
		s.log.Warn("ignore participant while call is active", slog.String(constant.Remote, p.Handle))
		return
	}

	s.setPeer(&p)
	if s.pc != nil {
		return
	}

	s.setState(AwaitingPeer)

	if s.opts.AutoCall && s.opts.Role.CanInitiate() {
		if err := s.call(); err != nil {
			s.reportError(err)
		}
	}
}

func (s *Session) peerGone(handle string) {
	if s.peer == nil || s.peer.Handle != handle {
		return
	}

	s.log.Info("peer left", slog.String(constant.Remote, handle))

	s.teardown()
	s.setPeer(nil)
	s.setState(PeerLeft)
}

func (s *Session) call() error {
	if !s.opts.Role.CanInitiate() {
		return ErrNotInitiator
	}
	if s.peer == nil {
		return ErrNoPeer
	}
	if s.pc != nil {
		return ErrCallInProgress
	}

	if err := s.acquireMedia(); err != nil {
		s.setState(Idle)
		return err
	}

	pc, err := s.newPeerConnection()
	if err != nil {
		return s.failCall(err)
	}
	s.setState(Negotiating)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return s.failCall(fmt.Errorf("create offer: %w", err))
	}
	if err = pc.SetLocalDescription(offer); err != nil {
		return s.failCall(fmt.Errorf("set local offer: %w", err))
	}
	if err = s.sendDescription(events.TypeOffer, offer); err != nil {
		return s.failCall(err)
	}

	s.log.Info("offer sent", slog.String(constant.Remote, s.peer.Handle))
	return nil
}

func (s *Session) onOffer(ev events.NegotiationEvent) {
	if s.pc != nil {
		if s.peer == nil || s.peer.Handle != ev.From {
			s.log.Warn("ignore offer from a third party", slog.String(constant.Remote, ev.From))
			return
		}
		if s.pc.SignalingState() == webrtc.SignalingStateHaveLocalOffer {
			// встречные offer: инициатор держит свой
			s.log.Warn("ignore offer during own negotiation", slog.String(constant.Remote, ev.From))
			return
		}
		if err := s.answer(ev); err != nil {
			s.reportError(s.failCall(err))
		}
		return
	}

	if s.peer == nil || s.peer.Handle != ev.From {
		s.setPeer(&Peer{Identity: ev.FromIdentity, Handle: ev.From, Role: counterpart(s.opts.Role)})
	}

	if err := s.acquireMedia(); err != nil {
		s.setState(Idle)
		s.reportError(err)
		return
	}

	if _, err := s.newPeerConnection(); err != nil {
		s.reportError(s.failCall(err))
		return
	}
	s.setState(Negotiating)

	if err := s.answer(ev); err != nil {
		s.reportError(s.failCall(err))
		return
	}

	s.log.Info("answer sent", slog.String(constant.Remote, ev.From))
}

func (s *Session) answer(ev events.NegotiationEvent) error {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(ev.SDP, &offer); err != nil {
		return fmt.Errorf("decode offer: %w", err)
	}

	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("set remote offer: %w", err)
	}
	s.flushCandidates()

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err = s.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local answer: %w", err)
	}

	return s.sendDescription(events.TypeAnswer, answer)
}

func (s *Session) onAnswer(ev events.NegotiationEvent) {
	if s.pc == nil || s.peer == nil || s.peer.Handle != ev.From {
		s.log.Debug("ignore stray answer", slog.String(constant.Remote, ev.From))
		return
	}
	if s.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		s.log.Warn("ignore answer without pending offer", slog.String(constant.Remote, ev.From))
		return
	}

	var answer webrtc.SessionDescription
	if err := json.Unmarshal(ev.SDP, &answer); err != nil {
		s.reportError(s.failCall(fmt.Errorf("decode answer: %w", err)))
		return
	}
	if err := s.pc.SetRemoteDescription(answer); err != nil {
		s.reportError(s.failCall(fmt.Errorf("set remote answer: %w", err)))
		return
	}

	s.flushCandidates()
}

func (s *Session) onRemoteCandidate(ev events.NegotiationEvent) {
	if s.peer != nil && s.peer.Handle != ev.From {
		s.log.Debug("ignore candidate from a third party", slog.String(constant.Remote, ev.From))
		return
	}

	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(ev.Candidate, &candidate); err != nil {
		s.log.Warn("decode remote candidate", slog.Any(constant.Error, err))
		return
	}

	if s.pc != nil && s.pc.RemoteDescription() != nil {
		if err := s.pc.AddICECandidate(candidate); err != nil {
			s.log.Warn("add remote candidate", slog.Any(constant.Error, err))
		}
		return
	}

	if !s.candidates.push(candidate) {
		s.log.Warn("candidate queue is full, dropping candidate", slog.String(constant.Remote, ev.From))
	}
}

func (s *Session) flushCandidates() {
	for _, c := range s.candidates.drain() {
		if err := s.pc.AddICECandidate(c); err != nil {
			s.log.Warn("add queued candidate", slog.Any(constant.Error, err))
		}
	}
}

func (s *Session) onConnectionState(st webrtc.PeerConnectionState) {
	s.log.Debug("peer connection state", slog.String(constant.State, st.String()))

	switch st {
	case webrtc.PeerConnectionStateConnected:
		if s.State() == Negotiating {
			s.setState(Connected)
		}
	case webrtc.PeerConnectionStateDisconnected,
		webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateClosed:
		s.teardown()
		s.setState(PeerLeft)
	}
}

func (s *Session) onTimeout() {
	switch s.State() {
	case Negotiating:
		s.teardown()
		s.setState(PeerLeft)
		s.reportError(ErrNegotiationTimeout)
	case AwaitingPeer:
		// собеседник остается в комнате, релей повторно его не объявит
		s.log.Info("nobody started the call")
		s.setState(Idle)
	}
}

func (s *Session) newPeerConnection() (*webrtc.PeerConnection, error) {
	pc, err := s.opts.API.NewPeerConnection(webrtc.Configuration{ICEServers: s.opts.ICEServers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	for _, track := range s.local.Tracks() {
		if _, err = pc.AddTrack(track); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add %s track: %w", track.Kind(), err)
		}
	}

	s.pcGen++
	gen := s.pcGen
	done := make(chan struct{})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		s.postFrom(done, localCandidateEvent{gen: gen, candidate: c.ToJSON()})
	})
	pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		s.postFrom(done, pcStateEvent{gen: gen, state: st})
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		s.postFrom(done, remoteTrackEvent{gen: gen, track: track})
	})

	s.pc = pc
	s.pcDone = done

	return pc, nil
}

func (s *Session) sendDescription(kind string, desc webrtc.SessionDescription) error {
	raw, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}

	if err = s.opts.Signaler.Send(kind, events.NegotiationEvent{SDP: raw, To: s.peer.Handle}); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}

	return nil
}

func (s *Session) failCall(err error) error {
	s.teardown()
	s.setState(PeerLeft)
	return err
}

// teardown закрывает peer connection и сбрасывает очередь кандидатов
func (s *Session) teardown() {
	s.candidates.reset()

	if s.pc == nil {
		return
	}

	pc := s.pc
	close(s.pcDone)
	s.pc = nil
	s.pcDone = nil
	s.pcGen++

	if err := pc.Close(); err != nil {
		s.log.Warn("close peer connection", slog.Any(constant.Error, err))
	}

	if s.hasRemote {
		s.hasRemote = false
		if s.opts.Hooks.OnRemoteCleared != nil {
			s.opts.Hooks.OnRemoteCleared()
		}
	}
}

func (s *Session) end() {
	s.teardown()
	s.releaseMedia()
	s.setState(PeerLeft)
}

func (s *Session) shutdown() {
	s.end()

	if err := s.opts.Signaler.Send(events.TypeLeaveRoom, events.LeaveRoomEvent{RoomID: s.opts.RoomID}); err != nil {
		s.log.Debug("send leave-room", slog.Any(constant.Error, err))
	}
}

func (s *Session) acquireMedia() error {
	if s.local != nil {
		return nil
	}

	local, err := s.opts.Media.Acquire(s.ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}

	s.local = local
	return nil
}

func (s *Session) releaseMedia() {
	if s.local == nil {
		return
	}

	if err := s.local.Close(); err != nil {
		s.log.Warn("release media", slog.Any(constant.Error, err))
	}
	s.local = nil
}

func (s *Session) toggleAudio() (bool, error) {
	if s.local == nil {
		return false, ErrMediaUnavailable
	}

	enabled := !s.local.AudioEnabled()
	s.local.SetAudioEnabled(enabled)

	return !enabled, nil
}

func (s *Session) toggleVideo() (bool, error) {
	if s.local == nil {
		return false, ErrMediaUnavailable
	}

	enabled := !s.local.VideoEnabled()
	s.local.SetVideoEnabled(enabled)

	return enabled, nil
}

func (s *Session) sendChat(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(text); n > events.MaxChatTextLength {
		return fmt.Errorf("chat message is too long: %d > %d", n, events.MaxChatTextLength)
	}

	if err := s.opts.Signaler.Send(events.TypeChatMessage, events.ChatEvent{RoomID: s.opts.RoomID, Text: text}); err != nil {
		return fmt.Errorf("send chat: %w", err)
	}

	s.appendChat(ChatEntry{From: s.opts.Identity, Text: text, SentAt: time.Now(), Local: true})
	return nil
}

func (s *Session) reportTabSwitch() error {
	if s.opts.Role != models.RoleCandidate {
		return ErrNotPermitted
	}

	if err := s.opts.Signaler.Send(events.TypeTabSwitch, events.SideChannelEvent{RoomID: s.opts.RoomID}); err != nil {
		return fmt.Errorf("send tab-switch: %w", err)
	}

	return nil
}

func (s *Session) setState(to State) {
	from := s.State()
	if from == to {
		return
	}

	s.state.Store(int32(to))
	s.log.Info("state changed", slog.String("from", from.String()), slog.String(constant.State, to.String()))

	switch to {
	case Negotiating:
		s.arm(s.opts.NegotiationTimeout)
	case AwaitingPeer:
		s.arm(s.opts.AwaitPeerTimeout)
	default:
		s.disarm()
	}

	if s.opts.Hooks.OnStateChange != nil {
		s.opts.Hooks.OnStateChange(from, to)
	}
}

func (s *Session) arm(d time.Duration) {
	s.disarm()

	gen := s.timerGen
	s.timer = time.AfterFunc(d, func() {
		s.post(timerEvent{gen: gen})
	})
}

func (s *Session) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Session) setPeer(p *Peer) {
	s.mu.Lock()
	s.peer = p
	s.mu.Unlock()

	if s.opts.Hooks.OnPeer != nil {
		s.opts.Hooks.OnPeer(p)
	}
}

func (s *Session) appendChat(entry ChatEntry) {
	s.mu.Lock()
	s.chat = append(s.chat, entry)
	s.mu.Unlock()

	if s.opts.Hooks.OnChat != nil {
		s.opts.Hooks.OnChat(entry)
	}
}

func (s *Session) alert(a Alert) {
	s.log.Info("alert", slog.String("kind", a.Kind), slog.String(constant.Remote, a.From))
	if s.opts.Hooks.OnAlert != nil {
		s.opts.Hooks.OnAlert(a)
	}
}

func (s *Session) reportError(err error) {
	s.log.Warn("session error", slog.Any(constant.Error, err))
	if s.opts.Hooks.OnError != nil {
		s.opts.Hooks.OnError(err)
	}
}

func parseRole(raw string) models.Role {
	role, err := models.ParseRole(raw)
	if err != nil {
		return models.RoleCandidate
	}
	return role
}

func counterpart(r models.Role) models.Role {
	if r == models.RoleInterviewer {
		return models.RoleCandidate
	}
	return models.RoleInterviewer
}
