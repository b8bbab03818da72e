package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/vnet"
	"github.com/pion/webrtc/v4"

	"github.com/qrave1/InterviewRoom/internal/client/media"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
)

const waitTimeout = 10 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newVNetAPIs поднимает виртуальную сеть с двумя адресами и pion API на каждом
func newVNetAPIs(t *testing.T) (*webrtc.API, *webrtc.API) {
	t.Helper()

	router, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          "10.0.0.0/24",
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	t.Cleanup(func() {
		_ = router.Stop()
	})

	netA, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{"10.0.0.1"}})
	if err != nil {
		t.Fatalf("new net A: %v", err)
	}
	netB, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{"10.0.0.2"}})
	if err != nil {
		t.Fatalf("new net B: %v", err)
	}

	if err = router.AddNet(netA); err != nil {
		t.Fatalf("add net A: %v", err)
	}
	if err = router.AddNet(netB); err != nil {
		t.Fatalf("add net B: %v", err)
	}
	if err = router.Start(); err != nil {
		t.Fatalf("start router: %v", err)
	}

	return newVNetAPI(t, netA), newVNetAPI(t, netB)
}

func newVNetAPI(t *testing.T, n *vnet.Net) *webrtc.API {
	t.Helper()

	se := webrtc.SettingEngine{}
	se.SetNet(n)
	se.SetICETimeouts(time.Second, 2*time.Second, 200*time.Millisecond)

	api, err := DefaultAPI(webrtc.WithSettingEngine(se))
	if err != nil {
		t.Fatalf("new api: %v", err)
	}
	return api
}

// fakeRelay маршрутизирует кадры между клиентами одной комнаты так же, как релей
type fakeRelay struct {
	mu      sync.Mutex
	joined  []*endpoint
	handles atomic.Int64
}

type delivery struct {
	to   *endpoint
	kind string
	data any
}

// endpoint - соединение клиента с fakeRelay. Реализует Signaler.
type endpoint struct {
	relay    *fakeRelay
	handle   string
	identity string
	role     string
	inbound  chan events.Message

	mu   sync.Mutex
	sent []events.Message
}

func (r *fakeRelay) connect(identity string) *endpoint {
	n := r.handles.Add(1)
	return &endpoint{
		relay:    r,
		handle:   "h" + string(rune('0'+n)),
		identity: identity,
		inbound:  make(chan events.Message, 256),
	}
}

// solo - клиент без второй стороны, кадры релея подставляет тест
func solo(identity string) *endpoint {
	return &endpoint{handle: "h1", identity: identity, inbound: make(chan events.Message, 256)}
}

func (e *endpoint) Send(kind string, data any) error {
	frame, err := events.Encode(kind, data)
	if err != nil {
		return err
	}
	msg, err := events.Decode(frame)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.sent = append(e.sent, msg)
	e.mu.Unlock()

	if e.relay != nil {
		e.relay.route(e, msg)
	}
	return nil
}

func (e *endpoint) sentOf(kind string) []events.Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []events.Message
	for _, m := range e.sent {
		if m.Type == kind {
			out = append(out, m)
		}
	}
	return out
}

func (e *endpoint) hasSent(kind string) bool {
	return len(e.sentOf(kind)) > 0
}

// inject доставляет кадр клиенту напрямую, минуя маршрутизацию
func (e *endpoint) inject(t *testing.T, kind string, data any) {
	t.Helper()

	frame, err := events.Encode(kind, data)
	if err != nil {
		t.Fatalf("encode %s: %v", kind, err)
	}
	msg, err := events.Decode(frame)
	if err != nil {
		t.Fatalf("decode %s: %v", kind, err)
	}
	e.inbound <- msg
}

func (r *fakeRelay) route(from *endpoint, msg events.Message) {
	var out []delivery

	r.mu.Lock()
	switch msg.Type {
	case events.TypeJoinRoom:
		ev, _ := events.DecodeData[events.JoinRoomEvent](msg)
		from.role = ev.Role

		users := make([]events.Participant, 0, len(r.joined))
		for _, o := range r.joined {
			users = append(users, events.Participant{Identity: o.identity, SessionHandle: o.handle, Role: o.role})
			out = append(out, delivery{to: o, kind: events.TypeUserReady, data: events.UserReadyEvent{
				RoomID: ev.RoomID, Identity: from.identity, SessionHandle: from.handle, Role: from.role,
			}})
		}
		out = append(out, delivery{to: from, kind: events.TypeUsersInRoom, data: events.UsersInRoomEvent{RoomID: ev.RoomID, Users: users}})
		r.joined = append(r.joined, from)

	case events.TypeLeaveRoom:
		ev, _ := events.DecodeData[events.LeaveRoomEvent](msg)
		kept := r.joined[:0]
		for _, o := range r.joined {
			if o != from {
				kept = append(kept, o)
			}
		}
		r.joined = kept
		for _, o := range r.joined {
			out = append(out, delivery{to: o, kind: events.TypeUserLeft, data: events.UserLeftEvent{
				RoomID: ev.RoomID, Identity: from.identity, SessionHandle: from.handle,
			}})
		}

	case events.TypeOffer, events.TypeAnswer, events.TypeICECandidate:
		ev, _ := events.DecodeData[events.NegotiationEvent](msg)
		for _, o := range r.joined {
			if o.handle == ev.To {
				out = append(out, delivery{to: o, kind: msg.Type, data: events.NegotiationEvent{
					SDP: ev.SDP, Candidate: ev.Candidate, From: from.handle, FromIdentity: from.identity,
				}})
			}
		}

	case events.TypeChatMessage:
		ev, _ := events.DecodeData[events.ChatEvent](msg)
		for _, o := range r.joined {
			if o != from {
				out = append(out, delivery{to: o, kind: msg.Type, data: events.ChatEvent{
					RoomID: ev.RoomID, Text: ev.Text, From: from.identity, FromHandle: from.handle, SentAt: time.Now().UnixMilli(),
				}})
			}
		}

	case events.TypeTabSwitch:
		ev, _ := events.DecodeData[events.SideChannelEvent](msg)
		for _, o := range r.joined {
			if o != from {
				out = append(out, delivery{to: o, kind: events.TypeCandidateTabSwitch, data: events.SideChannelEvent{
					RoomID: ev.RoomID, From: from.identity,
				}})
			}
		}
	}
	r.mu.Unlock()

	for _, d := range out {
		frame, _ := events.Encode(d.kind, d.data)
		m, _ := events.Decode(frame)
		d.to.inbound <- m
	}
}

// recorder собирает вызовы хуков
type recorder struct {
	mu  sync.Mutex
	log hookLog
}

type hookLog struct {
	states   []State
	alerts   []Alert
	errs     []error
	chats    []ChatEntry
	tracks   int
	cleared  int
	lastPeer *Peer
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnStateChange: func(_, to State) {
			r.mu.Lock()
			r.log.states = append(r.log.states, to)
			r.mu.Unlock()
		},
		OnPeer: func(p *Peer) {
			r.mu.Lock()
			r.log.lastPeer = p
			r.mu.Unlock()
		},
		OnRemoteTrack: func(*webrtc.TrackRemote) {
			r.mu.Lock()
			r.log.tracks++
			r.mu.Unlock()
		},
		OnRemoteCleared: func() {
			r.mu.Lock()
			r.log.cleared++
			r.mu.Unlock()
		},
		OnChat: func(e ChatEntry) {
			r.mu.Lock()
			r.log.chats = append(r.log.chats, e)
			r.mu.Unlock()
		},
		OnAlert: func(a Alert) {
			r.mu.Lock()
			r.log.alerts = append(r.log.alerts, a)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.log.errs = append(r.log.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() hookLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	return hookLog{
		states:   append([]State(nil), r.log.states...),
		alerts:   append([]Alert(nil), r.log.alerts...),
		errs:     append([]error(nil), r.log.errs...),
		chats:    append([]ChatEntry(nil), r.log.chats...),
		tracks:   r.log.tracks,
		cleared:  r.log.cleared,
		lastPeer: r.log.lastPeer,
	}
}

func (r *recorder) hasError(target error) bool {
	for _, err := range r.snapshot().errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// countingSource выдаёт синтетическое медиа и считает захваты и освобождения
type countingSource struct {
	acquired atomic.Int32
	released atomic.Int32
	fail     error
}

func (c *countingSource) Acquire(ctx context.Context) (media.Local, error) {
	if c.fail != nil {
		return nil, c.fail
	}

	local, err := media.NewSynthetic(media.SyntheticConfig{Audio: true, Video: true}).Acquire(ctx)
	if err != nil {
		return nil, err
	}
	c.acquired.Add(1)
	return &countingLocal{Local: local, released: &c.released}, nil
}

type countingLocal struct {
	media.Local
	released *atomic.Int32
}

func (l *countingLocal) Close() error {
	l.released.Add(1)
	return l.Local.Close()
}

type testClient struct {
	*Session
	ep     *endpoint
	rec    *recorder
	source *countingSource
	errc   chan error
}

func startClient(t *testing.T, ep *endpoint, opts Options) *testClient {
	t.Helper()

	c := &testClient{ep: ep, rec: &recorder{}, source: &countingSource{}, errc: make(chan error, 1)}

	opts.Signaler = ep
	opts.Inbound = ep.inbound
	opts.Identity = ep.identity
	opts.Hooks = c.rec.hooks()
	opts.Log = discardLogger()
	if opts.RoomID == "" {
		opts.RoomID = "room-1"
	}
	if opts.Media == nil {
		opts.Media = c.source
	}

	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Session = s

	go func() {
		c.errc <- s.Run(context.Background())
	}()
	t.Cleanup(func() {
		_ = s.Close()
	})

	// до старта Run команды отвечают ErrNotRunning
	waitFor(t, "session loop", s.started.Load)

	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitState(t *testing.T, c *testClient, want State) {
	t.Helper()
	waitFor(t, c.ep.identity+" "+want.String(), func() bool { return c.State() == want })
}
