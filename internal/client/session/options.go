package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/qrave1/InterviewRoom/internal/client/media"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/domain/models"
)

const (
	defaultNegotiationTimeout = 30 * time.Second
	defaultAwaitPeerTimeout   = 10 * time.Minute
	defaultMaxCandidates      = 64
)

// Signaler отправляет кадры релею
type Signaler interface {
	Send(kind string, data any) error
}

// PeerConnectionFactory создаёт peer connection. *webrtc.API подходит напрямую.
type PeerConnectionFactory interface {
	NewPeerConnection(configuration webrtc.Configuration) (*webrtc.PeerConnection, error)
}

// Peer - собеседник в комнате
type Peer struct {
	Identity string
	Handle   string
	Role     models.Role
}

// ChatEntry - строка журнала чата
type ChatEntry struct {
	From   string
	Text   string
	SentAt time.Time
	Local  bool
}

// Alert - сигнал для пользователя, не влияющий на состояние звонка
type Alert struct {
	Kind    string
	From    string
	Message string
}

const (
	AlertTabSwitch    = "tab-switch"
	AlertNotification = "notification"
)

// Hooks вызываются из цикла событий сессии. Они не должны блокироваться.
type Hooks struct {
	OnStateChange   func(from, to State)
	OnPeer          func(peer *Peer)
	OnRemoteTrack   func(track *webrtc.TrackRemote)
	OnRemoteCleared func()
	OnChat          func(entry ChatEntry)
	OnAlert         func(alert Alert)
	OnError         func(err error)
}

type Options struct {
	RoomID   string
	Identity string
	Role     models.Role

	// AutoCall - инициатор звонит сам, как только собеседник появился
	AutoCall bool

	ICEServers          []webrtc.ICEServer
	NegotiationTimeout  time.Duration
	AwaitPeerTimeout    time.Duration
	MaxQueuedCandidates int

	Signaler Signaler
	Inbound  <-chan events.Message
	Media    media.Source
	API      PeerConnectionFactory

	Hooks Hooks
	Log   *slog.Logger
}

func (o *Options) normalize() error {
	if o.RoomID == "" {
		return errors.New("room id is required")
	}
	if o.Signaler == nil || o.Inbound == nil {
		return errors.New("signaler and inbound channel are required")
	}
	if o.Media == nil {
		return errors.New("media source is required")
	}

	if o.Role == "" {
		o.Role = models.RoleCandidate
	}
	if o.NegotiationTimeout <= 0 {
		o.NegotiationTimeout = defaultNegotiationTimeout
	}
	if o.AwaitPeerTimeout <= 0 {
		o.AwaitPeerTimeout = defaultAwaitPeerTimeout
	}
	if o.MaxQueuedCandidates <= 0 {
		o.MaxQueuedCandidates = defaultMaxCandidates
	}
	if o.API == nil {
		api, err := DefaultAPI()
		if err != nil {
			return err
		}
		o.API = api
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}

	return nil
}

// DefaultAPI - pion API со стандартным набором кодеков
func DefaultAPI(opts ...func(*webrtc.API)) (*webrtc.API, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	return webrtc.NewAPI(append([]func(*webrtc.API){webrtc.WithMediaEngine(mediaEngine)}, opts...)...), nil
}
