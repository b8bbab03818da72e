package media

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"
)

// ErrUnavailable - устройство захвата недоступно или доступ запрещён
var ErrUnavailable = errors.New("media unavailable")

// Local - захваченные локальные дорожки.
// SetAudioEnabled/SetVideoEnabled не пересогласуют соединение, дорожка просто замолкает.
type Local interface {
	Tracks() []webrtc.TrackLocal
	AudioEnabled() bool
	VideoEnabled() bool
	SetAudioEnabled(enabled bool)
	SetVideoEnabled(enabled bool)
	Close() error
}

// Source выдаёт локальные дорожки. Каждый вызов Acquire захватывает их заново.
type Source interface {
	Acquire(ctx context.Context) (Local, error)
}

// SourceFunc позволяет использовать функцию как Source
type SourceFunc func(ctx context.Context) (Local, error)

func (f SourceFunc) Acquire(ctx context.Context) (Local, error) {
	return f(ctx)
}
