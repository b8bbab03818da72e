package media

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

const (
	audioClockRate = 48000
	videoClockRate = 90000

	audioFrame = 20 * time.Millisecond
	videoFrame = 33 * time.Millisecond

	audioPayloadType = 111
	videoPayloadType = 96
)

var (
	// кадр тишины opus
	opusSilence = []byte{0xf8, 0xff, 0xfe}
	// VP8 payload descriptor с S-битом и пустой кадр
	vp8Blank = []byte{0x10, 0x00, 0x00, 0x9d, 0x01, 0x2a}
)

// SyntheticConfig - параметры генератора дорожек
type SyntheticConfig struct {
	StreamID string
	Audio    bool
	Video    bool
}

// Synthetic генерирует opus и VP8 дорожки без реального устройства.
// Терминальный клиент не имеет доступа к камере, поэтому в дорожки пишутся пустые кадры.
type Synthetic struct {
	cfg SyntheticConfig
}

func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.StreamID == "" {
		cfg.StreamID = "interviewroom"
	}
	return &Synthetic{cfg: cfg}
}

func (s *Synthetic) Acquire(ctx context.Context) (Local, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.cfg.Audio && !s.cfg.Video {
		return nil, fmt.Errorf("%w: no audio or video requested", ErrUnavailable)
	}

	local := &syntheticLocal{stop: make(chan struct{})}

	if s.cfg.Audio {
		track, err := webrtc.NewTrackLocalStaticRTP(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: audioClockRate, Channels: 2},
			"audio", s.cfg.StreamID,
		)
		if err != nil {
			return nil, fmt.Errorf("create audio track: %w", err)
		}
		local.audio = track
		local.audioOn.Store(true)
		local.start(track, &local.audioOn, audioPayloadType, audioFrame, audioClockRate, opusSilence)
	}

	if s.cfg.Video {
		track, err := webrtc.NewTrackLocalStaticRTP(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: videoClockRate},
			"video", s.cfg.StreamID,
		)
		if err != nil {
			_ = local.Close()
			return nil, fmt.Errorf("create video track: %w", err)
		}
		local.video = track
		local.videoOn.Store(true)
		local.start(track, &local.videoOn, videoPayloadType, videoFrame, videoClockRate, vp8Blank)
	}

	return local, nil
}

type syntheticLocal struct {
	audio *webrtc.TrackLocalStaticRTP
	video *webrtc.TrackLocalStaticRTP

	audioOn atomic.Bool
	videoOn atomic.Bool

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (l *syntheticLocal) Tracks() []webrtc.TrackLocal {
	tracks := make([]webrtc.TrackLocal, 0, 2)
	if l.audio != nil {
		tracks = append(tracks, l.audio)
	}
	if l.video != nil {
		tracks = append(tracks, l.video)
	}
	return tracks
}

func (l *syntheticLocal) AudioEnabled() bool { return l.audio != nil && l.audioOn.Load() }

func (l *syntheticLocal) VideoEnabled() bool { return l.video != nil && l.videoOn.Load() }

func (l *syntheticLocal) SetAudioEnabled(enabled bool) { l.audioOn.Store(enabled) }

func (l *syntheticLocal) SetVideoEnabled(enabled bool) { l.videoOn.Store(enabled) }

// Close останавливает генераторы и ждёт их завершения
func (l *syntheticLocal) Close() error {
	l.closeOnce.Do(func() {
		close(l.stop)
	})
	l.wg.Wait()
	return nil
}

func (l *syntheticLocal) start(
	track *webrtc.TrackLocalStaticRTP,
	enabled *atomic.Bool,
	payloadType uint8,
	frame time.Duration,
	clockRate uint32,
	payload []byte,
) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(frame)
		defer ticker.Stop()

		step := uint32(frame.Seconds() * float64(clockRate))
		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    payloadType,
				SequenceNumber: uint16(rand.Uint32()),
				Timestamp:      rand.Uint32(),
				SSRC:           rand.Uint32(),
				Marker:         true,
			},
			Payload: payload,
		}

		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
			}

			pkt.Timestamp += step
			if !enabled.Load() {
				continue
			}

			pkt.SequenceNumber++
			// соединение может закрыться раньше дорожки
			_ = track.WriteRTP(pkt)
		}
	}()
}
