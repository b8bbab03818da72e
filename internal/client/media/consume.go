package media

import (
	"errors"
	"io"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Consume читает удалённую дорожку, пока её не закроют.
// onPacket может быть nil: тогда пакеты просто выбрасываются.
func Consume(track *webrtc.TrackRemote, onPacket func(pkt *rtp.Packet)) error {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if onPacket != nil {
			onPacket(pkt)
		}
	}
}
