package dto

import "github.com/pion/webrtc/v4"

type IceServersResponse struct {
	IceServers []webrtc.ICEServer `json:"iceServers"`
}
