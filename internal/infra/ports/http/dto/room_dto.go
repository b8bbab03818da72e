package dto

import (
	"time"

	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
)

type OccupantResponse struct {
	Identity      string    `json:"identity"`
	SessionHandle string    `json:"session_handle"`
	Role          string    `json:"role"`
	JoinedAt      time.Time `json:"joined_at"`
}

type RoomResponse struct {
	RoomID    string             `json:"room_id"`
	Occupants []OccupantResponse `json:"occupants"`
}

type RoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

func NewRoomResponse(roomID string, occs []runtime.Occupancy) RoomResponse {
	resp := RoomResponse{
		RoomID:    roomID,
		Occupants: make([]OccupantResponse, 0, len(occs)),
	}

	for _, o := range occs {
		resp.Occupants = append(resp.Occupants, OccupantResponse{
			Identity:      o.Identity,
			SessionHandle: o.Handle,
			Role:          string(o.Role),
			JoinedAt:      o.JoinedAt,
		})
	}

	return resp
}
