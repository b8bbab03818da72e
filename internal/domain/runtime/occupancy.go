package runtime

import (
	"time"

	"github.com/qrave1/InterviewRoom/internal/domain/models"
)

// Occupancy - присутствие участника в комнате. Уникально по (комната, Identity).
type Occupancy struct {
	Identity string      `json:"identity"`
	Handle   string      `json:"session_handle"`
	Role     models.Role `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

type RoomSnapshot struct {
	RoomID    string      `json:"room_id"`
	Occupants []Occupancy `json:"occupants"`
}
