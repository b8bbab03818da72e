package dto

import "time"

type InterviewResponse struct {
	RoomID      string    `json:"room_id"`
	Role        string    `json:"role"`
	ScheduledAt time.Time `json:"scheduled_at"`
}
