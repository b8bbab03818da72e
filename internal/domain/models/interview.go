package models

import (
	"time"
)

// Interview - запись об интервью. Комната звонка определяется RoomID.
type Interview struct {
	ID            string    `json:"id" db:"id"`
	RoomID        string    `json:"room_id" db:"room_id"`
	InterviewerID string    `json:"interviewer_id" db:"interviewer_id"`
	CandidateID   string    `json:"candidate_id" db:"candidate_id"`
	ScheduledAt   time.Time `json:"scheduled_at" db:"scheduled_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// RoleOf возвращает роль участника интервью
func (i *Interview) RoleOf(identity string) (Role, bool) {
	switch identity {
	case i.InterviewerID:
		return RoleInterviewer, true
	case i.CandidateID:
		return RoleCandidate, true
	default:
		return "", false
	}
}
