package events

import (
	"encoding/json"
)

// Типы кадров. Направление указано относительно релея.
const (
	// client -> relay
	TypeJoinRoom  = "join-room"
	TypeLeaveRoom = "leave-room"
	TypeTabSwitch = "tab-switch"
	TypePing      = "ping"

	// relay -> client
	TypeWelcome            = "welcome"
	TypeUsersInRoom        = "users-in-room"
	TypeUserReady          = "user-ready"
	TypeUserLeft           = "user-left"
	TypeCandidateTabSwitch = "candidate-tab-switch"
	TypeNotification       = "notification"
	TypeError              = "error"
	TypePong               = "pong"

	// client <-> relay <-> client
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeChatMessage  = "chat-message"
)

// Message - общее событие
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinRoomEvent - вход в комнату. Identity, если указан, должен совпадать с субъектом токена.
type JoinRoomEvent struct {
	RoomID   string `json:"roomId"`
	Identity string `json:"identity,omitempty"`
	Role     string `json:"role,omitempty"`
}

type LeaveRoomEvent struct {
	RoomID string `json:"roomId"`
}

// Participant - участник комнаты в снимке users-in-room
type Participant struct {
	Identity      string `json:"identity"`
	SessionHandle string `json:"sessionHandle"`
	Role          string `json:"role,omitempty"`
}

type UsersInRoomEvent struct {
	RoomID string        `json:"roomId"`
	Users  []Participant `json:"users"`
}

type UserReadyEvent struct {
	RoomID        string `json:"roomId"`
	Identity      string `json:"identity"`
	SessionHandle string `json:"sessionHandle"`
	Role          string `json:"role,omitempty"`
}

type UserLeftEvent struct {
	RoomID        string `json:"roomId"`
	Identity      string `json:"identity"`
	SessionHandle string `json:"sessionHandle"`
}

// NegotiationEvent - offer, answer и ice-candidate.
// Клиент заполняет To, релей заменяет его на From/FromIdentity.
// SDP и Candidate релей не разбирает.
type NegotiationEvent struct {
	SDP          json.RawMessage `json:"sdp,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
	To           string          `json:"to,omitempty"`
	From         string          `json:"from,omitempty"`
	FromIdentity string          `json:"fromIdentity,omitempty"`
}

// ChatEvent - сообщение чата. SentAt в unix миллисекундах, проставляет релей.
type ChatEvent struct {
	RoomID     string `json:"roomId"`
	Text       string `json:"text"`
	From       string `json:"from,omitempty"`
	FromHandle string `json:"fromHandle,omitempty"`
	SentAt     int64  `json:"sentAt,omitempty"`
}

// SideChannelEvent - tab-switch от клиента и candidate-tab-switch от релея
type SideChannelEvent struct {
	RoomID string `json:"roomId"`
	From   string `json:"from,omitempty"`
}

type WelcomeEvent struct {
	SessionHandle string `json:"sessionHandle"`
	Identity      string `json:"identity"`
}

// NotificationEvent - персональное уведомление (например, о новом интервью)
type NotificationEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

type ErrorEvent struct {
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

type PingEvent struct{}
