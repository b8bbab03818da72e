package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxChatTextLength - максимальная длина текста чата в символах
const MaxChatTextLength = 4000

var ErrInvalidFrame = errors.New("invalid frame")

type validator interface {
	validate() error
}

// schema maps each frame type to a constructor of its payload.
var schema = map[string]func() validator{
	TypeJoinRoom:           func() validator { return &JoinRoomEvent{} },
	TypeLeaveRoom:          func() validator { return &LeaveRoomEvent{} },
	TypeTabSwitch:          func() validator { return &SideChannelEvent{} },
	TypeCandidateTabSwitch: func() validator { return &SideChannelEvent{} },
	TypePing:               func() validator { return &PingEvent{} },
	TypePong:               func() validator { return &PingEvent{} },
	TypeWelcome:            func() validator { return &WelcomeEvent{} },
	TypeUsersInRoom:        func() validator { return &UsersInRoomEvent{} },
	TypeUserReady:          func() validator { return &UserReadyEvent{} },
	TypeUserLeft:           func() validator { return &UserLeftEvent{} },
	TypeNotification:       func() validator { return &NotificationEvent{} },
	TypeError:              func() validator { return &ErrorEvent{} },
	TypeOffer:              func() validator { return &sdpEvent{} },
	TypeAnswer:             func() validator { return &sdpEvent{} },
	TypeICECandidate:       func() validator { return &candidateEvent{} },
	TypeChatMessage:        func() validator { return &ChatEvent{} },
}

// Decode разбирает кадр и проверяет схему payload для его типа.
// Все ошибки оборачивают ErrInvalidFrame.
func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	newPayload, ok := schema[msg.Type]
	if !ok {
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrInvalidFrame, msg.Type)
	}

	if isEmpty(msg.Data) {
		msg.Data = json.RawMessage("{}")
	}

	payload := newPayload()
	if err := json.Unmarshal(msg.Data, payload); err != nil {
		return Message{}, fmt.Errorf("%w: %s: %v", ErrInvalidFrame, msg.Type, err)
	}

	if err := payload.validate(); err != nil {
		return Message{}, fmt.Errorf("%w: %s: %v", ErrInvalidFrame, msg.Type, err)
	}

	return msg, nil
}

// DecodeData разбирает payload уже проверенного сообщения
func DecodeData[T any](msg Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s data: %w", msg.Type, err)
	}

	return v, nil
}

// Encode собирает кадр с типом и payload
func Encode(kind string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", kind, err)
	}

	frame, err := json.Marshal(Message{Type: kind, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", kind, err)
	}

	return frame, nil
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

// sdpEvent и candidateEvent проверяют NegotiationEvent для конкретного типа
type sdpEvent struct{ NegotiationEvent }

type candidateEvent struct{ NegotiationEvent }

func (e *sdpEvent) validate() error {
	if isEmpty(e.SDP) {
		return errors.New("sdp is required")
	}
	return e.validateAddress()
}

func (e *candidateEvent) validate() error {
	if isEmpty(e.Candidate) {
		return errors.New("candidate is required")
	}
	return e.validateAddress()
}

// Кадр от клиента адресован через to, кадр от релея подписан from
func (e *NegotiationEvent) validateAddress() error {
	if e.To == "" && e.From == "" {
		return errors.New("to is required")
	}
	return nil
}

func (e *JoinRoomEvent) validate() error { return required("roomId", e.RoomID) }

func (e *LeaveRoomEvent) validate() error { return required("roomId", e.RoomID) }

func (e *SideChannelEvent) validate() error { return required("roomId", e.RoomID) }

func (e *PingEvent) validate() error { return nil }

func (e *WelcomeEvent) validate() error { return required("sessionHandle", e.SessionHandle) }

func (e *UsersInRoomEvent) validate() error {
	if err := required("roomId", e.RoomID); err != nil {
		return err
	}
	for _, u := range e.Users {
		if u.Identity == "" || u.SessionHandle == "" {
			return errors.New("users entries need identity and sessionHandle")
		}
	}
	return nil
}

func (e *UserReadyEvent) validate() error {
	if err := required("identity", e.Identity); err != nil {
		return err
	}
	return required("sessionHandle", e.SessionHandle)
}

func (e *UserLeftEvent) validate() error { return required("sessionHandle", e.SessionHandle) }

func (e *NotificationEvent) validate() error { return required("message", e.Message) }

func (e *ErrorEvent) validate() error { return required("message", e.Message) }

func (e *ChatEvent) validate() error {
	if err := required("roomId", e.RoomID); err != nil {
		return err
	}
	if err := required("text", e.Text); err != nil {
		return err
	}
	if !utf8.ValidString(e.Text) {
		return errors.New("text is not valid utf-8")
	}
	if n := utf8.RuneCountInString(e.Text); n > MaxChatTextLength {
		return fmt.Errorf("text is too long: %d > %d", n, MaxChatTextLength)
	}
	return nil
}
