package constant

// Ключи атрибутов slog
const (
	Error         = "error"
	Identity      = "identity"
	RoomID        = "room_id"
	SessionHandle = "session_handle"
	EventType     = "event_type"
	State         = "state"
	Role          = "role"
	Remote        = "remote"
)
