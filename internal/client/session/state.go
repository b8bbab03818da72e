package session

// State - состояние звонка на стороне клиента
type State int32

const (
	// Idle - в комнате никого нет или ожидание истекло
	Idle State = iota
	// AwaitingPeer - собеседник в комнате, звонок ещё не начат
	AwaitingPeer
	// Negotiating - идёт обмен offer/answer и кандидатами
	Negotiating
	// Connected - медиа-транспорт установлен
	Connected
	// PeerLeft - собеседник ушёл, соединение сорвалось или звонок завершён
	PeerLeft
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingPeer:
		return "awaiting-peer"
	case Negotiating:
		return "negotiating"
	case Connected:
		return "connected"
	case PeerLeft:
		return "peer-left"
	default:
		return "unknown"
	}
}
