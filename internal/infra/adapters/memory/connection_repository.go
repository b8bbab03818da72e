package memory

import (
	"sync"

	"github.com/qrave1/InterviewRoom/internal/application/metric"
	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
)

// ConnectionRepository интерфейс для работы с активными соединениями в памяти
type ConnectionRepository interface {
	Add(conn *runtime.Conn)
	Remove(handle string)

	Get(handle string) (*runtime.Conn, bool)
	ByIdentity(identity string) []*runtime.Conn

	// Send кладет кадр в очередь соединения. false - соединения нет или оно закрыто.
	Send(handle string, frame []byte) bool
	Count() int
}

type connectionRepository struct {
	// conns хранит map[session_handle]*runtime.Conn
	conns map[string]*runtime.Conn

	// byIdentity - индекс identity -> handle -> conn
	byIdentity map[string]map[string]*runtime.Conn

	mu sync.RWMutex
}

func NewConnectionRepository() ConnectionRepository {
	return &connectionRepository{
		conns:      make(map[string]*runtime.Conn, 10),
		byIdentity: make(map[string]map[string]*runtime.Conn, 10),
	}
}

func (r *connectionRepository) Add(conn *runtime.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn.Handle]; exists {
		return
	}

	r.conns[conn.Handle] = conn

	handles, ok := r.byIdentity[conn.Identity]
	if !ok {
		handles = make(map[string]*runtime.Conn, 1)
		r.byIdentity[conn.Identity] = handles
	}
	handles[conn.Handle] = conn

	// Увеличиваем счетчик активных WS соединений
	metric.IncrementWSActiveConnections()
}

func (r *connectionRepository) Remove(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[handle]
	if !exists {
		return
	}

	delete(r.conns, handle)

	if handles, ok := r.byIdentity[conn.Identity]; ok {
		delete(handles, handle)
		if len(handles) == 0 {
			delete(r.byIdentity, conn.Identity)
		}
	}

	// Уменьшаем счетчик активных WS соединений
	metric.DecrementWSActiveConnections()
}

func (r *connectionRepository) Get(handle string) (*runtime.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[handle]
	return conn, ok
}

func (r *connectionRepository) ByIdentity(identity string) []*runtime.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := r.byIdentity[identity]

	conns := make([]*runtime.Conn, 0, len(handles))
	for _, conn := range handles {
		conns = append(conns, conn)
	}

	return conns
}

func (r *connectionRepository) Send(handle string, frame []byte) bool {
	conn, ok := r.Get(handle)
	if !ok {
		return false
	}

	return conn.Enqueue(frame)
}

func (r *connectionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
