package runtime

import (
	"sort"
	"sync"

	"github.com/qrave1/InterviewRoom/internal/domain/models"
)

// Conn - живое websocket соединение участника, адресуемое по Handle.
// Исходящие кадры кладутся в очередь и пишутся отдельной горутиной,
// поэтому Enqueue никогда не блокирует реестр комнат.
type Conn struct {
	Handle   string
	Identity string

	send chan []byte

	mu     sync.Mutex
	closed bool
	rooms  map[string]models.Role
}

func NewConn(handle, identity string, queueSize int) *Conn {
	return &Conn{
		Handle:   handle,
		Identity: identity,
		send:     make(chan []byte, queueSize),
		rooms:    make(map[string]models.Role),
	}
}

// Outbound - очередь кадров для write pump. Закрывается в Close.
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

// Enqueue кладет кадр в очередь. Переполнение очереди означает медленного
// клиента: соединение закрывается, дальше срабатывает обычный disconnect.
func (c *Conn) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.closeLocked()
		return false
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Conn) closeLocked() {
	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
}

func (c *Conn) AddRoom(roomID string, role models.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rooms[roomID] = role
}

func (c *Conn) RemoveRoom(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.rooms[roomID]
	delete(c.rooms, roomID)

	return ok
}

func (c *Conn) InRoom(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.rooms[roomID]
	return ok
}

// Rooms возвращает комнаты соединения в стабильном порядке
func (c *Conn) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rooms := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	sort.Strings(rooms)

	return rooms
}
