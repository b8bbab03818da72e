package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/qrave1/InterviewRoom/internal/application/metric"
	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
)

// JoinHook вызывается под блокировкой комнаты после регистрации участника.
// others - остальные участники в порядке входа, replaced - вытесненная запись
// той же identity (повторный вход), если была.
type JoinHook func(others []runtime.Occupancy, replaced *runtime.Occupancy)

// LeaveHook вызывается под блокировкой комнаты после удаления участника.
type LeaveHook func(left runtime.Occupancy, remaining []runtime.Occupancy)

type RoomRegistry interface {
	// Join a room, creating it on first join. Returns the other occupants.
	Join(ctx context.Context, roomID string, occ runtime.Occupancy, hook JoinHook) []runtime.Occupancy

	// Leave a room. No-op when the handle no longer owns the identity's occupancy.
	Leave(ctx context.Context, roomID, identity, handle string, hook LeaveHook) (runtime.Occupancy, bool)

	// Lookup occupants of a room ordered by join time
	Lookup(ctx context.Context, roomID string) []runtime.Occupancy

	// Rooms returns snapshots of all live rooms
	Rooms(ctx context.Context) []runtime.RoomSnapshot
}

type room struct {
	mu sync.Mutex

	// closed выставляется, когда вышел последний участник и запись удалена из реестра
	closed    bool
	occupants []runtime.Occupancy
}

type roomRegistry struct {
	rooms map[string]*room
	mu    sync.RWMutex

	onClosed func(roomID string)
}

// NewRoomRegistry создает реестр комнат. onClosed вызывается после удаления
// пустой комнаты и может быть nil.
func NewRoomRegistry(onClosed func(roomID string)) RoomRegistry {
	return &roomRegistry{
		rooms:    make(map[string]*room),
		onClosed: onClosed,
	}
}

func (r *roomRegistry) Join(
	ctx context.Context,
	roomID string,
	occ runtime.Occupancy,
	hook JoinHook,
) []runtime.Occupancy {
	for {
		rm := r.getOrCreate(roomID)

		rm.mu.Lock()

		// комнату закрыли между getOrCreate и Lock, берем новую запись
		if rm.closed {
			rm.mu.Unlock()
			continue
		}

		var replaced *runtime.Occupancy
		if idx := rm.indexOf(occ.Identity); idx >= 0 {
			prev := rm.occupants[idx]
			replaced = &prev
			rm.occupants = slices.Delete(rm.occupants, idx, idx+1)
		}

		others := slices.Clone(rm.occupants)
		rm.occupants = append(rm.occupants, occ)

		if hook != nil {
			hook(others, replaced)
		}

		rm.mu.Unlock()

		return others
	}
}

func (r *roomRegistry) Leave(
	ctx context.Context,
	roomID, identity, handle string,
	hook LeaveHook,
) (runtime.Occupancy, bool) {
	rm, ok := r.get(roomID)
	if !ok {
		return runtime.Occupancy{}, false
	}

	rm.mu.Lock()

	if rm.closed {
		rm.mu.Unlock()
		return runtime.Occupancy{}, false
	}

	idx := rm.indexOf(identity)
	if idx < 0 || rm.occupants[idx].Handle != handle {
		rm.mu.Unlock()
		return runtime.Occupancy{}, false
	}

	left := rm.occupants[idx]
	rm.occupants = slices.Delete(rm.occupants, idx, idx+1)

	if hook != nil {
		hook(left, slices.Clone(rm.occupants))
	}

	empty := len(rm.occupants) == 0
	if empty {
		rm.closed = true

		r.mu.Lock()
		if r.rooms[roomID] == rm {
			delete(r.rooms, roomID)
		}
		r.mu.Unlock()

		metric.DecrementRoomsActive()
	}

	rm.mu.Unlock()

	if empty && r.onClosed != nil {
		r.onClosed(roomID)
	}

	return left, true
}

func (r *roomRegistry) Lookup(ctx context.Context, roomID string) []runtime.Occupancy {
	rm, ok := r.get(roomID)
	if !ok {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	return slices.Clone(rm.occupants)
}

func (r *roomRegistry) Rooms(ctx context.Context) []runtime.RoomSnapshot {
	r.mu.RLock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)

	snapshots := make([]runtime.RoomSnapshot, 0, len(ids))
	for _, id := range ids {
		occupants := r.Lookup(ctx, id)
		if len(occupants) == 0 {
			continue
		}

		snapshots = append(snapshots, runtime.RoomSnapshot{RoomID: id, Occupants: occupants})
	}

	return snapshots
}

func (r *roomRegistry) get(roomID string) (*room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	return rm, ok
}

func (r *roomRegistry) getOrCreate(roomID string) *room {
	if rm, ok := r.get(roomID); ok {
		return rm
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok := r.rooms[roomID]; ok {
		return rm
	}

	rm := &room{}
	r.rooms[roomID] = rm

	metric.IncrementRoomsActive()

	return rm
}

func (rm *room) indexOf(identity string) int {
	return slices.IndexFunc(rm.occupants, func(o runtime.Occupancy) bool {
		return o.Identity == identity
	})
}
