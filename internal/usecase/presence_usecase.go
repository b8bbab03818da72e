package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/memory"
)

type PresenceUsecase interface {
	HandleJoin(ctx context.Context, conn *runtime.Conn, ev events.JoinRoomEvent) error
	HandleLeave(ctx context.Context, conn *runtime.Conn, ev events.LeaveRoomEvent) error

	// HandleDisconnect - обрыв транспорта, равносилен leave из всех комнат соединения
	HandleDisconnect(ctx context.Context, conn *runtime.Conn)

	Lookup(ctx context.Context, roomID string) []runtime.Occupancy
	Rooms(ctx context.Context) []runtime.RoomSnapshot
}

type presenceUsecase struct {
	access RoomAccess

	registry memory.RoomRegistry
	conns    memory.ConnectionRepository

	now func() time.Time
}

func NewPresenceUsecase(
	access RoomAccess,
	registry memory.RoomRegistry,
	conns memory.ConnectionRepository,
) PresenceUsecase {
	return &presenceUsecase{
		access:   access,
		registry: registry,
		conns:    conns,
		now:      time.Now,
	}
}

func (p *presenceUsecase) HandleJoin(ctx context.Context, conn *runtime.Conn, ev events.JoinRoomEvent) error {
	if ev.Identity != "" && ev.Identity != conn.Identity {
		return ErrIdentityMismatch
	}

	role, err := p.access.Authorize(ctx, ev.RoomID, conn.Identity, ev.Role)
	if err != nil {
		return fmt.Errorf("authorize join: %w", err)
	}

	occ := runtime.Occupancy{
		Identity: conn.Identity,
		Handle:   conn.Handle,
		Role:     role,
		JoinedAt: p.now(),
	}

	// Уведомления ставятся в очереди под блокировкой комнаты,
	// поэтому порядок доставки совпадает с порядком в реестре
	p.registry.Join(ctx, ev.RoomID, occ, func(others []runtime.Occupancy, replaced *runtime.Occupancy) {
		conn.AddRoom(ev.RoomID, role)

		if replaced != nil && replaced.Handle != conn.Handle {
			p.evictReplaced(ev.RoomID, *replaced, others)
		}

		enqueue(conn, events.TypeUsersInRoom, events.UsersInRoomEvent{
			RoomID: ev.RoomID,
			Users:  participants(others),
		})

		frame, ok := encode(events.TypeUserReady, events.UserReadyEvent{
			RoomID:        ev.RoomID,
			Identity:      occ.Identity,
			SessionHandle: occ.Handle,
			Role:          string(occ.Role),
		})
		if ok {
			fanOut(p.conns, events.TypeUserReady, frame, others)
		}
	})

	slog.Info(
		"joined room",
		slog.String(constant.RoomID, ev.RoomID),
		slog.String(constant.Identity, conn.Identity),
		slog.String(constant.SessionHandle, conn.Handle),
		slog.String(constant.Role, string(role)),
	)

	return nil
}

// evictReplaced отвязывает комнату от старого соединения той же identity и
// сообщает остальным, что прежний handle больше не действителен
func (p *presenceUsecase) evictReplaced(roomID string, replaced runtime.Occupancy, others []runtime.Occupancy) {
	if old, ok := p.conns.Get(replaced.Handle); ok {
		old.RemoveRoom(roomID)
	}

	frame, ok := encode(events.TypeUserLeft, events.UserLeftEvent{
		RoomID:        roomID,
		Identity:      replaced.Identity,
		SessionHandle: replaced.Handle,
	})
	if ok {
		fanOut(p.conns, events.TypeUserLeft, frame, others)
	}

	slog.Info(
		"occupancy replaced by rejoin",
		slog.String(constant.RoomID, roomID),
		slog.String(constant.Identity, replaced.Identity),
		slog.String(constant.SessionHandle, replaced.Handle),
	)
}

func (p *presenceUsecase) HandleLeave(ctx context.Context, conn *runtime.Conn, ev events.LeaveRoomEvent) error {
	if !conn.RemoveRoom(ev.RoomID) {
		return nil
	}

	p.leave(ctx, conn, ev.RoomID)

	return nil
}

func (p *presenceUsecase) HandleDisconnect(ctx context.Context, conn *runtime.Conn) {
	for _, roomID := range conn.Rooms() {
		if conn.RemoveRoom(roomID) {
			p.leave(ctx, conn, roomID)
		}
	}
}

func (p *presenceUsecase) leave(ctx context.Context, conn *runtime.Conn, roomID string) {
	_, ok := p.registry.Leave(ctx, roomID, conn.Identity, conn.Handle, func(left runtime.Occupancy, remaining []runtime.Occupancy) {
		frame, ok := encode(events.TypeUserLeft, events.UserLeftEvent{
			RoomID:        roomID,
			Identity:      left.Identity,
			SessionHandle: left.Handle,
		})
		if ok {
			fanOut(p.conns, events.TypeUserLeft, frame, remaining)
		}
	})
	if !ok {
		return
	}

	slog.Info(
		"left room",
		slog.String(constant.RoomID, roomID),
		slog.String(constant.Identity, conn.Identity),
		slog.String(constant.SessionHandle, conn.Handle),
	)
}

func (p *presenceUsecase) Lookup(ctx context.Context, roomID string) []runtime.Occupancy {
	return p.registry.Lookup(ctx, roomID)
}

func (p *presenceUsecase) Rooms(ctx context.Context) []runtime.RoomSnapshot {
	return p.registry.Rooms(ctx)
}
