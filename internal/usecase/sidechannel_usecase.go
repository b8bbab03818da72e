package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/memory"
)

// sideChannelKinds - входящий тип -> исходящий тип
var sideChannelKinds = map[string]string{
	events.TypeTabSwitch: events.TypeCandidateTabSwitch,
}

// SideChannelUsecase рассылает внеполосные события комнаты. Ролями не
// интересуется, фильтрует клиент.
type SideChannelUsecase interface {
	Notify(ctx context.Context, from *runtime.Conn, roomID, kind string) error
}

type sideChannelUsecase struct {
	registry memory.RoomRegistry
	conns    memory.ConnectionRepository
}

func NewSideChannelUsecase(registry memory.RoomRegistry, conns memory.ConnectionRepository) SideChannelUsecase {
	return &sideChannelUsecase{
		registry: registry,
		conns:    conns,
	}
}

func (s *sideChannelUsecase) Notify(ctx context.Context, from *runtime.Conn, roomID, kind string) error {
	outKind, ok := sideChannelKinds[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}

	if !from.InRoom(roomID) {
		return ErrNotInRoom
	}

	frame, ok := encode(outKind, events.SideChannelEvent{RoomID: roomID, From: from.Identity})
	if !ok {
		return nil
	}

	fanOut(s.conns, outKind, frame, others(s.registry.Lookup(ctx, roomID), from.Handle))

	slog.Debug(
		"side-channel event",
		slog.String(constant.EventType, outKind),
		slog.String(constant.RoomID, roomID),
		slog.String(constant.Identity, from.Identity),
	)

	return nil
}
