package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/application/metric"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/memory"
)

type RelayUsecase interface {
	// Forward пересылает offer, answer или ice-candidate на handle ev.To.
	// Если адресата нет, сообщение молча отбрасывается.
	Forward(ctx context.Context, from *runtime.Conn, kind string, ev events.NegotiationEvent)

	// Chat рассылает сообщение остальным участникам комнаты
	Chat(ctx context.Context, from *runtime.Conn, ev events.ChatEvent) error
}

type relayUsecase struct {
	registry memory.RoomRegistry
	conns    memory.ConnectionRepository

	now func() time.Time
}

func NewRelayUsecase(registry memory.RoomRegistry, conns memory.ConnectionRepository) RelayUsecase {
	return &relayUsecase{
		registry: registry,
		conns:    conns,
		now:      time.Now,
	}
}

func (r *relayUsecase) Forward(ctx context.Context, from *runtime.Conn, kind string, ev events.NegotiationEvent) {
	dst, ok := r.conns.Get(ev.To)
	if !ok {
		r.drop(metric.DropReasonDestinationGone, kind, from, ev.To)
		return
	}

	if !sharesRoom(from, dst) {
		r.drop(metric.DropReasonForeignDestination, kind, from, ev.To)
		return
	}

	frame, ok := encode(kind, events.NegotiationEvent{
		SDP:          ev.SDP,
		Candidate:    ev.Candidate,
		From:         from.Handle,
		FromIdentity: from.Identity,
	})
	if !ok {
		return
	}

	if !dst.Enqueue(frame) {
		r.drop(metric.DropReasonDestinationGone, kind, from, ev.To)
	}
}

func (r *relayUsecase) drop(reason, kind string, from *runtime.Conn, to string) {
	metric.RecordDropped(reason)

	slog.Debug(
		"negotiation message dropped",
		slog.String("reason", reason),
		slog.String(constant.EventType, kind),
		slog.String(constant.SessionHandle, from.Handle),
		slog.String(constant.Remote, to),
	)
}

func (r *relayUsecase) Chat(ctx context.Context, from *runtime.Conn, ev events.ChatEvent) error {
	if !from.InRoom(ev.RoomID) {
		return ErrNotInRoom
	}

	frame, ok := encode(events.TypeChatMessage, events.ChatEvent{
		RoomID:     ev.RoomID,
		Text:       ev.Text,
		From:       from.Identity,
		FromHandle: from.Handle,
		SentAt:     r.now().UnixMilli(),
	})
	if !ok {
		return nil
	}

	fanOut(r.conns, events.TypeChatMessage, frame, others(r.registry.Lookup(ctx, ev.RoomID), from.Handle))

	return nil
}

func sharesRoom(a, b *runtime.Conn) bool {
	for _, roomID := range a.Rooms() {
		if b.InRoom(roomID) {
			return true
		}
	}

	return false
}

func others(occs []runtime.Occupancy, handle string) []runtime.Occupancy {
	out := make([]runtime.Occupancy, 0, len(occs))
	for _, o := range occs {
		if o.Handle != handle {
			out = append(out, o)
		}
	}

	return out
}
