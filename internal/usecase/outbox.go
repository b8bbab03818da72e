package usecase

import (
	"log/slog"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/application/metric"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/memory"
)

// encode собирает кадр; ошибка тут означает баг в типах payload
func encode(kind string, data any) ([]byte, bool) {
	frame, err := events.Encode(kind, data)
	if err != nil {
		slog.Error(
			"encode frame",
			slog.Any(constant.Error, err),
			slog.String(constant.EventType, kind),
		)
		return nil, false
	}

	return frame, true
}

func enqueue(conn *runtime.Conn, kind string, data any) bool {
	frame, ok := encode(kind, data)
	if !ok {
		return false
	}

	if !conn.Enqueue(frame) {
		metric.RecordDropped(metric.DropReasonQueueFull)
		return false
	}

	return true
}

// fanOut отправляет один и тот же кадр всем участникам
func fanOut(conns memory.ConnectionRepository, kind string, frame []byte, to []runtime.Occupancy) {
	for _, o := range to {
		if !conns.Send(o.Handle, frame) {
			metric.RecordDropped(metric.DropReasonDestinationGone)

			slog.Debug(
				"fan-out destination gone",
				slog.String(constant.EventType, kind),
				slog.String(constant.SessionHandle, o.Handle),
			)
		}
	}
}

// SendError отправляет кадр error. ref - тип кадра, который вызвал ошибку.
func SendError(conn *runtime.Conn, ref string, err error) {
	enqueue(conn, events.TypeError, events.ErrorEvent{Message: err.Error(), Ref: ref})
}

func participants(occs []runtime.Occupancy) []events.Participant {
	list := make([]events.Participant, 0, len(occs))
	for _, o := range occs {
		list = append(list, events.Participant{
			Identity:      o.Identity,
			SessionHandle: o.Handle,
			Role:          string(o.Role),
		})
	}

	return list
}
