package usecase

import (
	"context"
	"log/slog"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/memory"
)

// NotifyUsecase доставляет персональные уведомления во все живые соединения identity
type NotifyUsecase interface {
	NotifyIdentity(ctx context.Context, identity string, n events.NotificationEvent) int
}

type notifyUsecase struct {
	conns memory.ConnectionRepository
}

func NewNotifyUsecase(conns memory.ConnectionRepository) NotifyUsecase {
	return &notifyUsecase{conns: conns}
}

func (u *notifyUsecase) NotifyIdentity(ctx context.Context, identity string, n events.NotificationEvent) int {
	delivered := 0

	for _, conn := range u.conns.ByIdentity(identity) {
		if enqueue(conn, events.TypeNotification, n) {
			delivered++
		}
	}

	slog.Info(
		"notification delivered",
		slog.String(constant.Identity, identity),
		slog.String("kind", n.Kind),
		slog.Int("connections", delivered),
	)

	return delivered
}
