package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/dto"
	"github.com/qrave1/InterviewRoom/internal/usecase"
)

type NotifyHandler struct {
	notifyUsecase usecase.NotifyUsecase
}

func NewNotifyHandler(notifyUsecase usecase.NotifyUsecase) *NotifyHandler {
	return &NotifyHandler{notifyUsecase: notifyUsecase}
}

// Notify - внешний сервис интервью сообщает пользователю о новом событии
func (h *NotifyHandler) Notify(c echo.Context) error {
	var req dto.NotifyRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if req.Identity == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "identity and message are required"})
	}

	if req.Kind == "" {
		req.Kind = "new-interview"
	}

	delivered := h.notifyUsecase.NotifyIdentity(c.Request().Context(), req.Identity, events.NotificationEvent{
		Kind:    req.Kind,
		Message: req.Message,
		Link:    req.Link,
	})

	return c.JSON(http.StatusOK, dto.NotifyResponse{Delivered: delivered})
}
