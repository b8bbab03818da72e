package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/postgres/repository"
	"github.com/qrave1/InterviewRoom/internal/infra/appctx"
	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/dto"
	"github.com/qrave1/InterviewRoom/internal/usecase"
)

type RoomHandler struct {
	presenceUsecase usecase.PresenceUsecase

	// interviewRepo может быть nil в режиме ROOM_ACCESS=open
	interviewRepo repository.InterviewRepository
}

func NewRoomHandler(presenceUsecase usecase.PresenceUsecase, interviewRepo repository.InterviewRepository) *RoomHandler {
	return &RoomHandler{
		presenceUsecase: presenceUsecase,
		interviewRepo:   interviewRepo,
	}
}

func (h *RoomHandler) ListRooms(c echo.Context) error {
	snapshots := h.presenceUsecase.Rooms(c.Request().Context())

	resp := dto.RoomsResponse{Rooms: make([]dto.RoomResponse, 0, len(snapshots))}
	for _, s := range snapshots {
		resp.Rooms = append(resp.Rooms, dto.NewRoomResponse(s.RoomID, s.Occupants))
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *RoomHandler) GetRoom(c echo.Context) error {
	roomID := c.Param("id")

	occs := h.presenceUsecase.Lookup(c.Request().Context(), roomID)
	if len(occs) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "room not found"})
	}

	return c.JSON(http.StatusOK, dto.NewRoomResponse(roomID, occs))
}

// ListMyInterviews - комнаты, в которые пользователь может войти
func (h *RoomHandler) ListMyInterviews(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}

	if h.interviewRepo == nil {
		return c.JSON(http.StatusOK, []dto.InterviewResponse{})
	}

	interviews, err := h.interviewRepo.ListByParticipant(c.Request().Context(), identity)
	if err != nil {
		slog.Error("list interviews", slog.Any(constant.Error, err), slog.String(constant.Identity, identity))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	resp := make([]dto.InterviewResponse, 0, len(interviews))
	for _, iv := range interviews {
		role, _ := iv.RoleOf(identity)
		resp = append(resp, dto.InterviewResponse{
			RoomID:      iv.RoomID,
			Role:        string(role),
			ScheduledAt: iv.ScheduledAt,
		})
	}

	return c.JSON(http.StatusOK, resp)
}
