package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/qrave1/InterviewRoom/internal/domain/models"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/postgres/repository"
)

// RoomAccess решает, может ли identity войти в комнату, и возвращает ее роль
type RoomAccess interface {
	Authorize(ctx context.Context, roomID, identity, requestedRole string) (models.Role, error)
}

type interviewRoomAccess struct {
	interviewRepo repository.InterviewRepository
}

// NewInterviewRoomAccess пускает в комнату только интервьюера и кандидата
// интервью с этим room_id. Роль берется из записи, а не из кадра.
func NewInterviewRoomAccess(interviewRepo repository.InterviewRepository) RoomAccess {
	return &interviewRoomAccess{interviewRepo: interviewRepo}
}

func (a *interviewRoomAccess) Authorize(ctx context.Context, roomID, identity, _ string) (models.Role, error) {
	interview, err := a.interviewRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: no interview for room %q", ErrAccessDenied, roomID)
		}

		return "", fmt.Errorf("get interview: %w", err)
	}

	role, ok := interview.RoleOf(identity)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a participant", ErrAccessDenied, identity)
	}

	return role, nil
}

type openRoomAccess struct{}

// NewOpenRoomAccess пускает всех, роль берется из кадра join-room
func NewOpenRoomAccess() RoomAccess {
	return openRoomAccess{}
}

func (openRoomAccess) Authorize(_ context.Context, _, _, requestedRole string) (models.Role, error) {
	role, err := models.ParseRole(requestedRole)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	return role, nil
}
