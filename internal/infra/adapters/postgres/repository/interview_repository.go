package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/qrave1/InterviewRoom/internal/domain/models"
)

var ErrNotFound = errors.New("not found")

// InterviewRepository - чтение записей интервью. Созданием и расписанием
// занимается внешний сервис.
type InterviewRepository interface {
	GetByRoomID(ctx context.Context, roomID string) (*models.Interview, error)
	ListByParticipant(ctx context.Context, identity string) ([]*models.Interview, error)
}

type interviewRepo struct {
	db *sqlx.DB
}

func NewInterviewRepo(db *sqlx.DB) InterviewRepository {
	return &interviewRepo{db: db}
}

func (r *interviewRepo) GetByRoomID(ctx context.Context, roomID string) (*models.Interview, error) {
	var interview models.Interview

	err := r.db.GetContext(
		ctx,
		&interview,
		`SELECT id, room_id, interviewer_id, candidate_id, scheduled_at, created_at
		FROM interviews WHERE room_id = $1`,
		roomID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get interview by room: %w", err)
	}

	return &interview, nil
}

func (r *interviewRepo) ListByParticipant(ctx context.Context, identity string) ([]*models.Interview, error) {
	var interviews []*models.Interview

	query := `
		SELECT id, room_id, interviewer_id, candidate_id, scheduled_at, created_at
		FROM interviews
		WHERE interviewer_id = $1 OR candidate_id = $1
		ORDER BY scheduled_at
	`

	err := r.db.SelectContext(ctx, &interviews, query, identity)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}

	return interviews, nil
}
