package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dopamine-dashboard/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// MeetLoader loads a meet and its questions from Postgres.
type MeetLoader struct {
	pool *pgxpool.Pool
}

func NewMeetLoader(pool *pgxpool.Pool) *MeetLoader {
	return &MeetLoader{pool: pool}
}

func (l *MeetLoader) LoadMeet(ctx context.Context, meetID string) (domain.Meet, error) {
	var m domain.Meet
	err := l.pool.QueryRow(ctx, `
SELECT id, title, description, category, difficulty, transcript, scheduled_at,
       duration_minutes, status, participants, created_by, created_at
FROM meets WHERE id=$1`, meetID).Scan(
		&m.ID, &m.Title, &m.Description, &m.Category, &m.Difficulty, &m.Transcript, &m.ScheduledAt,
		&m.DurationMinutes, &m.Status, &m.Participants, &m.CreatedBy, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Meet{}, domain.ErrMeetNotFound
	}
	if err != nil {
		return domain.Meet{}, fmt.Errorf("load meet: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
SELECT id, meet_id, position, text, options, correct_index, points, time_limit_seconds
FROM questions WHERE meet_id=$1 ORDER BY position`, meetID)
	if err != nil {
		return domain.Meet{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	m.Questions = []domain.Question{}
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.MeetID, &q.Position, &q.Text, &raw, &q.CorrectIndex, &q.Points, &q.TimeLimitSeconds); err != nil {
			return domain.Meet{}, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return domain.Meet{}, fmt.Errorf("unmarshal question options: %w", err)
		}
		m.Questions = append(m.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Meet{}, fmt.Errorf("load questions: %w", err)
	}
	if m.Participants == nil {
		m.Participants = []string{}
	}
	return m, nil
}
