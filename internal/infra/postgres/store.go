package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"dopamine-dashboard/internal/domain"
)

// Store implements the app repositories on PostgreSQL through bun.
type Store struct {
	db *bun.DB
}

// Open connects bun to dsn.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	if _, err := s.db.NewInsert().Model(newUserRow(user)).Exec(ctx); err != nil {
		return mapWriteErr(err, "create user")
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.findUser(ctx, "u.id = ?", userID)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findUser(ctx, "u.email = ?", email)
}

func (s *Store) FindUserByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	if googleID == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.findUser(ctx, "u.google_id = ?", googleID)
}

func (s *Store) findUser(ctx context.Context, where string, arg interface{}) (domain.User, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	res, err := s.db.NewUpdate().Model(newUserRow(user)).WherePK().Exec(ctx)
	if err != nil {
		return mapWriteErr(err, "update user")
	}
	return requireRow(res, domain.ErrUserNotFound)
}

func (s *Store) CountUsersByRole(ctx context.Context, role string) (int, error) {
	n, err := s.db.NewSelect().Model((*userRow)(nil)).Where("role = ?", role).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *Store) CreateMeet(ctx context.Context, meet domain.Meet) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(newMeetRow(meet)).Exec(ctx); err != nil {
			return mapWriteErr(err, "create meet")
		}
		return insertQuestions(ctx, tx, meet.Questions)
	})
}

func (s *Store) ListMeets(ctx context.Context, status string) ([]domain.Meet, error) {
	var rows []*meetRow
	q := s.db.NewSelect().Model(&rows).
		Relation("Questions", orderQuestions).
		OrderExpr("m.scheduled_at DESC").
		OrderExpr("m.id ASC")
	if status != "" {
		q = q.Where("m.status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list meets: %w", err)
	}
	out := make([]domain.Meet, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// LoadMeet implements app.MeetLoader through bun. The pgx MeetLoader is the
// production read path; this one serves bun-only deployments and tests.
func (s *Store) LoadMeet(ctx context.Context, meetID string) (domain.Meet, error) {
	row := new(meetRow)
	err := s.db.NewSelect().Model(row).
		Relation("Questions", orderQuestions).
		Where("m.id = ?", meetID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Meet{}, domain.ErrMeetNotFound
	}
	if err != nil {
		return domain.Meet{}, fmt.Errorf("load meet: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateMeetStatus(ctx context.Context, meetID, status string) error {
	res, err := s.db.NewUpdate().Model((*meetRow)(nil)).
		Set("status = ?", status).
		Where("id = ?", meetID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update meet status: %w", err)
	}
	return requireRow(res, domain.ErrMeetNotFound)
}

func (s *Store) DeleteMeet(ctx context.Context, meetID string) error {
	res, err := s.db.NewDelete().Model((*meetRow)(nil)).Where("id = ?", meetID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete meet: %w", err)
	}
	return requireRow(res, domain.ErrMeetNotFound)
}

func (s *Store) AddQuestions(ctx context.Context, meetID string, questions []domain.Question) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*meetRow)(nil)).Where("id = ?", meetID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("check meet: %w", err)
		}
		if !exists {
			return domain.ErrMeetNotFound
		}
		return insertQuestions(ctx, tx, questions)
	})
}

func (s *Store) RemoveQuestion(ctx context.Context, meetID, questionID string) error {
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).
		Where("id = ?", questionID).
		Where("meet_id = ?", meetID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove question: %w", err)
	}
	if err := requireRow(res, domain.ErrQuestionNotFound); err != nil {
		if ok, _ := s.db.NewSelect().Model((*meetRow)(nil)).Where("id = ?", meetID).Exists(ctx); !ok {
			return domain.ErrMeetNotFound
		}
		return err
	}
	return nil
}

func (s *Store) FindQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	row := new(questionRow)
	err := s.db.NewSelect().Model(row).Where("q.id = ?", questionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AddParticipant(ctx context.Context, meetID, userID string) error {
	res, err := s.db.NewUpdate().Model((*meetRow)(nil)).
		Set("participants = array_append(participants, ?)", userID).
		Where("id = ?", meetID).
		Where("NOT (? = ANY(participants))", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	exists, err := s.db.NewSelect().Model((*meetRow)(nil)).Where("id = ?", meetID).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check meet: %w", err)
	}
	if !exists {
		return domain.ErrMeetNotFound
	}
	return nil
}

func (s *Store) CountQuestions(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*questionRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (s *Store) CountMeetsByStatus(ctx context.Context, status string) (int, error) {
	n, err := s.db.NewSelect().Model((*meetRow)(nil)).Where("status = ?", status).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count meets: %w", err)
	}
	return n, nil
}

func (s *Store) GetAttempt(ctx context.Context, meetID, userID string) (domain.Attempt, error) {
	row := new(attemptRow)
	err := s.db.NewSelect().Model(row).
		Where("a.meet_id = ?", meetID).
		Where("a.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) SaveAttempt(ctx context.Context, attempt domain.Attempt) error {
	_, err := s.db.NewInsert().Model(newAttemptRow(attempt)).
		On("CONFLICT (meet_id, user_id) DO UPDATE").
		Set("answers = EXCLUDED.answers").
		Set("pending = EXCLUDED.pending").
		Set("score = EXCLUDED.score").
		Set("correct_answers = EXCLUDED.correct_answers").
		Set("total_questions = EXCLUDED.total_questions").
		Set("time_taken = EXCLUDED.time_taken").
		Set("completed = EXCLUDED.completed").
		Set("completed_at = EXCLUDED.completed_at").
		Exec(ctx)
	if err != nil {
		return mapWriteErr(err, "save attempt")
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, meetID string) ([]domain.LeaderboardEntry, error) {
	return s.listEntries(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("le.meet_id = ?", meetID)
	})
}

func (s *Store) ListSubmittedEntries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	return s.listEntries(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("le.submitted")
	})
}

func (s *Store) listEntries(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.LeaderboardEntry, error) {
	var rows []*entryRow
	if err := filter(s.db.NewSelect().Model(&rows)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list leaderboard entries: %w", err)
	}
	out := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// SaveEntry upserts entry. An existing row is only replaced by a better submitted result.
func (s *Store) SaveEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	_, err := s.db.NewInsert().Model(newEntryRow(entry)).
		On("CONFLICT (meet_id, user_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("score = EXCLUDED.score").
		Set("time_taken = EXCLUDED.time_taken").
		Set("correct_answers = EXCLUDED.correct_answers").
		Set("total_questions = EXCLUDED.total_questions").
		Set("submitted = EXCLUDED.submitted").
		Set("submitted_at = EXCLUDED.submitted_at").
		// best result wins even if a writer lost its lock
		Where("EXCLUDED.submitted AND (NOT le.submitted OR EXCLUDED.score > le.score OR " +
			"(EXCLUDED.score = le.score AND EXCLUDED.time_taken < le.time_taken))").
		Exec(ctx)
	if err != nil {
		return mapWriteErr(err, "save leaderboard entry")
	}
	return nil
}

func (s *Store) GetStat(ctx context.Context, userID string) (domain.Stat, error) {
	row := new(statRow)
	err := s.db.NewSelect().Model(row).Where("s.user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stat{}, domain.ErrStatNotFound
	}
	if err != nil {
		return domain.Stat{}, fmt.Errorf("load stat: %w", err)
	}
	return row.toDomain(), nil
}

// SaveStat inserts version 1 or updates the row whose version matches stat.Version.
func (s *Store) SaveStat(ctx context.Context, stat domain.Stat) (domain.Stat, error) {
	row := newStatRow(stat)
	expected := row.Version
	row.Version = expected + 1

	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.db.NewInsert().Model(row).On("CONFLICT (user_id) DO NOTHING").Exec(ctx)
	} else {
		res, err = s.db.NewUpdate().Model(row).WherePK().Where("version = ?", expected).Exec(ctx)
	}
	if err != nil {
		return domain.Stat{}, mapWriteErr(err, "save stat")
	}
	if err := requireRow(res, domain.ErrConflict); err != nil {
		return domain.Stat{}, err
	}
	return row.toDomain(), nil
}

func insertQuestions(ctx context.Context, tx bun.Tx, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	rows := make([]*questionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, newQuestionRow(q))
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return mapWriteErr(err, "insert questions")
	}
	return nil
}

func orderQuestions(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("position ASC")
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// mapWriteErr turns integrity violations into domain.ErrConflict.
func mapWriteErr(err error, op string) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
		if pgErr.Field('C') == "23503" {
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
