package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"dopamine-dashboard/internal/domain"
	"dopamine-dashboard/internal/leaderboard"
	"dopamine-dashboard/internal/scoring"
	"dopamine-dashboard/internal/stats"
)

const (
	// DefaultCumulativeLimit applies when no limit is requested.
	DefaultCumulativeLimit = 50
	maxCumulativeLimit     = 500
	evaluateTop            = 10
	statSaveAttempts       = 3
)

// SubmissionResult is returned after a full attempt is scored.
type SubmissionResult struct {
	Result      scoring.Result     `json:"result"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
	Stat        domain.Stat        `json:"stat"`
}

// EvaluationResult is a dry-run score with the current top of the leaderboard.
type EvaluationResult struct {
	Result      scoring.Result            `json:"result"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// StatView is a user's stat together with its dashboard overview.
type StatView struct {
	Stat     domain.Stat    `json:"stat"`
	Overview stats.Overview `json:"overview"`
}

// AnswerInput is a single answer recorded while a meet is in progress. When MeetID
// is set the question must belong to that meet.
type AnswerInput struct {
	MeetID         string  `json:"meetId,omitempty"`
	QuestionID     string  `json:"questionId" validate:"required"`
	SelectedOption int     `json:"selectedAnswer"`
	TimeTaken      float64 `json:"timeTaken" validate:"gte=0"`
}

// SubmissionService scores attempts and keeps leaderboards and stats in step.
type SubmissionService struct {
	deps   Deps
	policy scoring.Policy
}

func NewSubmissionService(deps Deps, policy scoring.Policy) *SubmissionService {
	return &SubmissionService{deps: deps.withDefaults(), policy: policy}
}

// SubmitAttempt scores a full attempt for user. An empty answers list finalizes the
// answers recorded one by one through RecordAnswer.
func (s *SubmissionService) SubmitAttempt(ctx context.Context, meetID string, user domain.User, answers []domain.AnswerSubmission) (SubmissionResult, error) {
	meet, err := s.deps.Cache.GetMeet(ctx, meetID)
	if err != nil {
		return SubmissionResult{}, err
	}

	res, lb, changed, err := s.scoreAndRank(ctx, meet, user, answers)
	if err != nil {
		return SubmissionResult{}, err
	}
	if changed {
		if err := s.deps.Feeds.Broadcast(ctx, lb); err != nil {
			log.Printf("broadcast leaderboard %s: %v", meetID, err)
		}
	}

	stat, err := s.applyStat(ctx, user.ID, domain.AttemptSummary{
		MeetID:         meetID,
		Category:       meet.Category,
		TotalQuestions: res.TotalQuestions,
		CorrectAnswers: res.CorrectAnswers,
		TotalScore:     res.TotalScore,
		TimeTaken:      res.TimeTaken,
	})
	if err != nil {
		return SubmissionResult{}, err
	}
	return SubmissionResult{Result: res, Leaderboard: lb, Stat: stat}, nil
}

// scoreAndRank runs under the meet lock: it updates the attempt and merges the
// result into the leaderboard.
func (s *SubmissionService) scoreAndRank(ctx context.Context, meet domain.Meet, user domain.User, answers []domain.AnswerSubmission) (scoring.Result, domain.Leaderboard, bool, error) {
	unlock, err := s.deps.Locker.Lock(ctx, meetLockKey(meet.ID))
	if err != nil {
		return scoring.Result{}, domain.Leaderboard{}, false, err
	}
	defer unlock()

	if !meet.HasParticipant(user.ID) {
		if err := s.deps.Meets.AddParticipant(ctx, meet.ID, user.ID); err != nil {
			return scoring.Result{}, domain.Leaderboard{}, false, err
		}
		if err := s.deps.Cache.Invalidate(ctx, meet.ID); err != nil {
			log.Printf("invalidate meet %s: %v", meet.ID, err)
		}
	}

	attempt, err := s.deps.Attempts.GetAttempt(ctx, meet.ID, user.ID)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		attempt = newAttempt(s.deps, meet.ID, user.ID, len(meet.Questions))
	} else if err != nil {
		return scoring.Result{}, domain.Leaderboard{}, false, err
	}

	if len(answers) == 0 {
		if len(attempt.Pending) == 0 && len(meet.Questions) > 0 {
			return scoring.Result{}, domain.Leaderboard{}, false, domain.NewValidationError("no answers to submit",
				domain.FieldError{Field: "answers", Message: "is required"})
		}
		answers = pendingSubmissions(meet, attempt.Pending)
	}

	now := s.deps.now()
	res, err := scoring.Evaluate(meet.Questions, answers, s.policy, now)
	if err != nil {
		return scoring.Result{}, domain.Leaderboard{}, false, err
	}

	if !attempt.Completed || res.TotalScore > attempt.Score ||
		(res.TotalScore == attempt.Score && res.TimeTaken < attempt.TimeTaken) {
		attempt.Answers = res.Answers
		attempt.Score = res.TotalScore
		attempt.CorrectAnswers = res.CorrectAnswers
		attempt.TotalQuestions = res.TotalQuestions
		attempt.TimeTaken = res.TimeTaken
		attempt.Completed = true
		attempt.CompletedAt = &now
	}
	attempt.Pending = []domain.AnswerRecord{}
	if err := s.deps.Attempts.SaveAttempt(ctx, attempt); err != nil {
		return scoring.Result{}, domain.Leaderboard{}, false, fmt.Errorf("save attempt: %w", err)
	}

	entries, err := s.deps.Leaderboards.ListEntries(ctx, meet.ID)
	if err != nil {
		return scoring.Result{}, domain.Leaderboard{}, false, err
	}
	candidate := domain.LeaderboardEntry{
		MeetID:         meet.ID,
		UserID:         user.ID,
		Name:           user.Name,
		Score:          res.TotalScore,
		TimeTaken:      res.TimeTaken,
		CorrectAnswers: res.CorrectAnswers,
		TotalQuestions: res.TotalQuestions,
		Submitted:      true,
		SubmittedAt:    &now,
	}
	merged, changed := leaderboard.Submit(entries, candidate)
	lb := domain.Leaderboard{MeetID: meet.ID, Entries: leaderboard.Rank(merged), UpdatedAt: now}
	if changed {
		if err := s.deps.Leaderboards.SaveEntry(ctx, candidate); err != nil {
			return scoring.Result{}, domain.Leaderboard{}, false, fmt.Errorf("save leaderboard entry: %w", err)
		}
		// advanced after the save so a reader holding seq n sees every change up to n
		if lb.Seq, err = s.deps.Feeds.NextSeq(ctx, meet.ID); err != nil {
			log.Printf("advance leaderboard seq %s: %v", meet.ID, err)
		}
	}
	return res, lb, changed, nil
}

// applyStat folds summary into the user's stat and mirrors the headline numbers
// onto the user record. It runs under the user lock.
func (s *SubmissionService) applyStat(ctx context.Context, userID string, summary domain.AttemptSummary) (domain.Stat, error) {
	unlock, err := s.deps.Locker.Lock(ctx, userLockKey(userID))
	if err != nil {
		return domain.Stat{}, err
	}
	defer unlock()

	var saved domain.Stat
	for i := 0; ; i++ {
		current, err := s.deps.Stats.GetStat(ctx, userID)
		if errors.Is(err, domain.ErrStatNotFound) {
			current = domain.Stat{UserID: userID}
		} else if err != nil {
			return domain.Stat{}, err
		}
		saved, err = s.deps.Stats.SaveStat(ctx, stats.Apply(current, summary, s.deps.now()))
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || i+1 >= statSaveAttempts {
			return domain.Stat{}, fmt.Errorf("save stat: %w", err)
		}
	}

	user, err := s.deps.Users.GetUser(ctx, userID)
	if err != nil {
		return saved, fmt.Errorf("load user: %w", err)
	}
	user.TotalScore = saved.TotalScore
	user.Accuracy = scoring.Accuracy(saved.TotalCorrectAnswers, saved.TotalQuestionsAttempted)
	user.CurrentStreak = saved.CurrentStreak
	user.LastActive = saved.LastActive
	if err := s.deps.Users.UpdateUser(ctx, user); err != nil {
		return saved, fmt.Errorf("update user: %w", err)
	}
	return saved, nil
}

// RecordAnswer scores one answer of an in-progress attempt. A second answer to the
// same question replaces the first.
func (s *SubmissionService) RecordAnswer(ctx context.Context, userID string, in AnswerInput) (domain.AnswerRecord, error) {
	if err := validateStruct(in); err != nil {
		return domain.AnswerRecord{}, err
	}
	question, err := s.deps.Meets.FindQuestion(ctx, in.QuestionID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	if in.MeetID != "" && question.MeetID != in.MeetID {
		return domain.AnswerRecord{}, domain.NewValidationError("question does not belong to this meet",
			domain.FieldError{Field: "questionId", Message: "is not part of meet " + in.MeetID})
	}
	meet, err := s.deps.Cache.GetMeet(ctx, question.MeetID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	if q, ok := meet.Question(question.ID); ok {
		question = q
	}

	unlock, err := s.deps.Locker.Lock(ctx, meetLockKey(meet.ID))
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	defer unlock()

	attempt, err := s.deps.Attempts.GetAttempt(ctx, meet.ID, userID)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		attempt = newAttempt(s.deps, meet.ID, userID, len(meet.Questions))
	} else if err != nil {
		return domain.AnswerRecord{}, err
	}

	rec := scoring.EvaluateOne(question, in.SelectedOption, in.TimeTaken, s.policy, s.deps.now())
	pending := make([]domain.AnswerRecord, 0, len(attempt.Pending)+1)
	for _, p := range attempt.Pending {
		if p.QuestionID != rec.QuestionID {
			pending = append(pending, p)
		}
	}
	attempt.Pending = append(pending, rec)
	if err := s.deps.Attempts.SaveAttempt(ctx, attempt); err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("save attempt: %w", err)
	}
	return rec, nil
}

// Evaluate scores answers without recording anything.
func (s *SubmissionService) Evaluate(ctx context.Context, meetID string, answers []domain.AnswerSubmission) (EvaluationResult, error) {
	meet, err := s.deps.Cache.GetMeet(ctx, meetID)
	if err != nil {
		return EvaluationResult{}, err
	}
	res, err := scoring.Evaluate(meet.Questions, answers, s.policy, s.deps.now())
	if err != nil {
		return EvaluationResult{}, err
	}
	lb, err := s.Leaderboard(ctx, meetID)
	if err != nil {
		return EvaluationResult{}, err
	}
	top := lb.Entries
	if len(top) > evaluateTop {
		top = top[:evaluateTop]
	}
	return EvaluationResult{Result: res, Leaderboard: top}, nil
}

// Attempt returns the user's attempt on a meet.
func (s *SubmissionService) Attempt(ctx context.Context, meetID, userID string) (domain.Attempt, error) {
	if _, err := s.deps.Cache.GetMeet(ctx, meetID); err != nil {
		return domain.Attempt{}, err
	}
	return s.deps.Attempts.GetAttempt(ctx, meetID, userID)
}

// Leaderboard returns the ranked leaderboard of a meet.
func (s *SubmissionService) Leaderboard(ctx context.Context, meetID string) (domain.Leaderboard, error) {
	if _, err := s.deps.Cache.GetMeet(ctx, meetID); err != nil {
		return domain.Leaderboard{}, err
	}
	seq, err := s.deps.Feeds.CurrentSeq(ctx, meetID)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("read leaderboard seq: %w", err)
	}
	entries, err := s.deps.Leaderboards.ListEntries(ctx, meetID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{MeetID: meetID, Entries: leaderboard.Rank(entries), Seq: seq, UpdatedAt: s.deps.now()}, nil
}

// Cumulative returns the all-time leaderboard. limit <= 0 selects the default.
func (s *SubmissionService) Cumulative(ctx context.Context, limit int) ([]domain.CumulativeEntry, error) {
	if limit <= 0 {
		limit = DefaultCumulativeLimit
	}
	if limit > maxCumulativeLimit {
		limit = maxCumulativeLimit
	}
	entries, err := s.deps.Leaderboards.ListSubmittedEntries(ctx)
	if err != nil {
		return nil, err
	}
	return leaderboard.Cumulative(entries, limit), nil
}

// MyStats returns the stat and overview of userID. A user without submissions gets zeros.
func (s *SubmissionService) MyStats(ctx context.Context, userID string) (StatView, error) {
	stat, err := s.deps.Stats.GetStat(ctx, userID)
	if errors.Is(err, domain.ErrStatNotFound) {
		stat = domain.Stat{UserID: userID, CategoryPerformance: map[string]domain.CategoryPerformance{}, MeetHistory: []domain.HistoryRecord{}}
	} else if err != nil {
		return StatView{}, err
	}
	return StatView{Stat: stat, Overview: stats.Summarize(stat, s.deps.now())}, nil
}

// Subscribe streams ranked leaderboard snapshots of a meet, starting with the
// current one. The caller must invoke cancel.
func (s *SubmissionService) Subscribe(ctx context.Context, meetID string) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.Leaderboard(ctx, meetID)
	if err != nil {
		return nil, nil, err
	}
	feed := s.deps.Feeds.GetOrCreate(meetID)
	ch, stop := feed.Subscribe(initial)
	cancel := func() {
		stop()
		s.deps.Feeds.DeleteIfEmpty(meetID)
	}
	return ch, cancel, nil
}

// pendingSubmissions drops answers to questions removed since they were recorded.
func pendingSubmissions(meet domain.Meet, pending []domain.AnswerRecord) []domain.AnswerSubmission {
	out := make([]domain.AnswerSubmission, 0, len(pending))
	for _, p := range pending {
		if _, ok := meet.Question(p.QuestionID); !ok {
			continue
		}
		out = append(out, domain.AnswerSubmission{QuestionID: p.QuestionID, SelectedOption: p.SelectedOption, TimeTaken: p.TimeTaken})
	}
	return out
}
