package memory

import (
	"context"
	"sort"
	"sync"

	"dopamine-dashboard/internal/domain"
	"dopamine-dashboard/internal/leaderboard"
)

// Store is an in-memory implementation of every app repository plus app.MeetLoader.
// Values are copied on the way in and out so callers never share slices with it.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	meets    map[string]domain.Meet
	attempts map[attemptKey]domain.Attempt
	entries  map[string]map[string]domain.LeaderboardEntry
	stats    map[string]domain.Stat
}

type attemptKey struct {
	meetID string
	userID string
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		meets:    make(map[string]domain.Meet),
		attempts: make(map[attemptKey]domain.Attempt),
		entries:  make(map[string]map[string]domain.LeaderboardEntry),
		stats:    make(map[string]domain.Stat),
	}
}

func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return domain.ErrConflict
	}
	for _, u := range s.users {
		if u.Email == user.Email || (user.GoogleID != "" && u.GoogleID == user.GoogleID) {
			return domain.ErrConflict
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	return s.findUser(func(u domain.User) bool { return u.Email == email })
}

func (s *Store) FindUserByGoogleID(_ context.Context, googleID string) (domain.User, error) {
	if googleID == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.findUser(func(u domain.User) bool { return u.GoogleID == googleID })
}

func (s *Store) findUser(match func(domain.User) bool) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, u := range s.users {
		if id != user.ID && (u.Email == user.Email || (user.GoogleID != "" && u.GoogleID == user.GoogleID)) {
			return domain.ErrConflict
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Store) CountUsersByRole(_ context.Context, role string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateMeet(_ context.Context, meet domain.Meet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meets[meet.ID]; ok {
		return domain.ErrConflict
	}
	s.meets[meet.ID] = copyMeet(meet)
	return nil
}

func (s *Store) ListMeets(_ context.Context, status string) ([]domain.Meet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Meet, 0, len(s.meets))
	for _, m := range s.meets {
		if status == "" || m.Status == status {
			out = append(out, copyMeet(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// LoadMeet implements app.MeetLoader.
func (s *Store) LoadMeet(_ context.Context, meetID string) (domain.Meet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meets[meetID]
	if !ok {
		return domain.Meet{}, domain.ErrMeetNotFound
	}
	return copyMeet(m), nil
}

func (s *Store) UpdateMeetStatus(_ context.Context, meetID, status string) error {
	return s.updateMeet(meetID, func(m *domain.Meet) error {
		m.Status = status
		return nil
	})
}

func (s *Store) DeleteMeet(_ context.Context, meetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meets[meetID]; !ok {
		return domain.ErrMeetNotFound
	}
	delete(s.meets, meetID)
	delete(s.entries, meetID)
	for k := range s.attempts {
		if k.meetID == meetID {
			delete(s.attempts, k)
		}
	}
	return nil
}

func (s *Store) AddQuestions(_ context.Context, meetID string, questions []domain.Question) error {
	return s.updateMeet(meetID, func(m *domain.Meet) error {
		for _, q := range questions {
			m.Questions = append(m.Questions, copyQuestion(q))
		}
		sort.SliceStable(m.Questions, func(i, j int) bool { return m.Questions[i].Position < m.Questions[j].Position })
		return nil
	})
}

func (s *Store) RemoveQuestion(_ context.Context, meetID, questionID string) error {
	return s.updateMeet(meetID, func(m *domain.Meet) error {
		for i, q := range m.Questions {
			if q.ID == questionID {
				m.Questions = append(m.Questions[:i], m.Questions[i+1:]...)
				return nil
			}
		}
		return domain.ErrQuestionNotFound
	})
}

func (s *Store) FindQuestion(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.meets {
		if q, ok := m.Question(questionID); ok {
			return copyQuestion(q), nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *Store) AddParticipant(_ context.Context, meetID, userID string) error {
	return s.updateMeet(meetID, func(m *domain.Meet) error {
		if !m.HasParticipant(userID) {
			m.Participants = append(m.Participants, userID)
		}
		return nil
	})
}

func (s *Store) CountQuestions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.meets {
		n += len(m.Questions)
	}
	return n, nil
}

func (s *Store) CountMeetsByStatus(_ context.Context, status string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.meets {
		if m.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) updateMeet(meetID string, fn func(*domain.Meet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meets[meetID]
	if !ok {
		return domain.ErrMeetNotFound
	}
	m = copyMeet(m)
	if err := fn(&m); err != nil {
		return err
	}
	s.meets[meetID] = m
	return nil
}

func (s *Store) GetAttempt(_ context.Context, meetID, userID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptKey{meetID, userID}]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return copyAttempt(a), nil
}

func (s *Store) SaveAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meets[attempt.MeetID]; !ok {
		return domain.ErrMeetNotFound
	}
	s.attempts[attemptKey{attempt.MeetID, attempt.UserID}] = copyAttempt(attempt)
	return nil
}

func (s *Store) ListEntries(_ context.Context, meetID string) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byUser := s.entries[meetID]
	out := make([]domain.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		out = append(out, e)
	}
	return out, nil
}

// SaveEntry upserts entry. An existing row is only replaced by a better submitted result.
func (s *Store) SaveEntry(_ context.Context, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meets[entry.MeetID]; !ok {
		return domain.ErrMeetNotFound
	}
	byUser, ok := s.entries[entry.MeetID]
	if !ok {
		byUser = make(map[string]domain.LeaderboardEntry)
		s.entries[entry.MeetID] = byUser
	}
	if old, ok := byUser[entry.UserID]; ok && !(entry.Submitted && leaderboard.Better(entry.Score, entry.TimeTaken, old)) {
		return nil
	}
	entry.Rank = 0
	byUser[entry.UserID] = entry
	return nil
}

func (s *Store) ListSubmittedEntries(_ context.Context) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LeaderboardEntry
	for _, byUser := range s.entries {
		for _, e := range byUser {
			if e.Submitted {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (s *Store) GetStat(_ context.Context, userID string) (domain.Stat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stats[userID]
	if !ok {
		return domain.Stat{}, domain.ErrStatNotFound
	}
	return copyStat(st), nil
}

func (s *Store) SaveStat(_ context.Context, stat domain.Stat) (domain.Stat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.stats[stat.UserID]
	switch {
	case !ok && stat.Version != 0:
		return domain.Stat{}, domain.ErrConflict
	case ok && current.Version != stat.Version:
		return domain.Stat{}, domain.ErrConflict
	}
	stat = copyStat(stat)
	stat.Version++
	s.stats[stat.UserID] = stat
	return copyStat(stat), nil
}

func copyUser(u domain.User) domain.User {
	if u.LastActive != nil {
		t := *u.LastActive
		u.LastActive = &t
	}
	return u
}

func copyQuestion(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}

func copyMeet(m domain.Meet) domain.Meet {
	m.Participants = append([]string{}, m.Participants...)
	qs := make([]domain.Question, len(m.Questions))
	for i, q := range m.Questions {
		qs[i] = copyQuestion(q)
	}
	m.Questions = qs
	return m
}

func copyAttempt(a domain.Attempt) domain.Attempt {
	a.Answers = append([]domain.AnswerRecord{}, a.Answers...)
	a.Pending = append([]domain.AnswerRecord{}, a.Pending...)
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		a.CompletedAt = &t
	}
	return a
}

func copyStat(st domain.Stat) domain.Stat {
	cp := make(map[string]domain.CategoryPerformance, len(st.CategoryPerformance))
	for k, v := range st.CategoryPerformance {
		cp[k] = v
	}
	st.CategoryPerformance = cp
	st.MeetHistory = append([]domain.HistoryRecord{}, st.MeetHistory...)
	if st.LastActive != nil {
		t := *st.LastActive
		st.LastActive = &t
	}
	return st
}
