// Package leaderboard keeps per-meet rankings: one entry per user, best attempt wins,
// ordered by score descending then time taken ascending.
package leaderboard

import (
	"sort"

	"dopamine-dashboard/internal/domain"
)

// Better reports whether (score, timeTaken) beats the existing result.
func Better(score int, timeTaken float64, existing domain.LeaderboardEntry) bool {
	if !existing.Submitted {
		return true
	}
	if score != existing.Score {
		return score > existing.Score
	}
	return timeTaken < existing.TimeTaken
}

// Submit merges candidate into entries. An entry for a new user is appended, a
// placeholder is replaced, and an existing result only yields to a better one.
// The returned slice is sorted; changed is false when entries were left untouched.
func Submit(entries []domain.LeaderboardEntry, candidate domain.LeaderboardEntry) ([]domain.LeaderboardEntry, bool) {
	out := make([]domain.LeaderboardEntry, 0, len(entries)+1)
	changed := true
	found := false
	for _, e := range entries {
		if e.UserID != candidate.UserID {
			out = append(out, e)
			continue
		}
		if found {
			// duplicate rows for one user collapse into the first
			continue
		}
		found = true
		if Better(candidate.Score, candidate.TimeTaken, e) {
			out = append(out, candidate)
		} else {
			out = append(out, e)
			changed = false
		}
	}
	if !found {
		out = append(out, candidate)
	}
	Sort(out)
	return out, changed
}

// Sort orders entries by score desc, time taken asc, then earliest submission and user id.
func Sort(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TimeTaken != b.TimeTaken {
			return a.TimeTaken < b.TimeTaken
		}
		switch {
		case a.SubmittedAt != nil && b.SubmittedAt != nil && !a.SubmittedAt.Equal(*b.SubmittedAt):
			return a.SubmittedAt.Before(*b.SubmittedAt)
		case a.SubmittedAt != nil && b.SubmittedAt == nil:
			return true
		case a.SubmittedAt == nil && b.SubmittedAt != nil:
			return false
		}
		return a.UserID < b.UserID
	})
}

// Rank returns a sorted copy with 1-based positional ranks. Stored ranks are ignored.
func Rank(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, len(entries))
	copy(out, entries)
	Sort(out)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Cumulative aggregates submitted entries across meets per user and ranks them by
// total score desc, total time asc. limit <= 0 means no limit.
func Cumulative(entries []domain.LeaderboardEntry, limit int) []domain.CumulativeEntry {
	byUser := make(map[string]*domain.CumulativeEntry)
	for _, e := range entries {
		if !e.Submitted {
			continue
		}
		c, ok := byUser[e.UserID]
		if !ok {
			c = &domain.CumulativeEntry{UserID: e.UserID, Name: e.Name}
			byUser[e.UserID] = c
		}
		c.TotalScore += e.Score
		c.Meets++
		c.TotalTime += e.TimeTaken
		c.CorrectAnswers += e.CorrectAnswers
		c.TotalQuestions += e.TotalQuestions
		if c.Name == "" {
			c.Name = e.Name
		}
	}

	out := make([]domain.CumulativeEntry, 0, len(byUser))
	for _, c := range byUser {
		if c.TotalQuestions > 0 {
			c.Accuracy = float64(c.CorrectAnswers) / float64(c.TotalQuestions) * 100
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		if out[i].TotalTime != out[j].TotalTime {
			return out[i].TotalTime < out[j].TotalTime
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
