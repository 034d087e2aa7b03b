// Package stats folds scored attempts into a user's lifetime aggregate.
package stats

import (
	"sort"
	"time"

	"dopamine-dashboard/internal/domain"
)

const (
	streakWindow     = 24 * time.Hour
	weekDays         = 7
	recentActivities = 5
)

// Apply returns stat with summary folded in. The input is not modified.
func Apply(stat domain.Stat, summary domain.AttemptSummary, now time.Time) domain.Stat {
	out := clone(stat)

	out.TotalMeetsAttended++
	out.TotalQuestionsAttempted += summary.TotalQuestions
	out.TotalCorrectAnswers += summary.CorrectAnswers
	out.TotalScore += summary.TotalScore
	n := float64(out.TotalMeetsAttended)
	out.AverageScore = (stat.AverageScore*(n-1) + float64(summary.TotalScore)) / n

	category := summary.Category
	if category == "" {
		category = domain.DefaultCategory
	}
	cp := out.CategoryPerformance[category]
	cp.Meets++
	cp.TotalQuestions += summary.TotalQuestions
	cp.CorrectAnswers += summary.CorrectAnswers
	cp.AverageScore = (cp.AverageScore*float64(cp.Meets-1) + float64(summary.TotalScore)) / float64(cp.Meets)
	out.CategoryPerformance[category] = cp

	out.MeetHistory = append(out.MeetHistory, domain.HistoryRecord{
		MeetID:             summary.MeetID,
		Date:               now,
		Score:              summary.TotalScore,
		QuestionsAttempted: summary.TotalQuestions,
		CorrectAnswers:     summary.CorrectAnswers,
		TimeSpentMinutes:   summary.TimeTaken / 60,
	})

	switch {
	case stat.LastActive == nil:
		out.CurrentStreak = 1
	case now.Sub(*stat.LastActive) <= streakWindow:
		out.CurrentStreak++
	default:
		out.CurrentStreak = 1
	}
	if out.CurrentStreak > out.LongestStreak {
		out.LongestStreak = out.CurrentStreak
	}
	last := now
	out.LastActive = &last
	return out
}

func clone(s domain.Stat) domain.Stat {
	out := s
	out.CategoryPerformance = make(map[string]domain.CategoryPerformance, len(s.CategoryPerformance)+1)
	for k, v := range s.CategoryPerformance {
		out.CategoryPerformance[k] = v
	}
	out.MeetHistory = make([]domain.HistoryRecord, len(s.MeetHistory), len(s.MeetHistory)+1)
	copy(out.MeetHistory, s.MeetHistory)
	if s.LastActive != nil {
		t := *s.LastActive
		out.LastActive = &t
	}
	return out
}

// DayScore is the score earned on one calendar day.
type DayScore struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// CategorySummary is one row of the category breakdown.
type CategorySummary struct {
	Category       string  `json:"category"`
	Meets          int     `json:"meets"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
	Accuracy       float64 `json:"accuracy"`
	AverageScore   float64 `json:"averageScore"`
}

// Overview is the dashboard view of a Stat.
type Overview struct {
	Accuracy          float64                `json:"accuracy"`
	WeeklyProgress    []DayScore             `json:"weeklyProgress"`
	CategoryBreakdown []CategorySummary      `json:"categoryBreakdown"`
	RecentActivity    []domain.HistoryRecord `json:"recentActivity"`
}

// Summarize derives the dashboard overview. Days are UTC calendar days, oldest first.
func Summarize(stat domain.Stat, now time.Time) Overview {
	ov := Overview{
		Accuracy:          percent(stat.TotalCorrectAnswers, stat.TotalQuestionsAttempted),
		WeeklyProgress:    make([]DayScore, weekDays),
		CategoryBreakdown: make([]CategorySummary, 0, len(stat.CategoryPerformance)),
		RecentActivity:    []domain.HistoryRecord{},
	}

	today := now.UTC().Truncate(24 * time.Hour)
	index := make(map[string]int, weekDays)
	for i := 0; i < weekDays; i++ {
		day := today.AddDate(0, 0, i-(weekDays-1)).Format(time.DateOnly)
		ov.WeeklyProgress[i] = DayScore{Date: day}
		index[day] = i
	}
	for _, h := range stat.MeetHistory {
		if i, ok := index[h.Date.UTC().Format(time.DateOnly)]; ok {
			ov.WeeklyProgress[i].Score += h.Score
		}
	}

	for name, cp := range stat.CategoryPerformance {
		ov.CategoryBreakdown = append(ov.CategoryBreakdown, CategorySummary{
			Category:       name,
			Meets:          cp.Meets,
			TotalQuestions: cp.TotalQuestions,
			CorrectAnswers: cp.CorrectAnswers,
			Accuracy:       percent(cp.CorrectAnswers, cp.TotalQuestions),
			AverageScore:   cp.AverageScore,
		})
	}
	sort.Slice(ov.CategoryBreakdown, func(i, j int) bool {
		return ov.CategoryBreakdown[i].Category < ov.CategoryBreakdown[j].Category
	})

	recent := make([]domain.HistoryRecord, len(stat.MeetHistory))
	copy(recent, stat.MeetHistory)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date.After(recent[j].Date) })
	if len(recent) > recentActivities {
		recent = recent[:recentActivities]
	}
	ov.RecentActivity = append(ov.RecentActivity, recent...)
	return ov
}

func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
