package http

import "dopamine-dashboard/internal/domain"

// questionView hides the answer key from students.
type questionView struct {
	ID               string   `json:"id"`
	MeetID           string   `json:"meetId"`
	Position         int      `json:"position"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	CorrectIndex     *int     `json:"correctIndex,omitempty"`
	Points           int      `json:"points"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

type meetView struct {
	domain.Meet
	Questions []questionView `json:"questions"`
}

func newMeetView(m domain.Meet, user domain.User) meetView {
	v := meetView{Meet: m, Questions: make([]questionView, 0, len(m.Questions))}
	for _, q := range m.Questions {
		qv := questionView{
			ID:               q.ID,
			MeetID:           q.MeetID,
			Position:         q.Position,
			Text:             q.Text,
			Options:          q.Options,
			Points:           q.Points,
			TimeLimitSeconds: q.TimeLimitSeconds,
		}
		if user.IsAdmin() {
			idx := q.CorrectIndex
			qv.CorrectIndex = &idx
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}

func newMeetViews(meets []domain.Meet, user domain.User) []meetView {
	out := make([]meetView, 0, len(meets))
	for _, m := range meets {
		out = append(out, newMeetView(m, user))
	}
	return out
}

type startView struct {
	Meet    meetView       `json:"meet"`
	Attempt domain.Attempt `json:"attempt"`
}
