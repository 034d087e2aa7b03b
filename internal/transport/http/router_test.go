package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/domain"
)

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "Ada@Example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	session := decode[app.Session](t, body)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.Equal(t, domain.RoleStudent, session.User.Role)
	assert.NotContains(t, string(body), "passwordHash")

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == tokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	resp, body = env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada again", "email": "ada@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	resp, body = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(body))

	resp, body = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	token := decode[app.Session](t, body).Token

	resp, body = env.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Ada", decode[domain.User](t, body).Name)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: tokenCookie, Value: token})
	cookieResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	cookieResp.Body.Close()
	assert.Equal(t, http.StatusOK, cookieResp.StatusCode)
}

func TestRegisterValidationFields(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Bo", "email": "not-an-email", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	got := decode[errorBody](t, body)
	assert.Equal(t, "VALIDATION_ERROR", got.Error)
	assert.Contains(t, got.Fields, "email")
	assert.Contains(t, got.Fields, "password")
}

func TestGoogleLoginCreatesThenReusesAccount(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(http.MethodPost, "/api/auth/google", "", map[string]string{"idToken": "forged"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(body))

	resp, body = env.do(http.MethodPost, "/api/auth/google", "", map[string]string{"idToken": "good-google-token"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	first := decode[app.Session](t, body)
	assert.Equal(t, "grace@example.com", first.User.Email)

	resp, body = env.do(http.MethodPost, "/api/auth/google", "", map[string]string{"idToken": "good-google-token"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, first.User.ID, decode[app.Session](t, body).User.ID)
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == tokenCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(http.MethodGet, "/api/meets", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", decode[errorBody](t, body).Error)

	resp, _ = env.do(http.MethodGet, "/api/meets", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(http.MethodGet, "/api/meets?token=whatever", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesRejectStudents(t *testing.T) {
	env := newTestEnv(t)
	_, student := env.newUser("sam", domain.RoleStudent)

	resp, body := env.do(http.MethodPost, "/api/meets", student, map[string]any{"title": "x"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decode[errorBody](t, body).Error)

	resp, _ = env.do(http.MethodGet, "/api/admin/stats", student, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStudentsNeverSeeAnswerKey(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.newUser("root", domain.RoleAdmin)
	_, student := env.newUser("sam", domain.RoleStudent)
	meet := env.createMeet(admin)
	require.NotNil(t, meet.Questions[0].CorrectIndex)
	assert.Equal(t, 1, *meet.Questions[0].CorrectIndex)

	_, body := env.do(http.MethodGet, "/api/meets/"+meet.ID, student, nil)
	assert.NotContains(t, string(body), "correctIndex")

	_, body = env.do(http.MethodGet, "/api/meets", student, nil)
	assert.NotContains(t, string(body), "correctIndex")

	_, body = env.do(http.MethodPost, "/api/meets/"+meet.ID+"/start", student, nil)
	assert.NotContains(t, string(body), "correctIndex")

	_, body = env.do(http.MethodGet, "/api/meets/"+meet.ID, admin, nil)
	assert.Contains(t, string(body), "correctIndex")
}

func TestMeetAdministration(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.newUser("root", domain.RoleAdmin)
	meet := env.createMeet(admin)

	resp, body := env.do(http.MethodPatch, "/api/meets/"+meet.ID+"/status", admin, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, domain.MeetActive, decode[domain.Meet](t, body).Status)

	resp, _ = env.do(http.MethodPatch, "/api/meets/"+meet.ID+"/status", admin, map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(http.MethodGet, "/api/meets?status=active", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Meet](t, body), 1)

	resp, body = env.do(http.MethodPost, "/api/meets/"+meet.ID+"/questions", admin, map[string]any{
		"questions": []map[string]any{{"text": "Third?", "options": []string{"a", "b"}, "correctIndex": 0}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	updated := decode[domain.Meet](t, body)
	require.Len(t, updated.Questions, 3)
	assert.Equal(t, domain.DefaultQuestionPoints, updated.Questions[2].Points)

	resp, body = env.do(http.MethodDelete, "/api/meets/"+meet.ID+"/questions/"+updated.Questions[2].ID, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Len(t, decode[domain.Meet](t, body).Questions, 2)

	resp, body = env.do(http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	totals := decode[domain.DashboardTotals](t, body)
	assert.Equal(t, 2, totals.TotalQuestions)
	assert.Equal(t, 1, totals.ActiveMeets)

	resp, _ = env.do(http.MethodDelete, "/api/meets/"+meet.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.do(http.MethodGet, "/api/meets/"+meet.ID, admin, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, body).Error)
}

func TestSubmitScoresRanksAndAggregates(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.newUser("root", domain.RoleAdmin)
	alice, aliceToken := env.newUser("alice", domain.RoleStudent)
	_, bobToken := env.newUser("bob", domain.RoleStudent)
	meet := env.createMeet(admin)
	q1, q2 := meet.Questions[0].ID, meet.Questions[1].ID

	resp, body := env.do(http.MethodPost, "/api/meets/"+meet.ID+"/start", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(http.MethodPost, "/api/meets/"+meet.ID+"/submit", aliceToken, map[string]any{
		"answers": []map[string]any{
			{"questionId": q1, "selectedAnswer": 1, "timeTaken": 4},
			{"questionId": q2, "selectedAnswer": 0, "timeTaken": 10},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	res := decode[app.SubmissionResult](t, body)
	assert.Equal(t, 15, res.Result.TotalScore)
	assert.Equal(t, 1, res.Result.CorrectAnswers)
	assert.InDelta(t, 50.0, res.Result.Accuracy, 1e-9)
	assert.Equal(t, 1, res.Stat.TotalMeetsAttended)

	resp, body = env.do(http.MethodPost, "/api/meets/"+meet.ID+"/submit", bobToken, map[string]any{
		"answers": []map[string]any{
			{"questionId": q1, "selectedAnswer": 1, "timeTaken": 8},
			{"questionId": q2, "selectedAnswer": 2, "timeTaken": 8},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(http.MethodGet, "/api/answers/leaderboard/"+meet.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lb := decode[domain.Leaderboard](t, body)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, "user-bob", lb.Entries[0].UserID)
	assert.Equal(t, 20, lb.Entries[0].Score)
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.Equal(t, alice.ID, lb.Entries[1].UserID)
	assert.Equal(t, 2, lb.Entries[1].Rank)

	resp, body = env.do(http.MethodGet, "/api/answers/leaderboard/cumulative?limit=1", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cumulative := decode[[]domain.CumulativeEntry](t, body)
	require.Len(t, cumulative, 1)
	assert.Equal(t, "user-bob", cumulative[0].UserID)

	resp, _ = env.do(http.MethodGet, "/api/answers/leaderboard/cumulative?limit=zero", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(http.MethodGet, "/api/answers/me/stats", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[app.StatView](t, body)
	assert.Equal(t, 2, view.Stat.TotalQuestionsAttempted)
	assert.Equal(t, 1, view.Stat.TotalCorrectAnswers)
	assert.Len(t, view.Overview.WeeklyProgress, 7)

	resp, body = env.do(http.MethodGet, "/api/meets/"+meet.ID+"/attempt", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	attempt := decode[domain.Attempt](t, body)
	assert.True(t, attempt.Completed)
	assert.Equal(t, 15, attempt.Score)
}

func TestRecordAnswersThenFinalize(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.newUser("root", domain.RoleAdmin)
	_, token := env.newUser("cara", domain.RoleStudent)
	meet := env.createMeet(admin)

	resp, body := env.do(http.MethodPost, "/api/meets/"+meet.ID+"/submit", token, map[string]any{"answers": []any{}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = env.do(http.MethodPost, "/api/answers", token, map[string]any{
		"questionId": meet.Questions[0].ID, "selectedAnswer": 1, "timeTaken": 12,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.True(t, decode[domain.AnswerRecord](t, body).IsCorrect)

	resp, _ = env.do(http.MethodPost, "/api/answers", token, map[string]any{
		"questionId": "missing", "selectedAnswer": 1, "timeTaken": 1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(http.MethodPost, "/api/meets/"+meet.ID+"/submit", token, map[string]any{"answers": []any{}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	res := decode[app.SubmissionResult](t, body)
	assert.Equal(t, 10, res.Result.TotalScore)
	assert.Equal(t, 1, res.Result.CorrectAnswers)
	assert.Equal(t, 2, res.Result.TotalQuestions)
}

func TestEvaluateDoesNotRecord(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.newUser("root", domain.RoleAdmin)
	_, token := env.newUser("dan", domain.RoleStudent)
	meet := env.createMeet(admin)

	resp, body := env.do(http.MethodPost, "/api/meets/"+meet.ID+"/evaluate", token, map[string]any{
		"answers": []map[string]any{{"questionId": meet.Questions[1].ID, "selectedAnswer": 2, "timeTaken": 3}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	res := decode[app.EvaluationResult](t, body)
	assert.Equal(t, 15, res.Result.TotalScore)
	assert.Empty(t, res.Leaderboard)

	resp, _ = env.do(http.MethodGet, "/api/meets/"+meet.ID+"/attempt", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMalformedBodyIsValidationError(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.newUser("root", domain.RoleAdmin)
	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/meets", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
