package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dopamine-dashboard/internal/domain"
)

func TestWebSocketLeaderboardFlow(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.newUser("root", domain.RoleAdmin)
	_, aliceToken := env.newUser("alice", domain.RoleStudent)
	_, bobToken := env.newUser("bob", domain.RoleStudent)
	meet := env.createMeet(admin)

	conn := dialLeaderboard(t, env, meet.ID, aliceToken)
	defer conn.Close()

	// Expect the current snapshot first.
	msgType, payload := readNext(conn, t, "leaderboard")
	if payload["meetId"] != meet.ID {
		t.Fatalf("expected snapshot of %s, got %v", meet.ID, payload["meetId"])
	}

	// Another client submits over REST.
	resp, body := env.do(http.MethodPost, "/api/meets/"+meet.ID+"/submit", bobToken, map[string]any{
		"answers": []map[string]any{{"questionId": meet.Questions[0].ID, "selectedAnswer": 1, "timeTaken": 9}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: %d %s", resp.StatusCode, body)
	}
	msgType, payload = readNext(conn, t, "leaderboard")
	entries, _ := payload["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after bob's submit, got %d (%s)", len(entries), msgType)
	}

	// Record an answer over the socket.
	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionId":     meet.Questions[0].ID,
			"selectedAnswer": 1,
			"timeTaken":      2,
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, payload = readNext(conn, t, "answerResult")
	if payload["isCorrect"] != true {
		t.Fatalf("expected a correct answer, got %v", payload)
	}

	// Finalize over the socket: expect submitted and a leaderboard broadcast in any order.
	if err := conn.WriteJSON(map[string]any{"type": "submit", "payload": map[string]any{"answers": []any{}}}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	submittedSeen := false
	leaderboardSeen := false
	for i := 0; i < 4 && !(submittedSeen && leaderboardSeen); i++ {
		typ, _ := readNext(conn, t, "")
		switch typ {
		case "submitted":
			submittedSeen = true
		case "leaderboard":
			leaderboardSeen = true
		}
	}
	if !submittedSeen || !leaderboardSeen {
		t.Fatalf("expected submitted and leaderboard, got submitted=%v leaderboard=%v", submittedSeen, leaderboardSeen)
	}

	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	readNext(conn, t, "error")
}

func TestWebSocketRejectsAnswerForOtherMeet(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.newUser("root", domain.RoleAdmin)
	_, aliceToken := env.newUser("alice", domain.RoleStudent)
	meet := env.createMeet(admin)
	other := env.createMeet(admin)

	conn := dialLeaderboard(t, env, meet.ID, aliceToken)
	defer conn.Close()
	readNext(conn, t, "leaderboard")

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionId":     other.Questions[0].ID,
			"selectedAnswer": 1,
			"timeTaken":      2,
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, payload := readNext(conn, t, "error")
	if msg, _ := payload["message"].(string); !strings.Contains(msg, "does not belong") {
		t.Fatalf("unexpected error payload %v", payload)
	}

	resp, body := env.do(http.MethodGet, "/api/meets/"+other.ID+"/attempt", aliceToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected no attempt on the other meet, got %d %s", resp.StatusCode, body)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.newUser("root", domain.RoleAdmin)
	meet := env.createMeet(admin)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/meets/" + meet.ID + "/leaderboard"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func TestWebSocketUnknownMeet(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.newUser("alice", domain.RoleStudent)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/meets/nope/leaderboard?token=" + token
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial for unknown meet to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp)
	}
}

func dialLeaderboard(t *testing.T, env *testEnv, meetID, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/meets/" + meetID + "/leaderboard?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
