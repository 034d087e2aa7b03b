package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/auth"
	"dopamine-dashboard/internal/domain"
	"dopamine-dashboard/internal/infra/memory"
	"dopamine-dashboard/internal/scoring"
)

type testEnv struct {
	t      *testing.T
	server *httptest.Server
	store  *memory.Store
	issuer *auth.Issuer
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, idToken string) (auth.GoogleIdentity, error) {
	if idToken != "good-google-token" {
		return auth.GoogleIdentity{}, fmt.Errorf("%w: bad id token", domain.ErrUnauthorized)
	}
	return auth.GoogleIdentity{Subject: "google-123", Email: "Grace@Example.com", Name: "Grace"}, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	deps := app.Deps{
		Users:        store,
		Meets:        store,
		Cache:        memory.NewMeetCache(store, time.Minute),
		Attempts:     store,
		Leaderboards: store,
		Stats:        store,
		Locker:       memory.NewLocker(),
		Feeds:        memory.NewFeedStore(),
	}
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	srv := NewServer(
		app.NewAuthService(deps, issuer, fakeVerifier{}),
		app.NewMeetService(deps),
		app.NewSubmissionService(deps, scoring.DefaultPolicy()),
		Options{TokenTTL: time.Hour},
	)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{t: t, server: ts, store: store, issuer: issuer}
}

// newUser stores a user directly and returns it with a valid token.
func (e *testEnv) newUser(name, role string) (domain.User, string) {
	e.t.Helper()
	user := domain.User{
		ID:        "user-" + name,
		Email:     name + "@example.com",
		Name:      name,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(e.t, e.store.CreateUser(context.Background(), user))
	token, err := e.issuer.Generate(user)
	require.NoError(e.t, err)
	return user, token
}

func (e *testEnv) do(method, path, token string, body interface{}) (*http.Response, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

type createdMeet struct {
	ID        string `json:"id"`
	Questions []struct {
		ID           string `json:"id"`
		CorrectIndex *int   `json:"correctIndex"`
	} `json:"questions"`
}

// createMeet creates a two question meet with answer key [1, 2] at 10 points each.
func (e *testEnv) createMeet(adminToken string) createdMeet {
	e.t.Helper()
	resp, body := e.do(http.MethodPost, "/api/meets", adminToken, map[string]any{
		"title":       "Cell biology",
		"category":    "Science",
		"difficulty":  "easy",
		"scheduledAt": time.Now().UTC().Format(time.RFC3339),
		"questions": []map[string]any{
			{"text": "Powerhouse of the cell?", "options": []string{"Nucleus", "Mitochondria", "Ribosome"}, "correctIndex": 1, "points": 10},
			{"text": "Unit of heredity?", "options": []string{"Cell", "Atom", "Gene"}, "correctIndex": 2, "points": 10},
		},
	})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode, string(body))
	meet := decode[createdMeet](e.t, body)
	require.Len(e.t, meet.Questions, 2)
	return meet
}
