package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/match-engine/internal/domain"
	"github.com/spigell/match-engine/internal/matching"
	"github.com/spigell/match-engine/internal/metrics"
)

type fakeMatcher struct {
	err     error
	lastID  string
	lastReq matching.Request
}

func (f *fakeMatcher) JobsForProfessional(_ context.Context, id string, req matching.Request) (*matching.Result[domain.Job], error) {
	f.lastID, f.lastReq = id, req
	if f.err != nil {
		return nil, f.err
	}
	return &matching.Result[domain.Job]{
		Matches: []matching.Match[domain.Job]{{
			Entity: domain.Job{ID: "j1", Title: "Senior Leadership Coach"},
			Ranked: matching.Ranked{
				MatchScore: matching.MatchScore{
					SubjectID:   id,
					CandidateID: "j1",
					Overall:     0.876,
					SubScores:   &matching.SubScores{Sector: 1, Language: 0.5, Format: 0.7, Cultural: 0.333},
				},
				Strength: matching.StrengthFor(0.876),
			},
			Recommendations: []string{"Mention Arabic proficiency"},
		}},
		Stats: matching.Stats{RequestID: "req-1"},
	}, nil
}

func (f *fakeMatcher) ProfessionalsForJob(_ context.Context, id string, req matching.Request) (*matching.Result[domain.Profile], error) {
	f.lastID, f.lastReq = id, req
	if f.err != nil {
		return nil, f.err
	}
	return &matching.Result[domain.Profile]{
		Matches: []matching.Match[domain.Profile]{},
		Stats:   matching.Stats{RequestID: "req-2"},
	}, nil
}

func newTestServer(t *testing.T, m Matcher) *fiber.App {
	t.Helper()
	recorder := metrics.New(prometheus.NewRegistry())
	return New(m, recorder.Handler(), Config{}, zap.NewNop()).App()
}

func do(t *testing.T, app *fiber.App, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestJobsForProfessional(t *testing.T) {
	m := &fakeMatcher{}
	app := newTestServer(t, m)

	resp, body := do(t, app, "/api/v1/professionals/p1/jobs?limit=3&sector=government&language=arabic&format=hybrid&emirate=Dubai&contextual=true")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get(HeaderRequestID))

	assert.Equal(t, "p1", m.lastID)
	assert.Equal(t, 3, m.lastReq.Limit)
	assert.True(t, m.lastReq.Contextual)
	assert.Equal(t, matching.Preferences{Sector: "government", Language: "arabic", Format: "hybrid", Emirate: "Dubai"}, m.lastReq.Preferences)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.EqualValues(t, 88, got[0]["matchScore"])
	assert.Equal(t, "excellent", got[0]["matchStrength"])
	assert.Equal(t, map[string]any{"sector": 100.0, "language": 50.0, "format": 70.0, "cultural": 33.0}, got[0]["subscores"])
	assert.Equal(t, "j1", got[0]["entity"].(map[string]any)["id"])
	assert.Equal(t, []any{"Mention Arabic proficiency"}, got[0]["recommendations"])
}

func TestProfessionalsForJobEmpty(t *testing.T) {
	m := &fakeMatcher{}
	app := newTestServer(t, m)

	resp, body := do(t, app, "/api/v1/jobs/j9/professionals")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))
	assert.Equal(t, "j9", m.lastID)
	assert.Zero(t, m.lastReq.Limit)
	assert.False(t, m.lastReq.Contextual)
}

func TestLimitIsCapped(t *testing.T) {
	m := &fakeMatcher{}
	app := newTestServer(t, m)

	resp, _ := do(t, app, "/api/v1/professionals/p1/jobs?limit=500")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, MaxLimit, m.lastReq.Limit)
}

func TestBadQuery(t *testing.T) {
	app := newTestServer(t, &fakeMatcher{})

	for _, target := range []string{
		"/api/v1/professionals/p1/jobs?limit=abc",
		"/api/v1/professionals/p1/jobs?limit=0",
		"/api/v1/jobs/j1/professionals?contextual=maybe",
	} {
		resp, body := do(t, app, target)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		assert.Contains(t, string(body), `"status":400`, target)
	}
}

func TestStoreErrorIsInternal(t *testing.T) {
	app := newTestServer(t, &fakeMatcher{err: errors.New("loading subject: connection refused")})

	resp, body := do(t, app, "/api/v1/professionals/p1/jobs")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"status":500,"message":"internal server error"}`, string(body))
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestServer(t, &fakeMatcher{})

	resp, body := do(t, app, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, _ = do(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
