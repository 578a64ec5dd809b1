package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/readup/internal/achievement"
	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/corpus/corpustest"
	"github.com/listenupapp/readup/internal/logger"
	"github.com/listenupapp/readup/internal/service"
	"github.com/listenupapp/readup/internal/sse"
	"github.com/listenupapp/readup/internal/state"
	"github.com/listenupapp/readup/internal/store"
	"github.com/listenupapp/readup/internal/store/sqlite"
)

// testEnvelope mirrors Envelope with a typed payload.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type testServer struct {
	*Server
	api    humatest.TestAPI
	ledger *sqlite.Store
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWith(t, Options{})
}

func setupTestServerWith(t *testing.T, opts Options) *testServer {
	t.Helper()
	dir := t.TempDir()
	log := logger.Discard()

	ledger, err := sqlite.Open(filepath.Join(dir, "ledger.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	kv, err := store.New(filepath.Join(dir, "state"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	holder := corpus.NewHolder(corpustest.Sample())
	sseManager := sse.NewManager(log)
	st := state.New(kv, holder, sseManager, log)
	require.NoError(t, st.Load(context.Background()))

	rule, err := corpus.NewTestamentRule(corpus.RuleOrdinal, corpustest.Boundary)
	require.NoError(t, err)

	stats := service.NewStatsService(ledger, holder, rule, log)
	achievements := service.NewAchievementService(ledger, stats, achievement.Default(), sseManager, log)
	services := &Services{
		Progress:       service.NewProgressService(ledger, st, holder, achievements, sseManager, rule, log),
		Stats:          stats,
		Achievements:   achievements,
		Reactions:      service.NewReactionService(ledger, holder, achievements, sseManager, log),
		ReadingSession: service.NewReadingSessionService(ledger, holder, achievements, log),
	}

	srv := NewServer(services, ledger, st.Loaded, sseManager, opts, log)
	return &testServer{
		Server: srv,
		api:    humatest.Wrap(t, srv.api),
		ledger: ledger,
	}
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	assert.Equal(t, EnvelopeVersion, env.Version)
	return env
}

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[HealthResponse](t, resp)
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Equal(t, "healthy", env.Data.Components["ledger"].Status)
	assert.Equal(t, "no connected clients", env.Data.Components["sse"].Message)
}

func TestStreamStatus(t *testing.T) {
	assert.Equal(t, "no connected clients", streamStatus(0, 0))
	assert.Equal(t, "1 connected client, last event 4", streamStatus(1, 4))
	assert.Equal(t, "3 connected clients, last event 12", streamStatus(3, 12))
}

func TestHealthCheck_LedgerDown(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.ledger.Close())

	resp := ts.api.Get("/health")
	env := decode[HealthResponse](t, resp)
	assert.Equal(t, "unhealthy", env.Data.Status)
}

func TestMarkComplete_MainContext(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/completions", map[string]any{
		"segment_id":   "S012",
		"reader_color": "amber",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[struct {
		Completion struct {
			SegmentID string `json:"segment_id"`
			Context   string `json:"context"`
		} `json:"completion"`
		Streak struct {
			Current int `json:"current_streak"`
		} `json:"streak"`
		BookCode string `json:"book_code"`
	}](t, resp)
	assert.True(t, env.Success)
	assert.Equal(t, "S012", env.Data.Completion.SegmentID)
	assert.Equal(t, "main", env.Data.Completion.Context)
	assert.Equal(t, "Jhn", env.Data.BookCode)
	assert.Equal(t, 1, env.Data.Streak.Current)

	resp = ts.api.Get("/api/v1/completions/S012")
	status := decode[CompletionStatusResponse](t, resp)
	assert.True(t, status.Data.IsCompleted)
	require.NotNil(t, status.Data.Color)
	assert.Equal(t, "amber", *status.Data.Color)

	resp = ts.api.Get("/api/v1/completions/S013")
	status = decode[CompletionStatusResponse](t, resp)
	assert.False(t, status.Data.IsCompleted)
	assert.Nil(t, status.Data.Color)
}

func TestMarkComplete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"unknown segment", map[string]any{"segment_id": "S999"}, http.StatusNotFound, "NOT_FOUND"},
		{"plan not started", map[string]any{"segment_id": "S001", "context": "plan", "ref_id": "chronological"}, http.StatusNotFound, "NOT_FOUND"},
		{"missing ref", map[string]any{"segment_id": "S001", "context": "plan"}, http.StatusBadRequest, "VALIDATION"},
		{"bad context", map[string]any{"segment_id": "S001", "context": "side"}, http.StatusUnprocessableEntity, "VALIDATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t)

			resp := ts.api.Post("/api/v1/completions", tt.body)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())

			env := decode[json.RawMessage](t, resp)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestRuns_PlanLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/plans/chronological/start")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/completions", map[string]any{
		"segment_id": "S001", "context": "plan", "ref_id": "chronological",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/plans")
	plans := decode[ListRunsResponse](t, resp)
	require.Len(t, plans.Data.Runs, 2)
	chrono := plans.Data.Runs[0]
	assert.Equal(t, "chronological", chrono.ID)
	assert.True(t, chrono.Active)
	assert.Equal(t, 1, chrono.Covered)

	resp = ts.api.Post("/api/v1/plans/chronological/pause")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/completions", map[string]any{
		"segment_id": "S002", "context": "plan", "ref_id": "chronological",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "CONFLICT", decode[json.RawMessage](t, resp).Code)

	resp = ts.api.Post("/api/v1/plans/chronological/start")
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.api.Post("/api/v1/plans/nope/start")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRuns_ChallengeRestart(t *testing.T) {
	ts := setupTestServer(t)

	require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/challenges/Beginnings/start").Code)
	require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/completions", map[string]any{
		"segment_id": "S000", "context": "challenge", "ref_id": "Beginnings",
	}).Code)

	resp := ts.api.Post("/api/v1/challenges/Beginnings/restart")
	require.Equal(t, http.StatusOK, resp.Code)
	env := decode[struct {
		CompletedSegments []string `json:"completed_segments"`
	}](t, resp)
	assert.Empty(t, env.Data.CompletedSegments)

	resp = ts.api.Get("/api/v1/challenges")
	list := decode[ListRunsResponse](t, resp)
	require.Len(t, list.Data.Runs, 2)
}

func TestState_Snapshot(t *testing.T) {
	ts := setupTestServer(t)
	require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/completions", map[string]any{"segment_id": "S001"}).Code)

	resp := ts.api.Get("/api/v1/state")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"S001"`)
}

func TestReactions_AddListRemove(t *testing.T) {
	ts := setupTestServer(t)
	body := map[string]any{"segment_id": "S001", "block_id": "p1", "emoji": "❤️"}

	resp := ts.api.Post("/api/v1/reactions", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[AddReactionResponse](t, resp).Data.Created)

	resp = ts.api.Post("/api/v1/reactions", body)
	assert.False(t, decode[AddReactionResponse](t, resp).Data.Created)

	resp = ts.api.Get("/api/v1/segments/S001/reactions")
	assert.Len(t, decode[ListReactionsResponse](t, resp).Data.Reactions, 1)

	resp = ts.api.Delete("/api/v1/reactions?segment_id=S001&block_id=p1&emoji=heart")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[RemoveReactionResponse](t, resp).Data.Removed)

	resp = ts.api.Get("/api/v1/segments/S001/reactions")
	assert.Empty(t, decode[ListReactionsResponse](t, resp).Data.Reactions)

	resp = ts.api.Post("/api/v1/reactions", map[string]any{"segment_id": "S001", "block_id": "p1", "emoji": "🦖"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSessions_StartEnd(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/sessions", map[string]any{"segment_id": "S010"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	started := decode[struct {
		ID string `json:"id"`
	}](t, resp)
	require.NotEmpty(t, started.Data.ID)

	resp = ts.api.Post("/api/v1/sessions/" + started.Data.ID + "/end")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/sessions/" + started.Data.ID)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/sessions/rs_missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestStats_Endpoints(t *testing.T) {
	ts := setupTestServer(t)
	for _, seg := range []string{"S012", "S013"} {
		require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/completions", map[string]any{"segment_id": seg}).Code)
	}

	resp := ts.api.Get("/api/v1/stats/streak")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	streak := decode[struct {
		Current int `json:"current_streak"`
	}](t, resp)
	assert.Equal(t, 1, streak.Data.Current)

	resp = ts.api.Get("/api/v1/stats/calendar?days=7")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[struct {
		Days []json.RawMessage `json:"days"`
	}](t, resp).Data.Days, 7)

	resp = ts.api.Get("/api/v1/books/jhn/completion")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decode[BookCompletionResponse](t, resp).Data.Completed)

	resp = ts.api.Get("/api/v1/books/Rev/completion")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	assert.Equal(t, http.StatusOK, ts.api.Get("/api/v1/stats").Code)
	assert.Equal(t, http.StatusOK, ts.api.Get("/api/v1/stats/emoji").Code)

	resp = ts.api.Get("/api/v1/achievements")
	require.Equal(t, http.StatusOK, resp.Code)
	achievements := decode[struct {
		Achievements []struct {
			ID string `json:"id"`
		} `json:"achievements"`
	}](t, resp)
	assert.Len(t, achievements.Data.Achievements, len(achievement.Default().Entries()))
}

func TestServer_PersistenceErrorIs503(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.ledger.Close())

	resp := ts.api.Get("/api/v1/stats/streak")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	env := decode[json.RawMessage](t, resp)
	assert.Contains(t, env.Error, "storage unavailable")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServer_WritesAreRateLimited(t *testing.T) {
	ts := setupTestServerWith(t, Options{WriteRPS: 1, WriteBurst: 1})

	resp := ts.api.Post("/api/v1/completions", map[string]any{"segment_id": "S001"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/completions", map[string]any{"segment_id": "S002"})
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	env := decode[json.RawMessage](t, resp)
	assert.Equal(t, codeRateLimited, env.Code)

	// Reads are not throttled.
	assert.Equal(t, http.StatusOK, ts.api.Get("/api/v1/completions/S001").Code)
}

func TestServer_WriteLimitIgnoresSourcePort(t *testing.T) {
	ts := setupTestServerWith(t, Options{WriteRPS: 1, WriteBurst: 1})

	post := func(remote, segment string) int {
		body := strings.NewReader(`{"segment_id":"` + segment + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/completions", body)
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post("127.0.0.1:50000", "S001"))
	assert.Equal(t, http.StatusTooManyRequests, post("127.0.0.1:50001", "S002"))
	assert.Equal(t, http.StatusTooManyRequests, post("127.0.0.1:50002", "S003"))

	// Another client has its own bucket.
	assert.Equal(t, http.StatusOK, post("10.0.0.7:40000", "S004"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"127.0.0.1:50000", "127.0.0.1"},
		{"[::1]:8080", "::1"},
		{"192.0.2.4", "192.0.2.4"},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = tt.remote
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}
