package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiraleos/reply-engine/internal/core"
	"github.com/kiraleos/reply-engine/internal/metrics"
	"github.com/kiraleos/reply-engine/internal/store"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.reply, s.err
}

type testServer struct {
	*httptest.Server
	store     *store.MemoryStore
	completer *stubCompleter
}

func newTestServer(t *testing.T, reply string) *testServer {
	t.Helper()

	st := store.NewMemoryStore()
	sc := &stubCompleter{reply: reply}
	reg := prometheus.NewRegistry()
	gs := core.NewGenerationService(st, core.NewRoomRegistry(), sc, 5, metrics.New(reg))
	as := core.NewAccountService(st, "test-secret")

	srv := httptest.NewServer(NewRouter(NewAPIHandler(gs, as), reg))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: st, completer: sc}
}

func (ts *testServer) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	return ts.do(t, http.MethodPost, path, body, "")
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp, out
}

func TestGenerate_LongReplyScenario(t *testing.T) {
	ts := newTestServer(t, "Morning fam, hope everyone is building something great this week")

	resp, body := ts.post(t, "/api/generate", map[string]any{
		"caption":  "gm fam hows everyone doing",
		"roomId":   "rialo",
		"comments": []any{},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reply, ok := body["reply"].(string)
	require.True(t, ok)
	words := len(strings.Fields(reply))
	assert.GreaterOrEqual(t, words, 8)
	assert.LessOrEqual(t, words, 15)
	assert.NotContains(t, reply, "?")
	assert.NotContains(t, reply, "gm fam hows everyone doing")

	history, err := ts.store.RecentHistory("rialo", 5)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGenerate_MissingFields(t *testing.T) {
	ts := newTestServer(t, "unused reply text here")

	tests := []struct {
		path string
		body map[string]any
	}{
		{"/api/generate", map[string]any{"caption": "hi", "roomId": "rialo"}},
		{"/api/generate-quote", map[string]any{"caption": "  ", "roomId": "rialo", "comments": []any{}}},
		{"/api/generate-discord", map[string]any{"roomId": "rialo", "comments": []any{}}},
		{"/api/generate-quick", map[string]any{"caption": "hi"}},
		{"/api/generate-topic", map[string]any{"roomId": "rialo"}},
		{"/api/generate-parafrase", map[string]any{}},
		{"/api/generate-translate", map[string]any{"text": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := ts.post(t, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}

	assert.Zero(t, ts.completer.calls)
	rooms, _ := ts.store.ListRooms()
	assert.Empty(t, rooms, "no side effects on bad input")
}

func TestGenerate_MalformedJSON(t *testing.T) {
	ts := newTestServer(t, "unused")

	resp, err := ts.Client().Post(ts.URL+"/api/generate", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerate_RejectedIs500(t *testing.T) {
	ts := newTestServer(t, "one two three four five six seven eight nine ten eleven twelve thirteen")

	resp, body := ts.post(t, "/api/generate-discord", map[string]any{
		"caption":  "what is everyone up to",
		"roomId":   "rialo",
		"comments": []any{map[string]any{"username": "amy", "reply": "shipping"}},
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["error"], "too_many_words")
	assert.Equal(t, 1, ts.completer.calls, "no retry")
}

func TestGenerate_UpstreamErrorIs500(t *testing.T) {
	ts := newTestServer(t, "")
	ts.completer.err = &core.UpstreamError{Provider: "openai", Err: errors.New("connection refused")}

	resp, body := ts.post(t, "/api/generate-quick", map[string]any{"caption": "gm", "roomId": "rialo"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Completion service error", body["error"])
}

func TestGenerateTopic_FallbackIs200(t *testing.T) {
	ts := newTestServer(t, "What, is, this?")

	resp, body := ts.post(t, "/api/generate-topic", map[string]any{
		"roomId":   "rialo",
		"examples": []any{"show your desk setup"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, core.NewRoomRegistry().Get("rialo").FallbackTopic, body["topic"])
}

func TestGenerateText_Routes(t *testing.T) {
	ts := newTestServer(t, "Good morning to everyone here")

	resp, body := ts.post(t, "/api/generate-translate", map[string]any{"text": "buenos dias a todos"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Good morning to everyone here", body["text"])

	resp, body = ts.post(t, "/api/generate-parafrase", map[string]any{"text": "morning to all of you"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Good morning to everyone here", body["text"])
}

func TestRegister_DuplicateIs409WithPublicFields(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := ts.post(t, "/api/auth/register", map[string]any{
		"email": "ann@example.com", "password": "hunter22", "name": "Ann",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["token"])

	resp, body = ts.post(t, "/api/auth/register", map[string]any{
		"email": "ann@example.com", "password": "another1", "name": "Imposter",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "User already exists", body["error"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ann@example.com", user["email"])
	assert.Equal(t, "Ann", user["name"])
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "password")
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t, "")

	resp, _ := ts.post(t, "/api/auth/register", map[string]any{"email": "me@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = ts.post(t, "/api/auth/login", map[string]any{"email": "me@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := ts.post(t, "/api/auth/login", map[string]any{"email": "me@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	resp, body = ts.do(t, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "me@example.com", body["email"])

	resp, _ = ts.do(t, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/auth/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreatePayment_BelowMinimum(t *testing.T) {
	ts := newTestServer(t, "")
	resp, _ := ts.post(t, "/api/auth/register", map[string]any{"email": "pay@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := ts.post(t, "/api/payment/create", map[string]any{"email": "pay@example.com", "dollarValue": 3})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Minimum payment is $5", body["error"])

	resp, body = ts.post(t, "/api/payment/create", map[string]any{"email": "pay@example.com", "dollarValue": 5})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, 500.0, body["credits"])

	resp, body = ts.do(t, http.MethodGet, "/api/payment/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, store.PaymentPending, body["status"])

	resp, _ = ts.do(t, http.MethodGet, "/api/payment/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreatePayment_AboveMaximum(t *testing.T) {
	ts := newTestServer(t, "")
	resp, _ := ts.post(t, "/api/auth/register", map[string]any{"email": "rich@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := ts.post(t, "/api/payment/create", map[string]any{"email": "rich@example.com", "dollarValue": 1e20})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Maximum payment is $10000", body["error"])
}

func TestCreatePayment_UnknownUser(t *testing.T) {
	ts := newTestServer(t, "")
	resp, _ := ts.post(t, "/api/payment/create", map[string]any{"email": "ghost@example.com", "dollarValue": 20})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := ts.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	mresp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, _ := io.ReadAll(mresp.Body)
	assert.Equal(t, http.StatusOK, mresp.StatusCode)
	assert.Contains(t, string(raw), "http_request_duration_seconds")
}
