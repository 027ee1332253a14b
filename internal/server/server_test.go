package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/accountplan/internal/collector"
	"github.com/mohammad-safakhou/accountplan/internal/conversation"
	"github.com/mohammad-safakhou/accountplan/internal/docstore"
	"github.com/mohammad-safakhou/accountplan/internal/intent"
	"github.com/mohammad-safakhou/accountplan/internal/metrics"
	"github.com/mohammad-safakhou/accountplan/internal/synth"
	"github.com/mohammad-safakhou/accountplan/provider"
	"github.com/mohammad-safakhou/accountplan/session"
	"github.com/mohammad-safakhou/accountplan/session/inmemory"
	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/models"
)

type fixedLLM struct {
	mu      sync.Mutex
	reply   string
	prompts []string
}

func (f *fixedLLM) Complete(_ context.Context, messages []provider.Message, _ provider.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	return f.reply, nil
}

type offline struct{}

func (offline) Exec(context.Context, string) (models.Result, error) {
	return models.Result{}, assert.AnError
}

// failingStore breaks every load so handlers hit the error path.
type failingStore struct{ *inmemory.Store }

func (failingStore) Load(context.Context, string) (*session.Session, error) {
	return nil, assert.AnError
}

func newTestServer(t *testing.T, store session.Store) (*Server, *fixedLLM) {
	t.Helper()
	llm := &fixedLLM{reply: `{"company_name":"Zoom","snapshot":{"founded":"2011"}}`}
	docs := docstore.NewMemory()
	s := synth.New(llm, collector.New(offline{}, docs, 1, nil, nil), docs, synth.Heuristic{}, synth.Config{}, nil, nil)
	conv := conversation.New(store, s, intent.Keywords{}, nil, nil)
	return New(conv, metrics.New(), nil), llm
}

func do(t *testing.T, srv *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestInfoRoutes(t *testing.T) {
	srv, _ := newTestServer(t, inmemory.NewInMemorySessionStore(0))

	code, body := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Company Research Assistant backend running", body["message"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestChatEditAndReset(t *testing.T) {
	store := inmemory.NewInMemorySessionStore(0)
	srv, llm := newTestServer(t, store)

	code, body := do(t, srv, http.MethodPost, "/chat", `{"message":"hello","session_id":"web"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "👋 Hello! Tell me a company name, e.g. 'Create an account plan for Zoom'.", body["reply"])

	code, body = do(t, srv, http.MethodPost, "/chat", `{"message":"Create an account plan for Zoom","session_id":"web",
		"attachments":[{"title":"deck","text":"<p>Zoom &amp; friends</p>"}]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Generated account plan for Zoom.", body["reply"])
	assert.Equal(t, "detailed", body["format"])
	plan, ok := body["account_plan"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Zoom", plan["company_name"])
	assert.NotEmpty(t, body["progress"])
	assert.Contains(t, llm.prompts[0], "[deck | attachment-1] \nZoom & friends")

	code, body = do(t, srv, http.MethodPost, "/edit-section", `{"session_id":"web","section":"snapshot.founded","new_content":"2012"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Section updated and plan re-summarized.", body["reply"])
	assert.Contains(t, llm.prompts[1], `"founded":"2012"`)

	code, body = do(t, srv, http.MethodPost, "/edit-section", `{"session_id":"web","section":"market_opportunity.segment","new_content":"SMB"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Section not recognized.", body["error"])

	code, body = do(t, srv, http.MethodPost, "/reset?session_id=web", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Session cleared. Start fresh!", body["reply"])
	_, err := store.Load(context.Background(), "web")
	assert.ErrorIs(t, err, session.ErrNotFound)

	code, body = do(t, srv, http.MethodPost, "/edit-section", `{"session_id":"web","section":"snapshot","new_content":"{}"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Session not found. Generate a plan first.", body["error"])
}

func TestDigDeeperWithoutSession(t *testing.T) {
	srv, _ := newTestServer(t, inmemory.NewInMemorySessionStore(0))

	code, body := do(t, srv, http.MethodPost, "/dig-deeper", `{"session_id":"nobody","topic":"revenue"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Session not found. Generate an account plan first.", body["reply"])
}

func TestResetDefaults(t *testing.T) {
	store := inmemory.NewInMemorySessionStore(0)
	srv, _ := newTestServer(t, store)
	do(t, srv, http.MethodPost, "/chat", `{"message":"hi","session_id":"default-session"}`)

	code, body := do(t, srv, http.MethodPost, "/reset-session", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Session cleared. Start fresh!", body["reply"])
	_, err := store.Load(context.Background(), DefaultResetSession)
	assert.ErrorIs(t, err, session.ErrNotFound)

	code, _ = do(t, srv, http.MethodPost, "/reset", `{"session_id":"never-existed"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestErrorsAreDetail500(t *testing.T) {
	srv, _ := newTestServer(t, failingStore{inmemory.NewInMemorySessionStore(0)})

	code, body := do(t, srv, http.MethodPost, "/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body["detail"], assert.AnError.Error())

	code, body = do(t, srv, http.MethodPost, "/chat", `{"message":`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body["detail"], "invalid request")
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, inmemory.NewInMemorySessionStore(0))

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5500")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
