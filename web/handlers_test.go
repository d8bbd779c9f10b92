package web_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidebot/guidebot/chat"
	"github.com/guidebot/guidebot/cookie"
	"github.com/guidebot/guidebot/session"
	"github.com/guidebot/guidebot/web"
)

const testSecret = "test-secret-key-32-characters!!!"

type testApp struct {
	router http.Handler
	store  *session.MemoryStore
	codec  *cookie.Codec
}

func newTestApp(t *testing.T, timeout time.Duration, clock func() time.Time) *testApp {
	t.Helper()

	store := session.NewMemoryStore()

	opts := []session.Option{}
	if clock != nil {
		opts = append(opts, session.WithClock(clock))
	}
	mgr := session.NewManager(store, timeout, opts...)

	codec, err := cookie.New("session_id", []string{testSecret})
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	streamer := chat.NewStreamer(mgr, chat.EchoGenerator{}, log)
	handlers := web.NewHandlers(mgr, codec, streamer, log)

	return &testApp{router: handlers.Router(), store: store, codec: codec}
}

func (a *testApp) do(method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	for _, ck := range cookies {
		r.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return w
}

func startSession(t *testing.T, a *testApp) (sessionID string, cookies []*http.Cookie) {
	t.Helper()

	w := a.do(http.MethodPost, "/start_session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["session_id"])

	return resp["session_id"], w.Result().Cookies()
}

func TestStartSession(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, time.Hour, nil)

	sessionID, cookies := startSession(t, app)

	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.Equal(t, "session_id", ck.Name)
	assert.True(t, ck.HttpOnly)
	assert.NotEqual(t, sessionID, ck.Value, "cookie value must be the signed encoding, not the raw identifier")

	stored, err := app.store.Read(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Empty(t, stored.History)
	assert.Equal(t, stored.LastActive.Add(time.Hour), stored.ExpiresAt)
}

func TestChat_HappyPath(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, time.Hour, nil)
	sessionID, cookies := startSession(t, app)

	// start() followed immediately by chat() never fails Expired or NotFound.
	w := app.do(http.MethodPost, "/chat", `{"user_input":"hello"}`, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), `"hello"`)

	stored, err := app.store.Read(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.Equal(t, "hello", stored.History[0].UserInput)
	assert.Equal(t, w.Body.String(), stored.History[0].BotResponse,
		"committed response must match what the client received")
}

func TestChat_RequiresSession(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, time.Hour, nil)

	t.Run("no cookie", func(t *testing.T) {
		w := app.do(http.MethodPost, "/chat", `{"user_input":"hi"}`, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Session not found")
	})

	t.Run("forged cookie", func(t *testing.T) {
		forged := []*http.Cookie{{Name: "session_id", Value: "forged-value"}}
		w := app.do(http.MethodPost, "/chat", `{"user_input":"hi"}`, forged)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("valid signature but deleted session", func(t *testing.T) {
		sessionID, cookies := startSession(t, app)
		require.NoError(t, app.store.Delete(context.Background(), sessionID))

		w := app.do(http.MethodPost, "/chat", `{"user_input":"hi"}`, cookies)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestChat_BadRequestBody(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, time.Hour, nil)
	_, cookies := startSession(t, app)

	for _, body := range []string{"", "{}", `{"user_input":""}`, "not json"} {
		w := app.do(http.MethodPost, "/chat", body, cookies)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestChat_ExpiredSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	app := newTestApp(t, time.Minute, func() time.Time { return *clock })
	sessionID, cookies := startSession(t, app)

	// Chat at T0+30s succeeds and slides the window to T0+90s.
	now = now.Add(30 * time.Second)
	w := app.do(http.MethodPost, "/chat", `{"user_input":"hi"}`, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := app.store.Read(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 1, 30, 0, time.UTC), stored.ExpiresAt)

	// Chat at T0+95s hits the expired window.
	now = now.Add(65 * time.Second)
	w = app.do(http.MethodPost, "/chat", `{"user_input":"hi"}`, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Session expired")

	// Lazy expiration cleaned the record up.
	_, err = app.store.Read(context.Background(), sessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// The expired cookie was cleared.
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestEndSession(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, time.Hour, nil)
	sessionID, cookies := startSession(t, app)

	w := app.do(http.MethodPost, "/end_session", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Session ended")

	_, err := app.store.Read(context.Background(), sessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Negative(t, cleared[0].MaxAge)

	t.Run("idempotent", func(t *testing.T) {
		// Same cookie again, record already gone: still success.
		w := app.do(http.MethodPost, "/end_session", "", cookies)
		assert.Equal(t, http.StatusOK, w.Code)

		// No cookie at all: still success.
		w = app.do(http.MethodPost, "/end_session", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestWelcome_NoSessionRequired(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, time.Hour, nil)

	w := app.do(http.MethodGet, "/welcome-message", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, time.Hour, nil)

	w := app.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
