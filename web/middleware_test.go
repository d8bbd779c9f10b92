package web_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidebot/guidebot/cookie"
	"github.com/guidebot/guidebot/session"
	"github.com/guidebot/guidebot/web"
)

// faultyStore fails every read with a non-session error.
type faultyStore struct {
	session.Store
}

func (faultyStore) Read(context.Context, string) (*session.Record, error) {
	return nil, errors.New("store unreachable")
}

func TestSessionMiddleware_InjectsRecord(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	mgr := session.NewManager(store, time.Hour)
	codec, err := cookie.New("session_id", []string{testSecret})
	require.NoError(t, err)

	record, err := mgr.Start(context.Background())
	require.NoError(t, err)

	var seen *session.Record
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = web.RecordFromContext(r.Context())
	})

	mw := web.SessionMiddleware(codec, mgr, slog.New(slog.NewTextHandler(io.Discard, nil)))

	issuer := httptest.NewRecorder()
	codec.Write(issuer, record.SessionID, time.Hour)

	r := httptest.NewRequest(http.MethodPost, "/chat", nil)
	r.Header.Set("Cookie", issuer.Header().Get("Set-Cookie"))
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, r)

	require.NotNil(t, seen, "handler must receive the resolved record")
	assert.Equal(t, record.SessionID, seen.SessionID)
}

func TestSessionMiddleware_StoreFaultIsServerError(t *testing.T) {
	t.Parallel()

	mgr := session.NewManager(faultyStore{}, time.Hour)
	codec, err := cookie.New("session_id", []string{testSecret})
	require.NoError(t, err)

	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	mw := web.SessionMiddleware(codec, mgr, slog.New(slog.NewTextHandler(io.Discard, nil)))

	issuer := httptest.NewRecorder()
	codec.Write(issuer, "some-session", time.Hour)

	r := httptest.NewRequest(http.MethodPost, "/chat", nil)
	r.Header.Set("Cookie", issuer.Header().Get("Set-Cookie"))
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code,
		"an unreachable store is a genuine fault, not a missing session")
	assert.False(t, called, "resolver failure must short-circuit before the handler")
}
