package chat_test

import (
	"context"
	"errors"
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
	"github.com/guidebot/guidebot/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedGenerator replays a fixed fragment sequence.
type scriptedGenerator struct {
	fragments []chat.Fragment
	openErr   error
}

func (g scriptedGenerator) Generate(ctx context.Context, _ string, _ *session.Record) (<-chan chat.Fragment, error) {
	if g.openErr != nil {
		return nil, g.openErr
	}
	out := make(chan chat.Fragment, len(g.fragments))
	for _, f := range g.fragments {
		out <- f
	}
	close(out)
	return out, nil
}

// blockingGenerator produces fragments until the context is cancelled.
type blockingGenerator struct {
	produced chan string
}

func (g blockingGenerator) Generate(ctx context.Context, _ string, _ *session.Record) (<-chan chat.Fragment, error) {
	out := make(chan chat.Fragment)
	go func() {
		defer close(out)
		for _, text := range []string{"partial ", "answer"} {
			select {
			case <-ctx.Done():
				return
			case out <- chat.Fragment{Text: text}:
				g.produced <- text
			}
		}
		// Block until cancelled; the consumer is expected to stop reading.
		<-ctx.Done()
	}()
	return out, nil
}

func setup(t *testing.T, gen chat.Generator) (*chat.Streamer, *session.Manager, *session.Record) {
	t.Helper()

	store := session.NewMemoryStore()
	mgr := session.NewManager(store, time.Minute)
	record, err := mgr.Start(context.Background())
	require.NoError(t, err)

	return chat.NewStreamer(mgr, gen, discardLogger()), mgr, record
}

func TestStreamer_Success(t *testing.T) {
	t.Parallel()

	gen := scriptedGenerator{fragments: []chat.Fragment{
		{Text: "The "}, {Text: "town "}, {Text: "hall "}, {Text: "opens at 9."},
	}}
	streamer, mgr, record := setup(t, gen)
	before := record.LastActive

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/chat", nil)

	err := streamer.Stream(w, r, record, "when does the town hall open?")
	require.NoError(t, err)

	assert.Equal(t, "The town hall opens at 9.", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, w.Flushed, "fragments must be flushed as they arrive")

	stored, err := mgr.Resolve(context.Background(), record.SessionID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.Equal(t, "when does the town hall open?", stored.History[0].UserInput)
	assert.Equal(t, "The town hall opens at 9.", stored.History[0].BotResponse)
	assert.False(t, stored.History[0].Timestamp.IsZero())
	assert.False(t, stored.LastActive.Before(before))
}

func TestStreamer_GenerationFailureMidStream(t *testing.T) {
	t.Parallel()

	gen := scriptedGenerator{fragments: []chat.Fragment{
		{Text: "The town hall "},
		{Err: errors.New("model unavailable")},
	}}
	streamer, mgr, record := setup(t, gen)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/chat", nil)

	err := streamer.Stream(w, r, record, "when does it open?")
	require.NoError(t, err, "generation failure is swallowed into the response text")

	assert.Contains(t, w.Body.String(), "The town hall ")
	assert.Contains(t, w.Body.String(), "error", "a visible error fragment is still forwarded")

	stored, err := mgr.Resolve(context.Background(), record.SessionID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1, "a failed generation must still record exactly one attempt")
	assert.Contains(t, stored.History[0].BotResponse, "error")
	assert.Contains(t, stored.History[0].BotResponse, "The town hall ")
}

func TestStreamer_GenerationFailsToOpen(t *testing.T) {
	t.Parallel()

	gen := scriptedGenerator{openErr: errors.New("no api key")}
	streamer, mgr, record := setup(t, gen)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/chat", nil)

	err := streamer.Stream(w, r, record, "hello")
	require.NoError(t, err)

	assert.Contains(t, w.Body.String(), "error")

	stored, err := mgr.Resolve(context.Background(), record.SessionID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.Contains(t, stored.History[0].BotResponse, "error")
}

func TestStreamer_ClientDisconnect(t *testing.T) {
	t.Parallel()

	gen := blockingGenerator{produced: make(chan string, 2)}
	streamer, mgr, record := setup(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/chat", nil).WithContext(ctx)

	// Cancel once the first fragment has been produced.
	go func() {
		<-gen.produced
		cancel()
	}()

	err := streamer.Stream(w, r, record, "hello")
	require.NoError(t, err)

	// The commit still ran: whatever was generated so far is the turn of
	// record, even though the request context is dead.
	stored, err := mgr.Resolve(context.Background(), record.SessionID)
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.True(t, strings.HasPrefix("partial answer", stored.History[0].BotResponse) ||
		stored.History[0].BotResponse == "",
		"committed response must be a prefix of the generated text, got %q", stored.History[0].BotResponse)
}

func TestStreamer_CommitFailure(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	mgr := session.NewManager(store, time.Minute)
	record, err := mgr.Start(context.Background())
	require.NoError(t, err)

	// Deleting the record before the commit makes the update fail with
	// NotFound, the same shape as a store rejecting the write.
	require.NoError(t, store.Delete(context.Background(), record.SessionID))

	gen := scriptedGenerator{fragments: []chat.Fragment{{Text: "answer"}}}
	streamer := chat.NewStreamer(mgr, gen, discardLogger())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/chat", nil)

	err = streamer.Stream(w, r, record, "hello")
	require.Error(t, err, "persistence failure surfaces to the caller, not the closed stream")
	assert.ErrorIs(t, err, session.ErrNotFound)

	// The client already received the streamed body.
	assert.Equal(t, "answer", w.Body.String())
}

func TestEchoGenerator(t *testing.T) {
	t.Parallel()

	record := session.NewRecord(time.Minute)
	fragments, err := chat.EchoGenerator{}.Generate(context.Background(), "hola", record)
	require.NoError(t, err)

	var full strings.Builder
	for frag := range fragments {
		require.NoError(t, frag.Err)
		full.WriteString(frag.Text)
	}
	assert.Contains(t, full.String(), `"hola"`)
	assert.Contains(t, full.String(), "turn 1")
}
