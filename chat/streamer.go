package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/guidebot/guidebot/logger"
	"github.com/guidebot/guidebot/session"
)

// generationErrorNotice is forwarded to the client and recorded in history
// when the generator fails mid-stream, so the conversation log stays
// consistent with what the client saw.
const generationErrorNotice = "\n[error: the assistant could not complete this response]"

// Streamer relays generated fragments to the client as they arrive and, once
// the sequence is exhausted, commits the accumulated turn to the session
// record. Delivery is at-least-as-live: every fragment is flushed before the
// next one is awaited.
type Streamer struct {
	sessions *session.Manager
	gen      Generator
	log      *slog.Logger
}

// NewStreamer creates a streaming chat handler.
func NewStreamer(sessions *session.Manager, gen Generator, log *slog.Logger) *Streamer {
	return &Streamer{
		sessions: sessions,
		gen:      gen,
		log:      log.With(logger.Component("chat")),
	}
}

// Stream drives one chat interaction: open the fragment sequence, forward
// each fragment to the client immediately while accumulating it, then commit
// the turn. A generation failure is converted into a visible error fragment
// and the attempt is still committed; a client disconnect stops forwarding
// but the commit still runs for whatever was generated so far.
//
// A commit failure is returned to the caller. The client has already
// received the streamed body at that point, so the error is only available
// out of band.
func (s *Streamer) Stream(w http.ResponseWriter, r *http.Request, record *session.Record, userInput string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	var accumulated strings.Builder
	failed := false

	fragments, err := s.gen.Generate(r.Context(), userInput, record)
	if err != nil {
		// The sequence never opened; record the attempt like a mid-stream
		// failure so the history still gains exactly one entry.
		s.log.ErrorContext(r.Context(), "generation failed to start",
			logger.Error(err), logger.SessionID(record.SessionID))
		failed = true
		fmt.Fprint(w, generationErrorNotice)
		flusher.Flush()
		accumulated.WriteString(generationErrorNotice)
	} else {
	streaming:
		for {
			select {
			case <-r.Context().Done():
				// Client is gone: stop forwarding, keep what was generated.
				break streaming

			case frag, open := <-fragments:
				if !open {
					break streaming
				}
				if frag.Err != nil {
					s.log.ErrorContext(r.Context(), "generation failed mid-stream",
						logger.Error(frag.Err), logger.SessionID(record.SessionID))
					failed = true
					fmt.Fprint(w, generationErrorNotice)
					flusher.Flush()
					accumulated.WriteString(generationErrorNotice)
					break streaming
				}

				if _, err := fmt.Fprint(w, frag.Text); err != nil {
					break streaming
				}
				flusher.Flush()
				accumulated.WriteString(frag.Text)
			}
		}
	}

	// The commit must run even when the request context is already dead;
	// generation is not free to retry or resume, so whatever was produced is
	// the turn of record.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
	defer cancel()

	turn := session.Turn{
		UserInput:   userInput,
		BotResponse: accumulated.String(),
	}
	if err := s.sessions.Commit(commitCtx, record, turn); err != nil {
		s.log.ErrorContext(commitCtx, "failed to commit chat turn",
			logger.Error(err), logger.SessionID(record.SessionID))
		return fmt.Errorf("commit chat turn: %w", err)
	}

	if failed {
		s.log.WarnContext(commitCtx, "chat turn committed with generation error",
			logger.SessionID(record.SessionID))
	}

	return nil
}
