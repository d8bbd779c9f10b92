package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/guidebot/guidebot/chat"
	"github.com/guidebot/guidebot/cookie"
	"github.com/guidebot/guidebot/logger"
	"github.com/guidebot/guidebot/session"
)

// defaultWelcome greets clients before a session exists.
const defaultWelcome = "Hello! Start a session and ask me anything about the area."

// Handlers carries the wiring for all HTTP routes.
type Handlers struct {
	sessions    *session.Manager
	codec       *cookie.Codec
	streamer    *chat.Streamer
	log         *slog.Logger
	welcome     string
	templateDir string
	staticDir   string
}

// HandlersOption configures optional handler behavior.
type HandlersOption func(*Handlers)

// WithWelcomeMessage overrides the static greeting.
func WithWelcomeMessage(msg string) HandlersOption {
	return func(h *Handlers) {
		if msg != "" {
			h.welcome = msg
		}
	}
}

// WithTemplateDir sets the directory holding index.html.
func WithTemplateDir(dir string) HandlersOption {
	return func(h *Handlers) {
		if dir != "" {
			h.templateDir = dir
		}
	}
}

// WithStaticDir sets the directory served under /static/.
func WithStaticDir(dir string) HandlersOption {
	return func(h *Handlers) {
		if dir != "" {
			h.staticDir = dir
		}
	}
}

// NewHandlers creates the route handler set.
func NewHandlers(sessions *session.Manager, codec *cookie.Codec, streamer *chat.Streamer, log *slog.Logger, opts ...HandlersOption) *Handlers {
	h := &Handlers{
		sessions:    sessions,
		codec:       codec,
		streamer:    streamer,
		log:         log.With(logger.Component("web")),
		welcome:     defaultWelcome,
		templateDir: "templates",
		staticDir:   "static",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router assembles the full route table. Only /chat requires a resolved
// session; start, end, welcome, health, and static assets are exempt.
func (h *Handlers) Router() http.Handler {
	requireSession := SessionMiddleware(h.codec, h.sessions, h.log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Index)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(h.staticDir))))
	mux.HandleFunc("GET /welcome-message", h.Welcome)
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("POST /start_session", h.StartSession)
	mux.Handle("POST /chat", requireSession(http.HandlerFunc(h.Chat)))
	mux.HandleFunc("POST /end_session", h.EndSession)
	return mux
}

// Index serves the chat page.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	page, err := os.ReadFile(filepath.Join(h.templateDir, "index.html"))
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<h1>404: File Not Found</h1>"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// Welcome returns the static greeting. No session required.
func (h *Handlers) Welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h.welcome))
}

// Health reports store reachability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Healthcheck(r.Context()); err != nil {
		h.log.ErrorContext(r.Context(), "healthcheck failed", logger.Error(err))
		writeDetail(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeDetail(w, http.StatusOK, "ok")
}

// StartSession creates a fresh session, issues the signed cookie, and
// returns the identifier. An identifier collision at creation is a genuine
// server fault.
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	record, err := h.sessions.Start(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to start session", logger.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	h.codec.Write(w, record.SessionID, h.sessions.Timeout())
	writeJSON(w, http.StatusOK, map[string]string{"session_id": record.SessionID})
}

// chatRequest is the /chat request body.
type chatRequest struct {
	UserInput string `json:"user_input"`
}

// Chat streams the generated response as text/plain fragments. The session
// record was attached by the middleware; the streamed turn is committed once
// the fragment sequence is exhausted.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	record, ok := RecordFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserInput == "" {
		writeDetail(w, http.StatusBadRequest, "user_input is required")
		return
	}

	// Refresh the cookie lifetime before the body starts streaming; headers
	// cannot change once the first fragment is written. The server-side
	// window is refreshed by the commit below with the same timeout.
	h.codec.Write(w, record.SessionID, h.sessions.Timeout())

	if err := h.streamer.Stream(w, r, record, req.UserInput); err != nil {
		// The stream is already closed; the commit failure was logged and is
		// only visible here as an out-of-band signal.
		h.log.ErrorContext(r.Context(), "chat turn not persisted",
			logger.Error(err), logger.SessionID(record.SessionID))
	}
}

// EndSession deletes the session record and clears the cookie. Deliberately
// not behind the session middleware: ending an already-ended or expired
// session must still return success, so a missing or stale cookie is not an
// error here.
func (h *Handlers) EndSession(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := h.codec.Read(r); ok {
		if err := h.sessions.End(r.Context(), sessionID); err != nil {
			h.log.ErrorContext(r.Context(), "failed to delete session",
				logger.Error(err), logger.SessionID(sessionID))
			writeDetail(w, http.StatusInternalServerError, "Failed to end session")
			return
		}
	}

	h.codec.Clear(w)
	writeDetail(w, http.StatusOK, "Session ended")
}
