package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/DarkAutumn/QuestionGrabber/db"
	"github.com/DarkAutumn/QuestionGrabber/grab"
)

// Handlers holds dependencies for all HTTP handlers. db may be nil when the
// question archive is disabled.
type Handlers struct {
	grabber   *grab.Grabber
	db        *sql.DB
	channel   string
	startedAt time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(g *grab.Grabber, database *sql.DB, channel string) *Handlers {
	return &Handlers{grabber: g, db: database, channel: channel, startedAt: time.Now().UTC()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleHealthz responds to liveness probes.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probes; with an archive configured it
// also checks database connectivity.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": "database",
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleItems returns the current visible sequence.
func (h *Handlers) HandleItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	items := h.grabber.Visible()
	writeJSON(w, http.StatusOK, map[string]any{
		"channel": h.channel,
		"count":   len(items),
		"items":   items,
	})
}

// HandleItemsStream pushes the visible sequence over Server-Sent Events: one
// event with the current snapshot on connect, then one per mutating dispatch
// pass.
func (h *Handlers) HandleItemsStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, cancel := h.grabber.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	enc := json.NewEncoder(w)
	send := func() bool {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return false
		}
		if err := enc.Encode(h.grabber.Visible()); err != nil {
			slog.Warn("failed to write SSE payload", slog.Any("err", err))
			return false
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if !send() {
				return
			}
		}
	}
}

// filterPayload is the wire shape of the four toggles; absent fields leave
// the corresponding toggle untouched on update.
type filterPayload struct {
	Questions   *bool `json:"questions,omitempty"`
	Important   *bool `json:"important,omitempty"`
	Status      *bool `json:"status,omitempty"`
	Subscribers *bool `json:"subscribers,omitempty"`
}

// HandleFilters reads (GET) or updates (POST) the visibility toggles. Updates
// are applied through the engine's refilter policy, never directly.
func (h *Handlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q, i, s, subs := h.grabber.Filters()
		writeJSON(w, http.StatusOK, map[string]bool{
			"questions": q, "important": i, "status": s, "subscribers": subs,
		})
	case http.MethodPost, http.MethodPut:
		var p filterPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if p.Questions != nil {
			h.grabber.SetShowQuestions(*p.Questions)
		}
		if p.Important != nil {
			h.grabber.SetShowImportantQuestions(*p.Important)
		}
		if p.Status != nil {
			h.grabber.SetShowStatus(*p.Status)
		}
		if p.Subscribers != nil {
			h.grabber.SetShowSubscribers(*p.Subscribers)
		}
		q, i, s, subs := h.grabber.Filters()
		writeJSON(w, http.StatusAccepted, map[string]bool{
			"questions": q, "important": i, "status": s, "subscribers": subs,
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleClear drops the grabbed list (administrative reset).
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.grabber.Clear()
	w.WriteHeader(http.StatusAccepted)
}

// HandleArchive lists recently archived questions; 404 when the archive is
// disabled.
func (h *Handlers) HandleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.db == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	questions, err := db.RecentQuestions(r.Context(), h.db, h.channel, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(questions), "questions": questions})
}
