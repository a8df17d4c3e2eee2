package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DarkAutumn/QuestionGrabber/grab"
)

func startTestEngine(t *testing.T) *grab.Grabber {
	t.Helper()
	g := grab.New(grab.Config{
		Keywords: grab.Keywords{Grab: []string{"question", "?"}},
		Tick:     2 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go g.Run(ctx)
	return g
}

// waitVisible polls until the published snapshot holds want items.
func waitVisible(t *testing.T, g *grab.Grabber, want int) []grab.Item {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if items := g.Visible(); len(items) == want {
			return items
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("snapshot never reached %d items (have %d)", want, len(g.Visible()))
	return nil
}

func TestHandleHealthz(t *testing.T) {
	h := NewHandlers(startTestEngine(t), nil, "darkautumn")
	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandleReadyzWithoutArchive(t *testing.T) {
	h := NewHandlers(startTestEngine(t), nil, "darkautumn")
	rec := httptest.NewRecorder()
	h.HandleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestHandleItems(t *testing.T) {
	g := startTestEngine(t)
	h := NewHandlers(g, nil, "darkautumn")

	g.OnMessage("alice", "my question about saves")
	waitVisible(t, g, 1)

	rec := httptest.NewRecorder()
	h.HandleItems(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("items = %d", rec.Code)
	}
	var body struct {
		Channel string      `json:"channel"`
		Count   int         `json:"count"`
		Items   []grab.Item `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Channel != "darkautumn" || body.Count != 1 || len(body.Items) != 1 {
		t.Fatalf("unexpected payload: %+v", body)
	}
	if body.Items[0].User != "alice" || body.Items[0].Index != 0 {
		t.Errorf("item = %+v", body.Items[0])
	}

	rec = httptest.NewRecorder()
	h.HandleItems(rec, httptest.NewRequest(http.MethodPost, "/items", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /items = %d", rec.Code)
	}
}

func TestHandleFilters(t *testing.T) {
	g := startTestEngine(t)
	h := NewHandlers(g, nil, "darkautumn")

	rec := httptest.NewRecorder()
	h.HandleFilters(rec, httptest.NewRequest(http.MethodGet, "/filters", nil))
	var flags map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &flags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for name, on := range flags {
		if !on {
			t.Errorf("default %s = false", name)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/filters", strings.NewReader(`{"status":false}`))
	rec = httptest.NewRecorder()
	h.HandleFilters(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /filters = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &flags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if flags["status"] || !flags["questions"] {
		t.Errorf("flags after update = %v", flags)
	}

	req = httptest.NewRequest(http.MethodPost, "/filters", strings.NewReader("not json"))
	rec = httptest.NewRecorder()
	h.HandleFilters(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d", rec.Code)
	}
}

func TestHandleClear(t *testing.T) {
	g := startTestEngine(t)
	h := NewHandlers(g, nil, "darkautumn")

	g.OnMessage("alice", "a question")
	waitVisible(t, g, 1)

	rec := httptest.NewRecorder()
	h.HandleClear(rec, httptest.NewRequest(http.MethodPost, "/clear", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("clear = %d", rec.Code)
	}
	waitVisible(t, g, 0)

	rec = httptest.NewRecorder()
	h.HandleClear(rec, httptest.NewRequest(http.MethodGet, "/clear", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /clear = %d", rec.Code)
	}
}

func TestHandleArchiveDisabled(t *testing.T) {
	h := NewHandlers(startTestEngine(t), nil, "darkautumn")
	rec := httptest.NewRecorder()
	h.HandleArchive(rec, httptest.NewRequest(http.MethodGet, "/archive", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("archive without db = %d", rec.Code)
	}
}

func TestItemsStreamSSE(t *testing.T) {
	g := startTestEngine(t)
	srv := httptest.NewServer(NewMux(g, nil, "darkautumn"))
	defer srv.Close()

	g.OnMessage("alice", "first question")
	waitVisible(t, g, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/items/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	readEvent := func() []grab.Item {
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var items []grab.Item
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &items); err != nil {
				t.Fatalf("decode SSE payload: %v", err)
			}
			return items
		}
		t.Fatalf("stream closed without an event: %v", scanner.Err())
		return nil
	}

	initial := readEvent()
	if len(initial) != 1 || initial[0].User != "alice" {
		t.Fatalf("initial snapshot = %+v", initial)
	}

	g.OnMessage("bob", "second question")
	update := readEvent()
	if len(update) != 2 {
		t.Fatalf("update snapshot has %d items", len(update))
	}
}

func TestMuxCORSAndCorrelation(t *testing.T) {
	g := startTestEngine(t)
	mux := NewMux(g, nil, "darkautumn")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/items", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS preflight = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("correlation ID not generated")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	mux.ServeHTTP(rec, req)
	if rec.Header().Get("X-Correlation-ID") != "corr-123" {
		t.Error("caller correlation ID not echoed")
	}
}
