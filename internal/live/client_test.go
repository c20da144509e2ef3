package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/rickgao/portfolio-sync/internal/config"
	"github.com/rickgao/portfolio-sync/internal/model"
	"github.com/rickgao/portfolio-sync/internal/store"
)

// backend is a fake portfolio server with REST resources and a /ws channel.
type backend struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	resources map[string]string // path -> body; missing paths return 500
	frames    []string          // written to every channel connection after upgrade

	alertFetches atomic.Int32
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		t: t,
		resources: map[string]string{
			"/api/portfolio/carteira":     `{"saldo_disponivel": 1000.5, "valor_total": 5000.0}`,
			"/api/portfolio/distribuicao": `{"distribuicao": []}`,
			"/api/portfolio/posicoes":     `{"posicoes": []}`,
			"/api/portfolio/transacoes":   `{"transacoes": []}`,
			"/api/alerts/":                `{"alertas": []}`,
		},
	}

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		b.mu.Lock()
		frames := append([]string(nil), b.frames...)
		b.mu.Unlock()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	mux.HandleFunc("/api/alerts/7/resolver", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte(`{"message": "Alerta resolvido", "alerta_id": 7}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/alerts/" {
			b.alertFetches.Add(1)
		}
		b.mu.Lock()
		body, ok := b.resources[r.URL.Path]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "boom"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) setResources(resources map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resources = resources
}

func (b *backend) setFrames(frames ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = frames
}

func testConfig(origin string) *config.Config {
	cfg := config.Default(origin)
	cfg.Refresh.Interval = time.Hour // only the immediate round
	cfg.Connection.RetryDelay = 50 * time.Millisecond
	return cfg
}

func startClient(t *testing.T, c *Client) {
	t.Helper()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Stop(ctx)
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_BalanceSnapshotReachesObserver(t *testing.T) {
	b := newBackend(t)

	c, err := New(testConfig(b.server.URL), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var mu sync.Mutex
	var balances []model.Wallet
	c.Subscribe(func(ch store.Change) {
		if ch.Resource != model.Balance {
			return
		}
		mu.Lock()
		balances = append(balances, ch.Value.(model.Wallet))
		mu.Unlock()
	})

	startClient(t, c)
	waitFor(t, "balance", func() bool { return c.Store().Version(model.Balance) == 1 })

	want := model.Wallet{Available: 1000.5, Total: 5000.0}

	got, ok := c.Store().Balance()
	if !ok {
		t.Fatal("Balance() unloaded")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Balance() mismatch (-want +got):\n%s", diff)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(balances) != 1 {
		t.Fatalf("observer called %d times for balance, want 1", len(balances))
	}
	if diff := cmp.Diff(want, balances[0]); diff != "" {
		t.Errorf("observed balance mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_EmptyAlertsAreLoaded(t *testing.T) {
	b := newBackend(t)

	c, err := New(testConfig(b.server.URL), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := c.Store().Alerts(); ok {
		t.Fatal("Alerts() loaded before Start")
	}

	startClient(t, c)
	waitFor(t, "alerts", func() bool { return c.Store().Version(model.Alerts) == 1 })

	alerts, ok := c.Store().Alerts()
	if !ok {
		t.Fatal("Alerts() unloaded, want loaded empty list")
	}
	if alerts == nil {
		t.Error("Alerts() = nil, want empty non-nil slice")
	}
	if len(alerts) != 0 {
		t.Errorf("len(Alerts()) = %d, want 0", len(alerts))
	}
}

func TestClient_MalformedFrameKeepsChannelOpen(t *testing.T) {
	b := newBackend(t)
	b.setResources(map[string]string{}) // every snapshot fails
	b.setFrames(`{"type": "carteira", "data": not json`)

	c, err := New(testConfig(b.server.URL), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	startClient(t, c)

	waitFor(t, "parse error", func() bool { return c.Status().Router.ParseErrors == 1 })

	// Give the manager a chance to misbehave before checking.
	time.Sleep(50 * time.Millisecond)

	st := c.Status()
	if st.Connection.State != model.Connected {
		t.Errorf("connection state = %v, want %v", st.Connection.State, model.Connected)
	}
	if st.Connection.Reconnects != 0 {
		t.Errorf("Reconnects = %d, want 0", st.Connection.Reconnects)
	}
	if v := c.Store().Version(model.Balance); v != 0 {
		t.Errorf("balance version = %d, want 0", v)
	}
}

func TestClient_PushedFrameUpdatesStore(t *testing.T) {
	b := newBackend(t)
	b.setResources(map[string]string{})
	b.setFrames(
		`{"message": "Connected", "data": "hello"}`,
		`{"type": "carteira", "data": {"saldo_disponivel": 10, "valor_total": 20}, "timestamp": "2025-03-01T10:00:00"}`,
	)

	c, err := New(testConfig(b.server.URL), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	startClient(t, c)

	waitFor(t, "pushed balance", func() bool { return c.Store().Version(model.Balance) == 1 })

	entry, _ := c.Store().Read(model.Balance)
	if entry.Source != model.SourcePush {
		t.Errorf("Source = %q, want %q", entry.Source, model.SourcePush)
	}
	if got := c.Status().Router.Ignored; got != 1 {
		t.Errorf("Ignored = %d, want 1", got)
	}
}

func TestClient_StatusListener(t *testing.T) {
	b := newBackend(t)

	c, err := New(testConfig(b.server.URL), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	events := make(chan bool, 4)
	c.OnStatusChange(func(connected bool) { events <- connected })

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case connected := <-events:
		if !connected {
			t.Error("first status = false, want true")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no status event")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case connected := <-events:
		if connected {
			t.Error("status after Stop = true, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("no status event after Stop")
	}
}

func TestClient_ResolveAlertRefreshesAlerts(t *testing.T) {
	b := newBackend(t)

	c, err := New(testConfig(b.server.URL), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	startClient(t, c)
	waitFor(t, "alerts", func() bool { return c.Store().Version(model.Alerts) == 1 })

	resp, err := c.ResolveAlert(context.Background(), 7)
	if err != nil {
		t.Fatalf("ResolveAlert() error = %v", err)
	}
	if resp.AlertID != 7 {
		t.Errorf("AlertID = %d, want 7", resp.AlertID)
	}

	if v := c.Store().Version(model.Alerts); v != 2 {
		t.Errorf("alerts version = %d, want 2", v)
	}
	if n := b.alertFetches.Load(); n != 2 {
		t.Errorf("alert fetches = %d, want 2", n)
	}
}

func TestClient_Lifecycle(t *testing.T) {
	b := newBackend(t)

	c, err := New(testConfig(b.server.URL), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := c.Stop(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Stop() before Start = %v, want ErrNotStarted", err)
	}

	startClient(t, c)

	if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestClient_StatusJSON(t *testing.T) {
	b := newBackend(t)

	c, err := New(testConfig(b.server.URL), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	startClient(t, c)
	waitFor(t, "first round", func() bool { return c.Status().Rounds >= 1 })

	data, err := json.Marshal(c.Status())
	if err != nil {
		t.Fatalf("Marshal(Status) error = %v", err)
	}

	var decoded struct {
		Versions map[string]uint64 `json:"versions"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if len(decoded.Versions) != len(model.AllResources) {
		t.Errorf("versions has %d entries, want %d", len(decoded.Versions), len(model.AllResources))
	}
	if _, ok := decoded.Versions["balance"]; !ok {
		t.Error("versions missing balance")
	}
}

func TestNew_InvalidOrigin(t *testing.T) {
	cfg := config.Default("ftp://example.com")
	if _, err := New(cfg, nil); err == nil {
		t.Error("New() expected error for ftp origin")
	}
}
