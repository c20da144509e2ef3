package snapshot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rickgao/portfolio-sync/internal/api"
	"github.com/rickgao/portfolio-sync/internal/model"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc, opts Options) *Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := api.NewClient(api.BaseURLFromOrigin(server.URL), "")
	return NewFetcher(client, opts, nil)
}

func TestFetch_Balance(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"saldo_disponivel": 1000.5, "valor_total": 5000.0}`))
	}, DefaultOptions())

	res := f.Fetch(context.Background(), model.Balance)
	if !res.OK() {
		t.Fatalf("Fetch failed: %v", res.Failure)
	}
	if res.Resource != model.Balance {
		t.Errorf("Resource = %v, want %v", res.Resource, model.Balance)
	}
	b, ok := res.Value.(model.Wallet)
	if !ok {
		t.Fatalf("Value type = %T, want model.Wallet", res.Value)
	}
	if b.Available != 1000.5 || b.Total != 5000.0 {
		t.Errorf("Balance = %+v, want {1000.5 5000}", b)
	}
}

func TestFetch_QueryParameters(t *testing.T) {
	tests := []struct {
		name      string
		resource  model.Resource
		opts      Options
		wantPath  string
		wantQuery string
		body      string
	}{
		{
			name:      "transactions default limit",
			resource:  model.Transactions,
			opts:      DefaultOptions(),
			wantPath:  "/api/portfolio/transacoes",
			wantQuery: "limit=10",
			body:      `{"transacoes": []}`,
		},
		{
			name:      "open alerts only",
			resource:  model.Alerts,
			opts:      DefaultOptions(),
			wantPath:  "/api/alerts/",
			wantQuery: "limit=10&resolvido=false",
			body:      `{"alertas": []}`,
		},
		{
			name:      "all alerts",
			resource:  model.Alerts,
			opts:      Options{AlertsLimit: 25, IncludeResolvedAlerts: true},
			wantPath:  "/api/alerts/",
			wantQuery: "limit=25",
			body:      `{"alertas": []}`,
		},
		{
			name:     "holdings",
			resource: model.Holdings,
			opts:     DefaultOptions(),
			wantPath: "/api/portfolio/posicoes",
			body:     `{"posicoes": []}`,
		},
		{
			name:     "allocation",
			resource: model.Allocation,
			opts:     DefaultOptions(),
			wantPath: "/api/portfolio/distribuicao",
			body:     `{"distribuicao": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.wantPath {
					t.Errorf("path = %q, want %q", r.URL.Path, tt.wantPath)
				}
				if r.URL.RawQuery != tt.wantQuery {
					t.Errorf("query = %q, want %q", r.URL.RawQuery, tt.wantQuery)
				}
				w.Write([]byte(tt.body))
			}, tt.opts)

			if res := f.Fetch(context.Background(), tt.resource); !res.OK() {
				t.Errorf("Fetch failed: %v", res.Failure)
			}
		})
	}
}

func TestFetch_Failures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}, DefaultOptions())

		res := f.Fetch(context.Background(), model.Holdings)
		if res.OK() {
			t.Fatal("expected failure")
		}
		if res.Value != nil {
			t.Errorf("Value = %v, want nil", res.Value)
		}
		var apiErr *api.APIError
		if !errors.As(res.Failure, &apiErr) {
			t.Fatalf("Failure cause = %v, want *api.APIError", res.Failure.Cause)
		}
		if apiErr.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, http.StatusServiceUnavailable)
		}
		if res.Failure.Resource != model.Holdings {
			t.Errorf("Failure.Resource = %v, want %v", res.Failure.Resource, model.Holdings)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}, DefaultOptions())

		if res := f.Fetch(context.Background(), model.Balance); res.OK() {
			t.Error("expected failure for malformed body")
		}
	})

	t.Run("missing list key", func(t *testing.T) {
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}, DefaultOptions())

		res := f.Fetch(context.Background(), model.Alerts)
		if !errors.Is(res.Failure, api.ErrMissingField) {
			t.Errorf("Failure = %v, want ErrMissingField", res.Failure)
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		f := NewFetcher(api.NewClient(api.BaseURLFromOrigin(url), ""), DefaultOptions(), nil)
		if res := f.Fetch(context.Background(), model.Balance); res.OK() {
			t.Error("expected failure for closed server")
		}
	})

	t.Run("unknown resource", func(t *testing.T) {
		f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}, DefaultOptions())

		res := f.Fetch(context.Background(), model.Resource(99))
		if !errors.Is(res.Failure, api.ErrUnknownPayload) {
			t.Errorf("Failure = %v, want ErrUnknownPayload", res.Failure)
		}
	})
}

func TestFetchAll(t *testing.T) {
	bodies := map[string]string{
		"/api/portfolio/carteira":     `{"saldo_disponivel": 1, "valor_total": 2}`,
		"/api/portfolio/distribuicao": `{"distribuicao": []}`,
		"/api/portfolio/posicoes":     `{"posicoes": []}`,
		"/api/portfolio/transacoes":   `{"transacoes": []}`,
	}
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(body))
	}, DefaultOptions())

	results := f.FetchAll(context.Background())
	if len(results) != len(model.AllResources) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(model.AllResources))
	}
	for i, res := range results {
		if res.Resource != model.AllResources[i] {
			t.Errorf("results[%d].Resource = %v, want %v", i, res.Resource, model.AllResources[i])
		}
		wantOK := res.Resource != model.Alerts
		if res.OK() != wantOK {
			t.Errorf("%v OK = %v, want %v", res.Resource, res.OK(), wantOK)
		}
	}
}
