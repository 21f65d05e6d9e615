package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TobiSchelling/ChannelReports/internal/config"
)

func newTestProvider(url string) *OllamaProvider {
	return NewOllamaProvider(config.Narrative{
		URL:         url,
		Model:       "llama3",
		Temperature: 0.5,
		TopP:        0.9,
	})
}

func TestGenerateSendsRequest(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"response": "Likes are up."}`))
	}))
	defer srv.Close()

	text, err := newTestProvider(srv.URL).Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Likes are up." {
		t.Errorf("unexpected text %q", text)
	}
	if got.Model != "llama3" || got.Prompt != "hello" || got.Stream {
		t.Errorf("unexpected request %+v", got)
	}
	if got.Options.Temperature != 0.5 || got.Options.TopP != 0.9 {
		t.Errorf("unexpected options %+v", got.Options)
	}
}

func TestGenerateMissingResponseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"done": true}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Generate(context.Background(), "hello")
	if !errors.Is(err, ErrNoResponse) {
		t.Errorf("expected ErrNoResponse, got %v", err)
	}
}

func TestGenerateEmptyResponseIsNotMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": ""}`))
	}))
	defer srv.Close()

	text, err := newTestProvider(srv.URL).Generate(context.Background(), "hello")
	if err != nil || text != "" {
		t.Errorf("expected empty text without error, got %q %v", text, err)
	}
}

func TestGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if errors.Is(err, ErrNoResponse) {
		t.Error("HTTP errors must not be reported as a missing response")
	}
}

func TestGenerateMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	if _, err := newTestProvider(srv.URL).Generate(context.Background(), "hello"); err == nil {
		t.Error("expected decode error")
	}
}

func TestPingAcceptsAnyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	if err := newTestProvider(srv.URL).Ping(context.Background()); err != nil {
		t.Errorf("expected reachable endpoint, got %v", err)
	}
}

func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if err := newTestProvider(url).Ping(context.Background()); err == nil {
		t.Error("expected error for closed endpoint")
	}
}

func TestNewOllamaProviderDefaults(t *testing.T) {
	p := NewOllamaProvider(config.Narrative{URL: "http://x"})
	if p.client.Timeout != 30*time.Second {
		t.Errorf("expected 30s request timeout, got %v", p.client.Timeout)
	}
	if p.ProbeTimeout != 5*time.Second {
		t.Errorf("expected 5s probe timeout, got %v", p.ProbeTimeout)
	}
}
