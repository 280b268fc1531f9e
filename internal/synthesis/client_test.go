package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["text"] != "hello" || body["model"] != "default" {
			t.Errorf("unexpected body: %v", body)
		}
		if len(body) != 2 {
			t.Errorf("body has unexpected fields: %v", body)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-audio"))
	}))
	defer server.Close()

	c := NewClient(ClientConfig{Endpoint: server.URL, Timeout: 5 * time.Second})

	audio, err := c.Generate(context.Background(), "hello", "default")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(audio.Data) != "ID3-audio" {
		t.Errorf("data = %q", audio.Data)
	}
	if audio.ContentType != "audio/mpeg" {
		t.Errorf("content type = %q", audio.ContentType)
	}
}

func TestClient_Generate_NonSuccessStatus(t *testing.T) {
	tests := []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusServiceUnavailable}

	for _, status := range tests {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				w.Write([]byte("model not loaded"))
			}))
			defer server.Close()

			c := NewClient(ClientConfig{Endpoint: server.URL})

			_, err := c.Generate(context.Background(), "hello", "default")
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *StatusError", err)
			}
			if se.StatusCode != status {
				t.Errorf("status = %d, want %d", se.StatusCode, status)
			}
			if se.Body != "model not loaded" {
				t.Errorf("body = %q", se.Body)
			}
		})
	}
}

func TestClient_Generate_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	c := NewClient(ClientConfig{Endpoint: endpoint, Timeout: time.Second})

	if _, err := c.Generate(context.Background(), "hello", "default"); err == nil {
		t.Fatal("expected error when the endpoint is unreachable")
	}
}

func TestClient_Generate_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(ClientConfig{Endpoint: server.URL})
	if _, err := c.Generate(ctx, "hello", "default"); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestAudioContentType(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "audio/mpeg"},
		{"audio/wav", "audio/wav"},
		{"audio/mpeg; charset=binary", "audio/mpeg"},
		{"application/octet-stream", "audio/mpeg"},
		{";;;", "audio/mpeg"},
	}

	for _, tt := range tests {
		if got := audioContentType(tt.header); got != tt.want {
			t.Errorf("audioContentType(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
