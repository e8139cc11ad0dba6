package shortapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/vicraft/backend/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.Config{
		ShortAPIKey:     "test-key",
		ShortAPIBaseURL: srv.URL,
		RequestTimeout:  5 * time.Second,
	}, nil)
}

func TestCreateJob(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/job/create" {
			t.Errorf("path = %s, want /api/v1/job/create", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var body struct {
			Model string         `json:"model"`
			Args  map[string]any `json:"args"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "vidu/vidu-q2/text-to-video" {
			t.Errorf("model = %q", body.Model)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{"job_id": "job-123"},
		})
	})

	jobID, err := client.CreateJob(context.Background(), "vidu/vidu-q2/text-to-video", map[string]any{"prompt": "hills"})
	if err != nil {
		t.Fatalf("CreateJob error = %v", err)
	}
	if jobID != "job-123" {
		t.Fatalf("jobID = %q, want job-123", jobID)
	}
}

func TestCreateJobTopLevelJobID(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"job_id": "job-9"})
	})

	jobID, err := client.CreateJob(context.Background(), "m", nil)
	if err != nil {
		t.Fatalf("CreateJob error = %v", err)
	}
	if jobID != "job-9" {
		t.Fatalf("jobID = %q, want job-9", jobID)
	}
}

func TestCreateJobProviderError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	})

	if _, err := client.CreateJob(context.Background(), "m", nil); err == nil {
		t.Fatalf("CreateJob succeeded on 502, want error")
	}
}

func TestQueryJobEnvelope(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "job-123" {
			t.Errorf("id = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"status": 2,
				"result": map[string]any{"url": "https://cdn.example/out.png"},
			},
		})
	})

	status, err := client.QueryJob(context.Background(), "job-123")
	if err != nil {
		t.Fatalf("QueryJob error = %v", err)
	}
	if status.Status != StateSuccess {
		t.Fatalf("status = %d, want %d", status.Status, StateSuccess)
	}
	if urls := ExtractResultURLs(status.Result); !reflect.DeepEqual(urls, []string{"https://cdn.example/out.png"}) {
		t.Fatalf("urls = %v", urls)
	}
}

func TestPollJobUntilFailure(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		status := StateInProgress
		if calls >= 3 {
			status = StateFailed
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{"status": status, "error": "boom"},
		})
	})

	status, err := client.PollJob(context.Background(), "job-123", 10, time.Millisecond)
	if err != nil {
		t.Fatalf("PollJob error = %v", err)
	}
	if status.Status != StateFailed || status.Error != "boom" {
		t.Fatalf("status = %+v, want failed/boom", status)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestPollJobTimeout(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{"status": StateInProgress},
		})
	})

	_, err := client.PollJob(context.Background(), "job-123", 2, time.Millisecond)
	if err == nil {
		t.Fatalf("PollJob succeeded, want timeout error")
	}
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("err = %v, want ErrPollTimeout", err)
	}
}

func TestPollJobProviderErrorIsNotTimeout(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream hiccup", http.StatusInternalServerError)
	})

	_, err := client.PollJob(context.Background(), "job-123", 10, time.Millisecond)
	if err == nil {
		t.Fatalf("PollJob succeeded on 500, want error")
	}
	if errors.Is(err, ErrPollTimeout) {
		t.Fatalf("provider error reported as timeout: %v", err)
	}
}

func TestExtractResultURLs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"images array", `{"images":[{"url":"a"},{"url":"b"},{"note":"no url"}]}`, []string{"a", "b"}},
		{"bare string array", `["a","b"]`, []string{"a", "b"}},
		{"object array", `[{"url":"a"},{"url":"b"}]`, []string{"a", "b"}},
		{"single url", `{"url":"a"}`, []string{"a"}},
		{"video field", `{"video":"a"}`, []string{"a"}},
		{"videos array keeps first", `{"videos":[{"url":"a"},{"url":"b"}]}`, []string{"a"}},
		{"empty", ``, nil},
		{"unknown shape", `{"meta":42}`, nil},
		{"not json", `garbage`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractResultURLs(json.RawMessage(tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ExtractResultURLs(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
