package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCompleter struct {
	content string
	err     error
	calls   atomic.Int32
	last    ChatRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req ChatRequest) (string, error) {
	f.calls.Add(1)
	f.last = req
	return f.content, f.err
}

func (f *fakeCompleter) Model() string { return "test-model" }

func strPtr(s string) *string { return &s }

func TestClient_UnreachableBackendWrapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient("sk-test", url, "gpt-test", time.Second).Complete(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSuggestDescription_NotConfiguredFallsBack(t *testing.T) {
	svc := NewService(nil, time.Second, nil, nil)

	got := svc.SuggestDescription(context.Background(), DescriptionRequest{Title: "Login page", Context: strPtr("OAuth")})

	if got.AIGenerated {
		t.Fatalf("expected fallback")
	}
	if got.Description != "Complete the task: Login page\n\nAdditional context: OAuth" {
		t.Fatalf("unexpected description %q", got.Description)
	}
	if len(got.AcceptanceCriteria) != 4 || len(got.TechnicalNotes) != 3 {
		t.Fatalf("unexpected fallback lists: %+v", got)
	}
	if got.EstimatedHours == nil || *got.EstimatedHours != 2.0 {
		t.Fatalf("expected 2h estimate")
	}
	if len(got.Tags) != 1 || got.Tags[0] != "task" {
		t.Fatalf("unexpected tags %v", got.Tags)
	}
}

func TestSuggestDescription_UsesBackend(t *testing.T) {
	fc := &fakeCompleter{content: `{"description":"Build it","acceptance_criteria":["a","b","c"],"technical_notes":["n"],"estimated_hours":3.5,"tags":["backend"]}`}
	svc := NewService(fc, time.Second, nil, nil)

	got := svc.SuggestDescription(context.Background(), DescriptionRequest{Title: "API"})

	if !got.AIGenerated || got.Description != "Build it" || got.Title != "API" {
		t.Fatalf("unexpected response %+v", got)
	}
	if !fc.last.JSONObject || fc.last.MaxTokens != 1000 {
		t.Fatalf("unexpected request %+v", fc.last)
	}
	if !strings.Contains(fc.last.Messages[1].Content, "Project Type: web_application") ||
		!strings.Contains(fc.last.Messages[1].Content, "Complexity: medium") {
		t.Fatalf("defaults missing from prompt: %s", fc.last.Messages[1].Content)
	}
}

func TestSuggestDescription_BackendErrorsFallBack(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{"transport", &fakeCompleter{err: ErrUnavailable}},
		{"bad json", &fakeCompleter{content: "not json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewService(tt.fc, time.Second, nil, nil).SuggestDescription(context.Background(), DescriptionRequest{Title: "x"})
			if got.AIGenerated {
				t.Fatalf("expected fallback")
			}
		})
	}
}

func TestSuggestTitles(t *testing.T) {
	t.Run("fallback truncates", func(t *testing.T) {
		got := NewService(nil, time.Second, nil, nil).SuggestTitles(context.Background(), TitleRequest{Context: "auth", Count: 3})
		want := []string{"Implement auth", "Design auth", "Test auth"}
		if got.AIGenerated || strings.Join(got.Suggestions, "|") != strings.Join(want, "|") {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("fallback default count", func(t *testing.T) {
		got := NewService(nil, time.Second, nil, nil).SuggestTitles(context.Background(), TitleRequest{Context: "auth"})
		if len(got.Suggestions) != 5 {
			t.Fatalf("expected 5, got %v", got.Suggestions)
		}
	})

	t.Run("backend object", func(t *testing.T) {
		fc := &fakeCompleter{content: `{"titles":["One","Two","Three"]}`}
		got := NewService(fc, time.Second, nil, nil).SuggestTitles(context.Background(), TitleRequest{Context: "auth", Count: 2})
		if !got.AIGenerated || len(got.Suggestions) != 2 || got.Suggestions[1] != "Two" {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("backend bare array", func(t *testing.T) {
		fc := &fakeCompleter{content: `["One"]`}
		got := NewService(fc, time.Second, nil, nil).SuggestTitles(context.Background(), TitleRequest{Context: "auth"})
		if !got.AIGenerated || len(got.Suggestions) != 1 {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("backend empty falls back", func(t *testing.T) {
		fc := &fakeCompleter{content: `{"titles":[]}`}
		got := NewService(fc, time.Second, nil, nil).SuggestTitles(context.Background(), TitleRequest{Context: "auth", Count: 1})
		if got.AIGenerated || got.Suggestions[0] != "Implement auth" {
			t.Fatalf("got %+v", got)
		}
	})
}

func TestStatus(t *testing.T) {
	if rep := NewService(nil, time.Second, nil, nil).Status(context.Background()); rep.Status != StatusNotConfigured || rep.Available {
		t.Fatalf("got %+v", rep)
	}

	fc := &fakeCompleter{content: "hi"}
	svc := NewService(fc, time.Second, nil, nil)

	rep := svc.Status(context.Background())
	if rep.Status != StatusConnected || rep.Model != "test-model" {
		t.Fatalf("got %+v", rep)
	}

	_ = svc.Status(context.Background())
	if n := fc.calls.Load(); n != 1 {
		t.Fatalf("expected cached status, backend called %d times", n)
	}

	failing := NewService(&fakeCompleter{err: errors.New("401")}, time.Second, nil, nil)
	if rep := failing.Status(context.Background()); rep.Status != StatusError || rep.Available {
		t.Fatalf("got %+v", rep)
	}
}

func TestClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer key")
		}

		var body openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Model != "gpt-test" || body.MaxTokens != 200 {
			t.Errorf("unexpected payload %+v", body)
		}
		if body.ResponseFormat == nil || body.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
			t.Errorf("expected json_object response format, got %+v", body.ResponseFormat)
		}
		if len(body.Messages) != 1 || body.Messages[0].Content != "hi" {
			t.Errorf("unexpected messages %+v", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"ok\":true}  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", srv.URL+"/", "gpt-test", time.Second)

	got, err := c.Complete(context.Background(), ChatRequest{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   200,
		Temperature: 0.7,
		JSONObject:  true,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestClient_ErrorsWrapUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewClient("bad", srv.URL, "", time.Second).Complete(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected status in %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Fatalf("expected backend message in %v", err)
	}
}
