package translation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
)

type completionServer struct {
	mu      sync.Mutex
	answer  string
	status  int
	systems []string
	temps   []float64
}

func (s *completionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	var body struct {
		Model       string   `json:"model"`
		Temperature *float64 `json:"temperature"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	if len(body.Messages) > 0 {
		s.systems = append(s.systems, body.Messages[0].Content)
	}
	if body.Temperature != nil {
		s.temps = append(s.temps, *body.Temperature)
	}
	status, answer := s.status, s.answer
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   body.Model,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": answer},
		}},
	})
}

func newTestTranslator(t *testing.T, srv *completionServer, opts ...TranslatorOption) *LLMTranslator {
	t.Helper()

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	client := openai.NewClient(
		option.WithBaseURL(ts.URL+"/"),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	tr, err := NewLLMTranslator(&client, "translator", opts...)
	if err != nil {
		t.Fatalf("NewLLMTranslator() error = %v", err)
	}
	return tr
}

func TestLLMTranslatorDetect(t *testing.T) {
	t.Parallel()

	cases := map[string]contractx.Language{
		"amharic_latin":   contractx.LanguageAmharicLatin,
		" English.\n":     contractx.LanguageEnglish,
		"\"amharic\"":     contractx.LanguageAmharic,
		"French, I think": contractx.LanguageOther,
	}
	for answer, want := range cases {
		tr := newTestTranslator(t, &completionServer{answer: answer})
		got, err := tr.Detect(context.Background(), "selam")
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if got != want {
			t.Fatalf("Detect() with answer %q = %s, want %s", answer, got, want)
		}
	}
}

func TestLLMTranslatorTranslate(t *testing.T) {
	t.Parallel()

	srv := &completionServer{answer: " I want avocados "}
	tr := newTestTranslator(t, srv)

	out, err := tr.ToEnglish(context.Background(), "avocado efeligalehu", contractx.LanguageAmharicLatin)
	if err != nil {
		t.Fatalf("ToEnglish() error = %v", err)
	}
	if out != "I want avocados" {
		t.Fatalf("unexpected translation: %q", out)
	}

	same, err := tr.FromEnglish(context.Background(), "hello", contractx.LanguageEnglish)
	if err != nil || same != "hello" {
		t.Fatalf("english target must pass through, got %q err=%v", same, err)
	}
	if len(srv.systems) != 1 || !strings.Contains(srv.systems[0], "into English") {
		t.Fatalf("unexpected prompts sent: %v", srv.systems)
	}
}

func TestLLMTranslatorErrorWrapsErrTranslate(t *testing.T) {
	t.Parallel()

	tr := newTestTranslator(t, &completionServer{status: http.StatusBadRequest})
	_, err := tr.FromEnglish(context.Background(), "hello", contractx.LanguageAmharic)
	if !errors.Is(err, contractx.ErrTranslate) {
		t.Fatalf("expected ErrTranslate, got %v", err)
	}
}

func TestLLMTranslatorFromEnglishKeepsUserScript(t *testing.T) {
	t.Parallel()

	srv := &completionServer{answer: "ok"}
	tr := newTestTranslator(t, srv)

	if _, err := tr.FromEnglish(context.Background(), "Your order was created.", contractx.LanguageAmharic); err != nil {
		t.Fatalf("FromEnglish(amharic) error = %v", err)
	}
	if _, err := tr.FromEnglish(context.Background(), "Your order was created.", contractx.LanguageAmharicLatin); err != nil {
		t.Fatalf("FromEnglish(amharic_latin) error = %v", err)
	}

	if len(srv.systems) != 2 {
		t.Fatalf("expected two completions, got %d", len(srv.systems))
	}
	fidel, latin := srv.systems[0], srv.systems[1]
	if fidel == latin {
		t.Fatalf("amharic and amharic_latin must use different prompts, both got %q", fidel)
	}
	if !strings.Contains(fidel, "Fidel script") {
		t.Fatalf("amharic target must ask for Fidel script: %q", fidel)
	}
	if !strings.Contains(latin, "Latin letters") || !strings.Contains(latin, "Do not use Fidel") {
		t.Fatalf("amharic_latin target must ask for Latin letters: %q", latin)
	}
}

func TestLLMTranslatorTemperature(t *testing.T) {
	t.Parallel()

	srv := &completionServer{answer: "english"}
	tr := newTestTranslator(t, srv, WithTemperature(0.3))
	if _, err := tr.Detect(context.Background(), "hello"); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	def := &completionServer{answer: "english"}
	if _, err := newTestTranslator(t, def).Detect(context.Background(), "hello"); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if len(srv.temps) != 1 || srv.temps[0] != 0.3 {
		t.Fatalf("configured temperature not sent: %v", srv.temps)
	}
	if len(def.temps) != 1 || def.temps[0] != 0 {
		t.Fatalf("default temperature must be 0: %v", def.temps)
	}
}
