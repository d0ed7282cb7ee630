package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCreateChatCompletion(t *testing.T) {
	var captured ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("неожиданный путь %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("неожиданный заголовок авторизации %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("не удалось разобрать запрос: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Olá Angola!  "}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	client := NewClient("sk-test", srv.URL+"/", time.Second)
	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model:     "gpt-4o-mini",
		MaxTokens: 500,
		Messages:  []ChatMessage{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "user"}},
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if resp.FirstContent() != "Olá Angola!" {
		t.Fatalf("неожиданный ответ %q", resp.FirstContent())
	}
	if captured.MaxTokens != 500 || len(captured.Messages) != 2 {
		t.Fatalf("запрос передан не полностью: %+v", captured)
	}
}

func TestCreateChatCompletionSendsZeroTemperature(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("не удалось разобрать запрос: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	client := NewClient("sk-test", srv.URL, time.Second)
	if _, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "gpt-4o-mini"}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if v, ok := raw["temperature"]; !ok || v != float64(0) {
		t.Fatalf("температура 0 должна передаваться явно: %v", raw)
	}
}

func TestCreateChatCompletionMissingKey(t *testing.T) {
	client := NewClient("  ", "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("ожидали ErrMissingAPIKey, получили %v", err)
	}
}

func TestCreateChatCompletionErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()

	client := NewClient("sk-test", srv.URL, time.Second)
	_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "Rate limit reached") {
		t.Fatalf("ожидали текст ошибки провайдера, получили %v", err)
	}
}
