package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("ожидали JSON с ошибкой: %v", err)
	}
	return body.Error
}

func TestTimeoutWritesJSONError(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	rec := httptest.NewRecorder()
	Timeout(10*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/functions/process-weekly-plans", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("ожидали 504, получили %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "request timeout" {
		t.Fatalf("неожиданный текст ошибки %q", msg)
	}
}

func TestTimeoutKeepsWrittenResponse(t *testing.T) {
	late := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	rec := httptest.NewRecorder()
	Timeout(10*time.Millisecond)(late).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("записанный ответ не должен перезаписываться, получили %d", rec.Code)
	}
}

func TestRecovererWritesJSONError(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	Recoverer(zerolog.Nop())(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("ожидали 500, получили %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "internal error" {
		t.Fatalf("неожиданный текст ошибки %q", msg)
	}
}
