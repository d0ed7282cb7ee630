package publisher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"superloja-social/internal/domain"
)

type graphCall struct {
	path string
	form url.Values
}

type graphStub struct {
	mu     sync.Mutex
	calls  []graphCall
	status int
	body   string
}

func (s *graphStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("ожидали POST, получили %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("форма не разобрана: %v", err)
		}
		s.mu.Lock()
		s.calls = append(s.calls, graphCall{path: r.URL.Path, form: r.PostForm})
		n := len(s.calls)
		s.mu.Unlock()
		if s.status != 0 {
			w.WriteHeader(s.status)
			_, _ = w.Write([]byte(s.body))
			return
		}
		if strings.HasSuffix(r.URL.Path, "/media") {
			_, _ = w.Write([]byte(`{"id":"container-1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"ext-` + strconv.Itoa(n) + `"}`))
	}
}

type productsStub struct {
	images map[uuid.UUID]string
}

func (p productsStub) GetProductImage(_ context.Context, id uuid.UUID) (string, error) {
	image, ok := p.images[id]
	if !ok {
		return "", domain.ErrProductNotFound
	}
	return image, nil
}

type historyStub struct {
	entries []domain.HistoryEntry
}

func (h *historyStub) AppendHistory(_ context.Context, entry domain.HistoryEntry) error {
	h.entries = append(h.entries, entry)
	return nil
}

func newStubServer(t *testing.T, stub *graphStub) GraphOptions {
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	return GraphOptions{BaseURL: srv.URL, Version: "v18.0", HTTPClient: srv.Client()}
}

func TestFacebookPostsToPageFeed(t *testing.T) {
	stub := &graphStub{}
	fb := NewFacebook(newStubServer(t, stub), "page-1", "token-1")

	id, err := fb.Post(context.Background(), "Olá Luanda", "", "https://superloja.vip")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if id != "ext-1" {
		t.Fatalf("неожиданный id: %s", id)
	}
	call := stub.calls[0]
	if call.path != "/v18.0/page-1/feed" {
		t.Fatalf("неожиданный путь: %s", call.path)
	}
	if call.form.Get("message") != "Olá Luanda" || call.form.Get("link") != "https://superloja.vip" || call.form.Get("access_token") != "token-1" {
		t.Fatalf("неожиданная форма: %v", call.form)
	}
}

func TestFacebookErrorCarriesRawBody(t *testing.T) {
	body := `{"error":{"message":"Invalid OAuth access token","code":190}}`
	stub := &graphStub{status: http.StatusBadRequest, body: body}
	fb := NewFacebook(newStubServer(t, stub), "page-1", "token-1")

	_, err := fb.Post(context.Background(), "texto", "", "")
	if err == nil {
		t.Fatalf("ожидали ошибку")
	}
	if err.Error() != "Facebook API error: "+body {
		t.Fatalf("неожиданный текст ошибки: %s", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("ожидали APIError с кодом 400, получили %#v", err)
	}
}

func TestMissingCredentialsFailWithoutRequest(t *testing.T) {
	stub := &graphStub{}
	opts := newStubServer(t, stub)

	if _, err := NewFacebook(opts, "", "token").Post(context.Background(), "x", "", ""); !errors.Is(err, ErrFacebookNotConfigured) {
		t.Fatalf("ожидали ErrFacebookNotConfigured, получили %v", err)
	}
	if _, err := NewInstagram(opts, "biz", "", "").Post(context.Background(), "x", "", ""); !errors.Is(err, ErrInstagramNotConfigured) {
		t.Fatalf("ожидали ErrInstagramNotConfigured, получили %v", err)
	}
	if len(stub.calls) != 0 {
		t.Fatalf("без учётных данных запросов быть не должно, было %d", len(stub.calls))
	}
}

func TestInstagramTwoStepWithPlaceholder(t *testing.T) {
	stub := &graphStub{}
	ig := NewInstagram(newStubServer(t, stub), "biz-1", "ig-token", "")

	id, err := ig.Post(context.Background(), "Legenda #SuperLoja", "", "")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(stub.calls) != 2 {
		t.Fatalf("ожидали два запроса, получили %d", len(stub.calls))
	}
	media, publish := stub.calls[0], stub.calls[1]
	if media.path != "/v18.0/biz-1/media" || publish.path != "/v18.0/biz-1/media_publish" {
		t.Fatalf("неожиданные пути: %s, %s", media.path, publish.path)
	}
	if got := media.form.Get("image_url"); got != DefaultPlaceholderImage {
		t.Fatalf("ожидали картинку-заглушку, получили %q", got)
	}
	if media.form.Get("caption") != "Legenda #SuperLoja" {
		t.Fatalf("неожиданная подпись: %v", media.form)
	}
	if publish.form.Get("creation_id") != "container-1" {
		t.Fatalf("публикация должна ссылаться на контейнер: %v", publish.form)
	}
	if id != "ext-2" {
		t.Fatalf("неожиданный id: %s", id)
	}
}

func TestRegistryResolvesProductImageAndRecordsHistory(t *testing.T) {
	stub := &graphStub{}
	opts := newStubServer(t, stub)
	productID := uuid.New()
	history := &historyStub{}
	reg := NewRegistry(
		productsStub{images: map[uuid.UUID]string{productID: "https://cdn.superloja.vip/fone.jpg"}},
		history,
		zerolog.Nop(),
		[]Client{NewFacebook(opts, "page", "fb"), NewInstagram(opts, "biz", "ig", "")},
		WithDefaultLink("https://superloja.vip"),
	)

	postID := uuid.New()
	res, err := reg.Publish(context.Background(), domain.PublishRequest{PostID: postID, Platform: domain.PlatformInstagram, Text: "Oferta", ProductID: &productID})
	if err != nil || !res.Success {
		t.Fatalf("ожидали успех, получили %+v, %v", res, err)
	}
	if got := stub.calls[0].form.Get("image_url"); got != "https://cdn.superloja.vip/fone.jpg" {
		t.Fatalf("ожидали картинку товара, получили %q", got)
	}
	if len(history.entries) != 1 {
		t.Fatalf("ожидали одну запись истории, получили %d", len(history.entries))
	}
	entry := history.entries[0]
	if entry.PostID != postID || !entry.Success || entry.ExternalPostID != res.ExternalID || entry.ImageURL != "https://cdn.superloja.vip/fone.jpg" {
		t.Fatalf("неожиданная запись истории: %+v", entry)
	}

	if _, err := reg.Publish(context.Background(), domain.PublishRequest{PostID: postID, Platform: domain.PlatformFacebook, Text: "Oi"}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got := stub.calls[2].form.Get("link"); got != "https://superloja.vip" {
		t.Fatalf("ожидали ссылку по умолчанию, получили %q", got)
	}
}

func TestRegistryRecordsFailedAttempt(t *testing.T) {
	stub := &graphStub{status: http.StatusForbidden, body: `{"error":{"message":"blocked"}}`}
	history := &historyStub{}
	reg := NewRegistry(nil, history, zerolog.Nop(), []Client{NewInstagram(newStubServer(t, stub), "biz", "ig", "")}, WithRateLimit(100))

	missing := uuid.New()
	res, err := reg.Publish(context.Background(), domain.PublishRequest{PostID: uuid.New(), Platform: domain.PlatformInstagram, Text: "x", ProductID: &missing})
	if err == nil || res.Success {
		t.Fatalf("ожидали неуспех")
	}
	if res.ErrorBody != `{"error":{"message":"blocked"}}` {
		t.Fatalf("в результате ожидали сырое тело ошибки, получили %q", res.ErrorBody)
	}
	if len(history.entries) != 1 || history.entries[0].Success || history.entries[0].ErrorMessage != res.ErrorBody {
		t.Fatalf("ожидали запись о неудаче: %+v", history.entries)
	}
	if history.entries[0].ImageURL != DefaultPlaceholderImage {
		t.Fatalf("без репозитория товаров ожидали заглушку, получили %q", history.entries[0].ImageURL)
	}
}

func TestRegistryUnknownPlatform(t *testing.T) {
	reg := NewRegistry(nil, nil, zerolog.Nop(), nil)
	if _, err := reg.Publish(context.Background(), domain.PublishRequest{Platform: "tiktok"}); err == nil {
		t.Fatalf("ожидали ошибку для неизвестной площадки")
	}
}
