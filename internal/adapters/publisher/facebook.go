package publisher

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"superloja-social/internal/domain"
)

// ErrFacebookNotConfigured возвращается без сетевого вызова.
var ErrFacebookNotConfigured = errors.New("facebook credentials not configured: FACEBOOK_PAGE_ID and FACEBOOK_PAGE_TOKEN are required")

// Facebook публикует пост в ленту страницы.
type Facebook struct {
	graph  graphClient
	pageID string
	token  string
}

// NewFacebook создаёт клиента страницы.
func NewFacebook(opts GraphOptions, pageID, token string) *Facebook {
	return &Facebook{graph: newGraphClient(opts), pageID: strings.TrimSpace(pageID), token: strings.TrimSpace(token)}
}

// Platform возвращает площадку клиента.
func (f *Facebook) Platform() domain.Platform { return domain.PlatformFacebook }

// Post выполняет один POST /{page-id}/feed. Картинка в ленту не передаётся.
func (f *Facebook) Post(ctx context.Context, text, _, link string) (string, error) {
	if f.pageID == "" || f.token == "" {
		return "", ErrFacebookNotConfigured
	}
	form := url.Values{}
	form.Set("message", text)
	if link != "" {
		form.Set("link", link)
	}
	form.Set("access_token", f.token)
	return f.graph.post(ctx, domain.PlatformFacebook, f.pageID+"/feed", form)
}
