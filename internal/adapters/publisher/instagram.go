package publisher

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"superloja-social/internal/domain"
)

// DefaultPlaceholderImage подставляется, когда у поста нет картинки товара.
const DefaultPlaceholderImage = "https://superloja.vip/placeholder.svg"

// ErrInstagramNotConfigured возвращается без сетевого вызова.
var ErrInstagramNotConfigured = errors.New("instagram credentials not configured: INSTAGRAM_BUSINESS_ID and INSTAGRAM_ACCESS_TOKEN are required")

// Instagram публикует пост в два шага: контейнер медиа и его публикация.
type Instagram struct {
	graph       graphClient
	businessID  string
	token       string
	placeholder string
}

// NewInstagram создаёт клиента бизнес-аккаунта.
func NewInstagram(opts GraphOptions, businessID, token, placeholder string) *Instagram {
	placeholder = strings.TrimSpace(placeholder)
	if placeholder == "" {
		placeholder = DefaultPlaceholderImage
	}
	return &Instagram{
		graph:       newGraphClient(opts),
		businessID:  strings.TrimSpace(businessID),
		token:       strings.TrimSpace(token),
		placeholder: placeholder,
	}
}

// Platform возвращает площадку клиента.
func (i *Instagram) Platform() domain.Platform { return domain.PlatformInstagram }

// ImageURL возвращает картинку для контейнера, никогда не пустую.
func (i *Instagram) ImageURL(imageURL string) string {
	if strings.TrimSpace(imageURL) == "" {
		return i.placeholder
	}
	return imageURL
}

// Post создаёт контейнер и публикует его. Ссылки Instagram не поддерживает.
func (i *Instagram) Post(ctx context.Context, text, imageURL, _ string) (string, error) {
	if i.businessID == "" || i.token == "" {
		return "", ErrInstagramNotConfigured
	}
	media := url.Values{}
	media.Set("image_url", i.ImageURL(imageURL))
	media.Set("caption", text)
	media.Set("access_token", i.token)
	containerID, err := i.graph.post(ctx, domain.PlatformInstagram, i.businessID+"/media", media)
	if err != nil {
		return "", err
	}

	publish := url.Values{}
	publish.Set("creation_id", containerID)
	publish.Set("access_token", i.token)
	return i.graph.post(ctx, domain.PlatformInstagram, i.businessID+"/media_publish", publish)
}
