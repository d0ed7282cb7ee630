package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"superloja-social/internal/domain"
	"superloja-social/internal/infra/metrics"
)

// APIError — ответ площадки с не-2xx статусом. Тело не интерпретируется.
type APIError struct {
	Platform domain.Platform
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s", platformTitle(e.Platform), e.Body)
}

func platformTitle(p domain.Platform) string {
	switch p {
	case domain.PlatformFacebook:
		return "Facebook"
	case domain.PlatformInstagram:
		return "Instagram"
	default:
		return string(p)
	}
}

// GraphOptions общие настройки Graph API.
type GraphOptions struct {
	BaseURL    string
	Version    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type graphClient struct {
	http    *http.Client
	baseURL string
	version string
	timeout time.Duration
}

func newGraphClient(opts GraphOptions) graphClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://graph.facebook.com"
	}
	version := strings.Trim(opts.Version, "/")
	if version == "" {
		version = "v18.0"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return graphClient{http: client, baseURL: base, version: version, timeout: timeout}
}

type graphIDResponse struct {
	ID string `json:"id"`
}

// post отправляет форму на {base}/{version}/{path} и возвращает поле id ответа.
func (g graphClient) post(ctx context.Context, platform domain.Platform, path string, form url.Values) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	endpoint := g.baseURL + "/" + g.version + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", platform, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	operation := path[strings.LastIndex(path, "/")+1:]
	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("graph_api", operation, string(platform), start, err)
		return "", fmt.Errorf("%s: do request: %w", platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("graph_api", operation, string(platform), start, err)
		return "", fmt.Errorf("%s: read response: %w", platform, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Platform: platform, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		metrics.ObserveNetworkRequest("graph_api", operation, string(platform), start, apiErr)
		return "", apiErr
	}
	metrics.ObserveNetworkRequest("graph_api", operation, string(platform), start, nil)

	var parsed graphIDResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", platform, err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("%s: response without id: %s", platform, strings.TrimSpace(string(body)))
	}
	return parsed.ID, nil
}
