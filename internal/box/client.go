package box

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const userAgent = "boxbackup/0.1"

// DefaultBaseURL is the Box content API base.
const DefaultBaseURL = "https://api.box.com/2.0"

// DefaultTokenURL is the Box OAuth2 token endpoint.
const DefaultTokenURL = "https://api.box.com/oauth2/token" //nolint:gosec // endpoint URL, not a credential

// Client is an HTTP client for the Box API. It handles request
// construction, bearer authentication, and error classification. There is
// deliberately no retry loop: a failed exchange must not be replayed and
// collaborator grants are not idempotent, so the caller aborts instead.
type Client struct {
	baseURL    string
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Box API client. baseURL and tokenURL are typically
// DefaultBaseURL and DefaultTokenURL.
func NewClient(baseURL, tokenURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// do executes a single HTTP request against the content API with bearer
// authentication. The path is appended to the client's base URL. For
// non-nil bodies, Content-Type is set to application/json. Non-2xx
// responses become a *BoxError; the caller closes the body on success.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("box: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("box: %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	return nil, c.errorFromResponse(method, path, resp)
}

// errorFromResponse drains an error response into a *BoxError.
func (c *Client) errorFromResponse(method, path string, resp *http.Response) error {
	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	boxErr := &BoxError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("Box-Request-Id"),
		Message:    string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}

	c.logger.Error("request failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", boxErr.RequestID),
	)

	return boxErr
}
