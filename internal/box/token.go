package box

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// TokenPair is the result of a successful refresh-token exchange. The
// provider invalidates the submitted refresh token as part of the exchange,
// so RefreshToken here is the only valid one left — the caller must persist
// it before the AccessToken is used for anything.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// tokenResponse mirrors the token endpoint's JSON response.
// Unexported — callers get a normalized TokenPair.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ExchangeRefreshToken exchanges the current refresh token for a new
// access/refresh token pair via a grant_type=refresh_token form POST.
// Any non-2xx status is terminal; the submitted token may already be burnt,
// so this call is never retried.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken, clientID, clientSecret string) (*TokenPair, error) {
	c.logger.Info("exchanging refresh token")

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("box: creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("box: token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Error bodies from the token endpoint echo request parameters,
		// which include the refresh token. Discard them.
		io.Copy(io.Discard, resp.Body) //nolint:errcheck

		return nil, &BoxError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("Box-Request-Id"),
			Message:    "token exchange rejected",
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("box: decoding token response: %w", err)
	}

	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return nil, fmt.Errorf("box: token response missing access or refresh token")
	}

	c.logger.Info("token exchange succeeded",
		slog.Int64("expires_in", tr.ExpiresIn),
	)

	return &TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}, nil
}
