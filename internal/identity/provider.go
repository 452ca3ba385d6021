package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

// Profile is what the external login provider returns for a session id.
type Profile struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	SessionToken string `json:"session_token"`
}

type Provider struct {
	url    string
	client *http.Client
}

func NewProvider(url string, client *http.Client) *Provider {
	return &Provider{
		url:    url,
		client: client,
	}
}

// Exchange trades the one-time session id from the login redirect for the
// user's profile.
func (p *Provider) Exchange(ctx context.Context, sessionID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Session-ID", sessionID)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call auth provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("auth provider returned status %d", resp.StatusCode)
		}
		return nil, &domain.AuthError{Reason: "invalid session"}
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode auth provider response: %w", err)
	}
	if profile.Email == "" {
		return nil, &domain.AuthError{Reason: "provider returned no email"}
	}

	return &profile, nil
}
