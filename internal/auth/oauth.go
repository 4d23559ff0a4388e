package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Leganyst/docwatch/internal/model"
)

var ErrOAuthRejected = errors.New("oauth token rejected")

// Identity is what a provider vouches for.
type Identity struct {
	Provider   model.AuthProvider
	ProviderID string
	Email      string
	FullName   string
}

// IdentityVerifier turns a provider token into a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

const (
	googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	facebookMeURL      = "https://graph.facebook.com/me"
)

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// GoogleVerifier validates Google ID tokens through the tokeninfo endpoint.
type GoogleVerifier struct {
	ClientID string
	Endpoint string
	HTTP     *http.Client
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID, Endpoint: googleTokenInfoURL, HTTP: defaultHTTPClient()}
}

func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
		Aud           string `json:"aud"`
	}
	if err := getJSON(ctx, g.HTTP, g.Endpoint+"?"+url.Values{"id_token": {idToken}}.Encode(), &info); err != nil {
		return nil, fmt.Errorf("google tokeninfo: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, ErrOAuthRejected
	}
	if g.ClientID != "" && info.Aud != g.ClientID {
		return nil, fmt.Errorf("%w: audience mismatch", ErrOAuthRejected)
	}
	if info.EmailVerified != "true" {
		return nil, fmt.Errorf("%w: email not verified", ErrOAuthRejected)
	}
	return &Identity{
		Provider:   model.AuthProviderGoogle,
		ProviderID: info.Sub,
		Email:      info.Email,
		FullName:   info.Name,
	}, nil
}

// FacebookVerifier resolves a user access token through the Graph API.
type FacebookVerifier struct {
	Endpoint string
	HTTP     *http.Client
}

func NewFacebookVerifier() *FacebookVerifier {
	return &FacebookVerifier{Endpoint: facebookMeURL, HTTP: defaultHTTPClient()}
}

func (f *FacebookVerifier) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	var me struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	q := url.Values{"fields": {"id,name,email"}, "access_token": {accessToken}}
	if err := getJSON(ctx, f.HTTP, f.Endpoint+"?"+q.Encode(), &me); err != nil {
		return nil, fmt.Errorf("facebook graph: %w", err)
	}
	if me.ID == "" || me.Email == "" {
		return nil, ErrOAuthRejected
	}
	return &Identity{
		Provider:   model.AuthProviderFacebook,
		ProviderID: me.ID,
		Email:      me.Email,
		FullName:   me.Name,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	switch {
	case res.StatusCode >= 400 && res.StatusCode < 500:
		return fmt.Errorf("%w: status %d", ErrOAuthRejected, res.StatusCode)
	case res.StatusCode < 200 || res.StatusCode >= 300:
		return fmt.Errorf("provider responded with status %d", res.StatusCode)
	}
	return json.Unmarshal(body, out)
}
