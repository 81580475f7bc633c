package ubox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL    = "https://app.box.com/api/oauth2/authorize"
	DefaultTokenURL   = "https://api.box.com/oauth2/token"
	DefaultAPIBase    = "https://api.box.com/2.0"
	DefaultUploadBase = "https://upload.box.com/api/2.0"

	// DefaultHTTPTimeout applies to token and API calls when no client is
	// passed in.
	DefaultHTTPTimeout = 5 * time.Second
)

type Client struct {
	h    *http.Client
	conf oauth2.Config
}

type ClientArgs struct {
	H            *http.Client
	ClientId     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
}

func NewClient(args ClientArgs) (*Client, error) {
	if args.ClientId == "" {
		return nil, fmt.Errorf("no client id provided")
	}

	if args.ClientSecret == "" {
		return nil, fmt.Errorf("no client secret provided")
	}

	if args.AuthURL == "" {
		args.AuthURL = DefaultAuthURL
	}

	if args.TokenURL == "" {
		args.TokenURL = DefaultTokenURL
	}

	if _, err := parseEndpoint(args.AuthURL); err != nil {
		return nil, fmt.Errorf("invalid authorization url: %w", err)
	}

	if _, err := parseEndpoint(args.TokenURL); err != nil {
		return nil, fmt.Errorf("invalid token url: %w", err)
	}

	if args.H == nil {
		args.H = &http.Client{
			Timeout: DefaultHTTPTimeout,
		}
	}

	return &Client{
		h: args.H,
		conf: oauth2.Config{
			ClientID:     args.ClientId,
			ClientSecret: args.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  args.AuthURL,
				TokenURL: args.TokenURL,
			},
		},
	}, nil
}

// HTTPClient returns the client used for token requests so API calls can
// share its transport and timeout.
func (c *Client) HTTPClient() *http.Client {
	return c.h
}

// AuthorizeURL is where the visitor is sent to grant access. Box redirects
// back to redirectUri with a one-time code.
func (c *Client) AuthorizeURL(redirectUri string) string {
	conf := c.conf
	conf.RedirectURL = redirectUri

	return conf.AuthCodeURL("", oauth2.AccessTypeOffline)
}

// ExchangeCode trades an authorization code for a token pair with a single
// POST to the token endpoint.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	if code == "" {
		return nil, &AuthError{Err: fmt.Errorf("empty authorization code")}
	}

	params := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}

	tokenResponse, err := c.tokenRequest(ctx, "exchange authorization code", params)
	if err != nil {
		return nil, err
	}

	return tokenResponse.tokens(), nil
}

// RefreshTokens runs the refresh_token grant. Box rotates refresh tokens, so
// the returned pair replaces the stored one.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, &AuthError{Err: fmt.Errorf("empty refresh token")}
	}

	params := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	tokenResponse, err := c.tokenRequest(ctx, "refresh token", params)
	if err != nil {
		return nil, err
	}

	tokens := tokenResponse.tokens()
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}

	return tokens, nil
}

// tokenRequest posts one grant to the token endpoint. The body is decoded as
// json whatever content type Box labels it with.
func (c *Client) tokenRequest(ctx context.Context, op string, params url.Values) (*TokenResponse, error) {
	params.Set("client_id", c.conf.ClientID)
	params.Set("client_secret", c.conf.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", c.conf.Endpoint.TokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("%s: %w", op, err)}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.h.Do(req)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("%s: %w", op, err)}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s: could not read body: %w", op, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		authErr := &AuthError{StatusCode: resp.StatusCode}

		var tokenErr TokenResponse
		if json.Unmarshal(b, &tokenErr) == nil {
			authErr.Code = tokenErr.Error
			authErr.Description = tokenErr.ErrorDescription
		}

		return nil, authErr
	}

	var tokenResponse TokenResponse
	if err := json.Unmarshal(b, &tokenResponse); err != nil {
		return nil, &AuthError{Err: &DecodeError{Op: op, Err: err}}
	}

	if err := tokenResponse.Validate(); err != nil {
		return nil, &AuthError{Err: &DecodeError{Op: op, Err: err}}
	}

	return &tokenResponse, nil
}
