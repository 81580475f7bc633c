package ubox

import (
	"context"
	"fmt"
	"net/http"
)

type AuthKind int

const (
	// AuthRedirect means the visitor has to be sent to RedirectURL. It is
	// not a failure.
	AuthRedirect AuthKind = iota + 1
	AuthAuthenticated
	AuthFailed
)

func (k AuthKind) String() string {
	switch k {
	case AuthRedirect:
		return "redirect"
	case AuthAuthenticated:
		return "authenticated"
	case AuthFailed:
		return "failed"
	}

	return fmt.Sprintf("AuthKind(%d)", int(k))
}

// AuthResult is the outcome of EnsureAuthenticated. Exactly one of
// RedirectURL, Tokens and Err is set, according to Kind.
type AuthResult struct {
	Kind        AuthKind
	RedirectURL string
	Tokens      *Tokens
	Err         error
}

type Authenticator struct {
	client *Client
}

func NewAuthenticator(client *Client) *Authenticator {
	return &Authenticator{client: client}
}

// EnsureAuthenticated makes sure sess holds a token pair. Tokens already in
// the session are returned as they are. Otherwise the request's code query
// parameter is exchanged, or, when there is none, a redirect to the
// authorization endpoint is returned with the request's own URL as the
// redirect target.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context, r *http.Request, sess Session) AuthResult {
	existing, err := sess.Tokens(ctx)
	if err != nil {
		return AuthResult{Kind: AuthFailed, Err: fmt.Errorf("could not read session: %w", err)}
	}

	if existing != nil && existing.AccessToken != "" {
		return AuthResult{Kind: AuthAuthenticated, Tokens: existing}
	}

	query := r.URL.Query()

	// the visitor denied access or Box rejected the authorize request
	if errCode := query.Get("error"); errCode != "" {
		return AuthResult{Kind: AuthFailed, Err: &AuthError{
			Code:        errCode,
			Description: query.Get("error_description"),
		}}
	}

	code := query.Get("code")
	if code == "" {
		return AuthResult{Kind: AuthRedirect, RedirectURL: a.client.AuthorizeURL(CanonicalURL(r))}
	}

	tokens, err := a.client.ExchangeCode(ctx, code)
	if err != nil {
		return AuthResult{Kind: AuthFailed, Err: err}
	}

	if err := sess.SetTokens(ctx, tokens); err != nil {
		return AuthResult{Kind: AuthFailed, Err: fmt.Errorf("could not store tokens in session: %w", err)}
	}

	return AuthResult{Kind: AuthAuthenticated, Tokens: tokens}
}
