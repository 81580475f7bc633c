package ubox

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed is matched by every error coming out of the token
	// endpoint: non-2xx answers, undecodable bodies and transport failures.
	ErrAuthFailed = errors.New("box authentication failed")

	// ErrAPIFailed is matched by *APIError.
	ErrAPIFailed = errors.New("box api call failed")

	// ErrDecode is matched by *DecodeError.
	ErrDecode = errors.New("could not decode box response")
)

// AuthError describes a failed authorization code or refresh token grant.
// StatusCode is zero when the provider never answered.
type AuthError struct {
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("box authentication failed: token endpoint returned %d (%s)", e.StatusCode, e.Code)
	case e.StatusCode != 0:
		return fmt.Sprintf("box authentication failed: token endpoint returned %d", e.StatusCode)
	case e.Code != "":
		return fmt.Sprintf("box authentication failed: %s %s", e.Code, e.Description)
	case e.Err != nil:
		return fmt.Sprintf("box authentication failed: %s", e.Err)
	}

	return "box authentication failed"
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthFailed }

// APIError is returned by APIClient when Box answers with a non-2xx status.
type APIError struct {
	Op         string
	Target     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: box api returned %d", e.Op, e.Target, e.StatusCode)
	}

	return fmt.Sprintf("%s %s: box api returned %d: %s", e.Op, e.Target, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool { return target == ErrAPIFailed }

// DecodeError means Box answered with a success status but the body did not
// have the expected shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: could not decode response: %s", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
