package ubox

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

func parseEndpoint(ustr string) (*url.URL, error) {
	u, err := url.Parse(ustr)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("url scheme must be http or https")
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("url hostname was empty")
	}

	if u.User != nil {
		return nil, fmt.Errorf("url user was not empty")
	}

	return u, nil
}

// CanonicalURL rebuilds the URL the visitor asked for, without the query
// string. It is the redirect target handed to the authorization endpoint.
func CanonicalURL(r *http.Request) string {
	u := url.URL{
		Scheme: requestScheme(r),
		Host:   r.Host,
		Path:   r.URL.Path,
	}

	return u.String()
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}

	// proxies chain as "client, proxy1, ...", the first hop is the visitor's
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	switch scheme := strings.ToLower(strings.TrimSpace(proto)); scheme {
	case "https", "http":
		return scheme
	}

	return "http"
}
