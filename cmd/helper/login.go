package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v2"
)

var runLogin = &cli.Command{
	Name:  "login",
	Usage: "authorize in a browser and store the resulting tokens",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    "redirect-uri",
			Usage:   "must match the redirect uri registered for the box app",
			Value:   "http://127.0.0.1:53682",
			EnvVars: []string{"BOX_REDIRECT_URI"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: 5 * time.Minute,
		},
	}, clientFlags...),
	Action: func(cmd *cli.Context) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		redirectUri := cmd.String("redirect-uri")
		u, err := url.Parse(redirectUri)
		if err != nil {
			return fmt.Errorf("invalid redirect uri: %w", err)
		}

		ln, err := net.Listen("tcp", u.Host)
		if err != nil {
			return fmt.Errorf("could not listen for the redirect: %w", err)
		}

		fmt.Println("open this url in a browser and grant access:")
		fmt.Println(client.AuthorizeURL(redirectUri))

		ctx, cancel := context.WithTimeout(cmd.Context, cmd.Duration("timeout"))
		defer cancel()

		code, err := waitForCode(ctx, ln)
		if err != nil {
			return err
		}

		tokens, err := client.ExchangeCode(ctx, code)
		if err != nil {
			return err
		}

		slog.Info("received box tokens", "expiry", tokens.Expiry)

		return writeTokens(cmd.String("tokens"), tokens)
	},
}

type codeResult struct {
	code string
	err  error
}

// waitForCode serves ln until one request carries a code or an error from
// the authorization endpoint.
func waitForCode(ctx context.Context, ln net.Listener) (string, error) {
	results := make(chan codeResult, 1)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()

			if errCode := query.Get("error"); errCode != "" {
				http.Error(w, "authorization failed: "+errCode, http.StatusBadRequest)
				deliver(results, codeResult{err: fmt.Errorf("authorization failed: %s %s", errCode, query.Get("error_description"))})
				return
			}

			code := query.Get("code")
			if code == "" {
				// favicon and friends
				http.NotFound(w, r)
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body>Authorization received, you can close this window.</body></html>")
			deliver(results, codeResult{code: code})
		}),
	}

	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("no authorization code received: %w", ctx.Err())
	}
}

func deliver(results chan<- codeResult, res codeResult) {
	select {
	case results <- res:
	default:
	}
}
