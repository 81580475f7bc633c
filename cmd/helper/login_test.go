package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	ubox "github.com/sci-visus/ubox-oauth-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) net.Listener {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	return ln
}

func TestWaitForCode(t *testing.T) {
	assert := assert.New(t)

	ln := listen(t)
	base := "http://" + ln.Addr().String()

	go func() {
		// browsers ask for a favicon too, that must not end the wait
		if resp, err := http.Get(base + "/favicon.ico"); err == nil {
			resp.Body.Close()
		}
		if resp, err := http.Get(base + "/?code=xyz"); err == nil {
			resp.Body.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	code, err := waitForCode(ctx, ln)
	assert.NoError(err)
	assert.Equal("xyz", code)
}

func TestWaitForCodeDenied(t *testing.T) {
	ln := listen(t)

	go func() {
		if resp, err := http.Get("http://" + ln.Addr().String() + "/?error=access_denied"); err == nil {
			resp.Body.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := waitForCode(ctx, ln)
	assert.ErrorContains(t, err, "access_denied")
}

func TestWaitForCodeTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := waitForCode(ctx, listen(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokensFile(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "tokens.json")

	_, err := readTokens(path)
	assert.ErrorContains(err, "run login first")

	require.NoError(t, writeTokens(path, &ubox.Tokens{AccessToken: "A", RefreshToken: "B"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(os.FileMode(0600), info.Mode().Perm())

	tokens, err := readTokens(path)
	require.NoError(t, err)
	assert.Equal("A", tokens.AccessToken)
	assert.Equal("B", tokens.RefreshToken)

	require.NoError(t, os.WriteFile(path, []byte(`{"refresh_token":"B"}`), 0600))
	_, err = readTokens(path)
	assert.ErrorContains(err, "no access token")
}
