package main

import (
	"encoding/json"
	"fmt"
	"os"

	ubox "github.com/sci-visus/ubox-oauth-golang"
)

func readTokens(path string) (*ubox.Tokens, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read tokens, run login first: %w", err)
	}

	var tokens ubox.Tokens
	if err := json.Unmarshal(b, &tokens); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}

	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("%s holds no access token", path)
	}

	return &tokens, nil
}

func writeTokens(path string, tokens *ubox.Tokens) error {
	b, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, b, 0600)
}
