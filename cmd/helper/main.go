package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"
	ubox "github.com/sci-visus/ubox-oauth-golang"
	"github.com/sci-visus/ubox-oauth-golang/internal/helpers"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "could not load .env: %s\n", err)
	}

	app := &cli.App{
		Name:    "ubox helper",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tokens",
				Usage:   "file holding the access and refresh token",
				Value:   "./tokens.json",
				EnvVars: []string{"UBOX_TOKENS_FILE"},
			},
			&cli.DurationFlag{
				Name:    "http-timeout",
				Value:   ubox.DefaultHTTPTimeout,
				EnvVars: []string{"UBOX_HTTP_TIMEOUT"},
			},
		},
		Commands: []*cli.Command{
			runGenerateSecret,
			runLogin,
			runRefresh,
			runListFolder,
			runTestApi,
		},
	}

	app.RunAndExitOnError()
}

var clientFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "client-id",
		Required: true,
		EnvVars:  []string{"BOX_CLIENT_ID"},
	},
	&cli.StringFlag{
		Name:     "client-secret",
		Required: true,
		EnvVars:  []string{"BOX_CLIENT_SECRET"},
	},
	&cli.StringFlag{
		Name:    "auth-url",
		Value:   ubox.DefaultAuthURL,
		EnvVars: []string{"BOX_AUTH_URL"},
	},
	&cli.StringFlag{
		Name:    "token-url",
		Value:   ubox.DefaultTokenURL,
		EnvVars: []string{"BOX_TOKEN_URL"},
	},
}

var apiFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "api-url",
		Value:   ubox.DefaultAPIBase,
		EnvVars: []string{"BOX_API_URL"},
	},
	&cli.StringFlag{
		Name:    "upload-url",
		Value:   ubox.DefaultUploadBase,
		EnvVars: []string{"BOX_UPLOAD_URL"},
	},
}

var runGenerateSecret = &cli.Command{
	Name:  "generate-secret",
	Usage: "write a random session cookie secret",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Value: "./session-secret",
		},
	},
	Action: func(cmd *cli.Context) error {
		secret, err := helpers.GenerateToken(32)
		if err != nil {
			return err
		}

		if err := os.WriteFile(cmd.String("out"), []byte(secret), 0600); err != nil {
			return err
		}

		return nil
	},
}

var runRefresh = &cli.Command{
	Name:  "refresh",
	Usage: "trade the stored refresh token for a new token pair",
	Flags: clientFlags,
	Action: func(cmd *cli.Context) error {
		tokens, err := readTokens(cmd.String("tokens"))
		if err != nil {
			return err
		}

		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		refreshed, err := client.RefreshTokens(cmd.Context, tokens.RefreshToken)
		if err != nil {
			return err
		}

		slog.Info("refreshed box tokens", "expiry", refreshed.Expiry)

		return writeTokens(cmd.String("tokens"), refreshed)
	},
}

var runListFolder = &cli.Command{
	Name:  "ls",
	Usage: "list a box folder",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "folder-id",
			Value: "0",
		},
	}, apiFlags...),
	Action: func(cmd *cli.Context) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		entries, err := api.ListFolder(cmd.Context, cmd.String("folder-id"))
		if err != nil {
			return err
		}

		for _, entry := range entries {
			fmt.Printf("%s\t%s\t%s\n", entry.ID, entry.Type, entry.Name)
		}

		return nil
	},
}

var runTestApi = &cli.Command{
	Name:  "test-api",
	Usage: "create, upload, download and delete test items in the root folder",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Value: "./test.png",
		},
	}, apiFlags...),
	Action: func(cmd *cli.Context) error {
		api, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(cmd.String("file"))
		if err != nil {
			return err
		}

		report, err := ubox.SmokeTest(cmd.Context, api, filepath.Base(cmd.String("file")), content)
		if err != nil {
			return err
		}

		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(b))

		return nil
	},
}

func httpClient(cmd *cli.Context) *http.Client {
	return &http.Client{Timeout: cmd.Duration("http-timeout")}
}

func newClient(cmd *cli.Context) (*ubox.Client, error) {
	return ubox.NewClient(ubox.ClientArgs{
		H:            httpClient(cmd),
		ClientId:     cmd.String("client-id"),
		ClientSecret: cmd.String("client-secret"),
		AuthURL:      cmd.String("auth-url"),
		TokenURL:     cmd.String("token-url"),
	})
}

func newAPIClient(cmd *cli.Context) (*ubox.APIClient, error) {
	tokens, err := readTokens(cmd.String("tokens"))
	if err != nil {
		return nil, err
	}

	return ubox.NewAPIClient(ubox.APIClientArgs{
		H:           httpClient(cmd),
		AccessToken: tokens.AccessToken,
		APIBase:     cmd.String("api-url"),
		UploadBase:  cmd.String("upload-url"),
	})
}
