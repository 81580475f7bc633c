package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	ubox "github.com/sci-visus/ubox-oauth-golang"
	"github.com/urfave/cli/v2"
)

func main() {
	// flags read their env vars at parse time, so .env has to be loaded first
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "could not load .env: %s\n", err)
	}

	app := &cli.App{
		Name:    "ubox-server",
		Usage:   "serve the Box folder picker and API proxy behind a Box OAuth session",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":7070",
				EnvVars: []string{"UBOX_ADDR"},
			},
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
				Name:     "session-secret",
				Usage:    "cookie signing key, see `helper generate-secret`",
				Required: true,
				EnvVars:  []string{"UBOX_SESSION_SECRET"},
			},
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./ubox.db",
				EnvVars: []string{"UBOX_DB_PATH"},
			},
			&cli.StringFlag{
				Name:    "test-file",
				Usage:   "local file uploaded by the TestBoxAPI action",
				Value:   "./test.png",
				EnvVars: []string{"UBOX_TEST_FILE"},
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
			&cli.DurationFlag{
				Name:    "http-timeout",
				Value:   ubox.DefaultHTTPTimeout,
				EnvVars: []string{"UBOX_HTTP_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				EnvVars: []string{"UBOX_DEBUG"},
			},
		},
		Action: run,
	}

	app.RunAndExitOnError()
}

func run(cmd *cli.Context) error {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	figure.NewFigure("ubox", "cybermedium", true).Print()
	fmt.Println()

	s, err := NewServer(ServerArgs{
		Addr:          cmd.String("addr"),
		DbPath:        cmd.String("db-path"),
		SessionSecret: cmd.String("session-secret"),
		TestFile:      cmd.String("test-file"),
		Logger:        logger,
		ClientArgs: ubox.ClientArgs{
			H:            &http.Client{Timeout: cmd.Duration("http-timeout")},
			ClientId:     cmd.String("client-id"),
			ClientSecret: cmd.String("client-secret"),
			AuthURL:      cmd.String("auth-url"),
			TokenURL:     cmd.String("token-url"),
		},
		APIBase:    cmd.String("api-url"),
		UploadBase: cmd.String("upload-url"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}
