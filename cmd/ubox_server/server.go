package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	slogecho "github.com/samber/slog-echo"
	ubox "github.com/sci-visus/ubox-oauth-golang"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

//go:embed templates/*.html
var templateFS embed.FS

type Server struct {
	e        *echo.Echo
	db       *gorm.DB
	logger   *slog.Logger
	httpd    *http.Server
	auth     *ubox.Authenticator
	apiArgs  ubox.APIClientArgs
	testFile string
	actions  map[string]actionHandler
}

type ServerArgs struct {
	Addr          string
	DbPath        string
	SessionSecret string
	TestFile      string
	Logger        *slog.Logger
	ClientArgs    ubox.ClientArgs
	APIBase       string
	UploadBase    string
}

func NewServer(args ServerArgs) (*Server, error) {
	if args.SessionSecret == "" {
		return nil, fmt.Errorf("no session secret provided")
	}

	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	oauthClient, err := ubox.NewClient(args.ClientArgs)
	if err != nil {
		return nil, fmt.Errorf("could not create box oauth client: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(args.DbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not open session database: %w", err)
	}

	if err := db.AutoMigrate(&OauthSession{}); err != nil {
		return nil, fmt.Errorf("could not migrate session database: %w", err)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = &templateRenderer{t: tmpl}

	e.Use(slogecho.New(args.Logger))
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(args.SessionSecret))))

	s := &Server{
		e:      e,
		db:     db,
		logger: args.Logger,
		auth:   ubox.NewAuthenticator(oauthClient),
		apiArgs: ubox.APIClientArgs{
			H:          oauthClient.HTTPClient(),
			APIBase:    args.APIBase,
			UploadBase: args.UploadBase,
		},
		testFile: args.TestFile,
		httpd: &http.Server{
			Addr:    args.Addr,
			Handler: e,
		},
	}

	s.actions = map[string]actionHandler{
		ActionShowFolderPicker: s.handleShowFolderPicker,
		ActionListFolder:       s.handleListFolder,
		ActionTestBoxAPI:       s.handleTestBoxAPI,
	}

	e.GET("/", s.handleIndex)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func (s *Server) Run() error {
	s.logger.Info("starting http server", "addr", s.httpd.Addr)

	if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpd.Shutdown(ctx); err != nil {
		return err
	}

	sqlDb, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDb.Close()
}

func (s *Server) readTestFile() ([]byte, error) {
	if s.testFile == "" {
		return nil, fmt.Errorf("no test file configured")
	}

	return os.ReadFile(s.testFile)
}

type templateRenderer struct {
	t *template.Template
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}
