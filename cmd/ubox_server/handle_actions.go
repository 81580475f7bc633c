package main

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	ubox "github.com/sci-visus/ubox-oauth-golang"
)

const (
	ActionShowFolderPicker = "ShowBoxFolderPicker"
	ActionListFolder       = "ListFolder"
	ActionTestBoxAPI       = "TestBoxAPI"
	ActionLogout           = "Logout"

	pickerVersion = "10.1.0"
)

type actionHandler func(e echo.Context, api *ubox.APIClient, tokens *ubox.Tokens) error

func (s *Server) handleIndex(e echo.Context) error {
	action := e.QueryParam("action")
	if action == "" {
		action = ActionShowFolderPicker
	}

	// logout never needs box, a broken session must still be clearable
	if action == ActionLogout {
		return s.handleLogout(e)
	}

	handler, ok := s.actions[action]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown action")
	}

	res := s.auth.EnsureAuthenticated(e.Request().Context(), e.Request(), s.session(e))

	switch res.Kind {
	case ubox.AuthRedirect:
		return e.Redirect(http.StatusFound, res.RedirectURL)
	case ubox.AuthFailed:
		s.logger.Error("box authentication failed", "action", action, "err", res.Err)
		if errors.Is(res.Err, ubox.ErrAuthFailed) {
			return echo.NewHTTPError(http.StatusUnauthorized, "box authentication failed")
		}
		return res.Err
	}

	args := s.apiArgs
	args.AccessToken = res.Tokens.AccessToken

	api, err := ubox.NewAPIClient(args)
	if err != nil {
		return err
	}

	return handler(e, api, res.Tokens)
}

func (s *Server) handleShowFolderPicker(e echo.Context, _ *ubox.APIClient, tokens *ubox.Tokens) error {
	return e.Render(http.StatusOK, "picker.html", map[string]any{
		"AccessToken":   tokens.AccessToken,
		"FolderId":      e.QueryParam("folder_id"),
		"PickerVersion": pickerVersion,
	})
}

func (s *Server) handleListFolder(e echo.Context, api *ubox.APIClient, _ *ubox.Tokens) error {
	folderId := e.QueryParam("folder_id")
	if folderId == "" {
		folderId = "0"
	}

	entries, err := api.ListFolder(e.Request().Context(), folderId)
	if err != nil {
		return s.apiFailure(err)
	}

	return e.JSON(http.StatusOK, entries)
}

func (s *Server) handleTestBoxAPI(e echo.Context, api *ubox.APIClient, _ *ubox.Tokens) error {
	content, err := s.readTestFile()
	if err != nil {
		s.logger.Error("could not read test file", "path", s.testFile, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "test file unavailable")
	}

	report, err := ubox.SmokeTest(e.Request().Context(), api, filepath.Base(s.testFile), content)
	if err != nil {
		return s.apiFailure(err)
	}

	s.logger.Info("box api test ok", "folder_id", report.FolderId, "file_id", report.FileId)

	return e.JSON(http.StatusOK, report)
}

func (s *Server) handleLogout(e echo.Context) error {
	if err := s.session(e).Clear(e.Request().Context()); err != nil {
		return err
	}

	return e.Redirect(http.StatusFound, "/")
}

func (s *Server) apiFailure(err error) error {
	var apiErr *ubox.APIError
	if errors.As(err, &apiErr) {
		s.logger.Error("box api call failed", "op", apiErr.Op, "target", apiErr.Target, "status", apiErr.StatusCode, "err", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	s.logger.Error("box api call failed", "err", err)

	if errors.Is(err, ubox.ErrDecode) {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return err
}
