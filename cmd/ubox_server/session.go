package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	ubox "github.com/sci-visus/ubox-oauth-golang"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	sessionName  = "session"
	sessionIdKey = "sid"
)

// dbSession adapts the visitor's cookie session and the oauth_sessions table
// to ubox.Session for the duration of one request.
type dbSession struct {
	e  echo.Context
	db *gorm.DB
}

var _ ubox.Session = (*dbSession)(nil)

func (s *Server) session(e echo.Context) *dbSession {
	return &dbSession{e: e, db: s.db}
}

func (s *dbSession) sessionId(create bool) (string, error) {
	// a cookie that no longer decodes still yields a fresh session
	sess, err := session.Get(sessionName, s.e)
	if sess == nil {
		return "", err
	}

	if sid, ok := sess.Values[sessionIdKey].(string); ok && sid != "" {
		return sid, nil
	}

	if !create {
		return "", nil
	}

	sid := uuid.NewString()

	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
	}

	// make sure the session is empty
	sess.Values = map[interface{}]interface{}{}
	sess.Values[sessionIdKey] = sid

	if err := sess.Save(s.e.Request(), s.e.Response()); err != nil {
		return "", err
	}

	return sid, nil
}

func (s *dbSession) Tokens(ctx context.Context) (*ubox.Tokens, error) {
	sid, err := s.sessionId(false)
	if err != nil {
		return nil, err
	}

	if sid == "" {
		return nil, nil
	}

	var oauthSession OauthSession
	if err := s.db.WithContext(ctx).Raw("SELECT * FROM oauth_sessions WHERE session_id = ?", sid).Scan(&oauthSession).Error; err != nil {
		return nil, err
	}

	if oauthSession.SessionID == "" || oauthSession.AccessToken == "" {
		return nil, nil
	}

	return &ubox.Tokens{
		AccessToken:  oauthSession.AccessToken,
		RefreshToken: oauthSession.RefreshToken,
		Expiry:       oauthSession.Expiration,
	}, nil
}

func (s *dbSession) SetTokens(ctx context.Context, tokens *ubox.Tokens) error {
	sid, err := s.sessionId(true)
	if err != nil {
		return err
	}

	oauthSession := &OauthSession{
		SessionID:    sid,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Expiration:   tokens.Expiry,
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expiration", "updated_at"}),
	}).Create(oauthSession).Error; err != nil {
		return fmt.Errorf("could not save oauth session: %w", err)
	}

	return nil
}

// Clear drops the stored tokens and expires the cookie.
func (s *dbSession) Clear(ctx context.Context) error {
	sid, err := s.sessionId(false)
	if err != nil {
		return err
	}

	if sid != "" {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM oauth_sessions WHERE session_id = ?", sid).Error; err != nil {
			return err
		}
	}

	sess, err := session.Get(sessionName, s.e)
	if sess == nil {
		return err
	}

	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}

	return sess.Save(s.e.Request(), s.e.Response())
}
