package main

import "time"

// OauthSession is the server-side half of a visitor session. The cookie
// only carries SessionID.
type OauthSession struct {
	ID           uint
	SessionID    string `gorm:"uniqueIndex"`
	AccessToken  string
	RefreshToken string
	Expiration   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
