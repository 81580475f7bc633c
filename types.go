package ubox

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Tokens is the credential pair kept in a visitor's session.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// TokenResponse is the token endpoint's answer to either grant. Error and
// ErrorDescription are only set on 4xx answers.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (tr *TokenResponse) Validate() error {
	if tr.AccessToken == "" {
		return fmt.Errorf("access_token is missing")
	}

	if tr.TokenType != "" && !strings.EqualFold(tr.TokenType, "bearer") {
		return fmt.Errorf("unsupported token_type %q", tr.TokenType)
	}

	return nil
}

func (tr *TokenResponse) tokens() *Tokens {
	tokens := &Tokens{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}

	if tr.ExpiresIn > 0 {
		tokens.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return tokens
}

// Entry is a file, folder or web link returned by a folder listing.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type FolderResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ItemCollection *ItemCollection `json:"item_collection"`
}

type ItemCollection struct {
	TotalCount int     `json:"total_count"`
	Entries    []Entry `json:"entries"`
}

func (fr *FolderResponse) UnmarshalJSON(b []byte) error {
	type Tmp FolderResponse
	var tmp Tmp

	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}

	*fr = FolderResponse(tmp)

	return nil
}

func (fr *FolderResponse) Validate() error {
	if fr.ItemCollection == nil {
		return fmt.Errorf("item_collection is missing")
	}

	for i, entry := range fr.ItemCollection.Entries {
		if entry.ID == "" {
			return fmt.Errorf("entry %d has no id", i)
		}
	}

	return nil
}

type ItemResponse struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (ir *ItemResponse) Validate() error {
	if ir.ID == "" {
		return fmt.Errorf("id is missing")
	}

	return nil
}

type UploadResponse struct {
	TotalCount int            `json:"total_count"`
	Entries    []ItemResponse `json:"entries"`
}

func (ur *UploadResponse) Validate() error {
	if len(ur.Entries) == 0 {
		return fmt.Errorf("entries is empty")
	}

	return ur.Entries[0].Validate()
}

// ErrorResponse is the body Box sends along with 4xx and 5xx answers.
type ErrorResponse struct {
	Type      string `json:"type"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type itemAttributes struct {
	Name   string    `json:"name"`
	Parent parentRef `json:"parent"`
}

type parentRef struct {
	ID string `json:"id"`
}

type MetadataTemplateField struct {
	Key         string `json:"key"`
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
}

type MetadataTemplate struct {
	Scope       string                  `json:"scope"`
	TemplateKey string                  `json:"templateKey"`
	DisplayName string                  `json:"displayName"`
	Hidden      bool                    `json:"hidden"`
	Fields      []MetadataTemplateField `json:"fields"`
}
