package ubox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// APIClient issues Box content API calls on behalf of one access token.
type APIClient struct {
	h           *http.Client
	apiBase     string
	uploadBase  string
	accessToken string
}

type APIClientArgs struct {
	H           *http.Client
	AccessToken string
	APIBase     string
	UploadBase  string
}

func NewAPIClient(args APIClientArgs) (*APIClient, error) {
	if args.AccessToken == "" {
		return nil, fmt.Errorf("no access token provided")
	}

	if args.APIBase == "" {
		args.APIBase = DefaultAPIBase
	}

	if args.UploadBase == "" {
		args.UploadBase = DefaultUploadBase
	}

	if _, err := parseEndpoint(args.APIBase); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	if _, err := parseEndpoint(args.UploadBase); err != nil {
		return nil, fmt.Errorf("invalid upload base url: %w", err)
	}

	if args.H == nil {
		args.H = &http.Client{
			Timeout: DefaultHTTPTimeout,
		}
	}

	return &APIClient{
		h:           args.H,
		apiBase:     strings.TrimRight(args.APIBase, "/"),
		uploadBase:  strings.TrimRight(args.UploadBase, "/"),
		accessToken: args.AccessToken,
	}, nil
}

func (c *APIClient) ListFolder(ctx context.Context, folderId string) ([]Entry, error) {
	const op = "list folder"

	b, err := c.do(ctx, op, folderId, "GET", c.apiBase+"/folders/"+url.PathEscape(folderId), nil, "")
	if err != nil {
		return nil, err
	}

	var folder FolderResponse
	if err := decodeInto(op, b, &folder); err != nil {
		return nil, err
	}

	if err := folder.Validate(); err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}

	entries := folder.ItemCollection.Entries
	if entries == nil {
		entries = []Entry{}
	}

	return entries, nil
}

func (c *APIClient) CreateFolder(ctx context.Context, parentId, name string) (string, error) {
	const op = "create folder"

	body, err := json.Marshal(itemAttributes{Name: name, Parent: parentRef{ID: parentId}})
	if err != nil {
		return "", err
	}

	b, err := c.do(ctx, op, parentId, "POST", c.apiBase+"/folders", bytes.NewReader(body), "application/json")
	if err != nil {
		return "", err
	}

	var item ItemResponse
	if err := decodeInto(op, b, &item); err != nil {
		return "", err
	}

	if err := item.Validate(); err != nil {
		return "", &DecodeError{Op: op, Err: err}
	}

	return item.ID, nil
}

// RemoveFolder deletes a folder and everything below it.
func (c *APIClient) RemoveFolder(ctx context.Context, folderId string) error {
	_, err := c.do(ctx, "remove folder", folderId, "DELETE", c.apiBase+"/folders/"+url.PathEscape(folderId)+"?recursive=true", nil, "")
	return err
}

func (c *APIClient) UploadFile(ctx context.Context, folderId, name string, content io.Reader) (string, error) {
	const op = "upload file"

	attributes, err := json.Marshal(itemAttributes{Name: name, Parent: parentRef{ID: folderId}})
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	// box requires attributes to come before the file part
	if err := mw.WriteField("attributes", string(attributes)); err != nil {
		return "", fmt.Errorf("could not write attributes part: %w", err)
	}

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("could not create file part: %w", err)
	}

	if _, err := io.Copy(fw, content); err != nil {
		return "", fmt.Errorf("could not read upload content: %w", err)
	}

	if err := mw.Close(); err != nil {
		return "", err
	}

	b, err := c.do(ctx, op, folderId, "POST", c.uploadBase+"/files/content", &body, mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	var uploaded UploadResponse
	if err := decodeInto(op, b, &uploaded); err != nil {
		return "", err
	}

	if err := uploaded.Validate(); err != nil {
		return "", &DecodeError{Op: op, Err: err}
	}

	return uploaded.Entries[0].ID, nil
}

func (c *APIClient) DownloadFile(ctx context.Context, fileId string) ([]byte, error) {
	return c.do(ctx, "download file", fileId, "GET", c.apiBase+"/files/"+url.PathEscape(fileId)+"/content", nil, "")
}

func (c *APIClient) DeleteFile(ctx context.Context, fileId string) error {
	_, err := c.do(ctx, "delete file", fileId, "DELETE", c.apiBase+"/files/"+url.PathEscape(fileId), nil, "")
	return err
}

// CreateMetadataTemplate creates an enterprise template whose fields are all
// strings. Box only lets admins do this.
func (c *APIClient) CreateMetadataTemplate(ctx context.Context, templateKey string, fields []string) error {
	tmpl := MetadataTemplate{
		Scope:       "enterprise",
		TemplateKey: templateKey,
		DisplayName: templateKey,
		Fields:      make([]MetadataTemplateField, 0, len(fields)),
	}

	for _, f := range fields {
		tmpl.Fields = append(tmpl.Fields, MetadataTemplateField{Key: f, Type: "string", DisplayName: f})
	}

	body, err := json.Marshal(tmpl)
	if err != nil {
		return err
	}

	_, err = c.do(ctx, "create metadata template", templateKey, "POST", c.apiBase+"/metadata_templates/schema", bytes.NewReader(body), "application/json")
	return err
}

func (c *APIClient) SetMetadata(ctx context.Context, fileId, templateKey string, values map[string]string) error {
	body, err := json.Marshal(values)
	if err != nil {
		return err
	}

	_, err = c.do(ctx, "set metadata", fileId, "POST", c.metadataURL(fileId, templateKey), bytes.NewReader(body), "application/json")
	return err
}

func (c *APIClient) GetMetadata(ctx context.Context, fileId, templateKey string) (map[string]any, error) {
	const op = "get metadata"

	b, err := c.do(ctx, op, fileId, "GET", c.metadataURL(fileId, templateKey), nil, "")
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := decodeInto(op, b, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *APIClient) metadataURL(fileId, templateKey string) string {
	return fmt.Sprintf("%s/files/%s/metadata/enterprise/%s", c.apiBase, url.PathEscape(fileId), url.PathEscape(templateKey))
}

func (c *APIClient) do(ctx context.Context, op, target, method, ustr string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, ustr, body)
	if err != nil {
		return nil, fmt.Errorf("error creating %s request: %w", op, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.h.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: could not get response from box: %w", op, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &APIError{
			Op:         op,
			Target:     target,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(b),
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: could not read body: %w", op, target, err)
	}

	return b, nil
}

func decodeInto(op string, b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return &DecodeError{Op: op, Err: err}
	}

	return nil
}

func errorMessage(b []byte) string {
	var boxErr ErrorResponse
	if err := json.Unmarshal(b, &boxErr); err == nil && boxErr.Message != "" {
		if boxErr.Code != "" {
			return fmt.Sprintf("%s (%s)", boxErr.Message, boxErr.Code)
		}
		return boxErr.Message
	}

	msg := strings.TrimSpace(string(b))
	if len(msg) > 200 {
		msg = msg[:200]
	}

	return msg
}
