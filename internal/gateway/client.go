package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ekorkmaz/voxboard/internal/model/file"
	"github.com/ekorkmaz/voxboard/internal/model/user"
)

// ErrUnauthorized marks a backend rejection of the bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// TokenSource supplies the current bearer token; empty means unauthenticated.
type TokenSource func() string

// Client is a thin request/response mapping over the backend REST API. It
// holds no business logic of its own.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
}

// New builds a client for the given base URL. The token source is consulted
// on every authenticated request.
func New(baseURL string, timeout time.Duration, token TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   token,
	}
}

// LoginResult is the token grant returned by POST /login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ChatReply is the assistant response returned by POST /chat.
type ChatReply struct {
	Text string
	At   time.Time
}

// APIError carries the backend's rejection reason when one was provided.
type APIError struct {
	Status   int
	Detail   string
	Fallback string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Fallback
}

// Unwrap lets callers detect invalid-token rejections with errors.Is.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Login exchanges credentials for a bearer token. The backend expects an
// OAuth2 password form with the email as username.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return LoginResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result LoginResult
	if err := c.do(req, &result, "login failed"); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

// Register creates a new account. It does not authenticate the session.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (user.User, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
	}
	if fullName != "" {
		payload["full_name"] = fullName
	}

	req, err := c.jsonRequest(ctx, http.MethodPost, "/register", payload)
	if err != nil {
		return user.User{}, err
	}

	var created user.User
	if err := c.do(req, &created, "registration failed"); err != nil {
		return user.User{}, err
	}
	return created, nil
}

// Me fetches the account record for the current bearer token.
func (c *Client) Me(ctx context.Context) (user.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return user.User{}, err
	}
	c.authorize(req)

	var me user.User
	if err := c.do(req, &me, "could not fetch user record"); err != nil {
		return user.User{}, err
	}
	return me, nil
}

// fileRecord is the backend wire shape; timestamps arrive as ISO strings
// without a guaranteed zone, so they are parsed leniently into view records.
type fileRecord struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"file_size"`
	FileType   string `json:"file_type"`
	UploadedAt string `json:"uploaded_at"`
}

func (r fileRecord) toModel() file.UploadedFile {
	return file.UploadedFile{
		ID:         r.ID,
		Name:       r.Filename,
		Size:       r.FileSize,
		Type:       r.FileType,
		UploadedAt: parseTimestamp(r.UploadedAt),
	}
}

// UploadFile sends one file as multipart form data.
func (c *Client) UploadFile(ctx context.Context, name string, contents io.Reader) (file.UploadedFile, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return file.UploadedFile{}, err
	}
	if _, err := io.Copy(part, contents); err != nil {
		return file.UploadedFile{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return file.UploadedFile{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return file.UploadedFile{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	var record fileRecord
	if err := c.do(req, &record, "file upload failed"); err != nil {
		return file.UploadedFile{}, err
	}
	return record.toModel(), nil
}

// ListFiles fetches the caller's uploaded-file records.
func (c *Client) ListFiles(ctx context.Context) ([]file.UploadedFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	var records []fileRecord
	if err := c.do(req, &records, "could not fetch files"); err != nil {
		return nil, err
	}

	files := make([]file.UploadedFile, 0, len(records))
	for _, r := range records {
		files = append(files, r.toModel())
	}
	return files, nil
}

// DeleteFile removes one file by identifier. Only the status matters; any
// response body is discarded.
func (c *Client) DeleteFile(ctx context.Context, id int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/files/%d", c.baseURL, id), nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	return c.do(req, nil, "file delete failed")
}

// SendMessage posts one chat message and returns the assistant reply.
func (c *Client) SendMessage(ctx context.Context, message string) (ChatReply, error) {
	req, err := c.jsonRequest(ctx, http.MethodPost, "/chat", map[string]string{"message": message})
	if err != nil {
		return ChatReply{}, err
	}
	c.authorize(req)

	var wire struct {
		BotResponse string `json:"bot_response"`
		Timestamp   string `json:"timestamp"`
	}
	if err := c.do(req, &wire, "message could not be sent"); err != nil {
		return ChatReply{}, err
	}
	return ChatReply{Text: wire.BotResponse, At: parseTimestamp(wire.Timestamp)}, nil
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) authorize(req *http.Request) {
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// do executes the request and decodes a JSON body into out when out is
// non-nil. Non-2xx responses become an APIError carrying the backend's
// detail field verbatim when present.
func (c *Client) do(req *http.Request, out any, fallback string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", fallback, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, fallback)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: invalid response body: %w", fallback, err)
	}
	return nil
}

func decodeError(resp *http.Response, fallback string) error {
	apiErr := &APIError{Status: resp.StatusCode, Fallback: fallback}

	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Detail = body.Detail
	}
	return apiErr
}

// parseTimestamp accepts the timestamp shapes the backend emits. Unparseable
// values fall back to the local receive time rather than failing the call.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC()
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
