// Package gateway is the typed adapter over the backend's REST surface.
// Every operation returns a value or an error; the 404 empty states the UI
// cares about (chat history, embedding tasks) are detectable through
// ErrNotFound.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound marks 404 responses so callers can map them to empty states.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response with whatever message the backend put in
// its error field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

const maxResponseBytes = 8 << 20

type Client struct {
	base  string
	httpc *http.Client
	log   *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient builds a gateway for the given origin. An empty base means
// same-origin relative URLs, which is how the WASM build talks to its host.
func NewClient(base string, opts ...Option) *Client {
	c := &Client{
		base:  strings.TrimRight(base, "/"),
		httpc: http.DefaultClient,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// SourceURL is the viewing address of an uploaded file, used by the sources
// panel to open files in a new tab.
func (c *Client) SourceURL(projectID, filename string) string {
	return c.url("project", projectID, "sources", filename)
}

func (c *Client) doJSON(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("method", method), zap.String("url", u), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, u, err)
	}
	c.log.Debug("request", zap.String("method", method), zap.String("url", u), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, u, err)
	}
	return nil
}

// errorMessage digs the human-readable message out of an error body.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		return body.Message
	}
	return ""
}

// ListFiles returns the project's uploaded sources. The result is never nil,
// and entries keyed by "name" are normalized to Filename.
func (c *Client) ListFiles(ctx context.Context, projectID string) ([]Source, error) {
	var body struct {
		Files []struct {
			Name     string `json:"name"`
			Filename string `json:"filename"`
			Size     int64  `json:"size"`
			Type     string `json:"type"`
		} `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.url("project", projectID, "files"), nil, &body); err != nil {
		return nil, err
	}
	files := make([]Source, 0, len(body.Files))
	for _, f := range body.Files {
		name := f.Filename
		if name == "" {
			name = f.Name
		}
		if name == "" {
			continue
		}
		files = append(files, Source{Filename: name, Size: f.Size, Type: f.Type})
	}
	return files, nil
}

func (c *Client) DeleteSource(ctx context.Context, projectID, filename string) error {
	return c.doJSON(ctx, http.MethodDelete, c.url("delete_source", projectID, filename), nil, nil)
}

func (c *Client) ListNotes(ctx context.Context, projectID string) ([]Note, error) {
	var body struct {
		Notes []Note `json:"notes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.url("project", projectID, "notes"), nil, &body); err != nil {
		return nil, err
	}
	if body.Notes == nil {
		body.Notes = []Note{}
	}
	return body.Notes, nil
}

func (c *Client) GetNote(ctx context.Context, projectID, noteID string) (*Note, error) {
	var note Note
	if err := c.doJSON(ctx, http.MethodGet, c.url("project", projectID, "notes", noteID), nil, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) CreateNote(ctx context.Context, projectID, title, content string) (*Note, error) {
	in := map[string]string{"title": title, "content": content}
	// The backend wraps the created note under "note"; older builds return
	// its fields at the top level.
	var body struct {
		Note       *Note     `json:"note"`
		ID         string    `json:"id"`
		Title      string    `json:"title"`
		Content    string    `json:"content"`
		CreatedAt  EpochTime `json:"created_at"`
		ModifiedAt EpochTime `json:"modified_at"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.url("project", projectID, "notes"), in, &body); err != nil {
		return nil, err
	}
	if body.Note != nil {
		return body.Note, nil
	}
	return &Note{
		ID:         body.ID,
		Title:      body.Title,
		Content:    body.Content,
		CreatedAt:  body.CreatedAt,
		ModifiedAt: body.ModifiedAt,
	}, nil
}

func (c *Client) UpdateNote(ctx context.Context, projectID, noteID, title, content string) error {
	in := map[string]string{"title": title, "content": content}
	return c.doJSON(ctx, http.MethodPut, c.url("project", projectID, "notes", noteID), in, nil)
}

func (c *Client) DeleteNote(ctx context.Context, projectID, noteID string) error {
	return c.doJSON(ctx, http.MethodDelete, c.url("project", projectID, "notes", noteID), nil, nil)
}

// Settings returns the project's settings with invalid fields replaced by
// defaults. A missing settings document is not an error; defaults are
// returned.
func (c *Client) Settings(ctx context.Context, projectID string) (*ProjectSettings, error) {
	var s ProjectSettings
	err := c.doJSON(ctx, http.MethodGet, c.url("project", projectID, "settings"), nil, &s)
	if errors.Is(err, ErrNotFound) {
		def := DefaultSettings()
		return &def, nil
	}
	if err != nil {
		return nil, err
	}
	s.Sanitize()
	return &s, nil
}

func (c *Client) SaveSettings(ctx context.Context, projectID string, s *ProjectSettings) error {
	return c.doJSON(ctx, http.MethodPost, c.url("project", projectID, "settings"), s, nil)
}

// ChatHistory returns the stored conversation. A 404 surfaces as
// ErrNotFound so the panel can show its empty state.
func (c *Client) ChatHistory(ctx context.Context, projectID string) ([]ChatMessage, error) {
	var body struct {
		History []ChatMessage `json:"history"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.url("project", projectID, "chat-history"), nil, &body); err != nil {
		return nil, err
	}
	if body.History == nil {
		body.History = []ChatMessage{}
	}
	return body.History, nil
}

// SendMessage posts a query to /chat/{id}. displayText, when non-empty, is
// what the backend logs as the user's message in place of the full query.
// The reply arrives under either "answer" or "response".
func (c *Client) SendMessage(ctx context.Context, projectID, query, displayText string) (string, error) {
	in := map[string]string{"query": query}
	if displayText != "" {
		in["displayText"] = displayText
	}
	var body struct {
		Answer   string `json:"answer"`
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.url("chat", projectID), in, &body); err != nil {
		return "", err
	}
	answer := body.Answer
	if answer == "" {
		answer = body.Response
	}
	if answer == "" && body.Error != "" {
		return "", fmt.Errorf("chat: %s", body.Error)
	}
	return answer, nil
}

// Ask posts a question to the alternate /ask/{id} endpoint. The chat panel
// sends through SendMessage; Ask stays available until the backend owner
// settles which endpoint survives.
func (c *Client) Ask(ctx context.Context, projectID, question string) (string, error) {
	in := map[string]string{"question": question}
	var body struct {
		Answer string `json:"answer"`
		Error  string `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.url("ask", projectID), in, &body); err != nil {
		return "", err
	}
	if body.Answer == "" && body.Error != "" {
		return "", fmt.Errorf("ask: %s", body.Error)
	}
	return body.Answer, nil
}

func (c *Client) ResetChat(ctx context.Context, projectID string) error {
	return c.doJSON(ctx, http.MethodPost, c.url("reset-chat", projectID), nil, nil)
}

// StartEmbedding kicks off the project's embedding task and returns the
// task id to poll.
func (c *Client) StartEmbedding(ctx context.Context, projectID string) (string, error) {
	var body struct {
		Success bool   `json:"success"`
		TaskID  string `json:"task_id"`
		Error   string `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.url("embed", projectID), nil, &body); err != nil {
		return "", err
	}
	if !body.Success || body.TaskID == "" {
		msg := body.Error
		if msg == "" {
			msg = "no task id returned"
		}
		return "", fmt.Errorf("start embedding: %s", msg)
	}
	return body.TaskID, nil
}

// TaskStatus polls an embedding task. Unknown task ids return ErrNotFound.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	var s TaskStatus
	if err := c.doJSON(ctx, http.MethodGet, c.url("embed", "status", taskID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// TaskResults fetches the per-file outcome of a finished embedding task.
func (c *Client) TaskResults(ctx context.Context, taskID string) (*TaskResults, error) {
	var r TaskResults
	if err := c.doJSON(ctx, http.MethodGet, c.url("embed", "results", taskID), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
