package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadFile is one file selected in the browser, already read into memory.
type UploadFile struct {
	Name string
	Data []byte
}

// ProgressFunc receives (loaded, total) in bytes of file payload as the
// multipart body streams out.
type ProgressFunc func(loaded, total int64)

const progressChunk = 64 << 10

// Upload streams a multipart batch to /upload/{id} under the repeatable
// "files" field. The body is produced through a pipe so progress is
// observable while the request is in flight. A response the server used to
// reject individual files (400 with per-file errors) still yields an
// UploadResult rather than an error; callers reconcile per filename.
func (c *Client) Upload(ctx context.Context, projectID string, files []UploadFile, progress ProgressFunc) (*UploadResult, error) {
	if len(files) == 0 {
		return &UploadResult{Success: true, Files: []UploadedFile{}}, nil
	}

	batchID := uuid.NewString()
	var total int64
	for _, f := range files {
		total += int64(len(f.Data))
	}
	c.log.Info("upload batch",
		zap.String("batch_id", batchID),
		zap.String("project_id", projectID),
		zap.Int("files", len(files)),
		zap.Int64("bytes", total))

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		var sent int64
		for _, f := range files {
			part, err := mw.CreateFormFile("files", f.Name)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			for off := 0; off < len(f.Data); off += progressChunk {
				end := off + progressChunk
				if end > len(f.Data) {
					end = len(f.Data)
				}
				if _, err := part.Write(f.Data[off:end]); err != nil {
					pw.CloseWithError(err)
					return
				}
				sent += int64(end - off)
				if progress != nil {
					progress(sent, total)
				}
			}
		}
		pw.CloseWithError(mw.Close())
	}()

	u := c.url("upload", projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn("upload failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("upload: read response: %w", err)
	}

	result, ok := parseUploadResponse(data)
	if !ok {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
		}
		return nil, fmt.Errorf("upload: unexpected response body")
	}
	c.log.Info("upload done",
		zap.String("batch_id", batchID),
		zap.Int("accepted", len(result.Files)),
		zap.Int("rejected", len(result.Errors)))
	return result, nil
}

// parseUploadResponse normalizes both response shapes the backend produces:
// the batch form {success, files, errors} and the single-file form
// {success, filename, size, type}.
func parseUploadResponse(data []byte) (*UploadResult, bool) {
	var body struct {
		Success  *bool          `json:"success"`
		Files    []UploadedFile `json:"files"`
		Filename string         `json:"filename"`
		Size     int64          `json:"size"`
		Type     string         `json:"type"`
		Errors   []string       `json:"errors"`
		Error    string         `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Success == nil {
		return nil, false
	}
	result := &UploadResult{Success: *body.Success, Errors: body.Errors}
	switch {
	case body.Files != nil:
		result.Files = body.Files
	case body.Filename != "":
		result.Files = []UploadedFile{{Filename: body.Filename, Size: body.Size, Type: body.Type}}
	default:
		result.Files = []UploadedFile{}
	}
	if body.Error != "" {
		result.Errors = append(result.Errors, body.Error)
	}
	return result, true
}
