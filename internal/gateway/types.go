package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// EpochTime decodes the backend's epoch-seconds timestamps (floats) while
// tolerating RFC 3339 strings. It marshals back to epoch seconds.
type EpochTime struct {
	time.Time
}

func (t *EpochTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	s = strings.Trim(s, `"`)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec, frac := math.Modf(f)
		t.Time = time.Unix(int64(sec), int64(frac*1e9)).UTC()
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func (t EpochTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	sec := float64(t.UnixNano()) / float64(time.Second)
	return []byte(strconv.FormatFloat(sec, 'f', -1, 64)), nil
}

// Source is one uploaded file of a project. The backend reports the name
// under either "name" or "filename" depending on the endpoint; ListFiles
// normalizes to Filename.
type Source struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}

type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  EpochTime `json:"created_at"`
	ModifiedAt EpochTime `json:"modified_at"`
}

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp EpochTime `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Embedding task statuses as reported by the backend.
const (
	StatusPending             = "pending"
	StatusProcessing          = "processing"
	StatusInProgress          = "in_progress"
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusFailed              = "failed"
)

type TaskStatus struct {
	TaskID   string          `json:"task_id"`
	Status   string          `json:"status"`
	Progress float64         `json:"progress"`
	Error    string          `json:"error,omitempty"`
	Details  json.RawMessage `json:"details,omitempty"`
}

// Terminal reports whether the task will make no further progress.
func (s *TaskStatus) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed:
		return true
	}
	return false
}

// Succeeded reports whether the task reached a completed state, with or
// without per-file errors.
func (s *TaskStatus) Succeeded() bool {
	return s.Status == StatusCompleted || s.Status == StatusCompletedWithErrors
}

type TaskResults struct {
	TaskID  string          `json:"task_id"`
	Status  string          `json:"status"`
	Results json.RawMessage `json:"results,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type UploadedFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type,omitempty"`
}

// UploadResult is the normalized outcome of an upload batch. Errors holds
// the backend's per-file rejection messages.
type UploadResult struct {
	Success bool
	Files   []UploadedFile
	Errors  []string
}

// Accepted reports whether filename is among the files the server stored.
func (r *UploadResult) Accepted(filename string) bool {
	for _, f := range r.Files {
		if f.Filename == filename {
			return true
		}
	}
	return false
}

type ChatSettings struct {
	Temperature     float64 `json:"temperature" validate:"gte=0,lte=1"`
	TopP            float64 `json:"top_p" validate:"gte=0,lte=1"`
	TopK            int     `json:"top_k" validate:"gte=1"`
	MaxOutputTokens int     `json:"max_output_tokens" validate:"gte=1"`
}

type UISettings struct {
	Theme string `json:"theme"`
}

type ProjectSettings struct {
	Chat       ChatSettings    `json:"chat_settings"`
	UI         UISettings      `json:"ui_settings"`
	Processing json.RawMessage `json:"processing_settings,omitempty"`
}

func DefaultSettings() ProjectSettings {
	return ProjectSettings{
		Chat: ChatSettings{
			Temperature:     0.2,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 8192,
		},
		UI: UISettings{Theme: "light"},
	}
}

var settingsValidator = validator.New()

// Sanitize replaces out-of-range chat settings and unknown themes with the
// defaults, field by field, so one bad value from the server does not throw
// away the rest.
func (s *ProjectSettings) Sanitize() {
	def := DefaultSettings()
	if err := settingsValidator.Struct(s.Chat); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.StructField() {
				case "Temperature":
					s.Chat.Temperature = def.Chat.Temperature
				case "TopP":
					s.Chat.TopP = def.Chat.TopP
				case "TopK":
					s.Chat.TopK = def.Chat.TopK
				case "MaxOutputTokens":
					s.Chat.MaxOutputTokens = def.Chat.MaxOutputTokens
				}
			}
		} else {
			s.Chat = def.Chat
		}
	}
	if s.UI.Theme != "light" && s.UI.Theme != "dark" {
		s.UI.Theme = def.UI.Theme
	}
}
