// Package catalog owns the browser-local list of known projects and the
// client's other persisted keys: view preferences, theme, and the
// per-project embedding markers. The server owns everything else; the
// catalog only caches it.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"lectern/internal/gateway"
)

const (
	projectsKey = "projects"
	themeKey    = "theme"
	viewTypeKey = "viewType"
	sortTypeKey = "sortType"
)

func embeddingTaskKey(projectID string) string      { return "embeddingTask_" + projectID }
func embeddingStatusKey(projectID string) string    { return "embeddingStatus_" + projectID }
func embeddingCompletedKey(projectID string) string { return "embeddingCompleted_" + projectID }

var ErrEmptyTitle = errors.New("title must not be empty")

// Project is one catalog entry. ModifiedDate serializes as ISO-8601 and only
// moves forward.
type Project struct {
	ID                 string                   `json:"id"`
	Title              string                   `json:"title"`
	ModifiedDate       time.Time                `json:"modifiedDate"`
	Sources            []gateway.Source         `json:"sources"`
	Settings           *gateway.ProjectSettings `json:"settings,omitempty"`
	EmbeddingCompleted bool                     `json:"embeddingCompleted,omitempty"`
	EmbeddingTaskID    string                   `json:"embeddingTaskId,omitempty"`
}

type ViewType string

const (
	ViewGrid ViewType = "grid"
	ViewList ViewType = "list"
)

type SortType string

const (
	SortRecent SortType = "recent"
	SortAlpha  SortType = "alpha"
)

type Catalog struct {
	store Storage
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Catalog)

func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Catalog) { c.log = log }
}

func New(store Storage, opts ...Option) *Catalog {
	c := &Catalog{store: store, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns every known project. A missing or unreadable key is an empty
// catalog, not an error.
func (c *Catalog) List() []Project {
	var projects []Project
	if err := c.store.Get(projectsKey, &projects); err != nil {
		c.log.Warn("read catalog", zap.Error(err))
		return []Project{}
	}
	if projects == nil {
		return []Project{}
	}
	return projects
}

func (c *Catalog) Get(id string) (Project, bool) {
	for _, p := range c.List() {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

func (c *Catalog) write(projects []Project) error {
	return c.store.Set(projectsKey, projects)
}

// Upsert inserts or replaces an entry. The stored ModifiedDate never moves
// backwards; a zero ModifiedDate means "now".
func (c *Catalog) Upsert(p Project) error {
	if p.ID == "" {
		return errors.New("project id must not be empty")
	}
	if p.ModifiedDate.IsZero() {
		p.ModifiedDate = c.now().UTC()
	}
	projects := c.List()
	for i, existing := range projects {
		if existing.ID == p.ID {
			if p.ModifiedDate.Before(existing.ModifiedDate) {
				p.ModifiedDate = existing.ModifiedDate
			}
			projects[i] = p
			return c.write(projects)
		}
	}
	return c.write(append(projects, p))
}

func (c *Catalog) Remove(id string) error {
	projects := c.List()
	kept := projects[:0]
	for _, p := range projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	c.store.Del(embeddingTaskKey(id))
	c.store.Del(embeddingStatusKey(id))
	c.store.Del(embeddingCompletedKey(id))
	return c.write(kept)
}

// Create adds a fresh project derived from title. The id is the
// underscore-joined title plus the first free counter, scanned against the
// existing ids ("New Project" -> New_Project_1, New_Project_2, ...).
func (c *Catalog) Create(title string) (Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Project{}, ErrEmptyTitle
	}
	taken := make(map[string]bool)
	for _, p := range c.List() {
		taken[p.ID] = true
	}
	base := strings.ReplaceAll(title, " ", "_")
	var id string
	for n := 1; ; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
		if !taken[id] {
			p := Project{
				ID:           id,
				Title:        fmt.Sprintf("%s %d", title, n),
				ModifiedDate: c.now().UTC(),
				Sources:      []gateway.Source{},
			}
			if err := c.Upsert(p); err != nil {
				return Project{}, err
			}
			c.log.Info("project created", zap.String("id", id))
			return p, nil
		}
	}
}

// Stub guarantees an entry for a workspace opened directly by URL, titling
// it from the id with underscores turned into spaces.
func (c *Catalog) Stub(id string) Project {
	if p, ok := c.Get(id); ok {
		return p
	}
	p := Project{
		ID:           id,
		Title:        strings.ReplaceAll(id, "_", " "),
		ModifiedDate: c.now().UTC(),
		Sources:      []gateway.Source{},
	}
	if err := c.Upsert(p); err != nil {
		c.log.Warn("persist stub", zap.String("id", id), zap.Error(err))
	}
	return p
}

// Rename sets a new title and bumps ModifiedDate. Empty titles are rejected.
func (c *Catalog) Rename(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	p, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("project %q not in catalog", id)
	}
	p.Title = title
	p.ModifiedDate = c.now().UTC()
	return c.Upsert(p)
}

// SetSources refreshes the cached file summary after a server response.
func (c *Catalog) SetSources(id string, files []gateway.Source) error {
	p, ok := c.Get(id)
	if !ok {
		p = c.Stub(id)
	}
	if files == nil {
		files = []gateway.Source{}
	}
	p.Sources = files
	p.ModifiedDate = c.now().UTC()
	return c.Upsert(p)
}

// Sort orders projects in place. recent = newest ModifiedDate first with
// title as tie-break; alpha = case-insensitive title.
func Sort(projects []Project, st SortType) {
	switch st {
	case SortAlpha:
		sort.SliceStable(projects, func(i, j int) bool {
			return strings.ToLower(projects[i].Title) < strings.ToLower(projects[j].Title)
		})
	default:
		sort.SliceStable(projects, func(i, j int) bool {
			if projects[i].ModifiedDate.Equal(projects[j].ModifiedDate) {
				return strings.ToLower(projects[i].Title) < strings.ToLower(projects[j].Title)
			}
			return projects[i].ModifiedDate.After(projects[j].ModifiedDate)
		})
	}
}

// View preferences.

func (c *Catalog) ViewType() ViewType {
	var v ViewType
	if err := c.store.Get(viewTypeKey, &v); err != nil || v == "" {
		return ViewGrid
	}
	return v
}

func (c *Catalog) SetViewType(v ViewType) {
	if err := c.store.Set(viewTypeKey, v); err != nil {
		c.log.Warn("persist view type", zap.Error(err))
	}
}

func (c *Catalog) SortType() SortType {
	var v SortType
	if err := c.store.Get(sortTypeKey, &v); err != nil || v == "" {
		return SortRecent
	}
	return v
}

func (c *Catalog) SetSortType(v SortType) {
	if err := c.store.Set(sortTypeKey, v); err != nil {
		c.log.Warn("persist sort type", zap.Error(err))
	}
}

func (c *Catalog) Theme() string {
	var v string
	if err := c.store.Get(themeKey, &v); err != nil || v == "" {
		return "light"
	}
	return v
}

func (c *Catalog) SetTheme(theme string) {
	if err := c.store.Set(themeKey, theme); err != nil {
		c.log.Warn("persist theme", zap.Error(err))
	}
}

// Embedding task persistence. The embedding controller's transitions are the
// only callers.

func (c *Catalog) EmbeddingTask(projectID string) (string, bool) {
	var id string
	if err := c.store.Get(embeddingTaskKey(projectID), &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (c *Catalog) SetEmbeddingTask(projectID, taskID string) error {
	if p, ok := c.Get(projectID); ok {
		p.EmbeddingTaskID = taskID
		if err := c.Upsert(p); err != nil {
			return err
		}
	}
	return c.store.Set(embeddingTaskKey(projectID), taskID)
}

func (c *Catalog) ClearEmbeddingTask(projectID string) {
	if p, ok := c.Get(projectID); ok && p.EmbeddingTaskID != "" {
		p.EmbeddingTaskID = ""
		if err := c.Upsert(p); err != nil {
			c.log.Warn("clear task id", zap.Error(err))
		}
	}
	c.store.Del(embeddingTaskKey(projectID))
	c.store.Del(embeddingStatusKey(projectID))
}

func (c *Catalog) SetEmbeddingStatus(projectID, status string) error {
	return c.store.Set(embeddingStatusKey(projectID), status)
}

func (c *Catalog) EmbeddingCompleted(projectID string) bool {
	var done bool
	if err := c.store.Get(embeddingCompletedKey(projectID), &done); err != nil {
		return false
	}
	return done
}

// SetEmbeddingCompleted marks the project permanently embedded and clears
// the in-flight task id; completion is irreversible from the client.
func (c *Catalog) SetEmbeddingCompleted(projectID string) error {
	if err := c.store.Set(embeddingCompletedKey(projectID), true); err != nil {
		return err
	}
	c.ClearEmbeddingTask(projectID)
	if p, ok := c.Get(projectID); ok {
		p.EmbeddingCompleted = true
		p.EmbeddingTaskID = ""
		return c.Upsert(p)
	}
	return nil
}
