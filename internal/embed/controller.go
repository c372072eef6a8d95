// Package embed drives one long-running embedding task per project and owns
// the workspace lock state. The lifecycle is idle -> starting -> polling ->
// completed | failed; completed is terminal and irreversible, failed falls
// straight back to idle so the user can retry. Lock transitions are
// published on the workspace signal topic; local storage keeps the task id
// so a page reload resumes polling.
package embed

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"lectern/internal/catalog"
	"lectern/internal/gateway"
	"lectern/internal/signal"
	"lectern/internal/status"
)

// DefaultPollInterval is the fixed cadence of task status queries.
const DefaultPollInterval = 3 * time.Second

type State int

const (
	StateIdle State = iota
	StateStarting
	StatePolling
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrNoSources rejects an embed attempt on a project without sources.
	ErrNoSources = errors.New("no sources to embed")
	// ErrBusy rejects an embed attempt while a task is starting or running.
	ErrBusy = errors.New("embedding already in progress")
	// ErrCompleted rejects an embed attempt after the one allowed success.
	ErrCompleted = errors.New("embedding already completed")
)

// Client is the slice of the gateway the controller needs.
type Client interface {
	StartEmbedding(ctx context.Context, projectID string) (string, error)
	TaskStatus(ctx context.Context, taskID string) (*gateway.TaskStatus, error)
}

type Controller struct {
	projectID string
	client    Client
	cat       *catalog.Catalog
	bus       *signal.Bus
	rep       *status.Reporter
	log       *zap.Logger
	interval  time.Duration

	mu     sync.Mutex
	state  State
	taskID string
	cancel context.CancelFunc
}

type Option func(*Controller)

func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func New(projectID string, client Client, cat *catalog.Catalog, bus *signal.Bus, rep *status.Reporter, opts ...Option) *Controller {
	c := &Controller{
		projectID: projectID,
		client:    client,
		cat:       cat,
		bus:       bus,
		rep:       rep,
		log:       zap.NewNop(),
		interval:  DefaultPollInterval,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) TaskID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.taskID
}

// Resume restores the controller after a page load: a persisted completion
// flag republishes the completed lock, a persisted task id re-enters polling
// without user interaction.
func (c *Controller) Resume(ctx context.Context) {
	if c.cat.EmbeddingCompleted(c.projectID) {
		c.mu.Lock()
		c.state = StateCompleted
		c.mu.Unlock()
		c.publish(signal.Event{Kind: signal.KindCompleted, ProjectID: c.projectID})
		return
	}
	if taskID, ok := c.cat.EmbeddingTask(c.projectID); ok {
		c.log.Info("resuming embedding task", zap.String("task_id", taskID))
		c.beginPolling(ctx, taskID)
	}
}

// Start begins a new embedding task. sourceCount is the caller's confirmed
// source count; with zero sources the request is rejected before any POST.
func (c *Controller) Start(ctx context.Context, sourceCount int) error {
	c.mu.Lock()
	switch c.state {
	case StateCompleted:
		c.mu.Unlock()
		return ErrCompleted
	case StateStarting, StatePolling:
		c.mu.Unlock()
		return ErrBusy
	}
	if sourceCount == 0 {
		c.mu.Unlock()
		c.rep.Report("Add sources before embedding.", true)
		return ErrNoSources
	}
	c.state = StateStarting
	c.mu.Unlock()

	taskID, err := c.client.StartEmbedding(ctx, c.projectID)
	if err != nil {
		c.log.Warn("start embedding", zap.Error(err))
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		c.rep.Errorf("Failed to start embedding: %v", err)
		return err
	}
	c.beginPolling(ctx, taskID)
	return nil
}

// Stop cancels the polling loop. Used on page unload; persisted state is
// untouched so the next load resumes.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
}

// beginPolling installs the single poller. Any previous interval for this
// project is cancelled first.
func (c *Controller) beginPolling(ctx context.Context, taskID string) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StatePolling
	c.taskID = taskID
	c.mu.Unlock()

	if err := c.cat.SetEmbeddingTask(c.projectID, taskID); err != nil {
		c.log.Warn("persist task id", zap.Error(err))
	}
	c.publish(signal.Event{Kind: signal.KindLocked, ProjectID: c.projectID})
	go c.poll(pollCtx, taskID)
}

func (c *Controller) poll(ctx context.Context, taskID string) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := c.client.TaskStatus(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, gateway.ErrNotFound) {
				c.log.Warn("embedding task unknown to server", zap.String("task_id", taskID))
				c.abort("Embedding task no longer exists.")
			} else {
				c.log.Warn("poll embedding status", zap.Error(err))
				c.abort("Lost contact with the embedding task.")
			}
			return
		}

		if err := c.cat.SetEmbeddingStatus(c.projectID, st.Status); err != nil {
			c.log.Warn("persist task status", zap.Error(err))
		}

		switch {
		case st.Succeeded():
			c.complete(st)
			return
		case st.Status == gateway.StatusFailed:
			c.fail(st)
			return
		default:
			c.publish(signal.Event{
				Kind:      signal.KindProgress,
				ProjectID: c.projectID,
				Progress:  int(st.Progress),
			})
		}
	}
}

func (c *Controller) complete(st *gateway.TaskStatus) {
	c.mu.Lock()
	c.state = StateCompleted
	c.cancel = nil
	c.mu.Unlock()

	if err := c.cat.SetEmbeddingCompleted(c.projectID); err != nil {
		c.log.Warn("persist completion", zap.Error(err))
	}
	if st.Status == gateway.StatusCompletedWithErrors {
		c.rep.Report("Embedding completed with some errors.", true)
	} else {
		c.rep.Report("Embedding completed successfully!", false)
	}
	c.publish(signal.Event{Kind: signal.KindCompleted, ProjectID: c.projectID})
}

func (c *Controller) fail(st *gateway.TaskStatus) {
	msg := "Embedding failed."
	if st.Error != "" {
		msg = "Embedding failed: " + st.Error
	}
	c.log.Warn("embedding task failed", zap.String("task_id", c.TaskID()), zap.String("error", st.Error))
	// failed is momentary; the controller is immediately idle again so the
	// user can retry.
	c.toIdle(msg)
}

func (c *Controller) abort(msg string) {
	c.toIdle(msg)
}

func (c *Controller) toIdle(msg string) {
	c.mu.Lock()
	c.state = StateIdle
	c.taskID = ""
	c.cancel = nil
	c.mu.Unlock()

	c.cat.ClearEmbeddingTask(c.projectID)
	if msg != "" {
		c.rep.Report(msg, true)
	}
	c.publish(signal.Event{Kind: signal.KindUnlocked, ProjectID: c.projectID})
}

func (c *Controller) publish(ev signal.Event) {
	if err := c.bus.Publish(signal.TopicWorkspace, ev); err != nil {
		c.log.Error("publish workspace signal", zap.Error(err))
	}
}
