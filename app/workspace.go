package main

import (
	"context"
	"net/url"
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"go.uber.org/zap"

	"lectern/internal/catalog"
	"lectern/internal/embed"
	"lectern/internal/gateway"
	"lectern/internal/signal"
)

const (
	defaultNotesWidth = 320
	maxNotesWidth     = 2 * defaultNotesWidth
	minChatWidth      = 300
	sourcesWidth      = 280
)

// WorkspaceView composes the three panels of a project page and owns the
// lock lifecycle driven by the embedding controller.
type WorkspaceView struct {
	app.Compo
	Deps *deps

	projectID string
	project   catalog.Project
	settings  gateway.ProjectSettings
	ctrl      *embed.Controller

	locked      bool
	completed   bool
	progress    int
	sourceCount int

	notesWidth int
	resizing   bool

	installed   bool
	unsubscribe context.CancelFunc
}

func (w *WorkspaceView) OnInit() {
	w.notesWidth = defaultNotesWidth
}

func (w *WorkspaceView) OnMount(ctx app.Context) {
	w.setup(ctx)
}

func (w *WorkspaceView) OnNav(ctx app.Context) {
	w.setup(ctx)
}

func (w *WorkspaceView) OnDismount() {
	w.teardown()
}

func (w *WorkspaceView) teardown() {
	if w.ctrl != nil {
		w.ctrl.Stop()
	}
	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}
}

// setup runs the workspace installation once per project. Navigating from
// one project page to another reinstalls, tearing down the previous
// controller and bus subscription first.
func (w *WorkspaceView) setup(ctx app.Context) {
	id := projectIDFromPath(ctx.Page().URL().Path)
	if id == "" || (w.installed && id == w.projectID) {
		return
	}
	w.teardown()
	w.installed = true
	w.projectID = id
	w.locked = false
	w.progress = 0

	cat := w.Deps.catalog(ctx)
	w.project = cat.Stub(id)
	w.completed = cat.EmbeddingCompleted(id)
	w.sourceCount = len(w.project.Sources)
	applyTheme(cat.Theme())

	w.ctrl = embed.New(id, w.Deps.API, cat, w.Deps.Bus, w.Deps.Rep,
		embed.WithLogger(w.Deps.Log.Named("embed")))

	w.subscribe(ctx)

	// Settings and file list load in parallel; a failure in one leaves the
	// other intact. Chat history and notes are fetched by their panels.
	w.settings = gateway.DefaultSettings()
	ctx.Async(func() {
		s, err := w.Deps.API.Settings(ctx, id)
		if err != nil {
			w.Deps.Log.Warn("load settings", zap.String("project_id", id), zap.Error(err))
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			w.settings = *s
		})
	})

	w.ctrl.Resume(ctx)
}

func projectIDFromPath(path string) string {
	raw := strings.TrimPrefix(path, "/project/")
	if raw == path || raw == "" {
		return ""
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return id
}

func (w *WorkspaceView) subscribe(ctx app.Context) {
	subCtx, cancel := context.WithCancel(ctx)
	events, err := w.Deps.Bus.Subscribe(subCtx, signal.TopicWorkspace)
	if err != nil {
		cancel()
		w.Deps.Log.Error("subscribe workspace topic", zap.Error(err))
		return
	}
	w.unsubscribe = cancel
	projectID := w.projectID
	go func() {
		for ev := range events {
			ev := ev
			if ev.ProjectID != "" && ev.ProjectID != projectID {
				continue
			}
			ctx.Dispatch(func(ctx app.Context) {
				w.apply(ev)
			})
		}
	}()
}

func (w *WorkspaceView) apply(ev signal.Event) {
	switch ev.Kind {
	case signal.KindLocked:
		w.locked = true
	case signal.KindUnlocked:
		w.locked = false
		w.progress = 0
	case signal.KindCompleted:
		w.locked = false
		w.completed = true
		w.progress = 0
	case signal.KindProgress:
		w.progress = ev.Progress
	case signal.KindSourcesChanged:
		w.sourceCount = ev.Count
	}
}

// Title rename: Enter saves, Escape cancels, empty reverts.

func (w *WorkspaceView) titleElement() app.Value {
	return app.Window().GetElementByID("project-title")
}

func (w *WorkspaceView) saveTitle(ctx app.Context) {
	el := w.titleElement()
	if !el.Truthy() {
		return
	}
	title := strings.TrimSpace(el.Get("innerText").String())
	if title == w.project.Title {
		return
	}
	if title == "" {
		el.Set("innerText", w.project.Title)
		w.Deps.Rep.Report("Project title cannot be empty.", true)
		return
	}
	if err := w.Deps.catalog(ctx).Rename(w.projectID, title); err != nil {
		el.Set("innerText", w.project.Title)
		w.Deps.Rep.Errorf("Could not rename project: %v", err)
		return
	}
	w.project.Title = title
}

func (w *WorkspaceView) onTitleKeyDown(ctx app.Context, e app.Event) {
	switch e.Get("key").String() {
	case "Enter":
		e.PreventDefault()
		w.saveTitle(ctx)
		w.titleElement().Call("blur")
	case "Escape":
		w.titleElement().Set("innerText", w.project.Title)
		w.titleElement().Call("blur")
	}
}

// Divider drag between chat and notes.

func (w *WorkspaceView) onDividerMouseDown(ctx app.Context, e app.Event) {
	e.PreventDefault()
	w.resizing = true
}

func (w *WorkspaceView) onMouseMove(ctx app.Context, e app.Event) {
	if !w.resizing {
		return
	}
	e.PreventDefault()
	windowWidth := app.Window().Get("innerWidth").Int()
	width := windowWidth - e.Get("clientX").Int()
	if width < defaultNotesWidth {
		width = defaultNotesWidth
	}
	if width > maxNotesWidth {
		width = maxNotesWidth
	}
	if room := windowWidth - sourcesWidth - minChatWidth; width > room {
		width = room
	}
	w.notesWidth = width
}

func (w *WorkspaceView) onMouseUp(ctx app.Context, e app.Event) {
	w.resizing = false
}

func (w *WorkspaceView) Render() app.UI {
	return app.Div().
		Class("workspace").
		OnMouseMove(w.onMouseMove).
		OnMouseUp(w.onMouseUp).
		Body(
			app.Header().Class("workspace-header").Body(
				app.A().Class("back-link").Href("/").Body(
					app.Span().Class("material-symbols-outlined").Text("arrow_back"),
				),
				app.H1().
					ID("project-title").
					Class("project-title").
					ContentEditable(true).
					Text(w.project.Title).
					OnKeyDown(w.onTitleKeyDown).
					OnBlur(func(ctx app.Context, e app.Event) {
						w.saveTitle(ctx)
					}),
			),
			app.Main().Class("workspace-panels").Body(
				&SourcesPanel{
					Deps:      w.Deps,
					ProjectID: w.projectID,
					Locked:    w.locked,
					Completed: w.completed,
					Progress:  w.progress,
					Ctrl:      w.ctrl,
				},
				&ChatPanel{
					Deps:       w.Deps,
					ProjectID:  w.projectID,
					Locked:     w.locked,
					HasSources: w.sourceCount > 0,
				},
				app.Div().
					Class("panel-divider").
					OnMouseDown(w.onDividerMouseDown),
				&NotesPanel{
					Deps:      w.Deps,
					ProjectID: w.projectID,
					Width:     w.notesWidth,
				},
			),
			&StatusBar{Deps: w.Deps},
		)
}
