package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"go.uber.org/zap"

	"lectern/internal/embed"
	"lectern/internal/filetype"
	"lectern/internal/gateway"
	"lectern/internal/signal"
)

const (
	entryReady     = ""
	entryUploading = "uploading"
	entryError     = "error"
)

type sourceEntry struct {
	gateway.Source
	state string
}

// SourcesPanel lists uploaded files and handles upload, delete, and the
// embed action. Lock state arrives from the parent workspace.
type SourcesPanel struct {
	app.Compo
	Deps      *deps
	ProjectID string
	Locked    bool
	Completed bool
	Progress  int
	Ctrl      *embed.Controller

	entries   []sourceEntry
	uploading bool
	uploadPct int
	dragOver  bool
	loaded    bool
}

func (s *SourcesPanel) OnMount(ctx app.Context) {
	s.refresh(ctx)
}

// refresh pulls the authoritative list and announces the confirmed count.
func (s *SourcesPanel) refresh(ctx app.Context) {
	ctx.Async(func() {
		files, err := s.Deps.API.ListFiles(ctx, s.ProjectID)
		if err != nil {
			s.Deps.Log.Warn("list files", zap.String("project_id", s.ProjectID), zap.Error(err))
			ctx.Dispatch(func(ctx app.Context) {
				s.loaded = true
			})
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			s.entries = make([]sourceEntry, 0, len(files))
			for _, f := range files {
				s.entries = append(s.entries, sourceEntry{Source: f})
			}
			s.loaded = true
			s.announce(ctx)
		})
	})
}

// announce refreshes the catalog cache and tells the workspace how many
// confirmed sources exist.
func (s *SourcesPanel) announce(ctx app.Context) {
	confirmed := make([]gateway.Source, 0, len(s.entries))
	for _, e := range s.entries {
		if e.state == entryReady {
			confirmed = append(confirmed, e.Source)
		}
	}
	if err := s.Deps.catalog(ctx).SetSources(s.ProjectID, confirmed); err != nil {
		s.Deps.Log.Warn("cache sources", zap.Error(err))
	}
	if err := s.Deps.Bus.Publish(signal.TopicWorkspace, signal.Event{
		Kind:      signal.KindSourcesChanged,
		ProjectID: s.ProjectID,
		Count:     len(confirmed),
	}); err != nil {
		s.Deps.Log.Error("publish source count", zap.Error(err))
	}
}

func (s *SourcesPanel) has(filename string) bool {
	for _, e := range s.entries {
		if e.Filename == filename {
			return true
		}
	}
	return false
}

func (s *SourcesPanel) setState(filename, state string) {
	for i := range s.entries {
		if s.entries[i].Filename == filename {
			s.entries[i].state = state
			return
		}
	}
}

// uploadAllowed: uploads are blocked only while a task polls; a completed
// project may still receive files for chat context even though embedded
// sources are immutable.
func (s *SourcesPanel) uploadAllowed() bool {
	return !s.Locked && !s.uploading
}

func (s *SourcesPanel) onPick(ctx app.Context, e app.Event) {
	files := e.Get("target").Get("files")
	s.handleFiles(ctx, files)
	e.Get("target").Set("value", "")
}

func (s *SourcesPanel) onDragOver(ctx app.Context, e app.Event) {
	e.PreventDefault()
	if s.uploadAllowed() {
		s.dragOver = true
	}
}

func (s *SourcesPanel) onDragLeave(ctx app.Context, e app.Event) {
	s.dragOver = false
}

func (s *SourcesPanel) onDrop(ctx app.Context, e app.Event) {
	e.PreventDefault()
	s.dragOver = false
	if !s.uploadAllowed() {
		return
	}
	s.handleFiles(ctx, e.Get("dataTransfer").Get("files"))
}

// handleFiles filters the browser's FileList, adds optimistic entries, and
// reads file bytes before shipping the batch.
func (s *SourcesPanel) handleFiles(ctx app.Context, list app.Value) {
	if !list.Truthy() {
		return
	}

	var picked []app.Value
	for i := 0; i < list.Get("length").Int(); i++ {
		f := list.Index(i)
		name := f.Get("name").String()
		if !filetype.Allowed(name) {
			s.Deps.Rep.Errorf("File type not allowed: %s", name)
			continue
		}
		if s.has(name) {
			continue
		}
		picked = append(picked, f)
		s.entries = append(s.entries, sourceEntry{
			Source: gateway.Source{Filename: name, Size: int64(f.Get("size").Int())},
			state:  entryUploading,
		})
	}
	if len(picked) == 0 {
		return
	}

	// arrayBuffer callbacks all land on the main JS thread, so a plain
	// counter is enough to detect the last one.
	batch := make([]gateway.UploadFile, len(picked))
	remaining := len(picked)
	for i, f := range picked {
		i, f := i, f
		name := f.Get("name").String()
		f.Call("arrayBuffer").Then(func(v app.Value) {
			buf := app.Window().Get("Uint8Array").New(v)
			data := make([]byte, buf.Get("length").Int())
			app.CopyBytesToGo(data, buf)
			batch[i] = gateway.UploadFile{Name: name, Data: data}
			remaining--
			if remaining == 0 {
				s.upload(ctx, batch)
			}
		})
	}
}

func (s *SourcesPanel) upload(ctx app.Context, batch []gateway.UploadFile) {
	ctx.Dispatch(func(ctx app.Context) {
		s.uploading = true
		s.uploadPct = 0
	})

	ctx.Async(func() {
		res, err := s.Deps.API.Upload(ctx, s.ProjectID, batch, func(loaded, total int64) {
			ctx.Dispatch(func(ctx app.Context) {
				if total > 0 {
					s.uploadPct = int(loaded * 100 / total)
				}
			})
		})

		ctx.Dispatch(func(ctx app.Context) {
			s.uploading = false
			if err != nil {
				for _, f := range batch {
					s.setState(f.Name, entryError)
				}
				s.Deps.Rep.Errorf("Upload failed: %v", err)
				return
			}
			accepted := 0
			for _, f := range batch {
				if res.Accepted(f.Name) {
					s.setState(f.Name, entryReady)
					accepted++
				} else {
					s.setState(f.Name, entryError)
				}
			}
			for _, msg := range res.Errors {
				s.Deps.Rep.Report(msg, true)
			}
			if accepted > 0 {
				s.Deps.Rep.Successf("Uploaded %d file(s).", accepted)
			}
			s.announce(ctx)
		})
	})
}

func (s *SourcesPanel) onDelete(ctx app.Context, e app.Event, filename string) {
	e.Call("stopPropagation")
	if !app.Window().Call("confirm", fmt.Sprintf("Delete %s?", filename)).Bool() {
		return
	}
	ctx.Async(func() {
		if err := s.Deps.API.DeleteSource(ctx, s.ProjectID, filename); err != nil {
			s.Deps.Rep.Errorf("Could not delete %s: %v", filename, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			kept := s.entries[:0]
			for _, en := range s.entries {
				if en.Filename != filename {
					kept = append(kept, en)
				}
			}
			s.entries = kept
			s.Deps.Rep.Successf("Deleted %s.", filename)
			s.announce(ctx)
		})
	})
}

func (s *SourcesPanel) onOpen(ctx app.Context, filename string) {
	if !filetype.ViewableInTab(filename) {
		return
	}
	app.Window().Call("open", s.Deps.API.SourceURL(s.ProjectID, filename), "_blank")
}

func (s *SourcesPanel) onEmbed(ctx app.Context, e app.Event) {
	confirmed := 0
	for _, en := range s.entries {
		if en.state == entryReady {
			confirmed++
		}
	}
	if confirmed > 0 &&
		!app.Window().Call("confirm", "Embedding will lock your sources. Continue?").Bool() {
		return
	}
	// Start blocks on the POST until the backend replies, so it must stay
	// off the dispatch goroutine.
	ctrl := s.Ctrl
	ctx.Async(func() {
		if err := ctrl.Start(ctx, confirmed); err != nil {
			s.Deps.Log.Debug("embed rejected", zap.Error(err))
		}
	})
}

func (s *SourcesPanel) Render() app.UI {
	return app.Section().Class("panel sources-panel").Body(
		app.H2().Text("Sources"),
		s.renderDropZone(),
		app.If(s.loaded && len(s.entries) == 0, func() app.UI {
			return app.P().Class("placeholder").Text("No sources yet. Drop files here or use Add.")
		}),
		app.Ul().Class("source-list").Body(
			app.Range(s.entries).Slice(func(i int) app.UI {
				return s.renderEntry(s.entries[i])
			}),
		),
		app.If(s.uploading, func() app.UI {
			return app.Div().Class("upload-progress").Body(
				app.Div().Class("upload-progress-fill").
					Style("width", fmt.Sprintf("%d%%", s.uploadPct)),
			)
		}),
		s.renderEmbedButton(),
	)
}

func (s *SourcesPanel) renderDropZone() app.UI {
	cls := "drop-zone"
	if s.dragOver {
		cls += " drag-over"
	}
	if !s.uploadAllowed() {
		cls += " disabled"
	}
	return app.Div().
		Class(cls).
		OnDragOver(s.onDragOver).
		OnDragLeave(s.onDragLeave).
		OnDrop(s.onDrop).
		Body(
			app.Span().Text("Drop files or"),
			app.Label().Class("file-picker-label").For("file-picker").Text("browse"),
			app.Input().
				ID("file-picker").
				Type("file").
				Multiple(true).
				Accept(".txt,.pdf,.docx,.doc,.csv,.md,.html,.json").
				Disabled(!s.uploadAllowed()).
				OnChange(s.onPick),
		)
}

func (s *SourcesPanel) renderEntry(en sourceEntry) app.UI {
	cls := "source-entry"
	if en.state == entryError {
		cls += " upload-error"
	}
	li := app.Li().
		Class(cls).
		OnDblClick(func(ctx app.Context, e app.Event) {
			s.onOpen(ctx, en.Filename)
		})
	if en.state == entryError {
		li = li.Title("Upload failed")
	}
	return li.Body(
		app.Span().Class("material-symbols-outlined").Text(string(filetype.IconFor(en.Filename))),
		app.Span().Class("source-name").Text(en.Filename),
		app.Span().Class("source-size").Text(humanize.Bytes(uint64(en.Size))),
		app.If(en.state == entryUploading, func() app.UI {
			return app.Span().Class("source-status").Text("uploading…")
		}),
		app.If(en.state == entryReady && !s.Locked && !s.Completed, func() app.UI {
			return app.Button().
				Class("toolbar-btn delete-btn").
				Title("Delete source").
				Body(app.Span().Class("material-symbols-outlined").Text("delete")).
				OnClick(func(ctx app.Context, e app.Event) {
					s.onDelete(ctx, e, en.Filename)
				})
		}),
	)
}

func (s *SourcesPanel) renderEmbedButton() app.UI {
	label := "Embed sources"
	disabled := false
	switch {
	case s.Completed:
		label = "Embedded"
		disabled = true
	case s.Locked:
		label = fmt.Sprintf("%d%%", s.Progress)
		disabled = true
	}
	cls := "primary-btn embed-btn"
	if disabled {
		cls += " disabled"
	}
	return app.Button().
		Class(cls).
		Disabled(disabled).
		Text(label).
		OnClick(s.onEmbed)
}
