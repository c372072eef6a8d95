package main

import (
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"go.uber.org/zap"

	"lectern/internal/gateway"
	"lectern/internal/msgfmt"
	"lectern/internal/signal"
)

// publishNotesChanged asks every notes panel on the project to refetch.
func publishNotesChanged(d *deps, projectID string) {
	if err := d.Bus.Publish(signal.TopicWorkspace, signal.Event{
		Kind:      signal.KindNotesChanged,
		ProjectID: projectID,
	}); err != nil {
		d.Log.Error("publish notes changed", zap.Error(err))
	}
}

// NotesPanel lists notes and edits them through a modal.
type NotesPanel struct {
	app.Compo
	Deps      *deps
	ProjectID string
	Width     int

	notes      []gateway.Note
	loaded     bool
	modalOpen  bool
	editingID  string
	editingAt  time.Time
	draftTitle string
	draftBody  string
	saving     bool
}

func (n *NotesPanel) OnMount(ctx app.Context) {
	n.refresh(ctx)

	events, err := n.Deps.Bus.Subscribe(ctx, signal.TopicWorkspace)
	if err != nil {
		n.Deps.Log.Error("subscribe workspace topic", zap.Error(err))
		return
	}
	go func() {
		for ev := range events {
			if ev.Kind != signal.KindNotesChanged || ev.ProjectID != n.ProjectID {
				continue
			}
			ctx.Dispatch(func(ctx app.Context) {
				n.refresh(ctx)
			})
		}
	}()
}

func (n *NotesPanel) refresh(ctx app.Context) {
	ctx.Async(func() {
		notes, err := n.Deps.API.ListNotes(ctx, n.ProjectID)
		if err != nil {
			n.Deps.Log.Warn("list notes", zap.String("project_id", n.ProjectID), zap.Error(err))
			ctx.Dispatch(func(ctx app.Context) {
				n.loaded = true
			})
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			n.notes = notes
			n.loaded = true
			// The note open in the modal may have been deleted or rewritten
			// elsewhere; stale drafts must not overwrite the newer copy.
			if n.modalOpen && n.editingID != "" && noteStale(n.notes, n.editingID, n.editingAt) {
				n.closeModal()
			}
		})
	})
}

// noteStale reports whether the note opened at seen is gone from notes or
// carries a newer modification time.
func noteStale(notes []gateway.Note, id string, seen time.Time) bool {
	for _, note := range notes {
		if note.ID == id {
			return note.ModifiedAt.Time.After(seen)
		}
	}
	return true
}

func (n *NotesPanel) openNew(ctx app.Context, e app.Event) {
	n.editingID = ""
	n.draftTitle = ""
	n.draftBody = ""
	n.modalOpen = true
}

func (n *NotesPanel) openExisting(ctx app.Context, id string) {
	ctx.Async(func() {
		note, err := n.Deps.API.GetNote(ctx, n.ProjectID, id)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				n.Deps.Rep.Errorf("Could not open note: %v", err)
				return
			}
			n.editingID = note.ID
			n.editingAt = note.ModifiedAt.Time
			n.draftTitle = note.Title
			n.draftBody = note.Content
			n.modalOpen = true
		})
	})
}

func (n *NotesPanel) closeModal() {
	n.modalOpen = false
	n.editingID = ""
	n.editingAt = time.Time{}
	n.draftTitle = ""
	n.draftBody = ""
}

func (n *NotesPanel) onSave(ctx app.Context, e app.Event) {
	if n.saving {
		return
	}
	if n.draftTitle == "" && n.draftBody == "" {
		n.Deps.Rep.Report("A note needs a title or some content.", true)
		return
	}
	n.saving = true
	id, title, body := n.editingID, n.draftTitle, n.draftBody

	ctx.Async(func() {
		var err error
		if id == "" {
			_, err = n.Deps.API.CreateNote(ctx, n.ProjectID, title, body)
		} else {
			err = n.Deps.API.UpdateNote(ctx, n.ProjectID, id, title, body)
		}
		ctx.Dispatch(func(ctx app.Context) {
			n.saving = false
			if err != nil {
				n.Deps.Rep.Errorf("Could not save note: %v", err)
				return
			}
			n.closeModal()
			n.Deps.Rep.Report("Note saved.", false)
			publishNotesChanged(n.Deps, n.ProjectID)
		})
	})
}

func (n *NotesPanel) onDelete(ctx app.Context, e app.Event, note gateway.Note) {
	e.Call("stopPropagation")
	title := note.Title
	if title == "" {
		title = "Untitled Note"
	}
	if !app.Window().Call("confirm", fmt.Sprintf("Delete note %q?", title)).Bool() {
		return
	}
	ctx.Async(func() {
		err := n.Deps.API.DeleteNote(ctx, n.ProjectID, note.ID)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				n.Deps.Rep.Errorf("Could not delete note: %v", err)
				return
			}
			if n.modalOpen && n.editingID == note.ID {
				n.closeModal()
			}
			n.Deps.Rep.Report("Note deleted.", false)
			publishNotesChanged(n.Deps, n.ProjectID)
		})
	})
}

func (n *NotesPanel) Render() app.UI {
	width := n.Width
	if width <= 0 {
		width = defaultNotesWidth
	}
	return app.Section().
		Class("panel notes-panel").
		Style("width", fmt.Sprintf("%dpx", width)).
		Body(
			app.Div().Class("panel-head").Body(
				app.H2().Text("Notes"),
				app.Button().
					Class("toolbar-btn").
					Title("New note").
					Body(app.Span().Class("material-symbols-outlined").Text("add")).
					OnClick(n.openNew),
			),
			app.If(n.loaded && len(n.notes) == 0, func() app.UI {
				return app.P().Class("placeholder").Text("No notes yet.")
			}),
			app.Ul().Class("note-list").Body(
				app.Range(n.notes).Slice(func(i int) app.UI {
					return n.renderNote(n.notes[i])
				}),
			),
			app.If(n.modalOpen, func() app.UI {
				return n.renderModal()
			}),
		)
}

func (n *NotesPanel) renderNote(note gateway.Note) app.UI {
	title := note.Title
	if title == "" {
		title = "Untitled Note"
	}
	return app.Li().
		Class("note-entry").
		OnClick(func(ctx app.Context, e app.Event) {
			n.openExisting(ctx, note.ID)
		}).
		Body(
			app.Span().Class("material-symbols-outlined").Text("sticky_note_2"),
			app.Div().Class("note-meta").Body(
				app.Span().Class("note-title").Text(title),
				app.Span().Class("note-time").
					Text(msgfmt.Timestamp(note.ModifiedAt.Time, time.Now())),
			),
			app.Button().
				Class("toolbar-btn delete-btn").
				Title("Delete note").
				Body(app.Span().Class("material-symbols-outlined").Text("delete")).
				OnClick(func(ctx app.Context, e app.Event) {
					n.onDelete(ctx, e, note)
				}),
		)
}

func (n *NotesPanel) renderModal() app.UI {
	heading := "New note"
	if n.editingID != "" {
		heading = "Edit note"
	}
	return app.Div().
		Class("modal-backdrop").
		OnClick(func(ctx app.Context, e app.Event) {
			n.closeModal()
		}).
		Body(
			app.Div().
				Class("modal").
				OnClick(func(ctx app.Context, e app.Event) {
					e.Call("stopPropagation")
				}).
				Body(
					app.H3().Text(heading),
					app.Input().
						Class("note-title-input").
						Placeholder("Title").
						Value(n.draftTitle).
						OnInput(func(ctx app.Context, e app.Event) {
							n.draftTitle = e.Get("target").Get("value").String()
						}),
					app.Textarea().
						Class("note-body-input").
						Placeholder("Write something…").
						Text(n.draftBody).
						OnInput(func(ctx app.Context, e app.Event) {
							n.draftBody = e.Get("target").Get("value").String()
						}),
					app.Div().Class("modal-actions").Body(
						app.Button().
							Class("secondary-btn").
							Text("Cancel").
							OnClick(func(ctx app.Context, e app.Event) {
								n.closeModal()
							}),
						app.Button().
							Class("primary-btn").
							Text("Save").
							Disabled(n.saving).
							OnClick(n.onSave),
					),
				),
		)
}
