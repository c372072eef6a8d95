package main

import (
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"go.uber.org/zap"

	"lectern/internal/catalog"
)

// HomeView lists the project catalog with grid/list and sort controls.
type HomeView struct {
	app.Compo
	Deps *deps

	projects []catalog.Project
	view     catalog.ViewType
	sort     catalog.SortType
	theme    string
	menuFor  string
	renaming string
	loaded   bool
}

func (h *HomeView) OnMount(ctx app.Context) {
	cat := h.Deps.catalog(ctx)
	h.view = cat.ViewType()
	h.sort = cat.SortType()
	h.theme = cat.Theme()
	applyTheme(h.theme)
	h.reload(ctx)
	h.loaded = true
}

func (h *HomeView) OnNav(ctx app.Context) {
	if h.loaded {
		h.reload(ctx)
	}
}

func (h *HomeView) reload(ctx app.Context) {
	h.projects = h.Deps.catalog(ctx).List()
	catalog.Sort(h.projects, h.sort)
}

func (h *HomeView) onCreate(ctx app.Context, e app.Event) {
	p, err := h.Deps.catalog(ctx).Create("New Project")
	if err != nil {
		h.Deps.Rep.Errorf("Could not create project: %v", err)
		return
	}
	ctx.Navigate("/project/" + url.PathEscape(p.ID))
}

func (h *HomeView) onOpen(ctx app.Context, id string) {
	ctx.Navigate("/project/" + url.PathEscape(id))
}

func (h *HomeView) onToggleMenu(ctx app.Context, e app.Event, id string) {
	e.Call("stopPropagation")
	if h.menuFor == id {
		h.menuFor = ""
	} else {
		h.menuFor = id
	}
}

func (h *HomeView) onStartRename(ctx app.Context, e app.Event, id string) {
	e.Call("stopPropagation")
	h.menuFor = ""
	h.renaming = id
	ctx.Defer(func(app.Context) {
		el := app.Window().GetElementByID("rename-" + id)
		if el.Truthy() {
			el.Call("focus")
		}
	})
}

func (h *HomeView) finishRename(ctx app.Context, id string) {
	if h.renaming != id {
		return
	}
	h.renaming = ""

	el := app.Window().GetElementByID("rename-" + id)
	if !el.Truthy() {
		return
	}
	title := el.Get("value").String()
	if err := h.Deps.catalog(ctx).Rename(id, title); err != nil {
		h.Deps.Rep.Report("Project title cannot be empty.", true)
	}
	h.reload(ctx)
}

func (h *HomeView) onRenameKeyDown(ctx app.Context, e app.Event, id string) {
	switch e.Get("key").String() {
	case "Enter":
		e.PreventDefault()
		h.finishRename(ctx, id)
	case "Escape":
		h.renaming = ""
	}
}

func (h *HomeView) onDelete(ctx app.Context, e app.Event, p catalog.Project) {
	e.Call("stopPropagation")
	h.menuFor = ""
	if !app.Window().Call("confirm", fmt.Sprintf("Delete project %q? This cannot be undone.", p.Title)).Bool() {
		return
	}
	if err := h.Deps.catalog(ctx).Remove(p.ID); err != nil {
		h.Deps.Log.Warn("delete project", zap.String("id", p.ID), zap.Error(err))
		h.Deps.Rep.Errorf("Could not delete %q.", p.Title)
		return
	}
	h.Deps.Rep.Successf("Deleted %q.", p.Title)
	h.reload(ctx)
}

func (h *HomeView) setView(ctx app.Context, v catalog.ViewType) {
	h.view = v
	h.Deps.catalog(ctx).SetViewType(v)
}

func (h *HomeView) onSortChange(ctx app.Context, e app.Event) {
	h.sort = catalog.SortType(e.Get("target").Get("value").String())
	h.Deps.catalog(ctx).SetSortType(h.sort)
	h.reload(ctx)
}

func (h *HomeView) onToggleTheme(ctx app.Context, e app.Event) {
	h.theme = otherTheme(h.theme)
	h.Deps.catalog(ctx).SetTheme(h.theme)
	applyTheme(h.theme)
}

func (h *HomeView) Render() app.UI {
	return app.Div().
		Class("home").
		OnClick(func(ctx app.Context, e app.Event) {
			// Clicks outside any options control close the open menu.
			h.menuFor = ""
		}).
		Body(
			h.renderHeader(),
			app.If(len(h.projects) == 0, func() app.UI {
				return app.Div().Class("placeholder").Body(
					app.P().Text("No projects yet."),
					app.P().Text("Create one to start collecting sources, notes, and conversations."),
				)
			}).ElseIf(h.view == catalog.ViewList, func() app.UI {
				return h.renderList()
			}).Else(func() app.UI {
				return h.renderGrid()
			}),
			&StatusBar{Deps: h.Deps},
		)
}

func (h *HomeView) renderHeader() app.UI {
	viewBtn := func(v catalog.ViewType, icon, title string) app.UI {
		cls := "toolbar-btn"
		if h.view == v {
			cls += " active"
		}
		return app.Button().
			Class(cls).
			Title(title).
			Body(app.Span().Class("material-symbols-outlined").Text(icon)).
			OnClick(func(ctx app.Context, e app.Event) {
				h.setView(ctx, v)
			})
	}

	return app.Header().Class("home-header").Body(
		app.H1().Text("Lectern"),
		app.Div().Class("home-controls").Body(
			app.Select().
				Class("sort-select").
				OnChange(h.onSortChange).
				Body(
					app.Option().Value(string(catalog.SortRecent)).
						Selected(h.sort == catalog.SortRecent).
						Text("Most recent"),
					app.Option().Value(string(catalog.SortAlpha)).
						Selected(h.sort == catalog.SortAlpha).
						Text("Alphabetical"),
				),
			viewBtn(catalog.ViewGrid, "grid_view", "Grid view"),
			viewBtn(catalog.ViewList, "view_list", "List view"),
			app.Button().
				Class("toolbar-btn").
				Title("Toggle theme").
				Body(app.Span().Class("material-symbols-outlined").Text("contrast")).
				OnClick(h.onToggleTheme),
			app.Button().
				Class("primary-btn").
				Text("New project").
				OnClick(h.onCreate),
		),
	)
}

func (h *HomeView) renderGrid() app.UI {
	return app.Div().Class("project-grid").Body(
		app.Range(h.projects).Slice(func(i int) app.UI {
			p := h.projects[i]
			return app.Div().
				Class("project-card").
				OnClick(func(ctx app.Context, e app.Event) {
					if h.renaming != p.ID {
						h.onOpen(ctx, p.ID)
					}
				}).
				Body(
					h.renderTitle(p),
					app.P().Class("project-meta").
						Text(fmt.Sprintf("%d sources", len(p.Sources))),
					app.P().Class("project-meta").
						Text("Modified " + humanize.Time(p.ModifiedDate)),
					h.renderOptions(p),
				)
		}),
	)
}

func (h *HomeView) renderList() app.UI {
	return app.Div().Class("project-list").Body(
		app.Div().Class("project-row project-row-header").Body(
			app.Span().Text("Title"),
			app.Span().Text("Sources"),
			app.Span().Text("Modified"),
			app.Span(),
		),
		app.Range(h.projects).Slice(func(i int) app.UI {
			p := h.projects[i]
			return app.Div().
				Class("project-row").
				OnClick(func(ctx app.Context, e app.Event) {
					if h.renaming != p.ID {
						h.onOpen(ctx, p.ID)
					}
				}).
				Body(
					h.renderTitle(p),
					app.Span().Text(fmt.Sprintf("%d", len(p.Sources))),
					app.Span().Text(humanize.Time(p.ModifiedDate)),
					h.renderOptions(p),
				)
		}),
	)
}

func (h *HomeView) renderTitle(p catalog.Project) app.UI {
	if h.renaming == p.ID {
		return app.Input().
			ID("rename-"+p.ID).
			Class("rename-input").
			Value(p.Title).
			OnClick(func(ctx app.Context, e app.Event) {
				e.Call("stopPropagation")
			}).
			OnKeyDown(func(ctx app.Context, e app.Event) {
				h.onRenameKeyDown(ctx, e, p.ID)
			}).
			OnBlur(func(ctx app.Context, e app.Event) {
				h.finishRename(ctx, p.ID)
			})
	}
	return app.Span().Class("project-title").Text(p.Title)
}

func (h *HomeView) renderOptions(p catalog.Project) app.UI {
	return app.Div().Class("options").Body(
		app.Button().
			Class("toolbar-btn options-btn").
			Title("Options").
			Body(app.Span().Class("material-symbols-outlined").Text("more_vert")).
			OnClick(func(ctx app.Context, e app.Event) {
				h.onToggleMenu(ctx, e, p.ID)
			}),
		app.If(h.menuFor == p.ID, func() app.UI {
			return app.Div().
				Class("options-menu").
				OnClick(func(ctx app.Context, e app.Event) {
					e.Call("stopPropagation")
				}).
				Body(
					app.Button().Class("options-item").Text("Rename").
						OnClick(func(ctx app.Context, e app.Event) {
							h.onStartRename(ctx, e, p.ID)
						}),
					app.Button().Class("options-item danger").Text("Delete").
						OnClick(func(ctx app.Context, e app.Event) {
							h.onDelete(ctx, e, p)
						}),
				)
		}),
	)
}
