package main

import (
	"errors"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"go.uber.org/zap"

	"lectern/internal/gateway"
	"lectern/internal/msgfmt"
)

const (
	summaryLabel = "Generate a summary of the literature."
	summaryQuery = "Provide a comprehensive summary of the uploaded literature. " +
		"Cover the main research questions, the methods used, the key findings, " +
		"and how the sources relate to or contradict each other."

	emptyHistoryPlaceholder = "No previous chat history found. Ask a question to get started."
)

type chatEntry struct {
	role     string
	content  string
	at       time.Time
	pinnable bool
}

// ChatPanel renders the conversation and handles sending, pinning, the
// summary preset, and clearing. Sending is blocked while locked, while a
// request is in flight, and while the project has no confirmed sources.
type ChatPanel struct {
	app.Compo
	Deps       *deps
	ProjectID  string
	Locked     bool
	HasSources bool

	messages    []chatEntry
	input       string
	sending     bool
	placeholder string
	loaded      bool
}

func (c *ChatPanel) OnMount(ctx app.Context) {
	ctx.Async(func() {
		history, err := c.Deps.API.ChatHistory(ctx, c.ProjectID)
		ctx.Dispatch(func(ctx app.Context) {
			c.loaded = true
			switch {
			case errors.Is(err, gateway.ErrNotFound):
				c.placeholder = emptyHistoryPlaceholder
			case err != nil:
				c.Deps.Log.Warn("load chat history", zap.Error(err))
				c.placeholder = "Could not load chat history: " + err.Error()
			case len(history) == 0:
				c.placeholder = emptyHistoryPlaceholder
			default:
				c.messages = make([]chatEntry, 0, len(history))
				for _, m := range history {
					c.messages = append(c.messages, chatEntry{
						role:     m.Role,
						content:  m.Content,
						at:       m.Timestamp.Time,
						pinnable: m.Role == gateway.RoleAssistant,
					})
				}
			}
			c.scrollToBottom(ctx)
		})
	})
}

func (c *ChatPanel) canSend() bool {
	return !c.Locked && !c.sending && c.HasSources
}

func (c *ChatPanel) scrollToBottom(ctx app.Context) {
	ctx.Defer(func(app.Context) {
		el := app.Window().GetElementByID("chat-scroll")
		if el.Truthy() {
			el.Set("scrollTop", el.Get("scrollHeight"))
		}
	})
}

func (c *ChatPanel) append(ctx app.Context, e chatEntry) {
	c.placeholder = ""
	c.messages = append(c.messages, e)
	c.scrollToBottom(ctx)
}

// send issues one chat round trip. display is what the user sees as their
// own message when it differs from the query actually sent.
func (c *ChatPanel) send(ctx app.Context, query, display string) {
	if !c.canSend() || query == "" {
		return
	}
	shown := display
	if shown == "" {
		shown = query
	}

	c.sending = true
	c.input = ""
	c.append(ctx, chatEntry{role: gateway.RoleUser, content: shown, at: time.Now()})

	ctx.Async(func() {
		answer, err := c.Deps.API.SendMessage(ctx, c.ProjectID, query, display)
		ctx.Dispatch(func(ctx app.Context) {
			c.sending = false
			if err != nil {
				c.Deps.Rep.Errorf("Chat failed: %v", err)
				return
			}
			c.append(ctx, chatEntry{
				role:     gateway.RoleAssistant,
				content:  answer,
				at:       time.Now(),
				pinnable: true,
			})
		})
	})
}

func (c *ChatPanel) onInput(ctx app.Context, e app.Event) {
	c.input = e.Get("target").Get("value").String()
}

func (c *ChatPanel) onKeyDown(ctx app.Context, e app.Event) {
	if e.Get("key").String() == "Enter" && !e.Get("shiftKey").Bool() {
		e.PreventDefault()
		c.send(ctx, c.input, "")
	}
}

func (c *ChatPanel) onSendClick(ctx app.Context, e app.Event) {
	c.send(ctx, c.input, "")
}

func (c *ChatPanel) onSummary(ctx app.Context, e app.Event) {
	c.send(ctx, summaryQuery, summaryLabel)
}

func (c *ChatPanel) onPin(ctx app.Context, e app.Event, content string) {
	if !app.Window().Call("confirm", "Pin this message as a note?").Bool() {
		return
	}
	ctx.Async(func() {
		_, err := c.Deps.API.CreateNote(ctx, c.ProjectID, "Pinned message", content)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				c.Deps.Rep.Errorf("Could not pin message: %v", err)
				return
			}
			publishNotesChanged(c.Deps, c.ProjectID)
			c.append(ctx, chatEntry{
				role:    gateway.RoleAssistant,
				content: "Message pinned as note.",
				at:      time.Now(),
			})
		})
	})
}

func (c *ChatPanel) onClear(ctx app.Context, e app.Event) {
	if !app.Window().Call("confirm", "Clear the whole conversation?").Bool() {
		return
	}
	ctx.Async(func() {
		err := c.Deps.API.ResetChat(ctx, c.ProjectID)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				c.Deps.Rep.Errorf("Could not clear chat: %v", err)
				return
			}
			c.messages = nil
			c.append(ctx, chatEntry{
				role:    gateway.RoleAssistant,
				content: "Chat cleared.",
				at:      time.Now(),
			})
		})
	})
}

func (c *ChatPanel) Render() app.UI {
	return app.Section().Class("panel chat-panel").Body(
		app.Div().Class("panel-head").Body(
			app.H2().Text("Chat"),
			app.Button().
				Class("toolbar-btn").
				Title("Clear chat").
				Body(app.Span().Class("material-symbols-outlined").Text("mop")).
				OnClick(c.onClear),
		),
		app.Div().ID("chat-scroll").Class("chat-scroll").Body(
			app.If(c.placeholder != "", func() app.UI {
				return app.P().Class("placeholder").Text(c.placeholder)
			}),
			app.Range(c.messages).Slice(func(i int) app.UI {
				return c.renderMessage(c.messages[i])
			}),
			app.If(c.sending, func() app.UI {
				return app.Div().Class("chat-message assistant thinking").
					Text("Assistant is thinking…")
			}),
		),
		c.renderComposer(),
	)
}

func (c *ChatPanel) renderMessage(m chatEntry) app.UI {
	cls := "chat-message " + m.role
	who := "You:"
	if m.role == gateway.RoleAssistant {
		who = "Assistant:"
	}
	return app.Div().Class(cls).Body(
		app.Div().Class("chat-message-head").Body(
			app.Span().Class("chat-role").Text(who),
			app.Span().Class("chat-time").Text(msgfmt.Timestamp(m.at, time.Now())),
			app.If(m.pinnable, func() app.UI {
				content := m.content
				return app.Button().
					Class("toolbar-btn pin-btn").
					Title("Pin as note").
					Body(app.Span().Class("material-symbols-outlined").Text("push_pin")).
					OnClick(func(ctx app.Context, e app.Event) {
						c.onPin(ctx, e, content)
					})
			}),
		),
		c.renderBody(m),
	)
}

// renderBody applies the assistant's minimal inline style; user messages
// stay plain.
func (c *ChatPanel) renderBody(m chatEntry) app.UI {
	if m.role != gateway.RoleAssistant {
		return app.P().Class("chat-body").Text(m.content)
	}
	paragraphs := msgfmt.Paragraphs(m.content)
	return app.Div().Class("chat-body").Body(
		app.Range(paragraphs).Slice(func(i int) app.UI {
			return app.P().Body(
				app.Range(paragraphs[i]).Slice(func(j int) app.UI {
					seg := paragraphs[i][j]
					if seg.Bold {
						return app.B().Text(seg.Text)
					}
					return app.Text(seg.Text)
				}),
			)
		}),
	)
}

func (c *ChatPanel) renderComposer() app.UI {
	hint := ""
	switch {
	case c.Locked:
		hint = "Chat is locked while sources are being embedded."
	case !c.HasSources:
		hint = "Add sources to start chatting."
	}
	return app.Div().Class("chat-composer").Body(
		app.If(hint != "", func() app.UI {
			return app.P().Class("composer-hint").Text(hint)
		}),
		app.Textarea().
			Class("chat-input").
			Placeholder("Ask about your sources…").
			Text(c.input).
			Disabled(!c.canSend()).
			OnInput(c.onInput).
			OnKeyDown(c.onKeyDown),
		app.Div().Class("composer-actions").Body(
			app.Button().
				Class("secondary-btn").
				Text(summaryLabel).
				Disabled(!c.canSend()).
				OnClick(c.onSummary),
			app.Button().
				Class("primary-btn").
				Text("Send").
				Disabled(!c.canSend() || c.input == "").
				OnClick(c.onSendClick),
		),
	)
}
