package main

import (
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"go.uber.org/zap"

	"lectern/internal/signal"
	"lectern/internal/status"
)

// StatusBar renders the transient status region. It subscribes to the
// status topic; concurrent reports collapse to the latest via a sequence
// counter, and each message fades after its own duration.
type StatusBar struct {
	app.Compo
	Deps *deps

	message string
	isError bool
	visible bool
	seq     int
}

func (s *StatusBar) OnMount(ctx app.Context) {
	events, err := s.Deps.Bus.Subscribe(ctx, signal.TopicStatus)
	if err != nil {
		s.Deps.Log.Error("subscribe status topic", zap.Error(err))
		return
	}
	go func() {
		for ev := range events {
			ev := ev
			ctx.Dispatch(func(ctx app.Context) {
				s.display(ctx, ev)
			})
		}
	}()
}

func (s *StatusBar) display(ctx app.Context, ev signal.Event) {
	s.seq++
	seq := s.seq
	s.message = ev.Message
	s.isError = ev.IsError
	s.visible = true

	d := time.Duration(ev.DurationMs) * time.Millisecond
	if d <= 0 {
		d = status.DefaultDuration
	}
	ctx.Async(func() {
		time.Sleep(d)
		ctx.Dispatch(func(ctx app.Context) {
			// A newer message owns the bar now.
			if s.seq == seq {
				s.visible = false
			}
		})
	})
}

func (s *StatusBar) Render() app.UI {
	cls := "status-bar"
	if s.isError {
		cls += " status-error"
	} else {
		cls += " status-success"
	}
	if !s.visible {
		cls += " status-hidden"
	}
	return app.Div().Class(cls).Text(s.message)
}
