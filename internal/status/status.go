// Package status publishes transient user-visible messages. The status bar
// view subscribes and handles styling and fading; concurrent reports
// collapse to the latest on the consumer side.
package status

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"lectern/internal/signal"
)

// DefaultDuration is how long a message stays visible unless overridden.
const DefaultDuration = 3 * time.Second

type Reporter struct {
	bus *signal.Bus
	log *zap.Logger
}

func NewReporter(bus *signal.Bus, log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{bus: bus, log: log}
}

func (r *Reporter) Report(message string, isError bool) {
	r.ReportFor(message, isError, DefaultDuration)
}

func (r *Reporter) ReportFor(message string, isError bool, d time.Duration) {
	if isError {
		r.log.Warn("status", zap.String("message", message))
	} else {
		r.log.Info("status", zap.String("message", message))
	}
	if err := r.bus.Publish(signal.TopicStatus, signal.Event{
		Kind:       signal.KindStatus,
		Message:    message,
		IsError:    isError,
		DurationMs: int(d / time.Millisecond),
	}); err != nil {
		r.log.Error("publish status", zap.Error(err))
	}
}

func (r *Reporter) Successf(format string, args ...any) {
	r.Report(fmt.Sprintf(format, args...), false)
}

func (r *Reporter) Errorf(format string, args ...any) {
	r.Report(fmt.Sprintf(format, args...), true)
}
