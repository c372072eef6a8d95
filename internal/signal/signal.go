// Package signal carries the cross-panel events of a project workspace over
// an in-process pub/sub channel. The embedding controller publishes lock
// state here, the status reporter publishes transient messages, and the
// panels subscribe and apply their own policies.
package signal

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	// TopicWorkspace carries lock/unlock/progress and panel-refresh events.
	TopicWorkspace = "workspace.signals"
	// TopicStatus carries transient user-visible status messages.
	TopicStatus = "status.reports"
)

type Kind string

const (
	// KindLocked disables chat input, chat send, the drop zone and the file
	// picker, and hides source delete controls.
	KindLocked Kind = "locked"
	// KindUnlocked re-enables everything KindLocked disabled.
	KindUnlocked Kind = "unlocked"
	// KindCompleted re-enables chat and upload but keeps sources immutable
	// and the embed action permanently disabled.
	KindCompleted Kind = "completed"
	// KindProgress reports embedding progress while a task runs.
	KindProgress Kind = "progress"
	// KindSourcesChanged announces a new confirmed-source count.
	KindSourcesChanged Kind = "sources_changed"
	// KindNotesChanged tells the notes panel to refetch its list.
	KindNotesChanged Kind = "notes_changed"
	// KindStatus is a status reporter message.
	KindStatus Kind = "status"
)

// Event is the single payload type exchanged on the bus. Fields are used
// according to Kind; unused fields stay zero.
type Event struct {
	Kind       Kind   `json:"kind"`
	ProjectID  string `json:"project_id,omitempty"`
	Progress   int    `json:"progress,omitempty"`
	Count      int    `json:"count,omitempty"`
	Message    string `json:"message,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
}

// Bus is a thin typed wrapper around a watermill gochannel pub/sub.
type Bus struct {
	ps *gochannel.GoChannel
}

func NewBus() *Bus {
	return &Bus{
		ps: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 64,
				// Panels resolve lock state from the relative order of
				// locked/unlocked/completed events, so delivery must be
				// serialized per topic. Subscribe acks as soon as a message
				// is decoded, so publishes do not wait on slow consumers.
				BlockPublishUntilSubscriberAck: true,
			},
			watermill.NewStdLogger(false, false),
		),
	}
}

func (b *Bus) Publish(topic string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.ps.Publish(topic, message.NewMessage(uuid.NewString(), payload))
}

// Subscribe returns a channel of decoded events. The channel closes when ctx
// is cancelled or the bus is closed. Messages that fail to decode are acked
// and dropped.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	msgs, err := b.ps.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for m := range msgs {
			var ev Event
			err := json.Unmarshal(m.Payload, &ev)
			m.Ack()
			if err == nil {
				out <- ev
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.ps.Close()
}
