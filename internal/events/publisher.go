package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sink receives ledger events. Implementations must not block the caller
// for long; slow consumers should buffer or drop.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Publisher stamps events and fans them out to every configured sink.
// Sink errors are logged and swallowed so notification failures can never
// affect ledger state.
type Publisher struct {
	sinks []Sink
	log   zerolog.Logger
}

func NewPublisher(log zerolog.Logger, sinks ...Sink) *Publisher {
	return &Publisher{sinks: sinks, log: log}
}

// Emit stamps and delivers one event.
func (p *Publisher) Emit(ctx context.Context, ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			p.log.Warn().
				Err(err).
				Str("event_id", ev.ID).
				Str("event_type", string(ev.Type)).
				Uint64("index", ev.Index).
				Msg("event sink failed")
		}
	}
}
