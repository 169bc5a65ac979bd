package events

import (
	"context"
	"errors"
	"sync"
)

// ErrBufferFull signals a dropped event; the publisher logs it and moves on.
var ErrBufferFull = errors.New("event buffer full")

// Log is an append-only in-process event history used by the worker and
// served to observers; a fixed capacity keeps memory bounded.
type Log struct {
	mu     sync.RWMutex
	events []Event
	cap    int
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Log{cap: capacity}
}

func (l *Log) Append(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	if len(l.events) > l.cap {
		l.events = l.events[len(l.events)-l.cap:]
	}
}

// Recent returns up to n most recent events, oldest first.
func (l *Log) Recent(n int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	return append([]Event{}, l.events[len(l.events)-n:]...)
}

// ChannelSink queues events for the Worker. The buffer absorbs bursts;
// when it fills, events are dropped rather than block a ledger call.
type ChannelSink struct {
	inbox chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelSink{inbox: make(chan Event, buffer)}
}

func (s *ChannelSink) Publish(_ context.Context, ev Event) error {
	select {
	case s.inbox <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

// Worker consumes queued events and records them in the Log. It keeps
// background processing testable without wiring external queues.
type Worker struct {
	sink *ChannelSink
	log  *Log
}

func NewWorker(sink *ChannelSink, log *Log) *Worker {
	return &Worker{sink: sink, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-w.sink.inbox:
			w.log.Append(ev)
		}
	}
}
