package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub broadcasts ledger events to connected websocket observers, giving
// UIs a live feed without polling. Connections are read-only from the
// client's perspective.
type Hub struct {
	upgrader   websocket.Upgrader
	log        zerolog.Logger
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte

	// done is closed when Run exits so in-flight upgrades never block on
	// a loop that is no longer draining the channels.
	done chan struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:        log,
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Publish implements Sink. A saturated broadcast queue drops the event for
// live observers; the durable sinks still have it.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	select {
	case h.broadcast <- payload:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run owns the client set; register, unregister, and broadcast are all
// serialized through this loop so no mutex is needed.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	clients := make(map[*websocket.Conn]struct{})
	defer func() {
		for conn := range clients {
			_ = conn.Close()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case conn := <-h.register:
			clients[conn] = struct{}{}
		case conn := <-h.unregister:
			if _, ok := clients[conn]; ok {
				delete(clients, conn)
				_ = conn.Close()
			}
		case payload := <-h.broadcast:
			for conn := range clients {
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					h.log.Debug().Err(err).Msg("dropping websocket client")
					delete(clients, conn)
					_ = conn.Close()
				}
			}
		}
	}
}

// ServeHTTP upgrades the connection and parks a reader that only watches
// for the client going away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
				return
			}
		}
	}()
}
