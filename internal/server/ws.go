package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"physbook/internal/content"
	"physbook/internal/device"
	"physbook/internal/events"
	"physbook/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is the incoming WebSocket message format.
type clientMessage struct {
	Type      string  `json:"type"` // layout, viewport, scroll, navigate, retry, open-settings
	SectionID string  `json:"section_id,omitempty"`
	Hash      string  `json:"hash,omitempty"`
	Top       float64 `json:"top,omitempty"`
	Height    float64 `json:"height,omitempty"`
	ScrollTop float64 `json:"scroll_top,omitempty"`
}

// serverMessage is the outgoing WebSocket message format.
type serverMessage struct {
	Type  string            `json:"type"` // event, slot, error
	Event *events.Event     `json:"event,omitempty"`
	Slot  *content.SlotView `json:"slot,omitempty"`
	Error string            `json:"error,omitempty"`
}

// handleWebSocket owns one reader session for the lifetime of the
// connection. The client reports geometry and navigation; the server
// pushes lifecycle events and slot content.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	sess := session.New(session.Options{
		Manifest:          s.manifest,
		Fetcher:           s.fetcher,
		ViewportWidth:     width,
		History:           s.history,
		BookID:            s.cfg.BookID,
		LockDuration:      s.cfg.LockDuration,
		MaxLoadedSections: s.settings.Get().Performance.MaxLoadedSections,
	})
	defer sess.Close()

	done := make(chan struct{})
	defer close(done)

	// Seed the client with every slot's initial placeholder state.
	// Written directly: nothing else touches the connection yet, and a
	// blocking write guarantees no seed is lost however many sections
	// the manifest has.
	for _, sec := range s.manifest.Sections {
		if view, ok := sess.Manager.Snapshot(sec.ID); ok {
			if err := conn.WriteJSON(serverMessage{Type: "slot", Slot: &view}); err != nil {
				return
			}
		}
	}

	out := make(chan serverMessage, 64)
	send := func(msg serverMessage) {
		select {
		case out <- msg:
		default: // slow consumer, drop
		}
	}

	// Single writer goroutine; gorilla connections do not allow
	// concurrent writes.
	go func() {
		for {
			select {
			case msg := <-out:
				if err := conn.WriteJSON(msg); err != nil {
					conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	bcast := make(chan events.Event, 16)
	if s.broadcast != nil {
		subID := "ws-" + sess.ID
		if err := s.broadcast.Subscribe(subID, bcast); err == nil {
			defer s.broadcast.Unsubscribe(subID)
		}
	}

	go func() {
		for {
			select {
			case e := <-sess.Events():
				ev := e
				send(serverMessage{Type: "event", Event: &ev})
				if e.Type == events.SectionLoaded || e.Type == events.SectionUnloaded {
					if view, ok := sess.Manager.Snapshot(e.SectionID); ok {
						send(serverMessage{Type: "slot", Slot: &view})
					}
				}
			case e := <-bcast:
				ev := e
				send(serverMessage{Type: "event", Event: &ev})
			case <-done:
				return
			}
		}
	}()

	sess.Resume(context.Background())

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			send(serverMessage{Type: "error", Error: "invalid message format"})
			continue
		}

		switch msg.Type {
		case "layout":
			sess.ReportLayout(msg.SectionID, msg.Top, msg.Height)
		case "viewport":
			sess.ReportViewport(device.Viewport{ScrollTop: msg.ScrollTop, Height: msg.Height})
		case "scroll":
			sess.ReportScroll(device.Viewport{ScrollTop: msg.ScrollTop, Height: msg.Height})
		case "navigate":
			sess.Navigate(context.Background(), msg.Hash)
		case "retry":
			sess.Retry(context.Background(), msg.SectionID)
		case "open-settings":
			s.settings.RequestOpen()
		default:
			send(serverMessage{Type: "error", Error: "unknown message type: " + msg.Type})
		}
	}
}
