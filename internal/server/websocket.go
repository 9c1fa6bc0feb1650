package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
)

const wsWriteTimeout = 10 * time.Second

// handleAlertSocket upgrades the connection and streams new alerts to
// the client as JSON text messages until either side disconnects.
func (s *Server) handleAlertSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		log.Printf("server: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	feed, cancel := s.sink.Subscribe()
	defer cancel()

	// Reads are drained only to notice the client going away.
	readCtx, stopRead := context.WithCancel(r.Context())
	defer stopRead()
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.Read(readCtx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case alert, ok := <-feed:
			if !ok {
				return
			}
			payload, err := json.Marshal(alert)
			if err != nil {
				log.Printf("server: failed to marshal alert %s: %v", alert.ID, err)
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(r.Context(), wsWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancelWrite()
			if err != nil {
				log.Printf("server: websocket write failed: %v", err)
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
