package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

const livePing = 30 * time.Second

// handleLiveSSE streams the match's live messages as Server-Sent Events.
// Each data line is one {"event", "data"} envelope.
func handleLiveSSE(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		broker := c.fanout.Broker()
		ch := broker.Subscribe(s.ID)
		defer broker.Unsubscribe(s.ID, ch)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ping := time.NewTicker(livePing)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "data: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

// handleLiveWS pushes the same messages over a WebSocket. Viewers only
// listen; anything they send is discarded.
func handleLiveWS(c *Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := matchFrom(r)
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			c.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		broker := c.fanout.Broker()
		ch := broker.Subscribe(s.ID)
		defer broker.Unsubscribe(s.ID, ch)

		ctx := conn.CloseRead(r.Context())
		c.logger.Debug("live viewer connected", "match_id", s.ID)

		for {
			select {
			case <-ctx.Done():
				c.logger.Debug("live viewer left", "match_id", s.ID)
				return
			case data := <-ch:
				if err := writeWS(ctx, conn, data); err != nil {
					c.logger.Debug("websocket write failed", "match_id", s.ID, "error", err)
					return
				}
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
