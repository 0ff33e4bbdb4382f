// Package broadcast delivers live match messages to viewers. Every message
// is encoded once and handed to the in-process broker and to any remote
// publishers.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// EventScoreUpdated is sent after every valid score mutation.
const EventScoreUpdated = "score:updated"

// Message is the wire envelope of every live message.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Publisher forwards encoded messages out of process.
type Publisher interface {
	Publish(ctx context.Context, matchID, event string, data []byte) error
}

type Fanout struct {
	broker  *Broker
	remotes []Publisher
	logger  *slog.Logger
	timeout time.Duration
}

func NewFanout(logger *slog.Logger, broker *Broker, remotes ...Publisher) *Fanout {
	return &Fanout{
		broker:  broker,
		remotes: remotes,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

func (f *Fanout) Broker() *Broker { return f.broker }

// Publish encodes payload under event and delivers it. Remote failures are
// logged and do not affect local viewers.
func (f *Fanout) Publish(ctx context.Context, matchID, event string, payload any) error {
	data, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", event, err)
	}
	f.broker.Publish(matchID, data)

	if len(f.remotes) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()
	for _, p := range f.remotes {
		if err := p.Publish(ctx, matchID, event, data); err != nil {
			f.logger.Error("remote publish failed", "match_id", matchID, "event", event, "error", err)
		}
	}
	return nil
}
