package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamPrefix namespaces match streams as "<prefix>.<matchID>".
const DefaultStreamPrefix = "matches.live"

// StreamPublisher appends live messages to a per-match Redis stream so
// processes other than the console can follow a match.
type StreamPublisher struct {
	client *redis.Client
	prefix string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, prefix string) *StreamPublisher {
	if prefix == "" {
		prefix = DefaultStreamPrefix
	}
	return &StreamPublisher{client: client, prefix: prefix, maxLen: 10000}
}

func (p *StreamPublisher) StreamKey(matchID string) string {
	return fmt.Sprintf("%s.%s", p.prefix, matchID)
}

func (p *StreamPublisher) Publish(ctx context.Context, matchID, event string, data []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.StreamKey(matchID),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":     string(data),
			"match_id": matchID,
			"event":    event,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publishing %s to stream: %w", event, err)
	}
	return nil
}
