package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

var demoMatches = []match.Settings{
	{Sport: match.SportBasketball, HomeTeam: "Harbor Hawks", AwayTeam: "Ridge Runners"},
	{Sport: match.SportFootball, HomeTeam: "Old Town FC", AwayTeam: "Riverside United"},
}

// SeedDemo creates one basketball and one football match when the store is
// empty. It does nothing if any match exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, store MatchStore) error {
	existing, err := store.ListMatches(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, m := range demoMatches {
		created, err := store.CreateMatch(ctx, m)
		if err != nil {
			return fmt.Errorf("seeding %s match: %w", m.Sport, err)
		}
		logger.Info("demo match created", "match_id", created.ID, "sport", created.Sport)
	}
	return nil
}
