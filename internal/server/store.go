package server

import (
	"context"
	"errors"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

var ErrNotFound = errors.New("not found")

// MatchStore persists match settings. Live state lives in the engine and
// timer registries, never here.
type MatchStore interface {
	CreateMatch(ctx context.Context, s match.Settings) (match.Settings, error)
	GetMatch(ctx context.Context, id string) (match.Settings, error)
	ListMatches(ctx context.Context) ([]match.Settings, error)
	DeleteMatch(ctx context.Context, id string) error
}
