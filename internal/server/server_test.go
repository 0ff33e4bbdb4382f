package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huarongfei/Event-Control-System/internal/broadcast"
	"github.com/huarongfei/Event-Control-System/internal/database"
	"github.com/huarongfei/Event-Control-System/internal/match"
	"github.com/huarongfei/Event-Control-System/internal/migrations"
	"github.com/huarongfei/Event-Control-System/internal/scoring"
	"github.com/huarongfei/Event-Control-System/internal/timer"
)

type testEnv struct {
	router  http.Handler
	console *Console
	broker  *broadcast.Broker
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return NewSQLiteStore(db)
}

// newTestEnv wires the console the way main does, with timers that only
// move when a test asks them to.
func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	logger := discardLogger()
	broker := broadcast.NewBroker()
	fanout := broadcast.NewFanout(logger, broker)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	timers := timer.NewRegistry(logger,
		timer.WithTickInterval(time.Hour),
		timer.OnCreate(ForwardTimers(ctx, logger, fanout)),
	)
	t.Cleanup(timers.ClearAll)

	c := NewConsole(logger, newTestStore(t), scoring.NewRegistry(), timers, fanout)
	return &testEnv{
		router:  NewRouter(logger, c, opts),
		console: c,
		broker:  broker,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createMatch(t *testing.T, sport match.Sport) MatchResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/matches", CreateMatchRequest{
		Sport:    sport,
		HomeTeam: "Lakers",
		AwayTeam: "Celtics",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create match: status = %d, body = %s", rec.Code, rec.Body)
	}
	return decode[MatchResponse](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %s: %v", rec.Body, err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, want, rec.Body)
	}
}

func intPtr(n int) *int { return &n }
