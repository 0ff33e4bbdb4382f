package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/huarongfei/Event-Control-System/internal/broadcast"
	"github.com/huarongfei/Event-Control-System/internal/match"
	"github.com/huarongfei/Event-Control-System/internal/scoring"
	"github.com/huarongfei/Event-Control-System/internal/timer"
)

// waitSubscribed blocks until n viewers follow the match.
func waitSubscribed(t *testing.T, b *broadcast.Broker, matchID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers(matchID) < n {
		if time.Now().After(deadline) {
			t.Fatalf("no subscriber for %s", matchID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLiveSSE(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/matches/"+m.ID+"/live", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}
	waitSubscribed(t, env.broker, m.ID, 1)

	env.do(t, http.MethodPost, "/api/matches/"+m.ID+"/score/events", scoring.Draft{
		Team: match.Home, EventType: scoring.FreeThrowMade, PlayerID: "p1",
	})

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var msg struct {
			Event string      `json:"event"`
			Data  ScoreUpdate `json:"data"`
		}
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("decoding %s: %v", line, err)
		}
		if msg.Event != broadcast.EventScoreUpdated {
			continue
		}
		if msg.Data.Context.HomeScore != 1 || msg.Data.Event == nil {
			t.Fatalf("update = %+v", msg.Data)
		}
		return
	}
	t.Fatalf("stream ended: %v", scanner.Err())
}

func TestLiveWebSocketCarriesTimerUpdates(t *testing.T) {
	env := newTestEnv(t, Options{})
	m := env.createMatch(t, match.SportBasketball)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/ws/matches/" + m.ID
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()
	waitSubscribed(t, env.broker, m.ID, 1)

	env.do(t, http.MethodPost, "/api/matches/"+m.ID+"/timers/shot-clock/start", nil)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg struct {
			Event string            `json:"event"`
			Data  timer.TimerUpdate `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding %s: %v", data, err)
		}
		if msg.Event == timer.NotifyTimerUpdate && msg.Data.TimerType == timer.KindShotClock {
			if msg.Data.MatchID != m.ID || msg.Data.State.Status != timer.Running {
				t.Fatalf("update = %+v", msg.Data)
			}
			break
		}
	}
	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestLiveUnknownMatch(t *testing.T) {
	env := newTestEnv(t, Options{})

	wantStatus(t, env.do(t, http.MethodGet, "/ws/matches/nope", nil), http.StatusNotFound)
	wantStatus(t, env.do(t, http.MethodGet, "/api/matches/nope/live", nil), http.StatusNotFound)
}
