package rpc

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"wayfind/core/events"
)

func dialEvents(t *testing.T, env *testEnv, cursor string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(env.server.URL, "http://", "ws://", 1) + "/ws/events"
	if cursor != "" {
		url += "?cursor=" + cursor
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func readRecord(t *testing.T, conn *websocket.Conn) events.Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var rec events.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode record failed: %v", err)
	}
	return rec
}

func TestEventStreamDeliversBacklogAndLive(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	user := bech(0x01)
	env.fund(t, user, 10_000)
	env.mustCall(t, "remint_burnForCredits", map[string]string{
		"caller": user,
		"amount": "1000",
	}, "", nil)

	conn := dialEvents(t, env, "")
	defer conn.Close(websocket.StatusNormalClosure, "done")

	rec := readRecord(t, conn)
	if rec.Seq != 0 || rec.Type != "remint.burned" {
		t.Fatalf("unexpected backlog record: %+v", rec)
	}
	if rec.Attributes["amount"] != "1000" {
		t.Fatalf("unexpected attributes: %+v", rec.Attributes)
	}

	env.mustCall(t, "remint_registerCreator", map[string]string{
		"caller": bech(0x10),
		"payout": bech(0x20),
	}, "", nil)

	rec = readRecord(t, conn)
	if rec.Seq != 1 || rec.Type != "remint.creator.registered" {
		t.Fatalf("unexpected live record: %+v", rec)
	}
}

func TestEventStreamHonorsCursor(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	user := bech(0x01)
	env.fund(t, user, 10_000)
	for i := 0; i < 3; i++ {
		env.mustCall(t, "remint_burnForCredits", map[string]string{
			"caller": user,
			"amount": "100",
		}, "", nil)
	}

	conn := dialEvents(t, env, "2")
	defer conn.Close(websocket.StatusNormalClosure, "done")

	rec := readRecord(t, conn)
	if rec.Seq != 2 {
		t.Fatalf("expected stream to start at cursor 2, got %d", rec.Seq)
	}
}
