package marketws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"BarFlow/pkg/logger"

	"github.com/gorilla/websocket"
)

type controlFrame struct {
	ConnID int32
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// feedServer upgrades inbound connections, forwards every control frame to
// frames, and closes each connection after closeAfter frames to force the
// client's read loop into its reconnect path.
func feedServer(t *testing.T, frames chan<- controlFrame, closeAfter int) *httptest.Server {
	t.Helper()
	var connSeq int32
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := atomic.AddInt32(&connSeq, 1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		seen := 0
		for {
			var f controlFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			f.ConnID = id
			frames <- f
			seen++
			if closeAfter > 0 && seen == closeAfter {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func waitFrame(t *testing.T, frames <-chan controlFrame) controlFrame {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for control frame")
		return controlFrame{}
	}
}

func TestReconnectReplaysSubscriptions(t *testing.T) {
	frames := make(chan controlFrame, 16)
	srv := feedServer(t, frames, 3)
	defer srv.Close()

	c := New("key", wsURL(srv), 10*time.Millisecond, time.Minute, testLogger(t))
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop(ctx)

	if err := c.Subscribe(ctx, []string{"AAPL", "MSFT"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := c.Unsubscribe(ctx, []string{"MSFT"}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	// First connection: two subscribes plus one unsubscribe, then the server
	// drops it and the client reconnects.
	for i := 0; i < 3; i++ {
		f := waitFrame(t, frames)
		if f.ConnID != 1 {
			t.Fatalf("expected frame %d on first connection, got %d", i, f.ConnID)
		}
	}

	// The new connection must receive the still-active subscription, and only
	// that one.
	f := waitFrame(t, frames)
	if f.ConnID != 2 || f.Type != "subscribe" || f.Symbol != "AAPL" {
		t.Fatalf("expected replayed subscribe for AAPL on second connection, got %+v", f)
	}
	select {
	case extra := <-frames:
		t.Fatalf("unexpected extra frame after replay: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConcurrentPingAndSubscribeWrites(t *testing.T) {
	frames := make(chan controlFrame, 1024)
	srv := feedServer(t, frames, 0)
	defer srv.Close()

	c := New("key", wsURL(srv), 10*time.Millisecond, time.Millisecond, testLogger(t))
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop(ctx)

	// The ping loop writes on its own goroutine; hammering subscribe frames
	// alongside it must not trip the connection's single-writer check.
	for i := 0; i < 200; i++ {
		if err := c.Subscribe(ctx, []string{"AAPL"}); err != nil {
			t.Fatalf("subscribe %d: %v", i, err)
		}
	}
}
