// Package marketws implements the upstream feed transport over WebSocket.
package marketws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BarFlow/internal/domain/models"
	domrepo "BarFlow/internal/domain/repository"
	"BarFlow/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements a Transport backed by the provider's WebSocket feed.
// The read loop decodes every inbound frame into the tagged event union and
// hands it to the registered listener; frames that fail to decode come
// through as EventUnknown and are ignored downstream.
type Client struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logger.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	running    bool
	cancel     context.CancelFunc
	listener   func(models.Event)
	subscribed map[string]struct{}

	// writeMu serializes frame writes; gorilla/websocket allows at most one
	// concurrent writer per connection.
	writeMu sync.Mutex
}

// New creates a WebSocket feed transport.
func New(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration, l *logger.Logger) domrepo.Transport {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         l,
		subscribed:     make(map[string]struct{}),
	}
}

// RegisterListener sets the callback invoked for every decoded event. The
// transport holds a single listener slot; fan-out to multiple consumers is
// the streaming client's job.
func (c *Client) RegisterListener(fn func(models.Event)) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// Start dials the feed and launches the ping and read loops. Calling Start on
// a running transport is a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}

	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("feed connect: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.running = true
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Info("feed connected", logger.String("url", c.websocketURL))

	go c.pingLoop(loopCtx, conn)
	go c.readLoop(loopCtx, conn)
	return nil
}

// Stop closes the connection and halts both loops.
func (c *Client) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsRunning reports whether the transport currently holds a connection.
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Subscribe sends one subscribe frame per symbol and records the symbols so
// they can be replayed after a reconnect.
func (c *Client) Subscribe(_ context.Context, symbols []string) error {
	if err := c.sendControl("subscribe", symbols); err != nil {
		return err
	}
	c.mu.Lock()
	for _, s := range symbols {
		c.subscribed[s] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}

// Unsubscribe sends one unsubscribe frame per symbol.
func (c *Client) Unsubscribe(_ context.Context, symbols []string) error {
	if err := c.sendControl("unsubscribe", symbols); err != nil {
		return err
	}
	c.mu.Lock()
	for _, s := range symbols {
		delete(c.subscribed, s)
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) sendControl(action string, symbols []string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("feed not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for _, s := range symbols {
		msg := map[string]string{"type": action, "symbol": s}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("%s %s: %w", action, s, err)
		}
	}
	return nil
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					// Stop() closed the connection under us.
					return
				}
				c.logger.Warn("feed read error, reconnecting", logger.Error(err))
				go c.recover()
				return
			}

			ev := models.ParseEvent(b)

			c.mu.Lock()
			fn := c.listener
			c.mu.Unlock()
			if fn != nil {
				fn(ev)
			}
		}
	}
}

// recover tears the connection down, dials again after the configured delay,
// and replays the subscribe frames for every tracked symbol so active streams
// keep flowing on the new connection.
func (c *Client) recover() {
	_ = c.Stop(context.Background())
	time.Sleep(c.reconnectDelay)
	if err := c.Start(context.Background()); err != nil {
		c.logger.Error("feed reconnect failed", logger.Error(err))
		return
	}
	if err := c.resubscribe(); err != nil {
		c.logger.Error("feed resubscribe failed", logger.Error(err))
	}
}

func (c *Client) resubscribe() error {
	c.mu.Lock()
	symbols := make([]string, 0, len(c.subscribed))
	for s := range c.subscribed {
		symbols = append(symbols, s)
	}
	c.mu.Unlock()
	if len(symbols) == 0 {
		return nil
	}
	c.logger.Info("replaying feed subscriptions", logger.Int("symbols", len(symbols)))
	return c.sendControl("subscribe", symbols)
}
