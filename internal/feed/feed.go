// Package feed streams Bitget public ticker updates over websocket into
// the last-price cache, keeping it warm between polling ticks. The feed is
// optional; the bot works on REST polling alone.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/market"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Bitget's public ws expects a literal "ping" text frame and answers "pong".
const pingFrame = "ping"

type Client struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	cache          *market.Cache
	log            *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	symbols []string
}

func New(url string, reconnectDelay, pingInterval time.Duration, cache *market.Cache, log *zap.Logger) *Client {
	return &Client{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		cache:          cache,
		log:            log,
	}
}

// Watch registers a spot symbol to subscribe to on every (re)connect.
func (c *Client) Watch(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.symbols {
		if s == symbol {
			return
		}
	}
	c.symbols = append(c.symbols, symbol)
}

// Run connects, subscribes, and pumps ticker messages into the cache until
// the context is canceled, reconnecting after transient failures.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.connectAndSubscribe(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("feed connect failed", zap.Error(err))
			if err := c.sleep(ctx); err != nil {
				return err
			}
			continue
		}
		pingCtx, cancel := context.WithCancel(ctx)
		pingDone := make(chan struct{})
		go func() {
			defer close(pingDone)
			c.pingLoop(pingCtx)
		}()
		err := c.readLoop(ctx)
		cancel()
		<-pingDone
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("feed read loop ended", zap.Error(err))
		c.resetConn()
		if err := c.sleep(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) connectAndSubscribe(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	symbols := append([]string(nil), c.symbols...)
	c.mu.Unlock()
	if conn == nil {
		dialed, _, err := websocket.Dial(ctx, c.url, nil)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.conn = dialed
		conn = dialed
		c.mu.Unlock()
	}
	if len(symbols) == 0 {
		return errors.New("no symbols to watch")
	}
	args := make([]map[string]string, 0, len(symbols))
	for _, symbol := range symbols {
		args = append(args, map[string]string{
			"instType": "SPOT",
			"channel":  "ticker",
			"instId":   symbol,
		})
	}
	sub := map[string]any{"op": "subscribe", "args": args}
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) readLoop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("feed not connected")
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	text := strings.TrimSpace(string(data))
	if text == "pong" {
		return
	}
	var msg tickerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	symbol := msg.Arg.InstID
	if symbol == "" || len(msg.Data) == 0 {
		return
	}
	for _, entry := range msg.Data {
		reading, ok := market.Normalize(entry, market.ExchangeBitget, symbol)
		if !ok {
			continue
		}
		c.cache.Put(reading)
	}
}

type tickerMessage struct {
	Action string `json:"action"`
	Arg    struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []map[string]any `json:"data"`
}

func (c *Client) pingLoop(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	interval := c.pingInterval
	c.mu.Unlock()
	if conn == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Write(ctx, websocket.MessageText, []byte(pingFrame)); err != nil {
				return
			}
		}
	}
}

func (c *Client) resetConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "reset")
		c.conn = nil
	}
}

func (c *Client) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
		return nil
	}
}
