package companion

import (
	"encoding/json"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trendscout/trendscout/pkg/metrics"
)

const dialTimeout = 2 * time.Second

// Client mirrors events to an attached companion server. It degrades
// gracefully: with no server configured or reachable every Emit is a no-op,
// so the host process behaves identically with or without an observer.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	log  *zap.SugaredLogger
}

// NewClientFromEnv attempts one connection to the address in SocketEnv.
// It never fails; an unset variable or refused connection yields a
// disconnected client.
func NewClientFromEnv() *Client {
	return NewClient(os.Getenv(SocketEnv))
}

func NewClient(address string) *Client {
	c := &Client{log: zap.S().Named("companion")}
	if address == "" {
		return c
	}

	conn, err := net.DialTimeout("tcp", address, dialTimeout)
	if err != nil {
		c.log.Infow("companion not reachable, running unobserved", "address", address, "error", err)
		return c
	}
	c.conn = conn
	return c
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Emit sends the event if connected. A write failure disconnects the client
// permanently rather than retrying, a stalled observer must never block the
// host.
func (c *Client) Emit(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		metrics.IncreaseCompanionEventsDroppedMetric()
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		c.log.Warnw("failed to encode event", "type", event.Type, "error", err)
		return
	}
	data = append(data, '\n')

	if _, err := c.conn.Write(data); err != nil {
		c.log.Warnw("companion write failed, disconnecting", "error", err)
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
