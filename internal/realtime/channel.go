package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/auth"
	"github.com/jusdesk/portal-sync/internal/config"
	"github.com/jusdesk/portal-sync/internal/observability"
)

// State describes the channel's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ErrNotConnected is returned by Publish when no transport is active.
// Callers treat it as a skipped send, never as a fatal condition.
var ErrNotConnected = errors.New("realtime: channel not connected")

// Handler receives the body of one accepted inbound frame. Handlers
// run on the read pump goroutine, one frame at a time, in arrival
// order.
type Handler func(topic string, body []byte)

// Dependencies bundles collaborators for the channel.
type Dependencies struct {
	Credentials *auth.CredentialStore
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// Channel maintains at most one duplex connection to the push
// messaging endpoint, with exactly one active topic subscription at a
// time. Transport errors after a successful connect trigger bounded
// exponential-backoff reconnection with resubscription; duplicated
// frames are dropped by per-topic sequence number.
type Channel struct {
	cfg     config.RealtimeConfig
	creds   *auth.CredentialStore
	logger  *zap.Logger
	metrics *observability.Metrics
	dialer  *websocket.Dialer

	mu         sync.Mutex
	writeMu    sync.Mutex
	state      State
	conn       *websocket.Conn
	topic      string
	handler    Handler
	lastSeq    map[string]uint64
	generation int
}

// NewChannel builds a disconnected channel.
func NewChannel(cfg config.RealtimeConfig, deps Dependencies) *Channel {
	return &Channel{
		cfg:     cfg,
		creds:   deps.Credentials,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		lastSeq: make(map[string]uint64),
	}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect establishes the transport if none is active and subscribes
// to topic. When already connected it swaps the subscription: the old
// topic is unsubscribed and its handler released, so exactly one
// subscription is live after any connect/disconnect/connect sequence.
func (c *Channel) Connect(ctx context.Context, topic string, handler Handler) error {
	c.mu.Lock()

	if c.state == StateConnected && c.conn != nil {
		oldTopic := c.topic
		c.topic = topic
		c.handler = handler
		conn := c.conn
		c.mu.Unlock()

		if oldTopic != "" && oldTopic != topic {
			if err := c.writeControl(conn, outbound{Type: outboundUnsubscribe, Topic: oldTopic}); err != nil {
				c.logger.Warn("unsubscribe failed", zap.String("topic", oldTopic), zap.Error(err))
			}
		}
		return c.writeControl(conn, outbound{Type: outboundSubscribe, Topic: topic})
	}

	c.state = StateConnecting
	c.topic = topic
	c.handler = handler
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		c.logger.Error("connect failed", zap.String("topic", topic), zap.Error(err))
		return err
	}

	if err := c.writeControl(conn, outbound{Type: outboundSubscribe, Topic: topic}); err != nil {
		_ = conn.Close()
		c.mu.Lock()
		if c.generation == gen {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		c.logger.Error("subscribe failed", zap.String("topic", topic), zap.Error(err))
		return err
	}

	c.mu.Lock()
	if c.generation != gen {
		// Disconnect raced the dial; drop the fresh transport.
		c.mu.Unlock()
		_ = conn.Close()
		return ErrNotConnected
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	go c.readPump(conn, gen)
	return nil
}

// Publish serializes payload and sends it to the destination derived
// from topic. When the channel is not connected it logs and returns
// ErrNotConnected instead of panicking.
func (c *Channel) Publish(topic string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		c.logger.Warn("publish skipped, channel not connected", zap.String("topic", topic))
		return ErrNotConnected
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.writeControl(conn, outbound{
		Type:        outboundSend,
		Destination: publishDestination(topic),
		Body:        body,
	})
}

// Disconnect tears down the transport and clears all subscription
// state. Idempotent; safe to call in any state.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.generation++
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.topic = ""
	c.handler = nil
	c.lastSeq = make(map[string]uint64)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if token, ok := c.creds.Get(); ok {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (c *Channel) writeControl(conn *websocket.Conn, msg outbound) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// readPump consumes inbound frames until the transport fails or the
// generation is invalidated by Disconnect or a replacing Connect.
func (c *Channel) readPump(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.generation != gen
			c.mu.Unlock()
			if stale {
				return
			}
			c.logger.Warn("transport error, scheduling reconnect", zap.Error(err))
			c.reconnect(gen)
			return
		}
		c.dispatch(raw)
	}
}

// dispatch parses, deduplicates and delivers one inbound frame.
func (c *Channel) dispatch(raw []byte) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.logger.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	c.mu.Lock()
	if f.Topic != c.topic {
		c.mu.Unlock()
		c.logger.Debug("dropping frame for inactive topic", zap.String("topic", f.Topic))
		return
	}
	if f.Seq > 0 {
		last := c.lastSeq[f.Topic]
		if f.Seq <= last {
			c.mu.Unlock()
			c.metrics.Inc(observability.MetricFramesDuplicate)
			c.logger.Debug("dropping duplicate frame",
				zap.String("topic", f.Topic), zap.Uint64("seq", f.Seq))
			return
		}
		if last > 0 && f.Seq > last+1 {
			c.metrics.Inc(observability.MetricSequenceGaps)
			c.logger.Warn("sequence gap detected",
				zap.String("topic", f.Topic),
				zap.Uint64("expected", last+1), zap.Uint64("got", f.Seq))
		}
		c.lastSeq[f.Topic] = f.Seq
	}
	handler := c.handler
	topic := f.Topic
	c.mu.Unlock()

	c.metrics.Inc(observability.MetricFramesDelivered)
	if handler != nil {
		handler(topic, f.Body)
	}
}

// reconnect re-dials with bounded exponential backoff and resubscribes
// to the current topic. It gives up after the configured number of
// attempts and leaves the channel disconnected.
func (c *Channel) reconnect(gen int) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.conn = nil
	topic := c.topic
	c.mu.Unlock()

	backoff := c.cfg.InitialBackoff()
	maxAttempts := c.cfg.ReconnectMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 8
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		time.Sleep(backoff)

		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, err := c.dial(context.Background())
		if err == nil {
			if err = c.writeControl(conn, outbound{Type: outboundSubscribe, Topic: topic}); err == nil {
				c.mu.Lock()
				if c.generation != gen {
					c.mu.Unlock()
					_ = conn.Close()
					return
				}
				c.conn = conn
				c.state = StateConnected
				c.mu.Unlock()

				c.metrics.Inc(observability.MetricReconnects)
				c.logger.Info("reconnected", zap.String("topic", topic), zap.Int("attempt", attempt))
				go c.readPump(conn, gen)
				return
			}
			_ = conn.Close()
		}
		c.logger.Warn("reconnect attempt failed",
			zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(err))

		backoff *= 2
		if ceiling := c.cfg.MaxBackoff(); backoff > ceiling {
			backoff = ceiling
		}
	}

	c.mu.Lock()
	if c.generation == gen {
		c.state = StateDisconnected
	}
	c.mu.Unlock()
	c.logger.Error("reconnect attempts exhausted", zap.String("topic", topic))
}
