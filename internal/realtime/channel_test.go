package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/auth"
	"github.com/jusdesk/portal-sync/internal/config"
	"github.com/jusdesk/portal-sync/internal/observability"
)

// pushServer is a minimal stand-in for the messaging endpoint: it
// records every client frame and can push frames back on the most
// recent connection.
type pushServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	auths    []string
	received chan outbound
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{t: t, received: make(chan outbound, 32)}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ps.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.mu.Lock()
		ps.conns = append(ps.conns, conn)
		ps.auths = append(ps.auths, r.Header.Get("Authorization"))
		ps.mu.Unlock()

		for {
			var msg outbound
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ps.received <- msg
		}
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) url() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http")
}

func (ps *pushServer) push(f frame) {
	ps.mu.Lock()
	conn := ps.conns[len(ps.conns)-1]
	ps.mu.Unlock()
	require.NoError(ps.t, conn.WriteJSON(f))
}

func (ps *pushServer) dropConns() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, conn := range ps.conns {
		_ = conn.Close()
	}
	ps.conns = nil
}

func (ps *pushServer) next(timeout time.Duration) (outbound, bool) {
	select {
	case msg := <-ps.received:
		return msg, true
	case <-time.After(timeout):
		return outbound{}, false
	}
}

func newTestChannel(ps *pushServer, creds *auth.CredentialStore) (*Channel, *observability.Metrics) {
	metrics := observability.NewMetrics()
	ch := NewChannel(config.RealtimeConfig{
		URL:                     ps.url(),
		ReconnectInitialSeconds: 1,
		ReconnectMaxSeconds:     1,
		ReconnectMaxAttempts:    3,
	}, Dependencies{
		Credentials: creds,
		Logger:      zap.NewNop(),
		Metrics:     metrics,
	})
	return ch, metrics
}

func body(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestConnectSubscribesAndDelivers(t *testing.T) {
	ctx := context.Background()
	ps := newPushServer(t)
	creds := auth.NewCredentialStore(ctx, "secret", nil)
	require.NoError(t, creds.Set(ctx, "tok-99"))
	ch, _ := newTestChannel(ps, creds)
	defer ch.Disconnect()

	delivered := make(chan []byte, 8)
	require.NoError(t, ch.Connect(ctx, NotificationTopic("u-1"), func(_ string, b []byte) {
		delivered <- b
	}))
	assert.Equal(t, StateConnected, ch.State())

	sub, ok := ps.next(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, outboundSubscribe, sub.Type)
	assert.Equal(t, "notificacoes/u-1", sub.Topic)

	ps.mu.Lock()
	gotAuth := ps.auths[0]
	ps.mu.Unlock()
	assert.Equal(t, "Bearer tok-99", gotAuth)

	ps.push(frame{Topic: "notificacoes/u-1", Seq: 1, Body: body(t, map[string]string{"kind": "ticket"})})
	select {
	case b := <-delivered:
		assert.JSONEq(t, `{"kind":"ticket"}`, string(b))
	case <-time.After(2 * time.Second):
		t.Fatal("frame was not delivered")
	}
}

func TestDuplicateFramesDroppedOnce(t *testing.T) {
	ctx := context.Background()
	ps := newPushServer(t)
	creds := auth.NewCredentialStore(ctx, "secret", nil)
	ch, metrics := newTestChannel(ps, creds)
	defer ch.Disconnect()

	delivered := make(chan uint64, 8)
	topic := ChatTopic("42")
	require.NoError(t, ch.Connect(ctx, topic, func(_ string, b []byte) {
		var msg struct {
			Seq uint64 `json:"seq"`
		}
		if err := json.Unmarshal(b, &msg); err == nil {
			delivered <- msg.Seq
		}
	}))
	_, ok := ps.next(2 * time.Second) // subscribe frame
	require.True(t, ok)

	for _, seq := range []uint64{1, 1, 2, 4} {
		ps.push(frame{Topic: topic, Seq: seq, Body: body(t, map[string]uint64{"seq": seq})})
	}

	var got []uint64
	for len(got) < 3 {
		select {
		case seq := <-delivered:
			got = append(got, seq)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 3 deliveries, got %v", got)
		}
	}
	assert.Equal(t, []uint64{1, 2, 4}, got, "duplicates dropped, arrival order preserved")

	select {
	case seq := <-delivered:
		t.Fatalf("unexpected extra delivery: %d", seq)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, int64(1), metrics.Value(observability.MetricFramesDuplicate))
	assert.Equal(t, int64(1), metrics.Value(observability.MetricSequenceGaps))
}

func TestPublishWhenDisconnected(t *testing.T) {
	ctx := context.Background()
	ps := newPushServer(t)
	creds := auth.NewCredentialStore(ctx, "secret", nil)
	ch, _ := newTestChannel(ps, creds)

	err := ch.Publish(ChatTopic("42"), map[string]string{"content": "Olá"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, StateDisconnected, ch.State())
}

func TestPublishRoutesToSendDestination(t *testing.T) {
	ctx := context.Background()
	ps := newPushServer(t)
	creds := auth.NewCredentialStore(ctx, "secret", nil)
	ch, _ := newTestChannel(ps, creds)
	defer ch.Disconnect()

	require.NoError(t, ch.Connect(ctx, ChatTopic("42"), func(string, []byte) {}))
	_, ok := ps.next(2 * time.Second) // subscribe frame
	require.True(t, ok)

	require.NoError(t, ch.Publish(ChatTopic("42"), map[string]string{"content": "Olá"}))
	msg, ok := ps.next(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, outboundSend, msg.Type)
	assert.Equal(t, "ticket-chat.sendMessage/42", msg.Destination)
	assert.JSONEq(t, `{"content":"Olá"}`, string(msg.Body))
}

func TestConnectSwapsSubscription(t *testing.T) {
	ctx := context.Background()
	ps := newPushServer(t)
	creds := auth.NewCredentialStore(ctx, "secret", nil)
	ch, _ := newTestChannel(ps, creds)
	defer ch.Disconnect()

	oldDelivered := make(chan []byte, 8)
	require.NoError(t, ch.Connect(ctx, ChatTopic("1"), func(_ string, b []byte) {
		oldDelivered <- b
	}))
	_, ok := ps.next(2 * time.Second) // subscribe ticket-chat/1
	require.True(t, ok)

	newDelivered := make(chan []byte, 8)
	require.NoError(t, ch.Connect(ctx, ChatTopic("2"), func(_ string, b []byte) {
		newDelivered <- b
	}))

	unsub, ok := ps.next(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, outboundUnsubscribe, unsub.Type)
	assert.Equal(t, "ticket-chat/1", unsub.Topic)

	sub, ok := ps.next(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, outboundSubscribe, sub.Type)
	assert.Equal(t, "ticket-chat/2", sub.Topic)

	ps.push(frame{Topic: "ticket-chat/1", Seq: 1, Body: body(t, map[string]string{"content": "stale"})})
	ps.push(frame{Topic: "ticket-chat/2", Seq: 1, Body: body(t, map[string]string{"content": "fresh"})})

	select {
	case b := <-newDelivered:
		assert.JSONEq(t, `{"content":"fresh"}`, string(b))
	case <-time.After(2 * time.Second):
		t.Fatal("frame for the active topic was not delivered")
	}
	select {
	case <-oldDelivered:
		t.Fatal("frame for the replaced topic must not be delivered")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDisconnectConnectKeepsSingleSubscription(t *testing.T) {
	ctx := context.Background()
	ps := newPushServer(t)
	creds := auth.NewCredentialStore(ctx, "secret", nil)
	ch, _ := newTestChannel(ps, creds)
	defer ch.Disconnect()

	require.NoError(t, ch.Connect(ctx, NotificationTopic("u-1"), func(string, []byte) {}))
	_, ok := ps.next(2 * time.Second)
	require.True(t, ok)

	ch.Disconnect()
	ch.Disconnect() // idempotent
	assert.Equal(t, StateDisconnected, ch.State())

	require.NoError(t, ch.Connect(ctx, NotificationTopic("u-1"), func(string, []byte) {}))
	sub, ok := ps.next(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, outboundSubscribe, sub.Type)
	assert.Equal(t, "notificacoes/u-1", sub.Topic)

	// exactly one subscription live: no further control frames pending
	if extra, ok := ps.next(200 * time.Millisecond); ok {
		t.Fatalf("unexpected extra control frame: %+v", extra)
	}
}

func TestReconnectAfterTransportDrop(t *testing.T) {
	if testing.Short() {
		t.Skip("reconnect test waits on real backoff")
	}
	ctx := context.Background()
	ps := newPushServer(t)
	creds := auth.NewCredentialStore(ctx, "secret", nil)
	ch, metrics := newTestChannel(ps, creds)
	defer ch.Disconnect()

	delivered := make(chan []byte, 8)
	topic := NotificationTopic("u-1")
	require.NoError(t, ch.Connect(ctx, topic, func(_ string, b []byte) {
		delivered <- b
	}))
	_, ok := ps.next(2 * time.Second)
	require.True(t, ok)

	ps.dropConns()

	sub, ok := ps.next(5 * time.Second)
	require.True(t, ok, "expected a resubscription after the drop")
	assert.Equal(t, outboundSubscribe, sub.Type)
	assert.Equal(t, topic, sub.Topic)

	require.Eventually(t, func() bool {
		return ch.State() == StateConnected
	}, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, metrics.Value(observability.MetricReconnects), int64(1))

	ps.push(frame{Topic: topic, Seq: 10, Body: body(t, map[string]string{"kind": "after"})})
	select {
	case b := <-delivered:
		assert.JSONEq(t, `{"kind":"after"}`, string(b))
	case <-time.After(2 * time.Second):
		t.Fatal("frame after reconnect was not delivered")
	}
}
