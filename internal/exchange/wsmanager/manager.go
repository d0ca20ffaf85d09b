package wsmanager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ai-agentic-browser/trader-core/internal/config"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"
)

// Manager runs the abstract WebSocket state machine over a single
// connection: Disconnected -> Connecting -> Connected -> (Reconnecting
// loops back to Connecting) -> Disconnected. It is generic across venues
// via the injected Parser; venue adapters own one Manager each.
type Manager struct {
	logger *observability.Logger
	cfg    config.WebSocketConfig
	url    string
	parser Parser

	Subscriptions *SubscriptionManager

	state   int32 // atomic State
	conn    atomic.Pointer[websocket.Conn]
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex // guards lifecycle transitions and stats below

	connectedSince    time.Time
	reconnectAttempts int
	messagesReceived  int64
	messagesSent      int64
	errorCount        int64
	lastError         string
}

// New creates a Manager bound to url, using parser to interpret frames.
func New(logger *observability.Logger, cfg config.WebSocketConfig, url string, parser Parser) *Manager {
	return &Manager{
		logger:        logger,
		cfg:           cfg,
		url:           url,
		parser:        parser,
		Subscriptions: NewSubscriptionManager(),
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	return State(atomic.LoadInt32(&m.state))
}

func (m *Manager) setState(s State) {
	atomic.StoreInt32(&m.state, int32(s))
}

// Connect dials the venue and, on success, starts the receive loop. It is a
// no-op if already connected or connecting.
func (m *Manager) Connect(ctx context.Context) error {
	if m.State() == Connected || m.State() == Connecting {
		return nil
	}
	m.setState(Connecting)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		m.setState(Disconnected)
		return &common.ConnectionError{Message: fmt.Sprintf("dial %s: %v", m.url, err), Retryable: true}
	}

	m.conn.Store(conn)
	m.mu.Lock()
	m.connectedSince = time.Now()
	m.mu.Unlock()
	m.setState(Connected)
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go m.receiveLoop(conn, m.stopCh)

	m.logger.Info(ctx, "websocket connected", map[string]interface{}{"url": m.url})
	return nil
}

// Disconnect closes the session, stops the receive loop and drops every
// registered subscription. Idempotent.
func (m *Manager) Disconnect(ctx context.Context) error {
	if m.State() == Disconnected {
		m.Subscriptions.RemoveAll()
		return nil
	}
	m.setState(Disconnected)
	if m.stopCh != nil {
		close(m.stopCh)
	}
	if conn := m.conn.Swap(nil); conn != nil {
		_ = conn.Close()
	}
	m.wg.Wait()
	m.Subscriptions.RemoveAll()
	m.logger.Info(ctx, "websocket disconnected", nil)
	return nil
}

// Send writes a text frame. Only valid while Connected.
func (m *Manager) Send(text string) error {
	conn := m.conn.Load()
	if m.State() != Connected || conn == nil {
		return &common.ConnectionError{Message: "send while not connected", Retryable: true}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		m.recordError(err)
		return &common.ConnectionError{Message: err.Error(), Retryable: true}
	}
	m.mu.Lock()
	m.messagesSent++
	m.mu.Unlock()
	return nil
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.errorCount++
	m.lastError = err.Error()
	m.mu.Unlock()
}

// receiveLoop reads frames until the connection drops or Disconnect is
// called, handling TEXT/BINARY/PING/PONG/CLOSE per the frame contract and
// triggering reconnection on unexpected closure.
func (m *Manager) receiveLoop(conn *websocket.Conn, stopCh chan struct{}) {
	defer m.wg.Done()

	conn.SetPongHandler(func(string) error { return nil })

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			m.recordError(err)
			select {
			case <-stopCh:
				return
			default:
			}
			m.handleDrop()
			return
		}

		m.mu.Lock()
		m.messagesReceived++
		m.mu.Unlock()

		switch msgType {
		case websocket.TextMessage:
			parsed := m.parser.ParseMessage(data)
			if parsed.Ok {
				m.Subscriptions.Route(parsed.Channel, parsed.Payload)
			}
		case websocket.BinaryMessage:
			// Binary frames carry no parseable channel payload in the
			// venues this manager targets; ignored.
		case websocket.PingMessage:
			_ = conn.WriteMessage(websocket.PongMessage, nil)
		case websocket.CloseMessage:
			m.handleDrop()
			return
		}
	}
}

// handleDrop transitions Connected -> Reconnecting (if auto-reconnect is
// enabled and attempts remain) or Disconnected, and kicks off reconnection.
func (m *Manager) handleDrop() {
	if m.State() == Disconnected {
		return
	}
	if !m.cfg.AutoReconnect {
		m.setState(Disconnected)
		return
	}

	m.setState(Reconnecting)
	m.mu.Lock()
	m.reconnectAttempts++
	attempts := m.reconnectAttempts
	m.mu.Unlock()

	if attempts > m.cfg.MaxReconnectAttempts {
		m.setState(Disconnected)
		return
	}

	go func() {
		time.Sleep(m.cfg.ReconnectDelay)
		if m.State() != Reconnecting {
			return
		}
		m.setState(Disconnected)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = m.Connect(ctx)
	}()
}

// Stats returns a ConnectionStats snapshot.
func (m *Manager) Stats() common.ConnectionStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return common.ConnectionStats{
		IsConnected:      m.State() == Connected,
		ConnectedSince:   m.connectedSince,
		ReconnectCount:   int64(m.reconnectAttempts),
		MessagesSent:     m.messagesSent,
		MessagesReceived: m.messagesReceived,
		ErrorCount:       m.errorCount,
		LastError:        m.lastError,
	}
}

// Subscribe registers cb for channel with the subscription manager and sends
// the venue's subscribe frame for channel on every call. If the frame cannot
// be built or sent, the registration is removed again.
func (m *Manager) Subscribe(channel string, cb common.SubscriptionCallback) (string, error) {
	id := m.Subscriptions.Add(channel, cb)
	frame, err := m.parser.BuildSubscribe(channel)
	if err != nil {
		m.Subscriptions.Remove(id)
		return "", err
	}
	if err := m.Send(frame); err != nil {
		m.Subscriptions.Remove(id)
		return "", err
	}
	return id, nil
}

// Unsubscribe removes a single subscription by id.
func (m *Manager) Unsubscribe(id string) error {
	m.Subscriptions.Remove(id)
	return nil
}

// UnsubscribeAll tears down every subscription, sending unsubscribe frames
// where the venue supports them.
func (m *Manager) UnsubscribeAll() error {
	channels := m.Subscriptions.RemoveAll()
	for _, ch := range channels {
		if frame, ok := m.parser.BuildUnsubscribe(ch); ok {
			_ = m.Send(frame)
		}
	}
	return nil
}
