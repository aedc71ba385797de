package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orderflow/orderrelay/display/internal/alerts"
	"github.com/orderflow/orderrelay/pkg/types"
)

// Disconnect reasons reported in the closed-connection warning.
const (
	ReasonClientDisconnect = "io client disconnect"
	ReasonServerDisconnect = "io server disconnect"
	ReasonPingTimeout      = "ping timeout"
	ReasonTransportClose   = "transport close"
)

const (
	defaultTimestampFormat = "15:04:05"
	defaultReconnectDelay  = time.Second
	defaultReconnectMax    = 5 * time.Second

	// defaultPingTimeout bounds the silence between frames. The relay pings
	// every 54s.
	defaultPingTimeout = 90 * time.Second

	writeTimeout = 10 * time.Second
)

// Buffer stores decoded notifications. Add reports whether n was new.
type Buffer interface {
	Add(n types.Notification) bool
}

// Warner raises the user-visible warning for a remote disconnect.
type Warner interface {
	ConnectionClosed(reason string, reconnecting bool) alerts.Alert
}

// Options configures a Session.
type Options struct {
	// URL is the relay origin. http and https are mapped to ws and wss.
	URL string

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Now defaults to time.Now.
	Now func() time.Time

	// TimestampFormat is the layout used to stamp notifications on receipt.
	TimestampFormat string

	// Reconnect redials after a disconnect the session did not initiate.
	Reconnect bool

	// ReconnectDelay is the first backoff step, doubled up to
	// ReconnectDelayMax.
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration

	// PingTimeout is how long the connection may stay silent before it is
	// considered dead.
	PingTimeout time.Duration

	// OnMessage is called for every notification the buffer accepted.
	OnMessage func(types.Notification)
}

// Session owns the display's single channel connection.
//
// Session is safe for concurrent use. It is not reusable once Run returns.
type Session struct {
	opts   Options
	buf    Buffer
	warn   Warner
	status *StatusWatcher

	mu    sync.Mutex
	conn  *websocket.Conn
	local bool
}

// New creates a Session. Call Run to connect.
func New(buf Buffer, warn Warner, opts Options) *Session {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TimestampFormat == "" {
		opts.TimestampFormat = defaultTimestampFormat
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.ReconnectDelayMax < opts.ReconnectDelay {
		opts.ReconnectDelayMax = defaultReconnectMax
		if opts.ReconnectDelayMax < opts.ReconnectDelay {
			opts.ReconnectDelayMax = opts.ReconnectDelay
		}
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = defaultPingTimeout
	}
	return &Session{
		opts:   opts,
		buf:    buf,
		warn:   warn,
		status: NewStatusWatcher(),
	}
}

// Status returns the session's status observable.
func (s *Session) Status() *StatusWatcher { return s.status }

// ChannelURL maps a relay origin to the channel endpoint.
func ChannelURL(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("relay url scheme %q unsupported", u.Scheme)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Run connects and reads frames until ctx is cancelled, Disconnect is called,
// or the connection drops with reconnect disabled. A remote disconnect raises
// one warning. A dial error is returned only when no retry follows.
func (s *Session) Run(ctx context.Context) error {
	target, err := ChannelURL(s.opts.URL)
	if err != nil {
		s.status.Set(StatusClosed)
		return err
	}

	stop := context.AfterFunc(ctx, s.Disconnect)
	defer stop()

	delay := s.opts.ReconnectDelay
	for {
		if s.isLocal() {
			s.status.Set(StatusClosed)
			return nil
		}
		s.status.Set(StatusConnecting)

		conn, _, err := s.opts.Dialer.DialContext(ctx, target, nil)
		if err != nil {
			s.status.Set(StatusClosed)
			if ctx.Err() != nil || s.isLocal() {
				return nil
			}
			slog.Warn("session: dial failed", "url", target, "err", err)
			if !s.opts.Reconnect {
				return fmt.Errorf("dial %s: %w", target, err)
			}
			if !s.sleep(ctx, delay) {
				return nil
			}
			delay = s.nextDelay(delay)
			continue
		}

		if !s.attach(conn) {
			conn.Close()
			s.status.Set(StatusClosed)
			return nil
		}
		delay = s.opts.ReconnectDelay
		slog.Info("session: connected", "url", target)
		s.status.Set(StatusOpen)

		reason := s.readLoop(conn)
		s.detach(conn)
		s.status.Set(StatusClosed)
		slog.Info("session: connection closed", "reason", reason)

		if reason == ReasonClientDisconnect {
			return nil
		}
		if s.warn != nil {
			s.warn.ConnectionClosed(reason, s.opts.Reconnect)
		}
		if !s.opts.Reconnect {
			return nil
		}
		if !s.sleep(ctx, delay) {
			return nil
		}
		delay = s.nextDelay(delay)
	}
}

// Disconnect closes the connection from the display's side. No warning is
// raised and Run does not reconnect.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.local = true
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return
	}
	conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ReasonClientDisconnect),
		time.Now().Add(writeTimeout))
	conn.Close()
}

func (s *Session) readLoop(conn *websocket.Conn) string {
	timeout := s.opts.PingTimeout
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(timeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			return err
		}
		return nil
	})

	for {
		conn.SetReadDeadline(time.Now().Add(timeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return s.reason(err)
		}
		s.handleFrame(data)
	}
}

func (s *Session) handleFrame(data []byte) {
	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("session: ignoring malformed frame", "err", err)
		return
	}
	if env.Event != types.EventMessage {
		slog.Debug("session: ignoring event", "event", env.Event)
		return
	}

	notice := Decode(env.Data.Message)
	n := types.Notification{
		OrderID:   notice.OrderID,
		Message:   notice.Message,
		Timestamp: s.opts.Now().Format(s.opts.TimestampFormat),
	}
	if s.buf != nil && !s.buf.Add(n) {
		slog.Debug("session: duplicate notification", "order_id", n.OrderID)
		return
	}
	if s.opts.OnMessage != nil {
		s.opts.OnMessage(n)
	}
}

// reason classifies a read error into a disconnect reason.
func (s *Session) reason(err error) string {
	if s.isLocal() {
		return ReasonClientDisconnect
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		return ReasonServerDisconnect
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonPingTimeout
	}
	return ReasonTransportClose
}

func (s *Session) attach(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local {
		return false
	}
	s.conn = conn
	return true
}

func (s *Session) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
}

func (s *Session) isLocal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

func (s *Session) nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > s.opts.ReconnectDelayMax {
		d = s.opts.ReconnectDelayMax
	}
	return d
}

// sleep waits for d or until ctx is done. It reports whether the wait
// completed.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return !s.isLocal()
	case <-ctx.Done():
		return false
	}
}
