package scan

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moyoez/scandrop/tool"
)

var (
	HandshakeTimeout = 10 * time.Second
	CloseGracePeriod = time.Second
)

// ErrClosedBeforeResult is passed to onDegrade when the server closes the
// channel before sending a terminal status.
var ErrClosedBeforeResult = errors.New("scan channel closed before a result was received")

// Dialer opens scan status channels.
type Dialer struct {
	dialer    *websocket.Dialer
	resolvers []Resolver
	header    http.Header
}

// NewDialer creates a dialer trying resolvers in order for every ticket.
func NewDialer(resolvers []Resolver, token string, insecure bool) *Dialer {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: HandshakeTimeout,
	}
	if insecure {
		d.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &Dialer{dialer: d, resolvers: resolvers, header: header}
}

// Open subscribes to the scan status of ticketID. It never blocks: dialing runs
// in the background and a failure to connect is reported through onDegrade,
// never as a scan failure. onDegrade is called at most once, and neither
// callback fires after a terminal event has been delivered.
func (d *Dialer) Open(ticketID string, onEvent func(Event), onDegrade func(error)) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		ticketID: ticketID,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run(d, onEvent, onDegrade)
	return c
}

// Channel is one open subscription. Close must be called on every exit path.
type Channel struct {
	ticketID string
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// TicketID returns the ticket the channel is subscribed to.
func (c *Channel) TicketID() string {
	return c.ticketID
}

// Done is closed when the background reader has exited.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close tears down the subscription. It is safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if conn == nil {
		return nil
	}
	deadline := time.Now().Add(CloseGracePeriod)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		tool.DefaultLogger.Debugf("[Scan] close frame for %s not sent: %v", c.ticketID, err)
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) run(d *Dialer, onEvent func(Event), onDegrade func(error)) {
	defer close(c.done)

	degrade := func(err error) {
		if c.isClosed() {
			return
		}
		tool.DefaultLogger.Warnf("[Scan] live updates unavailable for %s: %v", c.ticketID, err)
		if onDegrade != nil {
			onDegrade(err)
		}
	}

	endpoint, err := ResolveURL(c.ticketID, d.resolvers...)
	if err != nil {
		degrade(err)
		return
	}

	conn, resp, err := d.dialer.DialContext(c.ctx, endpoint, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("dial %s: %s: %w", endpoint, resp.Status, err)
		} else {
			err = fmt.Errorf("dial %s: %w", endpoint, err)
		}
		degrade(err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()
	defer conn.Close()

	tool.DefaultLogger.Debugf("[Scan] channel open for %s at %s", c.ticketID, endpoint)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = fmt.Errorf("%w: %v", ErrClosedBeforeResult, err)
			}
			degrade(err)
			return
		}
		if c.isClosed() {
			return
		}
		event, ok := ParseMessage(data)
		if !ok {
			tool.DefaultLogger.Warnf("[Scan] ignoring unrecognized message for %s: %s", c.ticketID, string(data))
			continue
		}
		if onEvent != nil {
			onEvent(event)
		}
		if event.Kind.Terminal() {
			return
		}
	}
}
