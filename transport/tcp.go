package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

// TCPConfig contains settings for the TCP transport
type TCPConfig struct {
	// Endpoints maps each reachable network to a host:port
	Endpoints map[location.NetworkID]string

	// Peers maps local destinations, keyed by their text form, to a host:port.
	// Keys are read in canonical form
	Peers map[string]string

	// DialTimeout bounds connection setup
	DialTimeout time.Duration

	// WriteTimeout bounds a single send when ctx has no deadline
	WriteTimeout time.Duration

	// MaxMessageSize bounds an encoded envelope
	MaxMessageSize int
}

// DefaultTCPConfig returns default TCP transport settings.
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		Endpoints:      make(map[location.NetworkID]string),
		Peers:          make(map[string]string),
		DialTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1024 * 1024,
	}
}

// TCP sends envelopes as newline-delimited JSON over one pooled connection
// per endpoint. It exports to remote networks and sends to local peers.
type TCP struct {
	config TCPConfig
	logger *zap.Logger

	connections map[string]*connection
	connMu      sync.RWMutex

	stats Statistics

	closed int32 // atomic
}

// connection is an outbound link to one endpoint. lost is set once the
// peer has closed its end.
type connection struct {
	address string
	conn    net.Conn
	mu      sync.Mutex
	lost    atomic.Bool
}

// NewTCP creates a TCP transport.
func NewTCP(config TCPConfig, logger *zap.Logger) *TCP {
	if logger == nil {
		logger = zap.NewNop()
	}
	peers := make(map[string]string, len(config.Peers))
	for dest, address := range config.Peers {
		if loc, err := location.Parse(dest); err == nil {
			dest = loc.String()
		}
		peers[dest] = address
	}
	config.Peers = peers
	return &TCP{
		config:      config,
		logger:      logger,
		connections: make(map[string]*connection),
	}
}

// ExportXcm implements xcm.ExportXcm.
func (t *TCP) ExportXcm(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg xcm.Xcm) error {
	address, ok := t.config.Endpoints[network]
	if !ok {
		return &xcm.TransportError{Network: network, Err: ErrNoRoute}
	}
	if err := t.send(ctx, address, NewEnvelope(network, channel, dest, msg)); err != nil {
		return &xcm.TransportError{Network: network, Err: err}
	}
	return nil
}

// SendXcm implements xcm.SendXcm for peers inside the local consensus. A
// destination with no configured peer cannot be reached.
func (t *TCP) SendXcm(ctx context.Context, dest location.Location, msg xcm.Xcm) error {
	address, ok := t.config.Peers[dest.String()]
	if !ok {
		return xcm.CannotReachDestination(dest, msg)
	}
	if err := t.send(ctx, address, NewEnvelope("", 0, location.Junctions{}, msg)); err != nil {
		return &xcm.TransportError{Err: fmt.Errorf("peer %s: %w", dest, err)}
	}
	return nil
}

func (t *TCP) send(ctx context.Context, address string, env *Envelope) error {
	if atomic.LoadInt32(&t.closed) == 1 {
		return ErrClosed
	}

	data, err := encodeEnvelope(env, t.config.MaxMessageSize)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	conn, err := t.getConnection(ctx, address)
	if err != nil {
		atomic.AddInt64(&t.stats.ErrorCount, 1)
		return err
	}

	if err := conn.write(ctx, data, t.config.WriteTimeout); err != nil {
		atomic.AddInt64(&t.stats.ErrorCount, 1)
		t.removeConnection(conn)
		return err
	}

	atomic.AddInt64(&t.stats.MessagesSent, 1)
	atomic.AddInt64(&t.stats.BytesSent, int64(len(data)))
	t.logger.Debug("envelope sent",
		zap.String("address", address),
		zap.String("id", env.ID),
		zap.Int("bytes", len(data)))
	return nil
}

// Close drops every pooled connection. Later sends fail with ErrClosed.
func (t *TCP) Close() error {
	if !atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		return nil
	}

	t.connMu.Lock()
	defer t.connMu.Unlock()
	for address, conn := range t.connections {
		conn.conn.Close()
		delete(t.connections, address)
	}
	return nil
}

// GetStatistics returns transport statistics
func (t *TCP) GetStatistics() Statistics {
	t.connMu.RLock()
	connCount := len(t.connections)
	t.connMu.RUnlock()

	return Statistics{
		MessagesSent:    atomic.LoadInt64(&t.stats.MessagesSent),
		BytesSent:       atomic.LoadInt64(&t.stats.BytesSent),
		ConnectionsOpen: connCount,
		ErrorCount:      atomic.LoadInt64(&t.stats.ErrorCount),
	}
}

// Connection management

func (t *TCP) getConnection(ctx context.Context, address string) (*connection, error) {
	t.connMu.RLock()
	conn, exists := t.connections[address]
	t.connMu.RUnlock()

	if exists && !conn.lost.Load() {
		return conn, nil
	}
	return t.createConnection(ctx, address)
}

func (t *TCP) createConnection(ctx context.Context, address string) (*connection, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	// Double-check after acquiring lock
	if conn, exists := t.connections[address]; exists && !conn.lost.Load() {
		return conn, nil
	}

	dialer := net.Dialer{Timeout: t.config.DialTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}

	conn := &connection{address: address, conn: netConn}
	t.connections[address] = conn
	go t.watch(conn)

	t.logger.Debug("connected", zap.String("address", address))
	return conn, nil
}

// watch drains conn until the peer closes it. Listeners never reply, so a
// returning read means the link is gone and must not be reused.
func (t *TCP) watch(conn *connection) {
	_, err := io.Copy(io.Discard, conn.conn)
	conn.lost.Store(true)
	t.removeConnection(conn)
	if atomic.LoadInt32(&t.closed) == 0 {
		t.logger.Debug("connection lost", zap.String("address", conn.address), zap.Error(err))
	}
}

func (t *TCP) removeConnection(conn *connection) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	conn.conn.Close()
	if current, exists := t.connections[conn.address]; exists && current == conn {
		delete(t.connections, conn.address)
	}
}

func (c *connection) write(ctx context.Context, data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lost.Load() {
		return fmt.Errorf("%w: %s", ErrConnectionLost, c.address)
	}
	deadline, ok := ctx.Deadline()
	if !ok && timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	_, err := c.conn.Write(data)
	return err
}
