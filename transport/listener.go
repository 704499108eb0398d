package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ListenerConfig contains settings for the TCP listener
type ListenerConfig struct {
	// Address to listen on, host:port
	Address string

	// IdleTimeout closes connections with no traffic
	IdleTimeout time.Duration

	// MaxMessageSize bounds a single encoded envelope
	MaxMessageSize int
}

// DefaultListenerConfig returns default listener settings.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		Address:        "127.0.0.1:0",
		IdleTimeout:    5 * time.Minute,
		MaxMessageSize: 1024 * 1024,
	}
}

// Listener accepts envelopes sent by TCP and hands them to a Handler.
type Listener struct {
	config  ListenerConfig
	handler Handler
	logger  *zap.Logger

	listener net.Listener

	conns   map[net.Conn]struct{}
	connsMu sync.Mutex

	stats Statistics

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started int32 // atomic
}

// NewListener creates a listener that dispatches to handler.
func NewListener(config ListenerConfig, handler Handler, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultListenerConfig().MaxMessageSize
	}
	return &Listener{
		config:  config,
		handler: handler,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start binds the address and begins accepting connections. ctx bounds
// the bind only; the listener runs until Stop.
func (l *Listener) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&l.started, 0, 1) {
		return fmt.Errorf("listener already started")
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", l.config.Address)
	if err != nil {
		atomic.StoreInt32(&l.started, 0)
		return fmt.Errorf("failed to listen on %s: %w", l.config.Address, err)
	}
	l.listener = listener
	l.ctx, l.cancel = context.WithCancel(context.WithoutCancel(ctx))

	l.wg.Add(1)
	go l.acceptLoop()

	l.logger.Info("listening", zap.Stringer("address", listener.Addr()))
	return nil
}

// Stop closes the listener and every open connection, then waits for
// handlers to return.
func (l *Listener) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&l.started, 1, 0) {
		return nil
	}

	l.cancel()
	l.listener.Close()

	l.connsMu.Lock()
	for conn := range l.conns {
		conn.Close()
	}
	l.connsMu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// GetStatistics returns listener statistics
func (l *Listener) GetStatistics() Statistics {
	l.connsMu.Lock()
	open := len(l.conns)
	l.connsMu.Unlock()

	return Statistics{
		MessagesReceived: atomic.LoadInt64(&l.stats.MessagesReceived),
		BytesReceived:    atomic.LoadInt64(&l.stats.BytesReceived),
		ConnectionsOpen:  open,
		ErrorCount:       atomic.LoadInt64(&l.stats.ErrorCount),
	}
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("accept failed", zap.Error(err))
			continue
		}

		l.connsMu.Lock()
		l.conns[conn] = struct{}{}
		l.connsMu.Unlock()

		l.wg.Add(1)
		go l.handleConnection(conn)
	}
}

func (l *Listener) handleConnection(conn net.Conn) {
	defer l.wg.Done()
	defer func() {
		conn.Close()
		l.connsMu.Lock()
		delete(l.conns, conn)
		l.connsMu.Unlock()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), l.config.MaxMessageSize+1)

	for {
		if l.config.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(l.config.IdleTimeout))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && l.ctx.Err() == nil {
				atomic.AddInt64(&l.stats.ErrorCount, 1)
				l.logger.Debug("connection closed", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
			}
			return
		}

		line := scanner.Bytes()
		atomic.AddInt64(&l.stats.BytesReceived, int64(len(line)+1))

		if err := l.deliver(line); err != nil {
			atomic.AddInt64(&l.stats.ErrorCount, 1)
			l.logger.Warn("envelope rejected", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
			continue
		}
		atomic.AddInt64(&l.stats.MessagesReceived, 1)
	}
}

func (l *Listener) deliver(line []byte) error {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}
	dest, err := env.Verify()
	if err != nil {
		return err
	}
	return l.handler.HandleMessage(l.ctx, env.Network, env.Channel, dest, env.Message)
}
