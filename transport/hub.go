package transport

import (
	"context"
	"sync"

	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

// Hub is an in-process transport: each network registers a handler and
// ExportXcm delivers to it synchronously.
type Hub struct {
	mu       sync.RWMutex
	handlers map[location.NetworkID]Handler
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{handlers: make(map[location.NetworkID]Handler)}
}

// Register attaches handler to network, replacing any previous one.
func (h *Hub) Register(network location.NetworkID, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[network] = handler
}

// Unregister detaches network.
func (h *Hub) Unregister(network location.NetworkID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, network)
}

// ExportXcm implements xcm.ExportXcm.
func (h *Hub) ExportXcm(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg xcm.Xcm) error {
	h.mu.RLock()
	handler, ok := h.handlers[network]
	h.mu.RUnlock()

	if !ok {
		return &xcm.TransportError{Network: network, Err: ErrNoRoute}
	}
	if err := ctx.Err(); err != nil {
		return &xcm.TransportError{Network: network, Err: err}
	}
	if err := handler.HandleMessage(ctx, network, channel, dest.Clone(), msg.Clone()); err != nil {
		return &xcm.TransportError{Network: network, Err: err}
	}
	return nil
}
