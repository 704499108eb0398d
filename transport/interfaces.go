// Package transport moves exported messages toward remote networks.
//
// Every transport here implements xcm.ExportXcm. Delivery failures are
// reported to the caller as *xcm.TransportError and never retried.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

// Transport errors
var (
	ErrNoRoute         = errors.New("no route to network")
	ErrClosed          = errors.New("transport closed")
	ErrConnectionLost  = errors.New("connection lost")
	ErrHashMismatch    = errors.New("message hash mismatch")
	ErrMessageTooLarge = errors.New("message too large")
)

// Envelope is the unit delivered to a remote network.
type Envelope struct {
	ID          string             `json:"id"`
	Network     location.NetworkID `json:"network"`
	Channel     uint32             `json:"channel"`
	Destination string             `json:"destination"`
	Message     xcm.Xcm            `json:"message"`
	SentAt      time.Time          `json:"sent_at"`
}

// NewEnvelope builds an envelope for msg.
func NewEnvelope(network location.NetworkID, channel uint32, dest location.Junctions, msg xcm.Xcm) *Envelope {
	return &Envelope{
		ID:          msg.Hash().String(),
		Network:     network,
		Channel:     channel,
		Destination: dest.String(),
		Message:     msg.Clone(),
		SentAt:      time.Now(),
	}
}

// Verify checks the envelope id against its message and parses the
// destination.
func (e *Envelope) Verify() (location.Junctions, error) {
	if e.ID != e.Message.Hash().String() {
		return nil, fmt.Errorf("%w: envelope %s", ErrHashMismatch, e.ID)
	}
	return location.ParseJunctions(e.Destination)
}

// Handler receives messages delivered by a transport.
type Handler interface {
	HandleMessage(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg xcm.Xcm) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg xcm.Xcm) error

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg xcm.Xcm) error {
	return f(ctx, network, channel, dest, msg)
}

// Statistics contains transport counters
type Statistics struct {
	MessagesSent     int64 `json:"messages_sent"`
	MessagesReceived int64 `json:"messages_received"`
	BytesSent        int64 `json:"bytes_sent"`
	BytesReceived    int64 `json:"bytes_received"`
	ConnectionsOpen  int   `json:"connections_open"`
	ErrorCount       int64 `json:"error_count"`
}

func encodeEnvelope(env *Envelope, limit int) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(data) > limit {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}
	return data, nil
}
