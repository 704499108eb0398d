package exports

import (
	"errors"
	"fmt"

	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

// ErrNotWrapped is returned by Unwrap for messages without an origin prefix.
var ErrNotWrapped = errors.New("message has no universal origin prefix")

// Wrap prefixes body with the instructions that let the remote side
// reconstruct the sender: UniversalOrigin(GlobalConsensus(localNetwork))
// followed by DescendOrigin(localLocation). body is not modified.
func Wrap(localNetwork location.NetworkID, localLocation location.Junctions, body xcm.Xcm) xcm.Xcm {
	prefix := xcm.Xcm{
		xcm.UniversalOrigin{Junction: location.GlobalConsensus(localNetwork)},
		xcm.DescendOrigin{Interior: localLocation.Clone()},
	}
	return prefix.Concat(body)
}

// Unwrap is the inverse of Wrap.
func Unwrap(msg xcm.Xcm) (location.NetworkID, location.Junctions, xcm.Xcm, error) {
	if len(msg) < 2 {
		return "", nil, nil, ErrNotWrapped
	}
	origin, ok := msg[0].(xcm.UniversalOrigin)
	if !ok {
		return "", nil, nil, ErrNotWrapped
	}
	network, ok := origin.Junction.IsGlobalConsensus()
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: origin %s is not a network", ErrNotWrapped, origin.Junction)
	}
	descend, ok := msg[1].(xcm.DescendOrigin)
	if !ok {
		return "", nil, nil, ErrNotWrapped
	}
	return network, descend.Interior.Clone(), msg[2:].Clone(), nil
}

// ExportMessageFor wraps body for route and puts it inside a single
// ExportMessage instruction addressed to the remote network.
func ExportMessageFor(route RemoteRoute, body xcm.Xcm) xcm.Xcm {
	return xcm.Xcm{
		xcm.ExportMessage{
			Network:     route.RemoteNetwork,
			Destination: route.RemoteLocation.Clone(),
			Message:     Wrap(route.LocalNetwork, route.LocalLocation, body),
		},
	}
}
