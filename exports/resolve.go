// Package exports routes messages out of the local consensus system.
//
// EnsureIsRemote decides whether a destination lies in another network and
// splits both ends into a network plus an interior path. The exporters in
// this package then wrap the message so the remote side can attribute it to
// its sender, and hand it to a transport, a local executor or a bridge.
package exports

import (
	"fmt"

	"github.com/EgorPopelyaev/polkadot/location"
)

// Reason explains why a destination was not routed remotely.
type Reason uint8

const (
	// ReasonNoConsensusAnchor means the local universal location is not
	// anchored in a global consensus system
	ReasonNoConsensusAnchor Reason = iota + 1

	// ReasonUnresolvable means the destination could not be placed in
	// universal coordinates
	ReasonUnresolvable

	// ReasonLocal means the destination is inside the local network
	ReasonLocal
)

// String returns the string representation of Reason.
func (r Reason) String() string {
	switch r {
	case ReasonNoConsensusAnchor:
		return "no consensus anchor"
	case ReasonUnresolvable:
		return "unresolvable"
	case ReasonLocal:
		return "local"
	default:
		return "unknown"
	}
}

// NotRemoteError reports a destination that must not be exported. The
// destination is returned exactly as given.
type NotRemoteError struct {
	Destination location.Location
	Reason      Reason
}

func (e *NotRemoteError) Error() string {
	return fmt.Sprintf("destination %s is not remote: %s", e.Destination, e.Reason)
}

// RemoteRoute is the result of a successful EnsureIsRemote.
type RemoteRoute struct {
	RemoteNetwork  location.NetworkID
	RemoteLocation location.Junctions
	LocalNetwork   location.NetworkID
	LocalLocation  location.Junctions
}

// EnsureIsRemote places dest, given relative to universalLocal, in universal
// coordinates and checks whether it is anchored in a different network.
//
// Remoteness depends only on the network anchors: a destination that climbs
// above the local network and comes back down into it is still local.
func EnsureIsRemote(universalLocal location.Junctions, dest location.Location) (RemoteRoute, error) {
	notRemote := func(reason Reason) (RemoteRoute, error) {
		return RemoteRoute{}, &NotRemoteError{Destination: dest.Clone(), Reason: reason}
	}

	localLocation, anchor, ok := universalLocal.SplitFirst()
	if !ok {
		return notRemote(ReasonNoConsensusAnchor)
	}
	localNetwork, ok := anchor.IsGlobalConsensus()
	if !ok {
		return notRemote(ReasonNoConsensusAnchor)
	}

	universalDest, err := universalLocal.AsLocation().AppendedWith(dest)
	if err != nil {
		return notRemote(ReasonUnresolvable)
	}
	interior, err := universalDest.AsInterior()
	if err != nil {
		return notRemote(ReasonUnresolvable)
	}

	remoteLocation, remoteAnchor, ok := interior.SplitFirst()
	if !ok {
		return notRemote(ReasonLocal)
	}
	remoteNetwork, ok := remoteAnchor.IsGlobalConsensus()
	if !ok || remoteNetwork == localNetwork {
		return notRemote(ReasonLocal)
	}

	return RemoteRoute{
		RemoteNetwork:  remoteNetwork,
		RemoteLocation: remoteLocation,
		LocalNetwork:   localNetwork,
		LocalLocation:  localLocation,
	}, nil
}
