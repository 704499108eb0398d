package exports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorPopelyaev/polkadot/location"
)

var (
	polkadot      = location.GlobalConsensus(location.Polkadot)
	kusama        = location.GlobalConsensus(location.Kusama)
	parachain1000 = location.Parachain(1000)
)

func requireNotRemote(t *testing.T, err error, dest location.Location, reason Reason) {
	t.Helper()
	var notRemote *NotRemoteError
	require.True(t, errors.As(err, &notRemote), "expected NotRemoteError, got %v", err)
	assert.Equal(t, dest, notRemote.Destination)
	assert.Equal(t, reason, notRemote.Reason)
}

func TestEnsureIsRemote(t *testing.T) {
	// A Kusama parachain is remote from the Polkadot relay.
	route, err := EnsureIsRemote(location.Junctions{polkadot}, location.New(1, kusama, parachain1000))
	require.NoError(t, err)
	assert.Equal(t, RemoteRoute{
		RemoteNetwork:  location.Kusama,
		RemoteLocation: location.Junctions{parachain1000},
		LocalNetwork:   location.Polkadot,
		LocalLocation:  location.Junctions{},
	}, route)

	// The Polkadot relay is remote from a Kusama parachain.
	route, err = EnsureIsRemote(location.Junctions{kusama, parachain1000}, location.New(2, polkadot))
	require.NoError(t, err)
	assert.Equal(t, RemoteRoute{
		RemoteNetwork:  location.Polkadot,
		RemoteLocation: location.Junctions{},
		LocalNetwork:   location.Kusama,
		LocalLocation:  location.Junctions{parachain1000},
	}, route)
}

func TestEnsureIsRemoteOwnParachainIsLocal(t *testing.T) {
	dest := location.New(0, parachain1000)
	_, err := EnsureIsRemote(location.Junctions{polkadot}, dest)
	requireNotRemote(t, err, dest, ReasonLocal)
}

func TestEnsureIsRemoteSameNetworkViaParent(t *testing.T) {
	dest := location.New(1, polkadot, parachain1000)
	_, err := EnsureIsRemote(location.Junctions{polkadot}, dest)
	requireNotRemote(t, err, dest, ReasonLocal)
}

func TestEnsureIsRemoteNoAncestor(t *testing.T) {
	dest := location.New(1, polkadot, parachain1000)
	_, err := EnsureIsRemote(location.Junctions{}, dest)
	requireNotRemote(t, err, dest, ReasonNoConsensusAnchor)

	// an ancestry not anchored in a network cannot decide either
	_, err = EnsureIsRemote(location.Junctions{parachain1000}, dest)
	requireNotRemote(t, err, dest, ReasonNoConsensusAnchor)
}

func TestEnsureIsRemoteAboveUniverse(t *testing.T) {
	dest := location.New(3, kusama)
	_, err := EnsureIsRemote(location.Junctions{polkadot, parachain1000}, dest)
	requireNotRemote(t, err, dest, ReasonUnresolvable)
}

func TestEnsureIsRemoteDestinationIsSelf(t *testing.T) {
	_, err := EnsureIsRemote(location.Junctions{polkadot, parachain1000}, location.Here())
	requireNotRemote(t, err, location.Here(), ReasonLocal)

	// the universe root itself has no anchor
	_, err = EnsureIsRemote(location.Junctions{polkadot}, location.Parent())
	requireNotRemote(t, err, location.Parent(), ReasonLocal)
}

func TestEnsureIsRemoteSameNetworkAnyDepth(t *testing.T) {
	universal := location.Junctions{polkadot, parachain1000, location.PalletInstance(50)}
	for _, dest := range []location.Location{
		location.New(0, location.GeneralIndex(1)),
		location.New(1),
		location.New(2, location.Parachain(2000)),
		location.New(3, polkadot),
		location.New(3, polkadot, location.Parachain(2000), location.PalletInstance(1)),
	} {
		_, err := EnsureIsRemote(universal, dest)
		requireNotRemote(t, err, dest, ReasonLocal)
	}
}

func TestEnsureIsRemoteNetworksDiffer(t *testing.T) {
	universal := location.Junctions{kusama, location.Parachain(2000)}
	for _, network := range []location.NetworkID{location.Polkadot, location.Westend, location.Ethereum} {
		route, err := EnsureIsRemote(universal, location.New(2, location.GlobalConsensus(network), parachain1000))
		require.NoError(t, err)
		assert.NotEqual(t, route.LocalNetwork, route.RemoteNetwork)
		assert.Equal(t, network, route.RemoteNetwork)
		assert.Equal(t, location.Junctions{parachain1000}, route.RemoteLocation)
		assert.Equal(t, location.Junctions{location.Parachain(2000)}, route.LocalLocation)
	}
}

func TestEnsureIsRemoteLeavesInputsAlone(t *testing.T) {
	universal := location.Junctions{kusama, parachain1000}
	dest := location.New(2, polkadot, location.Parachain(2000))

	route, err := EnsureIsRemote(universal, dest)
	require.NoError(t, err)
	route.RemoteLocation[0] = location.Parachain(1)
	route.LocalLocation[0] = location.Parachain(1)

	assert.Equal(t, location.Junctions{kusama, parachain1000}, universal)
	assert.Equal(t, location.New(2, polkadot, location.Parachain(2000)), dest)
}
