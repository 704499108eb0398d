package xcm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorPopelyaev/polkadot/location"
)

func sampleMessage() Xcm {
	var topic [32]byte
	topic[31] = 7
	return Xcm{
		ExportMessage{
			Network:     location.Kusama,
			Destination: location.Junctions{location.Parachain(1000)},
			Message: Xcm{
				UniversalOrigin{Junction: location.GlobalConsensus(location.Polkadot)},
				DescendOrigin{Interior: location.Junctions{location.Parachain(2000)}},
				Transact{Call: []byte{0xde, 0xad}},
			},
		},
		ClearOrigin{},
		Trap{Code: 3},
		SetTopic{Topic: topic},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	msg := sampleMessage()

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Xcm
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg, decoded)
	assert.Equal(t, msg.Hash(), decoded.Hash())
}

func TestUnmarshalUnknownInstruction(t *testing.T) {
	var msg Xcm
	err := json.Unmarshal([]byte(`[{"op":"BuyExecution"}]`), &msg)
	assert.Error(t, err)
}

func TestHashDistinguishesMessages(t *testing.T) {
	a := Xcm{Trap{Code: 1}}
	b := Xcm{Trap{Code: 2}}
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash().String(), 64)
}

func TestCloneIsDeep(t *testing.T) {
	msg := sampleMessage()
	clone := msg.Clone()

	export := clone[0].(ExportMessage)
	export.Message[2].(Transact).Call[0] = 0x00
	export.Destination[0] = location.Parachain(1)

	assert.Equal(t, sampleMessage(), msg)
}

func TestCount(t *testing.T) {
	assert.Equal(t, 7, sampleMessage().Count())
	assert.Equal(t, 0, Xcm{}.Count())
}

func TestCannotReachDestinationIs(t *testing.T) {
	dest := location.New(1, location.Parachain(1000))
	msg := Xcm{ClearOrigin{}}

	var err error = CannotReachDestination(dest, msg)
	assert.True(t, errors.Is(err, ErrCannotReachDestination))

	var target *CannotReachDestinationError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, dest, target.Destination)
	assert.Equal(t, msg, target.Message)
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Network: location.Kusama, Err: cause}
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, cause))
}

func TestRoutersFallThrough(t *testing.T) {
	dest := location.New(1, location.GlobalConsensus(location.Kusama))
	msg := Xcm{Trap{Code: 9}}

	var tried []string
	unreachable := SendXcmFunc(func(_ context.Context, d location.Location, m Xcm) error {
		tried = append(tried, "first")
		return CannotReachDestination(d, m)
	})
	accepting := SendXcmFunc(func(_ context.Context, d location.Location, m Xcm) error {
		tried = append(tried, "second")
		assert.Equal(t, dest, d)
		assert.Equal(t, msg, m)
		return nil
	})
	never := SendXcmFunc(func(context.Context, location.Location, Xcm) error {
		tried = append(tried, "third")
		return nil
	})

	err := Routers{unreachable, accepting, never}.SendXcm(context.Background(), dest, msg)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, tried)
}

func TestRoutersStopOnHardError(t *testing.T) {
	hard := errors.New("boom")
	failing := SendXcmFunc(func(context.Context, location.Location, Xcm) error { return hard })
	called := false
	next := SendXcmFunc(func(context.Context, location.Location, Xcm) error {
		called = true
		return nil
	})

	err := Routers{failing, next}.SendXcm(context.Background(), location.Here(), Xcm{})
	assert.Same(t, hard, err)
	assert.False(t, called)
}

func TestRoutersEmpty(t *testing.T) {
	dest := location.Parent()
	err := Routers{}.SendXcm(context.Background(), dest, Xcm{ClearOrigin{}})
	assert.True(t, errors.Is(err, ErrCannotReachDestination))
}

func TestOutcome(t *testing.T) {
	assert.True(t, Complete(10).IsComplete())
	assert.False(t, Incomplete(5, ErrTrap).IsComplete())
	assert.Equal(t, "error(0): bad origin", Error(ErrBadOrigin).String())
}
