package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/EgorPopelyaev/polkadot/config"
	"github.com/EgorPopelyaev/polkadot/executor"
	"github.com/EgorPopelyaev/polkadot/exports"
	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/transport"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

type received struct {
	network location.NetworkID
	dest    location.Junctions
	msg     xcm.Xcm
}

func hubFor(network location.NetworkID) (*transport.Hub, *[]received) {
	var got []received
	hub := transport.NewHub()
	hub.Register(network, transport.HandlerFunc(func(_ context.Context, n location.NetworkID, _ uint32, dest location.Junctions, msg xcm.Xcm) error {
		got = append(got, received{n, dest, msg})
		return nil
	}))
	return hub, &got
}

type bridgeCall struct {
	dest location.Location
	msg  xcm.Xcm
}

type recordingBridges struct {
	calls []bridgeCall
}

func (b *recordingBridges) SendXcm(_ context.Context, dest location.Location, msg xcm.Xcm) error {
	b.calls = append(b.calls, bridgeCall{dest, msg})
	return nil
}

func testConfig(strategies ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Router.UniversalLocation = "GlobalConsensus(Polkadot)/Parachain(1000)"
	cfg.Router.Strategies = strategies
	return cfg
}

var (
	kusamaAssetHub = location.MustParse("../../GlobalConsensus(Kusama)/Parachain(1000)")
	body           = xcm.Xcm{xcm.Transact{Call: []byte("remark")}}
	wrappedBody    = exports.Wrap(location.Polkadot, location.Junctions{location.Parachain(1000)}, body)
)

func TestLocalUnpaidThroughHub(t *testing.T) {
	hub, got := hubFor(location.Kusama)
	r, err := New(testConfig(config.StrategyLocalUnpaid), Deps{Exporter: hub}, nil)
	require.NoError(t, err)

	require.NoError(t, r.SendXcm(context.Background(), kusamaAssetHub, body))
	require.Len(t, *got, 1)
	assert.Equal(t, received{location.Kusama, location.Junctions{location.Parachain(1000)}, wrappedBody}, (*got)[0])
}

func TestLocalExecutingThroughExecutor(t *testing.T) {
	hub, got := hubFor(location.Kusama)
	cfg := testConfig(config.StrategyLocalExecuting)
	universal, err := cfg.Router.Universal()
	require.NoError(t, err)

	execCfg := executor.DefaultConfig()
	execCfg.UniversalLocation = universal
	execCfg.Exporter = hub
	r, err := New(cfg, Deps{Executor: executor.New(execCfg, nil)}, nil)
	require.NoError(t, err)

	require.NoError(t, r.SendXcm(context.Background(), kusamaAssetHub, body))
	require.Len(t, *got, 1)
	assert.Equal(t, wrappedBody, (*got)[0].msg)
}

func TestRemoteUsesExportTable(t *testing.T) {
	cfg := testConfig(config.StrategyRemote)
	cfg.Router.ExportTable = []config.ExportEntry{{Network: "Kusama", Bridge: "../Parachain(1002)"}}
	bridges := &recordingBridges{}

	r, err := New(cfg, Deps{Bridges: bridges}, nil)
	require.NoError(t, err)

	require.NoError(t, r.SendXcm(context.Background(), kusamaAssetHub, body))
	require.Len(t, bridges.calls, 1)
	assert.Equal(t, location.New(1, location.Parachain(1002)), bridges.calls[0].dest)
	assert.Equal(t, xcm.Xcm{xcm.ExportMessage{
		Network:     location.Kusama,
		Destination: location.Junctions{location.Parachain(1000)},
		Message:     wrappedBody,
	}}, bridges.calls[0].msg)
}

func TestStrategiesFallThrough(t *testing.T) {
	hub, got := hubFor(location.Kusama)
	bridges := &recordingBridges{}

	// No export table entry: remote cannot reach Kusama, local_unpaid can.
	r, err := New(testConfig(config.StrategyRemote, config.StrategyLocalUnpaid), Deps{Exporter: hub, Bridges: bridges}, nil)
	require.NoError(t, err)

	require.NoError(t, r.SendXcm(context.Background(), kusamaAssetHub, body))
	assert.Empty(t, bridges.calls)
	assert.Len(t, *got, 1)
}

func TestLocalDestinationIsUnreachable(t *testing.T) {
	hub, _ := hubFor(location.Kusama)
	r, err := New(testConfig(config.StrategyLocalUnpaid), Deps{Exporter: hub}, nil)
	require.NoError(t, err)

	sibling := location.MustParse("../Parachain(2000)")
	err = r.SendXcm(context.Background(), sibling, body)

	var unreachable *xcm.CannotReachDestinationError
	require.True(t, errors.As(err, &unreachable))
	assert.Equal(t, sibling, unreachable.Destination)
	assert.Equal(t, body, unreachable.Message)
}

func TestTransportErrorStopsChain(t *testing.T) {
	bridges := &recordingBridges{}
	cfg := testConfig(config.StrategyLocalUnpaid, config.StrategyRemote)
	cfg.Router.ExportTable = []config.ExportEntry{{Network: "Kusama", Bridge: "../Parachain(1002)"}}

	// The hub has no route to Kusama.
	r, err := New(cfg, Deps{Exporter: transport.NewHub(), Bridges: bridges}, nil)
	require.NoError(t, err)

	err = r.SendXcm(context.Background(), kusamaAssetHub, body)
	assert.True(t, errors.Is(err, xcm.ErrTransport))
	assert.False(t, errors.Is(err, xcm.ErrCannotReachDestination))
	assert.Empty(t, bridges.calls)
}

func TestNewRequiresDependencies(t *testing.T) {
	for _, name := range []string{config.StrategyLocalUnpaid, config.StrategyLocalExecuting, config.StrategyRemote} {
		_, err := New(testConfig(name), Deps{}, nil)
		assert.True(t, errors.Is(err, ErrMissingDependency), name)
	}

	_, err := New(testConfig("paid"), Deps{}, nil)
	assert.True(t, errors.Is(err, config.ErrInvalidStrategy))

	bad := testConfig(config.StrategyLocalUnpaid)
	bad.Router.UniversalLocation = "Parachain(1000)"
	_, err = New(bad, Deps{Exporter: transport.NewHub()}, nil)
	assert.True(t, errors.Is(err, config.ErrInvalidUniversalLocation))
}

func TestReload(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	hub, got := hubFor(location.Kusama)
	r, err := New(testConfig(config.StrategyLocalUnpaid), Deps{Exporter: hub}, zap.New(core))
	require.NoError(t, err)

	next := testConfig(config.StrategyLocalUnpaid, config.StrategyRemote)
	next.Router.UniversalLocation = "GlobalConsensus(Polkadot)/Parachain(2000)"
	next.Router.ExportTable = []config.ExportEntry{{Network: "Kusama", Bridge: "../Parachain(1002)"}}
	r.OnConfigChange(nil, next)

	assert.Equal(t, location.Junctions{location.GlobalConsensus(location.Polkadot), location.Parachain(2000)}, r.UniversalLocation())
	assert.Len(t, r.ExportTable(), 1)
	assert.Equal(t, 1, logs.FilterMessage("strategy changes take effect after restart").Len())
	assert.Equal(t, 1, logs.FilterMessage("universal location changed").Len())

	require.NoError(t, r.SendXcm(context.Background(), kusamaAssetHub, body))
	require.Len(t, *got, 1)
	assert.Equal(t, exports.Wrap(location.Polkadot, location.Junctions{location.Parachain(2000)}, body), (*got)[0].msg)

	// An invalid configuration leaves the running one in place.
	broken := testConfig(config.StrategyLocalUnpaid)
	broken.Router.UniversalLocation = "Parachain(1)"
	r.OnConfigChange(nil, broken)
	assert.Equal(t, location.Junctions{location.GlobalConsensus(location.Polkadot), location.Parachain(2000)}, r.UniversalLocation())
	assert.Equal(t, 1, logs.FilterMessage("routing configuration rejected").Len())
}
