package exports_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorPopelyaev/polkadot/executor"
	"github.com/EgorPopelyaev/polkadot/exports"
	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/transport"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

type dispatched struct {
	origin location.Location
	call   []byte
}

type recordingDispatcher struct {
	calls []dispatched
}

func (d *recordingDispatcher) Dispatch(_ context.Context, origin location.Location, call []byte) error {
	d.calls = append(d.calls, dispatched{origin, call})
	return nil
}

// remoteChain is Kusama Asset Hub: it executes everything the hub delivers.
func remoteChain(t *testing.T, hub *transport.Hub) *recordingDispatcher {
	t.Helper()
	dispatcher := &recordingDispatcher{}
	cfg := executor.DefaultConfig()
	cfg.UniversalLocation = location.Junctions{location.GlobalConsensus(location.Kusama), location.Parachain(1000)}
	cfg.Dispatcher = dispatcher
	remote := executor.New(cfg, nil)

	hub.Register(location.Kusama, transport.HandlerFunc(func(ctx context.Context, _ location.NetworkID, _ uint32, dest location.Junctions, msg xcm.Xcm) error {
		require.Equal(t, location.Junctions{location.Parachain(1000)}, dest)
		pre, err := remote.Prepare(msg)
		if err != nil {
			return err
		}
		outcome := remote.Execute(ctx, location.Parent(), pre, pre.WeightOf())
		if !outcome.IsComplete() {
			return outcome.Err
		}
		return nil
	}))
	return dispatcher
}

var (
	polkadotAssetHub = exports.StaticAncestry{location.GlobalConsensus(location.Polkadot), location.Parachain(1000)}
	kusamaAssetHub   = location.MustParse("../../GlobalConsensus(Kusama)/Parachain(1000)")
	senderOnKusama   = location.MustParse("../../GlobalConsensus(Polkadot)/Parachain(1000)")
)

func TestEndToEndStrategies(t *testing.T) {
	call := []byte("transfer")

	tests := []struct {
		name   string
		router func(hub *transport.Hub) xcm.SendXcm
	}{
		{"local unpaid", func(hub *transport.Hub) xcm.SendXcm {
			return &exports.LocalUnpaidExporter{Exporter: hub, Ancestry: polkadotAssetHub}
		}},
		{"local executing", func(hub *transport.Hub) xcm.SendXcm {
			cfg := executor.DefaultConfig()
			cfg.UniversalLocation = location.Junctions(polkadotAssetHub)
			cfg.Exporter = hub
			return &exports.LocalUnpaidExecutingExporter{Executor: executor.New(cfg, nil), Ancestry: polkadotAssetHub}
		}},
		{"remote via bridge hub", func(hub *transport.Hub) xcm.SendXcm {
			// The bridge hub executes the ExportMessage it is sent.
			cfg := executor.DefaultConfig()
			cfg.UniversalLocation = location.Junctions{location.GlobalConsensus(location.Polkadot), location.Parachain(1002)}
			cfg.Exporter = hub
			bridgeHub := executor.New(cfg, nil)

			bridge := location.New(1, location.Parachain(1002))
			toBridge := xcm.SendXcmFunc(func(ctx context.Context, dest location.Location, msg xcm.Xcm) error {
				if !dest.Equal(bridge) {
					return xcm.CannotReachDestination(dest, msg)
				}
				pre, err := bridgeHub.Prepare(msg)
				if err != nil {
					return err
				}
				if outcome := bridgeHub.Execute(ctx, location.New(1, location.Parachain(1000)), pre, pre.WeightOf()); !outcome.IsComplete() {
					return outcome.Err
				}
				return nil
			})
			return &exports.UnpaidRemoteExporter{
				Bridges:  exports.NewNetworkExportTable(exports.NetworkExportEntry{Network: location.Kusama, Bridge: bridge}),
				Router:   toBridge,
				Ancestry: polkadotAssetHub,
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := transport.NewHub()
			dispatcher := remoteChain(t, hub)

			err := tt.router(hub).SendXcm(context.Background(), kusamaAssetHub, xcm.Xcm{xcm.Transact{Call: call}})
			require.NoError(t, err)

			require.Len(t, dispatcher.calls, 1)
			assert.Equal(t, senderOnKusama, dispatcher.calls[0].origin)
			assert.Equal(t, call, dispatcher.calls[0].call)
		})
	}
}

func TestEndToEndUnwrapRecoversBody(t *testing.T) {
	hub := transport.NewHub()
	var delivered xcm.Xcm
	hub.Register(location.Kusama, transport.HandlerFunc(func(_ context.Context, _ location.NetworkID, _ uint32, _ location.Junctions, msg xcm.Xcm) error {
		delivered = msg
		return nil
	}))

	body := xcm.Xcm{xcm.ClearOrigin{}, xcm.Trap{Code: 9}}
	exporter := &exports.LocalUnpaidExporter{Exporter: hub, Ancestry: polkadotAssetHub}
	require.NoError(t, exporter.SendXcm(context.Background(), kusamaAssetHub, body))

	network, interior, got, err := exports.Unwrap(delivered)
	require.NoError(t, err)
	assert.Equal(t, location.Polkadot, network)
	assert.Equal(t, location.Junctions{location.Parachain(1000)}, interior)
	assert.Equal(t, body, got)
}
