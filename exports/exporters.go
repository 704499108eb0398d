package exports

import (
	"context"

	"go.uber.org/zap"

	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

// devolve resolves dest against the ancestry. On failure it returns the
// CannotReachDestination error carrying the original inputs.
func devolve(log *zap.Logger, ancestry Ancestry, dest location.Location, msg xcm.Xcm) (RemoteRoute, error) {
	route, err := EnsureIsRemote(ancestry.UniversalLocation(), dest)
	if err != nil {
		log.Debug("destination not routed remotely",
			zap.Stringer("dest", dest),
			zap.Error(err))
		return RemoteRoute{}, xcm.CannotReachDestination(dest, msg)
	}
	return route, nil
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// LocalUnpaidExporter hands remote messages straight to an ExportXcm
// transport after prefixing them with the sender's origin.
//
// No bridge fees are charged, so it must only serve senders that cannot
// abuse it.
type LocalUnpaidExporter struct {
	Exporter xcm.ExportXcm
	Ancestry Ancestry
	Logger   *zap.Logger
}

// SendXcm implements xcm.SendXcm.
func (e *LocalUnpaidExporter) SendXcm(ctx context.Context, dest location.Location, msg xcm.Xcm) error {
	log := orNop(e.Logger)

	route, err := devolve(log, e.Ancestry, dest, msg)
	if err != nil {
		return err
	}

	message := Wrap(route.LocalNetwork, route.LocalLocation, msg)
	if ce := log.Check(zap.DebugLevel, "exporting"); ce != nil {
		ce.Write(
			zap.Stringer("network", route.RemoteNetwork),
			zap.Stringer("dest", route.RemoteLocation),
			zap.Stringer("id", message.Hash()))
	}

	return e.Exporter.ExportXcm(ctx, route.RemoteNetwork, 0, route.RemoteLocation, message)
}

// LocalUnpaidExecutingExporter builds an ExportMessage instruction and runs it
// through the local executor at origin Here, leaving the bridging side
// effects to the executor's export handler.
type LocalUnpaidExecutingExporter struct {
	Executor xcm.ExecuteXcm
	Ancestry Ancestry

	// WeightLimit rejects prepared messages heavier than this; zero means
	// no limit.
	WeightLimit xcm.Weight

	Logger *zap.Logger
}

// SendXcm implements xcm.SendXcm.
func (e *LocalUnpaidExecutingExporter) SendXcm(ctx context.Context, dest location.Location, msg xcm.Xcm) error {
	log := orNop(e.Logger)

	route, err := devolve(log, e.Ancestry, dest, msg)
	if err != nil {
		return err
	}
	unreachable := xcm.CannotReachDestination(dest, msg)

	pre, err := e.Executor.Prepare(ExportMessageFor(route, msg))
	if err != nil {
		log.Debug("export message rejected by executor", zap.Error(err))
		return unreachable
	}

	weight := pre.WeightOf()
	if e.WeightLimit > 0 && weight > e.WeightLimit {
		log.Debug("export message over weight limit",
			zap.Uint64("weight", uint64(weight)),
			zap.Uint64("limit", uint64(e.WeightLimit)))
		return unreachable
	}

	outcome := e.Executor.Execute(ctx, location.Here(), pre, weight)
	if !outcome.IsComplete() {
		log.Debug("export message not executed",
			zap.Stringer("network", route.RemoteNetwork),
			zap.Stringer("outcome", outcome))
		return unreachable
	}
	return nil
}

// UnpaidRemoteExporter wraps the message in an ExportMessage instruction and
// sends it to the bridge listed for the remote network.
//
// Nothing is paid to the bridge, so it must be configured to let our origin
// execute unpaid.
type UnpaidRemoteExporter struct {
	Bridges  ExporterFor
	Router   xcm.SendXcm
	Ancestry Ancestry
	Logger   *zap.Logger
}

// SendXcm implements xcm.SendXcm.
func (e *UnpaidRemoteExporter) SendXcm(ctx context.Context, dest location.Location, msg xcm.Xcm) error {
	log := orNop(e.Logger)

	route, err := devolve(log, e.Ancestry, dest, msg)
	if err != nil {
		return err
	}

	bridge, ok := e.Bridges.ExporterFor(route.RemoteNetwork, route.RemoteLocation)
	if !ok {
		log.Debug("no bridge for network", zap.Stringer("network", route.RemoteNetwork))
		return xcm.CannotReachDestination(dest, msg)
	}

	message := ExportMessageFor(route, msg)
	if ce := log.Check(zap.DebugLevel, "forwarding to bridge"); ce != nil {
		ce.Write(
			zap.Stringer("network", route.RemoteNetwork),
			zap.Stringer("bridge", bridge),
			zap.Stringer("id", message.Hash()))
	}

	return e.Router.SendXcm(ctx, bridge, message)
}
