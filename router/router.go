// Package router assembles the configured export strategies into a single
// xcm.SendXcm and keeps their ancestry and export table in step with the
// configuration.
package router

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/EgorPopelyaev/polkadot/config"
	"github.com/EgorPopelyaev/polkadot/exports"
	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

// ErrMissingDependency is returned when a configured strategy has nothing
// to deliver through.
var ErrMissingDependency = errors.New("missing strategy dependency")

// Deps are the capabilities the strategies deliver through. Only those
// needed by the configured strategies must be set.
type Deps struct {
	// Exporter carries messages for local_unpaid
	Exporter xcm.ExportXcm

	// Executor runs export messages for local_executing
	Executor xcm.ExecuteXcm

	// Bridges sends to bridge locations for remote
	Bridges xcm.SendXcm
}

type snapshot struct {
	universal location.Junctions
	table     []exports.NetworkExportEntry
}

// Router implements xcm.SendXcm by trying each configured strategy in
// order. It also serves as their Ancestry and export table source, so a
// Reload takes effect on the next message.
type Router struct {
	current    atomic.Pointer[snapshot]
	strategies []string
	chain      xcm.Routers
	logger     *zap.Logger
}

// New builds a router for cfg.
func New(cfg *config.Config, deps Deps, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		strategies: append([]string(nil), cfg.Router.Strategies...),
		logger:     logger,
	}
	if err := r.Reload(cfg); err != nil {
		return nil, err
	}

	for _, name := range cfg.Router.Strategies {
		strategy, err := r.build(name, cfg, deps)
		if err != nil {
			return nil, err
		}
		r.chain = append(r.chain, strategy)
	}

	logger.Info("router ready",
		zap.Stringer("universal_location", r.UniversalLocation()),
		zap.Strings("strategies", r.strategies),
		zap.Int("export_entries", len(r.ExportTable())))
	return r, nil
}

func (r *Router) build(name string, cfg *config.Config, deps Deps) (xcm.SendXcm, error) {
	log := r.logger.With(zap.String("strategy", name))

	switch name {
	case config.StrategyLocalUnpaid:
		if deps.Exporter == nil {
			return nil, fmt.Errorf("%w: %s needs an exporter", ErrMissingDependency, name)
		}
		return &exports.LocalUnpaidExporter{Exporter: deps.Exporter, Ancestry: r, Logger: log}, nil

	case config.StrategyLocalExecuting:
		if deps.Executor == nil {
			return nil, fmt.Errorf("%w: %s needs an executor", ErrMissingDependency, name)
		}
		return &exports.LocalUnpaidExecutingExporter{
			Executor:    deps.Executor,
			Ancestry:    r,
			WeightLimit: xcm.Weight(cfg.Executor.WeightLimit),
			Logger:      log,
		}, nil

	case config.StrategyRemote:
		if deps.Bridges == nil {
			return nil, fmt.Errorf("%w: %s needs a bridge router", ErrMissingDependency, name)
		}
		return &exports.UnpaidRemoteExporter{
			Bridges:  exports.NetworkExportTable{Source: r},
			Router:   deps.Bridges,
			Ancestry: r,
			Logger:   log,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStrategy, name)
	}
}

// SendXcm implements xcm.SendXcm.
func (r *Router) SendXcm(ctx context.Context, dest location.Location, msg xcm.Xcm) error {
	return r.chain.SendXcm(ctx, dest, msg)
}

// UniversalLocation implements exports.Ancestry.
func (r *Router) UniversalLocation() location.Junctions {
	return r.current.Load().universal.Clone()
}

// ExportTable implements exports.ExportTableSource.
func (r *Router) ExportTable() []exports.NetworkExportEntry {
	return r.current.Load().table
}

// Reload swaps in the universal location and export table of cfg. The
// strategy list is fixed at construction; a changed list is logged and
// ignored.
func (r *Router) Reload(cfg *config.Config) error {
	universal, err := cfg.Router.Universal()
	if err != nil {
		return err
	}
	table, err := cfg.Router.Exports()
	if err != nil {
		return err
	}

	previous := r.current.Swap(&snapshot{universal: universal, table: table})
	if previous == nil {
		return nil
	}

	if !slices.Equal(r.strategies, cfg.Router.Strategies) {
		r.logger.Warn("strategy changes take effect after restart",
			zap.Strings("running", r.strategies),
			zap.Strings("configured", cfg.Router.Strategies))
	}
	if !previous.universal.Equal(universal) {
		r.logger.Info("universal location changed",
			zap.Stringer("from", previous.universal),
			zap.Stringer("to", universal))
	}
	r.logger.Info("routing configuration reloaded", zap.Int("export_entries", len(table)))
	return nil
}

// OnConfigChange adapts Reload to a config.Watcher callback.
func (r *Router) OnConfigChange(_, newConfig *config.Config) {
	if err := r.Reload(newConfig); err != nil {
		r.logger.Warn("routing configuration rejected", zap.Error(err))
	}
}
