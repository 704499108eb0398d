package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/EgorPopelyaev/polkadot/config"
	"github.com/EgorPopelyaev/polkadot/executor"
	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/logging"
	"github.com/EgorPopelyaev/polkadot/router"
	"github.com/EgorPopelyaev/polkadot/transport"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

// node wires the configured transport, executor and router together
type node struct {
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	tcp      *transport.TCP
	executor *executor.Executor
	router   *router.Router
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewLoader().AutoLoad()
	}
	return config.NewLoader().Load(path)
}

func newNode(cfg *config.Config) (*node, error) {
	logger, closeLog, err := logging.New(cfg.LogSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	logger = logger.With(
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", string(cfg.App.Environment)))

	n, err := buildNode(cfg, logger)
	if err != nil {
		logger.Sync()
		closeLog()
		return nil, err
	}
	n.closeLog = closeLog
	return n, nil
}

func buildNode(cfg *config.Config, logger *zap.Logger) (*node, error) {
	endpoints, err := cfg.Transport.NetworkEndpoints()
	if err != nil {
		return nil, err
	}
	peers, err := cfg.Transport.PeerAddresses()
	if err != nil {
		return nil, err
	}
	tcp := transport.NewTCP(transport.TCPConfig{
		Endpoints:      endpoints,
		Peers:          peers,
		DialTimeout:    cfg.Transport.Timeouts.Dial,
		WriteTimeout:   cfg.Transport.Timeouts.Write,
		MaxMessageSize: cfg.Transport.MaxMessageSize,
	}, logger.Named("transport"))

	var exporter xcm.ExportXcm = tcp
	if cb := cfg.Transport.CircuitBreaker; cb.Enabled {
		exporter = transport.NewBreaker(tcp, transport.BreakerSettings{
			FailureThreshold: uint32(cb.FailureThreshold),
			SuccessThreshold: uint32(cb.SuccessThreshold),
			Timeout:          cb.Timeout,
		}, logger.Named("breaker"))
	}

	universal, err := cfg.Router.Universal()
	if err != nil {
		return nil, err
	}
	exec := executor.New(executor.Config{
		UniversalLocation:    universal,
		WeightPerInstruction: xcm.Weight(cfg.Executor.WeightPerInstruction),
		MaxInstructions:      cfg.Executor.MaxInstructions,
		Exporter:             exporter,
		Dispatcher:           &logDispatcher{logger: logger.Named("dispatch")},
	}, logger.Named("executor"))

	rtr, err := router.New(cfg, router.Deps{
		Exporter: exporter,
		Executor: exec,
		Bridges:  tcp,
	}, logger.Named("router"))
	if err != nil {
		return nil, err
	}

	return &node{cfg: cfg, logger: logger, tcp: tcp, executor: exec, router: rtr}, nil
}

func (n *node) Close() {
	n.tcp.Close()
	n.logger.Sync()
	n.closeLog()
}

// logDispatcher records Transact calls; this node runs no runtime to
// dispatch them into.
type logDispatcher struct {
	logger *zap.Logger
}

func (d *logDispatcher) Dispatch(_ context.Context, origin location.Location, call []byte) error {
	d.logger.Info("transact",
		zap.Stringer("origin", origin),
		zap.String("call", hex.EncodeToString(call)))
	return nil
}
