package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EgorPopelyaev/polkadot/bootstrap"
	"github.com/EgorPopelyaev/polkadot/config"
	"github.com/EgorPopelyaev/polkadot/exports"
	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/transport"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept envelopes and execute them locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML or JSON config file, watched for changes")
	cmd.MarkFlagRequired("config")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	n, err := newNode(cfg)
	if err != nil {
		return err
	}
	defer n.Close()

	watcher, err := config.NewWatcher(configPath, config.NewLoader(), n.logger.Named("config"))
	if err != nil {
		return err
	}
	defer watcher.Stop()
	watcher.OnConfigChange(n.router.OnConfigChange)

	listener := transport.NewListener(transport.ListenerConfig{
		Address:        cfg.Transport.Listen,
		IdleTimeout:    cfg.Transport.Timeouts.Idle,
		MaxMessageSize: cfg.Transport.MaxMessageSize,
	}, transport.HandlerFunc(n.handle), n.logger.Named("listener"))

	lifecycle, err := newLifecycle(cfg, n, watcher, listener)
	if err != nil {
		return err
	}
	if err := lifecycle.Start(ctx); err != nil {
		return err
	}

	n.logger.Info("serving",
		zap.Stringer("universal_location", n.router.UniversalLocation()),
		zap.Stringer("address", listener.Addr()))
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return lifecycle.Stop(stopCtx)
}

// newLifecycle orders the node's services. Each start or stop call may take
// as long as the slower of dialing and writing a message.
func newLifecycle(cfg *config.Config, n *node, watcher *config.Watcher, listener *transport.Listener) (*bootstrap.Lifecycle, error) {
	lifecycle := bootstrap.NewLifecycle(n.logger.Named("lifecycle"))
	if timeout := max(cfg.Transport.Timeouts.Dial, cfg.Transport.Timeouts.Write); timeout > 0 {
		lifecycle.SetTimeout(timeout)
	}

	services := []struct {
		name    string
		service bootstrap.Service
		deps    []string
	}{
		{"transport", bootstrap.Funcs{
			StopFunc: func(context.Context) error { return n.tcp.Close() },
		}, nil},
		{"config-watcher", bootstrap.Funcs{
			StartFunc: func(context.Context) error { return watcher.Start() },
			StopFunc:  func(context.Context) error { return watcher.Stop() },
		}, nil},
		{"listener", listener, []string{"transport", "config-watcher"}},
	}
	for _, s := range services {
		if err := lifecycle.Register(s.name, s.service, s.deps...); err != nil {
			return nil, err
		}
	}
	return lifecycle, nil
}

// handle executes an inbound envelope. Envelopes exported to this network
// carry the sender's origin prefix; envelopes from local peers carry no
// network.
func (n *node) handle(ctx context.Context, network location.NetworkID, channel uint32, dest location.Junctions, msg xcm.Xcm) error {
	log := n.logger.With(zap.Stringer("id", msg.Hash()))

	if network != "" {
		own, _ := n.router.UniversalLocation().GlobalConsensus()
		if network != own {
			return fmt.Errorf("envelope for %s delivered to %s", network, own)
		}
		if origin, interior, _, err := exports.Unwrap(msg); err == nil {
			log = log.With(zap.Stringer("sender_network", origin), zap.Stringer("sender", interior))
		}
	}

	pre, err := n.executor.Prepare(msg)
	if err != nil {
		return err
	}
	outcome := n.executor.Execute(ctx, location.Here(), pre, pre.WeightOf())
	log.Info("executed",
		zap.Stringer("dest", dest),
		zap.Uint32("channel", channel),
		zap.Stringer("outcome", outcome))
	if !outcome.IsComplete() {
		return outcome.Err
	}
	return nil
}
