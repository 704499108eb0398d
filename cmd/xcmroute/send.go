package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/EgorPopelyaev/polkadot/location"
	"github.com/EgorPopelyaev/polkadot/xcm"
)

func newSendCommand() *cobra.Command {
	var (
		configPath string
		dest       string
		message    string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message through the configured strategies",
		Example: `  xcmroute send --config xcmroute.yaml \
    --dest "../../GlobalConsensus(Kusama)/Parachain(1000)" \
    --message '[{"op":"Transact","call":"cmVtYXJr"}]'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := location.Parse(dest)
			if err != nil {
				return fmt.Errorf("bad --dest: %w", err)
			}

			raw := []byte(message)
			if message == "-" {
				if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("failed to read message: %w", err)
				}
			}
			var msg xcm.Xcm
			if err := json.Unmarshal(raw, &msg); err != nil {
				return fmt.Errorf("bad --message: %w", err)
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			n, err := newNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := n.router.SendXcm(ctx, target, msg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", msg.Hash(), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML or JSON config file")
	cmd.Flags().StringVar(&dest, "dest", "", "destination relative to this chain")
	cmd.Flags().StringVar(&message, "message", "", `message as JSON, or "-" to read stdin`)
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "send timeout")
	cmd.MarkFlagRequired("dest")
	cmd.MarkFlagRequired("message")
	return cmd
}
