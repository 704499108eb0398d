package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EgorPopelyaev/polkadot/exports"
	"github.com/EgorPopelyaev/polkadot/location"
)

func newResolveCommand() *cobra.Command {
	var ancestry, dest string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show how a destination would be routed",
		Example: `  xcmroute resolve --ancestry "GlobalConsensus(Polkadot)/Parachain(1000)" \
    --dest "../../GlobalConsensus(Kusama)/Parachain(1000)"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			universal, err := location.ParseJunctions(ancestry)
			if err != nil {
				return fmt.Errorf("bad --ancestry: %w", err)
			}
			target, err := location.Parse(dest)
			if err != nil {
				return fmt.Errorf("bad --dest: %w", err)
			}

			out := cmd.OutOrStdout()
			route, err := exports.EnsureIsRemote(universal, target)
			var notRemote *exports.NotRemoteError
			if errors.As(err, &notRemote) {
				fmt.Fprintf(out, "not remote (%s): %s\n", notRemote.Reason, notRemote.Destination)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "remote network:  %s\n", route.RemoteNetwork)
			fmt.Fprintf(out, "remote location: %s\n", route.RemoteLocation)
			fmt.Fprintf(out, "local network:   %s\n", route.LocalNetwork)
			fmt.Fprintf(out, "local location:  %s\n", route.LocalLocation)
			return nil
		},
	}

	cmd.Flags().StringVar(&ancestry, "ancestry", "", "universal location of this chain")
	cmd.Flags().StringVar(&dest, "dest", "", "destination relative to this chain")
	cmd.MarkFlagRequired("ancestry")
	cmd.MarkFlagRequired("dest")
	return cmd
}
