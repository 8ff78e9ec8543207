package cmd

import (
	"context"
	"fmt"
	"strings"

	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/chain"
)

func relayCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relay path_name",
		Aliases: []string{"rly"},
		Short:   "Relay pending packets, acknowledgements and timeouts once",
		Args:    withUsage(cobra.ExactArgs(1)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s relay demo-path
$ %s rly demo-path --json`, appName, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsn, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}

			o, err := a.openPaths(cmd, args[:1], true)
			if err != nil {
				return err
			}
			defer o.Close()

			res, err := relayOnce(cmd.Context(), a.Log, args[0], o.Get(args[0]))
			if err != nil {
				return err
			}
			if jsn {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "received(%d) acknowledged(%d) timed-out(%d) skipped(%d)\n",
				res.Received, res.Acknowledged, res.TimedOut, res.Skipped)
			return nil
		},
	}
	return jsonFlag(a.Viper, cmd)
}

// relayOnce runs a single relay pass over p.
func relayOnce(ctx context.Context, log *zap.Logger, name string, p *chain.Path) (chain.RelayResult, error) {
	res, err := p.RelayAll(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to relay path %s: %w", name, err)
	}
	if res != (chain.RelayResult{}) {
		log.Info("Relayed",
			zap.String("path", name),
			zap.Int("received", res.Received),
			zap.Int("acknowledged", res.Acknowledged),
			zap.Int("timed_out", res.TimedOut),
			zap.Int("skipped", res.Skipped),
		)
	}
	return res, nil
}

func sequences(packets []channeltypes.Packet) []uint64 {
	seqs := make([]uint64, len(packets))
	for i, p := range packets {
		seqs[i] = p.Sequence
	}
	return seqs
}
