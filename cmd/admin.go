package cmd

import (
	"fmt"
	"strconv"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cobra"

	"github.com/cosmos/ics721/chain"
	"github.com/cosmos/ics721/ics721/types"
)

// adminCmd groups the migration style operations. They are executed as
// --from and fail unless it is the chain admin (or the pauser for pause).
func adminCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Change the ICS-721 configuration of a chain",
	}

	cmd.AddCommand(
		allowChannelCmd(a),
		setGateCmd(a),
		rateLimitCmd(a),
		pauseCmd(a),
		setPauserCmd(a),
	)

	return cmd
}

func allowChannelCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allow-channel chain_id channel_id [channel_id...]",
		Short: "Add channels to the incoming allow-list",
		Long:  "Add channels to the incoming allow-list. Updates are additive; channels are never removed.",
		Args:  withUsage(cobra.MinimumNArgs(2)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s admin allow-channel ics721-b channel-0 --from admin`, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := cmd.Flags().GetString(flagFrom)
			if err != nil {
				return err
			}
			return execTx(a, args[0], func(c *chain.Chain, ctx sdk.Context) error {
				return c.ICS721.AddIncomingChannels(ctx, from, args[1:]...)
			})
		},
	}
	return fromFlag(a.Viper, cmd)
}

func setGateCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-gate chain_id incoming|outgoing none|allowlist|denylist [channel_id...]",
		Short: "Replace the incoming or outgoing channel policy gate",
		Args:  withUsage(cobra.MinimumNArgs(3)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s admin set-gate ics721-b incoming allowlist channel-0 --from admin
$ %s admin set-gate ics721-a outgoing denylist channel-3 --from admin`, appName, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := cmd.Flags().GetString(flagFrom)
			if err != nil {
				return err
			}
			cfg := types.GateConfig{Kind: types.GateKind(args[2]), Channels: args[3:]}
			switch args[1] {
			case "incoming":
				return execTx(a, args[0], func(c *chain.Chain, ctx sdk.Context) error {
					return c.ICS721.SetIncomingGate(ctx, from, cfg)
				})
			case "outgoing":
				return execTx(a, args[0], func(c *chain.Chain, ctx sdk.Context) error {
					return c.ICS721.SetOutgoingGate(ctx, from, cfg)
				})
			default:
				return fmt.Errorf("gate direction must be incoming or outgoing, got %q", args[1])
			}
		},
	}
	return fromFlag(a.Viper, cmd)
}

func rateLimitCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate-limit chain_id limit window_blocks",
		Short: "Limit outgoing transfers per channel and window of blocks",
		Args:  withUsage(cobra.ExactArgs(3)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s admin rate-limit ics721-a 1 1 --from admin`, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := cmd.Flags().GetString(flagFrom)
			if err != nil {
				return err
			}
			limit, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[1], err)
			}
			window, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid window %q: %w", args[2], err)
			}
			return execTx(a, args[0], func(c *chain.Chain, ctx sdk.Context) error {
				return c.ICS721.SetOutgoingRateLimit(ctx, from, limit, window)
			})
		},
	}
	return fromFlag(a.Viper, cmd)
}

func pauseCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pause chain_id",
		Short: "Pause the module; the pauser loses the right to pause again",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := cmd.Flags().GetString(flagFrom)
			if err != nil {
				return err
			}
			return execTx(a, args[0], func(c *chain.Chain, ctx sdk.Context) error {
				return c.ICS721.Pause(ctx, from)
			})
		},
	}
	return fromFlag(a.Viper, cmd)
}

func setPauserCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-pauser chain_id pauser",
		Short: "Nominate a new pauser and unpause the module",
		Args:  withUsage(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := cmd.Flags().GetString(flagFrom)
			if err != nil {
				return err
			}
			return execTx(a, args[0], func(c *chain.Chain, ctx sdk.Context) error {
				return c.ICS721.SetPauser(ctx, from, args[1])
			})
		},
	}
	return fromFlag(a.Viper, cmd)
}
