package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cobra"

	"github.com/cosmos/ics721/chain"
	"github.com/cosmos/ics721/ics721/types"
)

// queryCmd represents the query command tree.
func queryCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query",
		Aliases: []string{"q"},
		Short:   "IBC NFT query commands",
		Long:    "Commands to query the committed state of configured chains. Output is JSON.",
	}

	cmd.AddCommand(
		queryOwnerCmd(a),
		queryTokensCmd(a),
		queryCollectionsCmd(a),
		queryClassesCmd(a),
		queryClassCmd(a),
		queryClassIDCmd(a),
		queryOutgoingCmd(a),
		queryIncomingCmd(a),
		queryAllowListCmd(a),
		queryPendingCmd(a),
		queryParamsCmd(a),
		queryUnrelayedCmd(a),
	)

	return cmd
}

// queryChain runs fn against the committed state of chainID and prints its
// result as JSON.
func queryChain(cmd *cobra.Command, a *appState, chainID string, fn func(c *chain.Chain, ctx sdk.Context) (any, error)) error {
	c, err := a.openChain(chainID)
	if err != nil {
		return err
	}
	defer c.Close()

	var res any
	if err := c.Query(func(ctx sdk.Context) (err error) {
		res, err = fn(c, ctx)
		return err
	}); err != nil {
		return err
	}
	return printJSON(cmd, res)
}

func printJSON(cmd *cobra.Command, v any) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	return nil
}

func queryOwnerCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "owner chain_id class_id token_id",
		Short: "Query the owner of a token by class id",
		Args:  withUsage(cobra.ExactArgs(3)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s query owner ics721-b nft-transfer/channel-0/wasm.punks 1`, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				owner, err := c.ICS721.Owner(ctx, args[1], args[2])
				if err != nil {
					return nil, err
				}
				return map[string]string{"owner": owner}, nil
			})
		},
	}
}

func queryTokensCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens chain_id contract",
		Short: "Query the tokens of a collection",
		Args:  withUsage(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				return c.NFT.Tokens(ctx, args[1]), nil
			})
		},
	}
}

func queryCollectionsCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "collections chain_id",
		Short: "Query every collection, native and receipt",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				return c.NFT.Collections(ctx), nil
			})
		},
	}
}

func queryClassesCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "classes chain_id",
		Short: "Query the class id to receipt collection table",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				return c.ICS721.ClassContracts(ctx), nil
			})
		},
	}
}

func queryClassCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "class chain_id class_id",
		Short: "Query the collection and metadata of a class id",
		Args:  withUsage(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				contract, ok := c.ICS721.ContractForClassID(ctx, args[1])
				if !ok && c.NFT.HasCollection(ctx, args[1]) {
					contract, ok = args[1], true
				}
				if !ok {
					return nil, types.ErrClassNotFound.Wrap(args[1])
				}
				class, _ := c.ICS721.ClassMetadata(ctx, args[1])
				trace := types.ParseClassTrace(args[1])
				return struct {
					Contract string           `json:"contract"`
					Class    types.Class      `json:"class"`
					Trace    types.ClassTrace `json:"trace"`
					Native   bool             `json:"native"`
				}{contract, class, trace, trace.IsNative()}, nil
			})
		},
	}
}

func queryClassIDCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "class-id chain_id contract",
		Short: "Query the class id of a receipt collection",
		Args:  withUsage(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				classID, ok := c.ICS721.ClassIDForContract(ctx, args[1])
				if !ok {
					return nil, types.ErrClassNotFound.Wrapf("no class for contract %s", args[1])
				}
				return map[string]string{"class_id": classID}, nil
			})
		},
	}
}

func queryOutgoingCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "outgoing chain_id",
		Short: "Query escrowed tokens and the channel they left on",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				return c.ICS721.OutgoingChannels(ctx)
			})
		},
	}
}

func queryIncomingCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "incoming chain_id",
		Short: "Query receipt tokens and the channel they arrived on",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				return c.ICS721.IncomingChannels(ctx)
			})
		},
	}
}

func queryAllowListCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:     "allowlist chain_id",
		Aliases: []string{"whitelist"},
		Short:   "Query the incoming channel allow-list",
		Args:    withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				return c.ICS721.WhitelistedIncomingChannels(ctx)
			})
		},
	}
}

func queryPendingCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "pending chain_id",
		Short: "Query transfers awaiting acknowledgement or timeout",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				return c.ICS721.PendingTransfers(ctx), nil
			})
		},
	}
}

type moduleStatus struct {
	Port   string       `json:"port"`
	Params types.Params `json:"params"`
	Paused bool         `json:"paused"`
	Pauser string       `json:"pauser,omitempty"`
	Admin  string       `json:"admin"`
	Height int64        `json:"height"`
}

func queryParamsCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "params chain_id",
		Short: "Query the ICS-721 configuration of a chain",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryChain(cmd, a, args[0], func(c *chain.Chain, ctx sdk.Context) (any, error) {
				return moduleStatus{
					Port:   c.ICS721.GetPort(ctx),
					Params: c.ICS721.Params(ctx),
					Paused: c.ICS721.Paused(ctx),
					Pauser: c.ICS721.GetPauser(ctx),
					Admin:  c.ICS721.Authority(),
					Height: ctx.BlockHeight(),
				}, nil
			})
		},
	}
}

type unrelayedPackets struct {
	SrcToDst []uint64 `json:"src_to_dst"`
	DstToSrc []uint64 `json:"dst_to_src"`
	// Acks are packets received by the counterparty whose acknowledgement
	// is still owed to the sender.
	SrcAcks []uint64 `json:"src_acks"`
	DstAcks []uint64 `json:"dst_acks"`
	// Timeouts can no longer be received.
	SrcTimeouts []uint64 `json:"src_timeouts"`
	DstTimeouts []uint64 `json:"dst_timeouts"`
}

func queryUnrelayedCmd(a *appState) *cobra.Command {
	return &cobra.Command{
		Use:     "unrelayed-packets path_name",
		Aliases: []string{"unrelayed", "pkts"},
		Short:   "Query the sequences of packets a relay pass would deliver",
		Args:    withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.openPaths(cmd, args[:1], false)
			if err != nil {
				return err
			}
			defer o.Close()

			p := o.Get(args[0])
			if !p.Linked() {
				return fmt.Errorf("path %s is not linked", args[0])
			}

			forward, err := p.PendingPackets()
			if err != nil {
				return err
			}
			backward, err := p.Reverse().PendingPackets()
			if err != nil {
				return err
			}
			return printJSON(cmd, unrelayedPackets{
				SrcToDst:    sequences(forward.Recv),
				DstToSrc:    sequences(backward.Recv),
				SrcAcks:     sequences(forward.Ack),
				DstAcks:     sequences(backward.Ack),
				SrcTimeouts: sequences(forward.Timeout),
				DstTimeouts: sequences(backward.Timeout),
			})
		},
	}
}
