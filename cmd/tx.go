/*
Copyright © 2020 Jack Zampolin jack.zampolin@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v7/modules/core/02-client/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/chain"
	"github.com/cosmos/ics721/ics721/nft"
	"github.com/cosmos/ics721/ics721/types"
)

// transactionCmd returns a parent transaction command handler, where all child
// commands can submit transactions on configured chains.
func transactionCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transact",
		Aliases: []string{"tx"},
		Short:   "Create and submit transactions on configured chains",
	}

	cmd.AddCommand(
		createCollectionCmd(a),
		mintCmd(a),
		transferCmd(a),
	)

	return cmd
}

// execTx runs fn as one transaction on chainID and logs the new height.
func execTx(a *appState, chainID string, fn func(c *chain.Chain, ctx sdk.Context) error) error {
	c, err := a.openChain(chainID)
	if err != nil {
		return err
	}
	defer c.Close()

	events, err := c.Exec(func(ctx sdk.Context) error { return fn(c, ctx) })
	if err != nil {
		return err
	}
	a.Log.Debug("Transaction committed",
		zap.String("chain_id", chainID),
		zap.Int64("height", c.Height()),
		zap.Int("events", len(events)),
	)
	return nil
}

func createCollectionCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create-collection chain_id contract",
		Aliases: []string{"cc"},
		Short:   "Instantiate a native NFT collection",
		Args:    withUsage(cobra.ExactArgs(2)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s tx create-collection ics721-a wasm.punks --from alice --name Punks --symbol PNK`, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, contract := args[0], args[1]
			from, err := cmd.Flags().GetString(flagFrom)
			if err != nil {
				return err
			}
			name, err := cmd.Flags().GetString(flagName)
			if err != nil {
				return err
			}
			symbol, err := cmd.Flags().GetString(flagSymbol)
			if err != nil {
				return err
			}
			minter, err := cmd.Flags().GetString(flagMinter)
			if err != nil {
				return err
			}
			if name == "" {
				name = contract
			}
			if minter == "" {
				minter = from
			}

			return execTx(a, chainID, func(c *chain.Chain, ctx sdk.Context) error {
				return c.NFT.CreateCollection(ctx, nft.Collection{
					Address: contract,
					Name:    name,
					Symbol:  symbol,
					Minter:  minter,
					Creator: from,
				})
			})
		},
	}
	return collectionFlags(a.Viper, fromFlag(a.Viper, cmd))
}

func mintCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mint chain_id contract token_id owner",
		Aliases: []string{"m"},
		Short:   "Mint a token of a native collection",
		Args:    withUsage(cobra.ExactArgs(4)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s tx mint ics721-a wasm.punks 1 alice --from alice --uri ipfs://punk/1`, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, contract, tokenID, owner := args[0], args[1], args[2], args[3]
			from, err := cmd.Flags().GetString(flagFrom)
			if err != nil {
				return err
			}
			uri, err := cmd.Flags().GetString(flagURI)
			if err != nil {
				return err
			}

			return execTx(a, chainID, func(c *chain.Chain, ctx sdk.Context) error {
				return c.NFT.Mint(ctx, contract, from, nft.Token{ID: tokenID, Owner: owner, URI: uri})
			})
		},
	}
	return uriFlag(a.Viper, fromFlag(a.Viper, cmd))
}

func transferCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transfer path_name contract receiver token_id [token_id...]",
		Aliases: []string{"xfer"},
		Short:   "Send NFTs across a path",
		Long: strings.TrimSpace(`Send NFTs of a local collection to a receiver on the other chain of a path.
The path is linked first if it has no channel yet. The packet waits on the
sending chain until a relay pass delivers it.`),
		Args: withUsage(cobra.MinimumNArgs(4)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s tx transfer demo-path wasm.punks bob 1 2 --from alice
$ %s tx xfer demo-path ics721/0a1b... alice 1 --from bob --reverse`, appName, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathName, contract, receiver, tokenIDs := args[0], args[1], args[2], args[3:]
			from, err := cmd.Flags().GetString(flagFrom)
			if err != nil {
				return err
			}
			memo, err := cmd.Flags().GetString(flagMemo)
			if err != nil {
				return err
			}
			reverse, err := cmd.Flags().GetBool(flagReverse)
			if err != nil {
				return err
			}
			timeoutBlocks, err := cmd.Flags().GetUint64(flagTimeoutBlocks)
			if err != nil {
				return err
			}
			timeoutTime, err := cmd.Flags().GetDuration(flagTimeoutTime)
			if err != nil {
				return err
			}
			if err := a.requireConfig(); err != nil {
				return err
			}
			if timeoutBlocks == 0 {
				timeoutBlocks = a.Config.Global.TimeoutBlocks
			}

			o, err := a.openPaths(cmd, []string{pathName}, true)
			if err != nil {
				return err
			}
			defer o.Close()

			path := o.Get(pathName)
			if reverse {
				path = path.Reverse()
			}

			// Timeouts are relative to the receiving chain.
			dst := path.Dst.Chain
			msg := types.MsgTransfer{
				Contract:      contract,
				TokenIDs:      tokenIDs,
				Sender:        from,
				Receiver:      receiver,
				SourcePort:    path.Src.PortID,
				SourceChannel: path.Src.ChannelID,
				Memo:          memo,
			}
			if timeoutBlocks > 0 {
				msg.TimeoutHeight = clienttypes.NewHeight(0, uint64(dst.Height())+timeoutBlocks)
			}
			if timeoutTime > 0 {
				msg.TimeoutTimestamp = uint64(dst.BlockTime(dst.Height()).Add(timeoutTime).UnixNano())
			}

			src := path.Src.Chain
			var handle types.TransferHandle
			if _, err := src.Exec(func(ctx sdk.Context) (err error) {
				handle, err = src.ICS721.SendTransfer(ctx, msg)
				return err
			}); err != nil {
				return err
			}

			bz, err := json.Marshal(handle)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
	return transferFlags(a.Viper, fromFlag(a.Viper, cmd))
}
