package keeper

import (
	"encoding/json"

	"github.com/cosmos/cosmos-sdk/store/prefix"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/cosmos/ics721/ics721/types"
)

// The escrow ledger has two tables keyed by (class id, token id):
//
//	outgoing: NFTs escrowed here and sent away -> channel they left through
//	incoming: receipts minted here             -> channel they arrived on
//
// A token is in at most one entry of each table at a time.

func (k *Keeper) channelTable(ctx sdk.Context, p []byte) prefix.Store {
	return prefix.NewStore(ctx.KVStore(k.storeKey), p)
}

// GetOutgoingChannel returns the channel an escrowed token was sent through.
func (k *Keeper) GetOutgoingChannel(ctx sdk.Context, classID, tokenID string) (string, bool) {
	bz := k.channelTable(ctx, types.OutgoingChannelPrefix).Get(types.ClassTokenKey(classID, tokenID))
	if bz == nil {
		return "", false
	}
	return string(bz), true
}

func (k *Keeper) setOutgoingChannel(ctx sdk.Context, classID, tokenID, channel string) {
	k.channelTable(ctx, types.OutgoingChannelPrefix).Set(types.ClassTokenKey(classID, tokenID), []byte(channel))
}

func (k *Keeper) deleteOutgoingChannel(ctx sdk.Context, classID, tokenID string) {
	k.channelTable(ctx, types.OutgoingChannelPrefix).Delete(types.ClassTokenKey(classID, tokenID))
}

// GetIncomingChannel returns the channel a receipt arrived on.
func (k *Keeper) GetIncomingChannel(ctx sdk.Context, classID, tokenID string) (string, bool) {
	bz := k.channelTable(ctx, types.IncomingChannelPrefix).Get(types.ClassTokenKey(classID, tokenID))
	if bz == nil {
		return "", false
	}
	return string(bz), true
}

func (k *Keeper) setIncomingChannel(ctx sdk.Context, classID, tokenID, channel string) {
	k.channelTable(ctx, types.IncomingChannelPrefix).Set(types.ClassTokenKey(classID, tokenID), []byte(channel))
}

func (k *Keeper) deleteIncomingChannel(ctx sdk.Context, classID, tokenID string) {
	k.channelTable(ctx, types.IncomingChannelPrefix).Delete(types.ClassTokenKey(classID, tokenID))
}

// OutgoingChannels lists the outgoing table.
func (k *Keeper) OutgoingChannels(ctx sdk.Context) ([]types.ClassTokenChannel, error) {
	return k.listChannels(ctx, types.OutgoingChannelPrefix)
}

// SeedMetrics sets the escrow gauge from the outgoing table, so a reopened
// chain reports what it holds rather than what moved since the restart.
func (k *Keeper) SeedMetrics(ctx sdk.Context) error {
	outgoing, err := k.OutgoingChannels(ctx)
	if err != nil {
		return err
	}
	perChannel := make(map[string]int)
	for _, e := range outgoing {
		perChannel[e.ChannelID]++
	}
	for channel, n := range perChannel {
		k.metrics.SetEscrowedTokens(ctx.ChainID(), channel, n)
	}
	return nil
}

// IncomingChannels lists the incoming table.
func (k *Keeper) IncomingChannels(ctx sdk.Context) ([]types.ClassTokenChannel, error) {
	return k.listChannels(ctx, types.IncomingChannelPrefix)
}

func (k *Keeper) listChannels(ctx sdk.Context, p []byte) ([]types.ClassTokenChannel, error) {
	iterator := k.channelTable(ctx, p).Iterator(nil, nil)
	defer iterator.Close()

	var out []types.ClassTokenChannel
	for ; iterator.Valid(); iterator.Next() {
		classID, tokenID, err := types.SplitClassTokenKey(iterator.Key())
		if err != nil {
			return nil, err
		}
		out = append(out, types.ClassTokenChannel{
			ClassID:   classID,
			TokenID:   tokenID,
			ChannelID: string(iterator.Value()),
		})
	}
	return out, nil
}

// GetPendingTransfer returns the outbound transfer identified by h.
func (k *Keeper) GetPendingTransfer(ctx sdk.Context, h types.TransferHandle) (types.PendingTransfer, bool) {
	store := prefix.NewStore(ctx.KVStore(k.storeKey), types.PendingTransferPrefix)
	bz := store.Get(types.PendingTransferKey(h.PortID, h.ChannelID, h.Sequence))
	if bz == nil {
		return types.PendingTransfer{}, false
	}
	var p types.PendingTransfer
	if err := json.Unmarshal(bz, &p); err != nil {
		panic(err)
	}
	return p, true
}

func (k *Keeper) setPendingTransfer(ctx sdk.Context, p types.PendingTransfer) {
	bz, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	store := prefix.NewStore(ctx.KVStore(k.storeKey), types.PendingTransferPrefix)
	store.Set(types.PendingTransferKey(p.Handle.PortID, p.Handle.ChannelID, p.Handle.Sequence), bz)
}

func (k *Keeper) deletePendingTransfer(ctx sdk.Context, h types.TransferHandle) {
	store := prefix.NewStore(ctx.KVStore(k.storeKey), types.PendingTransferPrefix)
	store.Delete(types.PendingTransferKey(h.PortID, h.ChannelID, h.Sequence))
}

// PendingTransfers lists outbound transfers awaiting an acknowledgement or
// timeout, ordered by port, channel and sequence.
func (k *Keeper) PendingTransfers(ctx sdk.Context) []types.PendingTransfer {
	iterator := prefix.NewStore(ctx.KVStore(k.storeKey), types.PendingTransferPrefix).Iterator(nil, nil)
	defer iterator.Close()

	var out []types.PendingTransfer
	for ; iterator.Valid(); iterator.Next() {
		var p types.PendingTransfer
		if err := json.Unmarshal(iterator.Value(), &p); err != nil {
			panic(err)
		}
		out = append(out, p)
	}
	return out
}
