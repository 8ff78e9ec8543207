package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/cosmos/ics721/ics721/gate"
	"github.com/cosmos/ics721/ics721/types"
)

// Read-only projections of the module state. Callers pass a context over
// committed state.

// ClassIDForContract returns the class id of a receipt collection.
func (k *Keeper) ClassIDForContract(ctx sdk.Context, contract string) (string, bool) {
	return k.GetClassID(ctx, contract)
}

// ContractForClassID returns the receipt collection of a class id.
func (k *Keeper) ContractForClassID(ctx sdk.Context, classID string) (string, bool) {
	return k.GetContract(ctx, classID)
}

// ClassMetadata returns the metadata a class was first received with.
func (k *Keeper) ClassMetadata(ctx sdk.Context, classID string) (types.Class, bool) {
	return k.GetClass(ctx, classID)
}

// Owner returns the owner of a token of a native or receipt class.
func (k *Keeper) Owner(ctx sdk.Context, classID, tokenID string) (string, error) {
	contract, err := k.resolveContract(ctx, classID)
	if err != nil {
		return "", err
	}
	t, err := k.nftKeeper.GetToken(ctx, contract, tokenID)
	if err != nil {
		return "", err
	}
	return t.Owner, nil
}

// WhitelistedIncomingChannels lists the incoming allow-list. It is empty
// when the incoming gate is not an allow-list.
func (k *Keeper) WhitelistedIncomingChannels(ctx sdk.Context) ([]string, error) {
	if k.GetParams(ctx).Incoming.Kind != types.GateAllowList {
		return nil, nil
	}
	in, err := k.IncomingGate(ctx)
	if err != nil {
		return nil, err
	}
	l, ok := gate.ChannelListOf(in)
	if !ok {
		return nil, nil
	}
	return l.Channels(ctx), nil
}

// Paused reports whether transfers are paused.
func (k *Keeper) Paused(ctx sdk.Context) bool {
	return k.IsPaused(ctx)
}

// Params returns the persisted gate configuration.
func (k *Keeper) Params(ctx sdk.Context) types.Params {
	return k.GetParams(ctx)
}
