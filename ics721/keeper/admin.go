package keeper

import (
	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/ics721/gate"
	"github.com/cosmos/ics721/ics721/types"
)

func (k *Keeper) requireAuthority(sender string) error {
	if sender != k.authority {
		return errorsmod.Wrapf(types.ErrUnauthorized, "expected %s, got %s", k.authority, sender)
	}
	return nil
}

// AddIncomingChannels appends channels to the incoming allow-list. Updates
// are additive and apply to the next packet received.
func (k *Keeper) AddIncomingChannels(ctx sdk.Context, sender string, channels ...string) error {
	if err := k.requireAuthority(sender); err != nil {
		return err
	}
	in, err := k.IncomingGate(ctx)
	if err != nil {
		return err
	}
	l, ok := gate.ChannelListOf(in)
	if !ok {
		return errorsmod.Wrapf(types.ErrInvalidGateConfig, "incoming gate %s has no channel list", k.GetParams(ctx).Incoming.Kind)
	}
	if err := l.Add(ctx, channels...); err != nil {
		return err
	}
	k.Logger(ctx).Info("Updated incoming channel list", zap.Strings("added", channels))
	return nil
}

// SetIncomingGate attaches a new incoming gate configuration.
func (k *Keeper) SetIncomingGate(ctx sdk.Context, sender string, cfg types.GateConfig) error {
	if err := k.requireAuthority(sender); err != nil {
		return err
	}
	p := k.GetParams(ctx)
	p.Incoming = cfg
	if err := k.SetParams(ctx, p); err != nil {
		return err
	}
	k.Logger(ctx).Info("Attached incoming gate", zap.String("kind", string(cfg.Kind)))
	return nil
}

// SetOutgoingGate attaches a new outgoing gate configuration.
func (k *Keeper) SetOutgoingGate(ctx sdk.Context, sender string, cfg types.GateConfig) error {
	if err := k.requireAuthority(sender); err != nil {
		return err
	}
	p := k.GetParams(ctx)
	p.Outgoing = cfg
	if err := k.SetParams(ctx, p); err != nil {
		return err
	}
	k.Logger(ctx).Info("Attached outgoing gate", zap.String("kind", string(cfg.Kind)))
	return nil
}

// SetOutgoingRateLimit switches the outgoing gate to a rate limit, keeping
// any configured channel allow-list.
func (k *Keeper) SetOutgoingRateLimit(ctx sdk.Context, sender string, limit, windowBlocks uint64) error {
	p := k.GetParams(ctx)
	cfg := types.GateConfig{
		Kind:         types.GateRateLimit,
		Limit:        limit,
		WindowBlocks: windowBlocks,
	}
	if p.Outgoing.Kind == types.GateAllowList || p.Outgoing.Kind == types.GateRateLimit {
		cfg.Channels = p.Outgoing.Channels
	}
	return k.SetOutgoingGate(ctx, sender, cfg)
}

// SetPauser nominates a new pauser and unpauses the module. An empty
// pauser removes the right to pause.
func (k *Keeper) SetPauser(ctx sdk.Context, sender, pauser string) error {
	if err := k.requireAuthority(sender); err != nil {
		return err
	}
	k.setPauser(ctx, pauser)
	ctx.KVStore(k.storeKey).Delete(types.PausedKey)
	k.Logger(ctx).Info("Nominated pauser", zap.String("pauser", pauser))
	return nil
}

// Pause stops all transfers. The pauser may pause once: the right is
// consumed until the authority nominates a pauser again.
func (k *Keeper) Pause(ctx sdk.Context, sender string) error {
	if k.IsPaused(ctx) {
		return types.ErrAlreadyPaused
	}
	pauser := k.GetPauser(ctx)
	if pauser == "" || sender != pauser {
		return errorsmod.Wrapf(types.ErrUnauthorized, "%s is not the pauser", sender)
	}
	store := ctx.KVStore(k.storeKey)
	store.Set(types.PausedKey, []byte{1})
	k.setPauser(ctx, "")

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypePaused,
		sdk.NewAttribute(types.AttributeKeySender, sender),
	))
	k.Logger(ctx).Warn("Paused ICS-721 transfers", zap.String("pauser", sender))
	return nil
}
