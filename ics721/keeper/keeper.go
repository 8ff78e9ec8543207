package keeper

import (
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/ics721/gate"
	"github.com/cosmos/ics721/ics721/types"
)

// Keeper holds the ICS-721 state of a chain: the Escrow Ledger, the Class
// Registry, the pending transfer table and the gate configuration.
type Keeper struct {
	storeKey storetypes.StoreKey
	log      *zap.Logger

	nftKeeper     types.NFTKeeper
	channelKeeper types.ChannelKeeper
	ics4Wrapper   types.ICS4Wrapper

	// authority may run admin operations (migrations).
	authority string
	// escrow is the account holding escrowed NFTs and minting receipts.
	escrow string

	// Gates consulted next to the ones Params configure.
	extraIncoming []gate.IncomingGate
	extraOutgoing []gate.OutgoingGate

	metrics *PrometheusMetrics
}

// Option customizes a Keeper.
type Option func(*Keeper)

// WithIncomingGate adds a gate that must accept inbound packets on top of
// the configured one.
func WithIncomingGate(g gate.IncomingGate) Option {
	return func(k *Keeper) { k.extraIncoming = append(k.extraIncoming, g) }
}

// WithOutgoingGate adds a gate that must accept outbound transfers before
// the configured one is consulted.
func WithOutgoingGate(g gate.OutgoingGate) Option {
	return func(k *Keeper) { k.extraOutgoing = append(k.extraOutgoing, g) }
}

// WithMetrics reports transfer activity to m.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(k *Keeper) { k.metrics = m }
}

// NewKeeper creates a new ICS-721 Keeper instance.
func NewKeeper(
	log *zap.Logger,
	storeKey storetypes.StoreKey,
	nftKeeper types.NFTKeeper,
	channelKeeper types.ChannelKeeper,
	ics4Wrapper types.ICS4Wrapper,
	authority string,
	opts ...Option,
) *Keeper {
	k := &Keeper{
		storeKey:      storeKey,
		log:           log.With(zap.String("module", types.ModuleName)),
		nftKeeper:     nftKeeper,
		channelKeeper: channelKeeper,
		ics4Wrapper:   ics4Wrapper,
		authority:     authority,
		escrow:        types.ModuleAddress(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// EscrowAddress is the account holding NFTs while they are away.
func (k *Keeper) EscrowAddress() string {
	return k.escrow
}

// Authority is the admin allowed to migrate the module configuration.
func (k *Keeper) Authority() string {
	return k.authority
}

// Logger returns a module-specific logger tagged with the chain id.
func (k *Keeper) Logger(ctx sdk.Context) *zap.Logger {
	return k.log.With(zap.String("chain_id", ctx.ChainID()))
}

// InitGenesis sets the initial params, seeds gate channel lists and the pauser.
func (k *Keeper) InitGenesis(ctx sdk.Context, gs types.GenesisState) error {
	if err := gs.Validate(); err != nil {
		return err
	}
	ctx.KVStore(k.storeKey).Set(types.PortKey, []byte(gs.PortID))
	if err := k.SetParams(ctx, gs.Params); err != nil {
		return err
	}
	if gs.Pauser != "" {
		k.setPauser(ctx, gs.Pauser)
	}
	return nil
}

// GetPort returns the port the module is bound to.
func (k *Keeper) GetPort(ctx sdk.Context) string {
	bz := ctx.KVStore(k.storeKey).Get(types.PortKey)
	if bz == nil {
		return types.PortID
	}
	return string(bz)
}

// GetParams returns the persisted params.
func (k *Keeper) GetParams(ctx sdk.Context) types.Params {
	bz := ctx.KVStore(k.storeKey).Get(types.ParamsKey)
	if bz == nil {
		return types.DefaultParams()
	}
	var p types.Params
	if err := json.Unmarshal(bz, &p); err != nil {
		panic(fmt.Errorf("failed to decode ics721 params: %w", err))
	}
	return p
}

// SetParams persists params and seeds the configured channel lists.
func (k *Keeper) SetParams(ctx sdk.Context, p types.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	bz, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ctx.KVStore(k.storeKey).Set(types.ParamsKey, bz)

	in, err := k.IncomingGate(ctx)
	if err != nil {
		return err
	}
	if l, ok := gate.ChannelListOf(in); ok && len(p.Incoming.Channels) > 0 {
		if err := l.Add(ctx, p.Incoming.Channels...); err != nil {
			return err
		}
	}
	out, err := k.OutgoingGate(ctx)
	if err != nil {
		return err
	}
	if l, ok := gate.ChannelListOf(out); ok && len(p.Outgoing.Channels) > 0 {
		if err := l.Add(ctx, p.Outgoing.Channels...); err != nil {
			return err
		}
	}
	return nil
}

// IncomingGate returns the gate deciding on inbound packets.
func (k *Keeper) IncomingGate(ctx sdk.Context) (gate.IncomingGate, error) {
	configured, err := gate.NewIncoming(k.storeKey, k.GetParams(ctx).Incoming)
	if err != nil {
		return nil, err
	}
	if len(k.extraIncoming) == 0 {
		return configured, nil
	}
	return append(gate.AllIncoming{configured}, k.extraIncoming...), nil
}

// OutgoingGate returns the gate deciding on outbound transfers. The extra
// gates run first so a rejected transfer is not charged to a rate limit.
func (k *Keeper) OutgoingGate(ctx sdk.Context) (gate.OutgoingGate, error) {
	configured, err := gate.NewOutgoing(k.storeKey, k.GetParams(ctx).Outgoing)
	if err != nil {
		return nil, err
	}
	if len(k.extraOutgoing) == 0 {
		return configured, nil
	}
	gates := make(gate.AllOutgoing, 0, len(k.extraOutgoing)+1)
	gates = append(gates, k.extraOutgoing...)
	return append(gates, configured), nil
}

// IsPaused reports whether the pauser paused the module.
func (k *Keeper) IsPaused(ctx sdk.Context) bool {
	return ctx.KVStore(k.storeKey).Has(types.PausedKey)
}

// GetPauser returns the account allowed to pause, if any.
func (k *Keeper) GetPauser(ctx sdk.Context) string {
	return string(ctx.KVStore(k.storeKey).Get(types.PauserKey))
}

func (k *Keeper) setPauser(ctx sdk.Context, pauser string) {
	store := ctx.KVStore(k.storeKey)
	if pauser == "" {
		store.Delete(types.PauserKey)
		return
	}
	store.Set(types.PauserKey, []byte(pauser))
}

func (k *Keeper) errorIfPaused(ctx sdk.Context) error {
	if k.IsPaused(ctx) {
		return errorsmod.Wrap(types.ErrPaused, "ICS-721 transfers are paused")
	}
	return nil
}
