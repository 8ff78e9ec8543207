package gate

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/store/prefix"
	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	host "github.com/cosmos/ibc-go/v7/modules/core/24-host"

	"github.com/cosmos/ics721/ics721/types"
)

var (
	allowListPrefix = []byte{0x01}
	rateLimitPrefix = []byte{0x02}
	denyListPrefix  = []byte{0x03}
)

// ChannelList is a persisted set of channel ids used either as an
// allow-list or as a deny-list. Updates are additive.
type ChannelList struct {
	storeKey storetypes.StoreKey
	prefix   []byte
	deny     bool
}

var (
	_ IncomingGate = (*ChannelList)(nil)
	_ OutgoingGate = (*ChannelList)(nil)
)

// NewAllowList returns a gate accepting only the listed channels.
func NewAllowList(storeKey storetypes.StoreKey, keyPrefix []byte) *ChannelList {
	return &ChannelList{storeKey: storeKey, prefix: keyPrefix}
}

// NewDenyList returns a gate rejecting the listed channels.
func NewDenyList(storeKey storetypes.StoreKey, keyPrefix []byte) *ChannelList {
	return &ChannelList{storeKey: storeKey, prefix: keyPrefix, deny: true}
}

func (l *ChannelList) store(ctx sdk.Context) prefix.Store {
	sub := allowListPrefix
	if l.deny {
		sub = denyListPrefix
	}
	p := append(append([]byte{}, l.prefix...), sub...)
	return prefix.NewStore(ctx.KVStore(l.storeKey), p)
}

// Add appends channels to the list. Already listed channels are ignored.
func (l *ChannelList) Add(ctx sdk.Context, channels ...string) error {
	for _, ch := range channels {
		if err := host.ChannelIdentifierValidator(ch); err != nil {
			return errorsmod.Wrapf(types.ErrInvalidGateConfig, "channel %q: %s", ch, err)
		}
	}
	store := l.store(ctx)
	for _, ch := range channels {
		store.Set([]byte(ch), []byte{1})
	}
	return nil
}

// Has reports whether channel is listed.
func (l *ChannelList) Has(ctx sdk.Context, channel string) bool {
	return l.store(ctx).Has([]byte(channel))
}

// Channels returns the listed channels in order.
func (l *ChannelList) Channels(ctx sdk.Context) []string {
	iterator := l.store(ctx).Iterator(nil, nil)
	defer iterator.Close()

	var out []string
	for ; iterator.Valid(); iterator.Next() {
		out = append(out, string(iterator.Key()))
	}
	return out
}

func (l *ChannelList) decide(ctx sdk.Context, channel string) error {
	listed := l.Has(ctx, channel)
	switch {
	case l.deny && listed:
		return errorsmod.Wrapf(types.ErrGateRejected, "channel %s is deny-listed", channel)
	case !l.deny && !listed:
		return errorsmod.Wrapf(types.ErrGateRejected, "channel %s is not allow-listed", channel)
	}
	return nil
}

func (l *ChannelList) DecideIncoming(ctx sdk.Context, req IncomingRequest) error {
	return l.decide(ctx, req.ChannelID)
}

func (l *ChannelList) DecideOutgoing(ctx sdk.Context, req OutgoingRequest) error {
	return l.decide(ctx, req.ChannelID)
}
