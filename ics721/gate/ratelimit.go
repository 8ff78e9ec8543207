package gate

import (
	"encoding/binary"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/store/prefix"
	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/cosmos/ics721/ics721/types"
)

// RateLimit bounds the number of outbound transfers per channel within a
// window of WindowBlocks blocks. The counter resets when a new window starts.
type RateLimit struct {
	storeKey storetypes.StoreKey
	prefix   []byte

	Limit        uint64
	WindowBlocks uint64
}

var _ OutgoingGate = (*RateLimit)(nil)

// NewRateLimit returns a rate limiting gate.
func NewRateLimit(storeKey storetypes.StoreKey, keyPrefix []byte, limit, windowBlocks uint64) *RateLimit {
	if windowBlocks == 0 {
		windowBlocks = 1
	}
	return &RateLimit{
		storeKey:     storeKey,
		prefix:       keyPrefix,
		Limit:        limit,
		WindowBlocks: windowBlocks,
	}
}

func (r *RateLimit) store(ctx sdk.Context) prefix.Store {
	p := append(append([]byte{}, r.prefix...), rateLimitPrefix...)
	return prefix.NewStore(ctx.KVStore(r.storeKey), p)
}

func (r *RateLimit) window(ctx sdk.Context) uint64 {
	return uint64(ctx.BlockHeight()) / r.WindowBlocks
}

// Usage returns the number of transfers already sent on channel in the
// current window.
func (r *RateLimit) Usage(ctx sdk.Context, channel string) uint64 {
	bz := r.store(ctx).Get([]byte(channel))
	if len(bz) != 16 {
		return 0
	}
	if binary.BigEndian.Uint64(bz[:8]) != r.window(ctx) {
		return 0
	}
	return binary.BigEndian.Uint64(bz[8:])
}

// DecideOutgoing charges the transfer to the current window. A rejected
// transfer is not charged.
func (r *RateLimit) DecideOutgoing(ctx sdk.Context, req OutgoingRequest) error {
	used := r.Usage(ctx, req.ChannelID)
	if used >= r.Limit {
		return errorsmod.Wrapf(types.ErrGateRejected,
			"rate limit of %d transfers per %d blocks reached on channel %s", r.Limit, r.WindowBlocks, req.ChannelID)
	}

	bz := make([]byte, 16)
	binary.BigEndian.PutUint64(bz[:8], r.window(ctx))
	binary.BigEndian.PutUint64(bz[8:], used+1)
	r.store(ctx).Set([]byte(req.ChannelID), bz)
	return nil
}
