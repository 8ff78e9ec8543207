package gate

import (
	storetypes "github.com/cosmos/cosmos-sdk/store/types"

	"github.com/cosmos/ics721/ics721/types"
)

// NewIncoming builds the incoming gate described by cfg. Its state lives
// under types.IncomingGatePrefix.
func NewIncoming(storeKey storetypes.StoreKey, cfg types.GateConfig) (IncomingGate, error) {
	if err := cfg.Validate(false); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case types.GateAllowList:
		return NewAllowList(storeKey, types.IncomingGatePrefix), nil
	case types.GateDenyList:
		return NewDenyList(storeKey, types.IncomingGatePrefix), nil
	default:
		return AcceptAll{}, nil
	}
}

// NewOutgoing builds the outgoing gate described by cfg. Its state lives
// under types.OutgoingGatePrefix. A rate limit with channels configured is
// also allow-listed.
func NewOutgoing(storeKey storetypes.StoreKey, cfg types.GateConfig) (OutgoingGate, error) {
	if err := cfg.Validate(true); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case types.GateAllowList:
		return NewAllowList(storeKey, types.OutgoingGatePrefix), nil
	case types.GateDenyList:
		return NewDenyList(storeKey, types.OutgoingGatePrefix), nil
	case types.GateRateLimit:
		limit := NewRateLimit(storeKey, types.OutgoingGatePrefix, cfg.Limit, cfg.WindowBlocks)
		if len(cfg.Channels) == 0 {
			return limit, nil
		}
		return AllOutgoing{NewAllowList(storeKey, types.OutgoingGatePrefix), limit}, nil
	default:
		return AcceptAll{}, nil
	}
}

// ChannelListOf returns the persisted channel list backing a gate, if any.
func ChannelListOf(g interface{}) (*ChannelList, bool) {
	switch g := g.(type) {
	case *ChannelList:
		return g, true
	case AllOutgoing:
		for _, inner := range g {
			if l, ok := ChannelListOf(inner); ok {
				return l, true
			}
		}
	case AllIncoming:
		for _, inner := range g {
			if l, ok := ChannelListOf(inner); ok {
				return l, true
			}
		}
	}
	return nil, false
}
