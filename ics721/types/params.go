package types

import (
	errorsmod "cosmossdk.io/errors"
	host "github.com/cosmos/ibc-go/v7/modules/core/24-host"
)

// GateKind selects a Channel Policy Gate implementation.
type GateKind string

const (
	// GateNone accepts everything.
	GateNone GateKind = "none"
	// GateAllowList only accepts listed channels.
	GateAllowList GateKind = "allowlist"
	// GateDenyList rejects listed channels.
	GateDenyList GateKind = "denylist"
	// GateRateLimit bounds outbound transfers per channel and window.
	GateRateLimit GateKind = "ratelimit"
)

// GateConfig configures one side of the Channel Policy Gate.
type GateConfig struct {
	Kind GateKind `json:"kind" yaml:"kind"`
	// Channels seeds the allow-list or deny-list.
	Channels []string `json:"channels,omitempty" yaml:"channels,omitempty"`
	// Limit is the max number of outbound transfers per channel and window.
	Limit uint64 `json:"limit,omitempty" yaml:"limit,omitempty"`
	// WindowBlocks is the window length in blocks, 1 means per block.
	WindowBlocks uint64 `json:"window_blocks,omitempty" yaml:"window-blocks,omitempty"`
}

// DefaultGateConfig accepts everything.
func DefaultGateConfig() GateConfig {
	return GateConfig{Kind: GateNone}
}

// Validate checks the gate configuration for the given direction.
func (c GateConfig) Validate(outgoing bool) error {
	switch c.Kind {
	case "", GateNone:
		return nil
	case GateAllowList, GateDenyList:
		for _, ch := range c.Channels {
			if err := host.ChannelIdentifierValidator(ch); err != nil {
				return errorsmod.Wrapf(ErrInvalidGateConfig, "channel %q: %s", ch, err)
			}
		}
		return nil
	case GateRateLimit:
		if !outgoing {
			return errorsmod.Wrap(ErrInvalidGateConfig, "rate limit gate only applies to outgoing transfers")
		}
		if c.WindowBlocks == 0 {
			return errorsmod.Wrap(ErrInvalidGateConfig, "rate limit window must be at least one block")
		}
		return nil
	default:
		return errorsmod.Wrapf(ErrInvalidGateConfig, "unknown gate kind %q", c.Kind)
	}
}

// Params defines the persisted module configuration.
type Params struct {
	Incoming GateConfig `json:"incoming"`
	Outgoing GateConfig `json:"outgoing"`
}

// DefaultParams attaches no gates.
func DefaultParams() Params {
	return Params{
		Incoming: DefaultGateConfig(),
		Outgoing: DefaultGateConfig(),
	}
}

// Validate validates the params.
func (p Params) Validate() error {
	if err := p.Incoming.Validate(false); err != nil {
		return errorsmod.Wrap(err, "incoming gate")
	}
	if err := p.Outgoing.Validate(true); err != nil {
		return errorsmod.Wrap(err, "outgoing gate")
	}
	return nil
}

// GenesisState is the initial module state of a chain.
type GenesisState struct {
	PortID string `json:"port_id"`
	Params Params `json:"params"`
	Pauser string `json:"pauser,omitempty"`
}

// DefaultGenesisState binds the default port and attaches no gates.
func DefaultGenesisState() GenesisState {
	return GenesisState{
		PortID: PortID,
		Params: DefaultParams(),
	}
}

// Validate performs basic genesis state validation.
func (gs GenesisState) Validate() error {
	if err := host.PortIdentifierValidator(gs.PortID); err != nil {
		return err
	}
	return gs.Params.Validate()
}
