// Package gate implements the Channel Policy Gate: narrow capabilities that
// decide whether a transfer may enter or leave the chain on a channel.
//
// A gate accepts by returning nil and rejects by returning an error wrapping
// types.ErrGateRejected with the reason. Gates are consulted before any
// escrow, mint or burn happens.
package gate

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"go.uber.org/multierr"
)

// IncomingRequest describes a packet about to be received.
type IncomingRequest struct {
	// PortID and ChannelID are the local (destination) endpoint.
	PortID    string
	ChannelID string

	CounterpartyPortID    string
	CounterpartyChannelID string

	ClassID  string
	Sender   string
	Receiver string
}

// OutgoingRequest describes a transfer about to be sent.
type OutgoingRequest struct {
	PortID    string
	ChannelID string

	Contract string
	ClassID  string
	TokenIDs []string
	Sender   string
}

// IncomingGate decides on inbound packets.
type IncomingGate interface {
	DecideIncoming(ctx sdk.Context, req IncomingRequest) error
}

// OutgoingGate decides on outbound transfers.
type OutgoingGate interface {
	DecideOutgoing(ctx sdk.Context, req OutgoingRequest) error
}

// AcceptAll is the gate used when none is attached.
type AcceptAll struct{}

var (
	_ IncomingGate = AcceptAll{}
	_ OutgoingGate = AcceptAll{}
)

func (AcceptAll) DecideIncoming(sdk.Context, IncomingRequest) error { return nil }

func (AcceptAll) DecideOutgoing(sdk.Context, OutgoingRequest) error { return nil }

// AllIncoming accepts only if every gate accepts. All gates are consulted so
// the rejection lists every reason.
type AllIncoming []IncomingGate

func (gs AllIncoming) DecideIncoming(ctx sdk.Context, req IncomingRequest) error {
	var err error
	for _, g := range gs {
		err = multierr.Append(err, g.DecideIncoming(ctx, req))
	}
	return err
}

// AllOutgoing accepts only if every gate accepts. Gates are consulted in
// order and the first rejection wins, so stateful gates later in the list
// (rate limits) are not charged for a transfer that is rejected anyway.
type AllOutgoing []OutgoingGate

func (gs AllOutgoing) DecideOutgoing(ctx sdk.Context, req OutgoingRequest) error {
	for _, g := range gs {
		if err := g.DecideOutgoing(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
