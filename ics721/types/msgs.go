package types

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v7/modules/core/02-client/types"
	host "github.com/cosmos/ibc-go/v7/modules/core/24-host"
)

// MsgTransfer asks the module to move one or more NFTs of a local
// collection to a receiver on the counterparty chain.
type MsgTransfer struct {
	Contract         string             `json:"contract"`
	TokenIDs         []string           `json:"token_ids"`
	Sender           string             `json:"sender"`
	Receiver         string             `json:"receiver"`
	SourcePort       string             `json:"source_port"`
	SourceChannel    string             `json:"source_channel"`
	TimeoutHeight    clienttypes.Height `json:"timeout_height"`
	TimeoutTimestamp uint64             `json:"timeout_timestamp"`
	Memo             string             `json:"memo,omitempty"`
}

// NewMsgTransfer creates a new MsgTransfer instance for a single token.
func NewMsgTransfer(
	sourcePort, sourceChannel, contract, tokenID, sender, receiver string,
	timeoutHeight clienttypes.Height, timeoutTimestamp uint64,
) MsgTransfer {
	return MsgTransfer{
		Contract:         contract,
		TokenIDs:         []string{tokenID},
		Sender:           sender,
		Receiver:         receiver,
		SourcePort:       sourcePort,
		SourceChannel:    sourceChannel,
		TimeoutHeight:    timeoutHeight,
		TimeoutTimestamp: timeoutTimestamp,
	}
}

// ValidateBasic performs a basic check of the MsgTransfer fields.
// NOTE: timeout height or timestamp values can be 0 to disable the timeout,
// but not both.
func (msg MsgTransfer) ValidateBasic() error {
	if err := host.PortIdentifierValidator(msg.SourcePort); err != nil {
		return errorsmod.Wrap(err, "invalid source port ID")
	}
	if err := host.ChannelIdentifierValidator(msg.SourceChannel); err != nil {
		return errorsmod.Wrap(err, "invalid source channel ID")
	}
	if msg.Contract == "" {
		return errorsmod.Wrap(ErrInvalidTransferMsg, "contract cannot be blank")
	}
	if len(msg.TokenIDs) == 0 {
		return errorsmod.Wrap(ErrInvalidTransferMsg, "token ids cannot be empty")
	}
	seen := make(map[string]struct{}, len(msg.TokenIDs))
	for _, id := range msg.TokenIDs {
		if err := ValidateTokenID(id); err != nil {
			return err
		}
		if _, ok := seen[id]; ok {
			return errorsmod.Wrapf(ErrInvalidTransferMsg, "duplicate token id %q", id)
		}
		seen[id] = struct{}{}
	}
	if msg.Sender == "" {
		return errorsmod.Wrap(ErrInvalidAddress, "sender cannot be blank")
	}
	if msg.Receiver == "" {
		return errorsmod.Wrap(ErrInvalidAddress, "receiver cannot be blank")
	}
	if msg.TimeoutHeight.IsZero() && msg.TimeoutTimestamp == 0 {
		return errorsmod.Wrap(ErrInvalidTransferMsg, "timeout height and timeout timestamp cannot both be 0")
	}
	return nil
}

// TransferHandle durably identifies an outbound transfer. It is the packet
// source endpoint and sequence, so acknowledgements and timeouts arriving
// in a later block can be matched without any in-memory state.
type TransferHandle struct {
	PortID    string `json:"port_id"`
	ChannelID string `json:"channel_id"`
	Sequence  uint64 `json:"sequence"`
}

func (h TransferHandle) String() string {
	return fmt.Sprintf("%s/%s/%d", h.PortID, h.ChannelID, h.Sequence)
}

// TransferAction records what Send did to the local NFTs.
type TransferAction string

const (
	// ActionEscrow means the NFTs are held by the module while away.
	ActionEscrow TransferAction = "escrow"
	// ActionBurn means receipts were burned because they return home.
	ActionBurn TransferAction = "burn"
)

// PendingTransfer is an outbound transfer awaiting acknowledgement or timeout.
type PendingTransfer struct {
	Handle   TransferHandle `json:"handle"`
	ClassID  string         `json:"class_id"`
	Contract string         `json:"contract"`
	TokenIDs []string       `json:"token_ids"`
	Sender   string         `json:"sender"`
	Receiver string         `json:"receiver"`
	Action   TransferAction `json:"action"`
	Height   int64          `json:"height"`
}

// ClassTokenChannel is a row of the outgoing or incoming channel tables.
type ClassTokenChannel struct {
	ClassID   string `json:"class_id"`
	TokenID   string `json:"token_id"`
	ChannelID string `json:"channel_id"`
}

// ClassContract is a row of the class registry.
type ClassContract struct {
	ClassID  string `json:"class_id"`
	Contract string `json:"contract"`
}

// Class holds the class level metadata received with a class.
type Class struct {
	ID   string `json:"id"`
	URI  string `json:"uri,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// CollectionData is sent as class data for collections native to the
// sending chain.
type CollectionData struct {
	Owner     string `json:"owner,omitempty"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	NumTokens uint64 `json:"num_tokens"`
}
