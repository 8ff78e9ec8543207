package types

import (
	errorsmod "cosmossdk.io/errors"
)

// ICS-721 sentinel errors
var (
	ErrNotOwner                 = errorsmod.Register(ModuleName, 2, "sender is not the owner of the nft")
	ErrGateRejected             = errorsmod.Register(ModuleName, 3, "rejected by channel policy gate")
	ErrMalformedPacket          = errorsmod.Register(ModuleName, 4, "malformed packet data")
	ErrReceiverExecution        = errorsmod.Register(ModuleName, 5, "receiver execution failure")
	ErrTimeout                  = errorsmod.Register(ModuleName, 6, "packet timed out")
	ErrInvalidClassID           = errorsmod.Register(ModuleName, 7, "invalid class id")
	ErrInvalidTokenID           = errorsmod.Register(ModuleName, 8, "invalid token id")
	ErrClassNotFound            = errorsmod.Register(ModuleName, 9, "class not found")
	ErrUnknownChannel           = errorsmod.Register(ModuleName, 10, "unknown channel")
	ErrInvalidVersion           = errorsmod.Register(ModuleName, 11, "invalid ICS-721 version")
	ErrInvalidChannelOrder      = errorsmod.Register(ModuleName, 12, "invalid channel ordering")
	ErrCannotCloseChannel       = errorsmod.Register(ModuleName, 13, "ICS-721 channels cannot be closed")
	ErrMixedTransfer            = errorsmod.Register(ModuleName, 14, "packet mixes redemptions and new tokens")
	ErrUnknownTransfer          = errorsmod.Register(ModuleName, 15, "no pending transfer for packet")
	ErrUnauthorized             = errorsmod.Register(ModuleName, 16, "unauthorized")
	ErrPaused                   = errorsmod.Register(ModuleName, 17, "module is paused")
	ErrAlreadyPaused            = errorsmod.Register(ModuleName, 18, "module already paused")
	ErrInvalidAcknowledgement   = errorsmod.Register(ModuleName, 19, "invalid acknowledgement")
	ErrInvalidGateConfig        = errorsmod.Register(ModuleName, 20, "invalid gate configuration")
	ErrInvalidAddress           = errorsmod.Register(ModuleName, 21, "invalid address")
	ErrInvalidTransferMsg       = errorsmod.Register(ModuleName, 22, "invalid transfer message")
	ErrReceiptCollectionMissing = errorsmod.Register(ModuleName, 23, "receipt collection missing for class")
)
