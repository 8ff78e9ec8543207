package nft

import (
	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the codespace of the nft ledger errors.
const ModuleName = "nftledger"

var (
	ErrCollectionExists   = errorsmod.Register(ModuleName, 2, "collection already exists")
	ErrCollectionNotFound = errorsmod.Register(ModuleName, 3, "collection not found")
	ErrTokenExists        = errorsmod.Register(ModuleName, 4, "token already exists")
	ErrTokenNotFound      = errorsmod.Register(ModuleName, 5, "token not found")
	ErrUnauthorized       = errorsmod.Register(ModuleName, 6, "unauthorized")
	ErrInvalidCollection  = errorsmod.Register(ModuleName, 7, "invalid collection")
)
