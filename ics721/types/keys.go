package types

import (
	"encoding/binary"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
)

const (
	// ModuleName defines the ICS-721 module name.
	ModuleName = "ics721"

	// StoreKey is the store key string for ICS-721.
	StoreKey = ModuleName

	// PortID is the default port id the module binds to.
	PortID = "nft-transfer"

	// Version defines the current version the ICS-721 module supports.
	Version = "ics721-1"
)

var (
	// ParamsKey stores the module Params.
	ParamsKey = []byte{0x01}
	// PausedKey is set once the pauser paused the module.
	PausedKey = []byte{0x02}
	// PauserKey stores the address allowed to pause the module.
	PauserKey = []byte{0x03}
	// PortKey stores the port the module is bound to.
	PortKey = []byte{0x04}

	ClassIDToContractPrefix = []byte{0x10}
	ContractToClassIDPrefix = []byte{0x11}
	ClassMetadataPrefix     = []byte{0x12}

	OutgoingChannelPrefix = []byte{0x20}
	IncomingChannelPrefix = []byte{0x21}

	PendingTransferPrefix = []byte{0x30}

	IncomingGatePrefix = []byte{0x40}
	OutgoingGatePrefix = []byte{0x41}
)

// ModuleAddress is the account that holds escrowed NFTs and mints receipts.
func ModuleAddress() string {
	return authtypes.NewModuleAddress(ModuleName).String()
}

// ClassTokenKey builds a collision free key for a (class id, token id) pair.
// The class id is length prefixed since both parts are free form strings.
func ClassTokenKey(classID, tokenID string) []byte {
	key := make([]byte, 2, 2+len(classID)+len(tokenID))
	binary.BigEndian.PutUint16(key, uint16(len(classID)))
	key = append(key, classID...)
	return append(key, tokenID...)
}

// SplitClassTokenKey is the inverse of ClassTokenKey.
func SplitClassTokenKey(key []byte) (classID, tokenID string, err error) {
	if len(key) < 2 {
		return "", "", fmt.Errorf("class token key too short: %d", len(key))
	}
	n := int(binary.BigEndian.Uint16(key[:2]))
	if len(key) < 2+n {
		return "", "", fmt.Errorf("class token key truncated: want %d class id bytes, have %d", n, len(key)-2)
	}
	return string(key[2 : 2+n]), string(key[2+n:]), nil
}

// PendingTransferKey returns the key of the pending transfer identified by
// the packet source endpoint and sequence.
func PendingTransferKey(portID, channelID string, sequence uint64) []byte {
	return append(ChannelKeyPrefix(portID, channelID), sdk.Uint64ToBigEndian(sequence)...)
}

// ChannelKeyPrefix groups per channel entries.
func ChannelKeyPrefix(portID, channelID string) []byte {
	return []byte(fmt.Sprintf("%s/%s/", portID, channelID))
}
