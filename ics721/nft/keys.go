package nft

import (
	"encoding/binary"
)

// StoreKey is the store key string for the nft ledger.
const StoreKey = ModuleName

var (
	CollectionPrefix = []byte{0x01}
	TokenPrefix      = []byte{0x02}
)

// collectionTokensPrefix groups the tokens of one collection under
// TokenPrefix | len(contract) | contract.
func collectionTokensPrefix(contract string) []byte {
	key := make([]byte, 2, 2+len(contract))
	binary.BigEndian.PutUint16(key, uint16(len(contract)))
	return append(key, contract...)
}

func tokenKey(contract, tokenID string) []byte {
	return append(collectionTokensPrefix(contract), tokenID...)
}
