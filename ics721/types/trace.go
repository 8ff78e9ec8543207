package types

import (
	"crypto/sha256"
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	tmbytes "github.com/cometbft/cometbft/libs/bytes"
	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"

	"github.com/cosmos/ics721/ics721/nft"
)

// ClassTrace splits a class id into the trace of hops it travelled through
// and the class id on its origin chain.
type ClassTrace struct {
	// Path is the sequence of port/channel pairs, e.g. "nft-transfer/channel-0".
	Path string `json:"path"`
	// BaseClassID is the class id on the origin chain, usually a contract address.
	BaseClassID string `json:"base_class_id"`
}

// ParseClassTrace parses a full class id into its trace. The base class id is
// everything left once no further port/channel pair can be consumed.
func ParseClassTrace(classID string) ClassTrace {
	parts := strings.Split(classID, "/")
	i := 0
	for ; i+2 < len(parts); i += 2 {
		if parts[i] == "" || !channeltypes.IsValidChannelID(parts[i+1]) {
			break
		}
	}
	if i == 0 {
		return ClassTrace{BaseClassID: classID}
	}
	return ClassTrace{
		Path:        strings.Join(parts[:i], "/"),
		BaseClassID: strings.Join(parts[i:], "/"),
	}
}

// GetPrefix returns the receiving class id prefix composed by the trace info and a separator.
func (ct ClassTrace) GetPrefix() string {
	return ct.Path + "/"
}

// GetFullClassPath returns tracePath + "/" + baseClassID, or the base class id
// for classes native to this chain.
func (ct ClassTrace) GetFullClassPath() string {
	if ct.Path == "" {
		return ct.BaseClassID
	}
	return ct.GetPrefix() + ct.BaseClassID
}

// IsNative reports whether the class originates on this chain.
func (ct ClassTrace) IsNative() bool {
	return ct.Path == ""
}

// Hash returns the hex bytes of the SHA256 hash of the full class path.
func (ct ClassTrace) Hash() tmbytes.HexBytes {
	hash := sha256.Sum256([]byte(ct.GetFullClassPath()))
	return hash[:]
}

// ReceiptAddress is the deterministic address of the receipt collection
// instantiated for a class id: 'ics721/{hash(classID)}'.
func ReceiptAddress(classID string) string {
	return nft.ReceiptPrefix + ParseClassTrace(classID).Hash().String()
}

// GetClassPrefix returns the class id prefix for an IBC endpoint.
func GetClassPrefix(portID, channelID string) string {
	return fmt.Sprintf("%s/%s/", portID, channelID)
}

// ReceiverChainIsSource returns true if the class id carries the prefix of
// the sending endpoint, i.e. the class originally came from the receiving chain.
func ReceiverChainIsSource(sourcePort, sourceChannel, classID string) bool {
	return strings.HasPrefix(classID, GetClassPrefix(sourcePort, sourceChannel))
}

// SenderChainIsSource returns false if the class id carries the prefix of
// the sending endpoint, true otherwise.
func SenderChainIsSource(sourcePort, sourceChannel, classID string) bool {
	return !ReceiverChainIsSource(sourcePort, sourceChannel, classID)
}

// TrimClassPrefix removes the source endpoint prefix from a class id. The
// class id comes from a counterparty and must not be trusted, so nothing
// here may panic on empty or non-ascii input.
func TrimClassPrefix(portID, channelID, classID string) (string, bool) {
	prefix := GetClassPrefix(portID, channelID)
	if !strings.HasPrefix(classID, prefix) {
		return classID, false
	}
	return classID[len(prefix):], true
}

// ValidateClassID performs a basic validation of a class id.
func ValidateClassID(classID string) error {
	if strings.TrimSpace(classID) == "" {
		return errorsmod.Wrap(ErrInvalidClassID, "class id cannot be blank")
	}
	if strings.HasPrefix(classID, "/") || strings.HasSuffix(classID, "/") || strings.Contains(classID, "//") {
		return errorsmod.Wrapf(ErrInvalidClassID, "class id %q contains an empty path element", classID)
	}
	return nil
}

// ValidateTokenID performs a basic validation of a token id.
func ValidateTokenID(tokenID string) error {
	if strings.TrimSpace(tokenID) == "" {
		return errorsmod.Wrap(ErrInvalidTokenID, "token id cannot be blank")
	}
	return nil
}
