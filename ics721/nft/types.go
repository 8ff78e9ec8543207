package nft

import (
	"strings"

	errorsmod "cosmossdk.io/errors"
)

// ReceiptPrefix starts the address of every receipt collection. Native
// collections may not use it.
const ReceiptPrefix = "ics721/"

// Collection is a cw721 style NFT contract. Native collections are created
// by users; receipt collections are created by ICS-721 for remote classes.
type Collection struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	// Minter may mint and burn tokens of the collection.
	Minter string `json:"minter"`
	// Creator is informational, forwarded as class data owner.
	Creator string `json:"creator,omitempty"`
}

// Validate performs a basic validation of the collection.
func (c Collection) Validate() error {
	switch {
	case strings.TrimSpace(c.Address) == "":
		return errorsmod.Wrap(ErrInvalidCollection, "address cannot be blank")
	case c.Name == "":
		return errorsmod.Wrap(ErrInvalidCollection, "name cannot be blank")
	case c.Minter == "":
		return errorsmod.Wrap(ErrInvalidCollection, "minter cannot be blank")
	}
	return nil
}

// ValidateNative validates a user created collection. Its address doubles as
// the class id sent over the wire, so it may not look like a class trace or
// like a receipt address.
func (c Collection) ValidateNative() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch {
	case strings.HasPrefix(c.Address, ReceiptPrefix):
		return errorsmod.Wrapf(ErrInvalidCollection, "address prefix %q is reserved", ReceiptPrefix)
	case strings.Contains(c.Address, "/"):
		return errorsmod.Wrapf(ErrInvalidCollection, "address %s may not contain '/'", c.Address)
	}
	return nil
}

// Token is a single NFT of a collection.
type Token struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	URI   string `json:"uri,omitempty"`
	Data  []byte `json:"data,omitempty"`
}
