package types

import (
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// NonFungibleTokenPacketData is the ICS-721 packet payload. It is JSON
// encoded on the wire; byte fields travel base64 encoded.
type NonFungibleTokenPacketData struct {
	// ClassID identifies the collection on the sending chain.
	ClassID string `json:"classId"`
	// ClassURI optionally points to collection metadata.
	ClassURI string `json:"classUri,omitempty"`
	// ClassData is optional opaque collection data.
	ClassData []byte `json:"classData,omitempty"`
	// TokenIDs is the non-empty, ordered list of tokens being transferred.
	TokenIDs []string `json:"tokenIds"`
	// TokenURIs, when present, is aligned by index with TokenIDs.
	TokenURIs []string `json:"tokenUris,omitempty"`
	// TokenData, when present, is aligned by index with TokenIDs.
	TokenData [][]byte `json:"tokenData,omitempty"`
	Sender    string   `json:"sender"`
	Receiver  string   `json:"receiver"`
	Memo      string   `json:"memo,omitempty"`
}

// Token is a single entry of a packet, with its optional metadata.
type Token struct {
	ID   string
	URI  string
	Data []byte
}

// NewNonFungibleTokenPacketData constructs a new packet data instance.
func NewNonFungibleTokenPacketData(
	classID, classURI string, classData []byte,
	tokens []Token,
	sender, receiver, memo string,
) NonFungibleTokenPacketData {
	data := NonFungibleTokenPacketData{
		ClassID:   classID,
		ClassURI:  classURI,
		ClassData: classData,
		TokenIDs:  make([]string, 0, len(tokens)),
		Sender:    sender,
		Receiver:  receiver,
		Memo:      memo,
	}

	var withURI, withData bool
	for _, t := range tokens {
		withURI = withURI || t.URI != ""
		withData = withData || len(t.Data) > 0
	}
	for _, t := range tokens {
		data.TokenIDs = append(data.TokenIDs, t.ID)
		if withURI {
			data.TokenURIs = append(data.TokenURIs, t.URI)
		}
		if withData {
			data.TokenData = append(data.TokenData, t.Data)
		}
	}
	return data
}

// ValidateBasic is used for validating the nft transfer.
// NOTE: The addresses formats are not validated as the sender and recipient can have different
// formats defined by their corresponding chains that are not known to IBC.
func (d NonFungibleTokenPacketData) ValidateBasic() error {
	if err := ValidateClassID(d.ClassID); err != nil {
		return errorsmod.Wrap(ErrMalformedPacket, err.Error())
	}
	if len(d.TokenIDs) == 0 {
		return errorsmod.Wrap(ErrMalformedPacket, "token ids cannot be empty")
	}
	if len(d.TokenURIs) != 0 && len(d.TokenURIs) != len(d.TokenIDs) {
		return errorsmod.Wrapf(ErrMalformedPacket, "token uris length %d does not match token ids length %d", len(d.TokenURIs), len(d.TokenIDs))
	}
	if len(d.TokenData) != 0 && len(d.TokenData) != len(d.TokenIDs) {
		return errorsmod.Wrapf(ErrMalformedPacket, "token data length %d does not match token ids length %d", len(d.TokenData), len(d.TokenIDs))
	}
	seen := make(map[string]struct{}, len(d.TokenIDs))
	for _, id := range d.TokenIDs {
		if err := ValidateTokenID(id); err != nil {
			return errorsmod.Wrap(ErrMalformedPacket, err.Error())
		}
		if _, ok := seen[id]; ok {
			return errorsmod.Wrapf(ErrMalformedPacket, "duplicate token id %q", id)
		}
		seen[id] = struct{}{}
	}
	if d.Sender == "" {
		return errorsmod.Wrap(ErrMalformedPacket, "sender address cannot be blank")
	}
	if d.Receiver == "" {
		return errorsmod.Wrap(ErrMalformedPacket, "receiver address cannot be blank")
	}
	return nil
}

// Tokens zips token ids with their optional uris and data.
func (d NonFungibleTokenPacketData) Tokens() []Token {
	tokens := make([]Token, len(d.TokenIDs))
	for i, id := range d.TokenIDs {
		tokens[i].ID = id
		if i < len(d.TokenURIs) {
			tokens[i].URI = d.TokenURIs[i]
		}
		if i < len(d.TokenData) {
			tokens[i].Data = d.TokenData[i]
		}
	}
	return tokens
}

// GetBytes is a helper for serialising. The output is sorted JSON so both
// ends commit to the same bytes.
func (d NonFungibleTokenPacketData) GetBytes() []byte {
	bz, err := json.Marshal(d)
	if err != nil {
		panic(err)
	}
	return sdk.MustSortJSON(bz)
}

// DecodePacketData decodes and validates raw packet data.
func DecodePacketData(bz []byte) (NonFungibleTokenPacketData, error) {
	var data NonFungibleTokenPacketData
	if err := json.Unmarshal(bz, &data); err != nil {
		return NonFungibleTokenPacketData{}, errorsmod.Wrapf(ErrMalformedPacket, "cannot unmarshal ICS-721 packet data: %s", err)
	}
	if err := data.ValidateBasic(); err != nil {
		return NonFungibleTokenPacketData{}, err
	}
	return data, nil
}
