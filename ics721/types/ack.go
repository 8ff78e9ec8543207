package types

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"
)

// ModuleCdc is used to JSON encode acknowledgements and to store IBC types.
var ModuleCdc = codec.NewProtoCodec(codectypes.NewInterfaceRegistry())

// SuccessResult is the result written in a success acknowledgement: 0x01,
// which encodes to "AQ==".
var SuccessResult = []byte{byte(1)}

// NewSuccessAcknowledgement returns the acknowledgement written for every
// packet that was fully applied.
func NewSuccessAcknowledgement() channeltypes.Acknowledgement {
	return channeltypes.NewResultAcknowledgement(SuccessResult)
}

// NewErrorAcknowledgement converts err into an error acknowledgement.
// Unlike ibc-go, the reason is kept so operators can tell why a transfer
// bounced; the ABCI codespace and code lead the message.
func NewErrorAcknowledgement(err error) channeltypes.Acknowledgement {
	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	return channeltypes.Acknowledgement{
		Response: &channeltypes.Acknowledgement_Error{
			Error: fmt.Sprintf("ABCI code %s/%d: %s", codespace, code, err.Error()),
		},
	}
}

// UnmarshalAcknowledgement decodes the JSON acknowledgement relayed back from
// the counterparty.
func UnmarshalAcknowledgement(bz []byte) (channeltypes.Acknowledgement, error) {
	var ack channeltypes.Acknowledgement
	if err := ModuleCdc.UnmarshalJSON(bz, &ack); err != nil {
		return channeltypes.Acknowledgement{}, errorsmod.Wrapf(ErrInvalidAcknowledgement, "cannot unmarshal ICS-721 packet acknowledgement: %v", err)
	}
	if err := ack.ValidateBasic(); err != nil {
		return channeltypes.Acknowledgement{}, errorsmod.Wrap(ErrInvalidAcknowledgement, err.Error())
	}
	return ack, nil
}
