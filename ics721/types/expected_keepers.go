package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v7/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"

	"github.com/cosmos/ics721/ics721/nft"
)

// NFTKeeper defines the expected NFT ledger.
type NFTKeeper interface {
	CreateReceiptCollection(ctx sdk.Context, c nft.Collection) error
	GetCollection(ctx sdk.Context, contract string) (nft.Collection, bool)
	GetToken(ctx sdk.Context, contract, tokenID string) (nft.Token, error)
	NumTokens(ctx sdk.Context, contract string) uint64
	Mint(ctx sdk.Context, contract, minter string, t nft.Token) error
	Burn(ctx sdk.Context, contract, caller, tokenID string) error
	Transfer(ctx sdk.Context, contract, caller, tokenID, recipient string) error
	GetReceiveCallback(addr string) (nft.ReceiveCallback, bool)
}

// ChannelKeeper defines the expected IBC channel keeper.
type ChannelKeeper interface {
	GetChannel(ctx sdk.Context, portID, channelID string) (channeltypes.Channel, bool)
}

// ICS4Wrapper defines the expected packet sender, i.e. the IBC core
// channel keeper or a middleware wrapping it.
type ICS4Wrapper interface {
	SendPacket(
		ctx sdk.Context,
		sourcePort, sourceChannel string,
		timeoutHeight clienttypes.Height,
		timeoutTimestamp uint64,
		data []byte,
	) (sequence uint64, err error)
}
