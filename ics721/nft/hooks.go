package nft

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Hooks is the custom logic a collection runs on token movements. It is the
// code of the contract, not its state, so it is bound at start up with
// Keeper.SetHooks. A hook may return an error or panic to veto the movement.
type Hooks interface {
	BeforeMint(ctx sdk.Context, contract, tokenID, owner string) error
	BeforeTransfer(ctx sdk.Context, contract, tokenID, from, to string) error
}

// NoopHooks accepts every movement.
type NoopHooks struct{}

var _ Hooks = NoopHooks{}

func (NoopHooks) BeforeMint(sdk.Context, string, string, string) error { return nil }

func (NoopHooks) BeforeTransfer(sdk.Context, string, string, string, string) error { return nil }

// ReceiveCallback is the code of a contract that asked, through the memo of
// an inbound transfer, to be called once the tokens are delivered. It runs in
// the same atomic unit as the delivery: an error or panic rejects the packet.
type ReceiveCallback interface {
	OnReceive(ctx sdk.Context, msg ReceiveCallbackMsg) error
}

// ReceiveCallbackMsg describes the delivered tokens.
type ReceiveCallbackMsg struct {
	// Contract is the local collection holding the tokens.
	Contract string   `json:"nft_contract"`
	ClassID  string   `json:"class_id"`
	TokenIDs []string `json:"token_ids"`
	Sender   string   `json:"sender"`
	Receiver string   `json:"receiver"`
	// Msg is the opaque payload taken from the memo.
	Msg []byte `json:"msg"`
}
