package types_test

import (
	"testing"

	clienttypes "github.com/cosmos/ibc-go/v7/modules/core/02-client/types"
	"github.com/stretchr/testify/require"

	"github.com/cosmos/ics721/ics721/types"
)

func TestMsgTransferValidateBasic(t *testing.T) {
	timeout := clienttypes.NewHeight(0, 100)
	testCases := []struct {
		name    string
		msg     types.MsgTransfer
		expPass bool
	}{
		{"valid", types.NewMsgTransfer("nft-transfer", "channel-0", "wasm1c", "1", "alice", "bob", timeout, 0), true},
		{"timestamp only", types.NewMsgTransfer("nft-transfer", "channel-0", "wasm1c", "1", "alice", "bob", clienttypes.ZeroHeight(), 1), true},
		{"invalid port", types.NewMsgTransfer("p", "channel-0", "wasm1c", "1", "alice", "bob", timeout, 0), false},
		{"invalid channel", types.NewMsgTransfer("nft-transfer", "ch", "wasm1c", "1", "alice", "bob", timeout, 0), false},
		{"blank contract", types.NewMsgTransfer("nft-transfer", "channel-0", "", "1", "alice", "bob", timeout, 0), false},
		{"blank token", types.NewMsgTransfer("nft-transfer", "channel-0", "wasm1c", "", "alice", "bob", timeout, 0), false},
		{"blank sender", types.NewMsgTransfer("nft-transfer", "channel-0", "wasm1c", "1", "", "bob", timeout, 0), false},
		{"blank receiver", types.NewMsgTransfer("nft-transfer", "channel-0", "wasm1c", "1", "alice", "", timeout, 0), false},
		{"no timeout", types.NewMsgTransfer("nft-transfer", "channel-0", "wasm1c", "1", "alice", "bob", clienttypes.ZeroHeight(), 0), false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.ValidateBasic()
			if tc.expPass {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestMsgTransferRejectsDuplicateTokens(t *testing.T) {
	msg := types.NewMsgTransfer("nft-transfer", "channel-0", "wasm1c", "1", "alice", "bob", clienttypes.NewHeight(0, 10), 0)
	msg.TokenIDs = append(msg.TokenIDs, "1")
	require.ErrorIs(t, msg.ValidateBasic(), types.ErrInvalidTransferMsg)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, types.DefaultParams().Validate())
	require.NoError(t, types.DefaultGenesisState().Validate())

	p := types.DefaultParams()
	p.Incoming = types.GateConfig{Kind: types.GateRateLimit, Limit: 1, WindowBlocks: 1}
	require.ErrorIs(t, p.Validate(), types.ErrInvalidGateConfig)

	p = types.DefaultParams()
	p.Outgoing = types.GateConfig{Kind: types.GateRateLimit, Limit: 1}
	require.ErrorIs(t, p.Validate(), types.ErrInvalidGateConfig)

	p = types.DefaultParams()
	p.Incoming = types.GateConfig{Kind: types.GateAllowList, Channels: []string{"channel-0", "bogus"}}
	require.ErrorIs(t, p.Validate(), types.ErrInvalidGateConfig)

	p.Incoming = types.GateConfig{Kind: "everything"}
	require.ErrorIs(t, p.Validate(), types.ErrInvalidGateConfig)

	gs := types.DefaultGenesisState()
	gs.PortID = ""
	require.Error(t, gs.Validate())
}
