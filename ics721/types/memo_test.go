package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmos/ics721/ics721/types"
)

func TestGetReceiveCallback(t *testing.T) {
	testCases := []struct {
		name    string
		memo    string
		expOK   bool
		expAddr string
		expData string
	}{
		{"empty memo", "", false, "", ""},
		{"plain text", "gm", false, "", ""},
		{"other json", `{"forward":{"receiver":"carol"}}`, false, "", ""},
		{"no data", `{"callbacks":{"receive_callback_addr":"wasm.market"}}`, false, "", ""},
		{"defaults to receiver", `{"callbacks":{"receive_callback_data":"eyJsaXN0Ijp0cnVlfQ=="}}`, true, "bob", `{"list":true}`},
		{"explicit addr", `{"callbacks":{"receive_callback_data":"eyJsaXN0Ijp0cnVlfQ==","receive_callback_addr":"wasm.market"}}`, true, "wasm.market", `{"list":true}`},
		{"bad base64", `{"callbacks":{"receive_callback_data":"not base64!"}}`, false, "", ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			data := types.NonFungibleTokenPacketData{ClassID: "wasm.punks", TokenIDs: []string{"1"}, Receiver: "bob", Memo: tc.memo}
			cb, ok := data.GetReceiveCallback()
			require.Equal(t, tc.expOK, ok)
			if !tc.expOK {
				return
			}
			require.Equal(t, tc.expAddr, cb.Addr)
			require.Equal(t, tc.expData, string(cb.Data))
		})
	}
}
