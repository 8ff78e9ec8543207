package chain

import (
	"github.com/cosmos/cosmos-sdk/store/prefix"
	sdk "github.com/cosmos/cosmos-sdk/types"
	host "github.com/cosmos/ibc-go/v7/modules/core/24-host"
)

// SetAcknowledgement overwrites the acknowledgement a relayer reads for a
// received packet.
func (t *Transport) SetAcknowledgement(ctx sdk.Context, portID, channelID string, sequence uint64, ack []byte) {
	key := host.PacketAcknowledgementKey(portID, channelID, sequence)
	prefix.NewStore(ctx.KVStore(t.storeKey), ackIndexPrefix).Set(key, ack)
}
