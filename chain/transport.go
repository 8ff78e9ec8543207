package chain

import (
	"bytes"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/store/prefix"
	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v7/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"
	host "github.com/cosmos/ibc-go/v7/modules/core/24-host"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/ics721/types"
)

// connectionID is the only connection; clients and connections are not
// emulated.
const connectionID = "connection-0"

var (
	// sentPacketPrefix indexes full packets by commitment key so a Path can
	// relay them. A real relayer reads them from send_packet events.
	sentPacketPrefix = []byte("relay/packets/")
	// ackIndexPrefix indexes written acknowledgements by commitment key.
	ackIndexPrefix = []byte("relay/acks/")
)

// IBCModule is the application bound to the transfer port.
type IBCModule interface {
	OnChanOpenInit(ctx sdk.Context, order channeltypes.Order, portID, channelID string, counterparty channeltypes.Counterparty, version string) (string, error)
	OnChanOpenTry(ctx sdk.Context, order channeltypes.Order, portID, channelID string, counterparty channeltypes.Counterparty, counterpartyVersion string) (string, error)
	OnChanOpenAck(ctx sdk.Context, portID, channelID, counterpartyChannelID, counterpartyVersion string) error
	OnChanOpenConfirm(ctx sdk.Context, portID, channelID string) error
	OnChanCloseInit(ctx sdk.Context, portID, channelID string) error
	OnRecvPacket(ctx sdk.Context, packet channeltypes.Packet) channeltypes.Acknowledgement
	OnAcknowledgementPacket(ctx sdk.Context, packet channeltypes.Packet, acknowledgement []byte) error
	OnTimeoutPacket(ctx sdk.Context, packet channeltypes.Packet) error
}

// Transport is a minimal stand-in for IBC core: channel ends, send
// sequences, packet commitments, receipts and acknowledgements, stored with
// the ICS-24 key layout. Proofs are not verified; the Path relaying between
// two chains is trusted.
type Transport struct {
	log      *zap.Logger
	storeKey storetypes.StoreKey
	app      IBCModule
}

// NewTransport returns a transport storing its state under storeKey.
func NewTransport(log *zap.Logger, storeKey storetypes.StoreKey) *Transport {
	return &Transport{log: log, storeKey: storeKey}
}

// GetChannel returns a channel end.
func (t *Transport) GetChannel(ctx sdk.Context, portID, channelID string) (channeltypes.Channel, bool) {
	bz := ctx.KVStore(t.storeKey).Get(host.ChannelKey(portID, channelID))
	if bz == nil {
		return channeltypes.Channel{}, false
	}
	var channel channeltypes.Channel
	types.ModuleCdc.MustUnmarshal(bz, &channel)
	return channel, true
}

func (t *Transport) setChannel(ctx sdk.Context, portID, channelID string, channel channeltypes.Channel) {
	ctx.KVStore(t.storeKey).Set(host.ChannelKey(portID, channelID), types.ModuleCdc.MustMarshal(&channel))
}

// Channels lists the channel ends of portID.
func (t *Transport) Channels(ctx sdk.Context, portID string) []channeltypes.IdentifiedChannel {
	p := []byte(fmt.Sprintf("%s/%s/%s/", host.KeyChannelEndPrefix, host.KeyPortPrefix, portID))
	iterator := prefix.NewStore(ctx.KVStore(t.storeKey), p).Iterator(nil, nil)
	defer iterator.Close()

	var out []channeltypes.IdentifiedChannel
	for ; iterator.Valid(); iterator.Next() {
		var channel channeltypes.Channel
		types.ModuleCdc.MustUnmarshal(iterator.Value(), &channel)
		channelID := string(bytes.TrimPrefix(iterator.Key(), []byte(host.KeyChannelPrefix+"/")))
		out = append(out, channeltypes.NewIdentifiedChannel(portID, channelID, channel))
	}
	return out
}

func (t *Transport) nextChannelID(ctx sdk.Context) string {
	store := ctx.KVStore(t.storeKey)
	var seq uint64
	if bz := store.Get([]byte(channeltypes.KeyNextChannelSequence)); bz != nil {
		seq = sdk.BigEndianToUint64(bz)
	}
	store.Set([]byte(channeltypes.KeyNextChannelSequence), sdk.Uint64ToBigEndian(seq+1))
	return channeltypes.FormatChannelIdentifier(seq)
}

func (t *Transport) nextSequenceSend(ctx sdk.Context, portID, channelID string) uint64 {
	bz := ctx.KVStore(t.storeKey).Get(host.NextSequenceSendKey(portID, channelID))
	if bz == nil {
		return 1
	}
	return sdk.BigEndianToUint64(bz)
}

// ChanOpenInit starts the handshake on this chain and returns the new
// channel id.
func (t *Transport) ChanOpenInit(ctx sdk.Context, portID, counterpartyPortID, version string) (string, error) {
	channelID := t.nextChannelID(ctx)
	counterparty := channeltypes.NewCounterparty(counterpartyPortID, "")
	version, err := t.app.OnChanOpenInit(ctx, channeltypes.UNORDERED, portID, channelID, counterparty, version)
	if err != nil {
		return "", err
	}
	t.setChannel(ctx, portID, channelID, channeltypes.NewChannel(channeltypes.INIT, channeltypes.UNORDERED, counterparty, []string{connectionID}, version))
	return channelID, nil
}

// ChanOpenTry answers the counterparty's init and returns the new channel id.
func (t *Transport) ChanOpenTry(ctx sdk.Context, portID, counterpartyPortID, counterpartyChannelID, counterpartyVersion string) (string, string, error) {
	channelID := t.nextChannelID(ctx)
	counterparty := channeltypes.NewCounterparty(counterpartyPortID, counterpartyChannelID)
	version, err := t.app.OnChanOpenTry(ctx, channeltypes.UNORDERED, portID, channelID, counterparty, counterpartyVersion)
	if err != nil {
		return "", "", err
	}
	t.setChannel(ctx, portID, channelID, channeltypes.NewChannel(channeltypes.TRYOPEN, channeltypes.UNORDERED, counterparty, []string{connectionID}, version))
	return channelID, version, nil
}

// ChanOpenAck opens the channel on the initiating side.
func (t *Transport) ChanOpenAck(ctx sdk.Context, portID, channelID, counterpartyChannelID, counterpartyVersion string) error {
	channel, found := t.GetChannel(ctx, portID, channelID)
	if !found || channel.State != channeltypes.INIT {
		return errorsmod.Wrapf(channeltypes.ErrInvalidChannelState, "channel %s is not in INIT", channelID)
	}
	if err := t.app.OnChanOpenAck(ctx, portID, channelID, counterpartyChannelID, counterpartyVersion); err != nil {
		return err
	}
	channel.State = channeltypes.OPEN
	channel.Version = counterpartyVersion
	channel.Counterparty.ChannelId = counterpartyChannelID
	t.setChannel(ctx, portID, channelID, channel)
	return nil
}

// ChanOpenConfirm opens the channel on the answering side.
func (t *Transport) ChanOpenConfirm(ctx sdk.Context, portID, channelID string) error {
	channel, found := t.GetChannel(ctx, portID, channelID)
	if !found || channel.State != channeltypes.TRYOPEN {
		return errorsmod.Wrapf(channeltypes.ErrInvalidChannelState, "channel %s is not in TRYOPEN", channelID)
	}
	if err := t.app.OnChanOpenConfirm(ctx, portID, channelID); err != nil {
		return err
	}
	channel.State = channeltypes.OPEN
	t.setChannel(ctx, portID, channelID, channel)
	return nil
}

// ChanCloseInit asks the application to close the channel.
func (t *Transport) ChanCloseInit(ctx sdk.Context, portID, channelID string) error {
	channel, found := t.GetChannel(ctx, portID, channelID)
	if !found {
		return errorsmod.Wrapf(channeltypes.ErrChannelNotFound, "port ID (%s) channel ID (%s)", portID, channelID)
	}
	if err := t.app.OnChanCloseInit(ctx, portID, channelID); err != nil {
		return err
	}
	channel.State = channeltypes.CLOSED
	t.setChannel(ctx, portID, channelID, channel)
	return nil
}

// SendPacket commits a packet on an open channel and returns its sequence.
func (t *Transport) SendPacket(
	ctx sdk.Context,
	sourcePort, sourceChannel string,
	timeoutHeight clienttypes.Height,
	timeoutTimestamp uint64,
	data []byte,
) (uint64, error) {
	channel, found := t.GetChannel(ctx, sourcePort, sourceChannel)
	if !found {
		return 0, errorsmod.Wrapf(channeltypes.ErrChannelNotFound, "port ID (%s) channel ID (%s)", sourcePort, sourceChannel)
	}
	if channel.State != channeltypes.OPEN {
		return 0, errorsmod.Wrapf(channeltypes.ErrInvalidChannelState, "channel is not OPEN (got %s)", channel.State)
	}

	sequence := t.nextSequenceSend(ctx, sourcePort, sourceChannel)
	packet := channeltypes.NewPacket(data, sequence, sourcePort, sourceChannel,
		channel.Counterparty.PortId, channel.Counterparty.ChannelId, timeoutHeight, timeoutTimestamp)
	if err := packet.ValidateBasic(); err != nil {
		return 0, errorsmod.Wrap(err, "constructed packet failed basic validation")
	}

	store := ctx.KVStore(t.storeKey)
	commitmentKey := host.PacketCommitmentKey(sourcePort, sourceChannel, sequence)
	store.Set(commitmentKey, channeltypes.CommitPacket(types.ModuleCdc, packet))
	prefix.NewStore(store, sentPacketPrefix).Set(commitmentKey, types.ModuleCdc.MustMarshal(&packet))
	store.Set(host.NextSequenceSendKey(sourcePort, sourceChannel), sdk.Uint64ToBigEndian(sequence+1))
	t.log.Debug("Committed packet",
		zap.String("src_channel", sourceChannel),
		zap.String("dst_channel", packet.DestinationChannel),
		zap.Uint64("sequence", sequence),
	)

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		channeltypes.EventTypeSendPacket,
		sdk.NewAttribute(channeltypes.AttributeKeySequence, fmt.Sprintf("%d", sequence)),
		sdk.NewAttribute(channeltypes.AttributeKeySrcChannel, sourceChannel),
		sdk.NewAttribute(channeltypes.AttributeKeyDstChannel, packet.DestinationChannel),
	))
	return sequence, nil
}

// Timeout reports whether a packet can no longer be received at height
// and time.
func Timeout(packet channeltypes.Packet, height clienttypes.Height, timestamp uint64) bool {
	if !packet.TimeoutHeight.IsZero() && height.GTE(packet.TimeoutHeight) {
		return true
	}
	return packet.TimeoutTimestamp != 0 && timestamp >= packet.TimeoutTimestamp
}

// RecvPacket delivers a packet to the application and writes its
// acknowledgement. A packet is received at most once.
func (t *Transport) RecvPacket(ctx sdk.Context, packet channeltypes.Packet) ([]byte, error) {
	channel, found := t.GetChannel(ctx, packet.DestinationPort, packet.DestinationChannel)
	if !found {
		return nil, errorsmod.Wrapf(channeltypes.ErrChannelNotFound, "port ID (%s) channel ID (%s)", packet.DestinationPort, packet.DestinationChannel)
	}
	if channel.State != channeltypes.OPEN {
		return nil, errorsmod.Wrapf(channeltypes.ErrInvalidChannelState, "channel is not OPEN (got %s)", channel.State)
	}
	if channel.Counterparty.PortId != packet.SourcePort || channel.Counterparty.ChannelId != packet.SourceChannel {
		return nil, errorsmod.Wrapf(channeltypes.ErrInvalidPacket, "packet source %s/%s does not match counterparty", packet.SourcePort, packet.SourceChannel)
	}
	selfHeight := clienttypes.NewHeight(0, uint64(ctx.BlockHeight()))
	if Timeout(packet, selfHeight, uint64(ctx.BlockTime().UnixNano())) {
		return nil, errorsmod.Wrapf(channeltypes.ErrPacketTimeout, "packet %d timed out at height %s", packet.Sequence, selfHeight)
	}

	store := ctx.KVStore(t.storeKey)
	receiptKey := host.PacketReceiptKey(packet.DestinationPort, packet.DestinationChannel, packet.Sequence)
	if store.Has(receiptKey) {
		return nil, errorsmod.Wrapf(channeltypes.ErrNoOpMsg, "packet %d already received", packet.Sequence)
	}
	store.Set(receiptKey, []byte{byte(1)})

	ack := t.app.OnRecvPacket(ctx, packet)
	bz := ack.Acknowledgement()
	ackKey := host.PacketAcknowledgementKey(packet.DestinationPort, packet.DestinationChannel, packet.Sequence)
	store.Set(ackKey, channeltypes.CommitAcknowledgement(bz))
	prefix.NewStore(store, ackIndexPrefix).Set(ackKey, bz)

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		channeltypes.EventTypeWriteAck,
		sdk.NewAttribute(channeltypes.AttributeKeySequence, fmt.Sprintf("%d", packet.Sequence)),
		sdk.NewAttribute(channeltypes.AttributeKeyDstChannel, packet.DestinationChannel),
	))
	return bz, nil
}

// HasReceipt reports whether the packet was received on this chain.
func (t *Transport) HasReceipt(ctx sdk.Context, portID, channelID string, sequence uint64) bool {
	return ctx.KVStore(t.storeKey).Has(host.PacketReceiptKey(portID, channelID, sequence))
}

// GetAcknowledgement returns the acknowledgement written for a received packet.
func (t *Transport) GetAcknowledgement(ctx sdk.Context, portID, channelID string, sequence uint64) ([]byte, bool) {
	bz := prefix.NewStore(ctx.KVStore(t.storeKey), ackIndexPrefix).Get(host.PacketAcknowledgementKey(portID, channelID, sequence))
	return bz, bz != nil
}

func (t *Transport) verifyCommitment(ctx sdk.Context, packet channeltypes.Packet) error {
	commitment := ctx.KVStore(t.storeKey).Get(host.PacketCommitmentKey(packet.SourcePort, packet.SourceChannel, packet.Sequence))
	if commitment == nil {
		return errorsmod.Wrapf(channeltypes.ErrNoOpMsg, "packet %d already acknowledged or timed out", packet.Sequence)
	}
	if !bytes.Equal(commitment, channeltypes.CommitPacket(types.ModuleCdc, packet)) {
		return errorsmod.Wrapf(channeltypes.ErrInvalidPacket, "commitment bytes are not equal: got (%v), expected (%v)", channeltypes.CommitPacket(types.ModuleCdc, packet), commitment)
	}
	return nil
}

func (t *Transport) deleteCommitment(ctx sdk.Context, packet channeltypes.Packet) {
	key := host.PacketCommitmentKey(packet.SourcePort, packet.SourceChannel, packet.Sequence)
	store := ctx.KVStore(t.storeKey)
	store.Delete(key)
	prefix.NewStore(store, sentPacketPrefix).Delete(key)
}

// AcknowledgePacket hands the counterparty acknowledgement to the application.
func (t *Transport) AcknowledgePacket(ctx sdk.Context, packet channeltypes.Packet, acknowledgement []byte) error {
	if err := t.verifyCommitment(ctx, packet); err != nil {
		return err
	}
	if err := t.app.OnAcknowledgementPacket(ctx, packet, acknowledgement); err != nil {
		return err
	}
	t.deleteCommitment(ctx, packet)
	ctx.EventManager().EmitEvent(sdk.NewEvent(
		channeltypes.EventTypeAcknowledgePacket,
		sdk.NewAttribute(channeltypes.AttributeKeySequence, fmt.Sprintf("%d", packet.Sequence)),
		sdk.NewAttribute(channeltypes.AttributeKeySrcChannel, packet.SourceChannel),
	))
	return nil
}

// TimeoutPacket hands a packet that timed out on the counterparty back to
// the application.
func (t *Transport) TimeoutPacket(ctx sdk.Context, packet channeltypes.Packet) error {
	if err := t.verifyCommitment(ctx, packet); err != nil {
		return err
	}
	if err := t.app.OnTimeoutPacket(ctx, packet); err != nil {
		return err
	}
	t.deleteCommitment(ctx, packet)
	ctx.EventManager().EmitEvent(sdk.NewEvent(
		channeltypes.EventTypeTimeoutPacket,
		sdk.NewAttribute(channeltypes.AttributeKeySequence, fmt.Sprintf("%d", packet.Sequence)),
		sdk.NewAttribute(channeltypes.AttributeKeySrcChannel, packet.SourceChannel),
	))
	return nil
}

// CommittedPackets lists the packets sent on a channel that were neither
// acknowledged nor timed out, ordered by sequence.
func (t *Transport) CommittedPackets(ctx sdk.Context, portID, channelID string) []channeltypes.Packet {
	p := host.PacketCommitmentPrefixPath(portID, channelID)
	store := prefix.NewStore(prefix.NewStore(ctx.KVStore(t.storeKey), sentPacketPrefix), []byte(p+"/"))
	iterator := store.Iterator(nil, nil)
	defer iterator.Close()

	var out []channeltypes.Packet
	for ; iterator.Valid(); iterator.Next() {
		var packet channeltypes.Packet
		types.ModuleCdc.MustUnmarshal(iterator.Value(), &packet)
		out = append(out, packet)
	}
	sortPackets(out)
	return out
}
