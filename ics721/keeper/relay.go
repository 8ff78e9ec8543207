package keeper

import (
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/ics721/gate"
	"github.com/cosmos/ics721/ics721/nft"
	"github.com/cosmos/ics721/ics721/types"
)

// SendTransfer handles an ICS-721 transfer request.
//
// The NFTs are escrowed by the module account unless they are receipts
// returning home through the channel their class came from, in which case
// they are burned.
//
// NOTE: the ownership checks and the outgoing gate run before any
// mutation. All errors abort the transaction.
func (k *Keeper) SendTransfer(ctx sdk.Context, msg types.MsgTransfer) (types.TransferHandle, error) {
	if err := msg.ValidateBasic(); err != nil {
		return types.TransferHandle{}, err
	}
	if err := k.errorIfPaused(ctx); err != nil {
		return types.TransferHandle{}, err
	}
	if msg.Sender == k.escrow {
		return types.TransferHandle{}, errorsmod.Wrap(types.ErrUnauthorized, "escrowed tokens cannot be sent")
	}

	channel, found := k.channelKeeper.GetChannel(ctx, msg.SourcePort, msg.SourceChannel)
	if !found {
		return types.TransferHandle{}, errorsmod.Wrapf(types.ErrUnknownChannel, "port ID (%s) channel ID (%s)", msg.SourcePort, msg.SourceChannel)
	}
	if channel.State != channeltypes.OPEN {
		return types.TransferHandle{}, errorsmod.Wrapf(types.ErrUnknownChannel, "channel %s is %s, expected OPEN", msg.SourceChannel, channel.State)
	}

	classID, err := k.resolveClassID(ctx, msg.Contract)
	if err != nil {
		return types.TransferHandle{}, err
	}

	tokens := make([]types.Token, 0, len(msg.TokenIDs))
	for _, tokenID := range msg.TokenIDs {
		t, err := k.nftKeeper.GetToken(ctx, msg.Contract, tokenID)
		if err != nil {
			return types.TransferHandle{}, err
		}
		if t.Owner != msg.Sender {
			return types.TransferHandle{}, errorsmod.Wrapf(types.ErrNotOwner, "%s does not own token %s of %s", msg.Sender, tokenID, msg.Contract)
		}
		tokens = append(tokens, types.Token{ID: t.ID, URI: t.URI, Data: t.Data})
	}

	outgoing, err := k.OutgoingGate(ctx)
	if err != nil {
		return types.TransferHandle{}, err
	}
	if err := outgoing.DecideOutgoing(ctx, gate.OutgoingRequest{
		PortID:    msg.SourcePort,
		ChannelID: msg.SourceChannel,
		Contract:  msg.Contract,
		ClassID:   classID,
		TokenIDs:  msg.TokenIDs,
		Sender:    msg.Sender,
	}); err != nil {
		k.metrics.IncGateRejections(ctx.ChainID(), msg.SourceChannel, "outgoing")
		return types.TransferHandle{}, err
	}

	action := k.sendAction(ctx, msg.Contract, msg.SourcePort, msg.SourceChannel, classID)

	for _, t := range tokens {
		switch action {
		case types.ActionEscrow:
			if err := k.nftKeeper.Transfer(ctx, msg.Contract, msg.Sender, t.ID, k.escrow); err != nil {
				return types.TransferHandle{}, errorsmod.Wrapf(err, "escrowing token %s", t.ID)
			}
			k.setOutgoingChannel(ctx, classID, t.ID, msg.SourceChannel)
		case types.ActionBurn:
			if err := k.nftKeeper.Burn(ctx, msg.Contract, msg.Sender, t.ID); err != nil {
				return types.TransferHandle{}, errorsmod.Wrapf(err, "burning token %s", t.ID)
			}
			k.deleteIncomingChannel(ctx, classID, t.ID)
		}
	}

	classURI, classData := k.classInfo(ctx, classID, msg.Contract)
	data := types.NewNonFungibleTokenPacketData(classID, classURI, classData, tokens, msg.Sender, msg.Receiver, msg.Memo)

	sequence, err := k.ics4Wrapper.SendPacket(ctx, msg.SourcePort, msg.SourceChannel, msg.TimeoutHeight, msg.TimeoutTimestamp, data.GetBytes())
	if err != nil {
		return types.TransferHandle{}, err
	}

	handle := types.TransferHandle{PortID: msg.SourcePort, ChannelID: msg.SourceChannel, Sequence: sequence}
	k.setPendingTransfer(ctx, types.PendingTransfer{
		Handle:   handle,
		ClassID:  classID,
		Contract: msg.Contract,
		TokenIDs: msg.TokenIDs,
		Sender:   msg.Sender,
		Receiver: msg.Receiver,
		Action:   action,
		Height:   ctx.BlockHeight(),
	})

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeTransfer,
		sdk.NewAttribute(types.AttributeKeySender, msg.Sender),
		sdk.NewAttribute(types.AttributeKeyReceiver, msg.Receiver),
		sdk.NewAttribute(types.AttributeKeyClassID, classID),
		sdk.NewAttribute(types.AttributeKeyContract, msg.Contract),
		sdk.NewAttribute(types.AttributeKeyTokenIDs, strings.Join(msg.TokenIDs, ",")),
		sdk.NewAttribute(types.AttributeKeyChannel, msg.SourceChannel),
		sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(sequence, 10)),
		sdk.NewAttribute(types.AttributeKeyMemo, msg.Memo),
	))

	k.metrics.AddTransfersSent(ctx.ChainID(), msg.SourceChannel, string(action), len(tokens))
	if action == types.ActionEscrow {
		k.metrics.AddEscrowedTokens(ctx.ChainID(), msg.SourceChannel, len(tokens))
	}
	k.Logger(ctx).Info("Sent ICS-721 transfer",
		zap.String("handle", handle.String()),
		zap.String("class_id", classID),
		zap.Strings("token_ids", msg.TokenIDs),
		zap.String("action", string(action)),
	)
	return handle, nil
}

// sendAction decides what SendTransfer does with tokens of contract. Only a
// registered receipt collection travelling back through the channel its
// class came from is burned.
func (k *Keeper) sendAction(ctx sdk.Context, contract, portID, channelID, classID string) types.TransferAction {
	registered, ok := k.GetClassID(ctx, contract)
	if ok && registered == classID && types.ReceiverChainIsSource(portID, channelID, classID) {
		return types.ActionBurn
	}
	return types.ActionEscrow
}

// OnRecvPacket processes an ICS-721 packet. It always returns an
// acknowledgement: a failed receive is converted into an error
// acknowledgement and none of its writes are applied.
func (k *Keeper) OnRecvPacket(ctx sdk.Context, packet channeltypes.Packet) channeltypes.Acknowledgement {
	cacheCtx, writeCache := ctx.CacheContext()

	if err := k.safeReceive(cacheCtx, packet); err != nil {
		ctx.EventManager().EmitEvent(sdk.NewEvent(
			types.EventTypePacket,
			sdk.NewAttribute(types.AttributeKeyChannel, packet.DestinationChannel),
			sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(packet.Sequence, 10)),
			sdk.NewAttribute(types.AttributeKeyAckResult, "false"),
			sdk.NewAttribute(types.AttributeKeyAckError, err.Error()),
		))
		k.metrics.IncPacketsReceived(ctx.ChainID(), packet.DestinationChannel, "error")
		k.Logger(ctx).Info("Rejected ICS-721 packet",
			zap.String("channel", packet.DestinationChannel),
			zap.Uint64("sequence", packet.Sequence),
			zap.Error(err),
		)
		return types.NewErrorAcknowledgement(err)
	}

	writeCache()
	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypePacket,
		sdk.NewAttribute(types.AttributeKeyChannel, packet.DestinationChannel),
		sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(packet.Sequence, 10)),
		sdk.NewAttribute(types.AttributeKeyAckResult, "true"),
	))
	k.metrics.IncPacketsReceived(ctx.ChainID(), packet.DestinationChannel, "success")
	return types.NewSuccessAcknowledgement()
}

// safeReceive converts panics raised by collection hooks into errors.
func (k *Keeper) safeReceive(ctx sdk.Context, packet channeltypes.Packet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errorsmod.Wrapf(types.ErrReceiverExecution, "panic: %v", r)
		}
	}()
	return k.receive(ctx, packet)
}

func (k *Keeper) receive(ctx sdk.Context, packet channeltypes.Packet) error {
	if err := k.errorIfPaused(ctx); err != nil {
		return err
	}
	data, err := types.DecodePacketData(packet.GetData())
	if err != nil {
		return err
	}
	if data.Receiver == k.escrow {
		return errorsmod.Wrap(types.ErrUnauthorized, "receiver cannot be the escrow account")
	}

	incoming, err := k.IncomingGate(ctx)
	if err != nil {
		return err
	}
	if err := incoming.DecideIncoming(ctx, gate.IncomingRequest{
		PortID:                packet.DestinationPort,
		ChannelID:             packet.DestinationChannel,
		CounterpartyPortID:    packet.SourcePort,
		CounterpartyChannelID: packet.SourceChannel,
		ClassID:               data.ClassID,
		Sender:                data.Sender,
		Receiver:              data.Receiver,
	}); err != nil {
		k.metrics.IncGateRejections(ctx.ChainID(), packet.DestinationChannel, "incoming")
		ctx.EventManager().EmitEvent(sdk.NewEvent(
			types.EventTypeGateRejection,
			sdk.NewAttribute(types.AttributeKeyDirection, "incoming"),
			sdk.NewAttribute(types.AttributeKeyChannel, packet.DestinationChannel),
			sdk.NewAttribute(types.AttributeKeyClassID, data.ClassID),
		))
		return err
	}

	// A token is returning home when the class id carries the counterparty
	// prefix and the token left through this very channel.
	unprefixed, returning := types.TrimClassPrefix(packet.SourcePort, packet.SourceChannel, data.ClassID)
	var redemptions, creations []types.Token
	for _, t := range data.Tokens() {
		if returning {
			if ch, ok := k.GetOutgoingChannel(ctx, unprefixed, t.ID); ok && ch == packet.DestinationChannel {
				redemptions = append(redemptions, t)
				continue
			}
		}
		creations = append(creations, t)
	}

	var (
		localClassID string
		contract     string
	)
	switch {
	case len(redemptions) > 0 && len(creations) > 0:
		return errorsmod.Wrapf(types.ErrMixedTransfer, "%d tokens return home and %d are new", len(redemptions), len(creations))
	case len(redemptions) > 0:
		localClassID = unprefixed
		contract, err = k.redeem(ctx, packet, data, localClassID, redemptions)
	default:
		localClassID = types.GetClassPrefix(packet.DestinationPort, packet.DestinationChannel) + data.ClassID
		contract, err = k.mintReceipts(ctx, packet, data, localClassID, creations)
	}
	if err != nil {
		return err
	}

	if cb, ok := data.GetReceiveCallback(); ok {
		return k.callReceiveCallback(ctx, cb, nft.ReceiveCallbackMsg{
			Contract: contract,
			ClassID:  localClassID,
			TokenIDs: data.TokenIDs,
			Sender:   data.Sender,
			Receiver: data.Receiver,
			Msg:      cb.Data,
		})
	}
	return nil
}

// callReceiveCallback runs the callback a memo asked for. It shares the
// context of the delivery, so a failing callback undoes the delivery too.
func (k *Keeper) callReceiveCallback(ctx sdk.Context, cb types.ReceiveCallback, msg nft.ReceiveCallbackMsg) error {
	callback, ok := k.nftKeeper.GetReceiveCallback(cb.Addr)
	if !ok {
		return errorsmod.Wrapf(types.ErrReceiverExecution, "no receive callback at %s", cb.Addr)
	}
	if err := callback.OnReceive(ctx, msg); err != nil {
		return errorsmod.Wrapf(types.ErrReceiverExecution, "receive callback %s: %v", cb.Addr, err)
	}
	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeCallback,
		sdk.NewAttribute(types.AttributeKeyContract, cb.Addr),
		sdk.NewAttribute(types.AttributeKeyClassID, msg.ClassID),
		sdk.NewAttribute(types.AttributeKeyTokenIDs, strings.Join(msg.TokenIDs, ",")),
	))
	return nil
}

// redeem releases escrowed NFTs to the receiver.
func (k *Keeper) redeem(ctx sdk.Context, packet channeltypes.Packet, data types.NonFungibleTokenPacketData, classID string, tokens []types.Token) (string, error) {
	contract, err := k.resolveContract(ctx, classID)
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if err := k.nftKeeper.Transfer(ctx, contract, k.escrow, t.ID, data.Receiver); err != nil {
			return "", errorsmod.Wrapf(types.ErrReceiverExecution, "releasing token %s of %s: %v", t.ID, contract, err)
		}
		k.deleteOutgoingChannel(ctx, classID, t.ID)
		ids = append(ids, t.ID)
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeRedemption,
		sdk.NewAttribute(types.AttributeKeyClassID, classID),
		sdk.NewAttribute(types.AttributeKeyContract, contract),
		sdk.NewAttribute(types.AttributeKeyTokenIDs, strings.Join(ids, ",")),
		sdk.NewAttribute(types.AttributeKeyReceiver, data.Receiver),
		sdk.NewAttribute(types.AttributeKeyMemo, data.Memo),
	))
	k.metrics.AddEscrowedTokens(ctx.ChainID(), packet.DestinationChannel, -len(tokens))
	return contract, nil
}

// mintReceipts mints receipts of classID to the receiver, instantiating
// the receipt collection on first sight of the class.
func (k *Keeper) mintReceipts(ctx sdk.Context, packet channeltypes.Packet, data types.NonFungibleTokenPacketData, classID string, tokens []types.Token) (string, error) {
	if err := types.ValidateClassID(classID); err != nil {
		return "", errorsmod.Wrap(types.ErrMalformedPacket, err.Error())
	}
	contract, _, err := k.GetOrCreateReceipt(ctx, types.Class{ID: classID, URI: data.ClassURI, Data: data.ClassData})
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		err := k.nftKeeper.Mint(ctx, contract, k.escrow, nft.Token{ID: t.ID, Owner: data.Receiver, URI: t.URI, Data: t.Data})
		if err != nil {
			return "", errorsmod.Wrapf(types.ErrReceiverExecution, "minting token %s of %s: %v", t.ID, contract, err)
		}
		k.setIncomingChannel(ctx, classID, t.ID, packet.DestinationChannel)
		ids = append(ids, t.ID)
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeMint,
		sdk.NewAttribute(types.AttributeKeyClassID, classID),
		sdk.NewAttribute(types.AttributeKeyContract, contract),
		sdk.NewAttribute(types.AttributeKeyTokenIDs, strings.Join(ids, ",")),
		sdk.NewAttribute(types.AttributeKeyReceiver, data.Receiver),
		sdk.NewAttribute(types.AttributeKeyMemo, data.Memo),
	))
	return contract, nil
}

// OnAcknowledgementPacket responds to the success or failure of a packet
// acknowledgement written on the receiving chain. An error acknowledgement
// rolls the transfer back. Tokens that cannot be refunded are reported and
// skipped, never failing the acknowledgement.
func (k *Keeper) OnAcknowledgementPacket(ctx sdk.Context, packet channeltypes.Packet, acknowledgement []byte) error {
	ack, err := types.UnmarshalAcknowledgement(acknowledgement)
	if err != nil {
		return err
	}
	data, err := types.DecodePacketData(packet.GetData())
	if err != nil {
		return err
	}

	handle := types.TransferHandle{PortID: packet.SourcePort, ChannelID: packet.SourceChannel, Sequence: packet.Sequence}
	k.warnIfUnknown(ctx, handle)

	switch resp := ack.Response.(type) {
	case *channeltypes.Acknowledgement_Error:
		refunded := k.refundPacketToken(ctx, packet, data)
		ctx.EventManager().EmitEvent(sdk.NewEvent(
			types.EventTypeRefund,
			sdk.NewAttribute(types.AttributeKeyClassID, data.ClassID),
			sdk.NewAttribute(types.AttributeKeySender, data.Sender),
			sdk.NewAttribute(types.AttributeKeyTokenIDs, strings.Join(refunded, ",")),
			sdk.NewAttribute(types.AttributeKeyAckError, resp.Error),
		))
		k.metrics.IncAcks(ctx.ChainID(), packet.SourceChannel, "error")
		k.Logger(ctx).Info("Refunded transfer after error acknowledgement",
			zap.String("handle", handle.String()),
			zap.Strings("refunded", refunded),
			zap.String("error", resp.Error),
		)
	default:
		k.metrics.IncAcks(ctx.ChainID(), packet.SourceChannel, "success")
	}

	k.deletePendingTransfer(ctx, handle)
	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypePacket,
		sdk.NewAttribute(types.AttributeKeyChannel, packet.SourceChannel),
		sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(packet.Sequence, 10)),
		sdk.NewAttribute(types.AttributeKeyAckResult, strconv.FormatBool(ack.Success())),
	))
	return nil
}

// OnTimeoutPacket rolls back a transfer whose packet was never received.
func (k *Keeper) OnTimeoutPacket(ctx sdk.Context, packet channeltypes.Packet) error {
	data, err := types.DecodePacketData(packet.GetData())
	if err != nil {
		return err
	}
	handle := types.TransferHandle{PortID: packet.SourcePort, ChannelID: packet.SourceChannel, Sequence: packet.Sequence}
	k.warnIfUnknown(ctx, handle)

	refunded := k.refundPacketToken(ctx, packet, data)
	k.deletePendingTransfer(ctx, handle)

	reason := errorsmod.Wrapf(types.ErrTimeout, "packet %s", handle)
	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeTimeout,
		sdk.NewAttribute(types.AttributeKeyClassID, data.ClassID),
		sdk.NewAttribute(types.AttributeKeySender, data.Sender),
		sdk.NewAttribute(types.AttributeKeyTokenIDs, strings.Join(refunded, ",")),
		sdk.NewAttribute(types.AttributeKeyChannel, packet.SourceChannel),
		sdk.NewAttribute(types.AttributeKeyAckError, reason.Error()),
	))
	k.metrics.IncTimeouts(ctx.ChainID(), packet.SourceChannel)
	k.Logger(ctx).Info("Refunded timed out transfer",
		zap.String("handle", handle.String()),
		zap.Strings("refunded", refunded),
		zap.Error(reason),
	)
	return nil
}

// The pending entry is bookkeeping only; the rollback is computed from the
// packet data.
func (k *Keeper) warnIfUnknown(ctx sdk.Context, h types.TransferHandle) {
	if _, ok := k.GetPendingTransfer(ctx, h); !ok {
		k.Logger(ctx).Warn("Rolling back packet anyway", zap.Error(errorsmod.Wrap(types.ErrUnknownTransfer, h.String())))
	}
}

// refundPacketToken reverses SendTransfer: escrowed NFTs go back to the
// sender, burned receipts are minted again with their metadata. Each token
// is refunded on its own; one that fails stays where it is and is reported
// with an EventTypeRefundFailed event. It returns the refunded token ids.
func (k *Keeper) refundPacketToken(ctx sdk.Context, packet channeltypes.Packet, data types.NonFungibleTokenPacketData) []string {
	contract, err := k.resolveContract(ctx, data.ClassID)
	if err != nil {
		for _, id := range data.TokenIDs {
			k.refundFailed(ctx, packet, data, id, err)
		}
		return nil
	}

	action := k.sendAction(ctx, contract, packet.SourcePort, packet.SourceChannel, data.ClassID)
	refunded := make([]string, 0, len(data.TokenIDs))
	for _, t := range data.Tokens() {
		cacheCtx, writeCache := ctx.CacheContext()
		if err := k.safeRefund(cacheCtx, packet, data, action, contract, t); err != nil {
			k.refundFailed(ctx, packet, data, t.ID, err)
			continue
		}
		writeCache()
		refunded = append(refunded, t.ID)
	}
	if action == types.ActionEscrow {
		k.metrics.AddEscrowedTokens(ctx.ChainID(), packet.SourceChannel, -len(refunded))
	}
	return refunded
}

func (k *Keeper) safeRefund(ctx sdk.Context, packet channeltypes.Packet, data types.NonFungibleTokenPacketData, action types.TransferAction, contract string, t types.Token) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errorsmod.Wrapf(types.ErrReceiverExecution, "panic: %v", r)
		}
	}()

	if action == types.ActionEscrow {
		if err := k.nftKeeper.Transfer(ctx, contract, k.escrow, t.ID, data.Sender); err != nil {
			return err
		}
		k.deleteOutgoingChannel(ctx, data.ClassID, t.ID)
		return nil
	}
	if err := k.nftKeeper.Mint(ctx, contract, k.escrow, nft.Token{ID: t.ID, Owner: data.Sender, URI: t.URI, Data: t.Data}); err != nil {
		return err
	}
	k.setIncomingChannel(ctx, data.ClassID, t.ID, packet.SourceChannel)
	return nil
}

func (k *Keeper) refundFailed(ctx sdk.Context, packet channeltypes.Packet, data types.NonFungibleTokenPacketData, tokenID string, err error) {
	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeRefundFailed,
		sdk.NewAttribute(types.AttributeKeyClassID, data.ClassID),
		sdk.NewAttribute(types.AttributeKeySender, data.Sender),
		sdk.NewAttribute(types.AttributeKeyTokenIDs, tokenID),
		sdk.NewAttribute(types.AttributeKeyChannel, packet.SourceChannel),
		sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(packet.Sequence, 10)),
		sdk.NewAttribute(types.AttributeKeyAckError, err.Error()),
	))
	k.metrics.IncRefundFailures(ctx.ChainID(), packet.SourceChannel)
	k.Logger(ctx).Error("Failed to refund token",
		zap.String("class_id", data.ClassID),
		zap.String("token_id", tokenID),
		zap.String("sender", data.Sender),
		zap.Uint64("sequence", packet.Sequence),
		zap.Error(err),
	)
}
