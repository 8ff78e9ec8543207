package keeper

import (
	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"
	"go.uber.org/zap"

	"github.com/cosmos/ics721/ics721/types"
)

// validateChannelParams does validation of a newly created ICS-721 channel.
// ICS-721 channels are unordered: an out of order ack would otherwise
// block every later transfer on the channel.
func validateChannelParams(order channeltypes.Order, portID, boundPort string) error {
	if order != channeltypes.UNORDERED {
		return errorsmod.Wrapf(types.ErrInvalidChannelOrder, "expected %s channel, got %s", channeltypes.UNORDERED, order)
	}
	if portID != boundPort {
		return errorsmod.Wrapf(types.ErrUnknownChannel, "invalid port: %s, expected %s", portID, boundPort)
	}
	return nil
}

// OnChanOpenInit implements the channel handshake callback. An empty version
// selects the current ICS-721 version.
func (k *Keeper) OnChanOpenInit(
	ctx sdk.Context,
	order channeltypes.Order,
	portID string,
	channelID string,
	counterparty channeltypes.Counterparty,
	version string,
) (string, error) {
	if err := validateChannelParams(order, portID, k.GetPort(ctx)); err != nil {
		return "", err
	}
	if version == "" {
		version = types.Version
	}
	if version != types.Version {
		return "", errorsmod.Wrapf(types.ErrInvalidVersion, "got %s, expected %s", version, types.Version)
	}
	k.Logger(ctx).Debug("Channel open init",
		zap.String("channel", channelID),
		zap.String("counterparty_port", counterparty.PortId),
	)
	return version, nil
}

// OnChanOpenTry implements the channel handshake callback.
func (k *Keeper) OnChanOpenTry(
	ctx sdk.Context,
	order channeltypes.Order,
	portID string,
	channelID string,
	counterparty channeltypes.Counterparty,
	counterpartyVersion string,
) (string, error) {
	if err := validateChannelParams(order, portID, k.GetPort(ctx)); err != nil {
		return "", err
	}
	if counterpartyVersion != types.Version {
		return "", errorsmod.Wrapf(types.ErrInvalidVersion, "invalid counterparty version: got: %s, expected %s", counterpartyVersion, types.Version)
	}
	k.Logger(ctx).Debug("Channel open try",
		zap.String("channel", channelID),
		zap.String("counterparty_channel", counterparty.ChannelId),
	)
	return types.Version, nil
}

// OnChanOpenAck implements the channel handshake callback.
func (k *Keeper) OnChanOpenAck(
	ctx sdk.Context,
	portID string,
	channelID string,
	counterpartyChannelID string,
	counterpartyVersion string,
) error {
	if counterpartyVersion != types.Version {
		return errorsmod.Wrapf(types.ErrInvalidVersion, "invalid counterparty version: %s, expected %s", counterpartyVersion, types.Version)
	}
	k.Logger(ctx).Info("Opened ICS-721 channel",
		zap.String("port", portID),
		zap.String("channel", channelID),
		zap.String("counterparty_channel", counterpartyChannelID),
	)
	return nil
}

// OnChanOpenConfirm implements the channel handshake callback.
func (k *Keeper) OnChanOpenConfirm(ctx sdk.Context, portID, channelID string) error {
	k.Logger(ctx).Info("Opened ICS-721 channel",
		zap.String("port", portID),
		zap.String("channel", channelID),
	)
	return nil
}

// OnChanCloseInit refuses to close the channel: escrowed NFTs could
// never come back.
func (k *Keeper) OnChanCloseInit(sdk.Context, string, string) error {
	return errorsmod.Wrap(types.ErrCannotCloseChannel, "user cannot close channel")
}

// OnChanCloseConfirm implements the channel handshake callback. A
// counterparty initiated close cannot be prevented.
func (k *Keeper) OnChanCloseConfirm(ctx sdk.Context, portID, channelID string) error {
	k.Logger(ctx).Warn("ICS-721 channel closed by counterparty",
		zap.String("port", portID),
		zap.String("channel", channelID),
	)
	return nil
}
