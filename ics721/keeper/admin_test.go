package keeper_test

import (
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"

	"github.com/cosmos/ics721/ics721/gate"
	"github.com/cosmos/ics721/ics721/keeper"
	"github.com/cosmos/ics721/ics721/nft"
	"github.com/cosmos/ics721/ics721/types"
)

// restrictIncoming restarts chain B with an incoming allow-list that does
// not include the path channel.
func (s *KeeperTestSuite) restrictIncoming() {
	s.chainB = s.newChain("chain-b", func(gs *types.GenesisState) {
		gs.Params.Incoming = types.GateConfig{Kind: types.GateAllowList, Channels: []string{"channel-7"}}
	})
	s.link()
}

func (s *KeeperTestSuite) TestRejectedByIncomingAllowList() {
	s.restrictIncoming()
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)
	before := s.snapshot(s.chainA)

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)

	res := s.relay()
	s.Require().Equal(1, res.Received)
	s.Require().Equal(1, res.Acknowledged)

	ack := s.ackOf(s.chainB, s.path.Dst, 1)
	s.Require().False(ack.Success())
	s.Require().Contains(ack.GetError(), "channel channel-0 is not allow-listed")

	// Both chains are back where they started.
	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "1"))
	s.Require().Equal(before, s.snapshot(s.chainA))
	s.query(s.chainB, func(ctx sdk.Context) {
		s.Require().Empty(s.chainB.ICS721.ClassContracts(ctx))
		incoming, err := s.chainB.ICS721.IncomingChannels(ctx)
		s.Require().NoError(err)
		s.Require().Empty(incoming)
		s.Require().Empty(s.chainB.NFT.Collections(ctx))
	})
}

func (s *KeeperTestSuite) TestExtraIncomingGateJoinsConfiguredGate() {
	s.chainB = s.newChain("chain-b", func(gs *types.GenesisState) {
		gs.Params.Incoming = types.GateConfig{Kind: types.GateAllowList, Channels: []string{"channel-7"}}
	}, keeper.WithIncomingGate(classGate{banned: collA}))
	s.link()
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)
	s.relay()

	// Both gates are consulted and both reasons reach the sender.
	ack := s.ackOf(s.chainB, s.path.Dst, 1)
	s.Require().False(ack.Success())
	s.Require().Contains(ack.GetError(), "channel channel-0 is not allow-listed")
	s.Require().Contains(ack.GetError(), "class "+collA+" is banned")
	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "1"))

	// Seeding the allow-list still reaches the configured gate.
	s.query(s.chainB, func(ctx sdk.Context) {
		channels, err := s.chainB.ICS721.WhitelistedIncomingChannels(ctx)
		s.Require().NoError(err)
		s.Require().Equal([]string{"channel-7"}, channels)
	})
}

func (s *KeeperTestSuite) TestExtraOutgoingGateRunsBeforeRateLimit() {
	s.chainA = s.newChain("chain-a", nil, keeper.WithOutgoingGate(classGate{banned: collA}))
	s.link()
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)
	_, err := s.chainA.Exec(func(ctx sdk.Context) error {
		return s.chainA.ICS721.SetOutgoingRateLimit(ctx, admin, 1, 1000)
	})
	s.Require().NoError(err)

	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().ErrorIs(err, types.ErrGateRejected)
	s.Require().ErrorContains(err, "is banned")

	// The rejected transfer was not charged, so another class still fits.
	const collB = "wasm.collection-b"
	s.createCollection(s.chainA, collB, alice)
	s.mint(s.chainA, collB, alice, "1", alice)
	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collB, alice, bob, "1"))
	s.Require().NoError(err)
}

func (s *KeeperTestSuite) TestAllowListUpdateIsAdditiveAndLive() {
	s.restrictIncoming()
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)
	s.relay()
	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "1"))

	_, err = s.chainB.Exec(func(ctx sdk.Context) error {
		return s.chainB.ICS721.AddIncomingChannels(ctx, alice, "channel-0")
	})
	s.Require().ErrorIs(err, types.ErrUnauthorized)

	_, err = s.chainB.Exec(func(ctx sdk.Context) error {
		return s.chainB.ICS721.AddIncomingChannels(ctx, admin, "channel-0")
	})
	s.Require().NoError(err)

	s.query(s.chainB, func(ctx sdk.Context) {
		channels, err := s.chainB.ICS721.WhitelistedIncomingChannels(ctx)
		s.Require().NoError(err)
		s.Require().Equal([]string{"channel-0", "channel-7"}, channels)
	})

	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)
	s.relay()
	s.Require().Equal(bob, s.ownerOf(s.chainB, s.receiptClassID(), "1"))
}

func (s *KeeperTestSuite) TestHostileReceiverDoesNotCorruptState() {
	s.sendAliceTokenToBob()
	classID := s.receiptClassID()
	contract := types.ReceiptAddress(classID)

	s.chainA.NFT.SetHooks(collA, hostileHooks{banned: "mallory"})

	back := s.path.Reverse()
	_, err := s.send(s.chainB, s.transferMsg(back.Src, contract, bob, "mallory", "1"))
	s.Require().NoError(err)

	res := s.relay()
	s.Require().Equal(1, res.Received)
	s.Require().Equal(1, res.Acknowledged)

	ack := s.ackOf(s.chainA, s.path.Src, 1)
	s.Require().False(ack.Success())
	s.Require().Contains(ack.GetError(), "ABCI code ics721/5")

	// Still escrowed on A, not duplicated, and the receipt is back with bob.
	escrow := s.chainA.ICS721.EscrowAddress()
	s.Require().Equal(escrow, s.ownerOf(s.chainA, collA, "1"))
	s.Require().Equal(bob, s.ownerOf(s.chainB, classID, "1"))
	s.query(s.chainA, func(ctx sdk.Context) {
		ch, ok := s.chainA.ICS721.GetOutgoingChannel(ctx, collA, "1")
		s.Require().True(ok)
		s.Require().Equal("channel-0", ch)
	})

	_, err = s.send(s.chainB, s.transferMsg(back.Src, contract, bob, carol, "1"))
	s.Require().NoError(err)
	s.relay()
	s.Require().Equal(carol, s.ownerOf(s.chainA, collA, "1"))
}

func (s *KeeperTestSuite) TestHostileMintHookErrorAck() {
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	// B's receipt collection is instantiated on receive: hook its
	// deterministic address before it exists.
	s.chainB.NFT.SetHooks(types.ReceiptAddress(s.receiptClassID()), hostileHooks{banned: bob, fail: true})

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)
	s.relay()

	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "1"))
	s.query(s.chainB, func(ctx sdk.Context) {
		s.Require().Empty(s.chainB.ICS721.ClassContracts(ctx))
	})
}

func (s *KeeperTestSuite) TestOutgoingRateLimit() {
	s.createCollection(s.chainA, collA, alice)
	for _, id := range []string{"1", "2"} {
		s.mint(s.chainA, collA, alice, id, alice)
	}

	_, err := s.chainA.Exec(func(ctx sdk.Context) error {
		return s.chainA.ICS721.SetOutgoingRateLimit(ctx, admin, 1, 1000)
	})
	s.Require().NoError(err)

	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)

	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "2"))
	s.Require().ErrorIs(err, types.ErrGateRejected)
	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "2"))

	s.query(s.chainA, func(ctx sdk.Context) {
		p := s.chainA.ICS721.Params(ctx)
		s.Require().Equal(types.GateRateLimit, p.Outgoing.Kind)
		s.Require().Len(s.chainA.ICS721.PendingTransfers(ctx), 1)
	})
}

func (s *KeeperTestSuite) TestOutgoingDenyList() {
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	_, err := s.chainA.Exec(func(ctx sdk.Context) error {
		return s.chainA.ICS721.SetOutgoingGate(ctx, admin, types.GateConfig{Kind: types.GateDenyList, Channels: []string{"channel-0"}})
	})
	s.Require().NoError(err)

	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().ErrorIs(err, types.ErrGateRejected)

	_, err = s.chainA.Exec(func(ctx sdk.Context) error {
		return s.chainA.ICS721.SetOutgoingGate(ctx, admin, types.DefaultGateConfig())
	})
	s.Require().NoError(err)
	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)
}

func (s *KeeperTestSuite) TestSetIncomingGateRejectsInvalidConfig() {
	_, err := s.chainB.Exec(func(ctx sdk.Context) error {
		return s.chainB.ICS721.SetIncomingGate(ctx, admin, types.GateConfig{Kind: types.GateRateLimit, Limit: 1, WindowBlocks: 1})
	})
	s.Require().ErrorIs(err, types.ErrInvalidGateConfig)

	_, err = s.chainB.Exec(func(ctx sdk.Context) error {
		return s.chainB.ICS721.AddIncomingChannels(ctx, admin, "channel-0")
	})
	s.Require().ErrorIs(err, types.ErrInvalidGateConfig)
}

func (s *KeeperTestSuite) TestPauseOnce() {
	s.chainA = s.newChain("chain-a", func(gs *types.GenesisState) {
		gs.Pauser = pauser
	})
	s.link()
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	pause := func(sender string) error {
		_, err := s.chainA.Exec(func(ctx sdk.Context) error {
			return s.chainA.ICS721.Pause(ctx, sender)
		})
		return err
	}

	s.Require().ErrorIs(pause(alice), types.ErrUnauthorized)
	s.Require().NoError(pause(pauser))
	s.Require().ErrorIs(pause(pauser), types.ErrAlreadyPaused)

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().ErrorIs(err, types.ErrPaused)

	_, err = s.chainA.Exec(func(ctx sdk.Context) error {
		return s.chainA.ICS721.SetPauser(ctx, admin, pauser)
	})
	s.Require().NoError(err)
	s.query(s.chainA, func(ctx sdk.Context) {
		s.Require().False(s.chainA.ICS721.Paused(ctx))
		s.Require().Equal(pauser, s.chainA.ICS721.GetPauser(ctx))
	})

	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)
}

func (s *KeeperTestSuite) TestPausedChainAcksWithError() {
	s.chainB = s.newChain("chain-b", func(gs *types.GenesisState) {
		gs.Pauser = pauser
	})
	s.link()
	_, err := s.chainB.Exec(func(ctx sdk.Context) error {
		return s.chainB.ICS721.Pause(ctx, pauser)
	})
	s.Require().NoError(err)

	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)
	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)
	s.relay()

	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "1"))
	ack := s.ackOf(s.chainB, s.path.Dst, 1)
	s.Require().Contains(ack.GetError(), types.ErrPaused.Error())
}

func (s *KeeperTestSuite) TestChannelHandshake() {
	_, err := s.chainA.Exec(func(ctx sdk.Context) error {
		_, err := s.chainA.ICS721.OnChanOpenInit(ctx, channeltypes.ORDERED, types.PortID, "channel-5",
			channeltypes.NewCounterparty(types.PortID, ""), types.Version)
		return err
	})
	s.Require().ErrorIs(err, types.ErrInvalidChannelOrder)

	_, err = s.chainA.Exec(func(ctx sdk.Context) error {
		_, err := s.chainA.ICS721.OnChanOpenTry(ctx, channeltypes.UNORDERED, types.PortID, "channel-5",
			channeltypes.NewCounterparty(types.PortID, "channel-3"), "ics20-1")
		return err
	})
	s.Require().ErrorIs(err, types.ErrInvalidVersion)

	_, err = s.chainA.Exec(func(ctx sdk.Context) error {
		return s.chainA.Transport.ChanCloseInit(ctx, s.path.Src.PortID, s.path.Src.ChannelID)
	})
	s.Require().ErrorIs(err, types.ErrCannotCloseChannel)

	s.query(s.chainA, func(ctx sdk.Context) {
		channel, found := s.chainA.Transport.GetChannel(ctx, s.path.Src.PortID, s.path.Src.ChannelID)
		s.Require().True(found)
		s.Require().Equal(channeltypes.OPEN, channel.State)
		s.Require().Equal(types.Version, channel.Version)
	})
}

// classGate rejects a single class in both directions.
type classGate struct {
	banned string
}

func (g classGate) DecideIncoming(_ sdk.Context, req gate.IncomingRequest) error {
	return g.check(req.ClassID)
}

func (g classGate) DecideOutgoing(_ sdk.Context, req gate.OutgoingRequest) error {
	return g.check(req.ClassID)
}

func (g classGate) check(classID string) error {
	if strings.HasSuffix(classID, g.banned) {
		return types.ErrGateRejected.Wrapf("class %s is banned", g.banned)
	}
	return nil
}

// hostileHooks panics, or fails, when a token is moved to banned.
type hostileHooks struct {
	nft.NoopHooks
	banned string
	fail   bool
}

func (h hostileHooks) BeforeMint(_ sdk.Context, contract, tokenID, owner string) error {
	return h.check(owner)
}

func (h hostileHooks) BeforeTransfer(_ sdk.Context, contract, tokenID, from, to string) error {
	return h.check(to)
}

func (h hostileHooks) check(recipient string) error {
	if recipient != h.banned {
		return nil
	}
	if h.fail {
		return nft.ErrUnauthorized.Wrapf("%s may not receive tokens", recipient)
	}
	panic("receiver refuses " + recipient)
}
