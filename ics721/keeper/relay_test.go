package keeper_test

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v7/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"

	"github.com/cosmos/ics721/chain"
	"github.com/cosmos/ics721/ics721/nft"
	"github.com/cosmos/ics721/ics721/types"
)

func (s *KeeperTestSuite) TestRoundTripOwnership() {
	s.sendAliceTokenToBob()

	escrow := s.chainA.ICS721.EscrowAddress()
	s.Require().Equal(escrow, s.ownerOf(s.chainA, collA, "1"))

	classID := s.receiptClassID()
	s.Require().Equal("nft-transfer/channel-0/"+collA, classID)
	s.Require().Equal(bob, s.ownerOf(s.chainB, classID, "1"))

	s.query(s.chainA, func(ctx sdk.Context) {
		outgoing, err := s.chainA.ICS721.OutgoingChannels(ctx)
		s.Require().NoError(err)
		s.Require().Equal([]types.ClassTokenChannel{{ClassID: collA, TokenID: "1", ChannelID: "channel-0"}}, outgoing)
		s.Require().Empty(s.chainA.ICS721.PendingTransfers(ctx))
	})
	s.query(s.chainB, func(ctx sdk.Context) {
		contract, ok := s.chainB.ICS721.ContractForClassID(ctx, classID)
		s.Require().True(ok)
		s.Require().Equal(types.ReceiptAddress(classID), contract)

		back, ok := s.chainB.ICS721.ClassIDForContract(ctx, contract)
		s.Require().True(ok)
		s.Require().Equal(classID, back)

		incoming, err := s.chainB.ICS721.IncomingChannels(ctx)
		s.Require().NoError(err)
		s.Require().Equal([]types.ClassTokenChannel{{ClassID: classID, TokenID: "1", ChannelID: "channel-0"}}, incoming)

		token, err := s.chainB.NFT.GetToken(ctx, contract, "1")
		s.Require().NoError(err)
		s.Require().Equal("https://example.com/1", token.URI)

		collection, ok := s.chainB.NFT.GetCollection(ctx, contract)
		s.Require().True(ok)
		s.Require().Equal("Collection "+collA, collection.Name)
		s.Require().Equal(s.chainB.ICS721.EscrowAddress(), collection.Minter)
	})

	ack := s.ackOf(s.chainB, s.path.Dst, 1)
	s.Require().True(ack.Success())
	s.Require().Equal(`{"result":"AQ=="}`, string(ack.Acknowledgement()))
}

func (s *KeeperTestSuite) TestPendingTransferUntilAck() {
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	handle, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1"))
	s.Require().NoError(err)
	s.Require().Equal(types.TransferHandle{PortID: types.PortID, ChannelID: "channel-0", Sequence: 1}, handle)

	s.query(s.chainA, func(ctx sdk.Context) {
		pending, ok := s.chainA.ICS721.GetPendingTransfer(ctx, handle)
		s.Require().True(ok)
		s.Require().Equal(types.ActionEscrow, pending.Action)
		s.Require().Equal(alice, pending.Sender)
		s.Require().Equal([]string{"1"}, pending.TokenIDs)
	})

	pp, err := s.path.PendingPackets()
	s.Require().NoError(err)
	s.Require().Len(pp.Recv, 1)

	s.relay()

	pp, err = s.path.PendingPackets()
	s.Require().NoError(err)
	s.Require().True(pp.Empty())
	s.query(s.chainA, func(ctx sdk.Context) {
		_, ok := s.chainA.ICS721.GetPendingTransfer(ctx, handle)
		s.Require().False(ok)
	})
}

func (s *KeeperTestSuite) TestSendRequiresOwner() {
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, carol, bob, "1"))
	s.Require().ErrorIs(err, types.ErrNotOwner)
	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "1"))

	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, "wasm.unknown", alice, bob, "1"))
	s.Require().ErrorIs(err, types.ErrClassNotFound)
}

func (s *KeeperTestSuite) TestSendOnUnknownChannel() {
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	msg := s.transferMsg(s.path.Src, collA, alice, bob, "1")
	msg.SourceChannel = "channel-9"
	_, err := s.send(s.chainA, msg)
	s.Require().ErrorIs(err, types.ErrUnknownChannel)
}

func (s *KeeperTestSuite) TestReturnTripBurnsReceipt() {
	s.sendAliceTokenToBob()
	classID := s.receiptClassID()

	var contract string
	s.query(s.chainB, func(ctx sdk.Context) {
		contract, _ = s.chainB.ICS721.ContractForClassID(ctx, classID)
	})

	back := s.path.Reverse()
	handle, err := s.send(s.chainB, s.transferMsg(back.Src, contract, bob, carol, "1"))
	s.Require().NoError(err)

	s.query(s.chainB, func(ctx sdk.Context) {
		pending, ok := s.chainB.ICS721.GetPendingTransfer(ctx, handle)
		s.Require().True(ok)
		s.Require().Equal(types.ActionBurn, pending.Action)
	})

	res := s.relay()
	s.Require().Equal(1, res.Received)
	s.Require().Equal(1, res.Acknowledged)

	s.Require().Equal(carol, s.ownerOf(s.chainA, collA, "1"))
	s.query(s.chainA, func(ctx sdk.Context) {
		outgoing, err := s.chainA.ICS721.OutgoingChannels(ctx)
		s.Require().NoError(err)
		s.Require().Empty(outgoing)
	})
	s.query(s.chainB, func(ctx sdk.Context) {
		_, err := s.chainB.NFT.GetToken(ctx, contract, "1")
		s.Require().Error(err)

		incoming, err := s.chainB.ICS721.IncomingChannels(ctx)
		s.Require().NoError(err)
		s.Require().Empty(incoming)

		// The class mapping outlives its tokens.
		s.Require().Len(s.chainB.ICS721.ClassContracts(ctx), 1)
	})
}

func (s *KeeperTestSuite) TestIdempotentClassMapping() {
	s.createCollection(s.chainA, collA, alice)
	for i := 1; i <= 3; i++ {
		tokenID := fmt.Sprintf("%d", i)
		s.mint(s.chainA, collA, alice, tokenID, alice)
		_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, tokenID))
		s.Require().NoError(err)
		s.relay()
	}

	s.query(s.chainB, func(ctx sdk.Context) {
		classes := s.chainB.ICS721.ClassContracts(ctx)
		s.Require().Equal([]types.ClassContract{{
			ClassID:  s.receiptClassID(),
			Contract: types.ReceiptAddress(s.receiptClassID()),
		}}, classes)
		s.Require().Equal(uint64(3), s.chainB.NFT.NumTokens(ctx, classes[0].Contract))
	})
}

func (s *KeeperTestSuite) TestBatchTransferCarriesMetadata() {
	s.createCollection(s.chainA, collA, alice)
	for _, id := range []string{"a", "b", "c"} {
		s.mint(s.chainA, collA, alice, id, alice)
	}

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "a", "b", "c"))
	s.Require().NoError(err)
	res := s.relay()
	s.Require().Equal(1, res.Received)

	classID := s.receiptClassID()
	s.query(s.chainB, func(ctx sdk.Context) {
		contract := types.ReceiptAddress(classID)
		for _, id := range []string{"a", "b", "c"} {
			token, err := s.chainB.NFT.GetToken(ctx, contract, id)
			s.Require().NoError(err)
			s.Require().Equal(bob, token.Owner)
			s.Require().Equal("https://example.com/"+id, token.URI)
		}

		class, ok := s.chainB.ICS721.ClassMetadata(ctx, classID)
		s.Require().True(ok)
		s.Require().JSONEq(`{"owner":"alice","name":"Collection wasm.collection-a","symbol":"COL","num_tokens":3}`, string(class.Data))
	})
}

func (s *KeeperTestSuite) TestTimeoutRefundsEscrow() {
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	msg := s.transferMsg(s.path.Src, collA, alice, bob, "1")
	msg.TimeoutHeight = clienttypes.NewHeight(0, uint64(s.chainB.Height()+2))
	_, err := s.send(s.chainA, msg)
	s.Require().NoError(err)
	s.Require().Equal(s.chainA.ICS721.EscrowAddress(), s.ownerOf(s.chainA, collA, "1"))

	s.Require().NoError(s.chainB.NextBlock())

	res := s.relay()
	s.Require().Equal(0, res.Received)
	s.Require().Equal(1, res.TimedOut)

	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "1"))
	s.query(s.chainA, func(ctx sdk.Context) {
		outgoing, err := s.chainA.ICS721.OutgoingChannels(ctx)
		s.Require().NoError(err)
		s.Require().Empty(outgoing)
		s.Require().Empty(s.chainA.ICS721.PendingTransfers(ctx))
	})
	s.query(s.chainB, func(ctx sdk.Context) {
		s.Require().Empty(s.chainB.ICS721.ClassContracts(ctx))
	})
}

func (s *KeeperTestSuite) TestTimeoutRemintsBurnedReceipt() {
	s.sendAliceTokenToBob()
	classID := s.receiptClassID()
	contract := types.ReceiptAddress(classID)

	back := s.path.Reverse()
	msg := s.transferMsg(back.Src, contract, bob, carol, "1")
	msg.TimeoutHeight = clienttypes.NewHeight(0, uint64(s.chainA.Height()+1))
	_, err := s.send(s.chainB, msg)
	s.Require().NoError(err)

	res := s.relay()
	s.Require().Equal(1, res.TimedOut)

	s.Require().Equal(bob, s.ownerOf(s.chainB, classID, "1"))
	s.Require().Equal(s.chainA.ICS721.EscrowAddress(), s.ownerOf(s.chainA, collA, "1"))
	s.query(s.chainB, func(ctx sdk.Context) {
		token, err := s.chainB.NFT.GetToken(ctx, contract, "1")
		s.Require().NoError(err)
		s.Require().Equal("https://example.com/1", token.URI)

		ch, ok := s.chainB.ICS721.GetIncomingChannel(ctx, classID, "1")
		s.Require().True(ok)
		s.Require().Equal("channel-0", ch)
	})
}

func (s *KeeperTestSuite) TestMalformedPacketErrorAck() {
	packet := channeltypes.NewPacket([]byte(`{"classId":"x","tokenIds":["1"],"tokenUris":["a","b"],"sender":"s","receiver":"r"}`),
		1, s.path.Src.PortID, s.path.Src.ChannelID, s.path.Dst.PortID, s.path.Dst.ChannelID,
		clienttypes.NewHeight(0, 1000), 0)

	var ack channeltypes.Acknowledgement
	_, err := s.chainB.Exec(func(ctx sdk.Context) error {
		ack = s.chainB.ICS721.OnRecvPacket(ctx, packet)
		return nil
	})
	s.Require().NoError(err)
	s.Require().False(ack.Success())
	s.Require().Contains(ack.GetError(), "ABCI code ics721/4")
	s.Require().Contains(ack.GetError(), "token uris length 2 does not match token ids length 1")

	packet.Data = []byte("not json")
	_, err = s.chainB.Exec(func(ctx sdk.Context) error {
		ack = s.chainB.ICS721.OnRecvPacket(ctx, packet)
		return nil
	})
	s.Require().NoError(err)
	s.Require().False(ack.Success())
	s.Require().Contains(ack.GetError(), "cannot unmarshal ICS-721 packet data")
}

func (s *KeeperTestSuite) TestMixedTransferRejected() {
	s.sendAliceTokenToBob()

	// A packet from B claiming to return token 1, which A escrowed, and
	// token 99, which never left A.
	data := types.NewNonFungibleTokenPacketData(s.receiptClassID(), "", nil,
		[]types.Token{{ID: "1"}, {ID: "99"}}, bob, carol, "")
	packet := channeltypes.NewPacket(data.GetBytes(), 7,
		s.path.Dst.PortID, s.path.Dst.ChannelID, s.path.Src.PortID, s.path.Src.ChannelID,
		clienttypes.NewHeight(0, 1000), 0)

	var ack channeltypes.Acknowledgement
	_, err := s.chainA.Exec(func(ctx sdk.Context) error {
		ack = s.chainA.ICS721.OnRecvPacket(ctx, packet)
		return nil
	})
	s.Require().NoError(err)
	s.Require().False(ack.Success())
	s.Require().Contains(ack.GetError(), types.ErrMixedTransfer.Error())
	s.Require().Equal(s.chainA.ICS721.EscrowAddress(), s.ownerOf(s.chainA, collA, "1"))
}

func (s *KeeperTestSuite) TestMultiHopKeepsTrace() {
	s.sendAliceTokenToBob()
	receiptB := s.receiptClassID()

	chainC := s.newChain("chain-c", nil)
	pathBC := chain.NewPath(s.log, s.chainB, chainC)
	s.Require().NoError(pathBC.Link())
	s.Require().Equal("channel-1", pathBC.Src.ChannelID)

	// On B the token is a receipt, but it is not going home: it is escrowed.
	_, err := s.send(s.chainB, s.transferMsg(pathBC.Src, types.ReceiptAddress(receiptB), bob, carol, "1"))
	s.Require().NoError(err)
	res, err := pathBC.RelayAll(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(1, res.Received)

	receiptC := "nft-transfer/channel-0/" + receiptB
	s.Require().Equal(carol, s.ownerOf(chainC, receiptC, "1"))
	s.Require().Equal(s.chainB.ICS721.EscrowAddress(), s.ownerOf(s.chainB, receiptB, "1"))

	trace := types.ParseClassTrace(receiptC)
	s.Require().Equal("nft-transfer/channel-0/nft-transfer/channel-0", trace.Path)
	s.Require().Equal(collA, trace.BaseClassID)

	// And back from C to B: a redemption on B.
	_, err = s.send(chainC, s.transferMsg(pathBC.Dst, types.ReceiptAddress(receiptC), carol, bob, "1"))
	s.Require().NoError(err)
	res, err = pathBC.RelayAll(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(1, res.Acknowledged)
	s.Require().Equal(bob, s.ownerOf(s.chainB, receiptB, "1"))
}

func (s *KeeperTestSuite) TestErrorAckRefundFailureDoesNotBlockPath() {
	s.restrictIncoming()
	s.createCollection(s.chainA, collA, alice)
	for _, id := range []string{"1", "2", "3", "4"} {
		s.mint(s.chainA, collA, alice, id, alice)
	}

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "1", "2", "3"))
	s.Require().NoError(err)
	_, err = s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, bob, "4"))
	s.Require().NoError(err)

	// Token 2 can no longer leave the escrow.
	s.chainA.NFT.SetHooks(collA, frozenTokenHooks{tokenID: "2"})

	res := s.relay()
	s.Require().Equal(chain.RelayResult{Received: 2, Acknowledged: 2}, res)

	escrow := s.chainA.ICS721.EscrowAddress()
	for id, owner := range map[string]string{"1": alice, "2": escrow, "3": alice, "4": alice} {
		s.Require().Equal(owner, s.ownerOf(s.chainA, collA, id), id)
	}
	s.query(s.chainA, func(ctx sdk.Context) {
		outgoing, err := s.chainA.ICS721.OutgoingChannels(ctx)
		s.Require().NoError(err)
		s.Require().Equal([]types.ClassTokenChannel{{ClassID: collA, TokenID: "2", ChannelID: "channel-0"}}, outgoing)
		s.Require().Empty(s.chainA.ICS721.PendingTransfers(ctx))
	})

	pending, err := s.path.PendingPackets()
	s.Require().NoError(err)
	s.Require().True(pending.Empty())
}

func (s *KeeperTestSuite) TestTimeoutRefundFailureIsReported() {
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)
	s.mint(s.chainA, collA, alice, "2", alice)

	msg := s.transferMsg(s.path.Src, collA, alice, bob, "1", "2")
	msg.TimeoutHeight = clienttypes.NewHeight(0, uint64(s.chainB.Height()+2))
	_, err := s.send(s.chainA, msg)
	s.Require().NoError(err)
	s.Require().NoError(s.chainB.NextBlock())

	s.chainA.NFT.SetHooks(collA, frozenTokenHooks{tokenID: "1", panics: true})

	pending, err := s.path.PendingPackets()
	s.Require().NoError(err)
	s.Require().Len(pending.Timeout, 1)
	packet := pending.Timeout[0]

	events, err := s.chainA.Exec(func(ctx sdk.Context) error {
		return s.chainA.Transport.TimeoutPacket(ctx, packet)
	})
	s.Require().NoError(err)

	failed, ok := findEvent(events, types.EventTypeRefundFailed)
	s.Require().True(ok)
	s.Require().Equal("1", attribute(failed, types.AttributeKeyTokenIDs))
	s.Require().Contains(attribute(failed, types.AttributeKeyAckError), "token 1 is frozen")

	timeout, ok := findEvent(events, types.EventTypeTimeout)
	s.Require().True(ok)
	s.Require().Equal("2", attribute(timeout, types.AttributeKeyTokenIDs))
	s.Require().Contains(attribute(timeout, types.AttributeKeyAckError), types.ErrTimeout.Error())

	s.Require().Equal(s.chainA.ICS721.EscrowAddress(), s.ownerOf(s.chainA, collA, "1"))
	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "2"))
	s.query(s.chainA, func(ctx sdk.Context) {
		s.Require().Empty(s.chainA.ICS721.PendingTransfers(ctx))
		_, ok := s.chainA.ICS721.GetOutgoingChannel(ctx, collA, "1")
		s.Require().True(ok)
	})
}

func (s *KeeperTestSuite) TestEscrowCannotSend() {
	s.sendAliceTokenToBob()
	escrow := s.chainA.ICS721.EscrowAddress()

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, escrow, carol, "1"))
	s.Require().ErrorIs(err, types.ErrUnauthorized)
	s.Require().Equal(escrow, s.ownerOf(s.chainA, collA, "1"))
	s.query(s.chainA, func(ctx sdk.Context) {
		s.Require().Empty(s.chainA.ICS721.PendingTransfers(ctx))
	})
}

func (s *KeeperTestSuite) TestEscrowCannotReceive() {
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	_, err := s.send(s.chainA, s.transferMsg(s.path.Src, collA, alice, s.chainB.ICS721.EscrowAddress(), "1"))
	s.Require().NoError(err)
	res := s.relay()
	s.Require().Equal(1, res.Acknowledged)

	ack := s.ackOf(s.chainB, s.path.Dst, 1)
	s.Require().False(ack.Success())
	s.Require().Contains(ack.GetError(), "ABCI code ics721/16")
	s.Require().Equal(alice, s.ownerOf(s.chainA, collA, "1"))
	s.query(s.chainB, func(ctx sdk.Context) {
		s.Require().Empty(s.chainB.ICS721.ClassContracts(ctx))
	})
}

func (s *KeeperTestSuite) TestNativeCollectionsCannotPoseAsReceipts() {
	create := func(c *chain.Chain, addr string) error {
		_, err := c.Exec(func(ctx sdk.Context) error {
			return c.NFT.CreateCollection(ctx, nft.Collection{Address: addr, Name: "fake", Minter: "mallory"})
		})
		return err
	}

	// A class id look-alike would be burned instead of escrowed on send.
	s.Require().ErrorIs(create(s.chainA, "nft-transfer/channel-0/fake"), nft.ErrInvalidCollection)
	// Squatting the receipt address would block the class forever.
	s.Require().ErrorIs(create(s.chainB, types.ReceiptAddress(s.receiptClassID())), nft.ErrInvalidCollection)

	s.sendAliceTokenToBob()
	s.Require().Equal(bob, s.ownerOf(s.chainB, s.receiptClassID(), "1"))
}

// frozenTokenHooks refuses every transfer of a single token.
type frozenTokenHooks struct {
	nft.NoopHooks
	tokenID string
	panics  bool
}

func (h frozenTokenHooks) BeforeTransfer(_ sdk.Context, contract, tokenID, from, to string) error {
	if tokenID != h.tokenID {
		return nil
	}
	if h.panics {
		panic(fmt.Sprintf("token %s is frozen", tokenID))
	}
	return nft.ErrUnauthorized.Wrapf("token %s is frozen", tokenID)
}

func findEvent(events sdk.Events, eventType string) (sdk.Event, bool) {
	for _, e := range events {
		if e.Type == eventType {
			return e, true
		}
	}
	return sdk.Event{}, false
}

func attribute(e sdk.Event, key string) string {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}
