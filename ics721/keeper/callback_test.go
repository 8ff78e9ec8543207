package keeper_test

import (
	"encoding/json"
	"errors"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/cosmos/ics721/ics721/nft"
	"github.com/cosmos/ics721/ics721/types"
)

const market = "wasm.market"

// marketCallback records deliveries, or refuses them.
type marketCallback struct {
	ledger *nft.Keeper

	fail   bool
	panics bool

	calls  []nft.ReceiveCallbackMsg
	owners []string
}

func (m *marketCallback) OnReceive(ctx sdk.Context, msg nft.ReceiveCallbackMsg) error {
	switch {
	case m.panics:
		panic("market refuses " + msg.ClassID)
	case m.fail:
		return errors.New("market is closed")
	}
	owner, err := m.ledger.OwnerOf(ctx, msg.Contract, msg.TokenIDs[0])
	if err != nil {
		return err
	}
	m.calls = append(m.calls, msg)
	m.owners = append(m.owners, owner)
	return nil
}

func (s *KeeperTestSuite) callbackMemo(addr, data string) string {
	bz, err := json.Marshal(types.Memo{Callbacks: &types.Callbacks{
		ReceiveCallbackData: []byte(data),
		ReceiveCallbackAddr: addr,
	}})
	s.Require().NoError(err)
	return string(bz)
}

func (s *KeeperTestSuite) TestReceiveCallbackSeesDeliveredTokens() {
	cb := &marketCallback{ledger: s.chainB.NFT}
	s.chainB.NFT.SetReceiveCallback(market, cb)
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)

	msg := s.transferMsg(s.path.Src, collA, alice, bob, "1")
	msg.Memo = s.callbackMemo(market, `{"list":true}`)
	_, err := s.send(s.chainA, msg)
	s.Require().NoError(err)
	s.relay()

	s.Require().True(s.ackOf(s.chainB, s.path.Dst, 1).Success())
	classID := s.receiptClassID()
	s.Require().Equal([]nft.ReceiveCallbackMsg{{
		Contract: types.ReceiptAddress(classID),
		ClassID:  classID,
		TokenIDs: []string{"1"},
		Sender:   alice,
		Receiver: bob,
		Msg:      []byte(`{"list":true}`),
	}}, cb.calls)
	s.Require().Equal([]string{bob}, cb.owners)
}

func (s *KeeperTestSuite) TestReceiveCallbackOnReturnHome() {
	s.sendAliceTokenToBob()
	cb := &marketCallback{ledger: s.chainA.NFT}
	s.chainA.NFT.SetReceiveCallback(market, cb)

	back := s.path.Reverse()
	msg := s.transferMsg(back.Src, types.ReceiptAddress(s.receiptClassID()), bob, carol, "1")
	msg.Memo = s.callbackMemo(market, `"home"`)
	_, err := s.send(s.chainB, msg)
	s.Require().NoError(err)
	s.relay()

	s.Require().Len(cb.calls, 1)
	s.Require().Equal(collA, cb.calls[0].Contract)
	s.Require().Equal(collA, cb.calls[0].ClassID)
	s.Require().Equal([]string{carol}, cb.owners)
	s.Require().Equal(carol, s.ownerOf(s.chainA, collA, "1"))
}

func (s *KeeperTestSuite) TestFailingReceiveCallbackRejectsPacket() {
	s.chainB.NFT.SetReceiveCallback(market, &marketCallback{ledger: s.chainB.NFT, fail: true})
	s.requireCallbackRejected(s.callbackMemo(market, `{"list":true}`), "market is closed")
}

func (s *KeeperTestSuite) TestPanickingReceiveCallbackRejectsPacket() {
	s.chainB.NFT.SetReceiveCallback(market, &marketCallback{ledger: s.chainB.NFT, panics: true})
	s.requireCallbackRejected(s.callbackMemo(market, `{"list":true}`), "market refuses")
}

func (s *KeeperTestSuite) TestReceiveCallbackDefaultsToReceiver() {
	// bob is a plain account with no callback bound.
	s.requireCallbackRejected(s.callbackMemo("", `{"list":true}`), "no receive callback at bob")
}

// requireCallbackRejected sends token 1 of collA to bob with memo and
// checks the packet bounced without leaving anything behind on B.
func (s *KeeperTestSuite) requireCallbackRejected(memo, reason string) {
	s.createCollection(s.chainA, collA, alice)
	s.mint(s.chainA, collA, alice, "1", alice)
	before := s.snapshot(s.chainA)

	msg := s.transferMsg(s.path.Src, collA, alice, bob, "1")
	msg.Memo = memo
	_, err := s.send(s.chainA, msg)
	s.Require().NoError(err)
	s.relay()

	ack := s.ackOf(s.chainB, s.path.Dst, 1)
	s.Require().False(ack.Success())
	s.Require().Contains(ack.GetError(), "ABCI code ics721/5")
	s.Require().Contains(ack.GetError(), reason)

	s.Require().Equal(before, s.snapshot(s.chainA))
	s.query(s.chainB, func(ctx sdk.Context) {
		s.Require().Empty(s.chainB.ICS721.ClassContracts(ctx))
		s.Require().Empty(s.chainB.NFT.Collections(ctx))
	})
}
