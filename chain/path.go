package chain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v7/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v7/modules/core/04-channel/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cosmos/ics721/ics721/types"
)

var (
	RtyAttNum = uint(5)
	RtyAtt    = retry.Attempts(RtyAttNum)
	RtyDel    = retry.Delay(time.Millisecond * 100)
	RtyErr    = retry.LastErrorOnly(true)
)

// PathEnd is one side of a Path.
type PathEnd struct {
	Chain     *Chain
	PortID    string
	ChannelID string
}

func (pe PathEnd) String() string {
	return fmt.Sprintf("%s:%s/%s", pe.Chain.ChainID(), pe.PortID, pe.ChannelID)
}

// Path relays ICS-721 packets between two chains over one channel. It plays
// the role of the external relayer: it moves packets, acknowledgements and
// timeouts, and decides nothing about their content.
type Path struct {
	log *zap.Logger
	Src PathEnd
	Dst PathEnd
}

// NewPath returns a path between the transfer ports of src and dst. Link
// opens its channel, or the channel ids may be set to reuse one.
func NewPath(log *zap.Logger, src, dst *Chain) *Path {
	return &Path{
		log: log,
		Src: PathEnd{Chain: src, PortID: portOf(src)},
		Dst: PathEnd{Chain: dst, PortID: portOf(dst)},
	}
}

func portOf(c *Chain) string {
	port := types.PortID
	_ = c.Query(func(ctx sdk.Context) error {
		port = c.ICS721.GetPort(ctx)
		return nil
	})
	return port
}

// Linked reports whether both ends have a channel.
func (p *Path) Linked() bool {
	return p.Src.ChannelID != "" && p.Dst.ChannelID != ""
}

// Link runs the four step channel handshake, one transaction per step.
func (p *Path) Link() error {
	var srcChannel, dstChannel, version string

	if _, err := p.Src.Chain.Exec(func(ctx sdk.Context) (err error) {
		srcChannel, err = p.Src.Chain.Transport.ChanOpenInit(ctx, p.Src.PortID, p.Dst.PortID, types.Version)
		return err
	}); err != nil {
		return fmt.Errorf("chan open init on %s: %w", p.Src.Chain.ChainID(), err)
	}
	if _, err := p.Dst.Chain.Exec(func(ctx sdk.Context) (err error) {
		dstChannel, version, err = p.Dst.Chain.Transport.ChanOpenTry(ctx, p.Dst.PortID, p.Src.PortID, srcChannel, types.Version)
		return err
	}); err != nil {
		return fmt.Errorf("chan open try on %s: %w", p.Dst.Chain.ChainID(), err)
	}
	if _, err := p.Src.Chain.Exec(func(ctx sdk.Context) error {
		return p.Src.Chain.Transport.ChanOpenAck(ctx, p.Src.PortID, srcChannel, dstChannel, version)
	}); err != nil {
		return fmt.Errorf("chan open ack on %s: %w", p.Src.Chain.ChainID(), err)
	}
	if _, err := p.Dst.Chain.Exec(func(ctx sdk.Context) error {
		return p.Dst.Chain.Transport.ChanOpenConfirm(ctx, p.Dst.PortID, dstChannel)
	}); err != nil {
		return fmt.Errorf("chan open confirm on %s: %w", p.Dst.Chain.ChainID(), err)
	}

	p.Src.ChannelID, p.Dst.ChannelID = srcChannel, dstChannel
	p.log.Info("Linked path",
		zap.String("src", p.Src.String()),
		zap.String("dst", p.Dst.String()),
	)
	return nil
}

// Reverse returns the same path seen from the other end.
func (p *Path) Reverse() *Path {
	return &Path{log: p.log, Src: p.Dst, Dst: p.Src}
}

// PendingPackets are the packets of one direction still owed an action.
type PendingPackets struct {
	// Recv are packets not yet received by the counterparty.
	Recv []channeltypes.Packet
	// Ack are packets received by the counterparty whose acknowledgement
	// was not yet relayed back.
	Ack []channeltypes.Packet
	// Timeout are packets that can no longer be received.
	Timeout []channeltypes.Packet
}

func (pp PendingPackets) Empty() bool {
	return len(pp.Recv) == 0 && len(pp.Ack) == 0 && len(pp.Timeout) == 0
}

// PendingPackets inspects the committed state of both ends for packets sent
// from src to dst.
func (p *Path) PendingPackets() (PendingPackets, error) {
	var committed []channeltypes.Packet
	if err := p.Src.Chain.Query(func(ctx sdk.Context) error {
		committed = p.Src.Chain.Transport.CommittedPackets(ctx, p.Src.PortID, p.Src.ChannelID)
		return nil
	}); err != nil {
		return PendingPackets{}, err
	}

	// A packet received in the next dst block must not have timed out at
	// that block.
	dst := p.Dst.Chain
	nextHeight := dst.Height() + 1
	selfHeight := clienttypes.NewHeight(0, uint64(nextHeight))
	selfTime := uint64(dst.BlockTime(nextHeight).UnixNano())

	var pp PendingPackets
	err := dst.Query(func(ctx sdk.Context) error {
		for _, packet := range committed {
			switch {
			case dst.Transport.HasReceipt(ctx, packet.DestinationPort, packet.DestinationChannel, packet.Sequence):
				pp.Ack = append(pp.Ack, packet)
			case Timeout(packet, selfHeight, selfTime):
				pp.Timeout = append(pp.Timeout, packet)
			default:
				pp.Recv = append(pp.Recv, packet)
			}
		}
		return nil
	})
	return pp, err
}

// RelayResult counts what a relay pass delivered.
type RelayResult struct {
	Received     int
	Acknowledged int
	TimedOut     int
	// Skipped packets failed every delivery attempt and are retried on
	// the next pass.
	Skipped int `json:",omitempty"`
}

func (r *RelayResult) add(o RelayResult) {
	r.Received += o.Received
	r.Acknowledged += o.Acknowledged
	r.TimedOut += o.TimedOut
	r.Skipped += o.Skipped
}

// RelayAll delivers every pending packet in both directions, then relays
// the resulting acknowledgements and timeouts back to the senders.
func (p *Path) RelayAll(ctx context.Context) (RelayResult, error) {
	var forward, backward RelayResult

	// The two directions write to different chains.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		forward, err = p.relayPackets(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		backward, err = p.Reverse().relayPackets(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return RelayResult{}, err
	}

	eg, egCtx = errgroup.WithContext(ctx)
	var forwardAcks, backwardAcks RelayResult
	eg.Go(func() (err error) {
		forwardAcks, err = p.relayAcksAndTimeouts(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		backwardAcks, err = p.Reverse().relayAcksAndTimeouts(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return RelayResult{}, err
	}

	forward.add(backward)
	forward.add(forwardAcks)
	forward.add(backwardAcks)
	return forward, nil
}

// relayPackets delivers src->dst packets to dst.
func (p *Path) relayPackets(ctx context.Context) (RelayResult, error) {
	pending, err := p.PendingPackets()
	if err != nil {
		return RelayResult{}, err
	}
	var res RelayResult
	for _, packet := range pending.Recv {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		packet := packet
		var ack []byte
		if _, err := p.Dst.Chain.Exec(func(sctx sdk.Context) (err error) {
			ack, err = p.Dst.Chain.Transport.RecvPacket(sctx, packet)
			return err
		}); err != nil {
			p.skip(packet, "packet", p.Dst.Chain.ChainID(), err)
			res.Skipped++
			continue
		}
		res.Received++
		p.log.Debug("Relayed packet",
			zap.String("src", p.Src.String()),
			zap.Uint64("sequence", packet.Sequence),
			zap.ByteString("ack", ack),
		)
	}
	return res, nil
}

// relayAcksAndTimeouts delivers the acknowledgements dst wrote, and the
// timeouts of packets dst can no longer receive, to src.
func (p *Path) relayAcksAndTimeouts(ctx context.Context) (RelayResult, error) {
	pending, err := p.PendingPackets()
	if err != nil {
		return RelayResult{}, err
	}

	// A packet src keeps refusing is skipped so it cannot hold back the
	// packets behind it.
	var res RelayResult
	for _, packet := range pending.Ack {
		packet := packet
		var ack []byte
		if err := p.Dst.Chain.Query(func(sctx sdk.Context) error {
			var found bool
			ack, found = p.Dst.Chain.Transport.GetAcknowledgement(sctx, packet.DestinationPort, packet.DestinationChannel, packet.Sequence)
			if !found {
				return fmt.Errorf("no acknowledgement for packet %d", packet.Sequence)
			}
			return nil
		}); err != nil {
			return res, err
		}
		if err := p.deliverWithRetry(ctx, packet, "acknowledgement", func(sctx sdk.Context) error {
			return p.Src.Chain.Transport.AcknowledgePacket(sctx, packet, ack)
		}); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			p.skip(packet, "acknowledgement", p.Src.Chain.ChainID(), err)
			res.Skipped++
			continue
		}
		res.Acknowledged++
	}

	for _, packet := range pending.Timeout {
		packet := packet
		if err := p.deliverWithRetry(ctx, packet, "timeout", func(sctx sdk.Context) error {
			return p.Src.Chain.Transport.TimeoutPacket(sctx, packet)
		}); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			p.skip(packet, "timeout", p.Src.Chain.ChainID(), err)
			res.Skipped++
			continue
		}
		res.TimedOut++
	}
	return res, nil
}

func (p *Path) skip(packet channeltypes.Packet, kind, chainID string, err error) {
	p.log.Error(
		"Skipping packet "+kind,
		zap.String("chain_id", chainID),
		zap.String("src", p.Src.String()),
		zap.Uint64("sequence", packet.Sequence),
		zap.Error(err),
	)
}

func (p *Path) deliverWithRetry(ctx context.Context, packet channeltypes.Packet, kind string, fn func(sdk.Context) error) error {
	return retry.Do(func() error {
		_, err := p.Src.Chain.Exec(fn)
		return err
	}, retry.Context(ctx), RtyAtt, RtyDel, RtyErr, retry.OnRetry(func(n uint, err error) {
		p.log.Info(
			"Failed to deliver packet "+kind,
			zap.String("chain_id", p.Src.Chain.ChainID()),
			zap.Uint64("sequence", packet.Sequence),
			zap.Uint("attempt", n+1),
			zap.Uint("max_attempts", RtyAttNum),
			zap.Error(err),
		)
	}))
}

func sortPackets(packets []channeltypes.Packet) {
	sort.Slice(packets, func(i, j int) bool {
		return packets[i].Sequence < packets[j].Sequence
	})
}
