package types

// ICS-721 events
const (
	EventTypeTransfer      = "ics721_transfer"
	EventTypePacket        = "ics721_packet"
	EventTypeRedemption    = "ics721_redemption"
	EventTypeMint          = "ics721_mint"
	EventTypeRefund        = "ics721_refund"
	EventTypeTimeout       = "ics721_timeout"
	EventTypeRefundFailed  = "ics721_refund_failed"
	EventTypeCallback      = "ics721_receive_callback"
	EventTypeClassCreated  = "ics721_class_created"
	EventTypeGateRejection = "ics721_gate_rejection"
	EventTypePaused        = "ics721_paused"

	AttributeKeySender    = "sender"
	AttributeKeyReceiver  = "receiver"
	AttributeKeyClassID   = "class_id"
	AttributeKeyContract  = "contract"
	AttributeKeyTokenIDs  = "token_ids"
	AttributeKeyChannel   = "channel"
	AttributeKeySequence  = "sequence"
	AttributeKeyAckResult = "success"
	AttributeKeyAckError  = "error"
	AttributeKeyMemo      = "ics721_memo"
	AttributeKeyDirection = "direction"
)
