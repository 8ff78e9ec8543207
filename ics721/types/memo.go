package types

import (
	"encoding/json"
)

// Memo is the structured form of a packet memo. Memos are free form, so a
// memo that is not JSON, or JSON of another shape, simply carries no
// callbacks.
type Memo struct {
	Callbacks *Callbacks `json:"callbacks,omitempty"`
}

// Callbacks names the contracts to call back when a transfer is delivered.
type Callbacks struct {
	// ReceiveCallbackData is passed verbatim to the receive callback.
	ReceiveCallbackData []byte `json:"receive_callback_data,omitempty"`
	// ReceiveCallbackAddr defaults to the packet receiver.
	ReceiveCallbackAddr string `json:"receive_callback_addr,omitempty"`
}

// ReceiveCallback is a callback requested by an inbound packet.
type ReceiveCallback struct {
	Addr string
	Data []byte
}

// GetReceiveCallback returns the receive callback requested by the packet
// memo, if any. Only a memo carrying callback data requests one.
func (d NonFungibleTokenPacketData) GetReceiveCallback() (ReceiveCallback, bool) {
	if d.Memo == "" {
		return ReceiveCallback{}, false
	}
	var memo Memo
	if err := json.Unmarshal([]byte(d.Memo), &memo); err != nil {
		return ReceiveCallback{}, false
	}
	if memo.Callbacks == nil || len(memo.Callbacks.ReceiveCallbackData) == 0 {
		return ReceiveCallback{}, false
	}
	addr := memo.Callbacks.ReceiveCallbackAddr
	if addr == "" {
		addr = d.Receiver
	}
	return ReceiveCallback{Addr: addr, Data: memo.Callbacks.ReceiveCallbackData}, true
}
