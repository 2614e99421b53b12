package domain

import "encoding/json"

// Client-to-server events.
const (
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventMessageNew        = "message:new"
	EventCallSignal        = "call:signal"
	EventCallAccept        = "call:accept"
	EventCallReject        = "call:reject"
	EventCallEnd           = "call:end"
	EventPing              = "ping"
)

// Server-to-client events. EventMessageNew is reused verbatim on the way out.
const (
	EventUsersOnline     = "users:online"
	EventCallIncoming    = "call:incoming"
	EventCallAccepted    = "call:accepted"
	EventCallRejected    = "call:rejected"
	EventCallEnded       = "call:ended"
	EventCallUnreachable = "call:unreachable"
	EventCallError       = "call:error"
	EventPong            = "pong"
)

// Envelope is the wire framing for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent builds a ready-to-send envelope frame.
func EncodeEvent(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// ConversationRef is the payload of conversation:join / conversation:leave.
type ConversationRef struct {
	Conversation ConversationID `json:"conversation"`
}

// MessagePeek extracts only the routing fields of a message:new payload.
// The payload itself is relayed byte-for-byte; the relay never owns its shape.
type MessagePeek struct {
	Conversation ConversationID `json:"conversation"`
}

// CallRequest is the inbound payload of all four call:* events. Signal stays
// opaque: it is SDP or ICE material the peers exchange, never inspected here.
type CallRequest struct {
	To       UserID          `json:"to"`
	Signal   json.RawMessage `json:"signal,omitempty"`
	CallType CallType        `json:"callType,omitempty"`
}

// CallNotice is the outbound payload of call:incoming / accepted / rejected /
// ended, delivered to the other party of the handshake.
type CallNotice struct {
	From     UserID          `json:"from"`
	Signal   json.RawMessage `json:"signal,omitempty"`
	CallType CallType        `json:"callType,omitempty"`
}

// CallFailure is sent back to the emitting party when a call event cannot be
// applied: target offline, or a transition the handshake does not allow.
type CallFailure struct {
	To     UserID `json:"to"`
	Reason string `json:"reason"`
}
