package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Stream/internal/domain"
)

// Inbound event names.
const (
	EventJoinRoom        = "join-room"
	EventLeaveRoom       = "leave-room"
	EventSendingSignal   = "sending-signal"
	EventReturningSignal = "returning-signal"
	EventStreamStarted   = "stream-started"
	EventStreamStopped   = "stream-stopped"
	EventPing            = "ping"
	EventWhoAmI          = "whoami"
)

// Outbound event names.
const (
	EventWelcome          = "welcome"
	EventRoomInfo         = "room-info"
	EventUserConnected    = "user-connected"
	EventUserJoined       = "user-joined"
	EventReturnedSignal   = "receiving-returned-signal"
	EventUserDisconnected = "user-disconnected"
	EventNewStreamer      = "new-streamer"
	EventPong             = "pong"
)

// Envelope is the wire form of every frame: {"type": ..., "data": ...}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// EncodeEvent renders one outbound frame. HTML escaping is off so raw
// payloads keep their characters. Relay bodies get their payload spliced
// in byte for byte; the json encoder would compact it.
func EncodeEvent(eventType string, data any) (Frame, error) {
	if rc, ok := data.(relayBody); ok {
		return encodeRelay(eventType, rc)
	}
	return encodeJSON(outbound{Type: eventType, Data: data})
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// relayBody is an outbound body carrying an opaque client payload as its
// first field.
type relayBody interface {
	rawPayload() json.RawMessage
	withoutPayload() any
}

var payloadPlaceholder = []byte(`{"payload":null`)

func encodeRelay(eventType string, rb relayBody) (Frame, error) {
	raw := rb.rawPayload()
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("encode %s: payload is not valid json", eventType)
	}
	body, err := encodeJSON(rb.withoutPayload())
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(body, payloadPlaceholder) {
		return nil, fmt.Errorf("encode %s: unexpected body layout", eventType)
	}
	typ, err := encodeJSON(eventType)
	if err != nil {
		return nil, err
	}

	rest := body[len(payloadPlaceholder):]
	out := make([]byte, 0, len(typ)+len(raw)+len(rest)+32)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	out = append(out, `,"data":{"payload":`...)
	out = append(out, raw...)
	out = append(out, rest...)
	out = append(out, '}')
	return out, nil
}

// JoinRoomRequest is the data of "join-room".
type JoinRoomRequest struct {
	RoomID            string `json:"roomId"`
	DisplayName       string `json:"displayName"`
	RequestedStreamer bool   `json:"requestedStreamer"`
}

// SendingSignalRequest is the data of "sending-signal".
type SendingSignalRequest struct {
	ToConnectionID domain.ConnectionID `json:"toConnectionId"`
	Payload        json.RawMessage     `json:"payload"`
	DisplayName    string              `json:"displayName"`
}

// ReturningSignalRequest is the data of "returning-signal".
type ReturningSignalRequest struct {
	ToConnectionID domain.ConnectionID `json:"toConnectionId"`
	Payload        json.RawMessage     `json:"payload"`
}

// StreamStateRequest is the data of "stream-started" and "stream-stopped".
type StreamStateRequest struct {
	RoomID string `json:"roomId"`
}

type RoomInfo struct {
	RoomID       domain.RoomID        `json:"roomId"`
	Self         domain.Participant   `json:"self"`
	Participants []domain.Participant `json:"participants"`
	StreamerID   domain.ConnectionID  `json:"streamerId"`
}

type UserConnected struct {
	ConnectionID domain.ConnectionID `json:"connectionId"`
	DisplayName  domain.DisplayName  `json:"displayName"`
	IsStreamer   bool                `json:"isStreamer"`
}

type UserJoined struct {
	Payload          json.RawMessage     `json:"payload"`
	FromConnectionID domain.ConnectionID `json:"fromConnectionId"`
	DisplayName      domain.DisplayName  `json:"displayName"`
	IsStreamer       bool                `json:"isStreamer"`
}

type ReturnedSignal struct {
	Payload          json.RawMessage     `json:"payload"`
	FromConnectionID domain.ConnectionID `json:"fromConnectionId"`
}

func (u UserJoined) rawPayload() json.RawMessage { return u.Payload }

func (u UserJoined) withoutPayload() any {
	u.Payload = nil
	return u
}

func (r ReturnedSignal) rawPayload() json.RawMessage { return r.Payload }

func (r ReturnedSignal) withoutPayload() any {
	r.Payload = nil
	return r
}

type NewStreamer struct {
	StreamerID  domain.ConnectionID `json:"streamerId"`
	DisplayName domain.DisplayName  `json:"displayName"`
}

type StreamState struct {
	ConnectionID domain.ConnectionID `json:"connectionId"`
}

type Welcome struct {
	ConnectionID domain.ConnectionID `json:"connectionId"`
}

type WhoAmI struct {
	ConnectionID domain.ConnectionID `json:"connectionId"`
	DisplayName  domain.DisplayName  `json:"displayName,omitempty"`
	RoomID       domain.RoomID       `json:"roomId,omitempty"`
	IsStreamer   bool                `json:"isStreamer"`
}

// RoomSummary is a read-only view for APIs (no transport fields).
type RoomSummary struct {
	RoomID           domain.RoomID       `json:"roomId"`
	ParticipantCount int                 `json:"participantCount"`
	StreamerID       domain.ConnectionID `json:"streamerId"`
}
