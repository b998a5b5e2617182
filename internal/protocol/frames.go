// Package protocol defines the tagged-JSON wire model. Every message is an
// object with a string field "t"; the tag is peeked first and the body is
// decoded per frame type, so a malformed body never crosses into the
// exchange.
package protocol

import (
	"encoding/json"

	"github.com/vibephone/switchboard/internal/core"
	"github.com/vibephone/switchboard/internal/domain"
)

// FrameType is the closed set of wire tags.
type FrameType string

// Client to server.
const (
	TIdentify FrameType = "identify"
	TSetName  FrameType = "set_name"
	TJoin     FrameType = "join"
	TLeave    FrameType = "leave"
	TChat     FrameType = "chat"
	TDM       FrameType = "dm"

	// App distribution frames, legal before identification.
	TAppsList    FrameType = "apps_list"
	TAppManifest FrameType = "app_manifest"
	TAppFetch    FrameType = "app_fetch"
)

// Server to client.
const (
	THello        FrameType = "hello"
	TDirectory    FrameType = "directory"
	TSystem       FrameType = "system"
	TJoined       FrameType = "joined"
	TLeft         FrameType = "left"
	TNameOK       FrameType = "name_ok"
	TIdentifyFail FrameType = "identify_fail"
)

// AppFrame reports whether the tag belongs to the app distribution service.
func (t FrameType) AppFrame() bool {
	return t == TAppsList || t == TAppManifest || t == TAppFetch
}

// Tag peeks the frame type of an inbound message without decoding the body.
func Tag(data []byte) (FrameType, bool) {
	var env struct {
		T string `json:"t"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.T == "" {
		return "", false
	}
	return FrameType(env.T), true
}

// Inbound payloads, one struct per frame type. A decode error means the
// frame is dropped without reply.

type IdentifyPayload struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
}

type SetNamePayload struct {
	Name string `json:"name"`
}

type JoinPayload struct {
	Room string `json:"room"`
}

type LeavePayload struct {
	Room string `json:"room"`
}

type ChatPayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// DMPayload rejects non-numeric targets at decode time.
type DMPayload struct {
	To   int    `json:"to"`
	Text string `json:"text"`
}

func Decode[P any](data []byte) (P, bool) {
	var p P
	if err := json.Unmarshal(data, &p); err != nil {
		return p, false
	}
	return p, true
}

// Outbound frames.

type Hello struct {
	T           FrameType       `json:"t"`
	Call        domain.CallID   `json:"call"`
	DefaultRoom domain.RoomName `json:"defaultRoom"`
	ServerTime  int64           `json:"serverTime"`
	Temporary   bool            `json:"temporary"`
}

type Directory struct {
	T     FrameType       `json:"t"`
	Users []core.Presence `json:"users"`
}

type System struct {
	T    FrameType       `json:"t"`
	Room domain.RoomName `json:"room"`
	Text string          `json:"text"`
	TS   int64           `json:"ts"`
}

type Chat struct {
	T    FrameType       `json:"t"`
	Room domain.RoomName `json:"room"`
	From domain.CallID   `json:"from"`
	Name string          `json:"name"`
	Text string          `json:"text"`
	TS   int64           `json:"ts"`
}

type DM struct {
	T    FrameType     `json:"t"`
	From domain.CallID `json:"from"`
	To   domain.CallID `json:"to"`
	Name string        `json:"name"`
	Text string        `json:"text"`
	TS   int64         `json:"ts"`
}

type Joined struct {
	T    FrameType       `json:"t"`
	Room domain.RoomName `json:"room"`
}

type Left struct {
	T    FrameType       `json:"t"`
	Room domain.RoomName `json:"room"`
}

type NameOK struct {
	T    FrameType `json:"t"`
	Name string    `json:"name"`
}

type IdentifyFail struct {
	T     FrameType `json:"t"`
	Error string    `json:"error"`
}

// Encode marshals an outbound frame. The frame structs are plain data, so
// an error here indicates a programming mistake, not bad input.
func Encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
