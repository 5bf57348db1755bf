// Package protocol defines the signalling wire format: one JSON object per
// text frame, discriminated by a snake_case "type" field, with the payload
// flattened into the same object.
//
// Frames that the hub merely relays (offer, answer, ice, join, join_declined)
// carry opaque fields such as SDP blobs and candidate strings. The hub decodes
// only the fields it routes on and forwards the original bytes, so those
// payloads survive untouched.
package protocol

import "encoding/json"

// Discriminator values for the "type" field.
const (
	KindStart                  = "start"
	KindStartResponse          = "start_response"
	KindJoin                   = "join"
	KindJoinDeclined           = "join_declined"
	KindOffer                  = "offer"
	KindAnswer                 = "answer"
	KindIce                    = "ice"
	KindLeave                  = "leave"
	KindServerClosed           = "server_closed"
	KindKeepAlive              = "keep_alive"
	KindIceServers             = "ice_servers"
	KindIceServersResponse     = "ice_servers_response"
	KindGetRoomList            = "get_room_list"
	KindRoomListResponse       = "room_list_response"
	KindSubscribeRoomUpdates   = "subscribe_room_updates"
	KindUnsubscribeRoomUpdates = "unsubscribe_room_updates"
	KindNewRoomNotification    = "new_room_notification"
)

// Message is implemented by every wire variant.
type Message interface {
	Kind() string
}

// RoomInfo describes one listed room in a room_list_response.
type RoomInfo struct {
	Server      string   `json:"server"`
	ViewerCount int      `json:"viewer_count"`
	Viewers     []string `json:"viewers"`
	OS          string   `json:"os"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Control     bool     `json:"control"`
}

// IceServer is a STUN or TURN endpoint handed to clients for NAT traversal.
// Username and password encode as empty strings when unset.
type IceServer struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Start registers a new room. The room name doubles as the host's peer id.
type Start struct {
	Room    string `json:"room"`
	Name    string `json:"name"`
	OS      string `json:"os"`
	Version string `json:"version"`
	Control bool   `json:"control"`
}

// StartResponse acknowledges a successful start.
type StartResponse struct {
	Room string `json:"room"`
}

// Join asks to enter a room as a viewer. On success the original frame is
// forwarded to the room's host.
type Join struct {
	From string `json:"from"`
	Room string `json:"room"`
}

// JoinDeclined rejects a join. It is hub-originated on registry failure and
// may also be sent by a host to turn a viewer away, in which case it is
// forwarded like any addressed frame.
type JoinDeclined struct {
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// Offer carries a session description from one peer to another. Fields beyond
// the routing pair are opaque to the hub.
type Offer struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Answer is the response to an Offer. Opaque beyond the routing pair.
type Answer struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Ice carries an ICE candidate between peers. Opaque beyond the routing pair.
type Ice struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Leave withdraws a peer: hosts tear down their room, viewers just leave it.
type Leave struct {
	From string `json:"from"`
}

// ServerClosed tells a viewer that its session's host is gone.
type ServerClosed struct {
	To   string `json:"to"`
	Room string `json:"room"`
}

// KeepAlive is accepted and ignored; it exists for intermediaries.
type KeepAlive struct{}

// IceServers requests the ICE server list.
type IceServers struct{}

// IceServersResponse returns the resolved ICE servers.
type IceServersResponse struct {
	IceServers []IceServer `json:"ice_servers"`
}

// GetRoomList queries available rooms. Absent criteria do not constrain.
type GetRoomList struct {
	OS      *string `json:"os,omitempty"`
	Name    *string `json:"name,omitempty"`
	Version *string `json:"version,omitempty"`
	Server  *string `json:"server,omitempty"`
	Sort    *string `json:"sort,omitempty"`
	Control *bool   `json:"control,omitempty"`
	Page    *int    `json:"page,omitempty"`
	PerPage *int    `json:"per_page,omitempty"`
}

// RoomListResponse returns one page of rooms. TotalCount is the filtered
// count before pagination; Page and PerPage echo the request.
type RoomListResponse struct {
	Rooms      map[string]RoomInfo `json:"rooms"`
	TotalCount int                 `json:"total_count"`
	Page       *int                `json:"page,omitempty"`
	PerPage    *int                `json:"per_page,omitempty"`
}

// SubscribeRoomUpdates opts the sending peer into new-room notifications.
type SubscribeRoomUpdates struct{}

// UnsubscribeRoomUpdates opts the sending peer out again.
type UnsubscribeRoomUpdates struct{}

// NewRoomNotification is fanned out to subscribers when a room opens.
type NewRoomNotification struct {
	Room string `json:"room"`
}

func (Start) Kind() string                  { return KindStart }
func (StartResponse) Kind() string          { return KindStartResponse }
func (Join) Kind() string                   { return KindJoin }
func (JoinDeclined) Kind() string           { return KindJoinDeclined }
func (Offer) Kind() string                  { return KindOffer }
func (Answer) Kind() string                 { return KindAnswer }
func (Ice) Kind() string                    { return KindIce }
func (Leave) Kind() string                  { return KindLeave }
func (ServerClosed) Kind() string           { return KindServerClosed }
func (KeepAlive) Kind() string              { return KindKeepAlive }
func (IceServers) Kind() string             { return KindIceServers }
func (IceServersResponse) Kind() string     { return KindIceServersResponse }
func (GetRoomList) Kind() string            { return KindGetRoomList }
func (RoomListResponse) Kind() string       { return KindRoomListResponse }
func (SubscribeRoomUpdates) Kind() string   { return KindSubscribeRoomUpdates }
func (UnsubscribeRoomUpdates) Kind() string { return KindUnsubscribeRoomUpdates }
func (NewRoomNotification) Kind() string    { return KindNewRoomNotification }

// The MarshalJSON implementations inject the "type" discriminator while
// keeping the payload flat. The local alias drops the method set so the
// embedded marshal cannot recurse.

func (m Start) MarshalJSON() ([]byte, error) {
	type alias Start
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindStart, alias(m)})
}

func (m StartResponse) MarshalJSON() ([]byte, error) {
	type alias StartResponse
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindStartResponse, alias(m)})
}

func (m Join) MarshalJSON() ([]byte, error) {
	type alias Join
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindJoin, alias(m)})
}

func (m JoinDeclined) MarshalJSON() ([]byte, error) {
	type alias JoinDeclined
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindJoinDeclined, alias(m)})
}

func (m Offer) MarshalJSON() ([]byte, error) {
	type alias Offer
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindOffer, alias(m)})
}

func (m Answer) MarshalJSON() ([]byte, error) {
	type alias Answer
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindAnswer, alias(m)})
}

func (m Ice) MarshalJSON() ([]byte, error) {
	type alias Ice
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindIce, alias(m)})
}

func (m Leave) MarshalJSON() ([]byte, error) {
	type alias Leave
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindLeave, alias(m)})
}

func (m ServerClosed) MarshalJSON() ([]byte, error) {
	type alias ServerClosed
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindServerClosed, alias(m)})
}

func (m KeepAlive) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{KindKeepAlive})
}

func (m IceServers) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{KindIceServers})
}

func (m IceServersResponse) MarshalJSON() ([]byte, error) {
	type alias IceServersResponse
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindIceServersResponse, alias(m)})
}

func (m GetRoomList) MarshalJSON() ([]byte, error) {
	type alias GetRoomList
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindGetRoomList, alias(m)})
}

func (m RoomListResponse) MarshalJSON() ([]byte, error) {
	type alias RoomListResponse
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindRoomListResponse, alias(m)})
}

func (m SubscribeRoomUpdates) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{KindSubscribeRoomUpdates})
}

func (m UnsubscribeRoomUpdates) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{KindUnsubscribeRoomUpdates})
}

func (m NewRoomNotification) MarshalJSON() ([]byte, error) {
	type alias NewRoomNotification
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{KindNewRoomNotification, alias(m)})
}
