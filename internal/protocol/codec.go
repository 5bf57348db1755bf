package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformedFrame is returned by Decode for frames that are not valid JSON,
// carry an unknown discriminator, or miss a required field.
var ErrMalformedFrame = errors.New("malformed frame")

// Decode parses one wire frame into its typed variant. Field presence is
// checked on the raw bytes, so a field explicitly set to its zero value still
// counts as provided.
func Decode(raw []byte) (Message, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedFrame)
	}

	kind := gjson.GetBytes(raw, "type")
	if kind.Type != gjson.String {
		return nil, fmt.Errorf("%w: missing type discriminator", ErrMalformedFrame)
	}

	switch kind.Str {
	case KindStart:
		return unmarshalFrame[Start](raw, "room", "name", "os", "version", "control")
	case KindStartResponse:
		return unmarshalFrame[StartResponse](raw, "room")
	case KindJoin:
		return unmarshalFrame[Join](raw, "from", "room")
	case KindJoinDeclined:
		return unmarshalFrame[JoinDeclined](raw, "to", "reason")
	case KindOffer:
		return unmarshalFrame[Offer](raw, "from", "to")
	case KindAnswer:
		return unmarshalFrame[Answer](raw, "from", "to")
	case KindIce:
		return unmarshalFrame[Ice](raw, "from", "to")
	case KindLeave:
		return unmarshalFrame[Leave](raw, "from")
	case KindServerClosed:
		return unmarshalFrame[ServerClosed](raw, "to", "room")
	case KindKeepAlive:
		return unmarshalFrame[KeepAlive](raw)
	case KindIceServers:
		return unmarshalFrame[IceServers](raw)
	case KindIceServersResponse:
		return unmarshalFrame[IceServersResponse](raw, "ice_servers")
	case KindGetRoomList:
		return unmarshalFrame[GetRoomList](raw)
	case KindRoomListResponse:
		return unmarshalFrame[RoomListResponse](raw, "rooms", "total_count")
	case KindSubscribeRoomUpdates:
		return unmarshalFrame[SubscribeRoomUpdates](raw)
	case KindUnsubscribeRoomUpdates:
		return unmarshalFrame[UnsubscribeRoomUpdates](raw)
	case KindNewRoomNotification:
		return unmarshalFrame[NewRoomNotification](raw, "room")
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, kind.Str)
	}
}

// Encode serializes a message. It exists so callers do not reach for
// json.Marshal directly and lose the discriminator by accident.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

func unmarshalFrame[T any](raw []byte, required ...string) (*T, error) {
	for _, field := range required {
		if !gjson.GetBytes(raw, field).Exists() {
			return nil, fmt.Errorf("%w: missing field %q", ErrMalformedFrame, field)
		}
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return v, nil
}
