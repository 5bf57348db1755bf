package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Decode Tests
// =============================================================================

func TestDecode_Start(t *testing.T) {
	raw := []byte(`{"type":"start","room":"R","name":"desk","os":"linux","version":"1.2","control":true}`)

	msg, err := Decode(raw)
	require.NoError(t, err)

	start, ok := msg.(*Start)
	require.True(t, ok)
	assert.Equal(t, "R", start.Room)
	assert.Equal(t, "desk", start.Name)
	assert.Equal(t, "linux", start.OS)
	assert.Equal(t, "1.2", start.Version)
	assert.True(t, start.Control)
}

func TestDecode_StartControlFalseStillProvided(t *testing.T) {
	// A field explicitly set to its zero value counts as provided.
	raw := []byte(`{"type":"start","room":"R","name":"n","os":"o","version":"v","control":false}`)

	msg, err := Decode(raw)
	require.NoError(t, err)
	assert.False(t, msg.(*Start).Control)
}

func TestDecode_Join(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"join","from":"V1","room":"R"}`))
	require.NoError(t, err)

	join, ok := msg.(*Join)
	require.True(t, ok)
	assert.Equal(t, "V1", join.From)
	assert.Equal(t, "R", join.Room)
}

func TestDecode_OfferIgnoresOpaqueFields(t *testing.T) {
	// The SDP blob is opaque; decoding routes on from/to only.
	raw := []byte(`{"type":"offer","from":"R","to":"V1","sdp":"v=0\r\no=- 42 2 IN IP4 127.0.0.1"}`)

	msg, err := Decode(raw)
	require.NoError(t, err)

	offer, ok := msg.(*Offer)
	require.True(t, ok)
	assert.Equal(t, "R", offer.From)
	assert.Equal(t, "V1", offer.To)
}

func TestDecode_KeepAlive(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"keep_alive"}`))
	require.NoError(t, err)
	assert.Equal(t, KindKeepAlive, msg.Kind())
}

func TestDecode_GetRoomList_AllFieldsOptional(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"get_room_list"}`))
	require.NoError(t, err)

	list, ok := msg.(*GetRoomList)
	require.True(t, ok)
	assert.Nil(t, list.OS)
	assert.Nil(t, list.Page)
	assert.Nil(t, list.Control)
}

func TestDecode_GetRoomList_WithCriteria(t *testing.T) {
	raw := []byte(`{"type":"get_room_list","os":"linux","sort":"asc","control":false,"page":2,"per_page":10}`)

	msg, err := Decode(raw)
	require.NoError(t, err)

	list := msg.(*GetRoomList)
	require.NotNil(t, list.OS)
	assert.Equal(t, "linux", *list.OS)
	require.NotNil(t, list.Sort)
	assert.Equal(t, "asc", *list.Sort)
	require.NotNil(t, list.Control)
	assert.False(t, *list.Control)
	require.NotNil(t, list.Page)
	assert.Equal(t, 2, *list.Page)
	require.NotNil(t, list.PerPage)
	assert.Equal(t, 10, *list.PerPage)
}

// =============================================================================
// Decode Failure Tests
// =============================================================================

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":"start"`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecode_MissingType(t *testing.T) {
	_, err := Decode([]byte(`{"room":"R"}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"teleport","room":"R"}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecode_MissingRequiredField(t *testing.T) {
	_, err := Decode([]byte(`{"type":"join","from":"V1"}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = Decode([]byte(`{"type":"start","room":"R","name":"n","os":"o","version":"v"}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecode_NonStringType(t *testing.T) {
	_, err := Decode([]byte(`{"type":7}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

// =============================================================================
// Encode Tests
// =============================================================================

func TestEncode_InjectsDiscriminator(t *testing.T) {
	frame, err := Encode(StartResponse{Room: "R"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start_response","room":"R"}`, string(frame))
}

func TestEncode_FieldlessVariants(t *testing.T) {
	frame, err := Encode(KeepAlive{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"keep_alive"}`, string(frame))

	frame, err = Encode(SubscribeRoomUpdates{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"subscribe_room_updates"}`, string(frame))
}

func TestEncode_IceServerDefaultsToEmptyCredentials(t *testing.T) {
	frame, err := Encode(IceServersResponse{
		IceServers: []IceServer{{URL: "stun:stun.example.com:3478"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"ice_servers_response","ice_servers":[{"url":"stun:stun.example.com:3478","username":"","password":""}]}`,
		string(frame))
}

// =============================================================================
// Round-Trip Tests
// =============================================================================

func TestRoundTrip_JoinDeclined(t *testing.T) {
	original := JoinDeclined{To: "V1", Reason: "Device is offline"}

	frame, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, &original, decoded)
}

func TestRoundTrip_ServerClosed(t *testing.T) {
	original := ServerClosed{To: "V1", Room: "R"}

	frame, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, &original, decoded)
}

func TestRoundTrip_RoomListResponse(t *testing.T) {
	page, perPage := 1, 6
	original := RoomListResponse{
		Rooms: map[string]RoomInfo{
			"R": {Server: "R", ViewerCount: 1, Viewers: []string{"V1"}, OS: "linux", Version: "1", Name: "desk", Control: true},
		},
		TotalCount: 3,
		Page:       &page,
		PerPage:    &perPage,
	}

	frame, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, &original, decoded)
}

func TestRoundTrip_NewRoomNotification(t *testing.T) {
	original := NewRoomNotification{Room: "R2"}

	frame, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, &original, decoded)
}

func TestRoundTrip_OmittedOptionalFieldsStayAbsent(t *testing.T) {
	frame, err := Encode(GetRoomList{})
	require.NoError(t, err)

	var asMap map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frame, &asMap))
	assert.Len(t, asMap, 1, "only the discriminator should be present")

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, &GetRoomList{}, decoded)
}
