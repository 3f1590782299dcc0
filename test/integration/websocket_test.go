// Package integration verifies the assembled relay server end to end: real
// HTTP server, real WebSocket connections, full join/send/disconnect flows.
package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"disclone/internal/relay"
	"disclone/test/testhelpers"
)

// TestJoinFlow verifies the first-contact sequence: welcome to the joiner,
// announcement to peers, membership snapshots to everyone.
func TestJoinFlow(t *testing.T) {
	_, wsURL := testhelpers.StartRelayServer(t, []string{"*"})

	alice := testhelpers.Dial(t, wsURL, "http://test.example")
	testhelpers.SendJoin(t, alice, "alice", "general")

	welcome := testhelpers.ReadMessagePayload(t, alice)
	require.Equal(t, relay.SystemUser, welcome.User)
	require.Equal(t, "Welcome to the channel!", welcome.Text)

	snapshot := testhelpers.ReadRoomDataPayload(t, alice)
	require.Equal(t, "general", snapshot.Room)
	require.Equal(t, []string{"alice"}, snapshot.Users)

	bob := testhelpers.Dial(t, wsURL, "http://test.example")
	testhelpers.SendJoin(t, bob, "bob", "general")

	joined := testhelpers.ReadMessagePayload(t, alice)
	require.Equal(t, relay.SystemUser, joined.User)
	require.Equal(t, "bob has joined!", joined.Text)

	snapshot = testhelpers.ReadRoomDataPayload(t, alice)
	require.Equal(t, []string{"alice", "bob"}, snapshot.Users)

	welcome = testhelpers.ReadMessagePayload(t, bob)
	require.Equal(t, "Welcome to the channel!", welcome.Text)
	snapshot = testhelpers.ReadRoomDataPayload(t, bob)
	require.Equal(t, []string{"alice", "bob"}, snapshot.Users)
}

// TestChatBroadcastAndAck verifies messages echo to every member, sender
// included, and that the sender gets its delivery ack after the broadcast.
func TestChatBroadcastAndAck(t *testing.T) {
	_, wsURL := testhelpers.StartRelayServer(t, []string{"*"})

	alice := testhelpers.Dial(t, wsURL, "http://test.example")
	testhelpers.SendJoin(t, alice, "alice", "general")
	testhelpers.ReadMessagePayload(t, alice)
	testhelpers.ReadRoomDataPayload(t, alice)

	bob := testhelpers.Dial(t, wsURL, "http://test.example")
	testhelpers.SendJoin(t, bob, "bob", "general")
	testhelpers.ReadMessagePayload(t, alice) // bob has joined!
	testhelpers.ReadRoomDataPayload(t, alice)
	testhelpers.ReadMessagePayload(t, bob)
	testhelpers.ReadRoomDataPayload(t, bob)

	testhelpers.SendChat(t, alice, "alice", "general", "hi", 7)

	for name, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		msg := testhelpers.ReadMessagePayload(t, conn)
		require.Equal(t, "alice", msg.User, "reader %s", name)
		require.Equal(t, "hi", msg.Text, "reader %s", name)
		require.False(t, msg.CreatedAt.IsZero(), "server assigns the timestamp")
	}

	ack := testhelpers.ReadFrame(t, alice, 2*time.Second)
	require.Equal(t, relay.EventAck, ack.Event)
	var payload relay.AckPayload
	require.NoError(t, json.Unmarshal(ack.Data, &payload))
	require.Equal(t, int64(7), payload.AckID)
}

// TestDisconnectNotifiesRoom verifies a dropped connection surfaces to the
// remaining members as a leave announcement plus a corrected snapshot.
func TestDisconnectNotifiesRoom(t *testing.T) {
	_, wsURL := testhelpers.StartRelayServer(t, []string{"*"})

	alice := testhelpers.Dial(t, wsURL, "http://test.example")
	testhelpers.SendJoin(t, alice, "alice", "general")
	testhelpers.ReadMessagePayload(t, alice)
	testhelpers.ReadRoomDataPayload(t, alice)

	bob := testhelpers.Dial(t, wsURL, "http://test.example")
	testhelpers.SendJoin(t, bob, "bob", "general")
	testhelpers.ReadMessagePayload(t, alice)
	testhelpers.ReadRoomDataPayload(t, alice)

	require.NoError(t, bob.Close())

	left := testhelpers.ReadMessagePayload(t, alice)
	require.Equal(t, relay.SystemUser, left.User)
	require.Equal(t, "bob has left!", left.Text)

	snapshot := testhelpers.ReadRoomDataPayload(t, alice)
	require.Equal(t, []string{"alice"}, snapshot.Users)
}

// TestRoomSwitch verifies a second join moves the connection between rooms
// and both audiences observe the change.
func TestRoomSwitch(t *testing.T) {
	_, wsURL := testhelpers.StartRelayServer(t, []string{"*"})

	alice := testhelpers.Dial(t, wsURL, "http://test.example")
	testhelpers.SendJoin(t, alice, "alice", "general")
	testhelpers.ReadMessagePayload(t, alice)
	testhelpers.ReadRoomDataPayload(t, alice)

	bob := testhelpers.Dial(t, wsURL, "http://test.example")
	testhelpers.SendJoin(t, bob, "bob", "general")
	testhelpers.ReadMessagePayload(t, alice)
	testhelpers.ReadRoomDataPayload(t, alice)
	testhelpers.ReadMessagePayload(t, bob)
	testhelpers.ReadRoomDataPayload(t, bob)

	testhelpers.SendJoin(t, bob, "bob", "random")

	left := testhelpers.ReadMessagePayload(t, alice)
	require.Equal(t, "bob has left!", left.Text)
	snapshot := testhelpers.ReadRoomDataPayload(t, alice)
	require.Equal(t, []string{"alice"}, snapshot.Users)

	welcome := testhelpers.ReadMessagePayload(t, bob)
	require.Equal(t, "Welcome to the channel!", welcome.Text)
	snapshot = testhelpers.ReadRoomDataPayload(t, bob)
	require.Equal(t, "random", snapshot.Room)
	require.Equal(t, []string{"bob"}, snapshot.Users)
}

// TestMembersEndpoint verifies the HTTP presence query reflects live
// registry state.
func TestMembersEndpoint(t *testing.T) {
	ts, wsURL := testhelpers.StartRelayServer(t, []string{"*"})

	alice := testhelpers.Dial(t, wsURL, "http://test.example")
	testhelpers.SendJoin(t, alice, "alice", "general")
	testhelpers.ReadMessagePayload(t, alice)
	testhelpers.ReadRoomDataPayload(t, alice)

	resp, err := http.Get(ts.URL + "/channels/general/members")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var snapshot relay.RoomDataPayload
	require.NoError(t, json.Unmarshal(body, &snapshot))
	require.Equal(t, "general", snapshot.Room)
	require.Equal(t, []string{"alice"}, snapshot.Users)
}

// TestHealthEndpoint checks the root route answers.
func TestHealthEndpoint(t *testing.T) {
	ts, _ := testhelpers.StartRelayServer(t, []string{"*"})

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
