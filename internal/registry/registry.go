// Package registry is the authoritative in-memory signalling state: live
// sessions, admitted peers, the host-socket index used for disconnect
// cleanup, and the set of room-update subscribers.
//
// A Registry is a plain state machine with no internal locking. The websocket
// hub owns the single exclusive mutex and holds it across every operation,
// including a full frame dispatch, which keeps the cross-map invariants easy
// to reason about.
package registry

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/adidharmatoru/remo-signal/internal/protocol"
)

// Registry failure modes. The first three texts are wire-visible: a
// join_declined frame carries them verbatim as the decline reason, so they
// keep the original capitalized phrasing.
var (
	ErrDeviceOnline  = errors.New("Device is currently online")
	ErrDeviceOffline = errors.New("Device is offline")
	ErrPeerNotFound  = errors.New("Peer does not exist")
)

// Role distinguishes the two peer kinds.
type Role string

const (
	RoleServer Role = "server"
	RoleViewer Role = "viewer"
)

// Sender is the write-only capability the registry holds on behalf of a peer:
// a non-blocking enqueue onto the peer's outbound queue. Sends are best
// effort; a closed queue is reported but callers routinely ignore it.
type Sender interface {
	TrySend(frame []byte) error
}

// Peer is one admitted client: a host after start, a viewer after a
// successful join.
type Peer struct {
	ID     string
	Room   string
	Role   Role
	Sender Sender
}

// Session is the live state of one room. The host's peer id equals the room
// name.
type Session struct {
	Room       string
	HostPeerID string
	HostSocket string
	Viewers    map[string]bool
	StartTime  time.Time
	Name       string
	OS         string
	Version    string
	Control    bool
}

// Registry holds all signalling state for one hub instance.
type Registry struct {
	sessions     map[string]*Session
	peers        map[string]*Peer
	socketToRoom map[string]string
	subscribers  map[string]bool
	logger       *slog.Logger
	now          func() time.Time
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		sessions:     make(map[string]*Session),
		peers:        make(map[string]*Peer),
		socketToRoom: make(map[string]string),
		subscribers:  make(map[string]bool),
		logger:       logger,
		now:          time.Now,
	}
}

// AddServer opens a room with the given metadata. The room name becomes the
// host's peer id and the host socket is indexed for disconnect cleanup.
// Fails with ErrDeviceOnline when the room is already live.
func (r *Registry) AddServer(room, name, os, version string, control bool, sender Sender, socket string) error {
	if _, ok := r.sessions[room]; ok {
		return ErrDeviceOnline
	}

	r.sessions[room] = &Session{
		Room:       room,
		HostPeerID: room,
		HostSocket: socket,
		Viewers:    make(map[string]bool),
		StartTime:  r.now(),
		Name:       name,
		OS:         os,
		Version:    version,
		Control:    control,
	}
	r.peers[room] = &Peer{ID: room, Room: room, Role: RoleServer, Sender: sender}
	r.socketToRoom[socket] = room

	return nil
}

// AddViewer admits a viewer into a live room. Fails with ErrDeviceOffline
// when the room does not exist. A peer id that is already admitted elsewhere
// is overwritten; the stale membership entry in the earlier session is not
// cleaned up, matching the source behavior.
func (r *Registry) AddViewer(id, room string, sender Sender) error {
	sess, ok := r.sessions[room]
	if !ok {
		return ErrDeviceOffline
	}

	sess.Viewers[id] = true
	r.peers[id] = &Peer{ID: id, Room: room, Role: RoleViewer, Sender: sender}

	return nil
}

// LeaveSession withdraws the identified peer. A host id tears down its whole
// session; a viewer id leaves only its room. Unknown ids fail with
// ErrPeerNotFound.
func (r *Registry) LeaveSession(id string) error {
	if _, ok := r.sessions[id]; ok {
		r.removeSession(id)
		return nil
	}

	peer, ok := r.peers[id]
	if !ok {
		return ErrPeerNotFound
	}
	if sess, ok := r.sessions[peer.Room]; ok {
		delete(sess.Viewers, id)
	}
	delete(r.peers, id)

	return nil
}

// OnDisconnect runs cleanup for a dropped connection. Only host sockets are
// indexed, so a viewer disconnect is a no-op here; its peer entry lingers
// until the session ends.
func (r *Registry) OnDisconnect(socket string) {
	if room, ok := r.socketToRoom[socket]; ok {
		r.removeSession(room)
	}
}

// removeSession tears a room down: every viewer is told the server closed and
// evicted, then the host peer and all indices go.
func (r *Registry) removeSession(room string) {
	sess, ok := r.sessions[room]
	if !ok {
		return
	}

	delete(r.sessions, room)
	delete(r.socketToRoom, sess.HostSocket)

	for id := range sess.Viewers {
		if peer, ok := r.peers[id]; ok {
			frame, _ := protocol.Encode(protocol.ServerClosed{To: id, Room: room})
			_ = peer.Sender.TrySend(frame)
		}
		delete(r.peers, id)
	}
	delete(r.peers, room)

	r.logger.Info("session ended",
		"room", room,
		"duration_seconds", r.now().Sub(sess.StartTime).Seconds(),
	)
}

// SubscribeRoomUpdates adds the id to the notification set. No check that the
// id names a live peer; the fan-out tolerates absentees.
func (r *Registry) SubscribeRoomUpdates(id string) {
	r.subscribers[id] = true
}

// UnsubscribeRoomUpdates removes the id. Absent ids are a no-op.
func (r *Registry) UnsubscribeRoomUpdates(id string) {
	delete(r.subscribers, id)
}

// NotifyRoomUpdate enqueues a new_room_notification on every subscribed peer
// that is still connected. Missing peers and enqueue failures are skipped.
func (r *Registry) NotifyRoomUpdate(room string) {
	if len(r.subscribers) == 0 {
		return
	}

	frame, _ := protocol.Encode(protocol.NewRoomNotification{Room: room})
	for id := range r.subscribers {
		peer, ok := r.peers[id]
		if !ok {
			continue
		}
		_ = peer.Sender.TrySend(frame)
	}
}

// RoomQuery carries the optional get_room_list criteria. Nil fields do not
// constrain.
type RoomQuery struct {
	OS      *string
	Version *string
	Server  *string
	Name    *string
	Sort    *string
	Control *bool
	Page    *int
	PerPage *int
}

const defaultPerPage = 6

// AvailableRooms sorts all sessions by start time (descending unless sort is
// "asc"), filters them, and returns one page plus the filtered total.
// The os, version and server criteria match case-insensitively; name is a
// case-insensitive substring match.
func (r *Registry) AvailableRooms(q RoomQuery) (map[string]protocol.RoomInfo, int) {
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}

	ascending := q.Sort != nil && *q.Sort == "asc"
	sort.SliceStable(sessions, func(i, j int) bool {
		if ascending {
			return sessions[i].StartTime.Before(sessions[j].StartTime)
		}
		return sessions[j].StartTime.Before(sessions[i].StartTime)
	})

	filtered := sessions[:0]
	for _, sess := range sessions {
		if q.OS != nil && !strings.EqualFold(sess.OS, *q.OS) {
			continue
		}
		if q.Version != nil && !strings.EqualFold(sess.Version, *q.Version) {
			continue
		}
		if q.Server != nil && !strings.EqualFold(sess.HostPeerID, *q.Server) {
			continue
		}
		if q.Name != nil && !strings.Contains(strings.ToLower(sess.Name), strings.ToLower(*q.Name)) {
			continue
		}
		if q.Control != nil && sess.Control != *q.Control {
			continue
		}
		filtered = append(filtered, sess)
	}

	total := len(filtered)

	page := 1
	if q.Page != nil && *q.Page > 1 {
		page = *q.Page
	}
	perPage := defaultPerPage
	if q.PerPage != nil {
		perPage = *q.PerPage
		if perPage < 0 {
			perPage = 0
		}
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	rooms := make(map[string]protocol.RoomInfo, end-start)
	for _, sess := range filtered[start:end] {
		viewers := make([]string, 0, len(sess.Viewers))
		for id := range sess.Viewers {
			viewers = append(viewers, id)
		}
		rooms[sess.Room] = protocol.RoomInfo{
			Server:      sess.HostPeerID,
			ViewerCount: len(sess.Viewers),
			Viewers:     viewers,
			OS:          sess.OS,
			Version:     sess.Version,
			Name:        sess.Name,
			Control:     sess.Control,
		}
	}

	return rooms, total
}

// Peer looks up an admitted peer by id.
func (r *Registry) Peer(id string) (*Peer, bool) {
	peer, ok := r.peers[id]
	return peer, ok
}

// PeerBySender finds the peer currently bound to the given sender handle.
// Sender handles are per-connection, so identity comparison suffices.
func (r *Registry) PeerBySender(sender Sender) (*Peer, bool) {
	for _, peer := range r.peers {
		if peer.Sender == sender {
			return peer, true
		}
	}
	return nil, false
}

// Session looks up a live session by room.
func (r *Registry) Session(room string) (*Session, bool) {
	sess, ok := r.sessions[room]
	return sess, ok
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int {
	return len(r.sessions)
}

// PeerCount returns the number of admitted peers, hosts included.
func (r *Registry) PeerCount() int {
	return len(r.peers)
}
