package relay

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Connection is one live session: the opaque connection id assigned by the
// transport, the user it speaks for, and the room it currently occupies.
type Connection struct {
	ID     string
	UserID string
	RoomID string
}

// Registry is the ground truth of "who is connected, as what user, in what
// room". It maintains the connection table and the room secondary index under
// a single mutex so no observer can ever see one updated without the other.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Connection
	rooms map[string]map[string]struct{} // room id -> set of connection ids
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Connection),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Add registers a connection under the given user and room. An existing entry
// for the same connection id is replaced and returned as prev, so callers can
// run leave-semantics for the room the connection came from. prev is nil for a
// first-time join.
func (r *Registry) Add(connID, userID, roomID string) (Connection, *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var prev *Connection
	if old, ok := r.conns[connID]; ok {
		prev = &old
		r.dropFromRoom(old.RoomID, connID)
	}

	conn := Connection{ID: connID, UserID: userID, RoomID: roomID}
	r.conns[connID] = conn
	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][connID] = struct{}{}
	return conn, prev
}

// Remove deletes and returns the entry for connID. The second return value is
// false when no such connection is registered, a normal outcome for duplicate
// disconnect events.
func (r *Registry) Remove(connID string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return Connection{}, false
	}
	delete(r.conns, connID)
	r.dropFromRoom(conn.RoomID, connID)
	return conn, true
}

// Get is a read-only lookup of the entry for connID.
func (r *Registry) Get(connID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	return conn, ok
}

// MembersOf returns the user identifiers currently connected to roomID,
// deduplicated and sorted so snapshots are deterministic.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.rooms[roomID]))
	for connID := range r.rooms[roomID] {
		users = append(users, r.conns[connID].UserID)
	}
	users = lo.Uniq(users)
	sort.Strings(users)
	return users
}

// ConnectionsIn returns the connection ids currently indexed under roomID,
// the broadcast audience for that room.
func (r *Registry) ConnectionsIn(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := lo.Keys(r.rooms[roomID])
	sort.Strings(ids)
	return ids
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// dropFromRoom removes connID from the room index, pruning empty rooms.
// Callers must hold the write lock.
func (r *Registry) dropFromRoom(roomID, connID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}
