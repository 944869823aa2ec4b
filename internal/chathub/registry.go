package chathub

import (
	"errors"
	"sort"
	"sync"

	"roomchat/backend/internal/models"

	"github.com/samber/lo"
)

var (
	// ErrSessionNotFound is returned when an operation names a session that
	// is not (or no longer) registered.
	ErrSessionNotFound = errors.New("session not registered")
	// ErrDuplicateSession is returned by Register for an id already in use.
	ErrDuplicateSession = errors.New("session already registered")
)

// Registry tracks which live sessions are in which room.
// All maps are guarded by one lock so that join, leave and leave-all are
// atomic with respect to each other. Delivery never happens under the lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Client
	rooms    map[string]map[string]Client
	joined   map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]Client),
		rooms:    make(map[string]map[string]Client),
		joined:   make(map[string]map[string]struct{}),
	}
}

// Register adds a live session.
func (r *Registry) Register(c Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.GetSessionID()
	if _, ok := r.sessions[id]; ok {
		return ErrDuplicateSession
	}
	r.sessions[id] = c
	r.joined[id] = make(map[string]struct{})
	return nil
}

// Unregister removes the session from every room and forgets it.
// It returns the rooms the session was in and whether this call did the
// removal, so callers can run disconnect side effects exactly once.
func (r *Registry) Unregister(sessionID string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return nil, false
	}
	rooms := r.leaveAllLocked(sessionID)
	delete(r.sessions, sessionID)
	delete(r.joined, sessionID)
	return rooms, true
}

// Join adds the session to room. It reports whether the session was newly
// added; joining a room twice leaves membership unchanged.
func (r *Registry) Join(sessionID, room string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.sessions[sessionID]
	if !ok {
		return false, ErrSessionNotFound
	}
	if _, in := r.joined[sessionID][room]; in {
		return false, nil
	}

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]Client)
		r.rooms[room] = members
	}
	members[sessionID] = c
	r.joined[sessionID][room] = struct{}{}
	return true, nil
}

// Leave removes the session from room. Leaving a room the session is not in
// is a no-op.
func (r *Registry) Leave(sessionID, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(sessionID, room)
}

// LeaveAll removes the session from every room it is in and returns them.
// The session stays registered.
func (r *Registry) LeaveAll(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveAllLocked(sessionID)
}

func (r *Registry) leaveLocked(sessionID, room string) bool {
	rooms, ok := r.joined[sessionID]
	if !ok {
		return false
	}
	if _, in := rooms[room]; !in {
		return false
	}
	delete(rooms, room)

	members := r.rooms[room]
	delete(members, sessionID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	return true
}

func (r *Registry) leaveAllLocked(sessionID string) []string {
	rooms := lo.Keys(r.joined[sessionID])
	for _, room := range rooms {
		r.leaveLocked(sessionID, room)
	}
	sort.Strings(rooms)
	return rooms
}

// IsMember reports whether the session is in room's live set.
func (r *Registry) IsMember(sessionID, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][sessionID]
	return ok
}

// Members returns a snapshot of the live sessions in room.
func (r *Registry) Members(room string) []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.rooms[room])
}

// RoomsOf returns the rooms the session is in, sorted by name.
func (r *Registry) RoomsOf(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := lo.Keys(r.joined[sessionID])
	sort.Strings(rooms)
	return rooms
}

// Session returns the registered client for sessionID, if any.
func (r *Registry) Session(sessionID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[sessionID]
	return c, ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast delivers evt to every live member of room except excludeSessionID
// (empty excludes nobody). It returns how many sessions accepted the event.
func (r *Registry) Broadcast(room string, evt models.OutboundEvent, excludeSessionID string) int {
	targets := lo.Filter(r.Members(room), func(c Client, _ int) bool {
		return c.GetSessionID() != excludeSessionID
	})

	delivered := 0
	for _, c := range targets {
		if c.Deliver(evt) {
			delivered++
		}
	}
	return delivered
}

// SendTo delivers evt to a single session.
func (r *Registry) SendTo(sessionID string, evt models.OutboundEvent) bool {
	c, ok := r.Session(sessionID)
	if !ok {
		return false
	}
	return c.Deliver(evt)
}

// CloseAll closes every registered session. Each client's disconnect path
// unregisters it.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	clients := lo.Values(r.sessions)
	r.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}
