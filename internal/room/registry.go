package room

import "sync"

// Participant is a snapshot of one joined connection, in the shape clients
// render. Lat/Lng are nil until the first location update.
type Participant struct {
	Username string   `json:"username"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	IsLive   bool     `json:"isLive"`
}

type participant struct {
	username string
	lat, lng float64
	hasPos   bool
	live     bool
}

type state struct {
	mu           sync.Mutex
	participants map[string]*participant // conn id -> participant
	fence        *Geofence
	meeting      *Meeting
	inside       map[string]bool // username -> last known inside/outside
}

// Registry owns all in-memory room and participant state. Entries are keyed
// by connection id, not username: the same username may hold several
// simultaneous connections in one room. Rooms are created lazily on first
// use and kept after the last participant leaves.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*state
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*state)}
}

// EnsureRoom creates the room entry if it does not exist yet. Idempotent.
func (reg *Registry) EnsureRoom(roomID string) {
	reg.room(roomID)
}

func (reg *Registry) room(roomID string) *state {
	reg.mu.RLock()
	r, ok := reg.rooms[roomID]
	reg.mu.RUnlock()
	if ok {
		return r
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok = reg.rooms[roomID]; ok {
		return r
	}
	r = &state{
		participants: make(map[string]*participant),
		inside:       make(map[string]bool),
	}
	reg.rooms[roomID] = r
	return r
}

// lookup returns the room only if it already exists.
func (reg *Registry) lookup(roomID string) (*state, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[roomID]
	return r, ok
}

func (reg *Registry) AddParticipant(roomID, connID, username string) {
	r := reg.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[connID] = &participant{username: username}
}

// RemoveParticipant deletes the entry if present and reports the username it
// carried. Removing an absent participant is a no-op: the disconnect path and
// an explicit leave may race, and both must be safe.
func (reg *Registry) RemoveParticipant(roomID, connID string) (string, bool) {
	r, ok := reg.lookup(roomID)
	if !ok {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connID]
	if !ok {
		return "", false
	}
	delete(r.participants, connID)

	// Drop the geofence ledger entry once no connection carries the username.
	shared := false
	for _, other := range r.participants {
		if other.username == p.username {
			shared = true
			break
		}
	}
	if !shared {
		delete(r.inside, p.username)
	}
	return p.username, true
}

// UpdatePosition records a new position. A missing participant is a benign
// race with leave and is silently ignored. becameLive is true when this
// update flipped the participant from idle to live.
func (reg *Registry) UpdatePosition(roomID, connID string, lat, lng float64) (username string, becameLive, ok bool) {
	r, found := reg.lookup(roomID)
	if !found {
		return "", false, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, found := r.participants[connID]
	if !found {
		return "", false, false
	}
	p.lat, p.lng = lat, lng
	p.hasPos = true
	if !p.live {
		p.live = true
		return p.username, true, true
	}
	return p.username, false, true
}

func (reg *Registry) SetLive(roomID, connID string, live bool) bool {
	r, found := reg.lookup(roomID)
	if !found {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, found := r.participants[connID]
	if !found {
		return false
	}
	p.live = live
	return true
}

// Participants returns snapshots of everyone in the room, in no particular order.
func (reg *Registry) Participants(roomID string) []Participant {
	r, ok := reg.lookup(roomID)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, snapshot(p))
	}
	return out
}

func (reg *Registry) Count(roomID string) int {
	r, ok := reg.lookup(roomID)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

func (reg *Registry) LiveCount(roomID string) int {
	r, ok := reg.lookup(roomID)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, p := range r.participants {
		if p.live {
			n++
		}
	}
	return n
}

func snapshot(p *participant) Participant {
	s := Participant{Username: p.username, IsLive: p.live}
	if p.hasPos {
		lat, lng := p.lat, p.lng
		s.Lat, s.Lng = &lat, &lng
	}
	return s
}
