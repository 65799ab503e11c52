package room

import "trackroom/internal/geo"

// Geofence is a circular boundary around a center point. Field names match
// the room service's wire format.
type Geofence struct {
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
	RadiusM   float64 `json:"radius_m"`
}

// Meeting is an admin-announced named location with a deadline.
type Meeting struct {
	PlaceName string  `json:"place_name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	ReachBy   string  `json:"reach_by"`
}

// SetGeofence replaces the room's active fence. nil clears it. Existing
// participants are not re-evaluated; only future updates see the new fence.
func (reg *Registry) SetGeofence(roomID string, f *Geofence) {
	r := reg.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fence = f
}

func (reg *Registry) Geofence(roomID string) *Geofence {
	r, ok := reg.lookup(roomID)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fence == nil {
		return nil
	}
	f := *r.fence
	return &f
}

func (reg *Registry) SetMeeting(roomID string, m *Meeting) {
	r := reg.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meeting = m
}

func (reg *Registry) Meeting(roomID string) *Meeting {
	r, ok := reg.lookup(roomID)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.meeting == nil {
		return nil
	}
	m := *r.meeting
	return &m
}

// Evaluate computes fence membership for a position. ok is false when the
// room has no active fence.
func (reg *Registry) Evaluate(roomID string, lat, lng float64) (inside bool, distanceM float64, ok bool) {
	r, found := reg.lookup(roomID)
	if !found {
		return false, 0, false
	}
	r.mu.Lock()
	fence := r.fence
	r.mu.Unlock()
	if fence == nil {
		return false, 0, false
	}

	d := geo.DistanceMeters(lat, lng, fence.CenterLat, fence.CenterLng)
	return d <= fence.RadiusM, d, true
}

// MarkInside primes the transition ledger for a username. Called at join so
// a participant who first reports a position outside the fence still gets a
// departure alert on that very first update.
func (reg *Registry) MarkInside(roomID, username string) {
	r := reg.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inside[username] = true
}

// CheckTransition records the latest fence membership for a username and
// reports whether this observation is an inside-to-outside edge. A missing
// ledger entry counts as inside, the same asymmetric default MarkInside
// establishes. Consecutive outside readings never re-trigger.
func (reg *Registry) CheckTransition(roomID, username string, inside bool) bool {
	r := reg.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, known := r.inside[username]
	if !known {
		prev = true
	}
	r.inside[username] = inside
	return prev && !inside
}
