package socket

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trackroom/internal/auth"
	"trackroom/internal/history"
	"trackroom/internal/metrics"
	"trackroom/internal/room"
	"trackroom/internal/roomsvc"
)

// Hub routes presence events between the clients of each room. Every room
// gets its own lock; an operation holds it across the registry mutation and
// the enqueue of the resulting events, so all members observe the same final
// state. Unrelated rooms never contend.
type Hub struct {
	logger    zerolog.Logger
	registry  *room.Registry
	validator roomsvc.Validator
	recorder  history.Recorder

	joinTimeout time.Duration

	mu        sync.RWMutex
	audiences map[string]*audience
}

// audience is the set of connections joined to one room. Its mutex is the
// room's serialization boundary.
type audience struct {
	mu      sync.Mutex
	clients map[string]*Client // conn id -> client
}

func NewHub(logger zerolog.Logger, registry *room.Registry, validator roomsvc.Validator, recorder history.Recorder, joinTimeout time.Duration) *Hub {
	return &Hub{
		logger:      logger,
		registry:    registry,
		validator:   validator,
		recorder:    recorder,
		joinTimeout: joinTimeout,
		audiences:   make(map[string]*audience),
	}
}

func (h *Hub) audience(roomID string) *audience {
	h.mu.RLock()
	a, ok := h.audiences[roomID]
	h.mu.RUnlock()
	if ok {
		return a
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if a, ok = h.audiences[roomID]; ok {
		return a
	}
	a = &audience{clients: make(map[string]*Client)}
	h.audiences[roomID] = a
	return a
}

func (h *Hub) lookupAudience(roomID string) (*audience, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	a, ok := h.audiences[roomID]
	return a, ok
}

// Join runs the full join sequence: decode the credential, authorize against
// the room service, prime the room's geofence and meeting state, register
// the connection and announce it. A failed decode or authorization sends an
// error event and forces the connection closed; nothing is ever registered,
// so a half-joined participant is never observable. ctx is the connection's
// context: a disconnect mid-authorization cancels the bootstrap call.
func (h *Hub) Join(ctx context.Context, c *Client, token, roomID string) {
	claims, err := auth.Decode(token)
	if err != nil {
		metrics.JoinsRejected.WithLabelValues("invalid_credential").Inc()
		h.reject(c, "Invalid token")
		return
	}

	bctx, cancel := context.WithTimeout(ctx, h.joinTimeout)
	defer cancel()
	snap, err := h.validator.Bootstrap(bctx, token, roomID)
	if err != nil {
		if ctx.Err() != nil {
			// disconnected mid-authorization; nothing to report, nothing joined
			return
		}
		switch {
		case errors.Is(err, roomsvc.ErrNotAuthorized):
			metrics.JoinsRejected.WithLabelValues("not_authorized").Inc()
		default:
			metrics.JoinsRejected.WithLabelValues("room_not_found").Inc()
		}
		h.logger.Warn().Err(err).Str("room", roomID).Str("user", claims.Username).Msg("join rejected")
		h.reject(c, "Room not found")
		return
	}
	if ctx.Err() != nil {
		return
	}

	a := h.audience(roomID)
	a.mu.Lock()
	defer a.mu.Unlock()

	h.registry.EnsureRoom(roomID)
	h.registry.SetGeofence(roomID, snap.Geofence)
	h.registry.SetMeeting(roomID, snap.Meeting)

	// current room state to the joiner, before any presence events
	if snap.Geofence != nil {
		h.send(c, Event{Type: EvtGeofenceUpdated, Data: snap.Geofence})
	}
	if snap.Meeting != nil {
		h.send(c, Event{Type: EvtMeetingAnnounced, Data: snap.Meeting})
	}

	h.registry.AddParticipant(roomID, c.id, claims.Username)
	h.registry.MarkInside(roomID, claims.Username)
	c.userID = claims.UserID
	c.username = claims.Username
	c.roomID = roomID
	a.clients[c.id] = c

	h.broadcastExcept(a, c.id, Event{Type: EvtUserJoined, Data: UserRef{Username: claims.Username}})

	existing := make([]room.Participant, 0)
	for _, p := range h.registry.Participants(roomID) {
		if p.Username != claims.Username {
			existing = append(existing, p)
		}
	}
	h.send(c, Event{Type: EvtExistingUsers, Data: existing})

	h.broadcastAll(a, Event{Type: EvtUserCount, Data: h.registry.Count(roomID)})
	h.broadcastAll(a, Event{Type: EvtLiveCount, Data: h.registry.LiveCount(roomID)})
	h.broadcastAll(a, Event{Type: EvtUsersList, Data: h.registry.Participants(roomID)})

	metrics.JoinsTotal.Inc()
	h.logger.Info().Str("room", roomID).Str("user", claims.Username).Msg("user joined room")
}

// Location records a position update and fans it out. An update from a
// connection no longer in the registry is a benign race with leave and is
// dropped without error or count change.
func (h *Hub) Location(c *Client, roomID string, lat, lng float64) {
	a, ok := h.lookupAudience(roomID)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	username, becameLive, ok := h.registry.UpdatePosition(roomID, c.id, lat, lng)
	if !ok {
		return
	}

	if becameLive {
		h.broadcastAll(a, Event{Type: EvtLiveCount, Data: h.registry.LiveCount(roomID)})
		h.broadcastAll(a, Event{Type: EvtUsersList, Data: h.registry.Participants(roomID)})
	}

	h.broadcastExcept(a, c.id, Event{Type: EvtUserLocation, Data: UserLocationPayload{
		Username: username,
		Lat:      lat,
		Lng:      lng,
	}})

	h.recorder.Record(history.Movement{
		UserID: c.userID,
		RoomID: roomID,
		Lat:    lat,
		Lng:    lng,
		TS:     time.Now().Unix(),
	})

	if inside, distance, ok := h.registry.Evaluate(roomID, lat, lng); ok {
		if h.registry.CheckTransition(roomID, username, inside) {
			fence := h.registry.Geofence(roomID)
			outsideBy := math.Max(0, math.Round(distance-fence.RadiusM))
			h.broadcastAll(a, Event{Type: EvtGeofenceAlert, Data: GeofenceAlertPayload{
				Username:   username,
				DistanceM:  int64(math.Round(distance)),
				OutsideByM: int64(outsideBy),
			}})
			metrics.GeofenceAlerts.Inc()
		}
	}
}

// StopSharing flips the participant idle without discarding its position.
func (h *Hub) StopSharing(c *Client, roomID string) {
	a, ok := h.lookupAudience(roomID)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if !h.registry.SetLive(roomID, c.id, false) {
		return
	}
	h.broadcastAll(a, Event{Type: EvtLiveCount, Data: h.registry.LiveCount(roomID)})
	h.broadcastAll(a, Event{Type: EvtUsersList, Data: h.registry.Participants(roomID)})
}

// Leave removes the connection from the room and announces it. Idempotent:
// the explicit leave-room message and the disconnect teardown may both run.
func (h *Hub) Leave(c *Client, roomID string) {
	a, ok := h.lookupAudience(roomID)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	username, removed := h.registry.RemoveParticipant(roomID, c.id)
	delete(a.clients, c.id)
	if !removed {
		return
	}

	h.broadcastExcept(a, c.id, Event{Type: EvtUserLeft, Data: UserRef{Username: username}})
	h.broadcastAll(a, Event{Type: EvtUserCount, Data: h.registry.Count(roomID)})
	h.broadcastAll(a, Event{Type: EvtLiveCount, Data: h.registry.LiveCount(roomID)})

	h.logger.Info().Str("room", roomID).Str("user", username).Msg("user left room")
}

// Teardown runs the leave sequence for a dropped connection. Called exactly
// once from the read pump, whatever ended the connection.
func (h *Hub) Teardown(c *Client) {
	if c.roomID != "" {
		h.Leave(c, c.roomID)
		c.roomID = ""
	}
}

// UpdateGeofence replaces a room's fence and rebroadcasts it to the whole
// room, the sender included. Authorization already happened at the room
// service before the client sends this.
func (h *Hub) UpdateGeofence(roomID string, f *room.Geofence) {
	if f == nil {
		return
	}
	a := h.audience(roomID)
	a.mu.Lock()
	defer a.mu.Unlock()

	h.registry.SetGeofence(roomID, f)
	h.broadcastAll(a, Event{Type: EvtGeofenceUpdated, Data: f})
}

// AnnounceMeeting replaces a room's meeting point; a nil meeting clears it,
// and the null payload is rebroadcast so clients drop the announcement.
func (h *Hub) AnnounceMeeting(roomID string, m *room.Meeting) {
	a := h.audience(roomID)
	a.mu.Lock()
	defer a.mu.Unlock()

	h.registry.SetMeeting(roomID, m)
	h.broadcastAll(a, Event{Type: EvtMeetingAnnounced, Data: m})
}

func (h *Hub) reject(c *Client, message string) {
	h.send(c, Event{Type: EvtError, Data: ErrorPayload{Message: message}})
	c.shutdown()
}

func (h *Hub) send(c *Client, ev Event) {
	if c.trySend(ev) {
		metrics.EventsOut.WithLabelValues(ev.Type).Inc()
	}
}

// broadcastAll must run under the audience lock.
func (h *Hub) broadcastAll(a *audience, ev Event) {
	for _, c := range a.clients {
		h.send(c, ev)
	}
}

// broadcastExcept suppresses the echo to the originating connection.
func (h *Hub) broadcastExcept(a *audience, exceptID string, ev Event) {
	for id, c := range a.clients {
		if id == exceptID {
			continue
		}
		h.send(c, ev)
	}
}
