package socket

import (
	"encoding/json"

	"trackroom/internal/room"
)

// Inbound event types (client -> server).
const (
	MsgJoinRoom        = "join-room"
	MsgLocationUpdate  = "location-update"
	MsgStopSharing     = "stop-sharing"
	MsgLeaveRoom       = "leave-room"
	MsgUpdateGeofence  = "update-geofence"
	MsgAnnounceMeeting = "announce-meeting"
)

// Outbound event types (server -> client).
const (
	EvtError            = "error"
	EvtExistingUsers    = "existing-users"
	EvtUserJoined       = "user-joined"
	EvtUserLocation     = "user-location"
	EvtUserLeft         = "user-left"
	EvtUserCount        = "user-count"
	EvtLiveCount        = "live-count"
	EvtUsersList        = "users-list"
	EvtGeofenceUpdated  = "geofence-updated"
	EvtGeofenceAlert    = "geofence-alert"
	EvtMeetingAnnounced = "meeting-announced"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event is an outbound message before marshaling.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type JoinRoomPayload struct {
	Token  string `json:"token"`
	RoomID string `json:"roomId"`
}

type LocationUpdatePayload struct {
	RoomID string  `json:"roomId"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// RoomPayload covers stop-sharing and leave-room.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type UpdateGeofencePayload struct {
	RoomID   string         `json:"roomId"`
	Geofence *room.Geofence `json:"geofence"`
}

// AnnounceMeetingPayload carries the new meeting point; a null meeting
// clears the announcement.
type AnnounceMeetingPayload struct {
	RoomID  string        `json:"roomId"`
	Meeting *room.Meeting `json:"meeting"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type UserRef struct {
	Username string `json:"username"`
}

type UserLocationPayload struct {
	Username string  `json:"username"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type GeofenceAlertPayload struct {
	Username   string `json:"username"`
	DistanceM  int64  `json:"distance_m"`
	OutsideByM int64  `json:"outside_by_m"`
}
