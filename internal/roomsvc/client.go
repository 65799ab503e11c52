package roomsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"trackroom/internal/room"
)

var (
	// ErrRoomNotFound means the room service does not know the room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotAuthorized means the room service rejected the credential.
	ErrNotAuthorized = errors.New("room authorization failed")
)

// Snapshot is the room service's view of a room at join time.
type Snapshot struct {
	Geofence *room.Geofence `json:"geofence"`
	Meeting  *room.Meeting  `json:"meeting"`
}

// Validator authorizes a join and returns the room's current geofence and
// meeting state. The hub takes this as an interface so tests can stub it.
type Validator interface {
	Bootstrap(ctx context.Context, token, roomID string) (*Snapshot, error)
}

// Client calls the external room service over HTTP. The service is the trust
// root for room membership; this process never decides authorization itself.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type bootstrapRequest struct {
	RoomID string `json:"room_id"`
}

type bootstrapResponse struct {
	OK       bool           `json:"ok"`
	Geofence *room.Geofence `json:"geofence"`
	Meeting  *room.Meeting  `json:"meeting"`
}

func (c *Client) Bootstrap(ctx context.Context, token, roomID string) (*Snapshot, error) {
	payload, err := json.Marshal(bootstrapRequest{RoomID: roomID})
	if err != nil {
		return nil, fmt.Errorf("roomsvc: encode bootstrap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rooms/bootstrap", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("roomsvc: build bootstrap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roomsvc: bootstrap call: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrNotAuthorized
	case resp.StatusCode != http.StatusOK:
		return nil, ErrRoomNotFound
	}

	var body bootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("roomsvc: decode bootstrap response: %w", err)
	}
	if !body.OK {
		return nil, ErrRoomNotFound
	}

	return &Snapshot{Geofence: body.Geofence, Meeting: body.Meeting}, nil
}
