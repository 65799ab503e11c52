package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateWithoutFence(t *testing.T) {
	reg := NewRegistry()
	reg.EnsureRoom("42")

	_, _, ok := reg.Evaluate("42", 0, 0)
	assert.False(t, ok)

	_, _, ok = reg.Evaluate("unknown", 0, 0)
	assert.False(t, ok)
}

func TestEvaluateMembership(t *testing.T) {
	reg := NewRegistry()
	reg.SetGeofence("42", &Geofence{CenterLat: 0, CenterLng: 0, RadiusM: 100})

	inside, d, ok := reg.Evaluate("42", 0, 0)
	require.True(t, ok)
	assert.True(t, inside)
	assert.InDelta(t, 0, d, 0.001)

	inside, d, ok = reg.Evaluate("42", 0, 0.002)
	require.True(t, ok)
	assert.False(t, inside)
	assert.InDelta(t, 222.4, d, 0.5)
}

func TestGeofenceReplaceAndClear(t *testing.T) {
	reg := NewRegistry()
	reg.SetGeofence("42", &Geofence{CenterLat: 1, CenterLng: 2, RadiusM: 50})

	f := reg.Geofence("42")
	require.NotNil(t, f)
	assert.Equal(t, 50.0, f.RadiusM)

	reg.SetGeofence("42", &Geofence{CenterLat: 1, CenterLng: 2, RadiusM: 500})
	assert.Equal(t, 500.0, reg.Geofence("42").RadiusM)

	reg.SetGeofence("42", nil)
	assert.Nil(t, reg.Geofence("42"))
	_, _, ok := reg.Evaluate("42", 1, 2)
	assert.False(t, ok)
}

// One alert per excursion: the worked sequence from the design discussion.
// Fence center (0,0), radius 100m; positions (0,0), (0,0.002), (0,0.002), (0,0).
func TestTransitionEdges(t *testing.T) {
	reg := NewRegistry()
	reg.SetGeofence("42", &Geofence{CenterLat: 0, CenterLng: 0, RadiusM: 100})
	reg.MarkInside("42", "A")

	steps := []struct {
		lat, lng  float64
		wantAlert bool
	}{
		{0, 0, false},     // inside, no edge
		{0, 0.002, true},  // ~222m out, inside->outside edge
		{0, 0.002, false}, // still outside, steady state
		{0, 0, false},     // back inside, no alert on return
	}

	for i, s := range steps {
		inside, d, ok := reg.Evaluate("42", s.lat, s.lng)
		require.True(t, ok, "step %d", i)
		left := reg.CheckTransition("42", "A", inside)
		assert.Equal(t, s.wantAlert, left, "step %d", i)
		if s.wantAlert {
			assert.InDelta(t, 122, d-100, 1)
		}
	}
}

// A participant who joins already outside the fence alerts on the very
// first evaluated position: the missing ledger entry defaults to inside.
func TestTransitionDefaultPriorIsInside(t *testing.T) {
	reg := NewRegistry()
	reg.SetGeofence("42", &Geofence{CenterLat: 0, CenterLng: 0, RadiusM: 100})

	assert.True(t, reg.CheckTransition("42", "B", false))
	assert.False(t, reg.CheckTransition("42", "B", false))
}

func TestTransitionLedgerPerUsername(t *testing.T) {
	reg := NewRegistry()
	reg.SetGeofence("42", &Geofence{CenterLat: 0, CenterLng: 0, RadiusM: 100})
	reg.MarkInside("42", "A")
	reg.MarkInside("42", "B")

	assert.True(t, reg.CheckTransition("42", "A", false))
	// B's ledger is untouched by A's excursion
	assert.True(t, reg.CheckTransition("42", "B", false))
}

func TestLedgerClearedWithLastConnection(t *testing.T) {
	reg := NewRegistry()
	reg.SetGeofence("42", &Geofence{CenterLat: 0, CenterLng: 0, RadiusM: 100})

	reg.AddParticipant("42", "c1", "A")
	reg.MarkInside("42", "A")
	assert.True(t, reg.CheckTransition("42", "A", false))

	reg.RemoveParticipant("42", "c1")

	// rejoin starts from the default-inside prior again
	reg.AddParticipant("42", "c2", "A")
	assert.True(t, reg.CheckTransition("42", "A", false))
}

func TestMeetingReplaceAndClear(t *testing.T) {
	reg := NewRegistry()
	assert.Nil(t, reg.Meeting("42"))

	reg.SetMeeting("42", &Meeting{PlaceName: "North Gate", Lat: 1, Lng: 2, ReachBy: "2026-09-01T10:00:00Z"})
	m := reg.Meeting("42")
	require.NotNil(t, m)
	assert.Equal(t, "North Gate", m.PlaceName)

	reg.SetMeeting("42", nil)
	assert.Nil(t, reg.Meeting("42"))
}
