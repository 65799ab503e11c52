package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		{"same point", 35.6892, 51.3890, 35.6892, 51.3890, 0, 0.001},
		{"one degree of longitude at equator", 0, 0, 0, 1, 111195, 50},
		{"small offset near equator", 0, 0, 0, 0.002, 222.4, 0.5},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 50},
		{"antipodal-ish", 0, 0, 0, 180, 2.0015e7, 5e4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestDistanceMetersSymmetric(t *testing.T) {
	d1 := DistanceMeters(35.6892, 51.3890, 48.8566, 2.3522)
	d2 := DistanceMeters(48.8566, 2.3522, 35.6892, 51.3890)
	assert.InDelta(t, d1, d2, 1e-6)
}

func TestValidLatLng(t *testing.T) {
	assert.True(t, ValidLatLng(0, 0))
	assert.True(t, ValidLatLng(90, 180))
	assert.True(t, ValidLatLng(-90, -180))
	assert.False(t, ValidLatLng(90.01, 0))
	assert.False(t, ValidLatLng(-91, 0))
	assert.False(t, ValidLatLng(0, 180.5))
	assert.False(t, ValidLatLng(0, -181))
}
