package traffic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cxd309/esprit-sim/internal/sensing"
)

func TestFollowerTarget(t *testing.T) {
	p := DefaultProfile() // safe distance 10 m at 5 m/s, sensing range 50 m
	const laneSpeed = 10.0

	tests := []struct {
		name  string
		hit   sensing.Hit
		ok    bool
		speed float64
		want  float64
	}{
		{"nothing ahead", sensing.Hit{}, false, 5, laneSpeed},
		{"inside the safe distance", sensing.Hit{Distance: 3, Speed: 4}, true, 5, 0},
		{"halfway to the sensing edge", sensing.Hit{Distance: 35, Speed: 4}, true, 5, 7},
		{"at the sensing edge", sensing.Hit{Distance: 50, Speed: 4}, true, 5, laneSpeed},
		{"pulling away", sensing.Hit{Distance: 12, Speed: 8}, true, 5, laneSpeed},
		{"standing still", sensing.Hit{Distance: 35, Speed: 0.2, Kind: sensing.HitStatic}, true, 5, 5},
		{"matching beyond the sensing range", sensing.Hit{Distance: 40, Speed: 4}, true, 15, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f follower
			got := f.target(p, tt.hit, tt.ok, tt.speed, laneSpeed, dt)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFollowerSmoothsReadings(t *testing.T) {
	p := DefaultProfile()
	var f follower
	f.target(p, sensing.Hit{Distance: 35, Speed: 4}, true, 5, 10, dt)
	assert.True(t, f.tracking)
	assert.InDelta(t, 35, f.distance, 1e-12, "the first reading is taken as is")

	f.target(p, sensing.Hit{Distance: 45, Speed: 6}, true, 5, 10, dt)
	assert.Greater(t, f.distance, 35.0)
	assert.Less(t, f.distance, 45.0)
	assert.Greater(t, f.obstacleSpeed, 4.0)
	assert.Less(t, f.obstacleSpeed, 6.0)

	assert.InDelta(t, 10, f.target(p, sensing.Hit{}, false, 5, 10, dt), 1e-12)
	assert.False(t, f.tracking, "losing the obstacle forgets it")
	assert.Zero(t, f.distance)
}
