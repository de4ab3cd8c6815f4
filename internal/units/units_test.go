package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversions(t *testing.T) {
	assert.InDelta(t, 13.4112, MPH(30), 1e-9)
	assert.InDelta(t, 30, ToMPH(MPH(30)), 1e-9)
	assert.InDelta(t, math.Pi/2, Rad(90), 1e-12)
	assert.InDelta(t, 180, Deg(math.Pi), 1e-12)
	assert.InDelta(t, 1000, AngularSpeedToRPM*(1000*RPMToAngularSpeed), 1e-9)
	assert.InDelta(t, 104.72, 1000*RPMToAngularSpeed, 0.01)
}
