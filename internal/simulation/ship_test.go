package simulation

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want float32
	}{
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{0.5, 0, 1, 0.5},
	}
	for _, c := range cases {
		if got := clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("clamp(%v, %v, %v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestWrapAtUpperBound(t *testing.T) {
	bounds := DefaultBounds()
	got := wrap(bounds.MaxX, bounds.MinX, bounds.MaxX)
	if got != bounds.MinX {
		t.Fatalf("wrap(max) = %v, want %v", got, bounds.MinX)
	}
}

func TestWrapPastUpperBound(t *testing.T) {
	bounds := DefaultBounds()
	span := bounds.MaxX - bounds.MinX
	got := wrap(bounds.MaxX+10, bounds.MinX, bounds.MaxX)
	want := bounds.MinX + 10
	if math.Abs(float64(got-want)) > 1e-3 {
		t.Fatalf("wrap(max+10) = %v, want near %v (span %v)", got, want, span)
	}
}

func TestWrapBelowLowerBound(t *testing.T) {
	bounds := DefaultBounds()
	got := wrap(bounds.MinX-10, bounds.MinX, bounds.MaxX)
	want := bounds.MaxX - 10
	if math.Abs(float64(got-want)) > 1e-3 {
		t.Fatalf("wrap(min-10) = %v, want near %v", got, want)
	}
}

func TestStepShipThrottleClampsToUnitRange(t *testing.T) {
	tuning := DefaultPlayerTuning()
	bounds := DefaultBounds()
	e := &Entity{Alive: true, LastInput: PlayerInput{Thrust: 1}}

	for i := 0; i < 1000; i++ {
		stepShip(e, 1.0, tuning, bounds)
	}
	if e.Throttle != 1 {
		t.Fatalf("throttle = %v, want clamped to 1", e.Throttle)
	}

	e.LastInput.Thrust = -1
	for i := 0; i < 1000; i++ {
		stepShip(e, 1.0, tuning, bounds)
	}
	if e.Throttle != 0 {
		t.Fatalf("throttle = %v, want clamped to 0", e.Throttle)
	}
}

func TestStepShipTurnsByTurnRate(t *testing.T) {
	tuning := DefaultPlayerTuning()
	bounds := DefaultBounds()
	e := &Entity{Alive: true, LastInput: PlayerInput{Turn: 1}}

	stepShip(e, 1.0, tuning, bounds)

	want := tuning.TurnRate
	if math.Abs(float64(e.Rot-want)) > 1e-4 {
		t.Fatalf("Rot = %v, want %v", e.Rot, want)
	}
}

func TestStepShipWrapsPositionAtWorldBounds(t *testing.T) {
	tuning := DefaultPlayerTuning()
	bounds := DefaultBounds()
	e := &Entity{
		Alive:    true,
		X:        bounds.MaxX - 1,
		Throttle: 1,
		Rot:      math.Pi / 2, // forward() at rot=pi/2 points toward +X
	}

	stepShip(e, 1.0, tuning, bounds)

	if e.X > bounds.MaxX || e.X < bounds.MinX {
		t.Fatalf("X = %v escaped bounds [%v, %v]", e.X, bounds.MinX, bounds.MaxX)
	}
}

func TestRespawnEntityResetsToLivingState(t *testing.T) {
	tuning := DefaultPlayerTuning()
	e := &Entity{
		Alive:         false,
		HP:            0,
		RespawnTimer:  1,
		Rot:           2,
		ShootCooldown: 0.5,
		LastInput:     PlayerInput{Thrust: 1, Turn: 1, Shoot: true},
	}

	respawnEntity(e, 10, 20, tuning)

	if !e.Alive || e.HP != tuning.MaxHP || e.X != 10 || e.Y != 20 {
		t.Fatalf("unexpected respawned entity: %+v", e)
	}
	if e.Rot != 0 || e.RespawnTimer != 0 || e.ShootCooldown != 0 {
		t.Fatalf("expected zeroed transient fields, got %+v", e)
	}
	if e.LastInput != (PlayerInput{}) {
		t.Fatalf("expected cleared LastInput, got %+v", e.LastInput)
	}
}

func TestKillEntityTransitionsToDeadState(t *testing.T) {
	e := &Entity{Alive: true, HP: 50, Throttle: 1, ShootCooldown: 0.2}

	killEntity(e, 3.0)

	if e.Alive || e.HP != 0 || e.Throttle != 0 || e.ShootCooldown != 0 {
		t.Fatalf("unexpected entity after kill: %+v", e)
	}
	if e.RespawnTimer != 3.0 {
		t.Fatalf("RespawnTimer = %v, want 3.0", e.RespawnTimer)
	}
}
