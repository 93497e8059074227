package simulation

import "math"

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// wrap maps v into [lo, hi), wrapping around on overflow.
func wrap(v, lo, hi float32) float32 {
	span := hi - lo
	if span <= 0 {
		return v
	}
	for v < lo {
		v += span
	}
	for v >= hi {
		v -= span
	}
	return v
}

// stepShip advances one living entity's rotation, throttle, and position by
// dt seconds according to its last received input.
func stepShip(e *Entity, dt float32, tuning PlayerTuning, bounds Bounds) {
	e.Rot += e.LastInput.Turn * tuning.TurnRate * dt
	e.Throttle = clamp(e.Throttle+e.LastInput.Thrust*tuning.ThrottleRate*dt, 0, 1)

	fx, fy := forward(e.Rot)
	speed := e.Throttle * tuning.MaxSpeed
	vx, vy := fx*speed, fy*speed

	e.X += vx * dt
	e.Y += vy * dt
	e.X = wrap(e.X, bounds.MinX, bounds.MaxX)
	e.Y = wrap(e.Y, bounds.MinY, bounds.MaxY)
}

// forward returns the unit forward vector for a Y-down coordinate system
// where positive rotation turns the nose clockwise.
func forward(rot float32) (float32, float32) {
	s, c := math.Sincos(float64(rot))
	return float32(s), -float32(c)
}

// respawnEntity resets a dead entity to a fresh living state at pos.
func respawnEntity(e *Entity, x, y float32, tuning PlayerTuning) {
	e.X = x
	e.Y = y
	e.Rot = 0
	e.HP = tuning.MaxHP
	e.Alive = true
	e.RespawnTimer = 0
	e.Throttle = 0
	e.ShootCooldown = 0
	e.LastInput = PlayerInput{}
}

// killEntity transitions a living entity to dead state after taking a fatal hit.
func killEntity(e *Entity, respawnDelay float32) {
	e.Alive = false
	e.HP = 0
	e.Throttle = 0
	e.ShootCooldown = 0
	e.RespawnTimer = respawnDelay
}
