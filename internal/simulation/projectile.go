package simulation

// maybeShoot advances an entity's shoot cooldown and, if the entity is
// requesting fire and its cooldown has elapsed, spawns a new projectile.
// nextID is incremented (wrapping on overflow) for every spawned shot.
func maybeShoot(e *Entity, dt float32, player PlayerTuning, proj ProjectileTuning, nextID *uint64) *Projectile {
	e.ShootCooldown -= dt
	if e.ShootCooldown < 0 {
		e.ShootCooldown = 0
	}

	if !e.LastInput.Shoot || e.ShootCooldown > 0 {
		return nil
	}

	fx, fy := forward(e.Rot)
	id := *nextID
	*nextID++
	if *nextID == 0 {
		*nextID = 1 // wrap past zero, which is never a valid projectile id
	}

	e.ShootCooldown = proj.Cooldown

	return &Projectile{
		ID:      id,
		OwnerID: e.ID,
		X:       e.X + fx*player.Radius,
		Y:       e.Y + fy*player.Radius,
		Rot:     e.Rot,
		VX:      fx * proj.Speed,
		VY:      fy * proj.Speed,
		TTL:     proj.Lifetime,
	}
}

// integrateProjectiles advances every projectile's position and TTL by dt.
func integrateProjectiles(projectiles []*Projectile, dt float32) {
	for _, p := range projectiles {
		p.X += p.VX * dt
		p.Y += p.VY * dt
		p.TTL -= dt
	}
}

// resolveHits runs circle-test collision for every still-alive projectile
// against every living entity (scanned in stable insertion order), in the
// order the entities slice presents them. The first hit on a projectile
// consumes it (TTL set to 0) and stops the inner scan.
func resolveHits(entities []*Entity, projectiles []*Projectile, player PlayerTuning, proj ProjectileTuning) {
	hitRadius := player.Radius + proj.Radius
	hitRadiusSq := hitRadius * hitRadius

	for _, p := range projectiles {
		if p.TTL <= 0 {
			continue
		}
		for _, e := range entities {
			if !e.Alive || e.ID == p.OwnerID {
				continue
			}
			dx := e.X - p.X
			dy := e.Y - p.Y
			if dx*dx+dy*dy > hitRadiusSq {
				continue
			}

			e.HP -= proj.Damage
			if e.HP <= 0 {
				e.HP = 0
				killEntity(e, player.RespawnDelay)
			}
			p.TTL = 0
			break
		}
	}
}

// compactProjectiles drops every projectile whose TTL has reached zero.
func compactProjectiles(projectiles []*Projectile) []*Projectile {
	kept := projectiles[:0]
	for _, p := range projectiles {
		if p.TTL > 0 {
			kept = append(kept, p)
		}
	}
	return kept
}

// compactProjectilesOwnedBy drops every projectile owned by playerID, used
// when a player leaves the lobby.
func compactProjectilesOwnedBy(projectiles []*Projectile, playerID uint64) []*Projectile {
	kept := projectiles[:0]
	for _, p := range projectiles {
		if p.OwnerID != playerID {
			kept = append(kept, p)
		}
	}
	return kept
}
