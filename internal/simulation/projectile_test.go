package simulation

import "testing"

func TestMaybeShootRespectsCooldown(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()
	var nextID uint64 = 1

	e := &Entity{ID: 1, Alive: true, LastInput: PlayerInput{Shoot: true}}

	p := maybeShoot(e, 0, player, proj, &nextID)
	if p == nil {
		t.Fatal("expected a projectile on first shot")
	}
	if p.OwnerID != e.ID {
		t.Fatalf("OwnerID = %d, want %d", p.OwnerID, e.ID)
	}

	// Still within cooldown: no second shot even though Shoot is held.
	if got := maybeShoot(e, 0, player, proj, &nextID); got != nil {
		t.Fatalf("expected nil while on cooldown, got %+v", got)
	}
}

func TestMaybeShootFiresAgainAfterCooldownElapses(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()
	var nextID uint64 = 1

	e := &Entity{ID: 1, Alive: true, LastInput: PlayerInput{Shoot: true}}

	if maybeShoot(e, 0, player, proj, &nextID) == nil {
		t.Fatal("expected first shot to fire")
	}
	if got := maybeShoot(e, proj.Cooldown, player, proj, &nextID); got == nil {
		t.Fatal("expected a second shot once cooldown has elapsed")
	}
}

func TestMaybeShootAssignsDistinctIncreasingIDs(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()
	var nextID uint64 = 1

	e := &Entity{ID: 1, Alive: true, LastInput: PlayerInput{Shoot: true}}
	first := maybeShoot(e, 0, player, proj, &nextID)
	second := maybeShoot(e, proj.Cooldown, player, proj, &nextID)

	if first.ID == second.ID {
		t.Fatalf("expected distinct projectile ids, both were %d", first.ID)
	}
}

func TestMaybeShootWrapsIDPastZero(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()
	nextID := ^uint64(0) // one below wraparound

	e := &Entity{ID: 1, Alive: true, LastInput: PlayerInput{Shoot: true}}
	p := maybeShoot(e, 0, player, proj, &nextID)
	if p.ID != ^uint64(0) {
		t.Fatalf("ID = %d, want %d", p.ID, ^uint64(0))
	}
	if nextID != 1 {
		t.Fatalf("nextID wrapped to %d, want 1 (zero is never a valid id)", nextID)
	}
}

func TestMaybeShootReturnsNilWhenNotShooting(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()
	var nextID uint64 = 1
	e := &Entity{ID: 1, Alive: true}

	if p := maybeShoot(e, 0, player, proj, &nextID); p != nil {
		t.Fatalf("expected nil, got %+v", p)
	}
}

func TestIntegrateProjectilesAdvancesPositionAndTTL(t *testing.T) {
	p := &Projectile{X: 0, Y: 0, VX: 10, VY: -5, TTL: 1.0}
	integrateProjectiles([]*Projectile{p}, 0.5)

	if p.X != 5 || p.Y != -2.5 {
		t.Fatalf("unexpected position after integrate: (%v, %v)", p.X, p.Y)
	}
	if p.TTL != 0.5 {
		t.Fatalf("TTL = %v, want 0.5", p.TTL)
	}
}

func TestResolveHitsAppliesDamageAndConsumesProjectile(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()

	shooter := &Entity{ID: 1, Alive: true, X: -1000, Y: -1000}
	target := &Entity{ID: 2, Alive: true, HP: player.MaxHP, X: 0, Y: 0}
	p := &Projectile{ID: 1, OwnerID: shooter.ID, X: 0, Y: 0, TTL: 1.0}

	resolveHits([]*Entity{shooter, target}, []*Projectile{p}, player, proj)

	if target.HP != player.MaxHP-proj.Damage {
		t.Fatalf("target HP = %d, want %d", target.HP, player.MaxHP-proj.Damage)
	}
	if p.TTL != 0 {
		t.Fatalf("expected hit projectile TTL zeroed, got %v", p.TTL)
	}
}

func TestResolveHitsNeverHitsOwnProjectile(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()

	shooter := &Entity{ID: 1, Alive: true, HP: player.MaxHP, X: 0, Y: 0}
	p := &Projectile{ID: 1, OwnerID: shooter.ID, X: 0, Y: 0, TTL: 1.0}

	resolveHits([]*Entity{shooter}, []*Projectile{p}, player, proj)

	if shooter.HP != player.MaxHP {
		t.Fatalf("shooter took self damage: HP = %d", shooter.HP)
	}
	if p.TTL == 0 {
		t.Fatal("expected projectile to survive since it cannot hit its owner")
	}
}

func TestResolveHitsKillsAndRespawnsOnLethalDamage(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()
	proj.Damage = player.MaxHP + 100 // guarantee lethal

	shooter := &Entity{ID: 1, Alive: true, X: -1000, Y: -1000}
	target := &Entity{ID: 2, Alive: true, HP: player.MaxHP, X: 0, Y: 0}
	p := &Projectile{ID: 1, OwnerID: shooter.ID, X: 0, Y: 0, TTL: 1.0}

	resolveHits([]*Entity{shooter, target}, []*Projectile{p}, player, proj)

	if target.Alive {
		t.Fatal("expected target to die on lethal hit")
	}
	if target.HP != 0 {
		t.Fatalf("HP = %d, want clamped to 0", target.HP)
	}
	if target.RespawnTimer != player.RespawnDelay {
		t.Fatalf("RespawnTimer = %v, want %v", target.RespawnTimer, player.RespawnDelay)
	}
}

func TestResolveHitsFirstHitWinsAndStopsScan(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()

	shooter := &Entity{ID: 1, Alive: true, X: -1000, Y: -1000}
	// Two overlapping targets at the same point; insertion order decides
	// which one the single projectile hits.
	first := &Entity{ID: 2, Alive: true, HP: player.MaxHP, X: 0, Y: 0}
	second := &Entity{ID: 3, Alive: true, HP: player.MaxHP, X: 0, Y: 0}
	p := &Projectile{ID: 1, OwnerID: shooter.ID, X: 0, Y: 0, TTL: 1.0}

	resolveHits([]*Entity{shooter, first, second}, []*Projectile{p}, player, proj)

	if first.HP == player.MaxHP {
		t.Fatal("expected the first-scanned entity to take the hit")
	}
	if second.HP != player.MaxHP {
		t.Fatal("expected the second-scanned entity to be untouched once the projectile was consumed")
	}
}

func TestResolveHitsIgnoresOutOfRangeEntities(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()

	shooter := &Entity{ID: 1, Alive: true, X: -1000, Y: -1000}
	far := &Entity{ID: 2, Alive: true, HP: player.MaxHP, X: 10000, Y: 10000}
	p := &Projectile{ID: 1, OwnerID: shooter.ID, X: 0, Y: 0, TTL: 1.0}

	resolveHits([]*Entity{shooter, far}, []*Projectile{p}, player, proj)

	if far.HP != player.MaxHP {
		t.Fatalf("far entity took damage: HP = %d", far.HP)
	}
	if p.TTL == 0 {
		t.Fatal("expected projectile to survive a miss")
	}
}

func TestResolveHitsSkipsDeadEntities(t *testing.T) {
	player := DefaultPlayerTuning()
	proj := DefaultProjectileTuning()

	shooter := &Entity{ID: 1, Alive: true, X: -1000, Y: -1000}
	dead := &Entity{ID: 2, Alive: false, HP: 0, X: 0, Y: 0}
	p := &Projectile{ID: 1, OwnerID: shooter.ID, X: 0, Y: 0, TTL: 1.0}

	resolveHits([]*Entity{shooter, dead}, []*Projectile{p}, player, proj)

	if p.TTL == 0 {
		t.Fatal("expected projectile to pass through a dead entity")
	}
}

func TestCompactProjectilesDropsExpired(t *testing.T) {
	alive := &Projectile{ID: 1, TTL: 0.1}
	expired := &Projectile{ID: 2, TTL: 0}
	negative := &Projectile{ID: 3, TTL: -1}

	kept := compactProjectiles([]*Projectile{alive, expired, negative})

	if len(kept) != 1 || kept[0].ID != alive.ID {
		t.Fatalf("unexpected kept projectiles: %+v", kept)
	}
}

func TestCompactProjectilesOwnedByDropsOwnerMatches(t *testing.T) {
	mine := &Projectile{ID: 1, OwnerID: 7, TTL: 1}
	theirs := &Projectile{ID: 2, OwnerID: 9, TTL: 1}

	kept := compactProjectilesOwnedBy([]*Projectile{mine, theirs}, 7)

	if len(kept) != 1 || kept[0].ID != theirs.ID {
		t.Fatalf("unexpected kept projectiles: %+v", kept)
	}
}
