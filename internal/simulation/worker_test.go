package simulation

import (
	"testing"
	"time"
)

func fastTestConfig() Config {
	cfg := DefaultConfig()
	cfg.TickInterval = time.Millisecond
	cfg.StartingCountdown = time.Millisecond
	return cfg
}

func startTestWorker(t *testing.T, cfg Config) (events chan GameEvent, snapshots chan WorldSnapshot, done chan struct{}, state *StateSlot) {
	t.Helper()
	state = NewStateSlot()
	w := NewWorker(cfg, state)
	events = make(chan GameEvent, 16)
	snapshots = make(chan WorldSnapshot, 16)
	done = make(chan struct{})

	go w.Run(events, snapshots, done)
	t.Cleanup(func() { close(done) })
	return
}

func awaitSnapshot(t *testing.T, snapshots chan WorldSnapshot) WorldSnapshot {
	t.Helper()
	select {
	case snap := <-snapshots:
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return WorldSnapshot{}
	}
}

func TestWorkerEntersMatchRunningAfterCountdown(t *testing.T) {
	_, snapshots, _, state := startTestWorker(t, fastTestConfig())

	awaitSnapshot(t, snapshots)

	if got := state.Get().String(); got != "MatchRunning" {
		t.Fatalf("state = %s, want MatchRunning", got)
	}
}

func TestWorkerTicksAreMonotonic(t *testing.T) {
	_, snapshots, _, _ := startTestWorker(t, fastTestConfig())

	first := awaitSnapshot(t, snapshots)
	second := awaitSnapshot(t, snapshots)

	if second.Tick <= first.Tick {
		t.Fatalf("tick did not advance: first=%d second=%d", first.Tick, second.Tick)
	}
}

func TestWorkerJoinAddsEntityToSnapshot(t *testing.T) {
	events, snapshots, _, _ := startTestWorker(t, fastTestConfig())

	events <- GameEvent{Kind: EventJoin, PlayerID: 42}

	var found bool
	for i := 0; i < 20 && !found; i++ {
		snap := awaitSnapshot(t, snapshots)
		for _, e := range snap.Entities {
			if e.ID == 42 {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected entity 42 to appear in a snapshot after Join")
	}
}

func TestWorkerJoinIsIdempotent(t *testing.T) {
	events, snapshots, _, _ := startTestWorker(t, fastTestConfig())

	events <- GameEvent{Kind: EventJoin, PlayerID: 1}
	events <- GameEvent{Kind: EventJoin, PlayerID: 1}

	var count int
	for i := 0; i < 20; i++ {
		snap := awaitSnapshot(t, snapshots)
		count = 0
		for _, e := range snap.Entities {
			if e.ID == 1 {
				count++
			}
		}
		if count > 0 {
			break
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one entity 1 after duplicate Join, got %d", count)
	}
}

func TestWorkerLeaveRemovesEntity(t *testing.T) {
	events, snapshots, _, _ := startTestWorker(t, fastTestConfig())

	events <- GameEvent{Kind: EventJoin, PlayerID: 7}
	for i := 0; i < 20; i++ {
		snap := awaitSnapshot(t, snapshots)
		if len(snap.Entities) == 1 {
			break
		}
	}

	events <- GameEvent{Kind: EventLeave, PlayerID: 7}

	var gone bool
	for i := 0; i < 20 && !gone; i++ {
		snap := awaitSnapshot(t, snapshots)
		gone = true
		for _, e := range snap.Entities {
			if e.ID == 7 {
				gone = false
			}
		}
	}
	if !gone {
		t.Fatal("expected entity 7 to be removed after Leave")
	}
}

func TestWorkerLeaveOfUnknownPlayerIsNoop(t *testing.T) {
	events, snapshots, _, _ := startTestWorker(t, fastTestConfig())

	events <- GameEvent{Kind: EventLeave, PlayerID: 999}

	snap := awaitSnapshot(t, snapshots)
	if len(snap.Entities) != 0 {
		t.Fatalf("expected no entities, got %d", len(snap.Entities))
	}
}

func TestWorkerEndsMatchAtTimeLimit(t *testing.T) {
	cfg := fastTestConfig()
	cfg.MatchTimeLimit = 3 * cfg.TickInterval
	_, snapshots, _, state := startTestWorker(t, cfg)

	var ended bool
	for i := 0; i < 50 && !ended; i++ {
		awaitSnapshot(t, snapshots)
		ended = state.Get().IsMatchEnded()
	}
	if !ended {
		t.Fatal("expected match to reach MatchEnded within the time limit")
	}
}

func TestWorkerStopsOnDoneDuringCountdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingCountdown = time.Hour // never naturally elapses in this test
	state := NewStateSlot()
	w := NewWorker(cfg, state)
	events := make(chan GameEvent)
	snapshots := make(chan WorldSnapshot)
	done := make(chan struct{})

	finished := make(chan struct{})
	go func() {
		w.Run(events, snapshots, done)
		close(finished)
	}()

	close(done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return promptly after done is closed during countdown")
	}
}
