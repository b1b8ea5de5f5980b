package presence

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "sck_a")

	if !r.IsOnline("u1") {
		t.Error("u1 should be online after register")
	}
	sock, ok := r.Lookup("u1")
	if !ok || sock != "sck_a" {
		t.Errorf("Lookup(u1) = %q, %v; want sck_a, true", sock, ok)
	}
}

func TestRegistry_LastConnectWins(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "sck_a")
	r.Register("u1", "sck_b")

	sock, _ := r.Lookup("u1")
	if sock != "sck_b" {
		t.Errorf("Lookup(u1) = %q; want the later socket sck_b", sock)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d; re-register must not double-count", r.Count())
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "sck_a")
	r.Unregister("u1")
	if r.IsOnline("u1") {
		t.Error("u1 should be offline after unregister")
	}

	// Second unregister, and unregister of a user never seen, are no-ops.
	r.Unregister("u1")
	r.Unregister("ghost")
	if r.Count() != 0 {
		t.Errorf("Count() = %d; want 0", r.Count())
	}
}

func TestRegistry_OnlineUserIDsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register("u2", "sck_b")
	r.Register("u1", "sck_a")

	ids := r.OnlineUserIDs()
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Errorf("OnlineUserIDs() = %v; want sorted [u1 u2]", ids)
	}

	// Mutating the registry must not affect the returned snapshot.
	r.Unregister("u1")
	if len(ids) != 2 {
		t.Error("snapshot changed after unregister")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", n)
			r.Register(user, "sck")
			r.IsOnline(user)
			r.OnlineUserIDs()
			r.Unregister(user)
		}(i)
	}
	wg.Wait()

	if r.Count() != 0 {
		t.Errorf("Count() = %d after balanced register/unregister; want 0", r.Count())
	}
}
