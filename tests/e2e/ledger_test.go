//go:build e2e

package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/deskboard/deskboard/internal/session"
)

func TestLedger_OpenAndClose(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	ctx := context.Background()
	store := session.NewStore(env.DB)

	sess, err := store.Open(ctx, "u1", "sck_l1", "10.0.0.1", "firefox", map[string]any{"tz": "UTC"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sess.ID == "" || !sess.Open() {
		t.Fatalf("opened session %+v", sess)
	}
	if sess.Meta["tz"] != "UTC" {
		t.Errorf("meta = %v; want tz preserved", sess.Meta)
	}

	closed, err := store.Close(ctx, sess.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed == nil || closed.EndedAt == nil {
		t.Fatalf("Close returned %+v; want an ended session", closed)
	}

	// Closing again matches nothing and is not an error.
	again, err := store.Close(ctx, sess.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if again != nil {
		t.Errorf("second Close returned %+v; want nil", again)
	}
}

func TestLedger_CloseUnknownID(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	store := session.NewStore(env.DB)

	sess, err := store.Close(context.Background(), "00000000-0000-0000-0000-000000000000", time.Now().UTC())
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sess != nil {
		t.Errorf("Close of unknown id returned %+v; want nil", sess)
	}
}

func TestLedger_CloseOpenBySocket(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	ctx := context.Background()
	store := session.NewStore(env.DB)

	opened, err := store.Open(ctx, "u1", "sck_l2", "", "", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	closed, err := store.CloseOpenBySocket(ctx, "sck_l2", time.Now().UTC())
	if err != nil {
		t.Fatalf("CloseOpenBySocket: %v", err)
	}
	if closed == nil || closed.ID != opened.ID {
		t.Fatalf("closed %+v; want session %s", closed, opened.ID)
	}

	// The socket's session is gone now; a repeat finds nothing.
	none, err := store.CloseOpenBySocket(ctx, "sck_l2", time.Now().UTC())
	if err != nil {
		t.Fatalf("second CloseOpenBySocket: %v", err)
	}
	if none != nil {
		t.Errorf("second CloseOpenBySocket returned %+v; want nil", none)
	}
}

func TestLedger_CloseAllOpenForUser(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	ctx := context.Background()
	store := session.NewStore(env.DB)

	if _, err := store.Open(ctx, "u-multi", "sck_m1", "", "", nil); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Open(ctx, "u-multi", "sck_m2", "", "", nil); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Open(ctx, "u-other", "sck_m3", "", "", nil); err != nil {
		t.Fatalf("Open: %v", err)
	}

	closed, err := store.CloseAllOpenForUser(ctx, "u-multi", time.Now().UTC())
	if err != nil {
		t.Fatalf("CloseAllOpenForUser: %v", err)
	}
	if len(closed) != 2 {
		t.Errorf("closed %d sessions; want 2", len(closed))
	}

	open, err := store.FindOpen(ctx, "")
	if err != nil {
		t.Fatalf("FindOpen: %v", err)
	}
	if len(open) != 1 || open[0].UserID != "u-other" {
		t.Errorf("open sessions = %+v; want only u-other's", open)
	}
}

func TestLedger_ListPagination(t *testing.T) {
	env := SetupTestEnv(t)
	defer env.Cleanup(t)

	ctx := context.Background()
	store := session.NewStore(env.DB)

	for i := 0; i < 5; i++ {
		if _, err := store.Open(ctx, "u-page", "sck_p", "", "", nil); err != nil {
			t.Fatalf("Open: %v", err)
		}
	}

	list, err := store.List(ctx, "u-page", 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 5 {
		t.Errorf("total = %d; want 5", list.Total)
	}
	if len(list.Sessions) != 2 {
		t.Errorf("page size = %d; want 2", len(list.Sessions))
	}
	if list.Pages != 3 {
		t.Errorf("pages = %d; want 3", list.Pages)
	}
}
