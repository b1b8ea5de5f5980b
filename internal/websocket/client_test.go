package websocket

import (
	"context"
	"testing"

	"github.com/deskboard/deskboard/internal/domain"
)

func TestClient_AnnounceWithoutUserIsRejected(t *testing.T) {
	f := newLifecycleFixture()
	c := NewClient(f.hub, f.lc, nil, "sck_a", "", "")
	f.hub.Register(c)

	c.handleMessage(context.Background(), []byte(`{"action":"announce"}`))

	ev := receiveEvent(t, c)
	if ev.Event != "error" {
		t.Fatalf("event = %q; want error", ev.Event)
	}
	if _, _, ok := c.Identity(); ok {
		t.Error("client identified despite rejected announce")
	}
}

func TestClient_AuthIdentityOverridesFrame(t *testing.T) {
	f := newLifecycleFixture()
	c := NewClient(f.hub, f.lc, nil, "sck_a", "u-auth", domain.RoleUser)
	f.hub.Register(c)

	// The frame claims an admin identity; the token's identity wins.
	c.handleMessage(context.Background(), []byte(`{"action":"announce","userId":"u-spoof","role":"admin"}`))

	userID, role, ok := c.Identity()
	if !ok || userID != "u-auth" || role != domain.RoleUser {
		t.Errorf("identity = %q, %q, %v; want u-auth/user", userID, role, ok)
	}
	if f.hub.TopicCount("role:admin") != 0 {
		t.Error("client joined the admin topic off a spoofed frame")
	}
}

func TestClient_FrameIdentityUsedWithoutAuth(t *testing.T) {
	f := newLifecycleFixture()
	c := NewClient(f.hub, f.lc, nil, "sck_a", "", "")
	f.hub.Register(c)

	c.handleMessage(context.Background(), []byte(`{"action":"announce","userId":"u1","role":"user"}`))

	userID, _, ok := c.Identity()
	if !ok || userID != "u1" {
		t.Errorf("identity = %q, %v; want u1", userID, ok)
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	f := newLifecycleFixture()
	c := NewClient(f.hub, f.lc, nil, "sck_a", "", "")

	c.handleMessage(context.Background(), []byte(`{not json`))

	ev := receiveEvent(t, c)
	if ev.Event != "error" {
		t.Errorf("event = %q; want error", ev.Event)
	}
}

func TestClient_UnknownAction(t *testing.T) {
	f := newLifecycleFixture()
	c := NewClient(f.hub, f.lc, nil, "sck_a", "", "")

	c.handleMessage(context.Background(), []byte(`{"action":"selfDestruct"}`))

	ev := receiveEvent(t, c)
	if ev.Event != "error" {
		t.Errorf("event = %q; want error", ev.Event)
	}
}

func TestClient_PingPong(t *testing.T) {
	f := newLifecycleFixture()
	c := NewClient(f.hub, f.lc, nil, "sck_a", "", "")

	c.handleMessage(context.Background(), []byte(`{"action":"ping"}`))

	ev := receiveEvent(t, c)
	if ev.Event != "pong" {
		t.Errorf("event = %q; want pong", ev.Event)
	}
}

func TestClient_HeartbeatTouchesBeat(t *testing.T) {
	f := newLifecycleFixture()
	c := NewClient(f.hub, f.lc, nil, "sck_a", "", "")
	before := c.lastBeatTime()

	c.handleMessage(context.Background(), []byte(`{"action":"heartbeat","sessionId":"s1"}`))

	if c.lastBeatTime().Before(before) {
		t.Error("heartbeat moved lastBeat backwards")
	}
	assertNoEvent(t, c)
}
