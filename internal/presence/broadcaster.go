package presence

import (
	"time"

	"github.com/deskboard/deskboard/internal/domain"
)

// Router fans an event out to subscribed connections. Delivery is
// best-effort, at most once per currently joined connection.
type Router interface {
	Broadcast(topic, event string, payload any)
	BroadcastGlobal(event string, payload any)
}

// Broadcaster derives presence events from registry state and pushes them
// through the router. For a single user, online/offline announcements go
// out in call order; there is no ordering across users.
type Broadcaster struct {
	registry *Registry
	router   Router
}

// NewBroadcaster creates a Broadcaster over the given registry and router.
func NewBroadcaster(registry *Registry, router Router) *Broadcaster {
	return &Broadcaster{registry: registry, router: router}
}

// AnnounceOnline emits a presenceUpdate marking userID online. Call after
// Registry.Register.
func (b *Broadcaster) AnnounceOnline(userID string) {
	b.router.BroadcastGlobal(domain.EventPresenceUpdate, domain.PresenceDelta{
		UserID: userID,
		Online: true,
	})
}

// AnnounceOffline emits a presenceUpdate marking userID offline. Call
// after Registry.Unregister.
func (b *Broadcaster) AnnounceOffline(userID string, lastSeen time.Time) {
	b.router.BroadcastGlobal(domain.EventPresenceUpdate, domain.PresenceDelta{
		UserID:   userID,
		Online:   false,
		LastSeen: &lastSeen,
	})
}

// AnnounceOnlineCount emits the current count plus the full online-user
// snapshot, for clients that render a live counter instead of tracking
// per-user deltas.
func (b *Broadcaster) AnnounceOnlineCount() {
	b.router.BroadcastGlobal(domain.EventOnlineCountUpdate, domain.OnlineCount{
		Count:         b.registry.Count(),
		OnlineUserIDs: b.registry.OnlineUserIDs(),
	})
}

// AnnounceSessionStarted pushes a freshly opened session to all clients.
func (b *Broadcaster) AnnounceSessionStarted(sess *domain.Session) {
	b.router.BroadcastGlobal(domain.EventSessionStarted, sess)
}

// AnnounceSessionEnded pushes a session-closed marker to all clients.
func (b *Broadcaster) AnnounceSessionEnded(sessionID string) {
	b.router.BroadcastGlobal(domain.EventSessionEnded, domain.SessionEnded{SessionID: sessionID})
}

// AnnounceToIdentity delivers an event to one user's connection only.
func (b *Broadcaster) AnnounceToIdentity(userID, event string, payload any) {
	b.router.Broadcast(domain.UserTopic(userID), event, payload)
}

// AnnounceToRole delivers an event to every connection announced under role.
func (b *Broadcaster) AnnounceToRole(role, event string, payload any) {
	b.router.Broadcast(domain.RoleTopic(role), event, payload)
}

// AnnounceToAdmins delivers an event to the admin role topic.
func (b *Broadcaster) AnnounceToAdmins(event string, payload any) {
	b.AnnounceToRole(domain.RoleAdmin, event, payload)
}

// AnnounceToBoard delivers a kanbanUpdate to connections watching boardID.
func (b *Broadcaster) AnnounceToBoard(boardID string, payload any) {
	b.router.Broadcast(domain.BoardTopic(boardID), domain.EventKanbanUpdate, payload)
}

// AnnounceUserUpdated pushes a profile change to all clients.
func (b *Broadcaster) AnnounceUserUpdated(payload any) {
	b.router.BroadcastGlobal(domain.EventUserUpdated, payload)
}

// AnnounceRoleChanged tells one user their role changed.
func (b *Broadcaster) AnnounceRoleChanged(userID, newRole string) {
	b.AnnounceToIdentity(userID, domain.EventRoleChanged, domain.RoleChange{
		UserID:  userID,
		NewRole: newRole,
	})
}

// AnnounceNotification routes a notification to its target user, or to
// everyone when it has no target.
func (b *Broadcaster) AnnounceNotification(userID string, payload any) {
	if userID == "" {
		b.router.BroadcastGlobal(domain.EventNewNotification, payload)
		return
	}
	b.AnnounceToIdentity(userID, domain.EventNewNotification, payload)
}
