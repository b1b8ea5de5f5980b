// Package fanout relays broadcasts between server instances over NATS.
//
// The registry and hub are per-process, so in a horizontally scaled
// deployment a broadcast would only reach clients connected to the
// instance that produced it. The bridge decorates the local router:
// every outbound broadcast is also published to NATS, and broadcasts
// published by peer instances are re-delivered to local clients only.
package fanout

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/deskboard/deskboard/internal/presence"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const subject = "deskboard.presence.broadcast"

type envelope struct {
	Instance string          `json:"instance"`
	Topic    string          `json:"topic,omitempty"`
	Event    string          `json:"event"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Bridge is a presence.Router that mirrors broadcasts across instances.
type Bridge struct {
	nc         *nats.Conn
	local      presence.Router
	instanceID string
	sub        *nats.Subscription
}

var _ presence.Router = (*Bridge)(nil)

// Connect dials NATS and starts relaying peer broadcasts into local.
func Connect(url string, local presence.Router) (*Bridge, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	b := &Bridge{
		nc:         nc,
		local:      local,
		instanceID: uuid.NewString(),
	}

	sub, err := nc.Subscribe(subject, b.handleRemote)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	b.sub = sub

	slog.Info("presence fan-out connected", "url", url, "instance", b.instanceID)
	return b, nil
}

// Broadcast delivers locally and mirrors to peer instances.
func (b *Bridge) Broadcast(topic, event string, payload any) {
	b.local.Broadcast(topic, event, payload)
	b.publish(topic, event, payload)
}

// BroadcastGlobal delivers locally and mirrors to peer instances.
func (b *Bridge) BroadcastGlobal(event string, payload any) {
	b.local.BroadcastGlobal(event, payload)
	b.publish("", event, payload)
}

func (b *Bridge) publish(topic, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("fan-out marshal failed", "event", event, "error", err)
		return
	}
	data, err := json.Marshal(&envelope{
		Instance: b.instanceID,
		Topic:    topic,
		Event:    event,
		Payload:  raw,
	})
	if err != nil {
		slog.Error("fan-out marshal failed", "event", event, "error", err)
		return
	}
	if err := b.nc.Publish(subject, data); err != nil {
		slog.Error("fan-out publish failed", "event", event, "error", err)
	}
}

func (b *Bridge) handleRemote(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		slog.Warn("fan-out received malformed envelope", "error", err)
		return
	}
	// Skip our own publishes; they were already delivered locally.
	if env.Instance == b.instanceID {
		return
	}

	if env.Topic == "" {
		b.local.BroadcastGlobal(env.Event, env.Payload)
		return
	}
	b.local.Broadcast(env.Topic, env.Event, env.Payload)
}

// Close stops the relay and drops the NATS connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	b.nc.Close()
}
