// Package audit records admin-visible activity (session terminations,
// logins, notification sends) with dual-write: slog synchronously,
// Postgres asynchronously.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Actions recorded by the server.
const (
	ActionStartSession     = "START_SESSION"
	ActionEndSession       = "END_SESSION"
	ActionTerminateSession = "TERMINATE_SESSION"
	ActionLogout           = "LOGOUT"
	ActionSendNotification = "SEND_NOTIFICATION"
)

// Entry is one activity log row.
type Entry struct {
	ID        string         `json:"id"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Target    string         `json:"target,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// EntryList is the paginated response for GET /activity.
type EntryList struct {
	Entries []Entry `json:"entries"`
	Total   int64   `json:"total"`
	Page    int     `json:"page"`
	Pages   int     `json:"pages"`
}

type record struct {
	actor  string
	action string
	target string
	meta   map[string]any
}

// Logger writes activity entries. Log never blocks the caller: entries go
// through a buffered channel and a full buffer drops the DB write (the
// slog line is already out).
type Logger struct {
	pool   *pgxpool.Pool
	ch     chan record
	mu     sync.Mutex // guards closed + channel send atomically
	closed bool
	once   sync.Once
	done   chan struct{}
}

// New creates a Logger. The buffer parameter controls the async channel size.
func New(pool *pgxpool.Pool, buffer int) *Logger {
	if buffer <= 0 {
		buffer = 256
	}
	l := &Logger{
		pool: pool,
		ch:   make(chan record, buffer),
		done: make(chan struct{}),
	}
	go l.drain()
	return l
}

// Log records an activity entry.
// actor: who performed the action (a user ID, or "system").
// action: one of the Action constants.
// target: what was acted on (a session ID, user ID).
// meta: extra context, nil is fine.
func (l *Logger) Log(actor, action, target string, meta map[string]any) {
	attrs := []any{
		slog.String("actor", actor),
		slog.String("action", action),
	}
	if target != "" {
		attrs = append(attrs, slog.String("target", target))
	}
	if meta != nil {
		attrs = append(attrs, slog.Any("meta", meta))
	}
	slog.Info("activity", attrs...)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	select {
	case l.ch <- record{actor: actor, action: action, target: target, meta: meta}:
	default:
		slog.Warn("activity log channel full, dropping entry", "action", action)
	}
	l.mu.Unlock()
}

func (l *Logger) drain() {
	defer close(l.done)
	for rec := range l.ch {
		if l.pool == nil {
			continue
		}
		var metaJSON []byte
		if rec.meta != nil {
			var err error
			metaJSON, err = json.Marshal(rec.meta)
			if err != nil {
				slog.Warn("activity meta marshal failed", "error", err, "action", rec.action)
			}
		}

		_, err := l.pool.Exec(context.Background(), `
			INSERT INTO activity_log (actor, action, target, meta)
			VALUES ($1, $2, NULLIF($3, ''), $4)`,
			rec.actor, rec.action, rec.target, metaJSON,
		)
		if err != nil {
			slog.Error("activity log insert failed", "error", err, "action", rec.action)
		}
	}
}

// Close drains remaining entries and stops the writer. Safe to call more
// than once.
func (l *Logger) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.ch)
		l.mu.Unlock()
		<-l.done
	})
}

// List returns a page of activity entries, newest first, optionally
// filtered by actor.
func (l *Logger) List(ctx context.Context, actor string, page, limit int) (*EntryList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int64
	err := l.pool.QueryRow(ctx,
		`SELECT count(*) FROM activity_log WHERE ($1 = '' OR actor = $1)`, actor,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id, actor, action, target, meta, created_at FROM activity_log
		WHERE ($1 = '' OR actor = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		actor, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			target   pgtype.Text
			metaJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &target, &metaJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.Target = target.String
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal activity meta: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &EntryList{Entries: entries, Total: total, Page: page, Pages: pages}, nil
}
