// Package notification stores dashboard notifications and exposes them to
// the broadcaster for push delivery.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification targets one user, or everyone when UserID is empty.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists notifications in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a notification. userID may be empty for a broadcast
// notification.
func (s *Store) Create(ctx context.Context, userID, title, message string) (*Notification, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, message)
		VALUES (NULLIF($1, ''), $2, $3)
		RETURNING id, user_id, title, message, read, created_at`,
		userID, title, message,
	)
	n, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// ListForUser returns a user's notifications plus untargeted broadcasts,
// newest first.
func (s *Store) ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, message, read, created_at FROM notifications
		WHERE user_id = $1 OR user_id IS NULL
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

// MarkRead flags a notification as read. Returns false when no row
// matched the ID.
func (s *Store) MarkRead(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get returns a notification by ID, or (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, id string) (*Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, message, read, created_at FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n      Notification
		userID pgtype.Text
	)
	if err := row.Scan(&n.ID, &userID, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.UserID = userID.String
	return &n, nil
}
