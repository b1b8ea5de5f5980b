// Package session is the durable ledger of connect/disconnect intervals.
// Rows are closed, never deleted; ended sessions remain as the audit trail.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/deskboard/deskboard/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = "id, user_id, socket_id, started_at, ended_at, ip, device, meta"

// Store persists sessions in Postgres. Storage errors surface to the
// caller; retries, if any, belong to the pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open creates a new open session for userID. It deliberately does not
// check for an existing open session: a user connected from two devices
// legitimately has two open rows.
func (s *Store) Open(ctx context.Context, userID, socketID, ip, device string, meta map[string]any) (*domain.Session, error) {
	var metaJSON []byte
	if meta != nil {
		var err error
		metaJSON, err = json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("marshal session meta: %w", err)
		}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (user_id, socket_id, started_at, ip, device, meta)
		VALUES ($1, $2, now(), NULLIF($3, ''), NULLIF($4, ''), $5)
		RETURNING `+sessionColumns,
		userID, socketID, ip, device, metaJSON,
	)

	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return sess, nil
}

// Close sets the end timestamp on the session with the given ID if it is
// still open. A session that is already closed, or does not exist, yields
// (nil, nil): close is an idempotent no-op, and the first end timestamp
// is never overwritten.
func (s *Store) Close(ctx context.Context, sessionID string, endedAt time.Time) (*domain.Session, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE sessions SET ended_at = $2
		WHERE id = $1 AND ended_at IS NULL
		RETURNING `+sessionColumns,
		sessionID, endedAt,
	)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	return sess, nil
}

// CloseOpenBySocket ends the open session recorded against the given
// socket handle. Used by the disconnect path, where only the transport
// handle is known. (nil, nil) when no open row matches.
func (s *Store) CloseOpenBySocket(ctx context.Context, socketID string, endedAt time.Time) (*domain.Session, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE sessions SET ended_at = $2
		WHERE socket_id = $1 AND ended_at IS NULL
		RETURNING `+sessionColumns,
		socketID, endedAt,
	)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("close session by socket: %w", err)
	}
	return sess, nil
}

// CloseAllOpenForUser ends every open session for userID and returns the
// closed sessions. Used on explicit logout.
func (s *Store) CloseAllOpenForUser(ctx context.Context, userID string, endedAt time.Time) ([]domain.Session, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE sessions SET ended_at = $2
		WHERE user_id = $1 AND ended_at IS NULL
		RETURNING `+sessionColumns,
		userID, endedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("close sessions for user: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// FindOpen returns all open sessions, newest first, optionally filtered
// by user. Each call re-queries; callers see a fresh snapshot.
func (s *Store) FindOpen(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE ended_at IS NULL AND ($1 = '' OR user_id = $1)
		ORDER BY started_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("find open sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// Get returns a session by ID, or (nil, nil) if it does not exist.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// List returns a page of session history, newest first, optionally
// filtered by user.
func (s *Store) List(ctx context.Context, userID string, page, limit int) (*domain.SessionList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM sessions WHERE ($1 = '' OR user_id = $1)`, userID,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions, err := collectSessions(rows)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]domain.SessionWithDuration, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, domain.SessionWithDuration{
			Session:         sess,
			DurationSeconds: sess.Duration(now),
		})
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &domain.SessionList{
		Sessions: out,
		Total:    total,
		Page:     page,
		Pages:    pages,
	}, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		sess     domain.Session
		endedAt  pgtype.Timestamptz
		ip       pgtype.Text
		device   pgtype.Text
		metaJSON []byte
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.SocketID, &sess.StartedAt, &endedAt, &ip, &device, &metaJSON)
	if err != nil {
		return nil, err
	}

	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	sess.IP = ip.String
	sess.Device = device.String
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &sess.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal session meta: %w", err)
		}
	}
	return &sess, nil
}

func collectSessions(rows pgx.Rows) ([]domain.Session, error) {
	var sessions []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
