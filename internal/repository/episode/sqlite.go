package episode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration.

	domain "github.com/oshokin/attention-monitor/internal/domain/alarm"
)

// Repository defines persistence operations for warning episodes.
type Repository interface {
	Save(ctx context.Context, episode *domain.Episode) error
	List(ctx context.Context, sessionID uuid.UUID) ([]*domain.Episode, error)
}

// busyTimeout is how long SQLite waits on a locked database, in milliseconds.
const busyTimeout = 5000

// dirPermissions is used when the database directory has to be created.
const dirPermissions = 0o750

const createEpisodesTable = `
CREATE TABLE IF NOT EXISTS episodes (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    signal TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    warned_at INTEGER NOT NULL,
    ended_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_episodes_session ON episodes(session_id, started_at);
`

// ErrClosed is returned when the repository is used after Close.
var ErrClosed = errors.New("episode repository is closed")

// SQLiteRepository stores episodes in an SQLite database file.
// Timestamps are kept as Unix nanoseconds in UTC.
type SQLiteRepository struct {
	// db is the open database handle, nil after Close.
	db *sql.DB
	// mu protects db against a concurrent Close.
	mu sync.RWMutex
}

// NewSQLiteRepository opens (creating if needed) the database at path and
// prepares the schema.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	path = filepath.Clean(path)

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	// SQLite allows a single writer; one connection keeps writes ordered.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, createEpisodesTable); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create episodes table: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Save inserts the episode. Saving the same episode twice replaces it.
func (r *SQLiteRepository) Save(ctx context.Context, episode *domain.Episode) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.db == nil {
		return ErrClosed
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO episodes (id, session_id, signal, started_at, warned_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		episode.ID.String(),
		episode.SessionID.String(),
		episode.Signal,
		toUnix(episode.StartedAt),
		toUnix(episode.WarnedAt),
		toUnix(episode.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("insert episode %s: %w", episode.ID, err)
	}

	return nil
}

// List returns the episodes of a session ordered by start time.
func (r *SQLiteRepository) List(ctx context.Context, sessionID uuid.UUID) ([]*domain.Episode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.db == nil {
		return nil, ErrClosed
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, signal, started_at, warned_at, ended_at
		FROM episodes WHERE session_id = ? ORDER BY started_at, warned_at`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*domain.Episode

	for rows.Next() {
		episode, scanErr := scanEpisode(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		episodes = append(episodes, episode)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}

	return episodes, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}

	err := r.db.Close()
	r.db = nil

	return err
}

// scanEpisode reads one row into a domain episode.
func scanEpisode(rows *sql.Rows) (*domain.Episode, error) {
	var (
		id, sessionID, signal        string
		startedAt, warnedAt, endedAt int64
	)

	if err := rows.Scan(&id, &sessionID, &signal, &startedAt, &warnedAt, &endedAt); err != nil {
		return nil, fmt.Errorf("scan episode: %w", err)
	}

	episodeID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse episode id %q: %w", id, err)
	}

	session, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("parse session id %q: %w", sessionID, err)
	}

	return &domain.Episode{
		ID:        episodeID,
		SessionID: session,
		Signal:    signal,
		StartedAt: fromUnix(startedAt),
		WarnedAt:  fromUnix(warnedAt),
		EndedAt:   fromUnix(endedAt),
	}, nil
}

// dataSourceName adds the busy timeout unless the path already sets one.
func dataSourceName(path string) string {
	if strings.Contains(path, "_busy_timeout") {
		return path
	}

	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}

	return fmt.Sprintf("%s%s_busy_timeout=%d", path, separator, busyTimeout)
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.Unix(0, n).UTC()
}
