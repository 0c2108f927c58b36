package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("profile: user not found")

type Metrics interface {
	ObserveProfile(method string, err error, duration time.Duration)
}

const lockStripes = 64

// Store keeps one interest vector per user: the running arithmetic mean of
// the embeddings of every document the user clicked, plus the click count.
// Writes for the same user serialize under a striped lock (fixed stripe
// count, so memory stays bounded no matter how many users click); distinct
// users usually proceed independently.
type Store struct {
	db      *sql.DB
	metrics Metrics

	locks [lockStripes]sync.Mutex
}

// Open opens (or creates) the SQLite profile database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	return db, nil
}

func New(db *sql.DB, metrics Metrics) *Store {
	return &Store{db: db, metrics: metrics}
}

func (s *Store) observe(method string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveProfile(method, err, time.Since(start))
	}
}

func (s *Store) Init(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("Init", err, start) }(time.Now())

	const q = `CREATE TABLE IF NOT EXISTS user_profile (
    user_id TEXT PRIMARY KEY,
    interest TEXT NOT NULL,
    cnt INTEGER NOT NULL,
    updated_at TEXT NOT NULL
)`
	_, err = s.db.ExecContext(ctx, q)
	return err
}

func (s *Store) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockStripes]
}

// Get returns the user's interest vector and click count.
func (s *Store) Get(ctx context.Context, userID string) (vec []float64, cnt int, err error) {
	defer func(start time.Time) { s.observe("Get", err, start) }(time.Now())

	const q = `SELECT interest, cnt FROM user_profile WHERE user_id = ?`
	var interest string
	if err = s.db.QueryRowContext(ctx, q, userID).Scan(&interest, &cnt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	if err = json.Unmarshal([]byte(interest), &vec); err != nil {
		return nil, 0, fmt.Errorf("decode interest vector: %w", err)
	}
	return vec, cnt, nil
}

// ApplyClick folds one clicked document vector into the user's interest via
// the incremental mean new = (old*cnt + vec) / (cnt+1). First click stores
// the vector verbatim with cnt=1. The read-modify-write runs inside a
// transaction under the per-user lock.
func (s *Store) ApplyClick(ctx context.Context, userID string, vec []float64) (err error) {
	defer func(start time.Time) { s.observe("ApplyClick", err, start) }(time.Now())

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var interest string
	var cnt int
	row := tx.QueryRowContext(ctx, `SELECT interest, cnt FROM user_profile WHERE user_id = ?`, userID)
	switch scanErr := row.Scan(&interest, &cnt); {
	case errors.Is(scanErr, sql.ErrNoRows):
		encoded, encErr := json.Marshal(vec)
		if encErr != nil {
			err = encErr
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_profile (user_id, interest, cnt, updated_at) VALUES (?, ?, ?, ?)`,
			userID, string(encoded), 1, nowStamp())
		if err != nil {
			return err
		}
	case scanErr != nil:
		err = scanErr
		return err
	default:
		var old []float64
		if err = json.Unmarshal([]byte(interest), &old); err != nil {
			return fmt.Errorf("decode interest vector: %w", err)
		}
		if len(old) != len(vec) {
			err = fmt.Errorf("interest vector length %d does not match click vector length %d", len(old), len(vec))
			return err
		}
		next := make([]float64, len(old))
		for i := range old {
			next[i] = (old[i]*float64(cnt) + vec[i]) / float64(cnt+1)
		}
		encoded, encErr := json.Marshal(next)
		if encErr != nil {
			err = encErr
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE user_profile SET interest = ?, cnt = ?, updated_at = ? WHERE user_id = ?`,
			string(encoded), cnt+1, nowStamp(), userID)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
