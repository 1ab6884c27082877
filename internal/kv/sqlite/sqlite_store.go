package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"quiz-desk/internal/kv"
)

const defaultPollInterval = time.Second

// Store keeps blobs in a SQLite file. Several processes may open the same
// file; each one polls the change log to learn about the others' writes.
type Store struct {
	db           *sql.DB
	hub          *kv.Hub
	pollInterval time.Duration

	mu       sync.Mutex
	lastSeq  int64
	ownSeqs  map[int64]struct{}
	polling  bool
	stopPoll chan struct{}
	pollDone chan struct{}

	closeOnce sync.Once
}

func NewStore(path string, pollInterval time.Duration) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz.db"
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{
		db:           db,
		hub:          kv.NewHub(),
		pollInterval: pollInterval,
		ownSeqs:      make(map[int64]struct{}),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Only changes made after opening are reported to subscribers.
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM kv_changes`).Scan(&store.lastSeq); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	seq, err := s.write(ctx, key, value, false)
	if err != nil {
		return err
	}
	s.publishOwn(seq, kv.Change{Key: key, Value: append([]byte(nil), value...), Present: true})
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	seq, err := s.write(ctx, key, nil, true)
	if err != nil {
		return err
	}
	s.publishOwn(seq, kv.Change{Key: key})
	return nil
}

// write applies the mutation and appends it to the change log in one
// transaction, returning the change sequence number.
func (s *Store) write(ctx context.Context, key string, value []byte, deleted bool) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC().UnixNano()
	if deleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return 0, err
		}
	} else {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO kv (key, value, updated_at_unix) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at_unix = excluded.updated_at_unix`,
			key,
			value,
			now,
		)
		if err != nil {
			return 0, err
		}
	}

	deletedFlag := 0
	if deleted {
		deletedFlag = 1
	}
	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO kv_changes (key, deleted, changed_at_unix) VALUES (?, ?, ?)`,
		key,
		deletedFlag,
		now,
	)
	if err != nil {
		return 0, err
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv_changes WHERE seq <= ?`, seq-changeLogRetention); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

// publishOwn notifies local subscribers right away and marks seq so the
// poller does not report the same write again.
func (s *Store) publishOwn(seq int64, change kv.Change) {
	s.mu.Lock()
	if s.polling {
		s.ownSeqs[seq] = struct{}{}
	}
	s.mu.Unlock()

	s.hub.Publish(change)
}

func (s *Store) Subscribe(key string) (<-chan kv.Change, func()) {
	ch, cancel := s.hub.Subscribe(key)
	s.startPolling()
	return ch, cancel
}

func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		stop, done := s.stopPoll, s.pollDone
		s.mu.Unlock()
		if stop != nil {
			close(stop)
			<-done
		}

		s.hub.Close()
		err = s.db.Close()
	})
	return err
}
