// Package postgres stores kv blobs in PostgreSQL and relays writes between
// processes with LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"quiz-desk/internal/kv"
)

const (
	channel        = "kv_changes"
	reconnectDelay = time.Second
)

type Store struct {
	db     *pgxpool.Pool
	hub    *kv.Hub
	origin string

	mu        sync.Mutex
	listening bool
	cancel    context.CancelFunc
	done      chan struct{}

	closeOnce sync.Once
}

// NewStore connects to dsn, verifies the connection and creates the kv table.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	const op = "postgres.NewStore"

	connConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse database config: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create database pool: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	_, err = db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to create kv table: %w", op, err)
	}

	return &Store{
		db:     db,
		hub:    kv.NewHub(),
		origin: uuid.NewString(),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(ctx, "SELECT value FROM kv WHERE key = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	err := s.write(ctx, key, `
		INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value)
	if err != nil {
		return err
	}
	s.hub.Publish(kv.Change{Key: key, Value: append([]byte(nil), value...), Present: true})
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.write(ctx, key, "DELETE FROM kv WHERE key = $1", key); err != nil {
		return err
	}
	s.hub.Publish(kv.Change{Key: key})
	return nil
}

// write runs the statement and the notification in one transaction so
// listeners never hear about uncommitted data.
func (s *Store) write(ctx context.Context, key, query string, args ...any) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", channel, encodePayload(s.origin, key)); err != nil {
		return fmt.Errorf("failed to notify change of %s: %w", key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit key %s: %w", key, err)
	}
	return nil
}

func (s *Store) Subscribe(key string) (<-chan kv.Change, func()) {
	ch, cancel := s.hub.Subscribe(key)
	s.startListening()
	return ch, cancel
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		cancel, done := s.cancel, s.done
		s.mu.Unlock()
		if cancel != nil {
			cancel()
			<-done
		}

		s.hub.Close()
		s.db.Close()
	})
	return nil
}

func (s *Store) startListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listening {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.listening = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.listenLoop(ctx, s.done)
}

func (s *Store) listenLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		err := s.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("kv listener disconnected, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// listen holds one pooled connection for LISTEN and publishes every foreign
// change it hears about until the connection fails or ctx ends.
func (s *Store) listen(ctx context.Context) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		origin, key, ok := decodePayload(notification.Payload)
		if !ok || origin == s.origin {
			continue
		}

		value, present, err := s.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to read changed key")
			continue
		}
		s.hub.Publish(kv.Change{Key: key, Value: value, Present: present})
	}
}

func encodePayload(origin, key string) string {
	return origin + "|" + key
}

func decodePayload(payload string) (string, string, bool) {
	origin, key, ok := strings.Cut(payload, "|")
	if !ok || key == "" {
		return "", "", false
	}
	return origin, key, true
}
