package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"quiz-desk/internal/kv"
)

type changeRow struct {
	seq     int64
	key     string
	deleted bool
}

func (s *Store) startPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polling {
		return
	}

	s.polling = true
	s.stopPoll = make(chan struct{})
	s.pollDone = make(chan struct{})
	go s.pollLoop(s.stopPoll, s.pollDone)
}

func (s *Store) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.poll(context.Background()); err != nil {
				log.Warn().Err(err).Msg("kv change poll failed")
			}
		}
	}
}

// poll publishes every change logged after lastSeq by other handles.
func (s *Store) poll(ctx context.Context) error {
	s.mu.Lock()
	after := s.lastSeq
	s.mu.Unlock()

	changes, err := s.changesAfter(ctx, after)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	// Only the newest change per key matters; subscribers re-read whole values.
	latest := make(map[string]changeRow, len(changes))
	order := make([]string, 0, len(changes))
	s.mu.Lock()
	for _, change := range changes {
		if _, own := s.ownSeqs[change.seq]; own {
			delete(s.ownSeqs, change.seq)
			continue
		}
		if _, seen := latest[change.key]; !seen {
			order = append(order, change.key)
		}
		latest[change.key] = change
	}
	if last := changes[len(changes)-1].seq; last > s.lastSeq {
		s.lastSeq = last
	}
	s.pruneOwnSeqsLocked()
	s.mu.Unlock()

	for _, key := range order {
		change := latest[key]
		if change.deleted {
			s.hub.Publish(kv.Change{Key: key})
			continue
		}

		value, present, err := s.Get(ctx, key)
		if err != nil {
			return err
		}
		s.hub.Publish(kv.Change{Key: key, Value: value, Present: present})
	}
	return nil
}

// pruneOwnSeqsLocked forgets own writes the poller has already passed. A
// write recorded after the poll that covered it would otherwise stay forever.
func (s *Store) pruneOwnSeqsLocked() {
	for seq := range s.ownSeqs {
		if seq <= s.lastSeq {
			delete(s.ownSeqs, seq)
		}
	}
}

// changesAfter reads the change log into memory before returning so the
// single connection is free for follow-up queries.
func (s *Store) changesAfter(ctx context.Context, after int64) ([]changeRow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT seq, key, deleted FROM kv_changes WHERE seq > ? ORDER BY seq ASC`,
		after,
	)
	if err != nil {
		if errors.Is(err, sql.ErrConnDone) {
			return nil, kv.ErrClosed
		}
		return nil, err
	}
	defer rows.Close()

	var changes []changeRow
	for rows.Next() {
		var (
			row     changeRow
			deleted int
		)
		if err := rows.Scan(&row.seq, &row.key, &deleted); err != nil {
			return nil, err
		}
		row.deleted = deleted != 0
		changes = append(changes, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}
