package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Value binds a typed JSON blob to one key. Reads fall back to the initial
// value when the key is missing or holds something that does not parse;
// writes always serialize the whole value.
type Value[T any] struct {
	store      Store
	key        string
	initialRaw []byte

	// updateMu serializes read-modify-write cycles made through this handle.
	// Writers in other processes still race with last-writer-wins.
	updateMu sync.Mutex

	// ioMu pairs every store access with the cache update it produces, so
	// the cache always holds the most recent read or write of this handle.
	ioMu sync.Mutex

	mu      sync.RWMutex
	current T
	raw     []byte
	present bool
}

func NewValue[T any](store Store, key string, initial T) *Value[T] {
	initialRaw, err := json.Marshal(initial)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("initial value is not serializable, using zero value")
		initialRaw = nil
	}

	v := &Value[T]{
		store:      store,
		key:        key,
		initialRaw: initialRaw,
	}
	v.current = v.initial()
	return v
}

func (v *Value[T]) Key() string {
	return v.key
}

// Load reads the stored value. Only store failures are returned; corrupt or
// missing data yields the initial value.
func (v *Value[T]) Load(ctx context.Context) (T, error) {
	v.ioMu.Lock()
	defer v.ioMu.Unlock()

	raw, present, err := v.store.Get(ctx, v.key)
	if err != nil {
		return v.initial(), fmt.Errorf("read %s: %w", v.key, err)
	}

	value := v.decode(raw, present)
	v.remember(value, raw, present)
	return value, nil
}

func (v *Value[T]) Save(ctx context.Context, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", v.key, err)
	}

	v.ioMu.Lock()
	defer v.ioMu.Unlock()

	if err := v.store.Set(ctx, v.key, raw); err != nil {
		return fmt.Errorf("write %s: %w", v.key, err)
	}
	v.remember(value, raw, true)
	return nil
}

// Update loads the value, applies fn and saves the result.
func (v *Value[T]) Update(ctx context.Context, fn func(T) (T, error)) (T, error) {
	v.updateMu.Lock()
	defer v.updateMu.Unlock()

	value, err := v.Load(ctx)
	if err != nil {
		return value, err
	}

	updated, err := fn(value)
	if err != nil {
		return value, err
	}
	if err := v.Save(ctx, updated); err != nil {
		return value, err
	}
	return updated, nil
}

// Current returns the last value read, written or reconciled through this
// handle. Callers must treat it as read-only.
func (v *Value[T]) Current() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Watch replaces the cached copy whenever the key changes in the store and
// calls onChange (when non-nil) with the new value. Writes made through this
// handle are not reported. It blocks until ctx is done or the store closes.
func (v *Value[T]) Watch(ctx context.Context, onChange func(T)) error {
	changes, cancel := v.store.Subscribe(v.key)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return ErrClosed
			}
			value, changed, err := v.reconcile(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if errors.Is(err, ErrClosed) {
					return ErrClosed
				}
				log.Warn().Err(err).Str("key", v.key).Msg("failed to re-read changed value")
				continue
			}
			if changed && onChange != nil {
				onChange(value)
			}
		}
	}
}

// reconcile re-reads the key instead of trusting the change payload, so a
// late notification for an older write cannot roll the cache back. It
// reports whether the stored bytes differ from the cached ones.
func (v *Value[T]) reconcile(ctx context.Context) (T, bool, error) {
	v.ioMu.Lock()
	defer v.ioMu.Unlock()

	raw, present, err := v.store.Get(ctx, v.key)
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("read %s: %w", v.key, err)
	}

	v.mu.RLock()
	same := present == v.present && bytes.Equal(raw, v.raw)
	v.mu.RUnlock()
	if same {
		return v.Current(), false, nil
	}

	value := v.decode(raw, present)
	v.remember(value, raw, present)
	return value, true, nil
}

func (v *Value[T]) decode(raw []byte, present bool) T {
	if !present || len(raw) == 0 {
		return v.initial()
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		log.Warn().Err(err).Str("key", v.key).Msg("stored value does not parse, using default")
		return v.initial()
	}
	return value
}

// initial decodes a fresh copy of the initial value so callers never share
// its backing memory.
func (v *Value[T]) initial() T {
	var value T
	if v.initialRaw != nil {
		_ = json.Unmarshal(v.initialRaw, &value)
	}
	return value
}

func (v *Value[T]) remember(value T, raw []byte, present bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = value
	v.raw = append([]byte(nil), raw...)
	v.present = present
}
