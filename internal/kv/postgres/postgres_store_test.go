package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPayloadRoundTrip(t *testing.T) {
	origin, key, ok := decodePayload(encodePayload("abc", "english-tests"))
	if !ok || origin != "abc" || key != "english-tests" {
		t.Fatalf("decodePayload = (%q, %q, %v)", origin, key, ok)
	}

	for _, payload := range []string{"", "no-separator", "origin|"} {
		if _, _, ok := decodePayload(payload); ok {
			t.Fatalf("decodePayload(%q) accepted malformed payload", payload)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("QUIZ_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QUIZ_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestStoreRoundTripAndNotify(t *testing.T) {
	reader := newTestStore(t)
	writer := newTestStore(t)
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	changes, cancel := reader.Subscribe(key)
	defer cancel()
	// Give the listener time to issue LISTEN.
	time.Sleep(200 * time.Millisecond)

	if err := writer.Set(ctx, key, []byte(`[1]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	select {
	case change := <-changes:
		if !change.Present || string(change.Value) != `[1]` {
			t.Fatalf("unexpected change: %+v", change)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for notification")
	}

	value, present, err := reader.Get(ctx, key)
	if err != nil || !present || string(value) != `[1]` {
		t.Fatalf("Get = (%q, %v, %v)", value, present, err)
	}

	if err := writer.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, present, err := reader.Get(ctx, key); err != nil || present {
		t.Fatalf("Get after Delete = (%v, %v)", present, err)
	}
}
