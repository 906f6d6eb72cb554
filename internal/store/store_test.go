// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemStore(t *testing.T) {
	t.Parallel()
	testStore(t, NewMemStore(t.Context(), 0))
}

func TestJSONFile(t *testing.T) {
	t.Parallel()

	s, err := NewJSONFile(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestJSONFileReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.json")

	s1, err := NewJSONFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Set(context.Background(), "key", []byte("value"), 0); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := NewJSONFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	v, err := s2.Get(context.Background(), "key")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "value" {
		t.Fatalf("got %q, want %q", v, "value")
	}
}

func TestPostgresStore(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, databaseURL, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Clean up the table before running the test.
	if _, err := s.pool.Exec(ctx, "DELETE FROM kv"); err != nil {
		t.Fatal(err)
	}

	testStore(t, s)
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	if err := s.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "key2", []byte("value2"), time.Hour); err != nil {
		t.Fatal(err)
	}

	v, err := s.Get(ctx, "key1")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "value1" {
		t.Errorf("got %q, want %q", v, "value1")
	}

	v, err = s.Get(ctx, "key2")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "value2" {
		t.Errorf("got %q, want %q", v, "value2")
	}

	// Missing keys return (nil, nil).
	v, err = s.Get(ctx, "key3")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("got %q, want nil", v)
	}

	// Overwrite keeps the latest value.
	if err := s.Set(ctx, "key1", []byte("value1b"), 0); err != nil {
		t.Fatal(err)
	}
	v, err = s.Get(ctx, "key1")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "value1b" {
		t.Errorf("got %q, want %q", v, "value1b")
	}

	// Delete is idempotent.
	if err := s.Delete(ctx, "key1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "key1"); err != nil {
		t.Fatal(err)
	}
	v, err = s.Get(ctx, "key1")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("got %q, want nil after delete", v)
	}
}

func TestMemStoreExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemStore(ctx, 0)

	now := time.Now()
	s.now = func() time.Time { return now }

	if err := s.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatal(err)
	}

	v, err := s.Get(ctx, "key")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "value" {
		t.Fatalf("got %q, want %q", v, "value")
	}

	now = now.Add(2 * time.Minute)

	v, err = s.Get(ctx, "key")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("got %q, want nil after expiry", v)
	}
}
