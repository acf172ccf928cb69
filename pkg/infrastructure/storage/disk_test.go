package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskStore_WriteRead(t *testing.T) {
	store := &DiskStore{Root: t.TempDir()}
	ctx := context.Background()

	data := []byte(`{"total_completed": 3}`)
	if err := store.Write(ctx, "artifacts", "session/results.json", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(ctx, "artifacts", "session/results.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read = %q, want %q", got, data)
	}

	// Buckets map to directories under the root.
	if _, err := os.Stat(filepath.Join(store.Root, "artifacts", "session", "results.json")); err != nil {
		t.Errorf("expected file on disk: %v", err)
	}
}

func TestDiskStore_ReadMissing(t *testing.T) {
	store := &DiskStore{Root: t.TempDir()}
	if _, err := store.Read(context.Background(), "artifacts", "nope.json"); err == nil {
		t.Error("expected error for missing object")
	}
}
