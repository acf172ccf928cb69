package storage

import (
	"context"
	"os"
	"path/filepath"
)

// DiskStore implements blob storage on the local filesystem. The bucket
// maps to a subdirectory under Root, so single-node deployments work
// without any cloud credentials.
type DiskStore struct {
	Root string
}

func (d *DiskStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	dir := filepath.Join(d.Root, bucket, filepath.Dir(object))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.Root, bucket, object), data, 0o644)
}

func (d *DiskStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Root, bucket, object))
}
