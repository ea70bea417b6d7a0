package localbackend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Uploader implements backend.Uploader against the local filesystem:
// assets are copied into a bucket directory under the base dir and
// addressed by file URL. Stands in for the remote object store.
type Uploader struct {
	baseDir string
}

// NewUploader creates an uploader rooted at baseDir.
func NewUploader(baseDir string) *Uploader {
	return &Uploader{baseDir: baseDir}
}

// Upload copies the local asset into the bucket and returns its URL.
func (u *Uploader) Upload(ctx context.Context, localAssetRef, bucket string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(localAssetRef)
	if err != nil {
		return "", fmt.Errorf("failed to open asset: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(u.baseDir, bucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create bucket directory: %w", err)
	}

	name := uuid.New().String() + filepath.Ext(localAssetRef)
	dest := filepath.Join(dir, name)

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create object: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	return "file://" + dest, nil
}
