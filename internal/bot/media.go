package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type FileFetcher interface {
	FetchFile(ctx context.Context, fileID string) ([]byte, error)
}

// DiskImages stores uploaded authoring images as <dir>/<uuid>.jpg.
type DiskImages struct {
	fetcher FileFetcher
	dir     string
}

func NewDiskImages(fetcher FileFetcher, dir string) *DiskImages {
	if dir == "" {
		dir = "images"
	}
	return &DiskImages{fetcher: fetcher, dir: dir}
}

func (d *DiskImages) SaveImage(ctx context.Context, fileID string) (string, error) {
	data, err := d.fetcher.FetchFile(ctx, fileID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create images dir: %w", err)
	}

	path := filepath.Join(d.dir, uuid.New().String()+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return path, nil
}
