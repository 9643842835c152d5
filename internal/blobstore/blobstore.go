// Package blobstore implements the artifact store contract (SPEC_FULL.md
// §6): screenshots under BI/scraper_screenshots/run_<runId>/... and record
// images under BI/record_images/<alias>.<ext>. No pack example implements
// a generic blob store (the original's ImageService.py is SharePoint-
// specific), so this is a direct local-filesystem adapter over io/os.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store puts a blob under key and returns a reference the caller can log
// or persist (a file:// URL for the local adapter).
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}

// LocalStore writes blobs under a root directory on the local filesystem,
// creating intermediate directories as needed.
type LocalStore struct {
	Root string
}

// NewLocalStore returns a Store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Root: dir}
}

var _ Store = (*LocalStore)(nil)

// Put writes r to Root/key, returning a file:// URL to the written path.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	path := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("blobstore: mkdir for %s: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("blobstore: create %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("blobstore: write %s: %w", key, err)
	}
	return "file://" + path, nil
}

// ScreenshotKey builds the key for a run screenshot.
func ScreenshotKey(runID int64, domain, locale, timestamp string) string {
	return fmt.Sprintf("BI/scraper_screenshots/run_%d/%s_%s_%s.png", runID, domain, locale, timestamp)
}

// RecordImageKey builds the key for a resolved record image.
func RecordImageKey(alias, ext string) string {
	return fmt.Sprintf("BI/record_images/%s.%s", alias, ext)
}
