package blobstore

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestLocalStorePutWritesFileAndReturnsURL(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	url, err := store.Put(context.Background(), "BI/record_images/ALIAS-1.jpg", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Fatalf("expected file:// url, got %q", url)
	}

	data, err := os.ReadFile(dir + "/BI/record_images/ALIAS-1.jpg")
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("expected written contents %q, got %q", "image-bytes", data)
	}
}

func TestScreenshotAndRecordImageKeys(t *testing.T) {
	if got := ScreenshotKey(42, "example.com", "en", "2026-07-30_10-00"); got != "BI/scraper_screenshots/run_42/example.com_en_2026-07-30_10-00.png" {
		t.Fatalf("unexpected screenshot key: %q", got)
	}
	if got := RecordImageKey("ALIAS-1", "jpg"); got != "BI/record_images/ALIAS-1.jpg" {
		t.Fatalf("unexpected record image key: %q", got)
	}
}
