package attrparse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// ImageFetcher retrieves the raw bytes behind an image URL. The browser
// package's driver wrapper satisfies this so image_link resolution can reuse
// the same session (cookies, proxy) that rendered the page.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HashImage returns the hex-encoded SHA-256 digest of an image's bytes, used
// both to fingerprint a listing's photo and to recognize a dealer's
// placeholder/"no photo available" image across listings.
func HashImage(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ResolveImageLink tries each candidate URL in order, skipping any whose
// hash is a known default/placeholder image, and returns the first real
// photo's URL and hash. Mirrors ImageService.get_record_image: a listing
// with nothing but placeholder photos produces no image at all.
func ResolveImageLink(ctx context.Context, fetcher ImageFetcher, candidates []string, defaultHashes map[string]bool) (link string, hash string, ok bool) {
	for _, url := range candidates {
		data, err := fetcher.Fetch(ctx, url)
		if err != nil || len(data) == 0 {
			continue
		}
		h := HashImage(data)
		if defaultHashes[h] {
			continue
		}
		return url, h, true
	}
	return "", "", false
}
