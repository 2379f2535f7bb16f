package images

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// download guards: source sites occasionally return HTML error pages or
// oversized assets behind image URLs
const (
	maxImageBytes   = 5 << 20
	downloadTimeout = 20 * time.Second
)

// Downloader fetches card images from source sites
type Downloader struct {
	client *resty.Client
}

// NewDownloader creates an image downloader
func NewDownloader() *Downloader {
	client := resty.New().
		SetTimeout(downloadTimeout).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36").
		SetHeader("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	return &Downloader{client: client}
}

// Download fetches an image URL and returns its bytes and content type.
// Non-image responses and oversized bodies are rejected.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := d.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, "", fmt.Errorf("image download returned status %d", resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("unexpected image content type %q", contentType)
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, "", fmt.Errorf("empty image body")
	}
	if len(body) > maxImageBytes {
		return nil, "", fmt.Errorf("image too large: %d bytes", len(body))
	}

	return body, contentType, nil
}
