// Package media downloads image attachments referenced by URL in send
// requests.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxImageBytes = 10 << 20

// Image is a downloaded attachment ready to hand to the transport.
type Image struct {
	Data     []byte
	MimeType string
}

type Fetcher struct {
	http *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{http: &http.Client{Timeout: timeout}}
}

// Fetch downloads the image at rawURL. A scheme-less URL is tried over
// https first, then plain http.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return f.fetch(ctx, rawURL)
	}

	img, err := f.fetch(ctx, "https://"+rawURL)
	if err == nil {
		return img, nil
	}
	img, err2 := f.fetch(ctx, "http://"+rawURL)
	if err2 != nil {
		return nil, fmt.Errorf("image fetch failed over https (%v) and http: %w", err, err2)
	}
	return img, nil
}

func (f *Fetcher) fetch(ctx context.Context, u string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch %s: unexpected status %d", u, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image at %s exceeds %d bytes", u, maxImageBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image at %s is empty", u)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}

	return &Image{Data: data, MimeType: mime}, nil
}
