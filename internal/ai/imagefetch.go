package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxImageBytes caps downloaded product images. The Messages API rejects
// images over 5MB anyway.
const maxImageBytes = 5 << 20

// Getter is the HTTP surface the image fetcher depends on.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// ImageFetcher downloads product images and encodes them for the Messages
// API. It sits behind a circuit breaker since image fetching is best-effort.
type ImageFetcher struct {
	http Getter
}

func NewImageFetcher(getter Getter) *ImageFetcher {
	return &ImageFetcher{http: getter}
}

// Fetch downloads the image at url and returns it base64-encoded with its
// media type.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) (*ImageData, error) {
	resp, err := f.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	mediaType := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("fetch image: unexpected content type %q", mediaType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("fetch image: exceeds %d bytes", maxImageBytes)
	}

	return &ImageData{
		MediaType:  mediaType,
		Base64Data: base64.StdEncoding.EncodeToString(data),
	}, nil
}
