package generators

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/h2non/filetype"
)

// headerBytes covers every signature filetype knows about.
const headerBytes = 512

// allowedImageTypes lists the MIME types a generated post may point at.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageVerifier fetches the head of an image URL and checks its magic number,
// so a post never goes out pointing at an HTML error page.
type ImageVerifier struct {
	client *http.Client
}

func NewImageVerifier(client *http.Client) *ImageVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ImageVerifier{client: client}
}

func (v *ImageVerifier) Verify(ctx context.Context, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("image check: create request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", headerBytes-1))

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("image check: fetch %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("image check: %s returned status %d", imageURL, resp.StatusCode)
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, headerBytes))
	if err != nil {
		return fmt.Errorf("image check: read %s: %w", imageURL, err)
	}

	kind, err := filetype.Match(head)
	if err != nil {
		return fmt.Errorf("image check: detect type: %w", err)
	}
	if !allowedImageTypes[kind.MIME.Value] {
		return fmt.Errorf("image check: %s is not a supported image (detected %q)", imageURL, kind.MIME.Value)
	}
	return nil
}
