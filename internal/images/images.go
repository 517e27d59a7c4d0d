package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gnemet/LessonForge/internal/config"
)

const DefaultEndpoint = "https://image.pollinations.ai/prompt/"

// maxImageBytes bounds a single background download.
const maxImageBytes = 20 << 20

var (
	ErrNotImage = errors.New("response is not an image")
	ErrTooLarge = errors.New("image exceeds size limit")
)

// URL builds the request for a keyword. The keyword is path-escaped; the
// service renders the prompt text as-is.
func URL(endpoint, keyword string, width, height int) string {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	q := url.Values{}
	q.Set("width", strconv.Itoa(width))
	q.Set("height", strconv.Itoa(height))
	q.Set("nologo", "true")
	return endpoint + url.PathEscape(keyword) + "?" + q.Encode()
}

// Image is a downloaded background.
type Image struct {
	Data        []byte
	ContentType string
}

// Fetcher downloads keyword images from the configured endpoint.
type Fetcher struct {
	endpoint string
	width    int
	height   int
	client   *http.Client
}

func NewFetcher(cfg config.ImagesConfig) *Fetcher {
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 720
	}
	return &Fetcher{
		endpoint: cfg.Endpoint,
		width:    w,
		height:   h,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (f *Fetcher) URL(keyword string) string {
	return URL(f.endpoint, keyword, f.width, f.height)
}

// Fetch downloads the image for keyword. Any transport failure, non-200 status
// or non-image body is an error.
func (f *Fetcher) Fetch(ctx context.Context, keyword string) (*Image, error) {
	u := f.URL(keyword)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image %q: unexpected status %s", keyword, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image %q: %w", keyword, err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("fetch image %q: %w (%d bytes)", keyword, ErrTooLarge, maxImageBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch image %q: empty body", keyword)
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("fetch image %q: %w (%s)", keyword, ErrNotImage, ct)
	}
	return &Image{Data: data, ContentType: ct}, nil
}

// WithTimeout returns a copy of f whose requests give up after d.
func (f *Fetcher) WithTimeout(d time.Duration) *Fetcher {
	c := *f
	c.client = &http.Client{Timeout: d, Transport: f.client.Transport}
	return &c
}
