package images

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	baseURL       = "https://image.pollinations.ai/prompt/"
	promptSuffix  = " indian vegetarian dish, food photography, appetizing"
	fetchTimeout  = 15 * time.Second
	maxImageBytes = 5 << 20
)

//go:embed placeholder.svg
var placeholderSVG []byte

// Image is a fetched dish illustration ready to serve.
type Image struct {
	Data        []byte
	ContentType string
}

// URL builds the generation URL for a dish. Anything after a "+" in the
// dish name is noise from combined entries ("Dal + Rice") and is dropped.
func URL(dish string) string {
	return baseURL + promptFor(dish)
}

func promptFor(dish string) string {
	if i := strings.Index(dish, "+"); i >= 0 {
		dish = dish[:i]
	}
	dish = strings.TrimSpace(dish)
	if dish == "" {
		dish = "food"
	}
	return url.PathEscape("delicious " + dish + promptSuffix)
}

// Cache fetches dish images and keeps them for a bounded time so repeated
// views of the same plan do not re-hit the generator.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	client  *http.Client
	base    string

	// now is swapped out in tests.
	now func() time.Time
}

type entry struct {
	img     Image
	fetched time.Time
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		client:  &http.Client{Timeout: fetchTimeout},
		base:    baseURL,
		now:     time.Now,
	}
}

// Fetch returns an image for the dish. It never fails: if the generator is
// unreachable or returns garbage, the caller gets the placeholder and the
// miss is only logged.
func (c *Cache) Fetch(ctx context.Context, dish string) Image {
	key := strings.ToLower(strings.TrimSpace(dish))

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.fetched) < c.ttl {
		c.mu.Unlock()
		return e.img
	}
	c.mu.Unlock()

	img, err := c.download(ctx, c.base+promptFor(dish))
	if err != nil {
		log.Printf("Image fetch for '%s' failed, serving placeholder: %v", dish, err)
		return Placeholder()
	}

	c.mu.Lock()
	c.entries[key] = entry{img: img, fetched: c.now()}
	c.mu.Unlock()
	return img
}

// Clear drops every cached image. Called when a day is regenerated so stale
// dish art does not outlive its menu.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Placeholder returns the built-in fallback image.
func Placeholder() Image {
	return Image{Data: placeholderSVG, ContentType: "image/svg+xml"}
}

func (c *Cache) download(ctx context.Context, imageURL string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Image{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("image generator returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("image generator returned an empty body")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return Image{Data: data, ContentType: contentType}, nil
}
