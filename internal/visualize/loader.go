package visualize

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	_ "golang.org/x/image/bmp"
)

type cached struct {
	img    image.Image
	format string
}

// ImageCache holds decoded source images keyed by cleaned path. The MCP
// server keeps one cache and each CLI run creates its own; both evict an
// image once it has been drawn.
//
// Entries stay until Evict or Clear. It is safe for concurrent use; when two
// goroutines decode the same path at once, the first stored image wins and
// both callers receive it.
//
//	cache := visualize.NewImageCache()
//	img, err := cache.Load("/data/VOCDataset/JPEGImages/0001.jpg")
type ImageCache struct {
	mu      sync.RWMutex
	entries map[string]cached
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{entries: make(map[string]cached)}
}

// Load returns the image at path, decoding it on first use. PNG, JPEG, GIF
// and BMP are understood. Failed loads are not cached.
func (c *ImageCache) Load(path string) (image.Image, error) {
	key := filepath.Clean(path)
	if e, ok := c.lookup(key); ok {
		return e.img, nil
	}

	e, err := decodeFile(key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[key]; ok {
		return prev.img, nil
	}
	c.entries[key] = e
	return e.img, nil
}

// Format reports the decoder name ("png", "jpeg", ...) of a cached image.
func (c *ImageCache) Format(path string) (string, bool) {
	e, ok := c.lookup(filepath.Clean(path))
	return e.format, ok
}

func (c *ImageCache) lookup(key string) (cached, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func decodeFile(path string) (cached, error) {
	f, err := os.Open(path)
	if err != nil {
		return cached{}, fmt.Errorf("cannot open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return cached{}, fmt.Errorf("cannot decode image %s: %w", path, err)
	}
	return cached{img: img, format: format}, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every cached image.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cached)
	c.mu.Unlock()
}

// Evict drops one image. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, filepath.Clean(path))
	c.mu.Unlock()
}
