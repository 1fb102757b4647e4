package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	_ "golang.org/x/image/tiff" // Register TIFF format decoder, incl. 16-bit gray
)

type cachedImage struct {
	img    image.Image
	format string
}

// ImageCache keeps decoded frames in memory keyed by file path, so repeated
// detection runs on the same exposure skip the decode.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). Full-frame exposures are large; long-running servers should evict
// frames they are done with.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/data/night-01/frame-0042.tif")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Trace img...
//	cache.Evict("/data/night-01/frame-0042.tif")
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cachedImage
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cachedImage),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Parameters:
//   - path: File path to a PNG, JPEG, GIF or TIFF image.
//
// Returns:
//   - image.Image: The decoded image. 16-bit grayscale TIFF and PNG frames
//     decode to *image.Gray16 and keep their full depth for tracing.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// The image is cached using the exact path string provided.
func (c *ImageCache) Load(path string) (image.Image, error) {
	entry, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return entry.img, nil
}

func (c *ImageCache) load(path string) (cachedImage, error) {
	c.mu.RLock()
	if entry, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return entry, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return cachedImage{}, fmt.Errorf("failed to decode image: %w", err)
	}

	entry := cachedImage{img: img, format: format}
	c.mu.Lock()
	c.images[path] = entry
	c.mu.Unlock()

	return entry, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cachedImage)
	c.mu.Unlock()
}

// Evict removes one image from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo describes a loaded frame.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder that read the file: "png", "jpeg", "gif" or
	// "tiff". It comes from the file contents, not the extension.
	Format string `json:"format"`

	// ColorDepth is "8-bit" or "16-bit" per channel.
	ColorDepth string `json:"color_depth"`

	// Grayscale is true for single-channel frames, the usual case for
	// astronomical exposures.
	Grayscale bool `json:"grayscale"`

	// HasAlpha indicates whether the image has an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through cache and describes it.
//
// # Color Depth Detection
//
// Color depth is determined by the decoded image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	entry, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info := &ImageInfo{
		Width:         entry.img.Bounds().Dx(),
		Height:        entry.img.Bounds().Dy(),
		Format:        entry.format,
		ColorDepth:    "8-bit",
		FileSizeBytes: stat.Size(),
	}

	switch entry.img.(type) {
	case *image.Gray:
		info.Grayscale = true
	case *image.Gray16:
		info.Grayscale = true
		info.ColorDepth = "16-bit"
	case *image.RGBA, *image.NRGBA:
		info.HasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		info.HasAlpha = true
		info.ColorDepth = "16-bit"
	}

	return info, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the size of an image, loading it into cache if
// needed.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
