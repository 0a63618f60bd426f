package visualize

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// JPEGQuality is used when Save writes .jpg/.jpeg files.
const JPEGQuality = 95

// Save encodes img to path, choosing the format from the extension
// (.png, .jpg, .jpeg or .bmp).
func Save(path string, img image.Image) error {
	var enc imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		enc = imgio.PNGEncoder()
	case ".jpg", ".jpeg":
		enc = imgio.JPEGEncoder(JPEGQuality)
	case ".bmp":
		enc = imgio.BMPEncoder()
	default:
		return fmt.Errorf("unsupported output format %q (want .png, .jpg or .bmp)", filepath.Ext(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// Fit scales img down so neither side exceeds maxSide, keeping the aspect
// ratio. Images already small enough, or maxSide <= 0, are returned as is.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

// Render loads imagePath through cache, draws dets on it and saves the
// result to out.
//
// Parameters:
//   - cache: decoded source images; Render leaves the image in it
//   - dets: detections in source pixel coordinates
//   - opts: score threshold and class labels
//   - out: output path; its extension picks the encoder
//   - maxSide: when > 0, the drawn image is shrunk to fit maxSide x maxSide
//
// Returns the bounds of the saved image.
func Render(cache *ImageCache, imagePath string, dets []Detection, opts Options, out string, maxSide int) (image.Rectangle, error) {
	img, err := cache.Load(imagePath)
	if err != nil {
		return image.Rectangle{}, err
	}
	drawn := Fit(DrawDetections(img, dets, opts), maxSide)
	if err := Save(out, drawn); err != nil {
		return image.Rectangle{}, err
	}
	return drawn.Bounds(), nil
}
