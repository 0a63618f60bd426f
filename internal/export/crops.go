package export

import (
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/detkit/internal/dataset"
	"github.com/ironsheep/detkit/internal/labels"
	"github.com/ironsheep/detkit/internal/logging"
)

// CropOptions configures Crops.
type CropOptions struct {
	OutDir string

	// Size resizes every patch to Size x Size when > 0.
	Size int

	// Registry names the per-class subdirectories. Nil uses class ids.
	Registry *labels.Registry

	Logger logging.Logger
}

// Crops writes every ground-truth box of ds as a PNG patch.
//
// Parameters:
//   - ds: a parsed dataset; samples without boxes are skipped
//   - opts.OutDir: root of the output; patches go to OutDir/<class>/<image>_<n>.png
//   - opts.Size: when > 0, each patch is resized to Size x Size
//   - opts.Registry: names the class directories; nil uses class ids
//
// Returns the number of patches written. Images that cannot be opened and
// boxes outside their image are logged and skipped; write errors stop the
// run and return the count so far.
func Crops(ds dataset.Dataset, opts CropOptions) (int, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return 0, ErrNoOutput
	}
	log := logging.OrDiscard(opts.Logger)

	written := 0
	prog := newProgress(log, "cropped images", ds.Len())
	for i := 0; i < ds.Len(); i++ {
		s, err := ds.Get(i)
		if err != nil {
			return written, err
		}
		if s.NumObjects() == 0 {
			prog.done(i + 1)
			continue
		}

		img, err := imaging.Open(s.ImagePath)
		if err != nil {
			log.Warnf("skipping %s: %v", s.ImagePath, err)
			prog.done(i + 1)
			continue
		}

		stem := strings.TrimSuffix(filepath.Base(s.ImagePath), filepath.Ext(s.ImagePath))
		for j, box := range s.Boxes {
			rect := boxRect(box).Intersect(img.Bounds())
			if rect.Empty() {
				log.Warnf("box %d of %s lies outside the image", j, s.ImagePath)
				continue
			}
			patch := imaging.Crop(img, rect)
			if opts.Size > 0 {
				patch = imaging.Resize(patch, opts.Size, opts.Size, imaging.Lanczos)
			}

			dir := filepath.Join(opts.OutDir, classDir(opts.Registry, s.Classes[j]))
			if err := mkdirs(dir); err != nil {
				return written, err
			}
			path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", stem, j))
			if err := imaging.Save(patch, path); err != nil {
				return written, fmt.Errorf("failed to save %s: %w", path, err)
			}
			written++
		}
		prog.done(i + 1)
	}
	log.Infof("wrote %d patches to %s", written, opts.OutDir)
	return written, nil
}

// boxRect converts inclusive pixel corners to a half-open rectangle.
func boxRect(b [4]float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(b[0])), int(math.Floor(b[1])),
		int(math.Floor(b[2]))+1, int(math.Floor(b[3]))+1,
	)
}

var separators = strings.NewReplacer("/", "_", `\`, "_")

// classDir names the patch directory of class id. Separators in the class
// name become underscores. Names that would not give a subdirectory of
// OutDir ("", "." or "..") fall back to the id.
func classDir(reg *labels.Registry, id int) string {
	fallback := strconv.Itoa(id)
	if reg == nil {
		return fallback
	}
	name, ok := reg.Name(id)
	if !ok {
		return fallback
	}
	name = separators.Replace(name)
	if name == "." || !filepath.IsLocal(name) {
		return fallback
	}
	return name
}
