package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ironsheep/detkit/internal/annotation"
	"github.com/ironsheep/detkit/internal/labels"
	"github.com/ironsheep/detkit/internal/logging"
)

// ErrNoSamples is returned when assembly leaves no usable sample.
var ErrNoSamples = errors.New("dataset has no samples")

// Entry is a parsed annotation together with the image it describes.
type Entry struct {
	ImagePath      string
	AnnotationPath string
	Record         *annotation.Record
}

// Assembler turns parsed entries into samples.
type Assembler struct {
	// Registry resolves class names to ids. Required.
	Registry *labels.Registry

	// SampleLimit caps the number of entries used when > 0.
	SampleLimit int

	// AllowEmpty keeps images without boxes. With EmptyRatio in [0,1) only
	// floor(withObjects*EmptyRatio) of them are drawn; any other ratio keeps
	// all of them.
	AllowEmpty bool
	EmptyRatio float64

	// Rand drives empty-sample selection. Nil uses a time-seeded source.
	Rand *rand.Rand

	Logger logging.Logger
}

// Assemble builds the final sample list. Image ids are assigned by position
// after empty samples are appended.
func (a *Assembler) Assemble(entries []Entry) ([]Sample, error) {
	log := logging.OrDiscard(a.Logger)
	if a.Registry == nil {
		return nil, errors.New("assembler has no class registry")
	}

	if a.SampleLimit > 0 && len(entries) > a.SampleLimit {
		entries = entries[:a.SampleLimit]
	}

	var withObjects, empty []Sample
	for _, e := range entries {
		s, err := a.buildSample(e)
		if err != nil {
			return nil, err
		}
		if s.NumObjects() == 0 {
			empty = append(empty, s)
		} else {
			withObjects = append(withObjects, s)
		}
	}
	log.Infof("parsed %d samples: %d with objects, %d without", len(entries), len(withObjects), len(empty))

	samples := withObjects
	if a.AllowEmpty && len(empty) > 0 {
		rng := a.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		picked := sampleEmpty(empty, len(withObjects), a.EmptyRatio, rng)
		log.Infof("adding %d of %d empty samples", len(picked), len(empty))
		samples = append(samples, picked...)
	}

	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	for i := range samples {
		samples[i].ImageID = i
	}
	log.Infof("collected %d samples", len(samples))
	return samples, nil
}

func (a *Assembler) buildSample(e Entry) (Sample, error) {
	rec := e.Record
	n := len(rec.Boxes)
	s := Sample{
		ImagePath:      e.ImagePath,
		AnnotationPath: e.AnnotationPath,
		Width:          rec.Width,
		Height:         rec.Height,
		Boxes:          make([][4]float64, 0, n),
		Classes:        make([]int, 0, n),
		Scores:         make([]float64, 0, n),
		Difficult:      make([]int, 0, n),
	}
	for _, b := range rec.Boxes {
		id, err := a.Registry.ID(b.ClassName)
		if err != nil {
			return Sample{}, fmt.Errorf("%s: %w", e.AnnotationPath, err)
		}
		s.Boxes = append(s.Boxes, [4]float64{b.X1, b.Y1, b.X2, b.Y2})
		s.Classes = append(s.Classes, id)
		s.Scores = append(s.Scores, 1.0)
		s.Difficult = append(s.Difficult, b.Difficult)
	}
	return s, nil
}

// sampleEmpty draws min(len(empty), floor(withObjects*ratio)) samples without
// replacement. A ratio outside [0,1) returns empty unchanged.
func sampleEmpty(empty []Sample, withObjects int, ratio float64, rng *rand.Rand) []Sample {
	if ratio < 0 || ratio >= 1 {
		return empty
	}
	k := int(math.Floor(float64(withObjects) * ratio))
	if k > len(empty) {
		k = len(empty)
	}
	picked := make([]Sample, 0, k)
	for _, idx := range rng.Perm(len(empty))[:k] {
		picked = append(picked, empty[idx])
	}
	return picked
}
