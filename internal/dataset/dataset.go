package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/ironsheep/detkit/internal/annotation"
	"github.com/ironsheep/detkit/internal/labels"
	"github.com/ironsheep/detkit/internal/logging"
	"github.com/ironsheep/detkit/internal/scan"
)

var (
	// ErrNotParsed is returned by Get before Parse has succeeded.
	ErrNotParsed = errors.New("dataset has not been parsed")

	// ErrAlreadyParsed is returned by a second call to Parse.
	ErrAlreadyParsed = errors.New("dataset has already been parsed")

	// ErrIndexOutOfRange is returned by Get for an invalid index.
	ErrIndexOutOfRange = errors.New("sample index out of range")
)

// Transform post-processes a sample on access. It receives a copy it may
// modify freely.
type Transform func(Sample) (Sample, error)

// Compose chains transforms left to right. Nil entries are skipped.
func Compose(fns ...Transform) Transform {
	return func(s Sample) (Sample, error) {
		var err error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if s, err = fn(s); err != nil {
				return Sample{}, err
			}
		}
		return s, nil
	}
}

// Dataset is an indexable collection of samples.
type Dataset interface {
	Parse() error
	Get(index int) (Sample, error)
	Len() int
	SetTransform(fn Transform)
}

// store holds parsed samples and the transform hook shared by datasets.
type store struct {
	samples   []Sample
	parsed    bool
	transform Transform
}

func (s *store) Get(index int) (Sample, error) {
	if !s.parsed {
		return Sample{}, ErrNotParsed
	}
	if index < 0 || index >= len(s.samples) {
		return Sample{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(s.samples))
	}
	sample := s.samples[index].Clone()
	if s.transform == nil {
		return sample, nil
	}
	return s.transform(sample)
}

func (s *store) Len() int { return len(s.samples) }

func (s *store) SetTransform(fn Transform) { s.transform = fn }

// VOCDataset loads a VOC-layout dataset:
//
//	DatasetDir/
//	  ImageDir/
//	    JPEGImages/...
//	    Annotations/...
//	  AnnoPath    (lines of "<image> <annotation>" relative to ImageDir)
//	  LabelList   (optional, one class per line)
type VOCDataset struct {
	DatasetDir string
	ImageDir   string
	AnnoPath   string

	// LabelList is relative to DatasetDir. Empty means ids are assigned in
	// first-seen order.
	LabelList string

	SampleLimit int
	AllowEmpty  bool
	EmptyRatio  float64

	Rand   *rand.Rand
	Logger logging.Logger

	store
	registry *labels.Registry
}

// Parse reads the list file and every annotation it names.
func (d *VOCDataset) Parse() error {
	if d.parsed {
		return ErrAlreadyParsed
	}
	log := logging.OrDiscard(d.Logger)
	start := time.Now()
	log.Infof("parsing VOC dataset %s", d.DatasetDir)

	var (
		registry  *labels.Registry
		discovery *labels.Discovery
	)
	if d.LabelList != "" {
		r, err := labels.Load(filepath.Join(d.DatasetDir, d.LabelList))
		if err != nil {
			return err
		}
		registry = r
		log.Infof("loaded %d classes from %s", r.Len(), d.LabelList)
	} else {
		discovery = labels.NewDiscovery()
		log.Infof("no label list given, class ids follow first-seen order")
	}

	pairs, err := scan.ReadList(filepath.Join(d.DatasetDir, d.AnnoPath), filepath.Join(d.DatasetDir, d.ImageDir), log)
	if err != nil {
		return err
	}

	opts := annotation.Options{Logger: log}
	if discovery != nil {
		opts.Classes = discovery
	}

	entries := make([]Entry, 0, len(pairs))
	for _, p := range pairs {
		rec, err := annotation.ParseFile(p.AnnotationPath, opts)
		if err != nil {
			log.Warnf("skipping %s: %v", p.ImageName(), err)
			continue
		}
		entries = append(entries, Entry{ImagePath: p.ImagePath, AnnotationPath: p.AnnotationPath, Record: rec})
		if d.SampleLimit > 0 && len(entries) >= d.SampleLimit {
			break
		}
	}

	if discovery != nil {
		registry = discovery.Finalize()
	}

	asm := &Assembler{
		Registry:    registry,
		SampleLimit: d.SampleLimit,
		AllowEmpty:  d.AllowEmpty,
		EmptyRatio:  d.EmptyRatio,
		Rand:        d.Rand,
		Logger:      log,
	}
	samples, err := asm.Assemble(entries)
	if err != nil {
		return err
	}

	d.samples = samples
	d.registry = registry
	d.parsed = true
	log.Infof("parsed VOC dataset in %.2fs", time.Since(start).Seconds())
	return nil
}

// Registry returns the class mapping, or nil before Parse.
func (d *VOCDataset) Registry() *labels.Registry {
	return d.registry
}

// ImageFolder is a dataset of bare images without annotations.
type ImageFolder struct {
	DatasetDir string
	ImageDir   string

	// SampleLimit keeps only the first SampleLimit images when > 0.
	SampleLimit int

	// ImageExtensions overrides scan.DefaultImageExtensions.
	ImageExtensions []string

	Logger logging.Logger

	store
	idToPath map[int]string
}

// Parse lists the supported images in the folder in name order.
func (f *ImageFolder) Parse() error {
	if f.parsed {
		return ErrAlreadyParsed
	}
	log := logging.OrDiscard(f.Logger)
	dir := filepath.Join(f.DatasetDir, f.ImageDir)

	images, err := scan.ListImages(dir, scan.NewExtensionFilter(f.ImageExtensions), log)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("%w: no image files in %s", ErrNoSamples, dir)
	}
	if f.SampleLimit > 0 && len(images) > f.SampleLimit {
		images = images[:f.SampleLimit]
	}

	f.samples = make([]Sample, len(images))
	f.idToPath = make(map[int]string, len(images))
	for i, path := range images {
		f.samples[i] = Sample{ImageID: i, ImagePath: path}
		f.idToPath[i] = path
	}
	f.parsed = true
	log.Infof("image folder %s has %d samples", dir, len(f.samples))
	return nil
}

// IDToPath returns the image id -> path mapping.
func (f *ImageFolder) IDToPath() map[int]string {
	out := make(map[int]string, len(f.idToPath))
	for k, v := range f.idToPath {
		out[k] = v
	}
	return out
}

var (
	_ Dataset = (*VOCDataset)(nil)
	_ Dataset = (*ImageFolder)(nil)
)
