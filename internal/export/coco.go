package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/detkit/internal/annotation"
	"github.com/ironsheep/detkit/internal/dataset"
	"github.com/ironsheep/detkit/internal/labels"
	"github.com/ironsheep/detkit/internal/logging"
	"github.com/ironsheep/detkit/internal/scan"
)

// ErrNoOutput is returned when no output directory is given.
var ErrNoOutput = errors.New("output directory must be set")

// BBoxFormat selects the layout of annotations[].bbox.
type BBoxFormat string

const (
	// BBoxXYXY writes [x1, y1, x2, y2].
	BBoxXYXY BBoxFormat = "xyxy"
	// BBoxXYWH writes [x, y, width, height].
	BBoxXYWH BBoxFormat = "xywh"
)

// ParseBBoxFormat accepts "xyxy", "xywh" or "" (xyxy).
func ParseBBoxFormat(s string) (BBoxFormat, error) {
	switch BBoxFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", BBoxXYXY:
		return BBoxXYXY, nil
	case BBoxXYWH:
		return BBoxXYWH, nil
	}
	return "", fmt.Errorf("unknown bbox format %q (want xyxy or xywh)", s)
}

// Document is a COCO-style detection annotation file.
type Document struct {
	Info        Info         `json:"info"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// Info describes where a document came from.
type Info struct {
	Description string `json:"description"`
	Version     string `json:"version"`
	Year        int    `json:"year"`
	DateCreated string `json:"date_created"`
}

// Image is one entry of Document.Images.
type Image struct {
	ID       int     `json:"id"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FileName string  `json:"file_name"`
}

// Annotation is one box of Document.Annotations.
type Annotation struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	Segmentation [][]float64 `json:"segmentation"`
	Area         float64     `json:"area"`
	BBox         [4]float64  `json:"bbox"`
	IsCrowd      int         `json:"iscrowd"`
}

// Category is one class of Document.Categories.
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// numbered pairs a sample with the id of its first annotation.
type numbered struct {
	sample    dataset.Sample
	firstAnno int
}

// numberAnnotations assigns annotation ids sequentially across all samples.
func numberAnnotations(samples []dataset.Sample) []numbered {
	out := make([]numbered, len(samples))
	next := 0
	for i, s := range samples {
		out[i] = numbered{sample: s, firstAnno: next}
		next += s.NumObjects()
	}
	return out
}

func newDocument(reg *labels.Registry, now time.Time) *Document {
	doc := &Document{
		Info: Info{
			Description: "converted from Pascal VOC",
			Version:     "1.0",
			Year:        now.Year(),
			DateCreated: now.Format("2006-01-02 15:04:05"),
		},
		Images:      []Image{},
		Annotations: []Annotation{},
		Categories:  make([]Category, 0, reg.Len()),
	}
	for id, name := range reg.Names() {
		doc.Categories = append(doc.Categories, Category{ID: id, Name: name, Supercategory: "object"})
	}
	return doc
}

func (d *Document) add(n numbered, format BBoxFormat, reg *labels.Registry) error {
	s := n.sample
	d.Images = append(d.Images, Image{
		ID:       s.ImageID,
		Width:    s.Width,
		Height:   s.Height,
		FileName: filepath.Base(s.ImagePath),
	})
	for i, b := range s.Boxes {
		if _, ok := reg.Name(s.Classes[i]); !ok {
			return fmt.Errorf("%w: id %d in %s", labels.ErrUnknownClass, s.Classes[i], s.ImagePath)
		}
		bbox := b
		if format == BBoxXYWH {
			bbox = [4]float64{b[0], b[1], b[2] - b[0], b[3] - b[1]}
		}
		d.Annotations = append(d.Annotations, Annotation{
			ID:           n.firstAnno + i,
			ImageID:      s.ImageID,
			CategoryID:   s.Classes[i],
			Segmentation: [][]float64{},
			Area:         (b[2] - b[0]) * (b[3] - b[1]),
			BBox:         bbox,
			IsCrowd:      0,
		})
	}
	return nil
}

// BuildDocuments numbers annotations over samples, splits them by ratio and
// returns one self-contained document per split.
func BuildDocuments(samples []dataset.Sample, reg *labels.Registry, ratio float64, format BBoxFormat, rng *rand.Rand) (train, eval *Document, err error) {
	trainSet, evalSet, err := Split(numberAnnotations(samples), ratio, rng)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	train = newDocument(reg, now)
	for _, n := range trainSet {
		if err := train.add(n, format, reg); err != nil {
			return nil, nil, err
		}
	}
	eval = newDocument(reg, now)
	for _, n := range evalSet {
		if err := eval.add(n, format, reg); err != nil {
			return nil, nil, err
		}
	}
	return train, eval, nil
}

// COCOOptions configures VOCToCOCO.
type COCOOptions struct {
	ImageDir      string
	AnnotationDir string
	Output        string

	// LabelList fixes class ids. Empty means first-seen order.
	LabelList string

	TrainRatio      float64
	BBoxFormat      BBoxFormat
	ImageExtensions []string
	SampleLimit     int
	AllowEmpty      bool
	EmptyRatio      float64

	Rand   *rand.Rand
	Logger logging.Logger
}

// COCOResult summarizes a conversion.
type COCOResult struct {
	OutputDir        string   `json:"output_dir"`
	TrainImages      int      `json:"train_images"`
	TrainAnnotations int      `json:"train_annotations"`
	EvalImages       int      `json:"eval_images"`
	EvalAnnotations  int      `json:"eval_annotations"`
	Classes          []string `json:"classes"`
}

// VOCToCOCO converts a flat image directory and a flat VOC annotation
// directory into <Output>/COCODataset/{train.json,eval.json,JPEGImages/}.
func VOCToCOCO(opts COCOOptions) (*COCOResult, error) {
	if strings.TrimSpace(opts.Output) == "" {
		return nil, ErrNoOutput
	}
	if opts.TrainRatio < 0 || opts.TrainRatio > 1 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidRatio, opts.TrainRatio)
	}
	format, err := ParseBBoxFormat(string(opts.BBoxFormat))
	if err != nil {
		return nil, err
	}
	log := logging.OrDiscard(opts.Logger)
	rng := opts.Rand
	if rng == nil {
		rng = NewRand(0)
	}

	start := time.Now()
	log.Infof("starting VOC to COCO conversion")

	scanner := &scan.Scanner{
		ImageDir:        opts.ImageDir,
		AnnotationDir:   opts.AnnotationDir,
		ImageExtensions: opts.ImageExtensions,
		Logger:          log,
	}
	pairs, err := scanner.Scan()
	if err != nil {
		return nil, err
	}
	log.Infof("found %d image/annotation pairs", len(pairs))

	reg, entries, err := parsePairs(pairs, opts.LabelList, opts.SampleLimit, log)
	if err != nil {
		return nil, err
	}

	asm := &dataset.Assembler{
		Registry:    reg,
		SampleLimit: opts.SampleLimit,
		AllowEmpty:  opts.AllowEmpty,
		EmptyRatio:  opts.EmptyRatio,
		Rand:        rng,
		Logger:      log,
	}
	samples, err := asm.Assemble(entries)
	if err != nil {
		return nil, err
	}

	root := filepath.Join(opts.Output, "COCODataset")
	imgDir := filepath.Join(root, "JPEGImages")
	if err := mkdirs(imgDir); err != nil {
		return nil, err
	}
	prog := newProgress(log, "copied images", len(samples))
	for i, s := range samples {
		if err := copyFile(s.ImagePath, filepath.Join(imgDir, filepath.Base(s.ImagePath))); err != nil {
			return nil, err
		}
		prog.done(i + 1)
	}

	train, eval, err := BuildDocuments(samples, reg, opts.TrainRatio, format, rng)
	if err != nil {
		return nil, err
	}
	for name, doc := range map[string]*Document{"train.json": train, "eval.json": eval} {
		data, err := json.MarshalIndent(doc, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		if err := writeFileAtomic(filepath.Join(root, name), data); err != nil {
			return nil, err
		}
	}

	res := &COCOResult{
		OutputDir:        root,
		TrainImages:      len(train.Images),
		TrainAnnotations: len(train.Annotations),
		EvalImages:       len(eval.Images),
		EvalAnnotations:  len(eval.Annotations),
		Classes:          reg.Names(),
	}
	log.Infof("train: %d images, %d boxes", res.TrainImages, res.TrainAnnotations)
	log.Infof("eval: %d images, %d boxes", res.EvalImages, res.EvalAnnotations)
	log.Infof("output tree:\n|- %s\n\t|- JPEGImages\n\t|- train.json\n\t|- eval.json", root)
	log.Infof("conversion took %.2fs", time.Since(start).Seconds())
	return res, nil
}

// parsePairs parses annotations in order, skipping unreadable ones, until
// limit entries are accepted (limit <= 0 parses all). It returns the class
// registry from labelList or from first-seen order over the parsed entries.
func parsePairs(pairs []scan.ImagePair, labelList string, limit int, log logging.Logger) (*labels.Registry, []dataset.Entry, error) {
	var (
		reg       *labels.Registry
		discovery *labels.Discovery
	)
	opts := annotation.Options{Logger: log}
	if labelList != "" {
		r, err := labels.Load(labelList)
		if err != nil {
			return nil, nil, err
		}
		reg = r
	} else {
		discovery = labels.NewDiscovery()
		opts.Classes = discovery
	}

	entries := make([]dataset.Entry, 0, len(pairs))
	prog := newProgress(log, "parsed annotations", len(pairs))
	for i, p := range pairs {
		rec, err := annotation.ParseFile(p.AnnotationPath, opts)
		if err != nil {
			log.Warnf("skipping %s: %v", p.ImageName(), err)
		} else {
			entries = append(entries, dataset.Entry{ImagePath: p.ImagePath, AnnotationPath: p.AnnotationPath, Record: rec})
		}
		prog.done(i + 1)
		if limit > 0 && len(entries) >= limit {
			log.Infof("sample limit %d reached after %d of %d annotations", limit, i+1, len(pairs))
			break
		}
	}

	if discovery != nil {
		reg = discovery.Finalize()
	}
	log.Infof("%d classes: %s", reg.Len(), strings.Join(reg.Names(), ", "))
	return reg, entries, nil
}
