package annotation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/detkit/internal/logging"
)

var (
	// ErrMissingSize is returned when the annotation has no size element.
	ErrMissingSize = errors.New("annotation has no size element")

	// ErrNegativeSize is returned when width or height is negative.
	ErrNegativeSize = errors.New("annotation has negative image size")

	// ErrInvalidSize is returned when width or height is not a finite number.
	ErrInvalidSize = errors.New("annotation has non-numeric image size")

	errNotFinite = errors.New("not a finite number")
)

// Box is a validated bounding box in pixel coordinates.
type Box struct {
	ClassName string  `json:"class_name"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
	Difficult int     `json:"difficult"`
}

// Area returns (x2-x1)*(y2-y1).
func (b Box) Area() float64 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// Record is the parsed content of one annotation file.
type Record struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Boxes  []Box   `json:"boxes"`
}

// Empty reports whether the record has no valid boxes.
func (r *Record) Empty() bool {
	return len(r.Boxes) == 0
}

// ClassSink observes the class name of every accepted box, in order.
type ClassSink interface {
	Observe(name string)
}

// Options controls parsing side effects.
type Options struct {
	// Logger receives warnings about dropped boxes. Nil discards them.
	Logger logging.Logger

	// Classes, if set, observes every accepted class name.
	Classes ClassSink
}

type vocXML struct {
	XMLName xml.Name    `xml:"annotation"`
	Size    *sizeXML    `xml:"size"`
	Objects []objectXML `xml:"object"`
}

type sizeXML struct {
	Width  string `xml:"width"`
	Height string `xml:"height"`
}

type objectXML struct {
	Name      string     `xml:"name"`
	Difficult *string    `xml:"difficult"`
	BndBox    *bndboxXML `xml:"bndbox"`
}

type bndboxXML struct {
	XMin string `xml:"xmin"`
	YMin string `xml:"ymin"`
	XMax string `xml:"xmax"`
	YMax string `xml:"ymax"`
}

// ParseFile opens and parses the annotation at path.
func ParseFile(path string, opts Options) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation: %w", err)
	}
	defer f.Close()

	rec, err := parse(f, path, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// Parse reads one annotation from r. name identifies the source in warnings.
func Parse(r io.Reader, name string, opts Options) (*Record, error) {
	return parse(r, name, opts)
}

func parse(r io.Reader, name string, opts Options) (*Record, error) {
	log := logging.OrDiscard(opts.Logger)

	var data vocXML
	if err := xml.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode annotation: %w", err)
	}

	if data.Size == nil {
		return nil, ErrMissingSize
	}
	width, errW := parseNumber(data.Size.Width)
	height, errH := parseNumber(data.Size.Height)
	if errW != nil || errH != nil {
		return nil, fmt.Errorf("%w: width=%q height=%q", ErrInvalidSize, data.Size.Width, data.Size.Height)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: width=%g height=%g", ErrNegativeSize, width, height)
	}

	rec := &Record{
		Width:  width,
		Height: height,
		Boxes:  make([]Box, 0, len(data.Objects)),
	}

	for i, obj := range data.Objects {
		className := strings.TrimSpace(obj.Name)
		if className == "" {
			log.Warnf("object %d in %s has no name, skipped", i, name)
			continue
		}
		if obj.BndBox == nil {
			log.Warnf("object %d (%s) in %s has no bndbox, skipped", i, className, name)
			continue
		}

		difficult := 0
		if obj.Difficult != nil {
			v, err := strconv.Atoi(strings.TrimSpace(*obj.Difficult))
			if err != nil {
				log.Warnf("object %d (%s) in %s has difficult=%q, using 0", i, className, name, *obj.Difficult)
			} else {
				difficult = v
			}
		}

		corners, err := parseCorners(obj.BndBox)
		if err != nil {
			log.Warnf("object %d (%s) in %s: %v, skipped", i, className, name, err)
			continue
		}

		box, ok := Clamp(corners, width, height)
		if !ok {
			log.Warnf("bbox [%g, %g, %g, %g] in %s is empty after clamping, skipped",
				box[0], box[1], box[2], box[3], name)
			continue
		}

		rec.Boxes = append(rec.Boxes, Box{
			ClassName: className,
			X1:        box[0],
			Y1:        box[1],
			X2:        box[2],
			Y2:        box[3],
			Difficult: difficult,
		})
		if opts.Classes != nil {
			opts.Classes.Observe(className)
		}
	}

	return rec, nil
}

// Clamp restricts box [x1,y1,x2,y2] to an image of the given size and
// reports whether the result still has positive width and height.
func Clamp(box [4]float64, width, height float64) ([4]float64, bool) {
	x1 := math.Max(box[0], 0)
	y1 := math.Max(box[1], 0)
	x2 := math.Min(width-1, box[2])
	y2 := math.Min(height-1, box[3])
	out := [4]float64{x1, y1, x2, y2}
	return out, x2 > x1 && y2 > y1
}

func parseCorners(b *bndboxXML) ([4]float64, error) {
	var out [4]float64
	for i, s := range []string{b.XMin, b.YMin, b.XMax, b.YMax} {
		v, err := parseNumber(s)
		if err != nil {
			return out, fmt.Errorf("invalid bndbox coordinate %q", s)
		}
		out[i] = v
	}
	return out, nil
}

// parseNumber accepts finite numbers only; ParseFloat alone also takes
// "NaN" and "Inf".
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}
