package visualize

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/detkit/internal/dataset"
)

// DefaultScoreThreshold hides detections scoring below 0.5.
const DefaultScoreThreshold = 0.5

// Detection is one box with its class and confidence.
type Detection struct {
	ClassID int        `json:"class_id"`
	Score   float64    `json:"score"`
	Box     [4]float64 `json:"box"`
}

// Options controls DrawDetections.
type Options struct {
	// ScoreThreshold skips detections with a lower score.
	ScoreThreshold float64

	// Labels names class ids. Ids without a name are drawn as numbers.
	Labels []string
}

// SampleDetections converts the ground truth of s to detections.
func SampleDetections(s dataset.Sample) []Detection {
	dets := make([]Detection, len(s.Boxes))
	for i, b := range s.Boxes {
		score := 1.0
		if i < len(s.Scores) {
			score = s.Scores[i]
		}
		dets[i] = Detection{ClassID: s.Classes[i], Score: score, Box: b}
	}
	return dets
}

// LineWidth returns the box stroke width for an image of w x h pixels.
func LineWidth(w, h int) int {
	return int(float64(max(w, h))/512 + 1)
}

// Caption formats the text drawn above a detection.
func Caption(d Detection, labels []string) string {
	name := fmt.Sprintf("%d", d.ClassID)
	if d.ClassID >= 0 && d.ClassID < len(labels) {
		name = labels[d.ClassID]
	}
	return fmt.Sprintf("%s-%.2f", name, math.Round(d.Score*100)/100)
}

// DrawDetections returns a copy of img with every detection at or above the
// score threshold outlined in its class color and captioned.
func DrawDetections(img image.Image, dets []Detection, opts Options) *image.RGBA {
	canvas := toCanvas(img)
	b := canvas.Bounds()
	width := LineWidth(b.Dx(), b.Dy())

	gc := draw2dimg.NewGraphicContext(canvas)
	for _, d := range dets {
		if d.Score < opts.ScoreThreshold {
			continue
		}
		c := ClassColor(d.ClassID)
		strokeBox(gc, d.Box, toRGBA(c), width)
		drawCaption(canvas, gc, d.Box, Caption(d, opts.Labels), c)
	}
	return canvas
}

// DrawBoxes returns a copy of img with plain boxes in the first palette
// color.
func DrawBoxes(img image.Image, boxes [][4]float64) *image.RGBA {
	canvas := toCanvas(img)
	b := canvas.Bounds()
	width := LineWidth(b.Dx(), b.Dy())

	gc := draw2dimg.NewGraphicContext(canvas)
	c := toRGBA(ClassColor(0))
	for _, box := range boxes {
		strokeBox(gc, box, c, width)
	}
	return canvas
}

// DrawSample outlines the ground truth of s on img with class captions.
func DrawSample(img image.Image, s dataset.Sample, labels []string) *image.RGBA {
	return DrawDetections(img, SampleDetections(s), Options{Labels: labels})
}

func toCanvas(img image.Image) *image.RGBA {
	canvas := image.NewRGBA(img.Bounds())
	draw.Draw(canvas, canvas.Bounds(), img, img.Bounds().Min, draw.Src)
	return canvas
}

func strokeBox(gc *draw2dimg.GraphicContext, box [4]float64, c color.RGBA, width int) {
	gc.SetStrokeColor(c)
	gc.SetLineWidth(float64(width))
	gc.BeginPath()
	// pixel centers, so a 1px line covers whole pixels
	draw2dkit.Rectangle(gc, math.Floor(box[0])+0.5, math.Floor(box[1])+0.5, math.Floor(box[2])+0.5, math.Floor(box[3])+0.5)
	gc.Stroke()
}

// drawCaption fills a background in the box color just above the box (or
// just inside it when there is no room above) and writes text on it.
func drawCaption(canvas *image.RGBA, gc *draw2dimg.GraphicContext, box [4]float64, text string, bg colorful.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(textColor(bg)),
		Face: face,
	}
	textW := d.MeasureString(text).Ceil()
	textH := face.Height

	x := int(math.Floor(box[0]))
	top := int(math.Floor(box[1])) - textH - 2
	if top < canvas.Bounds().Min.Y {
		top = int(math.Floor(box[1]))
	}

	gc.SetFillColor(toRGBA(bg))
	gc.BeginPath()
	draw2dkit.Rectangle(gc, float64(x), float64(top), float64(x+textW+2), float64(top+textH+2))
	gc.Fill()

	d.Dot = fixed.P(x+1, top+1+face.Ascent)
	d.DrawString(text)
}
