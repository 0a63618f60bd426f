package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type object struct {
	name                   string
	xmin, ymin, xmax, ymax int
}

func vocXML(w, h int, objs ...object) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<annotation><size><width>%d</width><height>%d</height></size>", w, h)
	for _, o := range objs {
		fmt.Fprintf(&b, "<object><name>%s</name><difficult>0</difficult><bndbox><xmin>%d</xmin><ymin>%d</ymin><xmax>%d</xmax><ymax>%d</ymax></bndbox></object>",
			o.name, o.xmin, o.ymin, o.xmax, o.ymax)
	}
	b.WriteString("</annotation>")
	return b.String()
}

// writePNG writes a w x h image with a gray gradient.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// rawDataset writes a flat image directory and a flat annotation directory.
// Every annotation gets a 64x48 PNG of the same basename.
func rawDataset(t *testing.T, annotations map[string]string) (imgDir, annoDir string) {
	t.Helper()
	root := t.TempDir()
	imgDir = filepath.Join(root, "images")
	annoDir = filepath.Join(root, "annotations")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(annoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, xml := range annotations {
		writePNG(t, filepath.Join(imgDir, name+".png"), 64, 48)
		if err := os.WriteFile(filepath.Join(annoDir, name+".xml"), []byte(xml), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return imgDir, annoDir
}

func standardAnnotations() map[string]string {
	return map[string]string{
		"img0": vocXML(64, 48, object{"dog", 1, 1, 30, 30}, object{"cat", 10, 5, 40, 40}),
		"img1": vocXML(64, 48, object{"cat", 0, 0, 20, 20}),
		"img2": vocXML(64, 48, object{"dog", 5, 5, 60, 47}, object{"bird", 2, 2, 9, 9}, object{"dog", 30, 30, 50, 40}),
		"img3": vocXML(64, 48),
		"img4": "<annotation><object><name>dog</name></object></annotation>",
		"img5": vocXML(64, 48, object{"bird", -5, 10, 99, 200}),
	}
}
