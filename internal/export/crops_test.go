package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/detkit/internal/dataset"
	"github.com/ironsheep/detkit/internal/labels"
)

// sliceDataset serves fixed samples.
type sliceDataset struct {
	samples []dataset.Sample
}

func (d *sliceDataset) Parse() error { return nil }
func (d *sliceDataset) Len() int     { return len(d.samples) }
func (d *sliceDataset) Get(i int) (dataset.Sample, error) {
	return d.samples[i].Clone(), nil
}
func (d *sliceDataset) SetTransform(dataset.Transform) {}

func TestCrops(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "scene.png")
	writePNG(t, imgPath, 64, 48)

	ds := &sliceDataset{samples: []dataset.Sample{
		{
			ImagePath: imgPath,
			Boxes:     [][4]float64{{0, 0, 9, 19}, {10, 10, 63, 47}},
			Classes:   []int{0, 1},
		},
		{ImagePath: filepath.Join(dir, "missing.png"), Boxes: [][4]float64{{0, 0, 5, 5}}, Classes: []int{0}},
		{ImagePath: imgPath},
	}}
	out := filepath.Join(dir, "crops")

	n, err := Crops(ds, CropOptions{OutDir: out, Registry: labels.New([]string{"dog", "cat"})})
	if err != nil {
		t.Fatalf("Crops failed: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d patches, want 2", n)
	}

	patch, err := imaging.Open(filepath.Join(out, "dog", "scene_0.png"))
	if err != nil {
		t.Fatalf("dog patch missing: %v", err)
	}
	if b := patch.Bounds(); b.Dx() != 10 || b.Dy() != 20 {
		t.Errorf("patch size = %dx%d, want 10x20", b.Dx(), b.Dy())
	}
	if _, err := os.Stat(filepath.Join(out, "cat", "scene_1.png")); err != nil {
		t.Errorf("cat patch missing: %v", err)
	}
}

func TestCrops_Resize(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "a.png")
	writePNG(t, imgPath, 32, 32)
	ds := &sliceDataset{samples: []dataset.Sample{
		{ImagePath: imgPath, Boxes: [][4]float64{{2, 2, 20, 10}}, Classes: []int{4}},
	}}

	out := filepath.Join(dir, "out")
	if _, err := Crops(ds, CropOptions{OutDir: out, Size: 16}); err != nil {
		t.Fatal(err)
	}
	patch, err := imaging.Open(filepath.Join(out, "4", "a_0.png"))
	if err != nil {
		t.Fatalf("patch named by class id missing: %v", err)
	}
	if b := patch.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("patch size = %dx%d, want 16x16", b.Dx(), b.Dy())
	}
}

func TestCrops_ClassNamesStayInsideOutDir(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "a.png")
	writePNG(t, imgPath, 32, 32)
	ds := &sliceDataset{samples: []dataset.Sample{
		{
			ImagePath: imgPath,
			Boxes:     [][4]float64{{0, 0, 5, 5}, {1, 1, 6, 6}, {2, 2, 7, 7}, {3, 3, 8, 8}},
			Classes:   []int{0, 1, 2, 3},
		},
	}}
	out := filepath.Join(dir, "nested", "crops")
	reg := labels.New([]string{"../escaped", "..", "a/b", "."})

	n, err := Crops(ds, CropOptions{OutDir: out, Registry: reg})
	if err != nil {
		t.Fatalf("Crops failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("wrote %d patches, want 4", n)
	}

	for _, want := range []string{
		filepath.Join(out, ".._escaped", "a_0.png"),
		filepath.Join(out, "1", "a_1.png"),
		filepath.Join(out, "a_b", "a_2.png"),
		filepath.Join(out, "3", "a_3.png"),
	} {
		if _, err := os.Stat(want); err != nil {
			t.Errorf("patch missing: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "nested", "escaped")); !os.IsNotExist(err) {
		t.Errorf("patch directory created outside OutDir (stat err = %v)", err)
	}
}

func TestCrops_NoOutput(t *testing.T) {
	if _, err := Crops(&sliceDataset{}, CropOptions{}); !errors.Is(err, ErrNoOutput) {
		t.Errorf("error = %v, want ErrNoOutput", err)
	}
}
