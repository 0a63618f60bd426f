package scan

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
}

func newDirs(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	imgDir := filepath.Join(root, "images")
	annoDir := filepath.Join(root, "annotations")
	for _, d := range []string{imgDir, annoDir} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return imgDir, annoDir
}

func TestScan_PairsByBasename(t *testing.T) {
	imgDir, annoDir := newDirs(t)
	touch(t, imgDir, "a.jpg", "b.PNG", "c.bmp", "d.gif", "e.jpeg", "notes.txt")
	touch(t, annoDir, "a.xml", "b.XML", "c.xml", "d.xml", "readme.md")

	s := &Scanner{ImageDir: imgDir, AnnotationDir: annoDir}
	pairs, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []string{"a.jpg", "b.PNG", "c.bmp"}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d: %+v", len(pairs), len(want), pairs)
	}
	for i, p := range pairs {
		if p.SequenceID != i {
			t.Errorf("pair %d sequence id = %d", i, p.SequenceID)
		}
		if p.ImageName() != want[i] {
			t.Errorf("pair %d image = %s, want %s", i, p.ImageName(), want[i])
		}
		if basename(p.AnnotationName()) != basename(p.ImageName()) {
			t.Errorf("pair %d mismatched: %s / %s", i, p.ImageName(), p.AnnotationName())
		}
	}
}

func TestScan_AnnotationConsumedOnce(t *testing.T) {
	imgDir, annoDir := newDirs(t)
	touch(t, imgDir, "x.jpg", "x.png")
	touch(t, annoDir, "x.xml")

	s := &Scanner{ImageDir: imgDir, AnnotationDir: annoDir}
	pairs, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].ImageName() != "x.jpg" {
		t.Errorf("first match should win, got %s", pairs[0].ImageName())
	}
}

func TestScan_Idempotent(t *testing.T) {
	imgDir, annoDir := newDirs(t)
	touch(t, imgDir, "1.jpg", "2.jpg", "3.jpg")
	touch(t, annoDir, "1.xml", "3.xml")

	s := &Scanner{ImageDir: imgDir, AnnotationDir: annoDir}
	first, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated scans differ:\n%v\n%v", first, second)
	}
}

func TestScan_CustomExtensions(t *testing.T) {
	imgDir, annoDir := newDirs(t)
	touch(t, imgDir, "a.jpg", "b.tif")
	touch(t, annoDir, "a.xml", "b.xml")

	s := &Scanner{ImageDir: imgDir, AnnotationDir: annoDir, ImageExtensions: []string{".TIF"}}
	pairs, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || pairs[0].ImageName() != "b.tif" {
		t.Errorf("pairs = %+v, want only b.tif", pairs)
	}
}

func TestScan_MissingDirectory(t *testing.T) {
	imgDir, _ := newDirs(t)
	s := &Scanner{ImageDir: imgDir, AnnotationDir: filepath.Join(imgDir, "nope")}
	if _, err := s.Scan(); !errors.Is(err, ErrDirNotFound) {
		t.Errorf("Scan error = %v, want ErrDirNotFound", err)
	}
}

func TestExtensionFilter(t *testing.T) {
	f := NewExtensionFilter(nil)
	tests := []struct {
		name string
		want bool
	}{
		{"a.jpg", true},
		{"a.JPG", true},
		{"a.Jpeg", true},
		{"a.png", true},
		{"a.bmp", true},
		{"a.gif", false},
		{"jpg", false},
		{"a.tar.png", true},
	}
	for _, tt := range tests {
		if got := f.Match(tt.name); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDefaultImageExtensions_NotShared(t *testing.T) {
	f := NewExtensionFilter([]string{"tif"})
	if f.Match("a.jpg") {
		t.Error("custom filter should not include defaults")
	}
	if NewExtensionFilter(nil).Match("a.tif") {
		t.Error("default filter was modified by a custom filter")
	}
}

func TestReadList(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "JPEGImages"), 0o755)
	os.MkdirAll(filepath.Join(root, "Annotations"), 0o755)
	touch(t, filepath.Join(root, "JPEGImages"), "a.jpg", "b.jpg")
	touch(t, filepath.Join(root, "Annotations"), "a.xml")

	list := filepath.Join(root, "train_list.txt")
	content := "JPEGImages/a.jpg Annotations/a.xml\n" +
		"\n" +
		"JPEGImages/b.jpg Annotations/b.xml\n" +
		"JPEGImages/c.jpg Annotations/c.xml\n" +
		"malformed-line\n"
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	pairs, err := ReadList(list, root, nil)
	if err != nil {
		t.Fatalf("ReadList failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1: %+v", len(pairs), pairs)
	}
	if pairs[0].ImagePath != filepath.Join(root, "JPEGImages", "a.jpg") {
		t.Errorf("image path = %s", pairs[0].ImagePath)
	}

	if _, err := ReadList(filepath.Join(root, "missing.txt"), root, nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadList missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.png", "a.jpg", "c.txt")
	os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755)

	images, err := ListImages(dir, NewExtensionFilter(nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.png")}
	if !reflect.DeepEqual(images, want) {
		t.Errorf("ListImages = %v, want %v", images, want)
	}
}
