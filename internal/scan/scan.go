// Package scan pairs image files with their VOC annotation files.
//
// Two layouts are supported. Scanner walks a flat image directory and a flat
// annotation directory and pairs files by basename. ReadList reads a VOC
// list file whose lines name an image and its annotation relative to a
// dataset root.
package scan

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/detkit/internal/logging"
)

// ErrDirNotFound is returned when a required directory does not exist.
var ErrDirNotFound = errors.New("directory not found")

// DefaultImageExtensions are the image types accepted when no allow-list is
// configured. Matching is case-insensitive.
var DefaultImageExtensions = []string{"jpg", "jpeg", "png", "bmp"}

// ImagePair links an image to its annotation file.
type ImagePair struct {
	SequenceID     int    `json:"sequence_id"`
	ImagePath      string `json:"image_path"`
	AnnotationPath string `json:"annotation_path"`
}

// ImageName returns the file name of the image.
func (p ImagePair) ImageName() string { return filepath.Base(p.ImagePath) }

// AnnotationName returns the file name of the annotation.
func (p ImagePair) AnnotationName() string { return filepath.Base(p.AnnotationPath) }

// ExtensionFilter decides whether a file name has an accepted extension.
type ExtensionFilter struct {
	allowed map[string]bool
}

// NewExtensionFilter builds a filter from extensions given with or without a
// leading dot. An empty list selects DefaultImageExtensions.
func NewExtensionFilter(exts []string) ExtensionFilter {
	if len(exts) == 0 {
		exts = DefaultImageExtensions
	}
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return ExtensionFilter{allowed: allowed}
}

// Match reports whether name has an allowed extension.
func (f ExtensionFilter) Match(name string) bool {
	return f.allowed[extension(name)]
}

// Scanner pairs an image directory with an annotation directory.
type Scanner struct {
	ImageDir      string
	AnnotationDir string

	// ImageExtensions overrides DefaultImageExtensions.
	ImageExtensions []string

	Logger logging.Logger
}

// Scan lists both directories (non-recursively) and returns one pair per
// image whose basename matches an annotation. Each annotation is used at most
// once. Images without an annotation are left out.
func (s *Scanner) Scan() ([]ImagePair, error) {
	log := logging.OrDiscard(s.Logger)
	filter := NewExtensionFilter(s.ImageExtensions)

	annoFiles, err := listFiles(s.AnnotationDir)
	if err != nil {
		return nil, err
	}
	imageFiles, err := listFiles(s.ImageDir)
	if err != nil {
		return nil, err
	}

	// basename -> annotation file names, in listing order
	annotations := make(map[string][]string)
	for _, name := range annoFiles {
		if extension(name) != "xml" {
			log.Warnf("annotation file %s is not an xml file, skipped", filepath.Join(s.AnnotationDir, name))
			continue
		}
		base := basename(name)
		annotations[base] = append(annotations[base], name)
	}

	pairs := make([]ImagePair, 0, len(imageFiles))
	for _, name := range imageFiles {
		if !filter.Match(name) {
			log.Warnf("image file %s has an unsupported extension, skipped", filepath.Join(s.ImageDir, name))
			continue
		}
		base := basename(name)
		candidates := annotations[base]
		if len(candidates) == 0 {
			log.Debugf("image file %s has no annotation", name)
			continue
		}
		annotations[base] = candidates[1:]
		pairs = append(pairs, ImagePair{
			SequenceID:     len(pairs),
			ImagePath:      filepath.Join(s.ImageDir, name),
			AnnotationPath: filepath.Join(s.AnnotationDir, candidates[0]),
		})
	}

	return pairs, nil
}

// ReadList reads a VOC list file. Each non-blank line holds an image path and
// an annotation path separated by whitespace, both relative to root. Lines
// that are malformed or reference missing files are skipped with a warning.
func ReadList(listFile, root string, log logging.Logger) ([]ImagePair, error) {
	log = logging.OrDiscard(log)

	f, err := os.Open(listFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("list file %s: %w", listFile, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to open list file: %w", err)
	}
	defer f.Close()

	var pairs []ImagePair
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			log.Warnf("%s:%d: expected \"<image> <annotation>\", got %q", listFile, lineNo, line)
			continue
		}
		imgPath := filepath.Join(root, fields[0])
		annoPath := filepath.Join(root, fields[1])
		if !isFile(imgPath) {
			log.Warnf("image file %s does not exist", imgPath)
			continue
		}
		if !isFile(annoPath) {
			log.Warnf("annotation file %s does not exist", annoPath)
			continue
		}
		pairs = append(pairs, ImagePair{
			SequenceID:     len(pairs),
			ImagePath:      imgPath,
			AnnotationPath: annoPath,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list file: %w", err)
	}
	return pairs, nil
}

// ListImages returns the paths of all files in dir accepted by filter,
// sorted by name.
func ListImages(dir string, filter ExtensionFilter, log logging.Logger) ([]string, error) {
	log = logging.OrDiscard(log)
	names, err := listFiles(dir)
	if err != nil {
		return nil, err
	}
	images := make([]string, 0, len(names))
	for _, name := range names {
		if !filter.Match(name) {
			log.Warnf("image file %s has an unsupported extension, skipped", filepath.Join(dir, name))
			continue
		}
		images = append(images, filepath.Join(dir, name))
	}
	return images, nil
}

// listFiles returns the regular file names in dir in lexical order.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func basename(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
