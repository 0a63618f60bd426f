package export

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/detkit/internal/annotation"
	"github.com/ironsheep/detkit/internal/labels"
	"github.com/ironsheep/detkit/internal/logging"
	"github.com/ironsheep/detkit/internal/scan"
)

// File names written by GenerateVOC at the output root.
const (
	TrainListFile = "train_list.txt"
	EvalListFile  = "eval_list.txt"
	LabelListFile = "lable_list.txt"
)

// VOCOptions configures GenerateVOC.
type VOCOptions struct {
	ImageDir        string
	AnnotationDir   string
	Output          string
	TrainRatio      float64
	ImageExtensions []string

	Rand   *rand.Rand
	Logger logging.Logger
}

// VOCResult summarizes a generated VOC dataset.
type VOCResult struct {
	OutputDir string   `json:"output_dir"`
	Train     int      `json:"train"`
	Eval      int      `json:"eval"`
	Classes   []string `json:"classes"`
}

// GenerateVOC copies paired images and annotations into
// <Output>/VOCDataset/{JPEGImages,Annotations}/ and writes the train, eval
// and label lists at <Output>. Pairs whose annotation does not parse are left
// out.
func GenerateVOC(opts VOCOptions) (*VOCResult, error) {
	if strings.TrimSpace(opts.Output) == "" {
		return nil, ErrNoOutput
	}
	if opts.TrainRatio < 0 || opts.TrainRatio > 1 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidRatio, opts.TrainRatio)
	}
	log := logging.OrDiscard(opts.Logger)
	start := time.Now()
	log.Infof("starting VOC dataset generation")

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

	vocDir := filepath.Join(opts.Output, "VOCDataset")
	imgDir := filepath.Join(vocDir, "JPEGImages")
	annoDir := filepath.Join(vocDir, "Annotations")
	if err := mkdirs(imgDir, annoDir); err != nil {
		return nil, err
	}

	discovery := labels.NewDiscovery()
	parseOpts := annotation.Options{Logger: log, Classes: discovery}

	lines := make([]string, 0, len(pairs))
	prog := newProgress(log, "copied pairs", len(pairs))
	for i, p := range pairs {
		if _, err := annotation.ParseFile(p.AnnotationPath, parseOpts); err != nil {
			log.Warnf("skipping %s: %v", p.ImageName(), err)
			prog.done(i + 1)
			continue
		}
		if err := copyFile(p.ImagePath, filepath.Join(imgDir, p.ImageName())); err != nil {
			return nil, err
		}
		if err := copyFile(p.AnnotationPath, filepath.Join(annoDir, p.AnnotationName())); err != nil {
			return nil, err
		}
		lines = append(lines, listLine(p))
		prog.done(i + 1)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no usable image/annotation pairs in %s", opts.AnnotationDir)
	}

	train, eval, err := Split(lines, opts.TrainRatio, opts.Rand)
	if err != nil {
		return nil, err
	}
	if err := writeLines(filepath.Join(opts.Output, TrainListFile), train); err != nil {
		return nil, err
	}
	if err := writeLines(filepath.Join(opts.Output, EvalListFile), eval); err != nil {
		return nil, err
	}

	reg := discovery.Finalize()
	labelData, _ := reg.MarshalText()
	if err := writeFileAtomic(filepath.Join(opts.Output, LabelListFile), labelData); err != nil {
		return nil, err
	}

	log.Infof("train: %d samples, eval: %d samples, %d classes", len(train), len(eval), reg.Len())
	log.Infof("output tree:\n|- %s\n\t|- VOCDataset\n\t\t|- JPEGImages\n\t\t|- Annotations\n\t|- %s\n\t|- %s\n\t|- %s",
		opts.Output, TrainListFile, EvalListFile, LabelListFile)
	log.Infof("generation took %.2fs", time.Since(start).Seconds())

	return &VOCResult{
		OutputDir: opts.Output,
		Train:     len(train),
		Eval:      len(eval),
		Classes:   reg.Names(),
	}, nil
}

func listLine(p scan.ImagePair) string {
	return "JPEGImages/" + p.ImageName() + " Annotations/" + p.AnnotationName()
}

func writeLines(path string, lines []string) error {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}
