package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/detkit/internal/config"
	"github.com/ironsheep/detkit/internal/dataset"
	"github.com/ironsheep/detkit/internal/export"
	"github.com/ironsheep/detkit/internal/labels"
	"github.com/ironsheep/detkit/internal/logging"
	"github.com/ironsheep/detkit/internal/visualize"
)

var commands = map[string]func(*config.Config, []string) error{
	"voc2coco":  runVOCToCOCO,
	"voc":       runGenerateVOC,
	"inspect":   runInspect,
	"visualize": runVisualize,
	"crops":     runCrops,
	"serve":     runServe,
}

// splitFlags are shared by the commands that read a flat image directory
// and a flat annotation directory.
type splitFlags struct {
	imageDir   *string
	annoDir    *string
	output     *string
	trainRatio *float64
	seed       *int64
	exts       *string
}

func addSplitFlags(flags *flag.FlagSet, cfg *config.Config) *splitFlags {
	return &splitFlags{
		imageDir:   flags.String("image-dir", "", "directory of images (required)"),
		annoDir:    flags.String("anno-dir", "", "directory of VOC XML annotations (required)"),
		output:     flags.String("output", "", "output root (required)"),
		trainRatio: flags.Float64("train-ratio", cfg.TrainRatio, "share of samples in the train split"),
		seed:       flags.Int64("seed", cfg.Seed, "shuffle seed, 0 seeds from the clock"),
		exts:       flags.String("exts", strings.Join(cfg.ImageExtensions, ","), "comma separated image extensions"),
	}
}

func (f *splitFlags) apply(cfg *config.Config) error {
	cfg.TrainRatio = *f.trainRatio
	cfg.Seed = *f.seed
	cfg.ImageExtensions = config.SplitList(*f.exts)
	if *f.imageDir == "" || *f.annoDir == "" {
		return errors.New("-image-dir and -anno-dir are required")
	}
	return nil
}

// datasetFlags locate a VOC list-file dataset.
type datasetFlags struct {
	datasetDir  *string
	imageDir    *string
	annoPath    *string
	labelList   *string
	allowEmpty  *bool
	emptyRatio  *float64
	sampleLimit *int
	seed        *int64
}

func addDatasetFlags(flags *flag.FlagSet, cfg *config.Config) *datasetFlags {
	return &datasetFlags{
		datasetDir:  flags.String("dataset-dir", "", "dataset root (required)"),
		imageDir:    flags.String("image-dir", "", "directory under dataset-dir that list paths are relative to"),
		annoPath:    flags.String("anno-path", "", "list file under dataset-dir (required)"),
		labelList:   flags.String("label-list", "", "label file under dataset-dir; empty numbers classes in first-seen order"),
		allowEmpty:  flags.Bool("allow-empty", cfg.AllowEmpty, "keep images without boxes"),
		emptyRatio:  flags.Float64("empty-ratio", cfg.EmptyRatio, "in [0,1): keep floor(with_boxes*ratio) empty images; otherwise all"),
		sampleLimit: flags.Int("sample-limit", cfg.SampleLimit, "use at most this many annotations, -1 for all"),
		seed:        flags.Int64("seed", cfg.Seed, "seed for empty-image selection, 0 seeds from the clock"),
	}
}

func (f *datasetFlags) apply(cfg *config.Config) {
	cfg.AllowEmpty = *f.allowEmpty
	cfg.EmptyRatio = *f.emptyRatio
	cfg.SampleLimit = *f.sampleLimit
	cfg.Seed = *f.seed
}

func (f *datasetFlags) open(cfg *config.Config, log logging.Logger) (*dataset.VOCDataset, error) {
	if *f.datasetDir == "" || *f.annoPath == "" {
		return nil, errors.New("-dataset-dir and -anno-path are required")
	}
	ds := &dataset.VOCDataset{
		DatasetDir:  *f.datasetDir,
		ImageDir:    *f.imageDir,
		AnnoPath:    *f.annoPath,
		LabelList:   *f.labelList,
		SampleLimit: cfg.SampleLimit,
		AllowEmpty:  cfg.AllowEmpty,
		EmptyRatio:  cfg.EmptyRatio,
		Rand:        export.NewRand(cfg.Seed),
		Logger:      log,
	}
	if err := ds.Parse(); err != nil {
		return nil, err
	}
	return ds, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runVOCToCOCO(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("voc2coco", flag.ExitOnError)
	split := addSplitFlags(flags, cfg)
	labelList := flags.String("label-list", "", "label file fixing class ids; empty numbers classes in first-seen order")
	bboxFormat := flags.String("bbox-format", cfg.BBoxFormat, "bbox layout: xyxy or xywh")
	allowEmpty := flags.Bool("allow-empty", cfg.AllowEmpty, "keep images without boxes")
	emptyRatio := flags.Float64("empty-ratio", cfg.EmptyRatio, "in [0,1): keep floor(with_boxes*ratio) empty images; otherwise all")
	sampleLimit := flags.Int("sample-limit", cfg.SampleLimit, "use at most this many annotations, -1 for all")
	flags.Parse(args)

	if err := split.apply(cfg); err != nil {
		return err
	}
	cfg.BBoxFormat = *bboxFormat
	cfg.AllowEmpty = *allowEmpty
	cfg.EmptyRatio = *emptyRatio
	cfg.SampleLimit = *sampleLimit

	closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	res, err := export.VOCToCOCO(export.COCOOptions{
		ImageDir:        *split.imageDir,
		AnnotationDir:   *split.annoDir,
		Output:          *split.output,
		LabelList:       *labelList,
		TrainRatio:      cfg.TrainRatio,
		BBoxFormat:      export.BBoxFormat(cfg.BBoxFormat),
		ImageExtensions: cfg.ImageExtensions,
		SampleLimit:     cfg.SampleLimit,
		AllowEmpty:      cfg.AllowEmpty,
		EmptyRatio:      cfg.EmptyRatio,
		Rand:            export.NewRand(cfg.Seed),
		Logger:          logging.GetOrCreate("voc2coco"),
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runGenerateVOC(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("voc", flag.ExitOnError)
	split := addSplitFlags(flags, cfg)
	flags.Parse(args)

	if err := split.apply(cfg); err != nil {
		return err
	}
	closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	res, err := export.GenerateVOC(export.VOCOptions{
		ImageDir:        *split.imageDir,
		AnnotationDir:   *split.annoDir,
		Output:          *split.output,
		TrainRatio:      cfg.TrainRatio,
		ImageExtensions: cfg.ImageExtensions,
		Rand:            export.NewRand(cfg.Seed),
		Logger:          logging.GetOrCreate("voc"),
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runInspect(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("inspect", flag.ExitOnError)
	dsFlags := addDatasetFlags(flags, cfg)
	writeLabels := flags.String("write-labels", "", "also write the class list, one name per line, to this file")
	flags.Parse(args)
	dsFlags.apply(cfg)

	closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	log := logging.GetOrCreate("inspect")
	ds, err := dsFlags.open(cfg, log)
	if err != nil {
		return err
	}
	if *writeLabels != "" {
		if err := labels.WriteFile(*writeLabels, ds.Registry()); err != nil {
			return err
		}
		log.Infof("wrote %d class names to %s", ds.Registry().Len(), *writeLabels)
	}

	sum, err := dataset.Summarize(ds, ds.Registry())
	if err != nil {
		return err
	}
	fmt.Printf("samples: %d (%d with boxes, %d empty)\n", sum.Samples, sum.WithObjects, sum.Empty)
	fmt.Printf("boxes:   %d (%d difficult)\n", sum.Boxes, sum.Difficult)
	for _, c := range sum.Classes {
		fmt.Printf("  %3d  %-20s %6d  %s\n", c.ID, c.Name, c.Boxes, visualize.ClassHex(c.ID))
	}
	return nil
}

func runVisualize(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("visualize", flag.ExitOnError)
	dsFlags := addDatasetFlags(flags, cfg)
	images := flags.String("images", "", "directory of images to draw detections on, instead of a dataset")
	detections := flags.String("detections", "", "JSON file mapping image file names to detection lists (with -images)")
	labelFile := flags.String("labels", "", "label file naming class ids (with -images)")
	output := flags.String("output", "", "output directory (required)")
	maxSide := flags.Int("max-side", 0, "shrink results so neither side exceeds this")
	scoreThreshold := flags.Float64("score-threshold", cfg.ScoreThreshold, "minimum score drawn (with -images)")
	flags.Parse(args)
	dsFlags.apply(cfg)
	cfg.ScoreThreshold = *scoreThreshold

	closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	log := logging.GetOrCreate("visualize")

	if *output == "" {
		return errors.New("-output is required")
	}
	cache := visualize.NewImageCache()

	if *images != "" {
		return visualizeFolder(cfg, cache, *images, *detections, *labelFile, *output, *maxSide, log)
	}

	ds, err := dsFlags.open(cfg, log)
	if err != nil {
		return err
	}
	names := ds.Registry().Names()
	for i := 0; i < ds.Len(); i++ {
		s, err := ds.Get(i)
		if err != nil {
			return err
		}
		out := filepath.Join(*output, renderName(s.ImagePath))
		if _, err := visualize.Render(cache, s.ImagePath, visualize.SampleDetections(s), visualize.Options{Labels: names}, out, *maxSide); err != nil {
			return err
		}
		cache.Evict(s.ImagePath)
	}
	log.Infof("drew %d samples into %s", ds.Len(), *output)
	return nil
}

// visualizeFolder draws the detections recorded for each image of dir.
// Images without an entry in the detections file are saved undrawn.
func visualizeFolder(cfg *config.Config, cache *visualize.ImageCache, dir, detFile, labelFile, output string, maxSide int, log logging.Logger) error {
	if detFile == "" {
		return errors.New("-detections is required with -images")
	}
	data, err := os.ReadFile(detFile)
	if err != nil {
		return fmt.Errorf("failed to read detections: %w", err)
	}
	var byImage map[string][]visualize.Detection
	if err := json.Unmarshal(data, &byImage); err != nil {
		return fmt.Errorf("failed to parse detections %s: %w", detFile, err)
	}

	var names []string
	if labelFile != "" {
		reg, err := labels.Load(labelFile)
		if err != nil {
			return err
		}
		names = reg.Names()
	}

	folder := &dataset.ImageFolder{
		DatasetDir:      dir,
		ImageExtensions: cfg.ImageExtensions,
		Logger:          log,
	}
	if err := folder.Parse(); err != nil {
		return err
	}
	opts := visualize.Options{ScoreThreshold: cfg.ScoreThreshold, Labels: names}
	for id, path := range folder.IDToPath() {
		dets := byImage[filepath.Base(path)]
		out := filepath.Join(output, renderName(path))
		if _, err := visualize.Render(cache, path, dets, opts, out, maxSide); err != nil {
			return err
		}
		cache.Evict(path)
		log.Debugf("image %d: %d detections", id, len(dets))
	}
	log.Infof("drew %d images into %s", folder.Len(), output)
	return nil
}

func runCrops(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("crops", flag.ExitOnError)
	dsFlags := addDatasetFlags(flags, cfg)
	output := flags.String("output", "", "output directory (required)")
	size := flags.Int("size", 0, "resize patches to size x size, 0 keeps the box size")
	flags.Parse(args)
	dsFlags.apply(cfg)

	closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	log := logging.GetOrCreate("crops")
	ds, err := dsFlags.open(cfg, log)
	if err != nil {
		return err
	}
	n, err := export.Crops(ds, export.CropOptions{
		OutDir:   *output,
		Size:     *size,
		Registry: ds.Registry(),
		Logger:   log,
	})
	if err != nil {
		return err
	}
	log.Infof("wrote %d patches to %s", n, *output)
	return nil
}

// renderName is the output file name for a drawn copy of path. Sources that
// visualize.Save can encode keep their base name, so a.png and a.jpg in one
// folder do not overwrite each other; others are written as JPEG with the
// source extension folded into the name (a.gif becomes a_gif.jpg).
func renderName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".bmp":
		return base
	case "":
		return base + ".jpg"
	}
	return strings.TrimSuffix(base, ext) + "_" + strings.ToLower(ext[1:]) + ".jpg"
}
