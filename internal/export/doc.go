// Package export writes annotated images out as COCO or VOC datasets.
//
// Both converters start from a flat image directory and a flat annotation
// directory paired by basename (see scan.Scanner). Annotations that fail to
// parse are logged and skipped; the conversion only fails on configuration
// errors, I/O errors, unknown class names or an empty result.
//
// # COCO Output
//
// VOCToCOCO writes:
//
//	<output>/COCODataset/
//	  JPEGImages/   copies of every exported image
//	  train.json
//	  eval.json
//
// Annotation ids are numbered over the whole set before the split, so they
// are unique across train.json and eval.json. Boxes are xyxy unless
// BBoxXYWH is requested.
//
// # VOC Output
//
// GenerateVOC copies images and annotations under <output>/VOCDataset and
// writes TrainListFile, EvalListFile and LabelListFile at the output root.
// Each list line is "<image> <annotation>", relative to VOCDataset:
//
//	JPEGImages/0001.jpg Annotations/0001.xml
//
// # Splitting
//
// Split shuffles a copy of its input and puts the first TrainCount(n, ratio)
// items, floor(n*ratio), in train. A nil *rand.Rand or seed 0 shuffles from
// the clock; pass NewRand(seed) for repeatable splits.
//
// # Crops
//
// Crops writes every ground-truth box of a Dataset as a PNG patch under
// <out>/<class>/. Class names that are not a plain directory name are
// rewritten so patches never leave the output directory.
//
// # Writes
//
// JSON and list files are written to a temporary file in the same directory
// and renamed into place, so readers never see a partial file.
package export
