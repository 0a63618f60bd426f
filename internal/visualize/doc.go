// Package visualize draws ground-truth boxes and detection results onto
// images and writes them back to disk.
//
// # Drawing
//
// DrawDetections strokes each detection at or above Options.ScoreThreshold
// in its class color and writes a caption above the box:
//
//	dog-0.87
//
// The caption is the class name from Options.Labels (or the class id when
// unnamed), a dash and the score with two decimals. When there is no room
// above the box the caption is drawn just inside it. Line width grows with
// the image, one extra pixel per 512 pixels of the longer side.
//
// # Colors
//
// Class colors come from the Detectron palette of 79 colors, indexed by
// class id modulo its length. ClassHex gives the "#rrggbb" form used in
// dataset summaries.
//
// # Loading and Saving
//
// ImageCache decodes PNG, JPEG, GIF and BMP files and keeps them by path
// until evicted. Save encodes by extension (.png, .jpg, .jpeg or .bmp) and
// creates missing directories. Render combines the two:
//
//	cache := visualize.NewImageCache()
//	size, err := visualize.Render(cache, "in.jpg", dets, opts, "out/in.jpg", 1024)
//	cache.Evict("in.jpg")
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Drawing functions copy their input
// and never modify the source image.
package visualize
