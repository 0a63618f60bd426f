// Package annotation parses Pascal-VOC XML annotation files into records of
// validated bounding boxes.
//
// A VOC annotation declares the image size and a list of objects:
//
//	<annotation>
//	  <size><width>100</width><height>80</height></size>
//	  <object>
//	    <name>dog</name>
//	    <difficult>0</difficult>
//	    <bndbox><xmin>5</xmin><ymin>10</ymin><xmax>60</xmax><ymax>70</ymax></bndbox>
//	  </object>
//	</annotation>
//
// # Coordinate System
//
// Boxes are [x1, y1, x2, y2] in pixels with the origin at the top-left
// corner. Corners are clamped to the image:
//   - x1 and y1 are raised to 0
//   - x2 is lowered to width-1
//   - y2 is lowered to height-1
//
// # Record Errors
//
// The whole record is rejected when the XML does not decode, when the size
// element is missing, or when width or height is negative, non-numeric, NaN
// or infinite. Callers are expected to warn and skip such records.
//
// # Box Errors
//
// A single object is dropped with a warning, and the record kept, when it
// has no name, no bndbox, a corner that is not a finite number, or a box
// that is empty after clamping. A record may therefore end up with zero
// boxes; Record.Empty reports that case.
//
// # Class Discovery
//
// Options.Classes receives the class name of every accepted box in document
// order. labels.Discovery implements ClassSink to number classes in
// first-seen order.
package annotation
