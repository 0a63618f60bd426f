package dataset

// Sample is one image with its ground-truth boxes. Boxes, Classes, Scores
// and Difficult always have the same length; row i of each describes the
// same object.
type Sample struct {
	ImageID        int          `json:"image_id"`
	ImagePath      string       `json:"image_path"`
	AnnotationPath string       `json:"annotation_path,omitempty"`
	Width          float64      `json:"width"`
	Height         float64      `json:"height"`
	Boxes          [][4]float64 `json:"boxes"`
	Classes        []int        `json:"classes"`
	Scores         []float64    `json:"scores"`
	Difficult      []int        `json:"difficult"`
}

// NumObjects returns the number of boxes in the sample.
func (s Sample) NumObjects() int { return len(s.Boxes) }

// Clone returns a deep copy of s.
func (s Sample) Clone() Sample {
	out := s
	out.Boxes = append([][4]float64(nil), s.Boxes...)
	out.Classes = append([]int(nil), s.Classes...)
	out.Scores = append([]float64(nil), s.Scores...)
	out.Difficult = append([]int(nil), s.Difficult...)
	return out
}
