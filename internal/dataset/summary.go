package dataset

import "github.com/ironsheep/detkit/internal/labels"

// ClassCount is the number of boxes of one class.
type ClassCount struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Boxes int    `json:"boxes"`
}

// Summary describes the contents of a parsed dataset.
type Summary struct {
	Samples     int          `json:"samples"`
	WithObjects int          `json:"with_objects"`
	Empty       int          `json:"empty"`
	Boxes       int          `json:"boxes"`
	Difficult   int          `json:"difficult"`
	Classes     []ClassCount `json:"classes"`
}

// Summarize counts samples, boxes and per-class boxes of ds. reg may be nil,
// in which case classes are listed by id only.
func Summarize(ds Dataset, reg *labels.Registry) (*Summary, error) {
	sum := &Summary{Samples: ds.Len()}
	counts := make(map[int]int)
	maxID := -1
	if reg != nil {
		maxID = reg.Len() - 1
	}

	for i := 0; i < ds.Len(); i++ {
		s, err := ds.Get(i)
		if err != nil {
			return nil, err
		}
		if s.NumObjects() == 0 {
			sum.Empty++
			continue
		}
		sum.WithObjects++
		sum.Boxes += s.NumObjects()
		for j, id := range s.Classes {
			counts[id]++
			if id > maxID {
				maxID = id
			}
			if j < len(s.Difficult) && s.Difficult[j] != 0 {
				sum.Difficult++
			}
		}
	}

	sum.Classes = make([]ClassCount, 0, maxID+1)
	for id := 0; id <= maxID; id++ {
		c := ClassCount{ID: id, Boxes: counts[id]}
		if reg != nil {
			c.Name, _ = reg.Name(id)
		}
		sum.Classes = append(sum.Classes, c)
	}
	return sum, nil
}
