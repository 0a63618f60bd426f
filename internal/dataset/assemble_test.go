package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/ironsheep/detkit/internal/annotation"
	"github.com/ironsheep/detkit/internal/labels"
)

func makeEntries(withObjects, empty int) []Entry {
	entries := make([]Entry, 0, withObjects+empty)
	for i := 0; i < withObjects; i++ {
		entries = append(entries, Entry{
			ImagePath: fmt.Sprintf("obj%03d.jpg", i),
			Record: &annotation.Record{
				Width:  100,
				Height: 100,
				Boxes: []annotation.Box{
					{ClassName: "dog", X1: 1, Y1: 2, X2: 30, Y2: 40},
					{ClassName: "cat", X1: 10, Y1: 10, X2: 20, Y2: 20, Difficult: 1},
				},
			},
		})
	}
	for i := 0; i < empty; i++ {
		entries = append(entries, Entry{
			ImagePath: fmt.Sprintf("empty%03d.jpg", i),
			Record:    &annotation.Record{Width: 100, Height: 100},
		})
	}
	return entries
}

func TestAssemble_EmptyInjection(t *testing.T) {
	asm := &Assembler{
		Registry:   labels.New([]string{"dog", "cat"}),
		AllowEmpty: true,
		EmptyRatio: 0.5,
		Rand:       rand.New(rand.NewSource(1)),
	}

	samples, err := asm.Assemble(makeEntries(100, 40))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(samples) != 140 {
		t.Errorf("got %d samples, want 100 + min(40, 50) = 140", len(samples))
	}
}

func TestAssemble_EmptyRatioRounding(t *testing.T) {
	tests := []struct {
		name        string
		withObjects int
		empty       int
		ratio       float64
		wantEmpty   int
	}{
		{"floor", 5, 10, 0.5, 2},
		{"floor small", 3, 10, 0.3, 0},
		{"zero ratio", 10, 10, 0, 0},
		{"capped by available", 10, 3, 0.9, 3},
		{"ratio one keeps all", 10, 7, 1.0, 7},
		{"negative keeps all", 10, 7, -0.5, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm := &Assembler{
				Registry:   labels.New([]string{"dog", "cat"}),
				AllowEmpty: true,
				EmptyRatio: tt.ratio,
				Rand:       rand.New(rand.NewSource(7)),
			}
			samples, err := asm.Assemble(makeEntries(tt.withObjects, tt.empty))
			if err != nil {
				t.Fatalf("Assemble failed: %v", err)
			}
			if got := len(samples) - tt.withObjects; got != tt.wantEmpty {
				t.Errorf("added %d empty samples, want %d", got, tt.wantEmpty)
			}
		})
	}
}

func TestAssemble_EmptyDisallowed(t *testing.T) {
	asm := &Assembler{Registry: labels.New([]string{"dog", "cat"})}
	samples, err := asm.Assemble(makeEntries(3, 5))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Errorf("got %d samples, want 3", len(samples))
	}
}

func TestAssemble_SequentialIDsAndRows(t *testing.T) {
	asm := &Assembler{
		Registry:   labels.New([]string{"cat", "dog"}),
		AllowEmpty: true,
		EmptyRatio: 2,
	}
	samples, err := asm.Assemble(makeEntries(4, 3))
	if err != nil {
		t.Fatal(err)
	}

	for i, s := range samples {
		if s.ImageID != i {
			t.Errorf("sample %d has image id %d", i, s.ImageID)
		}
		n := len(s.Boxes)
		if len(s.Classes) != n || len(s.Scores) != n || len(s.Difficult) != n {
			t.Errorf("sample %d row counts differ: %d %d %d %d", i, n, len(s.Classes), len(s.Scores), len(s.Difficult))
		}
		for _, score := range s.Scores {
			if score != 1.0 {
				t.Errorf("ground truth score = %g, want 1", score)
			}
		}
	}

	first := samples[0]
	if first.Classes[0] != 1 || first.Classes[1] != 0 {
		t.Errorf("classes = %v, want [1 0] from the registry", first.Classes)
	}
	if first.Difficult[1] != 1 {
		t.Errorf("difficult = %v, want second flag set", first.Difficult)
	}
	if samples[len(samples)-1].NumObjects() != 0 {
		t.Error("empty samples should come after samples with objects")
	}
}

func TestAssemble_NoSamples(t *testing.T) {
	asm := &Assembler{Registry: labels.New(nil)}

	if _, err := asm.Assemble(nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("nil entries: error = %v, want ErrNoSamples", err)
	}
	if _, err := asm.Assemble(makeEntries(0, 4)); !errors.Is(err, ErrNoSamples) {
		t.Errorf("only empty entries: error = %v, want ErrNoSamples", err)
	}
}

func TestAssemble_UnknownClass(t *testing.T) {
	asm := &Assembler{Registry: labels.New([]string{"dog"})}
	if _, err := asm.Assemble(makeEntries(1, 0)); !errors.Is(err, labels.ErrUnknownClass) {
		t.Errorf("error = %v, want ErrUnknownClass", err)
	}
}

func TestAssemble_SampleLimit(t *testing.T) {
	asm := &Assembler{Registry: labels.New([]string{"dog", "cat"}), SampleLimit: 5}
	samples, err := asm.Assemble(makeEntries(8, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 5 {
		t.Errorf("got %d samples, want 5", len(samples))
	}

	asm.SampleLimit = -1
	samples, err = asm.Assemble(makeEntries(8, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 8 {
		t.Errorf("unlimited: got %d samples, want 8", len(samples))
	}
}

func TestSampleEmpty_WithoutReplacement(t *testing.T) {
	empty := make([]Sample, 20)
	for i := range empty {
		empty[i].ImagePath = fmt.Sprintf("e%d.jpg", i)
	}

	picked := sampleEmpty(empty, 30, 0.5, rand.New(rand.NewSource(3)))
	if len(picked) != 15 {
		t.Fatalf("picked %d, want 15", len(picked))
	}
	seen := make(map[string]bool)
	for _, s := range picked {
		if seen[s.ImagePath] {
			t.Errorf("%s picked twice", s.ImagePath)
		}
		seen[s.ImagePath] = true
	}
}
