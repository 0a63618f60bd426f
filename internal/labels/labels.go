// Package labels maps class names to contiguous integer ids.
//
// A Registry is built in one of two ways:
//
//   - Load reads an ordered label file; the index among its distinct,
//     non-blank names is the id.
//   - A Discovery observes names while annotations are parsed and assigns ids
//     in first-seen order once Finalize is called.
//
// A Discovery has no lookup methods, so ids cannot be queried before every
// record has been seen.
package labels

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrLabelFileNotFound is returned by Load when the label file is missing.
	ErrLabelFileNotFound = errors.New("label file not found")

	// ErrUnknownClass is returned when a class name was never registered.
	ErrUnknownClass = errors.New("unknown class name")
)

// Registry is an immutable bidirectional name <-> id mapping.
type Registry struct {
	names []string
	ids   map[string]int
}

// New builds a registry from names in id order. Duplicate names keep the
// first id.
func New(names []string) *Registry {
	r := &Registry{ids: make(map[string]int, len(names))}
	for _, name := range names {
		if _, ok := r.ids[name]; ok {
			continue
		}
		r.ids[name] = len(r.names)
		r.names = append(r.names, name)
	}
	return r
}

// Load reads a label file with one class name per line. Blank lines are
// skipped and a repeated name keeps its first id, so ids stay contiguous
// from 0 in the order names first appear.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLabelFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}

	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	return New(names), nil
}

// ID returns the id of name.
func (r *Registry) ID(name string) (int, error) {
	id, ok := r.ids[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	return id, nil
}

// Name returns the class name for id.
func (r *Registry) Name(id int) (string, bool) {
	if id < 0 || id >= len(r.names) {
		return "", false
	}
	return r.names[id], true
}

// Names returns the class names in id order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of classes.
func (r *Registry) Len() int { return len(r.names) }

// Map returns a copy of the name -> id mapping.
func (r *Registry) Map() map[string]int {
	out := make(map[string]int, len(r.ids))
	for k, v := range r.ids {
		out[k] = v
	}
	return out
}

// Discovery collects class names in first-seen order.
type Discovery struct {
	seen  map[string]bool
	names []string
}

// NewDiscovery returns an empty Discovery.
func NewDiscovery() *Discovery {
	return &Discovery{seen: make(map[string]bool)}
}

// Observe records name if it has not been seen.
func (d *Discovery) Observe(name string) {
	if d.seen[name] {
		return
	}
	d.seen[name] = true
	d.names = append(d.names, name)
}

// Finalize returns the registry of all observed names.
func (d *Discovery) Finalize() *Registry {
	return New(d.names)
}

// MarshalText returns the names one per line in id order, the format Load
// reads.
func (r *Registry) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	for _, name := range r.names {
		buf.WriteString(name)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// WriteFile writes the registry as a label file.
func WriteFile(path string, r *Registry) error {
	data, _ := r.MarshalText()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write label file: %w", err)
	}
	return nil
}
