package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ironsheep/detkit/internal/logging"
)

// writeFileAtomic writes data to a uuid-named temp file next to path and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+uuid.New().String()+".tmp")

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

func mkdirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

// progress logs "done / total" each time another fifth of the work is done.
type progress struct {
	log   logging.Logger
	what  string
	total int
	step  int
}

func newProgress(log logging.Logger, what string, total int) *progress {
	step := total / 5
	if step < 1 {
		step = 1
	}
	return &progress{log: log, what: what, total: total, step: step}
}

func (p *progress) done(n int) {
	if n%p.step == 0 || n == p.total {
		p.log.Infof("%s: %d / %d", p.what, n, p.total)
	}
}
