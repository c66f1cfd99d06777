// Package run provides the run-scoped context: a unique run ID and the
// directory results are persisted under. Nothing here survives between
// independent invocations.
package run

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Context struct {
	ID        string
	StartedAt time.Time
	Dir       string
	Format    string
}

type Option func(*settings)

type settings struct {
	now   func() time.Time
	newID func() string
}

func WithNow(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDSource(newID func() string) Option {
	return func(s *settings) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// New creates the run directory under baseDir, named by timestamp and a short
// run ID so independent runs never collide.
func New(baseDir, format string, opts ...Option) (*Context, error) {
	s := settings{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&s)
	}

	id := s.newID()
	startedAt := s.now().UTC()

	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	dir := filepath.Join(baseDir, fmt.Sprintf("%s_%s", startedAt.Format("20060102T150405Z"), short))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory %q: %w", dir, err)
	}

	return &Context{
		ID:        id,
		StartedAt: startedAt,
		Dir:       dir,
		Format:    format,
	}, nil
}

// ResultPath returns where a scenario's result file belongs within the run.
func (c *Context) ResultPath(scenarioName, ext string) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s.%s", scenarioName, ext))
}
