package framer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"camRelay/runner/internal/entity"
)

var ErrNoImages = errors.New("no images found")

type Framer interface {
	Start() error
	Next() (*entity.Frame, error)
	Stop() error
}

// DirFramer plays the JPEG files of a directory in name order. Next returns
// io.EOF after the last file unless loop is set.
type DirFramer struct {
	dir      string
	loop     bool
	files    []string
	pos      int
	sequence int
}

func NewDirFramer(dir string, loop bool) Framer {
	return &DirFramer{dir: dir, loop: loop}
}

func (r *DirFramer) Start() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}

	r.files = r.files[:0]
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			r.files = append(r.files, filepath.Join(r.dir, e.Name()))
		}
	}

	if len(r.files) == 0 {
		return fmt.Errorf("%s: %w", r.dir, ErrNoImages)
	}

	sort.Strings(r.files)
	r.pos = 0

	return nil
}

func (r *DirFramer) Stop() error {
	r.files = nil
	return nil
}

func (r *DirFramer) Next() (*entity.Frame, error) {
	if r.pos >= len(r.files) {
		if !r.loop || len(r.files) == 0 {
			return nil, io.EOF
		}
		r.pos = 0
	}

	path := r.files[r.pos]
	r.pos++

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	r.sequence++

	return &entity.Frame{
		Name:     filepath.Base(path),
		Sequence: r.sequence,
		Payload:  payload,
	}, nil
}
