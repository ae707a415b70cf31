// Package storage gives the skill a private directory for its files.
package storage

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrOutsideSandbox is returned for names that resolve outside the root.
var ErrOutsideSandbox = errors.New("path escapes skill sandbox")

// Sandbox is the skill's private file area. Every name is resolved
// relative to basePath.
type Sandbox struct {
	basePath string
}

// NewSandbox creates a Sandbox and ensures the base directory exists.
func NewSandbox(basePath string) (*Sandbox, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create sandbox directory %s", basePath)
	}
	return &Sandbox{basePath: basePath}, nil
}

// Root returns the sandbox directory.
func (s *Sandbox) Root() string {
	return s.basePath
}

// Path resolves name inside the sandbox.
func (s *Sandbox) Path(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", errors.Wrap(ErrOutsideSandbox, name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Wrap(ErrOutsideSandbox, name)
	}
	return filepath.Join(s.basePath, clean), nil
}

// Exists checks whether name is present in the sandbox.
func (s *Sandbox) Exists(name string) bool {
	p, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Open opens name for reading. The caller closes it.
func (s *Sandbox) Open(name string) (io.ReadCloser, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", name)
	}
	return f, nil
}

// WriteFile replaces name with whatever fn writes. The content goes to a
// temporary file in the same directory which is flushed, closed and renamed
// over name only if fn succeeds; on any failure the previous content stays.
func (s *Sandbox) WriteFile(name string, fn func(w io.Writer) error) (err error) {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", name)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", name)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = fn(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return errors.Wrapf(err, "failed to flush %s", name)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %s", name)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", name)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", name)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return errors.Wrapf(err, "failed to replace %s", name)
	}
	return nil
}
