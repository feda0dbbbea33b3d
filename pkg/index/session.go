// Package index exposes the index session: the command surface a
// front-end (CLI, REPL, or another Go program) drives the B-tree
// through. It owns the open file handle and the in-memory header
// state, and every mutating call leaves the header consistent on disk
// before returning.
package index

import (
	"bufio"
	stderrors "errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"btreeidx/internal/block"
	"btreeidx/internal/tree"
)

// Session owns one open index file plus the engine reading and writing
// it. The zero value is not open; call Create or Open first.
type Session struct {
	path   string
	f      *os.File
	engine *tree.Engine
	log    *logrus.Logger
}

// New returns a closed Session. A nil logger gets a default logrus
// logger; tests typically inject one configured to discard output.
func New(log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.New()
	}
	return &Session{log: log}
}

// Create creates a fresh index file at path. If path already exists
// the caller must pass overwrite=true, mirroring the "caller decides"
// contract for destructive operations; otherwise ErrFileExists is
// returned and nothing on disk changes.
func (s *Session) Create(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.Wrapf(ErrFileExists, "%s", path)
	} else if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "index: stat before create")
	}

	f, err := block.Create(path)
	if err != nil {
		return errors.Wrap(err, "index: create")
	}
	s.closeQuiet()
	s.path = path
	s.f = f
	s.engine = tree.New(f, block.Header{RootID: 0, NextID: 1}, s.log)
	return nil
}

// Open validates and opens an existing index file, loading its header.
func (s *Session) Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrFileNotFound, "%s", path)
		}
		return errors.Wrap(err, "index: stat before open")
	}

	f, h, err := block.Open(path)
	if err != nil {
		if stderrors.Is(err, block.ErrNotAnIndex) {
			return errors.Wrapf(ErrNotAnIndex, "%s", path)
		}
		return errors.Wrap(err, "index: open")
	}
	s.closeQuiet()
	s.path = path
	s.f = f
	s.engine = tree.New(f, h, s.log)
	return nil
}

func (s *Session) ensureOpen() error {
	if s.engine == nil {
		return ErrNoSessionOpen
	}
	return nil
}

// Insert inserts key/value, splitting proactively as needed. Keys are
// treated as unique by convention only: duplicates are neither
// detected nor rejected, matching the source's behavior.
func (s *Session) Insert(key, value uint64) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.engine.Insert(key, value); err != nil {
		return errors.Wrap(err, "index: insert")
	}
	return nil
}

// Search returns the value for key, the second value reporting
// whether it was found.
func (s *Session) Search(key uint64) (uint64, bool, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, false, err
	}
	v, ok, err := s.engine.Search(key)
	if err != nil {
		return 0, false, errors.Wrap(err, "index: search")
	}
	return v, ok, nil
}

// Load bulk-inserts key,value pairs from a text file, one pair per
// line. Malformed lines are logged and skipped; well-formed lines
// continue to be processed.
func (s *Session) Load(path string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrFileNotFound, "%s", path)
		}
		return errors.Wrap(err, "index: load: open source")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := parseLoadLine(line)
		if !ok {
			s.log.WithField("line", line).Warn("index: skipping malformed load line")
			continue
		}
		if err := s.engine.Insert(key, value); err != nil {
			return errors.Wrap(err, "index: load: insert")
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "index: load: scan")
	}
	return nil
}

func parseLoadLine(line string) (key, value uint64, ok bool) {
	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	k, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return k, v, true
}

// Print writes the indented structural dump of the tree to w.
func (s *Session) Print(w io.Writer) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.engine.Print(w)
}

// Extract writes the in-order key,value sequence to path. Like Create,
// an existing destination requires overwrite=true. The sequence is
// written to a uuid-suffixed temp file in the destination's directory
// and renamed into place once complete, so a failed extract never
// leaves a truncated file at path.
func (s *Session) Extract(path string, overwrite bool) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.Wrapf(ErrFileExists, "%s", path)
	} else if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "index: stat before extract")
	}

	tmp := path + "." + uuid.NewString() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "index: extract: create temp file")
	}
	if err := s.engine.Extract(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errors.Wrap(err, "index: extract")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "index: extract: close temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "index: extract: rename into place")
	}
	return nil
}

// IsOpen reports whether a file is currently open.
func (s *Session) IsOpen() bool {
	return s.engine != nil
}

// Close closes the open file handle, if any.
func (s *Session) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.engine = nil
	s.path = ""
	if err != nil {
		return errors.Wrap(err, "index: close")
	}
	return nil
}

func (s *Session) closeQuiet() {
	if s.f != nil {
		_ = s.f.Close()
	}
}
