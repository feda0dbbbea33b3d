package index

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(bytes.NewBuffer(nil))
	return l
}

func TestCreateInsertSearch_Scenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.bin")
	s := New(silentLogger())
	if err := s.Create(path, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	for _, kv := range [][2]uint64{{5, 50}, {3, 30}, {9, 90}} {
		if err := s.Insert(kv[0], kv[1]); err != nil {
			t.Fatalf("Insert(%d,%d): %v", kv[0], kv[1], err)
		}
	}

	if v, ok, err := s.Search(3); err != nil || !ok || v != 30 {
		t.Fatalf("Search(3) = %d, %v, %v; want 30, true, nil", v, ok, err)
	}
	if _, ok, err := s.Search(7); err != nil || ok {
		t.Fatalf("Search(7) = ok %v err %v; want not found", ok, err)
	}

	outPath := filepath.Join(t.TempDir(), "out.csv")
	if err := s.Extract(outPath, false); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "3,30\n5,50\n9,90\n"
	if string(got) != want {
		t.Fatalf("extract output = %q, want %q", got, want)
	}
}

func TestCreate_RefusesOverwriteWithoutFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.bin")
	s := New(silentLogger())
	if err := s.Create(path, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.Close()

	s2 := New(silentLogger())
	if err := s2.Create(path, false); !errors.Is(err, ErrFileExists) {
		t.Fatalf("expected ErrFileExists, got %v", err)
	}
	if err := s2.Create(path, true); err != nil {
		t.Fatalf("Create with overwrite=true: %v", err)
	}
	s2.Close()
}

func TestOpen_RejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notanidx.bin")
	if err := os.WriteFile(path, make([]byte, 512), 0o666); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	s := New(silentLogger())
	if err := s.Open(path); !errors.Is(err, ErrNotAnIndex) {
		t.Fatalf("expected ErrNotAnIndex, got %v", err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	s := New(silentLogger())
	if err := s.Open(filepath.Join(t.TempDir(), "missing.bin")); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestOperations_RequireOpenSession(t *testing.T) {
	s := New(silentLogger())
	if err := s.Insert(1, 1); !errors.Is(err, ErrNoSessionOpen) {
		t.Fatalf("Insert: expected ErrNoSessionOpen, got %v", err)
	}
	if _, _, err := s.Search(1); !errors.Is(err, ErrNoSessionOpen) {
		t.Fatalf("Search: expected ErrNoSessionOpen, got %v", err)
	}
	if err := s.Load("whatever"); !errors.Is(err, ErrNoSessionOpen) {
		t.Fatalf("Load: expected ErrNoSessionOpen, got %v", err)
	}
}

func TestCloseReopen_HeaderSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.bin")
	s := New(silentLogger())
	if err := s.Create(path, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Insert(1, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := New(silentLogger())
	if err := s2.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s2.Close()
	if v, ok, err := s2.Search(1); err != nil || !ok || v != 1 {
		t.Fatalf("Search(1) after reopen = %d, %v, %v", v, ok, err)
	}
}

func TestLoad_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.bin")
	s := New(silentLogger())
	if err := s.Create(path, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	dataPath := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(dataPath, []byte("1,10\nabc\n2,20\n"), 0o666); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Load(dataPath); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, ok, _ := s.Search(1); !ok || v != 10 {
		t.Fatalf("Search(1) = %d, %v; want 10, true", v, ok)
	}
	if v, ok, _ := s.Search(2); !ok || v != 20 {
		t.Fatalf("Search(2) = %d, %v; want 20, true", v, ok)
	}
}

func TestExtract_RefusesOverwriteWithoutFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.bin")
	s := New(silentLogger())
	if err := s.Create(path, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()
	if err := s.Insert(1, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(outPath, []byte("existing"), 0o666); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Extract(outPath, false); !errors.Is(err, ErrFileExists) {
		t.Fatalf("expected ErrFileExists, got %v", err)
	}
	if err := s.Extract(outPath, true); err != nil {
		t.Fatalf("Extract with overwrite=true: %v", err)
	}
}
