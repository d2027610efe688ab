package vhd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDisk(t *testing.T, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	path := filepath.Join(dir, DiskFileName)
	if err := os.WriteFile(path, []byte("vhdx"), 0644); err != nil {
		t.Fatalf("failed to write disk file: %v", err)
	}
	return path
}

func TestResolve_ExplicitPathWins(t *testing.T) {
	root := t.TempDir()
	writeDisk(t, filepath.Join(root, "Ubuntu"))

	explicit := filepath.Join(root, "custom.vhdx")
	l := NewLocator(root)

	ref, err := l.Resolve("Ubuntu", explicit)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ref.Provenance != ProvenanceExplicit {
		t.Errorf("expected explicit provenance, got %s", ref.Provenance)
	}
	if ref.Path != explicit {
		t.Errorf("expected path %s, got %s", explicit, ref.Path)
	}
}

func TestResolve_ExactlyOneMatch(t *testing.T) {
	root := t.TempDir()
	want := writeDisk(t, filepath.Join(root, "CanonicalGroupLimited.Ubuntu22.04LTS_79rhkp1fndgsc", "LocalState"))
	writeDisk(t, filepath.Join(root, "DebianProject.Debian_xyz", "LocalState"))

	l := NewLocator(root)

	ref, err := l.Resolve("Ubuntu-22.04", "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ref.Provenance != ProvenanceAutoDetected {
		t.Errorf("expected auto-detected provenance, got %s", ref.Provenance)
	}
	if ref.Path != want {
		t.Errorf("expected path %s, got %s", want, ref.Path)
	}
}

func TestResolve_ZeroMatchesIsNotFound(t *testing.T) {
	root := t.TempDir()
	writeDisk(t, filepath.Join(root, "DebianProject.Debian_xyz", "LocalState"))

	l := NewLocator(root)

	_, err := l.Resolve("NonExistentDistro", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_MultipleMatchesIsAmbiguous(t *testing.T) {
	root := t.TempDir()
	writeDisk(t, filepath.Join(root, "Ubuntu"))
	writeDisk(t, filepath.Join(root, "Ubuntu-22.04", "LocalState"))

	l := NewLocator(root)

	_, err := l.Resolve("Ubuntu", "")
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
}

func TestResolve_MissingRootIsNotFound(t *testing.T) {
	l := NewLocator(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := l.Resolve("Ubuntu", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
