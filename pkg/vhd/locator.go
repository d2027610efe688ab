// Package vhd resolves the backing virtual disk file for a WSL distro.
package vhd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DiskFileName is the backing disk file every WSL2 distro uses.
const DiskFileName = "ext4.vhdx"

// Provenance records how a VHD path was obtained.
type Provenance string

const (
	ProvenanceExplicit     Provenance = "explicit"
	ProvenanceAutoDetected Provenance = "auto-detected"
)

// Reference is a resolved VHD file. Created once per workflow run and
// immutable afterwards.
type Reference struct {
	Path       string
	Provenance Provenance
}

// Sentinel errors for resolution failures. Ambiguity is an error on
// purpose: the tool must never guess which disk to compact.
var (
	ErrNotFound  = errors.New("vhd not found")
	ErrAmbiguous = errors.New("vhd ambiguous")
)

// Locator finds the VHD for a distro by probing known storage roots.
// Probing is read-only.
type Locator struct {
	searchRoots []string
}

// NewLocator creates a locator over the given storage roots. With no
// roots it falls back to the standard per-user WSL storage locations.
func NewLocator(searchRoots ...string) *Locator {
	if len(searchRoots) == 0 {
		searchRoots = defaultSearchRoots()
	}
	slog.Info("vhd_locator_init", "search_roots", searchRoots)
	return &Locator{searchRoots: searchRoots}
}

// defaultSearchRoots returns the per-user locations WSL stores distro
// disks under: Store-packaged distros live beneath Packages, imported
// ones beneath wsl.
func defaultSearchRoots() []string {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		localAppData = filepath.Join(home, "AppData", "Local")
	}
	return []string{
		filepath.Join(localAppData, "Packages"),
		filepath.Join(localAppData, "wsl"),
	}
}

// Resolve returns the VHD reference for a distro. A non-empty
// explicitPath wins and is tagged ProvenanceExplicit. Otherwise the
// search roots are scanned and the result is accepted only if exactly
// one candidate disk exists: zero yields ErrNotFound, several yield
// ErrAmbiguous.
func (l *Locator) Resolve(distro, explicitPath string) (*Reference, error) {
	if explicitPath != "" {
		abs, err := filepath.Abs(explicitPath)
		if err != nil {
			return nil, fmt.Errorf("resolve explicit path %q: %w", explicitPath, err)
		}
		slog.Info("vhd_resolved", "distro", distro, "path", abs, "provenance", ProvenanceExplicit)
		return &Reference{Path: abs, Provenance: ProvenanceExplicit}, nil
	}

	matches := l.detect(distro)
	switch len(matches) {
	case 0:
		slog.Error("vhd_detection_failed", "distro", distro, "reason", "no_match")
		return nil, fmt.Errorf("no %s for distro %q under %v: %w", DiskFileName, distro, l.searchRoots, ErrNotFound)
	case 1:
		slog.Info("vhd_resolved", "distro", distro, "path", matches[0], "provenance", ProvenanceAutoDetected)
		return &Reference{Path: matches[0], Provenance: ProvenanceAutoDetected}, nil
	default:
		slog.Error("vhd_detection_failed", "distro", distro, "reason", "ambiguous", "candidates", matches)
		return nil, fmt.Errorf("%d candidate disks for distro %q (%v): %w", len(matches), distro, matches, ErrAmbiguous)
	}
}

// detect scans each search root for per-distro directories whose name
// contains the distro name and which hold a disk file, either directly
// or one level down in LocalState (the Store package layout).
func (l *Locator) detect(distro string) []string {
	want := normalizeName(distro)
	var matches []string

	for _, root := range l.searchRoots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || !strings.Contains(normalizeName(entry.Name()), want) {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			for _, candidate := range []string{
				filepath.Join(dir, DiskFileName),
				filepath.Join(dir, "LocalState", DiskFileName),
			} {
				if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
					matches = append(matches, candidate)
				}
			}
		}
	}
	return matches
}

// normalizeName lowercases and strips separators so "Ubuntu-22.04"
// matches "CanonicalGroupLimited.Ubuntu22.04LTS_79rhkp1fndgsc".
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
