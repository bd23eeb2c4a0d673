// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/svoctl/svoctl/internal/svo"
)

// The store keeps each complete dataset in its own generation directory
// and commits a generation by atomically replacing the CURRENT pointer
// file. Readers resolve CURRENT and only ever see a fully written
// generation:
//
//	<base>/CURRENT                                  # name of the live generation
//	<base>/gen-<stamp>/<facility>/<instrument>/<band>.vot
const (
	currentFile = "CURRENT"
	genPrefix   = "gen-"
)

// Entry is one cached filter payload.
type Entry struct {
	ID          svo.ID
	Path        string
	SizeBytes   int64
	Fingerprint string // sha256 of the payload
	ModTime     time.Time
}

// Store is the live, versioned filter cache rooted at base. It is mutated
// only through Apply.
type Store struct {
	base    string
	gen     string
	entries map[string]Entry
}

// Load opens the store at base. A missing or empty base is a valid, empty
// store; a CURRENT pointer naming a missing generation is corruption.
func Load(base string) (*Store, error) {
	s := &Store{base: base, entries: map[string]Entry{}}

	raw, err := os.ReadFile(filepath.Join(base, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", currentFile, err)
	}

	gen := strings.TrimSpace(string(raw))
	if gen == "" || !strings.HasPrefix(gen, genPrefix) {
		return nil, fmt.Errorf("corrupt %s pointer: %q", currentFile, gen)
	}

	entries, err := ReadTree(filepath.Join(base, gen))
	if err != nil {
		return nil, fmt.Errorf("load generation %s: %w", gen, err)
	}

	s.gen = gen
	s.entries = entries
	return s, nil
}

// Base returns the store root.
func (s *Store) Base() string { return s.base }

// Generation returns the live generation name, "" for an empty store.
func (s *Store) Generation() string { return s.gen }

// GenDir returns the absolute path of the live generation, "" if empty.
func (s *Store) GenDir() string {
	if s.gen == "" {
		return ""
	}
	return filepath.Join(s.base, s.gen)
}

// Entries exposes the live entry set keyed by filter ID. Treat as
// read-only.
func (s *Store) Entries() map[string]Entry { return s.entries }

// Len is the number of live entries.
func (s *Store) Len() int { return len(s.entries) }

// Read returns the payload of one cached filter.
func (s *Store) Read(id svo.ID) ([]byte, error) {
	entry, ok := s.entries[id.String()]
	if !ok {
		return nil, fmt.Errorf("filter %s not in cache", id)
	}
	return os.ReadFile(entry.Path)
}

// Transmission loads and parses one cached filter's curve and detector
// type. This is the read surface downstream photometry uses.
func (s *Store) Transmission(id svo.ID) ([]svo.Point, svo.DetectorType, error) {
	raw, err := s.Read(id)
	if err != nil {
		return nil, 0, err
	}
	vot, err := svo.ParseVOTable(strings.NewReader(string(raw)))
	if err != nil {
		return nil, 0, fmt.Errorf("filter %s: %w", id, err)
	}
	points, err := vot.TransmissionCurve()
	if err != nil {
		return nil, 0, fmt.Errorf("filter %s: %w", id, err)
	}
	return points, vot.DetectorType(), nil
}

// Snapshot is a fully staged remote dataset, laid out like a generation.
// It is ephemeral: merged into the store by Apply or discarded.
type Snapshot struct {
	Dir     string
	entries map[string]Entry
}

// LoadSnapshot enumerates a staged snapshot directory.
func LoadSnapshot(dir string) (*Snapshot, error) {
	entries, err := ReadTree(dir)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Dir: dir, entries: entries}, nil
}

// Entries exposes the snapshot entry set keyed by filter ID.
func (sn *Snapshot) Entries() map[string]Entry { return sn.entries }

// ReadTree enumerates every .vot payload below dir, deriving IDs from the
// facility/instrument/band.vot layout and fingerprinting each payload.
func ReadTree(dir string) (map[string]Entry, error) {
	entries := map[string]Entry{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".vot") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		id, err := svo.IDFromRelPath(filepath.ToSlash(rel))
		if err != nil {
			// Stray files don't belong to the dataset.
			return nil
		}

		entry, err := readEntry(id, path)
		if err != nil {
			return err
		}
		entries[id.String()] = entry
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func readEntry(id svo.ID, path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Entry{}, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Entry{}, err
	}

	return Entry{
		ID:          id,
		Path:        path,
		SizeBytes:   info.Size(),
		Fingerprint: hex.EncodeToString(h.Sum(nil)),
		ModTime:     info.ModTime(),
	}, nil
}
