// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// UpdateError means building or committing a new generation failed. The
// previously live generation is untouched and remains valid, so callers
// treat this as reportable but not fatal to consumers of the cache.
type UpdateError struct {
	Op  string
	Err error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("cache update failed (%s): %v", e.Op, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// Changes is the comparator's view of snapshot vs. live store.
type Changes struct {
	Added   []string // in snapshot only
	Changed []string // in both, payload fingerprint differs
	Missing []string // in store only; retained by the merge, reported for visibility
}

// Diff compares entry sets by identifier and payload fingerprint. Pure:
// same inputs, same output, sorted slices.
func Diff(local, snap map[string]Entry) Changes {
	var ch Changes
	for key, se := range snap {
		le, ok := local[key]
		switch {
		case !ok:
			ch.Added = append(ch.Added, key)
		case le.Fingerprint != se.Fingerprint:
			ch.Changed = append(ch.Changed, key)
		}
	}
	for key := range local {
		if _, ok := snap[key]; !ok {
			ch.Missing = append(ch.Missing, key)
		}
	}
	sort.Strings(ch.Added)
	sort.Strings(ch.Changed)
	sort.Strings(ch.Missing)
	return ch
}

// NeedsUpdate reports whether merging snap into local would change the
// persisted content. Entries missing from the snapshot are retained by the
// merge, so they alone never force an update.
func NeedsUpdate(local, snap map[string]Entry) bool {
	ch := Diff(local, snap)
	return len(ch.Added) > 0 || len(ch.Changed) > 0
}

// Apply merges the snapshot into the store: snapshot entries replace
// matching identifiers, snapshot-only entries are inserted, and local-only
// entries are retained. The merged set is materialized as a complete new
// generation directory and committed by atomically replacing CURRENT; a
// failure at any point before the commit leaves the live generation
// untouched. Returns whether a change was applied.
func (s *Store) Apply(snap *Snapshot) (bool, error) {
	changes := Diff(s.entries, snap.entries)
	if len(changes.Missing) > 0 {
		log.Infof("upstream no longer lists %d cached filters; retaining local copies", len(changes.Missing))
	}
	if len(changes.Added) == 0 && len(changes.Changed) == 0 {
		log.Info("filter data is already up-to-date")
		return false, nil
	}

	gen, err := newGenName()
	if err != nil {
		return false, &UpdateError{Op: "name generation", Err: err}
	}
	genDir := filepath.Join(s.base, gen)

	if err := s.buildGeneration(genDir, snap); err != nil {
		// Leave nothing half-built behind.
		_ = os.RemoveAll(genDir)
		return false, err
	}

	if err := s.commit(gen); err != nil {
		_ = os.RemoveAll(genDir)
		return false, err
	}

	oldGen := s.gen
	s.gen = gen
	entries, err := ReadTree(genDir)
	if err != nil {
		// The commit already happened; reloading is bookkeeping.
		return true, &UpdateError{Op: "reload", Err: err}
	}
	s.entries = entries

	log.Infof("cache updated: %d added, %d changed, %d entries total",
		len(changes.Added), len(changes.Changed), len(entries))

	s.prune(oldGen)
	return true, nil
}

// buildGeneration writes the full merged entry set into genDir. Snapshot
// payloads win; retained local payloads are hard-linked when possible to
// avoid duplicating a multi-gigabyte store, with copy as the fallback.
func (s *Store) buildGeneration(genDir string, snap *Snapshot) error {
	for key, entry := range snap.entries {
		if err := placeEntry(genDir, key, entry.Path); err != nil {
			return &UpdateError{Op: "stage snapshot entry " + key, Err: err}
		}
	}
	for key, entry := range s.entries {
		if _, replaced := snap.entries[key]; replaced {
			continue
		}
		if err := placeEntry(genDir, key, entry.Path); err != nil {
			return &UpdateError{Op: "retain entry " + key, Err: err}
		}
	}
	return nil
}

// commit atomically points CURRENT at gen: write a temp file, fsync, then
// rename over the pointer. This rename is the single serialization point;
// racing writers end with one complete generation or the other, never a
// mix.
func (s *Store) commit(gen string) error {
	tmp, err := os.CreateTemp(s.base, ".current-*")
	if err != nil {
		return &UpdateError{Op: "commit", Err: err}
	}
	tmpName := tmp.Name()

	_, werr := tmp.WriteString(gen + "\n")
	if werr == nil {
		werr = tmp.Sync()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmpName)
		return &UpdateError{Op: "commit", Err: werr}
	}

	if err := os.Rename(tmpName, filepath.Join(s.base, currentFile)); err != nil {
		os.Remove(tmpName)
		return &UpdateError{Op: "commit", Err: err}
	}
	return nil
}

// prune removes superseded generation directories. Best-effort: a prune
// failure never fails the update.
func (s *Store) prune(oldGen string) {
	dirents, err := os.ReadDir(s.base)
	if err != nil {
		log.WithError(err).Warn("failed to scan store for stale generations")
		return
	}
	for _, d := range dirents {
		if !d.IsDir() || !strings.HasPrefix(d.Name(), genPrefix) || d.Name() == s.gen {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.base, d.Name())); err != nil {
			log.WithError(err).Warnf("failed to remove stale generation %s", d.Name())
		} else if d.Name() == oldGen {
			log.Debugf("pruned generation %s", oldGen)
		}
	}
}

func placeEntry(genDir, key, src string) error {
	dest := filepath.Join(genDir, filepath.FromSlash(key)+".vot")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil { //nolint:mnd
		return err
	}
	if err := os.Link(src, dest); err == nil {
		return nil
	}
	// Hard links fail across filesystems (and on some CI mounts); copy.
	return copyFile(src, dest)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	_, cerr := io.Copy(out, in)
	if serr := out.Sync(); cerr == nil {
		cerr = serr
	}
	if clerr := out.Close(); cerr == nil {
		cerr = clerr
	}
	if cerr != nil {
		os.Remove(dest)
	}
	return cerr
}

func newGenName() (string, error) {
	var nonce [4]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	stamp := time.Now().UTC().Format("20060102T150405")
	return genPrefix + stamp + "-" + hex.EncodeToString(nonce[:]), nil
}
