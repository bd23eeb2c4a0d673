// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svoctl/svoctl/internal/svo"
)

// writeFilter drops a payload at the facility/instrument/band.vot layout
// both snapshots and generations use.
func writeFilter(t *testing.T, dir, id, content string) {
	t.Helper()
	parsed, err := svo.ParseID(id)
	require.NoError(t, err)
	path := filepath.Join(dir, filepath.FromSlash(parsed.RelPath()))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func stageSnapshot(t *testing.T, payloads map[string]string) *Snapshot {
	t.Helper()
	dir := t.TempDir()
	for id, content := range payloads {
		writeFilter(t, dir, id, content)
	}
	snap, err := LoadSnapshot(dir)
	require.NoError(t, err)
	return snap
}

func liveIDs(s *Store) []string {
	ids := make([]string, 0, s.Len())
	for id := range s.Entries() {
		ids = append(ids, id)
	}
	return ids
}

func TestLoadMissingBaseIsEmptyStore(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Generation())
	assert.Empty(t, s.GenDir())
}

func TestLoadCorruptPointer(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "CURRENT"), []byte("not-a-generation\n"), 0o644))

	_, err := Load(base)
	assert.ErrorContains(t, err, "corrupt CURRENT pointer")
}

func TestLoadPointerToMissingGeneration(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "CURRENT"), []byte("gen-gone\n"), 0o644))

	// A dangling pointer reads as an empty generation rather than an
	// error: ReadTree tolerates a missing dir, so the store is empty.
	s, err := Load(base)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestDiff(t *testing.T) {
	local := map[string]Entry{
		"HST/WFC3/F160W":   {Fingerprint: "aaa"},
		"Keck/NIRC2/Kp":    {Fingerprint: "bbb"},
		"Spitzer/IRAC/I1":  {Fingerprint: "ccc"},
	}
	snap := map[string]Entry{
		"HST/WFC3/F160W": {Fingerprint: "aaa"}, // unchanged
		"Keck/NIRC2/Kp":  {Fingerprint: "new"}, // payload differs
		"2MASS/2MASS/J":  {Fingerprint: "ddd"}, // new upstream
	}

	ch := Diff(local, snap)
	assert.Equal(t, []string{"2MASS/2MASS/J"}, ch.Added)
	assert.Equal(t, []string{"Keck/NIRC2/Kp"}, ch.Changed)
	assert.Equal(t, []string{"Spitzer/IRAC/I1"}, ch.Missing)

	assert.True(t, NeedsUpdate(local, snap))
	assert.False(t, NeedsUpdate(local, local))
}

func TestApplyMergesSnapshotIntoStore(t *testing.T) {
	base := t.TempDir()
	s, err := Load(base)
	require.NoError(t, err)

	first := stageSnapshot(t, map[string]string{
		"HST/WFC3/F160W": "curve-A",
		"Keck/NIRC2/Kp":  "curve-B",
	})

	changed, err := s.Apply(first)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, s.Len())
	assert.True(t, strings.HasPrefix(s.Generation(), "gen-"))

	firstGen := s.Generation()

	// B changes upstream, C is new, A vanishes from the index. The merge
	// keeps A, replaces B, inserts C.
	second := stageSnapshot(t, map[string]string{
		"Keck/NIRC2/Kp": "curve-B-revised",
		"2MASS/2MASS/J": "curve-C",
	})

	changed, err = s.Apply(second)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.ElementsMatch(t,
		[]string{"HST/WFC3/F160W", "Keck/NIRC2/Kp", "2MASS/2MASS/J"},
		liveIDs(s))
	assert.NotEqual(t, firstGen, s.Generation())

	id, err := svo.ParseID("Keck/NIRC2/Kp")
	require.NoError(t, err)
	raw, err := s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "curve-B-revised", string(raw))

	id, err = svo.ParseID("HST/WFC3/F160W")
	require.NoError(t, err)
	raw, err = s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "curve-A", string(raw))

	// The superseded generation gets pruned.
	assert.NoDirExists(t, filepath.Join(base, firstGen))
}

func TestApplyIsIdempotent(t *testing.T) {
	base := t.TempDir()
	s, err := Load(base)
	require.NoError(t, err)

	snap := stageSnapshot(t, map[string]string{
		"HST/WFC3/F160W": "curve-A",
	})

	changed, err := s.Apply(snap)
	require.NoError(t, err)
	require.True(t, changed)

	pointer, err := os.ReadFile(filepath.Join(base, "CURRENT"))
	require.NoError(t, err)

	changed, err = s.Apply(snap)
	require.NoError(t, err)
	assert.False(t, changed)

	again, err := os.ReadFile(filepath.Join(base, "CURRENT"))
	require.NoError(t, err)
	assert.Equal(t, pointer, again, "no-op apply must not move the pointer")
}

func TestApplyRetainsEntriesMissingFromSnapshot(t *testing.T) {
	base := t.TempDir()
	s, err := Load(base)
	require.NoError(t, err)

	full := stageSnapshot(t, map[string]string{
		"HST/WFC3/F160W": "curve-A",
		"Keck/NIRC2/Kp":  "curve-B",
	})
	_, err = s.Apply(full)
	require.NoError(t, err)

	// Upstream drops A entirely. Nothing was added or changed, so the
	// store does not churn a new generation.
	shrunk := stageSnapshot(t, map[string]string{
		"Keck/NIRC2/Kp": "curve-B",
	})

	assert.False(t, NeedsUpdate(s.Entries(), shrunk.Entries()))

	changed, err := s.Apply(shrunk)
	require.NoError(t, err)
	assert.False(t, changed)

	id, err := svo.ParseID("HST/WFC3/F160W")
	require.NoError(t, err)
	raw, err := s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "curve-A", string(raw))
}

func TestApplyFailureLeavesLiveGenerationIntact(t *testing.T) {
	base := t.TempDir()
	s, err := Load(base)
	require.NoError(t, err)

	_, err = s.Apply(stageSnapshot(t, map[string]string{
		"HST/WFC3/F160W": "curve-A",
	}))
	require.NoError(t, err)
	liveGen := s.Generation()

	// Stage a snapshot, then yank a payload out from under it so the
	// generation build fails mid-flight.
	snap := stageSnapshot(t, map[string]string{
		"Keck/NIRC2/Kp": "curve-B",
	})
	for _, entry := range snap.Entries() {
		require.NoError(t, os.Remove(entry.Path))
	}

	changed, err := s.Apply(snap)
	assert.False(t, changed)

	var uerr *UpdateError
	require.ErrorAs(t, err, &uerr)

	// The pointer still names the old generation and a fresh load sees
	// the original dataset.
	pointer, err := os.ReadFile(filepath.Join(base, "CURRENT"))
	require.NoError(t, err)
	assert.Equal(t, liveGen, strings.TrimSpace(string(pointer)))

	reloaded, err := Load(base)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"HST/WFC3/F160W"}, liveIDs(reloaded))

	// No half-built generation directories left behind.
	dirents, err := os.ReadDir(base)
	require.NoError(t, err)
	for _, d := range dirents {
		if d.IsDir() && strings.HasPrefix(d.Name(), "gen-") {
			assert.Equal(t, liveGen, d.Name())
		}
	}
}

func TestReadTreeSkipsStrayFiles(t *testing.T) {
	dir := t.TempDir()
	writeFilter(t, dir, "HST/WFC3/F160W", "curve-A")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("stray"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "toplevel.vot"), []byte("stray"), 0o644))

	entries, err := ReadTree(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Contains(t, entries, "HST/WFC3/F160W")
}

func TestEntryFingerprintTracksPayload(t *testing.T) {
	dir := t.TempDir()
	writeFilter(t, dir, "HST/WFC3/F160W", "curve-A")

	before, err := ReadTree(dir)
	require.NoError(t, err)

	writeFilter(t, dir, "HST/WFC3/F160W", "curve-A-revised")

	after, err := ReadTree(dir)
	require.NoError(t, err)

	assert.NotEqual(t,
		before["HST/WFC3/F160W"].Fingerprint,
		after["HST/WFC3/F160W"].Fingerprint)
}
