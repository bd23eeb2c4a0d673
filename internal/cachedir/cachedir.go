// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package cachedir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/svoctl/svoctl/internal/config"
)

// StorageError means the cache directory is unusable: it could not be
// created, or something that is not a directory already sits at its path.
// It is fatal to a run since there is no cache to operate on.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache directory %s unusable: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Dir resolves the base cache directory.
// Precedence:
//  1. SVOCTL_CACHE_DIR, if set and non-empty
//  2. config key cache.dir
//  3. os.UserCacheDir()/svoctl
//
// Returns ("", false) if a base cannot be resolved.
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("SVOCTL_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if c, err := config.GetString("cache.dir"); err == nil && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "svoctl"), true
	}
	return "", false
}

// Ensure resolves the base cache directory and creates it (and any missing
// parents) if needed. Repeated calls return the same path and never fail
// once the directory exists.
func Ensure() (string, error) {
	base, ok := Dir()
	if !ok {
		return "", &StorageError{Path: "", Err: fmt.Errorf("no cache directory could be resolved")}
	}
	return base, ensure(base)
}

// FilterDir returns (and creates) the directory holding the versioned
// filter store. Mirrors the upstream layout of filters/SVO.
func FilterDir() (string, error) {
	base, err := Ensure()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "filters", "SVO")
	return dir, ensure(dir)
}

// CalibDir returns (and creates) the directory holding calibration
// datasets. Calibration data is unversioned and overwritten in place.
func CalibDir() (string, error) {
	base, err := Ensure()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "calibration")
	return dir, ensure(dir)
}

func ensure(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return &StorageError{Path: dir, Err: fmt.Errorf("path exists and is not a directory")}
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return &StorageError{Path: dir, Err: err}
	}
	return nil
}
