// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

// Package publish tracks the last published cache version and ships
// versioned artifacts to a publish target. Versions are immutable once
// published; the gatekeeper in the syncer package relies on the state
// recorded here to suppress same-day republication.
package publish

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
)

const stateFile = "publish.json"

// State records the most recent successful publish.
type State struct {
	LastPublished string    `json:"last_published"`
	PublishedAt   time.Time `json:"published_at"`
}

// LastPublished reads the last published version tag from the state file
// in dir. A missing, unreadable, or malformed state file degrades to ""
// (publish always wins the collision check), mirroring how the upstream
// tool recovered from a hand-edited config date.
func LastPublished(dir string) string {
	raw, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.WithError(err).Warn("publish state unreadable; assuming never published")
		}
		return ""
	}

	tag := gjson.GetBytes(raw, "last_published")
	if !tag.Exists() {
		log.Warnf("publish state %s has no last_published field", stateFile)
		return ""
	}
	return tag.String()
}

// WriteState atomically records a successful publish of version in dir.
func WriteState(dir, version string, at time.Time) error {
	doc, err := json.MarshalIndent(State{LastPublished: version, PublishedAt: at.UTC()}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".publish-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(append(doc, '\n'))
	if serr := tmp.Sync(); werr == nil {
		werr = serr
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmpName)
		return werr
	}
	return os.Rename(tmpName, filepath.Join(dir, stateFile))
}
