// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"fmt"
	"time"
)

// NextVersion computes the calendar-date version tag for t: YYYY.M.D with
// no zero padding. The tag doubles as the cache schema version and the
// published artifact version.
func NextVersion(t time.Time) string {
	return fmt.Sprintf("%d.%d.%d", t.Year(), int(t.Month()), t.Day())
}

// Decision is the gatekeeper's verdict on republication.
type Decision struct {
	Publish bool   `json:"publish"`
	Version string `json:"version,omitempty"`
}

func (d Decision) String() string {
	if !d.Publish {
		return "skip"
	}
	return "publish " + d.Version
}

// DecidePublish decides whether an updated cache should be republished.
// Pure and total: it never errs and performs no I/O.
//
// Rules, in order: nothing changed means nothing to publish; a candidate
// tag equal to the last published tag is suppressed even though data
// changed, because the publish target's versions are immutable and a
// same-day republish would collide; otherwise publish under the candidate.
func DecidePublish(updateApplied bool, candidate, lastPublished string) Decision {
	if !updateApplied {
		return Decision{}
	}
	if candidate == lastPublished {
		return Decision{}
	}
	return Decision{Publish: true, Version: candidate}
}
