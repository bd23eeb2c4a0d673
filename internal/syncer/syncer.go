// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

// Package syncer drives one refresh cycle of the filter cache: fetch a
// candidate snapshot into staging, compare it against the live store,
// atomically apply the merge when something changed, and decide whether
// the result warrants republication. Failure at any stage leaves the live
// store exactly as it was.
package syncer

import (
	"context"
	"os"
	"time"

	"github.com/apex/log"

	"github.com/svoctl/svoctl/internal/store"
	"github.com/svoctl/svoctl/internal/svo"
)

// Options parameterize a refresh cycle.
type Options struct {
	FilterDir     string
	Client        *svo.Client
	Workers       int
	Limit         int // cap on the number of filters synced; 0 means all
	DryRun        bool
	LastPublished string
	Now           func() time.Time
}

// Result is the outcome of one refresh cycle.
type Result struct {
	Changed  bool     `json:"changed"`
	Version  string   `json:"version"`
	Decision Decision `json:"decision"`
	Entries  int      `json:"entries"`
}

// Run executes one refresh cycle. The snapshot is staged under a
// throwaway directory inside the store root (same filesystem, so retained
// payloads can be hard-linked) and discarded on every path out of here.
func Run(ctx context.Context, opts Options) (Result, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	local, err := store.Load(opts.FilterDir)
	if err != nil {
		return Result{}, err
	}
	log.Debugf("local store: generation %q, %d entries", local.Generation(), local.Len())

	ids, err := opts.Client.FetchIndex(ctx)
	if err != nil {
		return Result{}, err
	}
	if opts.Limit > 0 && len(ids) > opts.Limit {
		log.Warnf("limiting sync to %d of %d filters", opts.Limit, len(ids))
		ids = ids[:opts.Limit]
	}

	staging, err := os.MkdirTemp(opts.FilterDir, ".staging-")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(staging)

	if err := opts.Client.DownloadSnapshot(ctx, staging, ids, opts.Workers); err != nil {
		return Result{}, err
	}

	snap, err := store.LoadSnapshot(staging)
	if err != nil {
		return Result{}, err
	}

	var changed bool
	if opts.DryRun {
		changed = store.NeedsUpdate(local.Entries(), snap.Entries())
		log.Infof("dry run: update needed = %v", changed)
	} else {
		changed, err = local.Apply(snap)
		if err != nil {
			return Result{}, err
		}
	}

	candidate := NextVersion(now())
	return Result{
		Changed:  changed,
		Version:  candidate,
		Decision: DecidePublish(changed && !opts.DryRun, candidate, opts.LastPublished),
		Entries:  local.Len(),
	}, nil
}

// RunSingle fetches one filter and applies it through the normal merge
// path, preserving generation atomicity for on-demand additions.
func RunSingle(ctx context.Context, filterDir string, client *svo.Client, id svo.ID) (bool, error) {
	local, err := store.Load(filterDir)
	if err != nil {
		return false, err
	}

	staging, err := os.MkdirTemp(filterDir, ".staging-")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(staging)

	if err := client.DownloadSnapshot(ctx, staging, []svo.ID{id}, 1); err != nil {
		return false, err
	}

	snap, err := store.LoadSnapshot(staging)
	if err != nil {
		return false, err
	}
	return local.Apply(snap)
}
