// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/svoctl/svoctl/internal/cachedir"
	"github.com/svoctl/svoctl/internal/filters"
	"github.com/svoctl/svoctl/internal/meta"
	"github.com/svoctl/svoctl/internal/output"
	"github.com/svoctl/svoctl/internal/publish"
	"github.com/svoctl/svoctl/internal/store"
)

var statusHeaders = []string{"facility", "instrument", "entries", "size"}

// StatusCommandAction summarizes the live store per facility/instrument.
func StatusCommandAction(ctx context.Context, cmd *cli.Command) error {
	filterDir, err := cachedir.FilterDir()
	if err != nil {
		return err
	}

	live, err := store.Load(filterDir)
	if err != nil {
		return err
	}

	log.Infof("generation: %s, last published: %s",
		orNone(live.Generation()), orNone(publish.LastPublished(filterDir)))

	type bucket struct {
		entries int
		bytes   int64
	}
	buckets := map[[2]string]*bucket{}
	for _, entry := range live.Entries() {
		key := [2]string{entry.ID.Facility, entry.ID.Instrument}
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.entries++
		b.bytes += entry.SizeBytes
	}

	rows := make([]map[string]interface{}, 0, len(buckets))
	for key, b := range buckets {
		rows = append(rows, map[string]interface{}{
			"facility":   key[0],
			"instrument": key[1],
			"entries":    b.entries,
			"size":       humanize.Bytes(uint64(b.bytes)),
		})
	}

	rows = filters.FilterRows(rows, cmd.String("filter"))
	output.SortRows(rows, "facility", "instrument")

	return output.Spit(cmd.Writer, cmd.String("output"), statusHeaders, rows)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// StatusCommandBuilder constructs the cli.Command for "status".
func StatusCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "summarize the cached filter store",
		UsageText: `svoctl status [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			NewFilterFlag(),
			NewOutputFlag("status"),
		},
		Action: StatusCommandAction,
	}
}
