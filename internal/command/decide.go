// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/svoctl/svoctl/internal/cachedir"
	"github.com/svoctl/svoctl/internal/meta"
	"github.com/svoctl/svoctl/internal/publish"
	"github.com/svoctl/svoctl/internal/syncer"
)

// DecideCommandAction exposes the publish gatekeeper on its own, for
// pipelines that apply updates and publish in separate steps. It performs
// no I/O beyond reading the recorded publish state when --last-published
// is not given.
func DecideCommandAction(ctx context.Context, cmd *cli.Command) error {
	candidate := cmd.String("candidate")
	if candidate == "" {
		candidate = syncer.NextVersion(time.Now())
	}

	lastPublished := cmd.String("last-published")
	if lastPublished == "" {
		if filterDir, err := cachedir.FilterDir(); err == nil {
			lastPublished = publish.LastPublished(filterDir)
		}
	}

	decision := syncer.DecidePublish(cmd.Bool("changed"), candidate, lastPublished)
	fmt.Fprintln(cmd.Writer, decision)
	return nil
}

// DecideCommandBuilder constructs the cli.Command for "decide".
func DecideCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "decide",
		Usage:     "decide whether an applied update should be republished",
		UsageText: `svoctl decide --changed [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "changed",
				Usage: "whether the preceding sync applied a change",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "candidate",
				Usage: "candidate version tag (defaults to today's tag)",
			},
			NewLastPublishedFlag(),
		},
		Action: DecideCommandAction,
	}
}
