// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/svoctl/svoctl/internal/cachedir"
	"github.com/svoctl/svoctl/internal/config"
	"github.com/svoctl/svoctl/internal/meta"
	"github.com/svoctl/svoctl/internal/publish"
	"github.com/svoctl/svoctl/internal/store"
	"github.com/svoctl/svoctl/internal/syncer"
)

// SyncCommandAction runs one refresh cycle: fetch, compare, apply, decide.
// Stdout carries the machine-readable result ("true"/"false", or the full
// result document with --output json) so CI callers can branch on it.
func SyncCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "sync"

	filterDir, err := cachedir.FilterDir()
	if err != nil {
		return err
	}

	lastPublished := cmd.String("last-published")
	if lastPublished == "" {
		lastPublished = publish.LastPublished(filterDir)
	}

	result, err := syncer.Run(ctx, syncer.Options{
		FilterDir:     filterDir,
		Client:        NewSVOClient(cmd),
		Workers:       int(cmd.Int("workers")),
		Limit:         int(cmd.Int("limit")),
		DryRun:        cmd.Bool("dry-run"),
		LastPublished: lastPublished,
	})
	if err != nil {
		return err
	}

	if target := cmd.String("publish-to"); target != "" && result.Decision.Publish {
		if err := publishArtifact(ctx, cmd, filterDir, result.Decision.Version); err != nil {
			return err
		}
	}

	if cmd.String("output") == "json" {
		doc, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.Writer, string(doc))
		return nil
	}

	fmt.Fprintln(cmd.Writer, boolWord(result.Changed))
	return nil
}

func publishArtifact(ctx context.Context, cmd *cli.Command, filterDir, version string) error {
	live, err := store.Load(filterDir)
	if err != nil {
		return err
	}
	if live.GenDir() == "" {
		return fmt.Errorf("nothing to publish: store is empty")
	}

	target, err := publish.NewS3Target(ctx, cmd.String("publish-to"),
		publish.WithProfile(cmd.String("publish-profile")),
		publish.WithRegion(cmd.String("publish-region")),
	)
	if err != nil {
		return err
	}

	if err := target.Publish(ctx, version, live.GenDir()); err != nil {
		return err
	}
	return publish.WriteState(filterDir, version, time.Now())
}

func boolWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// SyncCommandBuilder constructs the cli.Command for "sync", wiring
// metadata, flags, and the action handler.
func SyncCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "refresh the local filter cache from the profile service",
		UsageText: `svoctl sync [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "fetch and compare without touching the live store",
				Value: false,
			},
			&cli.IntFlag{
				Name:   "limit",
				Hidden: true,
				Usage:  "cap the number of filters synced",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("sync.limit", altsrc.StringSourcer(cfg.Source)),
				),
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "parallel downloads while staging the snapshot",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("sync.workers", altsrc.StringSourcer(cfg.Source)),
					yaml.YAML("workers", altsrc.StringSourcer(cfg.Source)),
				),
				Value: 4,
			},
			&cli.StringFlag{
				Name:  "publish-to",
				Usage: "publish target for the versioned artifact (s3://bucket/prefix)",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("SVOCTL_PUBLISH_TO"),
					yaml.YAML("sync.publish_to", altsrc.StringSourcer(cfg.Source)),
				),
			},
			&cli.StringFlag{
				Name:  "publish-profile",
				Usage: "AWS shared config profile for the publish target",
			},
			&cli.StringFlag{
				Name:  "publish-region",
				Usage: "AWS region for the publish target",
			},
			NewBaseURLFlag("sync"),
			NewLastPublishedFlag(),
			NewOutputFlag("sync"),
		},
		Action: SyncCommandAction,
	}
}
