// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/svoctl/svoctl/internal/cachedir"
	"github.com/svoctl/svoctl/internal/calib"
	"github.com/svoctl/svoctl/internal/config"
	"github.com/svoctl/svoctl/internal/meta"
	"github.com/svoctl/svoctl/internal/svo"
)

// CalibCommandAction downloads calibration datasets, overwriting local
// copies unconditionally. A failed fetch surfaces as a non-zero exit so CI
// fails loudly.
func CalibCommandAction(ctx context.Context, cmd *cli.Command) error {
	config.Config.Namespace = "calib"

	dir, err := cachedir.CalibDir()
	if err != nil {
		return err
	}

	client := svo.NewClient()

	if err := calib.Download(ctx, client, dir, cmd.String("base-url")); err != nil {
		return err
	}

	log.Debugf("calibration data refreshed in %s", dir)
	return nil
}

// CalibCommandBuilder constructs the cli.Command for "calib".
func CalibCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "calib",
		Usage:     "download calibration datasets",
		UsageText: `svoctl calib [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "calibration download root",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("SVOCTL_CALIB_BASE_URL"),
					yaml.YAML("calibration.base_url", altsrc.StringSourcer(cfg.Source)),
				),
			},
		},
		Action: CalibCommandAction,
	}
}
