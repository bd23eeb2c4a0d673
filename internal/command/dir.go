// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/svoctl/svoctl/internal/cachedir"
	"github.com/svoctl/svoctl/internal/meta"
)

// DirCommandAction resolves and prints the cache directory. External
// tooling (CI sync steps) captures this to locate the store.
func DirCommandAction(ctx context.Context, cmd *cli.Command) error {
	var dir string
	var err error

	switch {
	case cmd.Bool("calibration"):
		dir, err = cachedir.CalibDir()
	case cmd.Bool("base"):
		dir, err = cachedir.Ensure()
	default:
		dir, err = cachedir.FilterDir()
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Writer, dir)
	return nil
}

// DirCommandBuilder constructs the cli.Command for "dir".
func DirCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "dir",
		Usage:     "print the cache directory, creating it if needed",
		UsageText: `svoctl dir [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "base",
				Usage:       "print the base cache directory instead of the filter store",
				HideDefault: true,
			},
			&cli.BoolFlag{
				Name:        "calibration",
				Usage:       "print the calibration directory instead of the filter store",
				HideDefault: true,
			},
		},
		Action: DirCommandAction,
	}
}
