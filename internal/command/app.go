// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0
package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/svoctl/svoctl/internal/config"
	"github.com/svoctl/svoctl/internal/meta"
	"github.com/urfave/cli/v3"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {

	// The arg[1] immediately following the binary (arg[0]) is the svoctl
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, _ := config.Load(ns)
	sd, _ := os.Getwd()
	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "svoctl",
		Usage: "SVO filter cache control",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "svoctl version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		CalibCommandBuilder(app, meta),
		DecideCommandBuilder(app, meta),
		DirCommandBuilder(app, meta),
		GetCommandBuilder(app, meta),
		StatusCommandBuilder(app, meta),
		SyncCommandBuilder(app, meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
