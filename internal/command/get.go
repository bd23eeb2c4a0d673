// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/svoctl/svoctl/internal/cachedir"
	"github.com/svoctl/svoctl/internal/meta"
	"github.com/svoctl/svoctl/internal/svo"
	"github.com/svoctl/svoctl/internal/syncer"
)

// GetCommandAction downloads a single filter into the cache on demand.
// The entry goes through the same merge/commit path as a full sync so the
// store never holds a partially applied generation.
func GetCommandAction(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 1 {
		return fmt.Errorf("want exactly one filter ID, e.g. 'svoctl get SLOAN/SDSS.g'")
	}

	id, err := svo.ParseID(args[0])
	if err != nil {
		return err
	}

	filterDir, err := cachedir.FilterDir()
	if err != nil {
		return err
	}

	changed, err := syncer.RunSingle(ctx, filterDir, NewSVOClient(cmd), id)
	if err != nil {
		return err
	}
	if !changed {
		log.Infof("filter %s already cached and current", id)
	}

	fmt.Fprintln(cmd.Writer, boolWord(changed))
	return nil
}

// GetCommandBuilder constructs the cli.Command for "get".
func GetCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "download one filter into the cache",
		UsageText: `svoctl get <facility/instrument.band>`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			NewBaseURLFlag("get"),
		},
		Action: GetCommandAction,
	}
}
