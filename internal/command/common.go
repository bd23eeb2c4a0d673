// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"github.com/svoctl/svoctl/internal/meta"
	"github.com/svoctl/svoctl/internal/svo"
	"github.com/urfave/cli/v3"
)

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// NewSVOClient builds the fetch client per command flags.
func NewSVOClient(cmd *cli.Command) *svo.Client {
	var opts []svo.Option
	if base := cmd.String("base-url"); base != "" {
		opts = append(opts, svo.WithBaseURL(base))
	}
	return svo.NewClient(opts...)
}
