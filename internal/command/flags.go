// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/svoctl/svoctl/internal/config"
)

func init() {
	cfg, _ = config.Load()
}

var cfg config.Type

// NewOutputFlag constructs the --output flag with namespaced and global
// config file sources (ns.output, then output).
func NewOutputFlag(ns string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output format",
		Sources: cli.NewValueSourceChain(
			yaml.YAML(ns+"."+"output", altsrc.StringSourcer(cfg.Source)),
			yaml.YAML("output", altsrc.StringSourcer(cfg.Source)),
		),
		Value: "text",
		Validator: func(value string) error {
			return FlagValidators(value, OutputValidator)
		},
	}
}

// NewFilterFlag constructs the --filter flag.
func NewFilterFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "comma-separated list of filters to apply to results",
	}
}

// NewBaseURLFlag constructs the --base-url flag pointing at the filter
// profile service, sourced from env and config.
func NewBaseURLFlag(ns string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "base-url",
		Usage: "filter profile service endpoint",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("SVOCTL_BASE_URL"),
			yaml.YAML(ns+"."+"base_url", altsrc.StringSourcer(cfg.Source)),
			yaml.YAML("svo.base_url", altsrc.StringSourcer(cfg.Source)),
		),
	}
}

// NewLastPublishedFlag constructs the --last-published flag. When absent,
// the gatekeeper falls back to the recorded publish state.
func NewLastPublishedFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "last-published",
		Usage: "version tag of the most recent published artifact",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("SVOCTL_LAST_PUBLISHED"),
		),
	}
}
