// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

// Package calib downloads calibration reference datasets (spectrophotometric
// standards such as the Vega spectrum). Calibration data carries no version
// contract: every download overwrites the local copy.
package calib

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/svoctl/svoctl/internal/config"
	"github.com/svoctl/svoctl/internal/svo"
)

// Defaults match the reference spectrum the photometry layer expects.
const (
	DefaultBaseURL = "https://ssb.stsci.edu/cdbs/calspec"
	defaultDataset = "alpha_lyr_mod_002.fits"
)

// Datasets returns the calibration file names to maintain, from config key
// calibration.datasets, defaulting to the Vega spectrum.
func Datasets() []string {
	names, err := config.GetStringSlice("calibration.datasets", []string{defaultDataset})
	if err != nil || len(names) == 0 {
		return []string{defaultDataset}
	}
	return names
}

// BaseURL returns the calibration download root, from config key
// calibration.base_url.
func BaseURL() string {
	base, _ := config.GetString("calibration.base_url", DefaultBaseURL)
	return strings.TrimRight(base, "/")
}

// Download fetches every configured dataset into dir, replacing whatever
// is there. Each file lands via temp-write + rename so an interrupted
// download never leaves a truncated dataset in place. An empty base falls
// back to the configured root.
func Download(ctx context.Context, client *svo.Client, dir, base string) error {
	if base == "" {
		base = BaseURL()
	}
	base = strings.TrimRight(base, "/")

	for _, name := range Datasets() {
		body, err := client.FetchFile(ctx, base+"/"+name)
		if err != nil {
			return err
		}

		dest := filepath.Join(dir, name)
		tmp, err := os.CreateTemp(dir, ".calib-*")
		if err != nil {
			return err
		}
		tmpName := tmp.Name()

		_, werr := tmp.Write(body)
		if cerr := tmp.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			os.Remove(tmpName)
			return werr
		}
		if err := os.Rename(tmpName, dest); err != nil {
			os.Remove(tmpName)
			return err
		}

		log.Infof("calibration dataset %s downloaded (%s)", name, humanize.Bytes(uint64(len(body))))
	}
	return nil
}
