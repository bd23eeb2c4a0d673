// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package svo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
)

// DefaultWorkers bounds the per-filter download concurrency.
const DefaultWorkers = 4

// DownloadSnapshot fetches the transmission data for every ID into dir,
// laid out the same way as a store generation. The snapshot must be
// complete to be usable: any per-filter failure fails the whole download
// with a FetchError, and the caller discards the staging directory. The
// live cache is never written here.
func (c *Client) DownloadSnapshot(ctx context.Context, dir string, ids []ID, workers int) error {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	jobs := make(chan ID)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var failed []string

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := c.downloadOne(ctx, dir, id); err != nil {
					log.Errorf("filter %s: %v", id, err)
					mu.Lock()
					failed = append(failed, id.String())
					mu.Unlock()
				}
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			// Drain: closing jobs lets workers finish their current fetch.
			close(jobs)
			wg.Wait()
			return &FetchError{URL: c.baseURL, Err: ctx.Err()}
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	if len(failed) > 0 {
		return &FetchError{
			URL: c.baseURL,
			Err: fmt.Errorf("%d of %d filters failed to download (first: %s)",
				len(failed), len(ids), failed[0]),
		}
	}

	log.Infof("snapshot staged: %s filters", humanize.Comma(int64(len(ids))))
	return nil
}

func (c *Client) downloadOne(ctx context.Context, dir string, id ID) error {
	body, err := c.FetchTransmission(ctx, id)
	if err != nil {
		return err
	}

	dest := filepath.Join(dir, filepath.FromSlash(id.RelPath()))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil { //nolint:mnd
		return err
	}
	return os.WriteFile(dest, body, 0o644) //nolint:mnd
}
