// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package svo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the SVO Filter Profile Service query endpoint.
const DefaultBaseURL = "http://svo2.cab.inta-csic.es/theory/fps/fps.php"

// The index is fetched in wavelength-effective bins rather than one giant
// query. The filter distribution is heavily skewed toward the low end
// (which starts around 1e3 AA), hence log spacing with the first bin edge
// pinned to zero.
const (
	defaultIndexBatches = 25
	waveEffMin          = 0.0
	waveEffLogMin       = 3.0 // 1e3 AA
	waveEffMax          = 1e7 // AA
)

// FetchError means a remote retrieval permanently failed: the service was
// unreachable after the retry budget, answered with an error status, or
// returned a payload that does not parse. The live cache is never touched
// by a failed fetch.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client queries the filter profile service. All retrieval goes through a
// retrying HTTP client with bounded exponential backoff; a Client performs
// no writes outside directories handed to it as staging.
type Client struct {
	baseURL      string
	hc           *retryablehttp.Client
	indexBatches int
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different FPS endpoint (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRetryMax overrides the number of retries after the first attempt.
func WithRetryMax(n int) Option {
	return func(c *Client) { c.hc.RetryMax = n }
}

// WithIndexBatches overrides how many wavelength bins the index fetch uses.
func WithIndexBatches(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.indexBatches = n
		}
	}
}

// WithHTTPClient swaps the underlying http.Client (tests inject a stub
// transport this way).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc.HTTPClient = hc }
}

// NewClient builds a Client with 3 total attempts per request and backoff
// between them.
func NewClient(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 8 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 60 * time.Second

	c := &Client{
		baseURL:      DefaultBaseURL,
		hc:           rc,
		indexBatches: defaultIndexBatches,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs one retried GET and returns the response body.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return body, nil
}

// query builds an FPS query URL from params.
func (c *Client) query(params url.Values) string {
	return c.baseURL + "?" + params.Encode()
}

// FetchIndex retrieves the master list of all filter IDs known to the
// service, in wavelength batches.
func (c *Client) FetchIndex(ctx context.Context) ([]ID, error) {
	edges := indexBatchEdges(c.indexBatches)

	seen := make(map[string]struct{})
	var ids []ID

	for i := 0; i+1 < len(edges); i++ {
		params := url.Values{}
		params.Set("WavelengthEff_min", formatEdge(edges[i]))
		params.Set("WavelengthEff_max", formatEdge(edges[i+1]))

		body, err := c.get(ctx, c.query(params))
		if err != nil {
			return nil, err
		}

		vot, err := ParseVOTable(bytes.NewReader(body))
		if err != nil {
			return nil, &FetchError{URL: c.baseURL, Err: err}
		}

		table, err := vot.Table()
		if err != nil {
			// An empty wavelength bin is normal, not a failure.
			log.Debugf("no filters in (%s, %s) AA", formatEdge(edges[i]), formatEdge(edges[i+1]))
			continue
		}

		raw, err := table.Column("filterID")
		if err != nil {
			return nil, &FetchError{URL: c.baseURL, Err: err}
		}

		added := 0
		for _, s := range raw {
			id, err := ParseID(s)
			if err != nil {
				log.Warnf("skipping unparseable filter ID %q", s)
				continue
			}
			if _, dup := seen[id.String()]; dup {
				// Bin edges are inclusive on both sides server-side.
				continue
			}
			seen[id.String()] = struct{}{}
			ids = append(ids, id)
			added++
		}
		log.Debugf("%d filters fetched in (%s, %s) AA", added, formatEdge(edges[i]), formatEdge(edges[i+1]))
	}

	if len(ids) == 0 {
		return nil, &FetchError{URL: c.baseURL, Err: fmt.Errorf("index query returned no filters")}
	}

	log.Infof("index fetched: %s filters", humanize.Comma(int64(len(ids))))
	return ids, nil
}

// FetchTransmission retrieves one filter's transmission VOTable and returns
// the raw document, validated to parse and to contain a table.
func (c *Client) FetchTransmission(ctx context.Context, id ID) ([]byte, error) {
	params := url.Values{}
	params.Set("ID", id.SVO())

	body, err := c.get(ctx, c.query(params))
	if err != nil {
		return nil, err
	}

	vot, err := ParseVOTable(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: c.baseURL, Err: err}
	}
	if _, err := vot.Table(); err != nil {
		return nil, &FetchError{URL: c.baseURL, Err: fmt.Errorf("filter %s: %w", id, err)}
	}
	return body, nil
}

// FetchFile retrieves an arbitrary URL with the same retry budget. Used for
// calibration datasets, which are plain files rather than FPS queries.
func (c *Client) FetchFile(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL)
}

// indexBatchEdges returns n+1 log-spaced bin edges over the effective
// wavelength range, with the first edge forced to zero.
func indexBatchEdges(n int) []float64 {
	edges := make([]float64, n+1)
	logMax := math.Log10(waveEffMax)
	step := (logMax - waveEffLogMin) / float64(n)
	for i := 0; i <= n; i++ {
		edges[i] = math.Pow(10, waveEffLogMin+step*float64(i))
	}
	edges[0] = waveEffMin
	return edges
}

func formatEdge(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
