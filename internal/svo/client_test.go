// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package svo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient aims a client at srv with the retry backoff shrunk so
// failure paths don't stall the suite.
func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	c := NewClient(append([]Option{WithBaseURL(srv.URL)}, opts...)...)
	c.hc.RetryWaitMin = time.Millisecond
	c.hc.RetryWaitMax = 5 * time.Millisecond
	return c
}

func TestFetchTransmissionRetriesTransientFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(transmissionDoc))
	}))
	defer srv.Close()

	c := newTestClient(srv)

	id := ID{Facility: "Keck", Instrument: "NIRC2", Band: "Kp"}
	body, err := c.FetchTransmission(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, transmissionDoc, string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestFetchTransmissionExhaustsRetryBudget(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv, WithRetryMax(2))

	id := ID{Facility: "Keck", Instrument: "NIRC2", Band: "Kp"}
	_, err := c.FetchTransmission(context.Background(), id)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "3 total attempts")
}

func TestFetchTransmissionRejectsEmptyResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptyDoc))
	}))
	defer srv.Close()

	c := newTestClient(srv)

	id := ID{Facility: "No", Instrument: "Such", Band: "Filter"}
	_, err := c.FetchTransmission(context.Background(), id)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestFetchIndexDeduplicatesAcrossBins(t *testing.T) {
	var queries int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&queries, 1)
		assert.NotEmpty(t, r.URL.Query().Get("WavelengthEff_min"))
		assert.NotEmpty(t, r.URL.Query().Get("WavelengthEff_max"))
		// Every bin answers with the same two filters; the client must
		// collapse the duplicates.
		_, _ = w.Write([]byte(indexDoc))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithIndexBatches(3))

	ids, err := c.FetchIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&queries))
	assert.ElementsMatch(t, []ID{
		{Facility: "2MASS", Instrument: "2MASS", Band: "J"},
		{Facility: "Keck", Instrument: "NIRC2", Band: "Kp"},
	}, ids)
}

func TestFetchIndexAllBinsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptyDoc))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithIndexBatches(2))

	_, err := c.FetchIndex(context.Background())
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.ErrorContains(t, err, "no filters")
}

func TestDownloadSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(transmissionDoc))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	dir := t.TempDir()

	ids := []ID{
		{Facility: "HST", Instrument: "WFC3", Band: "F160W"},
		{Facility: "Keck", Instrument: "NIRC2", Band: "Kp"},
		{Facility: "2MASS", Instrument: "2MASS", Band: "J"},
	}

	require.NoError(t, c.DownloadSnapshot(context.Background(), dir, ids, 2))

	for _, id := range ids {
		path := filepath.Join(dir, filepath.FromSlash(id.RelPath()))
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, transmissionDoc, string(raw))
	}
}

func TestDownloadSnapshotFailsWhole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ID") == "Keck/NIRC2.Kp" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(transmissionDoc))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	dir := t.TempDir()

	ids := []ID{
		{Facility: "HST", Instrument: "WFC3", Band: "F160W"},
		{Facility: "Keck", Instrument: "NIRC2", Band: "Kp"},
	}

	err := c.DownloadSnapshot(context.Background(), dir, ids, 2)
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.ErrorContains(t, err, "1 of 2 filters failed")

	// The broken filter never landed in the staging dir.
	assert.NoFileExists(t, filepath.Join(dir, "Keck", "NIRC2", "Kp.vot"))
}

func TestIndexBatchEdges(t *testing.T) {
	edges := indexBatchEdges(4)
	require.Len(t, edges, 5)
	assert.Equal(t, 0.0, edges[0])
	assert.InDelta(t, 1e7, edges[len(edges)-1], 1.0)
	for i := 1; i+1 < len(edges); i++ {
		assert.Less(t, edges[i], edges[i+1])
	}
}
