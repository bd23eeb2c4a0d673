// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

// svoctl maintains a local, versioned cache of filter transmission curves
// from the SVO Filter Profile Service, plus the calibration datasets that
// downstream photometry needs. It wires the CLI, delegates to internal
// packages, and serves as the entry point.
package main
