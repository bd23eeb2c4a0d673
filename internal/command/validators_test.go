// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputValidator(t *testing.T) {
	assert.NoError(t, OutputValidator("text"))
	assert.NoError(t, OutputValidator("json"))
	assert.NoError(t, OutputValidator("yaml"))

	assert.ErrorContains(t, OutputValidator("csv"), "unsupported output format")
	assert.ErrorContains(t, OutputValidator(42), "must be a string")
}

func TestFlagValidatorsShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	var calls int

	first := func(any) error { calls++; return boom }
	second := func(any) error { calls++; return nil }

	err := FlagValidators("x", first, second)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestBoolWord(t *testing.T) {
	assert.Equal(t, "true", boolWord(true))
	assert.Equal(t, "false", boolWord(false))
}
