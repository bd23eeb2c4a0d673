// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"

	"github.com/svoctl/svoctl/internal/output"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// OutputValidator rejects --output values Spit doesn't understand.
func OutputValidator(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("output format must be a string")
	}
	for _, f := range output.Formats {
		if s == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format %q (want one of %v)", s, output.Formats)
}
