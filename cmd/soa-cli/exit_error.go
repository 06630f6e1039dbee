// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/SOALIN228/soa-cli/pkg/types"
)

// ExitError is the status soa-cli exits with. Without Err it mirrors the
// status of a command package; with Err the failure has already been
// rendered and Code is ExitFailure.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("command package exited with status %d", e.Code)
}

// Unwrap returns the rendered failure, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
