// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InvocationEnv carries the serialized invocation to the child process.
const InvocationEnv = "SOA_CLI_INVOCATION"

type (
	// Invocation is the normalized command invocation handed to a command
	// package.
	Invocation struct {
		Command string         `json:"command"`
		Args    []string       `json:"args"`
		Options map[string]any `json:"options"`
	}
)

// internalOptions are CLI-level flags that never reach command packages.
var internalOptions = map[string]bool{
	"help":        true,
	"debug":       true,
	"target-path": true,
	"config":      true,
	"version":     true,
}

// Sanitized returns a copy without private ("_"-prefixed) and CLI-level
// options, and without values that are not flat scalars or string lists.
func (inv Invocation) Sanitized() Invocation {
	out := Invocation{
		Command: inv.Command,
		Args:    append([]string{}, inv.Args...),
		Options: make(map[string]any, len(inv.Options)),
	}
	for k, v := range inv.Options {
		if k == "" || strings.HasPrefix(k, "_") || internalOptions[k] {
			continue
		}
		if flat, ok := flatValue(v); ok {
			out.Options[k] = flat
		}
	}
	return out
}

// Marshal serializes the sanitized invocation.
func (inv Invocation) Marshal() ([]byte, error) {
	data, err := json.Marshal(inv.Sanitized())
	if err != nil {
		return nil, fmt.Errorf("serializing invocation: %w", err)
	}
	return data, nil
}

func flatValue(v any) (any, bool) {
	switch val := v.(type) {
	case string, bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return val, true
	case []string:
		return append([]string{}, val...), true
	default:
		return nil, false
	}
}
