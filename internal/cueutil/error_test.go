// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()

		if err := FormatError(nil, "config.cue"); err != nil {
			t.Errorf("FormatError(nil) = %v, want nil", err)
		}
	})

	t.Run("non-CUE error is wrapped with the file path", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("boom")
		err := FormatError(cause, "config.cue")
		if !errors.Is(err, cause) {
			t.Errorf("FormatError() should wrap the cause, got %v", err)
		}
		if !strings.HasPrefix(err.Error(), "config.cue: ") {
			t.Errorf("FormatError() = %q, want config.cue prefix", err.Error())
		}
	})

	t.Run("validation error carries the field path", func(t *testing.T) {
		t.Parallel()

		ctx := cuecontext.New()
		schema := ctx.CompileString(`#Config: registry?: mirror?: bool`).LookupPath(cue.ParsePath("#Config"))
		user := ctx.CompileString(`registry: mirror: "yes"`)
		verr := schema.Unify(user).Validate(cue.Concrete(false))
		if verr == nil {
			t.Fatal("expected a validation error")
		}

		err := FormatError(verr, "config.cue")
		if !strings.Contains(err.Error(), "registry.mirror") {
			t.Errorf("FormatError() = %q, want registry.mirror path", err.Error())
		}
	})
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path []string
		want string
	}{
		{"empty", nil, ""},
		{"single", []string{"registry"}, "registry"},
		{"nested", []string{"registry", "url"}, "registry.url"},
		{"index", []string{"items", "0", "name"}, "items[0].name"},
		{"leading number is a field", []string{"0", "name"}, "0.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := formatPath(tt.path); got != tt.want {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 10), 10, "a.cue"); err != nil {
		t.Errorf("CheckFileSize() at the limit = %v, want nil", err)
	}
	err := CheckFileSize(make([]byte, 11), 10, "a.cue")
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("CheckFileSize() over the limit = %v", err)
	}
}
