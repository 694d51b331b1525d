// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *E
		want string
	}{
		{
			name: "message only",
			err:  New(Validation, "model is required"),
			want: "validation_error: model is required",
		},
		{
			name: "wrapped cause",
			err:  Wrap(Transport, "calling /mcp/search", stderrors.New("connection refused")),
			want: "transport_error: calling /mcp/search: connection refused",
		},
		{
			name: "formatted",
			err:  Newf(NotFound, "record %s/%d not found", "res.partner", 7),
			want: "not_found: record res.partner/7 not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	perm := New(Permission, "not allowed")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "typed", err: perm, want: Permission},
		{name: "wrapped typed", err: fmt.Errorf("tool failed: %w", perm), want: Permission},
		{name: "untyped", err: stderrors.New("boom"), want: Transport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapAndIs(t *testing.T) {
	cause := stderrors.New("i/o timeout")
	err := Wrap(Transport, "calling /mcp/execute", cause).WithEndpoint("/mcp/execute")

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if !Is(err, Transport) {
		t.Fatal("expected Is(err, Transport)")
	}
	if Is(err, Validation) {
		t.Fatal("did not expect Is(err, Validation)")
	}
	if err.Endpoint != "/mcp/execute" {
		t.Errorf("Endpoint = %q", err.Endpoint)
	}
}
