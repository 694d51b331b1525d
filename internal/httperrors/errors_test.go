// Copyright (c) 2025 The odoo-mcp Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: Timeout},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "odoo.invalid"}, want: DNS},
		{
			name: "refused",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			want: ConnectionRefused,
		},
		{name: "tls", err: errors.New("x509: certificate signed by unknown authority"), want: TLS},
		{name: "server", err: errors.New("unexpected status 502 Bad Gateway"), want: Server},
		{name: "generic", err: errors.New("unexpected EOF"), want: Generic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractHostFromURL(t *testing.T) {
	tests := map[string]string{
		"https://erp.example.com/web": "erp.example.com",
		"http://localhost:8069":       "localhost:8069",
		"not a url":                   "server",
	}
	for in, want := range tests {
		if got := ExtractHostFromURL(in); got != want {
			t.Errorf("ExtractHostFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
