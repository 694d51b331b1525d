package normalize

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/rpc"
)

func TestFault(t *testing.T) {
	tests := []struct {
		name     string
		excName  string
		code     int
		wantKind errors.Kind
	}{
		{name: "session expired by code", excName: "odoo.http.SessionExpiredException", code: 100, wantKind: errors.SessionExpired},
		{name: "access denied", excName: "odoo.exceptions.AccessDenied", code: 200, wantKind: errors.Authentication},
		{name: "access error", excName: "odoo.exceptions.AccessError", code: 200, wantKind: errors.Permission},
		{name: "missing record", excName: "odoo.exceptions.MissingError", code: 200, wantKind: errors.NotFound},
		{name: "unknown model", excName: "builtins.KeyError", code: 200, wantKind: errors.NotFound},
		{name: "unknown method", excName: "builtins.AttributeError", code: 200, wantKind: errors.NotFound},
		{name: "route not found", excName: "werkzeug.exceptions.NotFound", code: 404, wantKind: errors.NotFound},
		{name: "validation", excName: "odoo.exceptions.ValidationError", code: 200, wantKind: errors.Validation},
		{name: "user error", excName: "odoo.exceptions.UserError", code: 200, wantKind: errors.Validation},
		{name: "unknown exception", excName: "psycopg2.errors.SomethingNew", code: 200, wantKind: errors.Validation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &rpc.Error{
				Code:    tt.code,
				Message: "Odoo Server Error",
				Data:    rpc.ErrorData{Name: tt.excName, Message: "remote said no"},
			}
			got := Fault("/mcp/execute", f)
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Message != "remote said no" {
				t.Errorf("message not passed through verbatim: %q", got.Message)
			}
			if got.Remote != tt.excName || got.Endpoint != "/mcp/execute" {
				t.Errorf("diagnostics lost: remote=%q endpoint=%q", got.Remote, got.Endpoint)
			}
		})
	}
}

func TestResultError(t *testing.T) {
	tests := []struct {
		name     string
		result   string
		wantNil  bool
		wantKind errors.Kind
	}{
		{name: "plain result", result: `{"success":true,"id":7}`, wantNil: true},
		{name: "array result", result: `[1,2,3]`, wantNil: true},
		{name: "scalar result", result: `"42"`, wantNil: true},
		{name: "empty error", result: `{"error":""}`, wantNil: true},
		{name: "model not found", result: `{"error":"Model not found: x.y","details":"'x.y'"}`, wantKind: errors.NotFound},
		{name: "bare key error", result: `{"error":"'x.y'"}`, wantKind: errors.NotFound},
		{name: "deleted record", result: `{"error":"Record does not exist or has been deleted."}`, wantKind: errors.NotFound},
		{name: "unknown method", result: `{"error":"'res.partner' object has no attribute 'frobnicate'"}`, wantKind: errors.NotFound},
		{name: "access", result: `{"error":"You are not allowed to access 'Invoice' (account.move) records."}`, wantKind: errors.Permission},
		{name: "record rule", result: `{"error":"Due to security restrictions, you are not allowed to modify 'Contact' (res.partner) records."}`, wantKind: errors.Permission},
		{name: "access rights", result: `{"error":"Sorry, you are not allowed to create this kind of document."}`, wantKind: errors.Permission},
		{name: "field named access", result: `{"error":"Invalid field 'access_token' in leaf ('access_token', '=', 'x')"}`, wantKind: errors.Validation},
		{name: "access in value", result: `{"error":"Wrong value for Access Mode: 'fullaccess'"}`, wantKind: errors.Validation},
		{name: "business rule", result: `{"error":"The partner name must be unique."}`, wantKind: errors.Validation},
		{name: "missing values", result: `{"error":"create requires values"}`, wantKind: errors.Validation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResultError("/mcp/execute", json.RawMessage(tt.result))
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected no error, got %v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected an error")
			}
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", got.Kind, tt.wantKind)
			}
		})
	}
}

func TestFailureEnvelope(t *testing.T) {
	transport := Transport("/mcp/search", fmt.Errorf("post: %w", context.DeadlineExceeded), true)

	tests := []struct {
		name          string
		err           error
		wantKind      errors.Kind
		wantReconnect bool
		wantDiagnosis string
	}{
		{name: "business", err: errors.New(errors.Validation, "bad value"), wantKind: errors.Validation},
		{name: "transport", err: transport, wantKind: errors.Transport, wantReconnect: true, wantDiagnosis: "timeout"},
		{name: "escaped expiry", err: errors.New(errors.SessionExpired, "expired"), wantKind: errors.Authentication},
		{name: "untyped", err: stderrors.New("boom"), wantKind: errors.Transport, wantDiagnosis: "network"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Failure(tt.err)
			if env.OK || env.Data != nil || env.Error == nil {
				t.Fatalf("failure envelope must carry only an error: %+v", env)
			}
			if env.Error.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", env.Error.Kind, tt.wantKind)
			}
			if env.Error.ReconnectAttempted != tt.wantReconnect {
				t.Errorf("reconnect_attempted = %v", env.Error.ReconnectAttempted)
			}
			if env.Error.Diagnosis != tt.wantDiagnosis {
				t.Errorf("diagnosis = %q, want %q", env.Error.Diagnosis, tt.wantDiagnosis)
			}
		})
	}
}

func TestSuccessEnvelopeJSON(t *testing.T) {
	b, err := json.Marshal(Success(map[string]int{"count": 3}))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"ok":true,"data":{"count":3}}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}
