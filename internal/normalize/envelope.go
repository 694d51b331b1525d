package normalize

import (
	"odoomcp/cli/internal/errors"
	"odoomcp/cli/internal/httperrors"
	"odoomcp/cli/internal/logging"
)

// Envelope is the tagged outcome of one tool call: Data on success, Error
// otherwise. Never both.
type Envelope struct {
	OK    bool    `json:"ok"`
	Data  any     `json:"data,omitempty"`
	Error *Detail `json:"error,omitempty"`
}

// Detail is the agent-facing description of a failure.
type Detail struct {
	Kind               errors.Kind `json:"kind"`
	Message            string      `json:"message"`
	Remote             string      `json:"remote,omitempty"`
	Endpoint           string      `json:"endpoint,omitempty"`
	ReconnectAttempted bool        `json:"reconnect_attempted,omitempty"`
	Diagnosis          string      `json:"diagnosis,omitempty"`
}

// Success wraps a payload.
func Success(data any) Envelope {
	return Envelope{OK: true, Data: data}
}

// Failure describes err. Untyped errors are reported as transport errors.
func Failure(err error) Envelope {
	if err == nil {
		return Envelope{OK: false, Error: &Detail{Kind: errors.Transport, Message: "unknown failure"}}
	}

	e, ok := errors.As(err)
	if !ok {
		return Envelope{Error: &Detail{
			Kind:      errors.Transport,
			Message:   logging.Mask(err.Error()),
			Diagnosis: string(httperrors.Classify(err)),
		}}
	}

	d := &Detail{
		Kind:               e.Kind,
		Message:            e.Message,
		Remote:             e.Remote,
		Endpoint:           e.Endpoint,
		ReconnectAttempted: e.Reconnected,
	}
	// Expiry is resolved inside the client; one that escapes is a failed login.
	if d.Kind == errors.SessionExpired {
		d.Kind = errors.Authentication
	}
	if e.Err != nil {
		d.Message = logging.Mask(e.Message + ": " + e.Err.Error())
		if d.Kind == errors.Transport {
			d.Diagnosis = string(httperrors.Classify(e.Err))
		}
	}
	return Envelope{Error: d}
}
