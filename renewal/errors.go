package renewal

import (
	"fmt"
)

// NetworkError is returned when the HTTP exchange with the CA fails.
// Status is zero when no response was received.
type NetworkError struct {
	Status int
	Reason string
	Err    error
}

func (e *NetworkError) Error() string {
	msg := "CA request failed"
	if e.Status != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when the CA answered but the response does not
// carry a usable certificate.
type ProtocolError struct {
	Reason string
	Raw    []byte
}

func (e *ProtocolError) Error() string {
	return "unexpected CA response: " + e.Reason
}
