// Package types defines the wire envelopes shared by every API response.
package types

// SuccessEnvelope wraps all 2xx payloads so clients always unwrap "data".
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the sanitized error surface: a stable machine code, a message
// safe to show end users, and optional structured details (field errors,
// readiness checks). Internal causes never reach this struct.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps all non-2xx payloads.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
