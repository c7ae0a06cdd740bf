// Package types holds the JSON envelopes every storefront endpoint responds
// with. Success bodies nest under "data"; failures carry a machine-readable
// code alongside the public message.
package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of an error. Details stays empty unless the
// code's metadata allows exposing it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
