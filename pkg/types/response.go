package types

// SuccessEnvelope wraps every 2xx marketplace API body under a "data" key,
// so clients can distinguish payloads from error bodies without sniffing.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a pkg/errors code. Details carries
// field-level validation problems when checkout or offer input is rejected.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
