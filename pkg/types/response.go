package types

// SuccessEnvelope wraps every 2xx body. Message repeats a human-readable
// outcome for clients that only show a toast.
type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error body. The top-level message matches
// error.message so storefront pages can read one field either way.
type ErrorEnvelope struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Error     APIError `json:"error"`
	RequestID string   `json:"requestId,omitempty"`
}
