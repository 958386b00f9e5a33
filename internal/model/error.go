package model

// ErrorResponse is the JSON body of every API error.
// Error never carries seed material; Code is a stable machine-readable reason.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
