package types

// Error body of the ops server
type ApiError struct {
	Context map[string]string `json:"context,omitempty" description:"Context of the error"`
	Message string            `json:"message" description:"Message of the error"`
}
