package api

// errorResponse is the body of every non-2xx reply to a publisher.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
