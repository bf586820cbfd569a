package rest

import "fmt"

// APIError is returned when the service answers with a non-2xx status or an
// envelope whose success flag is false.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("metadata service returned status %d (request %s)", e.Status, e.RequestID)
	}
	return fmt.Sprintf("metadata service error: %s (status %d, request %s)", e.Message, e.Status, e.RequestID)
}
