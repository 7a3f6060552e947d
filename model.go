package main

import "itemcrud/internal/item"

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error      string           `json:"error"`
	Violations []item.Violation `json:"violations,omitempty"`
}

// messageResponse is returned by operations without a resource body.
type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}
