// Package httpx holds small helpers for the few JSON endpoints this mostly
// HTML-rendering application exposes.
package httpx

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
